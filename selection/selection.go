// Package selection - Grouping, colour screening and seeded sampling of tiles.
package selection

import (
	"math/rand"
	"path/filepath"
	"regexp"

	"github.com/edaniels/golog"

	"github.com/kato-seigou/Detection5Invasive/images"
	"github.com/kato-seigou/Detection5Invasive/util"
)

// tilePattern matches <id>_<index>.jpg where id is one or more alphanumeric
// segments joined by underscores. The last _<digits> is the tile index.
var tilePattern = regexp.MustCompile(`^([A-Za-z0-9]+(?:_[A-Za-z0-9]+)*)_(\d+)\.jpg$`)

// Group is the set of tiles cut from one source photograph.
type Group struct {
	ID    string
	Paths []string
}

// ListTiles returns the tiles in dir with a jpg or JPG extension.
func ListTiles(dir string) ([]string, error) {
	return util.ListFiles(dir, util.Suffix("jpg", "JPG"))
}

// TileID returns the source identifier of a tile file name, and false if the
// name is not a tile name.
func TileID(name string) (string, bool) {
	m := tilePattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// GroupByID groups tile paths by their source identifier. Groups are returned
// in the order their first tile appears; paths that are not tile names are
// dropped.
func GroupByID(paths []string) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, p := range paths {
		id, ok := TileID(filepath.Base(p))
		if !ok {
			continue
		}
		i, seen := index[id]
		if !seen {
			i = len(groups)
			index[id] = i
			groups = append(groups, Group{ID: id})
		}
		groups[i].Paths = append(groups[i].Paths, p)
	}
	return groups
}

// ColorFilter keeps tiles that contain enough flower-coloured pixels.
type ColorFilter struct {
	// Ranges are the HSV ranges checked; a tile passes if any range matches.
	Ranges []images.HSVRange
	// MinPixels is the minimum number of matching pixels in one range.
	// Values below 1 count as 1.
	MinPixels int
}

// DefaultColorFilter screens for any yellow or white pixel.
func DefaultColorFilter() ColorFilter {
	return ColorFilter{Ranges: images.FlowerRanges, MinPixels: 1}
}

// Filter returns the paths whose images pass the filter, in order. Images
// that cannot be read are skipped.
func (f ColorFilter) Filter(logger golog.Logger, paths []string) []string {
	var kept []string
	for _, p := range paths {
		counts, err := images.CountInRanges(p, f.Ranges...)
		if err != nil {
			logger.Debugw("skipping unreadable tile", "path", p, "error", err)
			continue
		}
		for _, c := range counts {
			if c >= max(1, f.MinPixels) {
				kept = append(kept, p)
				break
			}
		}
	}
	return kept
}

// Sample draws min(n, len(paths)) paths uniformly without replacement.
//
// The draw is a partial Fisher-Yates shuffle over a copy of paths, so the
// result depends only on the generator state and the input order.
func Sample(rng *rand.Rand, paths []string, n int) []string {
	k := min(n, len(paths))
	if k <= 0 {
		return nil
	}
	pool := make([]string, len(paths))
	copy(pool, paths)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// Selector picks the tiles sent to the detector.
type Selector struct {
	filter ColorFilter
	logger golog.Logger
}

// NewSelector creates a selector with the given colour filter.
func NewSelector(logger golog.Logger, filter ColorFilter) *Selector {
	return &Selector{filter: filter, logger: logger}
}

// Select groups the tiles in dir by source photograph, drops tiles without
// flower colours, and samples up to number tiles from each group.
//
// A single generator seeded with seed is shared by every group, so the groups
// are sampled in order from one random stream. Groups left empty by the
// filter do not consume random numbers.
//
// Arguments:
//   - dir: The tile folder.
//   - number: Maximum tiles per source photograph.
//   - seed: Seed of the random generator.
//
// Returns:
//   - []string: Selected tile paths, grouped by photograph.
//   - error: An error if the folder cannot be listed.
func (s *Selector) Select(dir string, number int, seed int64) ([]string, error) {
	rng := rand.New(rand.NewSource(seed))

	paths, err := ListTiles(dir)
	if err != nil {
		return nil, err
	}

	var selected []string
	for _, g := range GroupByID(paths) {
		kept := s.filter.Filter(s.logger, g.Paths)
		if len(kept) == 0 {
			s.logger.Debugw("no tile passed the colour filter", "id", g.ID, "tiles", len(g.Paths))
			continue
		}
		picked := Sample(rng, kept, number)
		s.logger.Debugw("sampled tiles", "id", g.ID, "tiles", len(g.Paths), "kept", len(kept), "picked", len(picked))
		selected = append(selected, picked...)
	}

	s.logger.Infow("tiles selected", "folder", dir, "tiles", len(paths), "selected", len(selected))
	return selected, nil
}
