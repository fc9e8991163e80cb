// Package count - Per-photograph species counts from tile detections.
package count

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/kato-seigou/Detection5Invasive/inference"
	"github.com/kato-seigou/Detection5Invasive/table"
)

// ColImagePath is the join key shared with the metadata table.
const ColImagePath = "image_path"

// ErrNoValidPaths is returned when none of the given tile paths can be used.
var ErrNoValidPaths = errors.New("no valid tile paths")

// ValidatePaths keeps the paths that name an existing .jpg file, compared
// case-insensitively.
//
// Arguments:
//   - paths: Candidate tile paths.
//
// Returns:
//   - []string: The usable paths, in input order.
//   - error: ErrNoValidPaths if nothing is left.
func ValidatePaths(paths []string) ([]string, error) {
	valid := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.HasSuffix(strings.ToLower(p), ".jpg") && fileExists(p) {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoValidPaths
	}
	return valid, nil
}

// OriginalName maps a tile basename back to its photograph, e.g.
// "IMG_0001_3.jpg" to "IMG_0001.jpg". Names without a "_<index>" suffix only
// get their extension normalized.
func OriginalName(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.LastIndex(stem, "_"); i > 0 {
		stem = stem[:i]
	}
	return stem + ".jpg"
}

// Opener loads the detector used by a count.
type Opener func() (inference.Detector, error)

// Counter runs a detector over tiles and sums the counts per photograph.
type Counter struct {
	logger golog.Logger
	open   Opener
}

// NewCounter creates a counter that loads its detector with open on every Count call.
func NewCounter(logger golog.Logger, open Opener) *Counter {
	return &Counter{logger: logger, open: open}
}

// TileCounts holds the per-class counts of one tile.
type TileCounts struct {
	Name    string
	Classes []string
	Counts  []int
}

// Count detects objects in each tile and returns one row per photograph with
// the summed count of every class.
//
// Failures never abort the caller: a model that cannot be loaded, an empty or
// invalid path list, or a run where every tile failed all yield a table with
// only the image_path column. Per tile failures are logged and skipped.
//
// Arguments:
//   - ctx: Cancelling stops the run between tiles; rows gathered so far are kept.
//   - paths: Tile paths as returned by the selector.
//
// Returns:
//   - *table.Table: image_path followed by one column per class, sorted by image_path.
func (c *Counter) Count(ctx context.Context, paths []string) *table.Table {
	empty := table.New(ColImagePath)

	detector, err := c.open()
	if err != nil {
		c.logger.Errorw("failed to load model", "error", err)
		return empty
	}
	defer func() {
		if err := detector.Close(); err != nil {
			c.logger.Warnw("failed to release model", "error", err)
		}
	}()

	valid, err := ValidatePaths(paths)
	if err != nil {
		c.logger.Errorw("invalid tile paths", "given", len(paths), "error", err)
		return empty
	}

	var (
		rows      []TileCounts
		failed    []string
		errs      error
		processed int
	)
	for _, p := range valid {
		if ctx.Err() != nil {
			c.logger.Warnw("count interrupted", "processed", processed, "error", ctx.Err())
			break
		}
		if !fileExists(p) {
			c.logger.Warnw("file disappeared", "path", p)
			continue
		}

		result, err := detector.Detect(ctx, p)
		if err != nil {
			c.logger.Errorw("inference failed", "path", p, "error", err)
			failed = append(failed, p)
			errs = multierr.Append(errs, err)
			continue
		}
		rows = append(rows, TileCounts{
			Name:    filepath.Base(p),
			Classes: result.Classes,
			Counts:  result.Counts(),
		})
		processed++
		c.logger.Debugw("tile counted", "path", p, "counts", result.Counts())
	}

	if len(rows) == 0 {
		c.logger.Infow("no detections or all failed", "processed", processed, "errors", len(failed))
		return empty
	}
	if len(failed) > 0 {
		c.logger.Warnw("errors occurred on these files", "files", failed, "error", errs)
	}

	out := Aggregate(rows)
	c.logger.Infow("count finished", "processed", processed, "rows", out.Len(), "errors", len(failed))
	return out
}

// Aggregate groups tile rows by OriginalName and sums each class column.
// Class columns are the union of all row classes in first-seen order; a class
// missing from a row counts as 0. A run without any class column yields an
// image_path-only table.
func Aggregate(rows []TileCounts) *table.Table {
	var columns []string
	seen := map[string]bool{}
	sums := map[string]map[string]int{}
	for _, r := range rows {
		for _, cls := range r.Classes {
			if !seen[cls] {
				seen[cls] = true
				columns = append(columns, cls)
			}
		}
		name := OriginalName(r.Name)
		if sums[name] == nil {
			sums[name] = map[string]int{}
		}
		for i, cls := range r.Classes {
			if i < len(r.Counts) {
				sums[name][cls] += r.Counts[i]
			}
		}
	}

	if len(columns) == 0 {
		return table.New(ColImagePath)
	}

	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)

	keys := append([]string{ColImagePath}, columns...)
	out := table.New(keys...)
	for _, name := range names {
		values := map[string]any{ColImagePath: name}
		for _, cls := range columns {
			values[cls] = sums[name][cls]
		}
		out.Append(keys, values)
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
