package images

import (
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/kato-seigou/Detection5Invasive/util"
)

// DefaultJPEGQuality is the quality tiles are encoded with.
const DefaultJPEGQuality = 95

// Splitter cuts photographs into a grid of tiles and writes them as JPEG files.
type Splitter struct {
	targetSize int
	quality    int
	logger     golog.Logger
}

// NewSplitter creates a splitter.
//
// Arguments:
//   - logger: Logger for progress and per-file failures.
//   - targetSize: Target tile edge length in pixels.
//   - quality: JPEG quality of written tiles (1-100).
//
// Returns:
//   - *Splitter: The splitter.
//   - error: An error if targetSize is not positive or quality is out of range.
func NewSplitter(logger golog.Logger, targetSize, quality int) (*Splitter, error) {
	if targetSize <= 0 {
		return nil, errors.Errorf("target size must be positive, got %d", targetSize)
	}
	if quality < 1 || quality > 100 {
		return nil, errors.Errorf("jpeg quality must be in [1,100], got %d", quality)
	}
	return &Splitter{targetSize: targetSize, quality: quality, logger: logger}, nil
}

// SplitImage splits one photograph and writes its tiles to outDir.
//
// Arguments:
//   - path: The source photograph.
//   - outDir: The tile folder, created if missing.
//
// Returns:
//   - []Tile: The written tiles in index order.
//   - error: An error if the image cannot be decoded or a tile cannot be written.
func (s *Splitter) SplitImage(path, outDir string) ([]Tile, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read image %s", path)
	}

	if err := util.EnsureDir(outDir); err != nil {
		return nil, err
	}

	return s.split(img, path, outDir)
}

func (s *Splitter) split(img image.Image, path, outDir string) ([]Tile, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	rows, cols := ComputeGrid(height, width, s.targetSize)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	tiles := make([]Tile, 0, rows*cols)
	for i, rect := range TileRects(width, height, rows, cols) {
		tile := Tile{
			Stem:  stem,
			Index: i + 1,
			Rect:  rect,
			Path:  filepath.Join(outDir, TileName(stem, i+1)),
		}
		section := imaging.Crop(img, rect.Add(bounds.Min))
		if err := imaging.Save(section, tile.Path, imaging.JPEGQuality(s.quality)); err != nil {
			return tiles, errors.Wrapf(err, "failed to write tile %s", tile.Path)
		}
		tiles = append(tiles, tile)
	}

	s.logger.Debugw("split image", "path", path, "width", width, "height", height, "rows", rows, "cols", cols)
	return tiles, nil
}

// SplitFolder splits every .jpg photograph (any letter case) directly inside
// inDir into outDir.
//
// A photograph that cannot be read or written is logged and skipped; the rest
// are still split. The returned error combines every per-file failure.
//
// Arguments:
//   - inDir: Folder of source photographs.
//   - outDir: Tile folder, created if missing.
//
// Returns:
//   - []Tile: All tiles written.
//   - error: A combined error of per-file failures, or a listing error.
func (s *Splitter) SplitFolder(inDir, outDir string) ([]Tile, error) {
	paths, err := util.ListFiles(inDir, util.SuffixFold(".jpg"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		s.logger.Infow("no .jpg images found in the input folder", "folder", inDir)
		return nil, nil
	}

	var (
		tiles []Tile
		errs  error
	)
	for _, p := range paths {
		written, err := s.SplitImage(p, outDir)
		tiles = append(tiles, written...)
		if err != nil {
			s.logger.Errorw("failed to split image, skipping", "path", p, "error", err)
			errs = multierr.Append(errs, err)
			continue
		}
	}

	s.logger.Infow("images split", "images", len(paths), "tiles", len(tiles), "failed", len(multierr.Errors(errs)))
	return tiles, errs
}
