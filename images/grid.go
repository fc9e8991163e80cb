// Package images - Tiling of survey photographs and pixel-level colour checks.
package images

import (
	"fmt"
	"image"
	"math"
)

// DefaultTargetSize is the tile edge length the grid aims for, matching the
// detector's input size.
const DefaultTargetSize = 640

// Tile is one rectangular crop of a source photograph.
type Tile struct {
	// Stem is the source file name without extension.
	Stem string
	// Index is the 1-based row-major position of the tile in its grid.
	Index int
	// Rect is the crop in source pixel coordinates.
	Rect image.Rectangle
	// Path is where the tile was written.
	Path string
}

// ComputeGrid returns the number of tile rows and columns for an image so that
// tiles come out close to target pixels on each side.
//
// Halves round to the nearest even number, so a 1600px edge at target 640
// (2.5) gives 2 tiles.
//
// Arguments:
//   - height: Image height in pixels.
//   - width: Image width in pixels.
//   - target: Target tile edge length in pixels, must be positive.
//
// Returns:
//   - rows: Number of tile rows, at least 1.
//   - cols: Number of tile columns, at least 1.
func ComputeGrid(height, width, target int) (rows, cols int) {
	rows = max(1, int(math.RoundToEven(float64(height)/float64(target))))
	cols = max(1, int(math.RoundToEven(float64(width)/float64(target))))
	return rows, cols
}

// TileRects divides a width x height image into rows x cols rectangles.
//
// Every tile is (width/cols) x (height/rows) pixels except the last column and
// row, which extend to the image edge and absorb the remainder. The rectangles
// are returned in row-major order, so the rectangle at position i has tile
// index i+1.
func TileRects(width, height, rows, cols int) []image.Rectangle {
	sectionWidth := max(1, width/cols)
	sectionHeight := max(1, height/rows)

	rects := make([]image.Rectangle, 0, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			x0 := x * sectionWidth
			y0 := y * sectionHeight
			x1 := (x + 1) * sectionWidth
			y1 := (y + 1) * sectionHeight
			if x == cols-1 {
				x1 = width
			}
			if y == rows-1 {
				y1 = height
			}
			rects = append(rects, image.Rect(x0, y0, x1, y1))
		}
	}
	return rects
}

// TileName returns the file name of a tile: <stem>_<index>.jpg.
func TileName(stem string, index int) string {
	return fmt.Sprintf("%s_%d.jpg", stem, index)
}
