// Package test - Synthetic survey photographs and an injectable detector for tests.
package test

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/kato-seigou/Detection5Invasive/common"
	"github.com/kato-seigou/Detection5Invasive/inference"
	"github.com/kato-seigou/Detection5Invasive/test/exiftest"
)

// Colours that land inside or outside the flower HSV ranges once decoded.
var (
	Yellow = color.RGBA{R: 255, G: 200, B: 0, A: 255}
	White  = color.RGBA{R: 250, G: 250, B: 250, A: 255}
	Green  = color.RGBA{R: 40, G: 120, B: 40, A: 255}
)

// Patch is a filled rectangle drawn over a generated photograph.
type Patch struct {
	Rect  image.Rectangle
	Color color.Color
}

// MockPhotoGenerator creates deterministic survey photographs.
//
// @example
// gen := NewMockPhotoGenerator(1280, 640)
// err := gen.WriteJPEG(filepath.Join(dir, "A1.jpg"), test.Green, test.Patch{...})
type MockPhotoGenerator struct {
	width  int
	height int
}

// NewMockPhotoGenerator creates a generator for width x height photographs.
func NewMockPhotoGenerator(width, height int) *MockPhotoGenerator {
	return &MockPhotoGenerator{width: width, height: height}
}

// Generate returns a photograph filled with background and the given patches.
func (g *MockPhotoGenerator) Generate(background color.Color, patches ...Patch) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)
	for _, p := range patches {
		draw.Draw(img, p.Rect, &image.Uniform{C: p.Color}, image.Point{}, draw.Src)
	}
	return img
}

// WriteJPEG generates a photograph and saves it at path.
func (g *MockPhotoGenerator) WriteJPEG(path string, background color.Color, patches ...Patch) error {
	return imaging.Save(g.Generate(background, patches...), path, imaging.JPEGQuality(95))
}

// WriteJPEGWithEXIF generates a photograph and saves it at path with block as
// its EXIF header.
func (g *MockPhotoGenerator) WriteJPEGWithEXIF(path string, block exiftest.Block, background color.Color, patches ...Patch) error {
	data, err := block.EncodeJPEG(g.Generate(background, patches...), 95)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "writing %s", path)
}

// MockDetector is an injectable inference.Detector. Boxes and errors are keyed
// by tile basename.
type MockDetector struct {
	ClassNames []string
	Boxes      map[string][]common.BoundingBox
	Errors     map[string]error
	DetectFunc func(ctx context.Context, path string) (*inference.Result, error)

	mu     sync.Mutex
	calls  []string
	closed bool
}

// Detect calls the injected DetectFunc or answers from Boxes and Errors.
func (d *MockDetector) Detect(ctx context.Context, path string) (*inference.Result, error) {
	d.mu.Lock()
	d.calls = append(d.calls, path)
	d.mu.Unlock()

	if d.DetectFunc != nil {
		return d.DetectFunc(ctx, path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	if err, ok := d.Errors[name]; ok {
		return nil, err
	}
	return &inference.Result{Path: path, Classes: d.ClassNames, Boxes: d.Boxes[name]}, nil
}

// Classes returns ClassNames.
func (d *MockDetector) Classes() []string {
	return d.ClassNames
}

// Close marks the detector closed.
func (d *MockDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Calls returns the paths passed to Detect, in call order.
func (d *MockDetector) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// Closed reports whether Close was called.
func (d *MockDetector) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Opener returns a loader that always yields d.
func (d *MockDetector) Opener() func() (inference.Detector, error) {
	return func() (inference.Detector, error) { return d, nil }
}

// Box returns a unit detection of the given class.
func Box(classID int) common.BoundingBox {
	return common.BoundingBox{ClassID: classID, Confidence: 0.9, X2: 1, Y2: 1}
}
