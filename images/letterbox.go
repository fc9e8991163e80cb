package images

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// LetterboxFill is the padding colour used around a letterboxed image.
var LetterboxFill = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Letterbox describes how a source image was scaled and padded into a square
// model input, so that model coordinates can be mapped back.
type Letterbox struct {
	// Size is the edge length of the square model input.
	Size int
	// Scale is the factor applied to both source axes.
	Scale float64
	// Width and Height are the scaled image dimensions inside the input.
	Width, Height int
	// PadLeft and PadTop are the offsets of the scaled image inside the input.
	PadLeft, PadTop int
	// SourceWidth and SourceHeight are the original image dimensions.
	SourceWidth, SourceHeight int
}

// NewLetterbox computes the letterbox geometry for fitting a srcWidth x
// srcHeight image into a size x size input while keeping its aspect ratio.
func NewLetterbox(srcWidth, srcHeight, size int) Letterbox {
	scale := math.Min(float64(size)/float64(srcWidth), float64(size)/float64(srcHeight))
	w := max(1, int(math.Round(float64(srcWidth)*scale)))
	h := max(1, int(math.Round(float64(srcHeight)*scale)))
	return Letterbox{
		Size:         size,
		Scale:        scale,
		Width:        w,
		Height:       h,
		PadLeft:      (size - w) / 2,
		PadTop:       (size - h) / 2,
		SourceWidth:  srcWidth,
		SourceHeight: srcHeight,
	}
}

// Unmap converts a point in model input coordinates back to source image
// coordinates, clamped to the source bounds.
func (l Letterbox) Unmap(x, y float32) (float32, float32) {
	sx := (x - float32(l.PadLeft)) / float32(l.Scale)
	sy := (y - float32(l.PadTop)) / float32(l.Scale)
	sx = math32.Max(0, math32.Min(sx, float32(l.SourceWidth)))
	sy = math32.Max(0, math32.Min(sy, float32(l.SourceHeight)))
	return sx, sy
}

// LetterboxImage scales img into a size x size canvas padded with
// LetterboxFill.
//
// Arguments:
//   - img: The source image.
//   - size: The edge length of the output.
//
// Returns:
//   - *image.RGBA: The letterboxed image.
//   - Letterbox: The geometry used.
func LetterboxImage(img image.Image, size int) (*image.RGBA, Letterbox) {
	b := img.Bounds()
	lb := NewLetterbox(b.Dx(), b.Dy(), size)

	resized := resize.Resize(uint(lb.Width), uint(lb.Height), img, resize.Lanczos3)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: LetterboxFill}, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(lb.PadLeft, lb.PadTop, lb.PadLeft+lb.Width, lb.PadTop+lb.Height),
		resized, resized.Bounds().Min, draw.Src)

	return canvas, lb
}

// LetterboxMat is LetterboxImage for a BGR gocv.Mat. The caller owns the
// returned Mat, which is only valid when the error is nil.
func LetterboxMat(img gocv.Mat, size int) (gocv.Mat, Letterbox, error) {
	lb := NewLetterbox(img.Cols(), img.Rows(), size)

	resized := gocv.NewMat()
	defer resized.Close()
	if err := gocv.Resize(img, &resized, image.Pt(lb.Width, lb.Height), 0, 0, gocv.InterpolationLinear); err != nil {
		return gocv.Mat{}, lb, errors.Wrap(err, "failed to resize")
	}

	out := gocv.NewMat()
	right := size - lb.Width - lb.PadLeft
	bottom := size - lb.Height - lb.PadTop
	if err := gocv.CopyMakeBorder(resized, &out, lb.PadTop, bottom, lb.PadLeft, right, gocv.BorderConstant, LetterboxFill); err != nil {
		out.Close()
		return gocv.Mat{}, lb, errors.Wrap(err, "failed to pad")
	}

	return out, lb, nil
}

// ToTensorCHW writes img into dst as planar RGB floats scaled to [0,1].
//
// Arguments:
//   - img: A size x size image.
//   - dst: Destination holding at least 3*width*height floats.
//
// Returns:
//   - error: An error if dst is too small.
func ToTensorCHW(img image.Image, dst []float32) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	channelSize := width * height
	if len(dst) < channelSize*3 {
		return errors.Errorf("destination tensor only holds %d floats, needs %d", len(dst), channelSize*3)
	}

	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(bl>>8) / 255.0
			i++
		}
	}
	return nil
}
