package metadata

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kato-seigou/Detection5Invasive/test/exiftest"
)

// jpegWith encodes a small grey-green JPEG carrying block.
func jpegWith(t *testing.T, block exiftest.Block, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 90, G: 140, B: 60, A: 255}}, image.Point{}, draw.Src)
	data, err := block.EncodeJPEG(img, 90)
	require.NoError(t, err)
	return data
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
