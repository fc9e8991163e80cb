package images

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// HSVRange is an inclusive OpenCV HSV box: hue in [0,180], saturation and
// value in [0,255].
type HSVRange struct {
	Name  string
	Lower [3]float64
	Upper [3]float64
}

var (
	// Yellow matches the ray florets of the target composites.
	Yellow = HSVRange{Name: "yellow", Lower: [3]float64{20, 100, 100}, Upper: [3]float64{30, 255, 255}}
	// White matches white petals and bright low-saturation pixels.
	White = HSVRange{Name: "white", Lower: [3]float64{0, 0, 200}, Upper: [3]float64{180, 30, 255}}
)

// FlowerRanges are the ranges a tile is screened against before detection.
var FlowerRanges = []HSVRange{Yellow, White}

func (r HSVRange) lower() gocv.Scalar {
	return gocv.NewScalar(r.Lower[0], r.Lower[1], r.Lower[2], 0)
}

func (r HSVRange) upper() gocv.Scalar {
	return gocv.NewScalar(r.Upper[0], r.Upper[1], r.Upper[2], 0)
}

// CountInRanges reads an image file and counts the pixels inside each range.
//
// Arguments:
//   - path: The image file.
//   - ranges: The HSV ranges to count.
//
// Returns:
//   - []int: One pixel count per range, in order.
//   - error: An error if the image cannot be read.
func CountInRanges(path string, ranges ...HSVRange) ([]int, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, errors.Errorf("failed to read image %s", path)
	}
	counts, err := CountMatInRanges(img, ranges...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to count colours in %s", path)
	}
	return counts, nil
}

// CountMatInRanges counts the pixels of a BGR Mat inside each range.
func CountMatInRanges(img gocv.Mat, ranges ...HSVRange) ([]int, error) {
	hsv := gocv.NewMat()
	defer hsv.Close()
	if err := gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV); err != nil {
		return nil, errors.Wrap(err, "failed to convert to HSV")
	}

	mask := gocv.NewMat()
	defer mask.Close()

	counts := make([]int, len(ranges))
	for i, r := range ranges {
		if err := gocv.InRangeWithScalar(hsv, r.lower(), r.upper(), &mask); err != nil {
			return nil, errors.Wrapf(err, "failed to threshold range %d", i)
		}
		counts[i] = gocv.CountNonZero(mask)
	}
	return counts, nil
}
