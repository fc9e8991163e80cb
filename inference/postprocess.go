package inference

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/kato-seigou/Detection5Invasive/common"
	"github.com/kato-seigou/Detection5Invasive/images"
)

// DecodeOptions describe a YOLOv8 detection head output of shape [1, 4+nc, anchors].
type DecodeOptions struct {
	NumClasses int
	Anchors    int
	Confidence float32
	IoU        float32
	Letterbox  images.Letterbox
	Classes    []string
}

// NumAnchors returns the anchor count of a stride 8/16/32 head for a square input.
func NumAnchors(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		side := size / stride
		n += side * side
	}
	return n
}

// Decode converts the raw head output into boxes in source image pixels.
//
// Each anchor keeps its best-scoring class when that score reaches the
// confidence threshold; the survivors go through class-aware NMS.
//
// Arguments:
//   - output: The flattened head output, channel major.
//   - opts: The head layout and thresholds.
//
// Returns:
//   - []common.BoundingBox: The detections, highest confidence first.
//   - error: An error if output is smaller than the layout requires.
func Decode(output []float32, opts DecodeOptions) ([]common.BoundingBox, error) {
	n := opts.Anchors
	if opts.NumClasses <= 0 || n <= 0 {
		return nil, errors.Errorf("invalid head layout: %d classes, %d anchors", opts.NumClasses, n)
	}
	if want := (4 + opts.NumClasses) * n; len(output) < want {
		return nil, errors.Errorf("output holds %d values, head layout needs %d", len(output), want)
	}

	boxes := make([]common.BoundingBox, 0, 64)
	for idx := 0; idx < n; idx++ {
		classID := -1
		score := float32(-1e9)
		for c := 0; c < opts.NumClasses; c++ {
			if v := output[n*(c+4)+idx]; v > score {
				score = v
				classID = c
			}
		}
		if score < opts.Confidence {
			continue
		}

		xc, yc := output[idx], output[n+idx]
		w, h := output[2*n+idx], output[3*n+idx]
		x1, y1 := opts.Letterbox.Unmap(xc-w/2, yc-h/2)
		x2, y2 := opts.Letterbox.Unmap(xc+w/2, yc+h/2)

		label := PlaceholderName(classID)
		if classID < len(opts.Classes) {
			label = opts.Classes[classID]
		}
		boxes = append(boxes, common.BoundingBox{
			Label:      label,
			ClassID:    classID,
			Confidence: math32.Min(score, 1),
			X1:         x1,
			Y1:         y1,
			X2:         x2,
			Y2:         y2,
		})
	}
	return NMS(boxes, opts.IoU), nil
}

// NMS performs class-aware greedy Non-Maximum Suppression.
//
// Arguments:
//   - boxes: Candidate detections in any order.
//   - iouThreshold: IoU above which a lower-scoring box of the same class is suppressed.
//
// Returns:
//   - The kept detections, sorted by descending confidence.
func NMS(boxes []common.BoundingBox, iouThreshold float32) []common.BoundingBox {
	if len(boxes) == 0 {
		return nil
	}
	sorted := append([]common.BoundingBox(nil), boxes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]common.BoundingBox, 0, len(sorted))
	for i := range sorted {
		suppressed := false
		for k := range kept {
			if kept[k].ClassID == sorted[i].ClassID && sorted[i].IoU(&kept[k]) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, sorted[i])
		}
	}
	return kept
}
