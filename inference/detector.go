package inference

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/kato-seigou/Detection5Invasive/common"
)

// Detector finds objects in tile images.
type Detector interface {
	// Detect runs the model over the image at path.
	Detect(ctx context.Context, path string) (*Result, error)
	// Classes returns the class names in model index order.
	Classes() []string
	// Close releases the model.
	Close() error
}

// Result holds the detections of one tile.
type Result struct {
	Path    string
	Classes []string
	Boxes   []common.BoundingBox
}

// Counts returns the number of detections per class index. Boxes with a
// class id outside Classes are ignored.
func (r *Result) Counts() []int {
	counts := make([]int, len(r.Classes))
	for _, b := range r.Boxes {
		if b.ClassID >= 0 && b.ClassID < len(counts) {
			counts[b.ClassID]++
		}
	}
	return counts
}

// New loads the model described by cfg with the configured backend.
//
// Arguments:
//   - cfg: The detector configuration.
//   - logger: The logger for load and inference messages.
//
// Returns:
//   - Detector: The loaded detector; the caller must Close it.
//   - error: An error if the configuration is invalid or the model cannot be loaded.
func New(cfg Config, logger golog.Logger) (Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid detector configuration")
	}
	switch cfg.Backend {
	case BackendOpenCV:
		return NewNetDetector(cfg, logger)
	default:
		return NewSessionDetector(cfg, logger)
	}
}
