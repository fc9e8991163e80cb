package inference

import (
	"context"
	"image"
	"os"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/kato-seigou/Detection5Invasive/images"
)

// NetDetector runs a YOLOv8 ONNX model through gocv's DNN module.
type NetDetector struct {
	cfg     Config
	logger  golog.Logger
	classes []string

	mu  sync.Mutex
	net gocv.Net
}

// NewNetDetector loads the model with gocv.ReadNetFromONNX on the CPU target.
//
// Class names come from config, the names file or the defaults; the OpenCV
// loader does not expose model metadata.
func NewNetDetector(cfg Config, logger golog.Logger) (*NetDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model file not found: %s", cfg.ModelPath)
	}
	names, err := ResolveClasses(cfg, nil)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, errors.Errorf("failed to load ONNX model: %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	logger.Infow("detector loaded",
		"backend", BackendOpenCV,
		"model", cfg.ModelPath,
		"input_size", cfg.InputSize,
		"classes", names,
	)
	return &NetDetector{cfg: cfg, logger: logger, classes: names, net: net}, nil
}

// Classes returns the class names in model index order.
func (d *NetDetector) Classes() []string {
	return d.classes
}

// Detect runs the model over one tile.
func (d *NetDetector) Detect(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return nil, errors.Errorf("failed to read %s", path)
	}
	defer img.Close()

	size := d.cfg.InputSize
	boxed, lb, err := images.LetterboxMat(img, size)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to letterbox %s", path)
	}
	defer boxed.Close()

	blob := gocv.BlobFromImage(boxed, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	shape := out.Size()
	if len(shape) != 3 || shape[1] <= 4 {
		return nil, errors.Errorf("unexpected output shape %v for %s", shape, path)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read output for %s", path)
	}

	classes := FitClasses(d.classes, shape[1]-4)
	boxes, err := Decode(data, DecodeOptions{
		NumClasses: shape[1] - 4,
		Anchors:    shape[2],
		Confidence: d.cfg.Confidence,
		IoU:        d.cfg.IoU,
		Letterbox:  lb,
		Classes:    classes,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode output for %s", path)
	}
	d.logger.Debugw("tile detected", "path", path, "boxes", len(boxes))
	return &Result{Path: path, Classes: classes, Boxes: boxes}, nil
}

// Close releases the network.
func (d *NetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
