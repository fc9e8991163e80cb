package inference

import (
	"context"
	"strconv"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"

	"github.com/kato-seigou/Detection5Invasive/images"
)

// SessionDetector runs a YOLOv8 model through an ONNX Runtime advanced session with
// preallocated input and output tensors.
type SessionDetector struct {
	cfg     Config
	logger  golog.Logger
	classes []string
	size    int
	anchors int

	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewSessionDetector creates an ONNX Runtime detector.
//
// Order of operations:
//  1. Environment setup from the configured (or platform default) shared library.
//  2. Shape discovery: input [1,3,S,S] and output [1,4+nc,anchors] read from the model;
//     dynamic dimensions fall back to the configured input size.
//  3. Class names resolved from config, names file, model metadata or defaults.
//  4. Tensor allocation, session options and execution provider, session creation.
//
// Arguments:
//   - cfg: The detector configuration.
//   - logger: The logger.
//
// Returns:
//   - *SessionDetector: The detector; the caller must Close it.
//   - error: An error if the runtime, model or session cannot be set up.
func NewSessionDetector(cfg Config, logger golog.Logger) (*SessionDetector, error) {
	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read model %s", cfg.ModelPath)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, errors.Errorf("expected 1 input and at least 1 output, model has %d and %d",
			len(inputs), len(outputs))
	}

	size := cfg.InputSize
	if dims := inputs[0].Dimensions; len(dims) == 4 && dims[2] > 0 {
		size = int(dims[2])
	}

	numClasses, anchors := 0, NumAnchors(size)
	if dims := outputs[0].Dimensions; len(dims) == 3 {
		if dims[1] > 4 {
			numClasses = int(dims[1]) - 4
		}
		if dims[2] > 0 {
			anchors = int(dims[2])
		}
	}

	names, err := ResolveClasses(cfg, modelNames(cfg.ModelPath, logger))
	if err != nil {
		return nil, err
	}
	if numClasses == 0 {
		numClasses = len(names)
	}
	names = FitClasses(names, numClasses)

	d := &SessionDetector{
		cfg:     cfg,
		logger:  logger,
		classes: names,
		size:    size,
		anchors: anchors,
	}
	if err := d.open(inputs[0].Name, outputs[0].Name); err != nil {
		d.Close()
		return nil, err
	}

	logger.Infow("detector loaded",
		"backend", BackendONNXRuntime,
		"model", cfg.ModelPath,
		"provider", cfg.Provider,
		"input_size", size,
		"classes", names,
	)
	return d, nil
}

func (d *SessionDetector) open(inputName, outputName string) error {
	var err error
	d.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(d.size), int64(d.size)))
	if err != nil {
		return errors.Wrap(err, "error creating input tensor")
	}
	d.output, err = ort.NewEmptyTensor[float32](
		ort.NewShape(1, int64(4+len(d.classes)), int64(d.anchors)),
	)
	if err != nil {
		return errors.Wrap(err, "error creating output tensor")
	}

	options, err := sessionOptions(d.cfg)
	if err != nil {
		return err
	}
	defer options.Destroy()

	d.session, err = ort.NewAdvancedSession(
		d.cfg.ModelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.ArbitraryTensor{d.input},
		[]ort.ArbitraryTensor{d.output},
		options,
	)
	if err != nil {
		return errors.Wrap(err, "error creating ORT session")
	}
	return nil
}

// sessionOptions builds options with the configured threading and execution provider.
func sessionOptions(cfg Config) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}
	if err := options.SetIntraOpNumThreads(cfg.Threads); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting intra-op threads")
	}

	switch cfg.Provider {
	case ProviderCoreML:
		err = options.AppendExecutionProviderCoreML(0)
	case ProviderOpenVINO:
		err = options.AppendExecutionProviderOpenVINO(map[string]string{
			"device_type":    "CPU",
			"num_of_threads": strconv.Itoa(cfg.Threads),
		})
	case ProviderCUDA:
		err = appendCUDA(options)
	}
	if err != nil {
		options.Destroy()
		return nil, errors.Wrapf(err, "error enabling %s execution provider", cfg.Provider)
	}
	return options, nil
}

func appendCUDA(options *ort.SessionOptions) error {
	cuda, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return err
	}
	defer cuda.Destroy()
	if err := cuda.Update(map[string]string{"device_id": "0"}); err != nil {
		return err
	}
	return options.AppendExecutionProviderCUDA(cuda)
}

// modelNames reads the class names embedded by the exporter, if any.
func modelNames(path string, logger golog.Logger) []string {
	meta, err := ort.GetModelMetadata(path)
	if err != nil {
		logger.Debugw("model metadata unavailable", "model", path, "error", err)
		return nil
	}
	defer meta.Destroy()

	value, ok, err := meta.LookupCustomMetadataMap("names")
	if err != nil || !ok {
		return nil
	}
	return ParseNames(value)
}

// Classes returns the class names in model index order.
func (d *SessionDetector) Classes() []string {
	return d.classes
}

// Detect runs the model over one tile.
//
// Arguments:
//   - ctx: Checked before the image is read.
//   - path: The tile image.
//
// Returns:
//   - *Result: The detections in tile pixels.
//   - error: An error if the image cannot be decoded or inference fails.
func (d *SessionDetector) Detect(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	boxed, lb := images.LetterboxImage(img, d.size)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil, errors.New("detector is closed")
	}
	if err := images.ToTensorCHW(boxed, d.input.GetData()); err != nil {
		return nil, err
	}
	if err := d.session.Run(); err != nil {
		return nil, errors.Wrapf(err, "inference failed on %s", path)
	}

	boxes, err := Decode(d.output.GetData(), DecodeOptions{
		NumClasses: len(d.classes),
		Anchors:    d.anchors,
		Confidence: d.cfg.Confidence,
		IoU:        d.cfg.IoU,
		Letterbox:  lb,
		Classes:    d.classes,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode output for %s", path)
	}
	d.logger.Debugw("tile detected", "path", path, "boxes", len(boxes))
	return &Result{Path: path, Classes: d.classes, Boxes: boxes}, nil
}

// Close releases the session and its tensors.
func (d *SessionDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if d.session != nil {
		err = multierr.Append(err, d.session.Destroy())
		d.session = nil
	}
	if d.input != nil {
		err = multierr.Append(err, d.input.Destroy())
		d.input = nil
	}
	if d.output != nil {
		err = multierr.Append(err, d.output.Destroy())
		d.output = nil
	}
	return errors.Wrap(err, "error destroying ORT session")
}
