// Package inference - Tile detectors backed by ONNX Runtime or the OpenCV DNN module.
package inference

import (
	"github.com/pkg/errors"
)

// Backend selects the runtime that executes the model.
type Backend string

const (
	// BackendONNXRuntime runs the model through the ONNX Runtime shared library.
	BackendONNXRuntime Backend = "onnxruntime"
	// BackendOpenCV runs the model through gocv's DNN module.
	BackendOpenCV Backend = "opencv"
)

// Provider selects the ONNX Runtime execution provider.
type Provider string

const (
	ProviderCPU      Provider = "cpu"
	ProviderCoreML   Provider = "coreml"
	ProviderCUDA     Provider = "cuda"
	ProviderOpenVINO Provider = "openvino"
)

// Config describes how to load and run a detection model.
type Config struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string `mapstructure:"model" yaml:"model"`
	// Backend selects the runtime.
	Backend Backend `mapstructure:"backend" yaml:"backend"`
	// Confidence is the minimum class score kept.
	Confidence float32 `mapstructure:"confidence" yaml:"confidence"`
	// IoU is the overlap above which a lower-scoring box of the same class is suppressed.
	IoU float32 `mapstructure:"iou" yaml:"iou"`
	// InputSize is the square model input side, used when the model has dynamic shapes.
	InputSize int `mapstructure:"input_size" yaml:"input_size"`
	// Classes overrides every other source of class names.
	Classes []string `mapstructure:"classes" yaml:"classes"`
	// NamesFile is a dataset YAML whose names entry lists the classes.
	NamesFile string `mapstructure:"names_file" yaml:"names_file"`
	// Provider is the ONNX Runtime execution provider.
	Provider Provider `mapstructure:"provider" yaml:"provider"`
	// LibraryPath overrides the ONNX Runtime shared library location.
	LibraryPath string `mapstructure:"library_path" yaml:"library_path"`
	// Threads bounds intra-op parallelism; 0 lets the runtime decide.
	Threads int `mapstructure:"threads" yaml:"threads"`
}

// DefaultConfig returns a configuration for a YOLOv8 model on the CPU.
//
// Returns:
//   - Config: The default configuration, without a model path.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendONNXRuntime,
		Confidence: 0.25,
		IoU:        0.7,
		InputSize:  640,
		Provider:   ProviderCPU,
	}
}

// Validate checks the configuration for values no backend can run with.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	switch c.Backend {
	case BackendONNXRuntime, BackendOpenCV:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	switch c.Provider {
	case "", ProviderCPU, ProviderCoreML, ProviderCUDA, ProviderOpenVINO:
	default:
		return errors.Errorf("unknown execution provider %q", c.Provider)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return errors.Errorf("confidence %v outside [0, 1]", c.Confidence)
	}
	if c.IoU < 0 || c.IoU > 1 {
		return errors.Errorf("iou %v outside [0, 1]", c.IoU)
	}
	if c.InputSize <= 0 {
		return errors.Errorf("input size must be positive, got %d", c.InputSize)
	}
	return nil
}
