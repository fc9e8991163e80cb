// Package config loads survey settings from defaults, an optional YAML file,
// SURVEY_ environment variables and command-line flags.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/kato-seigou/Detection5Invasive/images"
	"github.com/kato-seigou/Detection5Invasive/inference"
	"github.com/kato-seigou/Detection5Invasive/table"
)

// EnvPrefix prefixes every environment variable, e.g. SURVEY_DETECTOR_MODEL.
const EnvPrefix = "SURVEY"

// Config holds the settings of a survey run.
type Config struct {
	// Input is the folder of original photographs.
	Input string `mapstructure:"input" yaml:"input"`
	// Process is the working folder; tiles are written to its splited subfolder.
	Process string `mapstructure:"process" yaml:"process"`
	// Output is the result file; empty writes to stdout.
	Output string `mapstructure:"output" yaml:"output"`
	// Format is the result rendering: table, csv or markdown.
	Format string `mapstructure:"format" yaml:"format"`
	// Number is the count of tiles sampled per group.
	Number int `mapstructure:"number" yaml:"number"`
	// Seed makes the sampling reproducible.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
	// TileSize is the target tile edge in pixels.
	TileSize int `mapstructure:"tile_size" yaml:"tile_size"`
	// JPEGQuality is the quality tiles are written with.
	JPEGQuality int `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
	// MinColorPixels is the flower-coloured pixel count a tile needs to be kept.
	// It must be at least 1.
	MinColorPixels int `mapstructure:"min_color_pixels" yaml:"min_color_pixels"`
	// Detector configures the detection model.
	Detector inference.Config `mapstructure:"detector" yaml:"detector"`
	// Debug enables debug logging.
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Process:        "process",
		Format:         string(table.FormatTable),
		Number:         5,
		Seed:           42,
		TileSize:       images.DefaultTargetSize,
		JPEGQuality:    images.DefaultJPEGQuality,
		MinColorPixels: 1,
		Detector:       inference.DefaultConfig(),
	}
}

// SetDefaults registers Default on v so that every key can also be set from
// the environment.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("input", d.Input)
	v.SetDefault("process", d.Process)
	v.SetDefault("output", d.Output)
	v.SetDefault("format", d.Format)
	v.SetDefault("number", d.Number)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("tile_size", d.TileSize)
	v.SetDefault("jpeg_quality", d.JPEGQuality)
	v.SetDefault("min_color_pixels", d.MinColorPixels)
	v.SetDefault("debug", d.Debug)

	v.SetDefault("detector.model", d.Detector.ModelPath)
	v.SetDefault("detector.backend", string(d.Detector.Backend))
	v.SetDefault("detector.confidence", float64(d.Detector.Confidence))
	v.SetDefault("detector.iou", float64(d.Detector.IoU))
	v.SetDefault("detector.input_size", d.Detector.InputSize)
	v.SetDefault("detector.classes", []string{})
	v.SetDefault("detector.names_file", d.Detector.NamesFile)
	v.SetDefault("detector.provider", string(d.Detector.Provider))
	v.SetDefault("detector.library_path", d.Detector.LibraryPath)
	v.SetDefault("detector.threads", d.Detector.Threads)
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file at path into v and decodes the result.
// Flags bound to v before Load take precedence over the file and environment.
//
// Arguments:
//   - v: A viper instance from New.
//   - path: A YAML file, or empty to use only defaults, environment and flags.
//
// Returns:
//   - Config: The decoded settings.
//   - error: An error if the file cannot be read or a value has the wrong type.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}
	return cfg, nil
}

// Validate checks the settings shared by every command.
func (c Config) Validate() error {
	_, err := table.ParseFormat(c.Format)
	if c.TileSize <= 0 {
		err = multierr.Append(err, errors.Errorf("tile_size must be positive, got %d", c.TileSize))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		err = multierr.Append(err, errors.Errorf("jpeg_quality must be in [1, 100], got %d", c.JPEGQuality))
	}
	if c.MinColorPixels < 1 {
		err = multierr.Append(err, errors.Errorf("min_color_pixels must be at least 1, got %d", c.MinColorPixels))
	}
	return err
}
