// Package cmd - The survey command line.
package cmd

import (
	"io"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kato-seigou/Detection5Invasive/config"
	"github.com/kato-seigou/Detection5Invasive/inference"
	"github.com/kato-seigou/Detection5Invasive/logging"
	"github.com/kato-seigou/Detection5Invasive/table"
)

// Version is stamped at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"debug":            "debug",
	"process":          "process",
	"output":           "output",
	"format":           "format",
	"number":           "number",
	"seed":             "seed",
	"conf":             "detector.confidence",
	"iou":              "detector.iou",
	"tile-size":        "tile_size",
	"jpeg-quality":     "jpeg_quality",
	"min-color-pixels": "min_color_pixels",
	"model":            "detector.model",
	"backend":          "detector.backend",
	"input-size":       "detector.input_size",
	"classes":          "detector.classes",
	"names-file":       "detector.names_file",
	"provider":         "detector.provider",
	"library-path":     "detector.library_path",
	"threads":          "detector.threads",
}

// app carries state shared by every sub-command.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	logger  golog.Logger
	stdout  io.Writer
}

// RootCommand creates the survey command and its sub-commands.
func RootCommand() *cobra.Command {
	return newRootCommand(os.Stdout)
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	a := &app{v: config.New(), stdout: stdout}
	d := config.Default()

	rootCmd := &cobra.Command{
		Use:          "survey",
		Short:        "Count invasive flowering plants in survey photographs",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "YAML configuration file")
	flags.BoolP("debug", "d", d.Debug, "Enable debug output")
	flags.StringP("process", "p", d.Process, "Working folder; tiles are written to <process>/splited")
	flags.StringP("output", "o", d.Output, "Write results to this file instead of stdout")
	flags.StringP("format", "f", d.Format, "Output format: table, csv, markdown")

	rootCmd.AddCommand(
		runCommand(a),
		splitCommand(a),
		selectCommand(a),
		metadataCommand(a),
		countCommand(a),
		versionCommand(a),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return a.load(cmd)
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return inference.ShutdownRuntime()
	}

	return rootCmd
}

// load binds the flags of the running command and decodes the configuration,
// so that explicit flags win over the file and the environment.
func (a *app) load(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return errors.Wrapf(err, "error binding flag %s", name)
			}
		}
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New("survey", cfg.Debug)
	return nil
}

// write renders t to the configured output.
func (a *app) write(t *table.Table) error {
	format, err := table.ParseFormat(a.cfg.Format)
	if err != nil {
		return err
	}
	if a.cfg.Output == "" {
		return table.Render(a.stdout, t, format)
	}

	f, err := os.Create(a.cfg.Output)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", a.cfg.Output)
	}
	if err := table.Render(f, t, format); err != nil {
		f.Close()
		return err
	}
	a.logger.Infow("results written", "path", a.cfg.Output, "rows", t.Len())
	return f.Close()
}

// inputArg takes the input folder from the first argument or the configuration.
func (a *app) inputArg(args []string) (string, error) {
	if len(args) > 0 {
		a.cfg.Input = args[0]
	}
	if a.cfg.Input == "" {
		return "", errors.New("an input folder is required (argument or input setting)")
	}
	return a.cfg.Input, nil
}

func detectorFlags(cmd *cobra.Command) {
	d := config.Default().Detector
	cmd.Flags().StringP("model", "m", d.ModelPath, "Path to the YOLOv8 ONNX model")
	cmd.Flags().String("backend", string(d.Backend), "Inference backend: onnxruntime, opencv")
	cmd.Flags().Float64P("conf", "c", float64(d.Confidence), "Detection confidence threshold in [0,1]")
	cmd.Flags().Float64("iou", float64(d.IoU), "NMS IoU threshold in [0,1]")
	cmd.Flags().Int("input-size", d.InputSize, "Model input size for dynamic-shape models")
	cmd.Flags().StringSlice("classes", d.Classes, "Class names in model index order")
	cmd.Flags().String("names-file", d.NamesFile, "Dataset YAML listing the class names")
	cmd.Flags().String("provider", string(d.Provider), "ONNX Runtime execution provider: cpu, coreml, cuda, openvino")
	cmd.Flags().String("library-path", d.LibraryPath, "ONNX Runtime shared library path")
	cmd.Flags().Int("threads", d.Threads, "Intra-op threads, 0 for the runtime default")
}

func selectFlags(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().IntP("number", "n", d.Number, "Tiles sampled per photograph")
	cmd.Flags().Int64P("seed", "s", d.Seed, "Sampling seed")
	cmd.Flags().Int("min-color-pixels", d.MinColorPixels, "Flower-coloured pixels a tile needs to be kept (at least 1)")
}

func splitFlags(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().Int("tile-size", d.TileSize, "Target tile edge in pixels")
	cmd.Flags().Int("jpeg-quality", d.JPEGQuality, "JPEG quality of written tiles")
}
