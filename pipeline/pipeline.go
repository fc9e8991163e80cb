package pipeline

import (
	"context"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/kato-seigou/Detection5Invasive/config"
	"github.com/kato-seigou/Detection5Invasive/count"
	"github.com/kato-seigou/Detection5Invasive/images"
	"github.com/kato-seigou/Detection5Invasive/inference"
	"github.com/kato-seigou/Detection5Invasive/metadata"
	"github.com/kato-seigou/Detection5Invasive/profiler"
	"github.com/kato-seigou/Detection5Invasive/selection"
	"github.com/kato-seigou/Detection5Invasive/table"
	"github.com/kato-seigou/Detection5Invasive/util"
)

// SplitDirName is the tile folder created inside the process folder.
const SplitDirName = "splited"

// Options configure a run.
type Options struct {
	// Input is the folder of original photographs.
	Input string
	// Process is the working folder.
	Process string
	// Params are the sampling and threshold parameters.
	Params Params
	// TileSize is the target tile edge.
	TileSize int
	// JPEGQuality is the quality tiles are written with.
	JPEGQuality int
	// MinColorPixels is the flower-coloured pixel count a tile needs.
	MinColorPixels int
	// Detector configures the model; its confidence is replaced by Params.Confidence.
	Detector inference.Config
	// Open overrides how the detector is loaded.
	Open count.Opener
}

// OptionsFromConfig builds run options from loaded settings.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	params, err := NewParams(cfg.Number, cfg.Seed, cfg.Detector.Confidence)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Input:          cfg.Input,
		Process:        cfg.Process,
		Params:         params,
		TileSize:       cfg.TileSize,
		JPEGQuality:    cfg.JPEGQuality,
		MinColorPixels: cfg.MinColorPixels,
		Detector:       cfg.Detector,
	}, nil
}

// TileDir returns the folder tiles of a run are written to.
func (o Options) TileDir() string {
	return filepath.Join(o.Process, SplitDirName)
}

func (o Options) opener(logger golog.Logger) count.Opener {
	if o.Open != nil {
		return o.Open
	}
	cfg := o.Detector
	cfg.Confidence = float32(o.Params.Confidence)
	return func() (inference.Detector, error) {
		return inference.New(cfg, logger.Named("detector"))
	}
}

// Run executes a survey: split every photograph of the input folder into
// tiles, select tiles showing flower colours, read photograph metadata,
// count detections per photograph and join counts with metadata.
//
// Stage failures after parameter checks are logged and degrade to an empty
// result; they never fail the run.
//
// Arguments:
//   - ctx: Cancelling stops detection between tiles.
//   - opts: The run options.
//   - logger: The parent logger; every message carries the run id.
//
// Returns:
//   - *table.Table: image_path, DateTimeOriginal, Latitude, Longitude and one
//     column per class, one row per photograph with kept tiles.
//   - error: An error wrapping ErrInvalidArgument, or one if the working
//     folders cannot be created or the input folder cannot be listed.
func Run(ctx context.Context, opts Options, logger golog.Logger) (*table.Table, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.TileSize == 0 {
		opts.TileSize = images.DefaultTargetSize
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = images.DefaultJPEGQuality
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	logger.Infow("survey started", "input", opts.Input, "process", opts.Process,
		"number", opts.Params.Number, "seed", opts.Params.Seed, "conf", opts.Params.Confidence)

	prof := profiler.New()
	defer prof.LogSummary(logger)

	tileDir := opts.TileDir()
	if err := util.EnsureDir(tileDir); err != nil {
		return nil, err
	}

	splitter, err := images.NewSplitter(logger.Named("split"), opts.TileSize, opts.JPEGQuality)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidArgument, err.Error())
	}
	if !util.Exists(opts.Input) {
		return nil, errors.Errorf("input folder not found: %s", opts.Input)
	}
	done := prof.StartOperation("split")
	_, err = splitter.SplitFolder(opts.Input, tileDir)
	done()
	if err != nil {
		logger.Warnw("some images could not be split", "failed", len(multierr.Errors(err)), "error", err)
	}
	logger.Infow("finished splitting images", "folder", opts.Input)

	filter := selection.DefaultColorFilter()
	filter.MinPixels = opts.MinColorPixels
	done = prof.StartOperation("select")
	selected, err := selection.NewSelector(logger.Named("select"), filter).
		Select(tileDir, opts.Params.Number, opts.Params.Seed)
	done()
	if err != nil {
		logger.Errorw("tile selection failed", "error", err)
	}
	logger.Infow("finished selecting tiles", "selected", len(selected))

	done = prof.StartOperation("metadata")
	records, err := metadata.NewExtractor(logger.Named("metadata")).Extract(opts.Input)
	done()
	if err != nil {
		logger.Errorw("metadata extraction failed", "error", err)
	}
	meta := records.Table()
	logger.Infow("finished extracting metadata", "records", meta.Len())

	done = prof.StartOperation("count")
	counts := count.NewCounter(logger.Named("count"), opts.opener(logger)).Count(ctx, selected)
	done()
	logger.Infow("finished detecting tiles", "rows", counts.Len())

	merged, err := table.InnerJoin(meta, counts, count.ColImagePath)
	if err != nil {
		logger.Errorw("merge failed", "error", err)
		return EmptyResult(meta, counts), nil
	}
	if merged.Empty() {
		logger.Infow("merged table is empty")
		return merged, nil
	}
	logger.Infow("survey finished", "rows", merged.Len())
	return merged, nil
}

// EmptyResult returns a table with the merged schema and no rows.
func EmptyResult(meta, counts *table.Table) *table.Table {
	out := table.New(meta.Columns...)
	for _, c := range counts.Columns {
		out.AddColumn(c)
	}
	return out
}
