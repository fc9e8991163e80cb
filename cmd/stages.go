package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kato-seigou/Detection5Invasive/count"
	"github.com/kato-seigou/Detection5Invasive/images"
	"github.com/kato-seigou/Detection5Invasive/inference"
	"github.com/kato-seigou/Detection5Invasive/metadata"
	"github.com/kato-seigou/Detection5Invasive/pipeline"
	"github.com/kato-seigou/Detection5Invasive/selection"
	"github.com/kato-seigou/Detection5Invasive/table"
)

func splitCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split [input]",
		Short: "Split photographs into tiles under <process>/splited",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := a.inputArg(args)
			if err != nil {
				return err
			}
			splitter, err := images.NewSplitter(a.logger.Named("split"), a.cfg.TileSize, a.cfg.JPEGQuality)
			if err != nil {
				return err
			}
			tiles, splitErr := splitter.SplitFolder(input, filepath.Join(a.cfg.Process, pipeline.SplitDirName))
			if len(tiles) == 0 && splitErr != nil {
				return splitErr
			}

			t := table.New("tile", "source", "index", "x", "y", "width", "height")
			for _, tile := range tiles {
				t.Append(t.Columns, map[string]any{
					"tile":   tile.Path,
					"source": tile.Stem,
					"index":  tile.Index,
					"x":      tile.Rect.Min.X,
					"y":      tile.Rect.Min.Y,
					"width":  tile.Rect.Dx(),
					"height": tile.Rect.Dy(),
				})
			}
			return a.write(t)
		},
	}
	splitFlags(cmd)
	return cmd
}

func selectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select [tiles]",
		Short: "Sample tiles showing flower colours from a tile folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := filepath.Join(a.cfg.Process, pipeline.SplitDirName)
			if len(args) > 0 {
				dir = args[0]
			}
			params, err := pipeline.NewParams(a.cfg.Number, a.cfg.Seed, a.cfg.Detector.Confidence)
			if err != nil {
				return err
			}
			filter := selection.DefaultColorFilter()
			filter.MinPixels = a.cfg.MinColorPixels
			paths, err := selection.NewSelector(a.logger.Named("select"), filter).Select(dir, params.Number, params.Seed)
			if err != nil {
				return err
			}

			t := table.New("tile")
			for _, p := range paths {
				t.Append(t.Columns, map[string]any{"tile": p})
			}
			return a.write(t)
		},
	}
	selectFlags(cmd)
	return cmd
}

func metadataCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata [input]",
		Short: "List capture time and GPS position of photographs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := a.inputArg(args)
			if err != nil {
				return err
			}
			records, err := metadata.NewExtractor(a.logger.Named("metadata")).Extract(input)
			if err != nil {
				return err
			}
			return a.write(records.Table())
		},
	}
}

func countCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count tile...",
		Short: "Detect and count species in tiles, summed per photograph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Detector
			open := func() (inference.Detector, error) {
				return inference.New(cfg, a.logger.Named("detector"))
			}
			return a.write(count.NewCounter(a.logger.Named("count"), open).Count(cmd.Context(), args))
		},
	}
	detectorFlags(cmd)
	return cmd
}
