package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kato-seigou/Detection5Invasive/pipeline"
)

func runCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [input]",
		Short: "Run the whole survey over a folder of photographs",
		Long: "Split every .jpg photograph into tiles, sample tiles showing flower colours, " +
			"count detected species per photograph and merge the counts with capture time and GPS position.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.inputArg(args); err != nil {
				return err
			}
			opts, err := pipeline.OptionsFromConfig(a.cfg)
			if err != nil {
				return err
			}
			result, err := pipeline.Run(cmd.Context(), opts, a.logger)
			if err != nil {
				return err
			}
			return a.write(result)
		},
	}
	splitFlags(cmd)
	selectFlags(cmd)
	detectorFlags(cmd)
	return cmd
}
