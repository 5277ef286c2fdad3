// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCommand(app *App, v *viper.Viper) *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Load, merge and train (the default action)",
		Long: `Load the base configuration, merge the override layers and delegate
to the selected trainer. The exec trainer receives the merged configuration
as a temporary file; its exit code becomes the exit code of trainrun.`,
		Example: `  trainrun run --config examples/fewshot.toml --set training.max_steps=100
  trainrun run --train-cmd "python train.py --cfg {config}"
  TRAINRUN_TRAINER=dry-run trainrun run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runCommand(cmd, v)
		},
	}
	addTrainerFlags(c)
	return c
}
