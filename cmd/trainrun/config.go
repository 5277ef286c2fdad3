// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/trainrun/trainrun/internal/config"
	"github.com/trainrun/trainrun/pkg/types"
)

func newConfigCommand(app *App, v *viper.Viper) *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Inspect the merged configuration",
		Long: `Inspect the configuration a run would train with, after all override
layers, interpolation and schema validation are applied.`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration",
		Example: `  trainrun config show
  trainrun config show --format json --set training.lr=1e-3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			return app.showConfig(cmd, v, format)
		},
	}
	show.Flags().StringP("format", "f", string(config.FormatTOML), "output format (toml, yaml, json, cue, hcl)")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one value of the merged configuration",
		Long: `Print the value at a dotted key. Scalars are printed as they are,
sections and lists as YAML. Exits with status 1 when the key is not set.`,
		Example: `  trainrun config get training.batch_size
  trainrun config get data.kwargs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.getConfig(cmd, v, args[0])
		},
	}

	c.AddCommand(show, get)
	return c
}

func (a *App) showConfig(cmd *cobra.Command, v *viper.Viper, formatName string) error {
	format, err := config.ParseFormat(formatName)
	if err != nil {
		return err
	}
	cfg, err := a.prepareFromFlags(cmd, v)
	if err != nil {
		return err
	}
	out, err := config.Encode(cfg, format)
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(out)
	return err
}

func (a *App) getConfig(cmd *cobra.Command, v *viper.Viper, key string) error {
	cfg, err := a.prepareFromFlags(cmd, v)
	if err != nil {
		return err
	}
	val, ok := cfg.Get(key)
	if !ok {
		return &ExitError{Code: types.ExitFailure, Err: fmt.Errorf("key %q is not set", key)}
	}

	switch val.(type) {
	case map[string]any, []any:
		out, err := yaml.Marshal(val)
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(out)
		return err
	case nil:
		_, err = fmt.Fprintln(a.stdout, "null")
		return err
	default:
		s, err := cfg.GetString(key)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.stdout, s)
		return err
	}
}

func (a *App) prepareFromFlags(cmd *cobra.Command, v *viper.Viper) (*config.Tree, error) {
	req, err := requestFrom(cmd, v)
	if err != nil {
		return nil, err
	}
	return a.Prepare(cmd.Context(), req)
}
