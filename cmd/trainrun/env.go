// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trainrun/trainrun/internal/sysinfo"
)

func newEnvCommand(app *App, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Show effective settings and host details",
		Long: `Show every trainrun setting with its environment variable and the value
in effect after flags, environment and defaults are applied, followed by
the detected host CPU.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return writeEnv(app.stdout, v, sysinfo.Collect())
		},
	}
}

// envName returns the environment variable read for a setting key.
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

func writeEnv(w io.Writer, v *viper.Viper, host sysinfo.Report) error {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Settings") + "\n")
	for _, key := range settingKeys {
		val := cast.ToString(v.Get(key))
		if val == "" {
			val = SubtitleStyle.Render("(unset)")
		}
		b.WriteString(keyColumnStyle.Render(envName(key)) + val + "\n")
	}

	b.WriteString("\n" + TitleStyle.Render("Host") + "\n")
	kv := host.KeyVals()
	for i := 0; i+1 < len(kv); i += 2 {
		val := fmt.Sprint(kv[i+1])
		switch val {
		case "true":
			val = SuccessStyle.Render(val)
		case "false":
			val = SubtitleStyle.Render(val)
		}
		b.WriteString(keyColumnStyle.Render(fmt.Sprint(kv[i])) + val + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
