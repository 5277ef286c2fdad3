// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the trainrun command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trainrun/trainrun/internal/config"
	"github.com/trainrun/trainrun/internal/issue"
	"github.com/trainrun/trainrun/internal/trainer"
	"github.com/trainrun/trainrun/pkg/types"
)

// Setting keys. Each is also read from TRAINRUN_<KEY> with dashes replaced
// by underscores.
const (
	keyConfig             = "config"
	keyOverrides          = "overrides"
	keyNoDefaultOverrides = "no-default-overrides"
	keyResolve            = "resolve"
	keySchema             = "schema"
	keySchemaDef          = "schema-def"
	keyVerbose            = "verbose"
	keyTrainer            = "trainer"
	keyTrainCmd           = "train-cmd"
	keyConfigFormat       = "config-format"

	envPrefix = "TRAINRUN"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	settingKeys = []string{
		keyConfig, keyOverrides, keyNoDefaultOverrides, keyResolve, keySchema,
		keySchemaDef, keyTrainer, keyTrainCmd, keyConfigFormat, keyVerbose,
	}
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the command tree with production dependencies and runs it.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.handleError),
	); err != nil {
		os.Exit(int(types.ExitCodeOf(err)))
	}
}

// NewRootCommand creates the trainrun command tree bound to app. Running the
// root command without a subcommand is the same as `trainrun run`.
func NewRootCommand(app *App) *cobra.Command {
	v := newSettings()

	root := &cobra.Command{
		Use:   "trainrun",
		Short: "Launch a training run from a configuration file",
		Long: TitleStyle.Render("trainrun") + SubtitleStyle.Render(" - launch a training run from a configuration file") + `

trainrun loads a base configuration (TOML, YAML, JSON, CUE or HCL), merges
override layers onto it and hands the result to a trainer. Without flags it
loads ` + DefaultConfigPath + `, applies the built-in overrides and runs the
default training command.

` + SubtitleStyle.Render("Override layers, later wins:") + `
  1. built-in defaults       (disable with --no-default-overrides)
  2. --overrides FILE        (nested sections become dotted keys)
  3. --set key.path=value    (repeatable, values parsed as YAML)

` + SubtitleStyle.Render("Examples:") + `
  trainrun                                  Train with the defaults
  trainrun --set training.lr=3e-4 -v        Override one key, log debug output
  trainrun --trainer dry-run                Print the merged configuration only
  trainrun config show --format yaml        Show the merged configuration
  trainrun env                              Show settings and host details`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd, v)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runCommand(cmd, v)
		},
	}

	pf := root.PersistentFlags()
	pf.StringP(keyConfig, "c", DefaultConfigPath, "base configuration file")
	pf.String(keyOverrides, "", "configuration file with overrides applied after the defaults")
	pf.StringArray("set", nil, "override a key, e.g. --set training.lr=1e-4 (repeatable)")
	pf.Bool(keyNoDefaultOverrides, false, "do not apply the built-in overrides")
	pf.Bool(keyResolve, false, "resolve ${key} and ${env:NAME} references after merging")
	pf.String(keySchema, "", "CUE schema file to validate the merged configuration against")
	pf.String(keySchemaDef, config.DefaultSchemaDefinition, "CUE definition in the schema file")
	pf.BoolP(keyVerbose, "v", false, "enable debug logging and detailed errors")
	addTrainerFlags(root)

	root.AddCommand(newRunCommand(app, v))
	root.AddCommand(newConfigCommand(app, v))
	root.AddCommand(newEnvCommand(app, v))
	return root
}

func newSettings() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyConfig, DefaultConfigPath)
	v.SetDefault(keySchemaDef, config.DefaultSchemaDefinition)
	v.SetDefault(keyTrainer, trainer.DefaultName)
	v.SetDefault(keyTrainCmd, trainer.DefaultCommand)
	v.SetDefault(keyConfigFormat, string(config.FormatTOML))
	return v
}

func addTrainerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP(keyTrainer, "t", trainer.DefaultName, "trainer to delegate to (exec, dry-run)")
	f.String(keyTrainCmd, trainer.DefaultCommand, "command line of the exec trainer")
	f.String(keyConfigFormat, string(config.FormatTOML), "format of the configuration file handed to the trainer")
}

// setup binds the flags of the executing command and installs the logger in
// its context.
func (a *App) setup(cmd *cobra.Command, v *viper.Viper) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	a.verbose = v.GetBool(keyVerbose)

	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: "trainrun"})
	if a.verbose {
		logger.SetLevel(log.DebugLevel)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(log.WithContext(ctx, logger))
	return nil
}

func (a *App) runCommand(cmd *cobra.Command, v *viper.Viper) error {
	req, err := requestFrom(cmd, v)
	if err != nil {
		return err
	}
	return a.Run(cmd.Context(), req)
}

func requestFrom(cmd *cobra.Command, v *viper.Viper) (RunRequest, error) {
	// Read directly: viper splits string arrays on commas.
	set, err := cmd.Flags().GetStringArray("set")
	if err != nil {
		return RunRequest{}, err
	}
	format, err := config.ParseFormat(v.GetString(keyConfigFormat))
	if err != nil {
		return RunRequest{}, err
	}
	return RunRequest{
		ConfigPath:         v.GetString(keyConfig),
		NoDefaultOverrides: v.GetBool(keyNoDefaultOverrides),
		OverridesFile:      v.GetString(keyOverrides),
		Set:                set,
		Resolve:            v.GetBool(keyResolve),
		SchemaPath:         v.GetString(keySchema),
		SchemaDef:          v.GetString(keySchemaDef),
		Trainer:            v.GetString(keyTrainer),
		TrainCmd:           v.GetString(keyTrainCmd),
		Format:             format,
	}, nil
}

// handleError prints err for the user. Actionable errors show their
// suggestions; in verbose mode the error chain and the help page follow.
func (a *App) handleError(w io.Writer, styles fang.Styles, err error) {
	var (
		actionable *issue.ActionableError
		procErr    *exec.ExitError
		exitErr    *ExitError
	)
	switch {
	case errors.As(err, &actionable):
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+actionable.Format(a.verbose))
		a.showIssue(w, actionable.Issue)
	case errors.Is(err, exec.ErrNotFound):
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+err.Error())
		a.showIssue(w, issue.TrainCommandNotFoundId)
	case errors.As(err, &procErr):
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+"training command failed: "+procErr.Error())
		a.showIssue(w, issue.TrainingFailedId)
	case errors.As(err, &exitErr):
		if exitErr.Err != nil {
			fmt.Fprintln(w, ErrorStyle.Render("Error: ")+exitErr.Err.Error())
		}
	default:
		fang.DefaultErrorHandler(w, styles, err)
	}
}

func (a *App) showIssue(w io.Writer, id issue.Id) {
	if !a.verbose || id == 0 {
		return
	}
	page := issue.Get(id)
	if page == nil {
		return
	}
	out, err := page.Render("auto")
	if err != nil {
		return
	}
	fmt.Fprint(w, out)
}
