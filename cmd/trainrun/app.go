// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/trainrun/trainrun/internal/config"
	"github.com/trainrun/trainrun/internal/sysinfo"
	"github.com/trainrun/trainrun/internal/trainer"
)

const (
	// DefaultConfigPath is the base configuration loaded when none is given.
	DefaultConfigPath = "examples/fewshot.toml"

	// RunnerSection is the optional configuration section read by trainrun
	// itself. It is removed before the configuration reaches the trainer.
	RunnerSection = "trainrun"
)

type (
	// ConfigSource loads a base configuration and merges overrides onto it.
	// config.FileSource is the production implementation.
	ConfigSource interface {
		Load(ctx context.Context, path string) (*config.Tree, error)
		Merge(base *config.Tree, overrides config.Overrides) (*config.Tree, error)
	}

	// TrainerFactory builds the trainer selected by name.
	TrainerFactory func(name string, opts trainer.Options) (trainer.Trainer, error)

	// App wires the CLI to its collaborators. Cobra handlers build a RunRequest
	// from flags and environment and delegate to App.
	App struct {
		Config     ConfigSource
		NewTrainer TrainerFactory
		stdout     io.Writer
		stderr     io.Writer
		verbose    bool
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp. Trainer, when
	// set, is used for every run regardless of the selected name.
	Dependencies struct {
		Config     ConfigSource
		Trainer    trainer.Trainer
		NewTrainer TrainerFactory
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// RunRequest captures the inputs of one run.
	RunRequest struct {
		// ConfigPath is the base configuration file.
		ConfigPath string
		// NoDefaultOverrides skips config.DefaultOverrides.
		NoDefaultOverrides bool
		// OverridesFile is a configuration file whose keys are applied after
		// the defaults. Empty means none.
		OverridesFile string
		// Set holds "key=value" assignments applied last.
		Set []string
		// Resolve enables ${...} interpolation after merging.
		Resolve bool
		// SchemaPath is a CUE file to validate the merged configuration
		// against. Empty disables validation.
		SchemaPath string
		SchemaDef  string
		// Trainer is the trainer name (trainer.NameExec when empty).
		Trainer string
		// TrainCmd is the command line of the exec trainer.
		TrainCmd string
		// Format is the format the configuration is handed to the trainer in.
		Format config.Format
	}

	// runnerSettings is the decoded RunnerSection.
	runnerSettings struct {
		// Env holds extra environment variables for the training process.
		Env map[string]string `mapstructure:"env"`
		// TempDir is where the exec trainer writes the configuration file.
		TempDir string `mapstructure:"temp_dir"`
	}

	overrideLayer struct {
		name      string
		overrides config.Overrides
	}
)

// NewApp creates an App, filling unset dependencies with defaults.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewFileSource()
	}
	if deps.Trainer != nil {
		tr := deps.Trainer
		deps.NewTrainer = func(string, trainer.Options) (trainer.Trainer, error) { return tr, nil }
	}
	if deps.NewTrainer == nil {
		deps.NewTrainer = trainer.New
	}

	return &App{
		Config:     deps.Config,
		NewTrainer: deps.NewTrainer,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}
}

// Run loads and merges the configuration described by req and hands it to
// the selected trainer. Errors from the trainer are returned as they are;
// load and merge failures are wrapped in *issue.ActionableError with the
// original error reachable through errors.As.
func (a *App) Run(ctx context.Context, req RunRequest) error {
	cfg, settings, err := a.prepare(ctx, req)
	if err != nil {
		return err
	}

	name := req.Trainer
	if name == "" {
		name = trainer.DefaultName
	}
	tr, err := a.NewTrainer(name, trainer.Options{
		Command: req.TrainCmd,
		Format:  req.Format,
		TempDir: settings.TempDir,
		Env:     settings.envList(),
		Stdout:  a.stdout,
		Stderr:  a.stderr,
	})
	if err != nil {
		return trainerFailed(name, err)
	}

	logger := log.FromContext(ctx)
	logger.Debug("host", sysinfo.Collect().KeyVals()...)
	logger.Info("delegating to trainer", "trainer", name, "config", req.ConfigPath)
	return tr.Train(ctx, cfg)
}

// Prepare produces the configuration a run would train with: the base file,
// the override layers merged in order, then optional interpolation and
// schema validation. The RunnerSection is not part of the result.
func (a *App) Prepare(ctx context.Context, req RunRequest) (*config.Tree, error) {
	cfg, _, err := a.prepare(ctx, req)
	return cfg, err
}

func (a *App) prepare(ctx context.Context, req RunRequest) (*config.Tree, runnerSettings, error) {
	logger := log.FromContext(ctx)
	var settings runnerSettings

	path := req.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}
	base, err := a.Config.Load(ctx, path)
	if err != nil {
		return nil, settings, loadFailed(path, err)
	}
	logger.Debug("configuration loaded", "path", path, "keys", base.Len())

	layers, err := a.overrideLayers(ctx, req)
	if err != nil {
		return nil, settings, err
	}

	merged := base
	for _, layer := range layers {
		merged, err = a.Config.Merge(merged, layer.overrides)
		if err != nil {
			return nil, settings, mergeFailed(layer.name, err)
		}
		logger.Debug("overrides merged", "source", layer.name, "count", len(layer.overrides))
	}

	if req.Resolve {
		merged, err = config.Resolve(merged)
		if err != nil {
			return nil, settings, mergeFailed("interpolation", err)
		}
	}

	if _, ok := merged.Get(RunnerSection); ok {
		if err := merged.Decode(RunnerSection, &settings); err != nil {
			return nil, settings, runnerSettingsFailed(err)
		}
		merged = merged.Clone()
		merged.Delete(RunnerSection)
		logger.Debug("runner settings read", "env", len(settings.Env), "temp_dir", settings.TempDir)
	}

	if req.SchemaPath != "" {
		if err := config.ValidateSchema(ctx, merged, req.SchemaPath, req.SchemaDef); err != nil {
			return nil, settings, schemaFailed(req.SchemaPath, err)
		}
		logger.Debug("configuration matches schema", "schema", req.SchemaPath)
	}
	return merged, settings, nil
}

// envList returns Env as sorted KEY=VALUE entries.
func (s runnerSettings) envList() []string {
	keys := maps.Keys(s.Env)
	slices.Sort(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+s.Env[k])
	}
	return env
}

// overrideLayers returns the override sources in merge order. The default
// layer is always present, empty when disabled, so every run merges at least
// once.
func (a *App) overrideLayers(ctx context.Context, req RunRequest) ([]overrideLayer, error) {
	defaults := config.Overrides{}
	if !req.NoDefaultOverrides {
		defaults = config.DefaultOverrides()
	}
	layers := []overrideLayer{{name: "defaults", overrides: defaults}}

	if req.OverridesFile != "" {
		t, err := a.Config.Load(ctx, req.OverridesFile)
		if err != nil {
			return nil, loadFailed(req.OverridesFile, err)
		}
		layers = append(layers, overrideLayer{name: req.OverridesFile, overrides: config.OverridesFromTree(t)})
	}

	if len(req.Set) > 0 {
		set, err := config.ParseAssignments(req.Set)
		if err != nil {
			return nil, invalidAssignment(err)
		}
		layers = append(layers, overrideLayer{name: "--set", overrides: set})
	}
	return layers, nil
}
