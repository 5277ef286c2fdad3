// SPDX-License-Identifier: MPL-2.0

package trainer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/exp/slices"
	"mvdan.cc/sh/v3/shell"

	"github.com/trainrun/trainrun/internal/config"
)

const (
	// DefaultCommand runs the training entry point of the Python package.
	DefaultCommand = "python -m state.tx.train"

	// ConfigPlaceholder in an argument is replaced by the configuration file
	// path. Without a placeholder, "--config <path>" is appended.
	ConfigPlaceholder = "{config}"

	// EnvConfig holds the configuration file path in the training process.
	EnvConfig = "TRAINRUN_CONFIG"
	// EnvRunID holds the run identifier in the training process.
	EnvRunID = "TRAINRUN_RUN_ID"
)

// ExecTrainer hands the configuration to an external command through a
// temporary file.
type ExecTrainer struct {
	argv    []string
	format  config.Format
	tempDir string
	env     []string
	stdout  io.Writer
	stderr  io.Writer
	stdin   io.Reader
}

// NewExecTrainer splits opts.Command (DefaultCommand when empty) with shell
// quoting rules. Environment variables in the command line are expanded.
func NewExecTrainer(opts Options) (*ExecTrainer, error) {
	opts = opts.withDefaults()

	line := opts.Command
	if strings.TrimSpace(line) == "" {
		line = DefaultCommand
	}
	argv, err := shell.Fields(line, nil)
	if err != nil {
		return nil, fmt.Errorf("parse train command %q: %w", line, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("train command %q is empty", line)
	}

	return &ExecTrainer{
		argv:    argv,
		format:  opts.Format,
		tempDir: opts.TempDir,
		env:     opts.Env,
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
		stdin:   opts.Stdin,
	}, nil
}

// Command returns the split command line without the configuration argument.
func (t *ExecTrainer) Command() []string {
	return append([]string(nil), t.argv...)
}

// Train writes cfg to a temporary file, runs the command and waits for it.
// A non-zero exit is returned as the *exec.ExitError from os/exec. The file
// is removed once the command has exited.
func (t *ExecTrainer) Train(ctx context.Context, cfg *config.Tree) error {
	logger := log.FromContext(ctx)
	runID := uuid.NewString()

	path, err := t.writeConfig(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn("failed to remove config file", "path", path, "err", rmErr)
		}
	}()

	args := substituteConfig(t.argv[1:], path)
	cmd := exec.CommandContext(ctx, t.argv[0], args...)
	extra := append(slices.Clone(t.env), EnvConfig+"="+path, EnvRunID+"="+runID)
	cmd.Env = childEnv(os.Environ(), extra)
	cmd.Stdout = t.stdout
	cmd.Stderr = t.stderr
	cmd.Stdin = t.stdin

	logger.Info("starting training", "cmd", cmd.Args, "run_id", runID)
	logger.Debug("configuration written", "path", path, "format", t.format)

	if err := cmd.Run(); err != nil {
		logger.Debug("training failed", "run_id", runID, "err", err)
		return err
	}
	logger.Info("training finished", "run_id", runID)
	return nil
}

func (t *ExecTrainer) writeConfig(cfg *config.Tree) (string, error) {
	data, err := config.Encode(cfg, t.format)
	if err != nil {
		return "", fmt.Errorf("encode config as %s: %w", t.format, err)
	}

	f, err := os.CreateTemp(t.tempDir, "trainrun-*."+string(t.format))
	if err != nil {
		return "", fmt.Errorf("create config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write config file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write config file: %w", err)
	}
	return f.Name(), nil
}

// substituteConfig replaces ConfigPlaceholder in args with path, or appends
// "--config path" when no argument contains it.
func substituteConfig(args []string, path string) []string {
	out := make([]string, 0, len(args)+2)
	found := false
	for _, a := range args {
		if strings.Contains(a, ConfigPlaceholder) {
			a = strings.ReplaceAll(a, ConfigPlaceholder, path)
			found = true
		}
		out = append(out, a)
	}
	if !found {
		out = append(out, "--config", path)
	}
	return out
}

// childEnv returns environ with the entries of extra appended. Variables set
// in extra replace inherited ones of the same name.
func childEnv(environ, extra []string) []string {
	override := make(map[string]bool, len(extra))
	for _, e := range extra {
		name, _, _ := strings.Cut(e, "=")
		override[name] = true
	}

	result := make([]string, 0, len(environ)+len(extra))
	for _, e := range environ {
		name, _, ok := strings.Cut(e, "=")
		if ok && override[name] {
			continue
		}
		result = append(result, e)
	}
	return append(result, extra...)
}
