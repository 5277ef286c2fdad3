// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/fang"

	"github.com/trainrun/trainrun/internal/issue"
	"github.com/trainrun/trainrun/internal/testutil"
	"github.com/trainrun/trainrun/internal/trainer"
	"github.com/trainrun/trainrun/pkg/types"
)

const baseTOML = `[data]
name = "replogle"

[data.kwargs]
embed_key = "X_pca"

[training]
batch_size = 16
lr = 0.0003
max_steps = 40000
`

// execute runs the command tree with args and returns what the app wrote to
// stdout.
func execute(t *testing.T, deps Dependencies, args ...string) (string, error) {
	t.Helper()

	var stdout bytes.Buffer
	deps.Stdout = &stdout
	deps.Stderr = io.Discard
	root := NewRootCommand(NewApp(deps))
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-03-01T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2026-03-01T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestRootCommand_RunsTrainerWithFlags(t *testing.T) {
	t.Parallel()

	path := testutil.MustWriteFile(t, t.TempDir(), "fewshot.toml", baseTOML)
	tr := &recordingTrainer{}
	_, err := execute(t, Dependencies{Trainer: tr},
		"--config", path,
		"--set", "data.splits=[train, val, test]",
		"--set", "training.max_steps=5",
	)
	if err != nil {
		t.Fatalf("execute() returned error: %v", err)
	}
	if len(tr.calls) != 1 {
		t.Fatalf("Train called %d times, want 1", len(tr.calls))
	}

	cfg := tr.calls[0]
	splits, _ := cfg.Get("data.splits")
	if !reflect.DeepEqual(splits, []any{"train", "val", "test"}) {
		t.Errorf("data.splits = %#v, a --set value must not be split on commas", splits)
	}
	if v, _ := cfg.Get("training.max_steps"); v != int64(5) {
		t.Errorf("training.max_steps = %#v, want 5", v)
	}
	if v, _ := cfg.Get("training.batch_size"); v != int64(64) {
		t.Errorf("training.batch_size = %#v, want default override 64", v)
	}
}

func TestRunCommand_DryRun(t *testing.T) {
	t.Parallel()

	path := testutil.MustWriteFile(t, t.TempDir(), "fewshot.toml", baseTOML)
	out, err := execute(t, Dependencies{}, "run", "--config", path, "--trainer", trainer.NameDryRun, "--config-format", "yaml")
	if err != nil {
		t.Fatalf("execute() returned error: %v", err)
	}
	if !strings.Contains(out, "batch_size: 64") || !strings.Contains(out, "embed_key: X_hvg") {
		t.Errorf("dry run output should hold the merged YAML configuration, got:\n%s", out)
	}
}

func TestRootCommand_SettingsFromEnvironment(t *testing.T) {
	// Not parallel: sets process environment.
	path := testutil.MustWriteFile(t, t.TempDir(), "fewshot.toml", baseTOML)
	t.Setenv("TRAINRUN_CONFIG", path)
	t.Setenv("TRAINRUN_NO_DEFAULT_OVERRIDES", "true")

	tr := &recordingTrainer{}
	if _, err := execute(t, Dependencies{Trainer: tr}); err != nil {
		t.Fatalf("execute() returned error: %v", err)
	}
	if v, _ := tr.calls[0].Get("training.batch_size"); v != int64(16) {
		t.Errorf("training.batch_size = %#v, want base value 16 without defaults", v)
	}
}

func TestConfigShow(t *testing.T) {
	t.Parallel()

	path := testutil.MustWriteFile(t, t.TempDir(), "fewshot.toml", baseTOML)
	out, err := execute(t, Dependencies{}, "config", "show", "--config", path, "--format", "json", "--set", "model.name=state_sm")
	if err != nil {
		t.Fatalf("execute() returned error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("config show output is not JSON: %v\n%s", err, out)
	}
	training := got["training"].(map[string]any)
	if training["batch_size"] != float64(64) || training["max_steps"] != float64(40000) {
		t.Errorf("training = %#v", training)
	}
	if got["model"].(map[string]any)["name"] != "state_sm" {
		t.Errorf("model = %#v", got["model"])
	}
}

func TestConfigShow_TOMLWithNulls(t *testing.T) {
	t.Parallel()

	path := testutil.MustWriteFile(t, t.TempDir(), "fewshot.toml", baseTOML)
	out, err := execute(t, Dependencies{}, "config", "show", "--config", path,
		"--set", "ckpt=null", "--set", "training.resume=~")
	if err != nil {
		t.Fatalf("execute() returned error: %v", err)
	}
	if strings.Contains(out, "ckpt") || strings.Contains(out, "resume") {
		t.Errorf("null keys should be left out of TOML output:\n%s", out)
	}
	if !strings.Contains(out, "batch_size = 64") {
		t.Errorf("config show output is missing training.batch_size:\n%s", out)
	}

	_, err = execute(t, Dependencies{}, "config", "show", "--config", path, "--set", "data.splits=[train, null]")
	if err == nil || !strings.Contains(err.Error(), "data.splits[1]") {
		t.Errorf("execute() = %v, want an error naming data.splits[1]", err)
	}
}

func TestConfigGet(t *testing.T) {
	t.Parallel()

	path := testutil.MustWriteFile(t, t.TempDir(), "fewshot.toml", baseTOML)
	tests := []struct {
		key  string
		want string
	}{
		{key: "training.batch_size", want: "64\n"},
		{key: "training.lr", want: "0.0001\n"},
		{key: "data.name", want: "replogle\n"},
		{key: "data.kwargs", want: "embed_key: X_hvg\n"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			out, err := execute(t, Dependencies{}, "config", "get", tt.key, "--config", path)
			if err != nil {
				t.Fatalf("execute() returned error: %v", err)
			}
			if out != tt.want {
				t.Errorf("config get %s = %q, want %q", tt.key, out, tt.want)
			}
		})
	}
}

func TestConfigGet_MissingKey(t *testing.T) {
	t.Parallel()

	path := testutil.MustWriteFile(t, t.TempDir(), "fewshot.toml", baseTOML)
	_, err := execute(t, Dependencies{}, "config", "get", "training.missing", "--config", path)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("execute() = %v, want *ExitError", err)
	}
	if types.ExitCodeOf(err) != types.ExitFailure {
		t.Errorf("ExitCodeOf() = %d, want %d", types.ExitCodeOf(err), types.ExitFailure)
	}
}

func TestEnvCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, Dependencies{}, "env", "--schema", "schema.cue")
	if err != nil {
		t.Fatalf("execute() returned error: %v", err)
	}
	for _, want := range []string{"TRAINRUN_TRAIN_CMD", trainer.DefaultCommand, "TRAINRUN_SCHEMA", "schema.cue", "num_cpu"} {
		if !strings.Contains(out, want) {
			t.Errorf("env output should contain %q, got:\n%s", want, out)
		}
	}
}

func TestHandleError(t *testing.T) {
	t.Parallel()

	actionable := issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource("examples/fewshot.toml").
		WithSuggestion("Pass --config").
		WithIssue(issue.ConfigNotFoundId).
		Wrap(errors.New("no such file")).
		BuildError()

	tests := []struct {
		name    string
		err     error
		want    []string
		wantNot []string
	}{
		{
			name:    "actionable",
			err:     fmt.Errorf("run: %w", actionable),
			want:    []string{"failed to load configuration: examples/fewshot.toml: no such file", "Pass --config"},
			wantNot: []string{"Error chain:"},
		},
		{
			name: "command not found",
			err:  &exec.Error{Name: "python", Err: exec.ErrNotFound},
			want: []string{"python", "executable file not found"},
		},
		{
			name:    "silent exit",
			err:     &ExitError{Code: 3},
			wantNot: []string{"Error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			app := NewApp(Dependencies{Stdout: io.Discard, Stderr: io.Discard})
			app.handleError(&buf, fang.Styles{}, tt.err)
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output should contain %q, got:\n%s", w, out)
				}
			}
			for _, w := range tt.wantNot {
				if strings.Contains(out, w) {
					t.Errorf("output should not contain %q, got:\n%s", w, out)
				}
			}
		})
	}
}

func TestExitCodeOfTrainerFailure(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	err := exec.Command("sh", "-c", "exit 7").Run()
	if got := types.ExitCodeOf(err); got != 7 {
		t.Errorf("ExitCodeOf(exit 7) = %d, want 7", got)
	}
}
