// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/trainrun/trainrun/internal/config"
	"github.com/trainrun/trainrun/internal/issue"
	"github.com/trainrun/trainrun/internal/trainer"
)

func loadFailed(path string, err error) error {
	ctx := issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		ctx.WithIssue(issue.ConfigNotFoundId).
			WithSuggestions(
				"Check the path, or pass --config with the configuration to train with",
				"Run trainrun from the directory containing "+DefaultConfigPath,
			)
	case errors.Is(err, config.ErrUnsupportedFormat):
		ctx.WithIssue(issue.ConfigFormatUnsupportedId).
			WithSuggestion("Use a .toml, .yaml, .yml, .json, .cue or .hcl file")
	default:
		ctx.WithIssue(issue.ConfigParseErrorId).
			WithSuggestion("Fix the syntax error reported above")
	}
	return ctx.Wrap(err).BuildError()
}

func mergeFailed(source string, err error) error {
	ctx := issue.NewErrorContext().
		WithOperation("merge overrides").
		WithResource(source).
		WithIssue(issue.ConfigMergeConflictId)

	var mergeErr *config.ConfigMergeError
	if errors.As(err, &mergeErr) && mergeErr.Path != "" {
		ctx.WithSuggestion("Check the type of " + mergeErr.Path + " in the base configuration")
	}
	return ctx.Wrap(err).BuildError()
}

func invalidAssignment(err error) error {
	return issue.NewErrorContext().
		WithOperation("parse overrides").
		WithResource("--set").
		WithIssue(issue.ConfigMergeConflictId).
		WithSuggestion("Write assignments as key.path=value, for example --set training.lr=1e-4").
		Wrap(&config.ConfigMergeError{Reason: "invalid assignment", Cause: err}).
		BuildError()
}

func runnerSettingsFailed(err error) error {
	ae := issue.WrapWithContext(err, "read runner settings", "["+RunnerSection+"] section")
	ae.Issue = issue.ConfigParseErrorId
	ae.Suggestions = []string{"Set " + RunnerSection + ".env to a table of strings and " + RunnerSection + ".temp_dir to a directory"}
	return ae
}

func schemaFailed(schemaPath string, err error) error {
	return issue.NewErrorContext().
		WithOperation("validate configuration").
		WithResource(schemaPath).
		WithIssue(issue.SchemaValidationFailedId).
		WithSuggestion("Fix the fields listed above or adjust the overrides").
		Wrap(err).
		BuildError()
}

func trainerFailed(name string, err error) error {
	ctx := issue.NewErrorContext().
		WithOperation("create trainer").
		WithResource(name)
	var unknown *trainer.UnknownTrainerError
	if errors.As(err, &unknown) {
		ctx.WithIssue(issue.TrainerUnknownId).
			WithSuggestion("Pass --trainer with one of: " + strings.Join(unknown.Known, ", "))
	}
	return ctx.Wrap(err).BuildError()
}
