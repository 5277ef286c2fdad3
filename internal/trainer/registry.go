// SPDX-License-Identifier: MPL-2.0

package trainer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/trainrun/trainrun/internal/config"
)

// Trainer names accepted by New.
const (
	NameExec   = "exec"
	NameDryRun = "dry-run"

	// DefaultName is the trainer used when none is selected.
	DefaultName = NameExec
)

// ErrUnknownTrainer is the sentinel error wrapped by UnknownTrainerError.
var ErrUnknownTrainer = errors.New("unknown trainer")

type (
	// Options holds the settings shared by all trainer constructors.
	// Zero values select defaults.
	Options struct {
		// Command is the shell-quoted command line of the exec trainer.
		Command string
		// Format is the file format the configuration is handed over in.
		Format config.Format
		// TempDir is where the exec trainer writes the configuration file.
		TempDir string
		// Env holds extra KEY=VALUE entries for the training process.
		Env []string
		Stdout io.Writer
		Stderr io.Writer
		Stdin  io.Reader
	}

	// Factory builds a trainer from options.
	Factory func(Options) (Trainer, error)

	// Registry maps trainer names to factories.
	Registry struct {
		factories map[string]Factory
	}

	// UnknownTrainerError is returned when a name is not registered.
	UnknownTrainerError struct {
		Name  string
		Known []string
	}
)

// Error implements the error interface.
func (e *UnknownTrainerError) Error() string {
	return fmt.Sprintf("unknown trainer %q (available: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Unwrap returns ErrUnknownTrainer for errors.Is.
func (e *UnknownTrainerError) Unwrap() error { return ErrUnknownTrainer }

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding the built-in trainers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NameExec, func(o Options) (Trainer, error) { return NewExecTrainer(o) })
	r.Register(NameDryRun, func(o Options) (Trainer, error) { return NewDryRun(o), nil })
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Names returns the registered trainer names, sorted.
func (r *Registry) Names() []string {
	names := maps.Keys(r.factories)
	slices.Sort(names)
	return names
}

// New builds the trainer registered under name.
func (r *Registry) New(name string, opts Options) (Trainer, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, &UnknownTrainerError{Name: name, Known: r.Names()}
	}
	return f(opts.withDefaults())
}

// New builds a built-in trainer by name.
func New(name string, opts Options) (Trainer, error) {
	return DefaultRegistry().New(name, opts)
}

func (o Options) withDefaults() Options {
	if o.Format == "" {
		o.Format = config.FormatTOML
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	return o
}
