// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/trainrun/trainrun/pkg/cueutil"
)

const (
	// FormatTOML is the TOML file format (.toml).
	FormatTOML Format = "toml"
	// FormatYAML is the YAML file format (.yaml, .yml).
	FormatYAML Format = "yaml"
	// FormatJSON is the JSON file format (.json).
	FormatJSON Format = "json"
	// FormatCUE is the CUE file format (.cue).
	FormatCUE Format = "cue"
	// FormatHCL is the HCL file format (.hcl).
	FormatHCL Format = "hcl"

	// DefaultMaxFileSize bounds the size of configuration files (5MB).
	DefaultMaxFileSize = cueutil.DefaultMaxFileSize
)

// Format identifies a configuration file syntax.
type Format string

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".cue":
		return FormatCUE, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("%w: %q (want .toml, .yaml, .yml, .json, .cue or .hcl)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ParseFormat validates a format name such as "toml" or "yml".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "cue":
		return FormatCUE, nil
	case "hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

type (
	// FileSource loads configuration trees from files and merges overrides
	// onto them. It is the default configuration collaborator of the runner.
	FileSource struct {
		maxFileSize int64
	}

	// SourceOption configures a FileSource.
	SourceOption func(*FileSource)
)

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) SourceOption {
	return func(s *FileSource) {
		s.maxFileSize = n
	}
}

// NewFileSource creates a FileSource.
func NewFileSource(opts ...SourceOption) *FileSource {
	s := &FileSource{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the file at path into a Tree. Every failure, including a missing
// file, is a *ConfigLoadError; Load never falls back to an empty tree.
func (s *FileSource) Load(ctx context.Context, path string) (*Tree, error) {
	select {
	case <-ctx.Done():
		return nil, loadError(path, fmt.Errorf("canceled: %w", ctx.Err()))
	default:
	}

	if strings.TrimSpace(path) == "" {
		return nil, loadError(path, errors.New("no config file path given"))
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, loadError(path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, loadError(path, err)
	}
	if info.IsDir() {
		return nil, loadError(path, errors.New("is a directory"))
	}
	if info.Size() > s.maxFileSize {
		return nil, loadError(path, fmt.Errorf("file size %d bytes exceeds maximum %d bytes", info.Size(), s.maxFileSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, loadError(path, err)
	}

	t, err := s.LoadBytes(data, format, path)
	if err != nil {
		return nil, err
	}
	t.source = path
	return t, nil
}

// LoadBytes decodes data in the given format. name is used in error messages.
func (s *FileSource) LoadBytes(data []byte, format Format, name string) (*Tree, error) {
	t, err := s.decode(data, format, name)
	if err != nil {
		return nil, loadError(name, err)
	}
	return t, nil
}

// Merge applies overrides onto base. See Merge.
func (s *FileSource) Merge(base *Tree, overrides Overrides) (*Tree, error) {
	return Merge(base, overrides)
}

func (s *FileSource) decode(data []byte, format Format, name string) (*Tree, error) {
	if err := cueutil.CheckFileSize(data, s.maxFileSize, name); err != nil {
		return nil, err
	}

	var (
		m   map[string]any
		err error
	)
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &m)
	case FormatYAML:
		m, err = decodeYAML(data)
	case FormatJSON:
		m, err = decodeJSON(data)
	case FormatCUE:
		m, err = cueutil.Decode(data, cueutil.WithFilename(name), cueutil.WithMaxFileSize(s.maxFileSize))
	case FormatHCL:
		m, err = decodeHCL(data, name)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return NewTree(m)
}

func decodeYAML(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeJSON(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level object")
	}
	return m, nil
}
