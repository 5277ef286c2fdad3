// SPDX-License-Identifier: MPL-2.0

package config

import (
	"testing"
	"time"
)

type trainingSection struct {
	BatchSize int           `mapstructure:"batch_size"`
	LR        float64       `mapstructure:"lr"`
	MaxSteps  int           `mapstructure:"max_steps"`
	AMP       bool          `mapstructure:"amp"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Devices   []string      `mapstructure:"devices"`
}

func TestTree_Decode(t *testing.T) {
	t.Parallel()

	tree := mustTree(t, map[string]any{
		"training": map[string]any{
			"batch_size": "64",
			"lr":         1e-4,
			"max_steps":  40000,
			"amp":        true,
			"timeout":    "90m",
			"devices":    "cuda:0,cuda:1",
		},
	})

	var got trainingSection
	if err := tree.Decode("training", &got); err != nil {
		t.Fatalf("Decode() returned error: %v", err)
	}
	want := trainingSection{
		BatchSize: 64,
		LR:        1e-4,
		MaxSteps:  40000,
		AMP:       true,
		Timeout:   90 * time.Minute,
		Devices:   []string{"cuda:0", "cuda:1"},
	}
	if got.BatchSize != want.BatchSize || got.LR != want.LR || got.MaxSteps != want.MaxSteps ||
		got.AMP != want.AMP || got.Timeout != want.Timeout || len(got.Devices) != 2 || got.Devices[1] != "cuda:1" {
		t.Errorf("Decode() = %+v, want %+v", got, want)
	}
}

func TestTree_DecodeWholeTree(t *testing.T) {
	t.Parallel()

	var got struct {
		Model struct {
			Name string
		}
	}
	if err := fewshotBase(t).Decode("", &got); err != nil {
		t.Fatalf("Decode() returned error: %v", err)
	}
	if got.Model.Name != "state_sm" {
		t.Errorf("Model.Name = %q, want state_sm", got.Model.Name)
	}
}

func TestTree_DecodeErrors(t *testing.T) {
	t.Parallel()

	tree := fewshotBase(t)
	var out trainingSection
	if err := tree.Decode("missing", &out); err == nil {
		t.Error("Decode() of a missing key should fail")
	}
	if err := tree.Decode("a..b", &out); err == nil {
		t.Error("Decode() with an invalid key should fail")
	}
	if err := tree.Decode("model.name", &out); err == nil {
		t.Error("Decode() of a string into a struct should fail")
	}
}
