// SPDX-License-Identifier: MPL-2.0

package trainer

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/trainrun/trainrun/internal/config"
)

// DryRun prints the configuration it receives instead of training.
type DryRun struct {
	out    io.Writer
	format config.Format
}

// NewDryRun creates a DryRun writing to opts.Stdout in opts.Format.
func NewDryRun(opts Options) *DryRun {
	opts = opts.withDefaults()
	return &DryRun{out: opts.Stdout, format: opts.Format}
}

// Train writes cfg and returns nil.
func (d *DryRun) Train(ctx context.Context, cfg *config.Tree) error {
	data, err := config.Encode(cfg, d.format)
	if err != nil {
		return fmt.Errorf("encode config as %s: %w", d.format, err)
	}
	log.FromContext(ctx).Info("dry run, training skipped", "keys", len(cfg.Flatten()))
	_, err = d.out.Write(data)
	return err
}
