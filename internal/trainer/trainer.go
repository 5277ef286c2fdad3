// SPDX-License-Identifier: MPL-2.0

package trainer

import (
	"context"

	"github.com/trainrun/trainrun/internal/config"
)

type (
	// Trainer runs training with a merged configuration. The configuration is
	// owned by the trainer for the duration of the call.
	Trainer interface {
		Train(ctx context.Context, cfg *config.Tree) error
	}

	// Func adapts a plain function to the Trainer interface.
	Func func(ctx context.Context, cfg *config.Tree) error
)

// Train calls f(ctx, cfg).
func (f Func) Train(ctx context.Context, cfg *config.Tree) error {
	return f(ctx, cfg)
}
