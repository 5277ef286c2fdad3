// SPDX-License-Identifier: MPL-2.0

// Package trainer defines the training routine that receives the merged
// configuration, and the implementations the CLI can select by name:
//
//   - exec: writes the configuration to a temporary file and runs an external
//     command (by default "python -m state.tx.train") with it.
//   - dry-run: prints the configuration and returns without training.
//
// Errors returned by a Trainer are passed through to the caller unchanged.
package trainer
