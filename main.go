// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/trainrun/trainrun/cmd/trainrun"

func main() {
	cmd.Execute()
}
