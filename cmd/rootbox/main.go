// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Command rootbox manages named Linux root-filesystem environments on
// rootless Android hosts and launches shells into them through proot.
package main

import (
	"fmt"
	"os"

	"github.com/rootbox-sh/rootbox/cmd/rootbox/commands"
)

func main() {
	if err := commands.Root().Execute(os.Args[1:]); err != nil {
		// Errors carrying an exit code (a guest shell's status) have
		// already said everything there is to say.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
