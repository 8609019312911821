// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete rootbox command tree.
package commands

import (
	"github.com/rootbox-sh/rootbox/cmd/rootbox/cli"
	distrocmd "github.com/rootbox-sh/rootbox/cmd/rootbox/distro"
	environmentcmd "github.com/rootbox-sh/rootbox/cmd/rootbox/environment"
)

// Root builds and returns the complete rootbox command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "rootbox",
		Summary: "Manage isolated Linux environments on rootless hosts",
		Description: "rootbox sets up named Linux root-filesystem environments from\n" +
			"distribution images or custom archives, and launches shells into\n" +
			"them through proot. No root privileges are required.",
		Subcommands: []*cli.Command{
			environmentcmd.SetupCommand(),
			environmentcmd.LaunchCommand(),
			environmentcmd.ListCommand(),
			environmentcmd.RemoveCommand(),
			environmentcmd.BackupCommand(),
			environmentcmd.CleanCommand(),
			distrocmd.Command(),
		},
		Examples: []cli.Example{
			{Description: "Create an Alpine environment named dev", Command: "rootbox setup dev --distro alpine"},
			{Description: "Open a login shell in it", Command: "rootbox launch dev"},
			{Description: "Run a single command", Command: "rootbox launch dev -- uname -a"},
		},
	}
}
