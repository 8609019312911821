// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/rootbox-sh/rootbox/cmd/rootbox/cli"
	"github.com/rootbox-sh/rootbox/lib/builder"
)

type setupParams struct {
	cli.CommonParams
	Distribution string `flag:"distro,d" desc:"distribution to install (e.g. alpine, debian)"`
	Variant      string `flag:"type,t" desc:"distribution variant (default: per-distro default)"`
	Rootfs       string `flag:"rootfs" desc:"custom rootfs archive (local path or URL) instead of a distribution"`
	Hostname     string `flag:"hostname" desc:"guest hostname (default: environment name)"`
	Shell        string `flag:"shell" desc:"guest login shell (default: /bin/sh)"`
	Force        bool   `flag:"force" desc:"replace an existing environment of the same name"`
	Resetup      bool   `flag:"resetup" desc:"re-extract the base system, keeping /root and /home"`
}

// SetupCommand returns the "setup" command.
func SetupCommand() *cli.Command {
	var params setupParams
	return &cli.Command{
		Name:    "setup",
		Summary: "Create a new environment",
		Usage:   "rootbox setup NAME [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("setup", &params)
		},
		Examples: []cli.Example{
			{Description: "Default distribution", Command: "rootbox setup dev"},
			{Description: "Specific distribution and variant", Command: "rootbox setup dev --distro ubuntu --type minimal"},
			{Description: "From a local archive", Command: "rootbox setup dev --rootfs ./rootfs.tar.xz"},
			{Description: "Refresh the base system in place", Command: "rootbox setup dev --resetup"},
		},
		Run: func(args []string) error {
			name, err := cli.OneName(args, "rootbox setup NAME [flags]")
			if err != nil {
				return err
			}
			return runSetup(name, params)
		},
	}
}

func runSetup(name string, params setupParams) error {
	app, err := cli.OpenApp(params.CommonParams)
	if err != nil {
		return err
	}
	defer app.Close()

	distribution := params.Distribution
	if distribution == "" && params.Rootfs == "" && !params.Resetup {
		distribution = app.Config.DefaultDistribution
		if distribution == "" {
			distribution = "alpine"
		}
	}

	download := cli.StartDownloadUI(name)
	env, err := app.Builder().Build(context.Background(), builder.Request{
		Name:          name,
		Distribution:  distribution,
		Variant:       params.Variant,
		CustomArchive: params.Rootfs,
		Hostname:      params.Hostname,
		Shell:         params.Shell,
		Force:         params.Force,
		Resetup:       params.Resetup,
		Progress:      download.Progress,
	})
	download.Finish()
	if err != nil {
		return err
	}
	app.Logger.Info("environment is ready to launch",
		"name", env.Name, "hint", "rootbox launch "+env.Name)
	return nil
}
