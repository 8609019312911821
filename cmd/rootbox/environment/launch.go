// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/rootbox-sh/rootbox/cmd/rootbox/cli"
	"github.com/rootbox-sh/rootbox/lib/catalog"
	"github.com/rootbox-sh/rootbox/sandbox"
)

type launchParams struct {
	cli.CommonParams
	Profile string `flag:"profile" desc:"launch profile to use (default: from config)"`
	Shell   string `flag:"shell" desc:"override the environment's login shell for this launch"`
	DryRun  bool   `flag:"dry-run" desc:"print the proot invocation instead of running it"`
}

// LaunchCommand returns the "launch" command.
func LaunchCommand() *cli.Command {
	var params launchParams
	return &cli.Command{
		Name:    "launch",
		Summary: "Launch a shell or command in an environment",
		Usage:   "rootbox launch NAME [flags] [-- COMMAND...]",
		Description: "launch starts the environment's login shell, or the given\n" +
			"command under it, inside the environment through proot. The\n" +
			"guest's exit status becomes rootbox's exit status.",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("launch", &params)
		},
		Examples: []cli.Example{
			{Description: "Login shell", Command: "rootbox launch dev"},
			{Description: "One command", Command: "rootbox launch dev -- apk add git"},
			{Description: "Inspect the invocation", Command: "rootbox launch dev --dry-run"},
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: rootbox launch NAME [flags] [-- COMMAND...]")
			}
			return runLaunch(args[0], args[1:], params)
		},
	}
}

func runLaunch(name string, command []string, params launchParams) error {
	app, err := cli.OpenApp(params.CommonParams)
	if err != nil {
		return err
	}
	defer app.Close()
	ctx := context.Background()

	env, err := app.Catalog.Get(ctx, name)
	if err != nil {
		return err
	}
	if params.Shell != "" {
		env.Shell = params.Shell
	}

	planner, err := app.Planner(params.Profile)
	if err != nil {
		return err
	}
	spec, err := planner.Plan(env, command)
	if err != nil {
		// A damaged root is recorded so list shows it; the record (and
		// the preserved home data) stays for setup --resetup.
		if errors.Is(err, catalog.ErrCorrupt) && env.Status == catalog.StatusActive {
			if markErr := app.Catalog.SetStatus(ctx, name, catalog.StatusCorrupt); markErr != nil {
				app.Logger.Warn("marking environment corrupt failed", "name", name, "error", markErr)
			}
			return fmt.Errorf("%w (recover with 'rootbox setup %s --resetup')", err, name)
		}
		return err
	}

	box := app.Sandbox()
	if params.DryRun {
		fmt.Println(strings.Join(box.Argv(spec), " "))
		return nil
	}

	if err := app.Catalog.TouchLaunch(ctx, name); err != nil {
		return err
	}
	err = box.Run(ctx, spec)
	var exitErr *sandbox.ExitError
	if errors.As(err, &exitErr) {
		return &cli.ExitError{Code: exitErr.Code}
	}
	return err
}
