// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/rootbox-sh/rootbox/cmd/rootbox/cli"
	"github.com/rootbox-sh/rootbox/lib/lifecycle"
)

type removeParams struct {
	cli.CommonParams
	Force bool `flag:"force,f" desc:"skip the confirmation prompt"`
}

// RemoveCommand returns the "remove" command.
func RemoveCommand() *cli.Command {
	var params removeParams
	return &cli.Command{
		Name:    "remove",
		Summary: "Delete an environment and its catalog record",
		Usage:   "rootbox remove NAME [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("remove", &params)
		},
		Run: func(args []string) error {
			name, err := cli.OneName(args, "rootbox remove NAME [flags]")
			if err != nil {
				return err
			}
			return runRemove(name, params)
		},
	}
}

func runRemove(name string, params removeParams) error {
	app, err := cli.OpenApp(params.CommonParams)
	if err != nil {
		return err
	}
	defer app.Close()
	ctx := context.Background()

	opts := lifecycle.RemoveOptions{Force: params.Force}
	if !params.Force {
		env, err := app.Catalog.Get(ctx, name)
		if err != nil {
			return err
		}
		if !cli.Confirm(fmt.Sprintf("Delete environment %s (%s)?", name, env.RootDir)) {
			return fmt.Errorf("removal of %s not confirmed (use --force to skip the prompt)", name)
		}
		opts.Confirmed = true
	}
	return app.Lifecycle().Remove(ctx, name, opts)
}
