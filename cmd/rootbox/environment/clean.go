// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/rootbox-sh/rootbox/cmd/rootbox/cli"
)

// CleanCommand returns the "clean" command.
func CleanCommand() *cli.Command {
	var params struct{ cli.CommonParams }
	return &cli.Command{
		Name:    "clean",
		Summary: "Empty an environment's scratch directories (/tmp, /dev/shm)",
		Usage:   "rootbox clean NAME",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("clean", &params)
		},
		Run: func(args []string) error {
			name, err := cli.OneName(args, "rootbox clean NAME")
			if err != nil {
				return err
			}
			app, err := cli.OpenApp(params.CommonParams)
			if err != nil {
				return err
			}
			defer app.Close()

			freed, err := app.Lifecycle().Clean(context.Background(), name)
			if err != nil {
				return err
			}
			fmt.Printf("Freed %s in %s\n", humanize.IBytes(uint64(freed)), name)
			return nil
		},
	}
}
