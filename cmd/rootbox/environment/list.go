// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/rootbox-sh/rootbox/cmd/rootbox/cli"
	"github.com/rootbox-sh/rootbox/lib/catalog"
	"github.com/rootbox-sh/rootbox/sandbox"
)

type listParams struct {
	cli.CommonParams
	JSON bool `flag:"json" desc:"emit machine-readable JSON"`
}

// ListCommand returns the "list" command.
func ListCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "list",
		Summary: "List environments",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("usage: rootbox list [flags]")
			}
			return runList(params)
		},
	}
}

// listEntry is the JSON shape of one environment.
type listEntry struct {
	Name         string `json:"name"`
	Distribution string `json:"distribution"`
	Variant      string `json:"variant,omitempty"`
	Status       string `json:"status"`
	RootDir      string `json:"root_dir"`
	CreatedAt    string `json:"created_at"`
	LastLaunchAt string `json:"last_launch_at,omitempty"`
}

func runList(params listParams) error {
	app, err := cli.OpenApp(params.CommonParams)
	if err != nil {
		return err
	}
	defer app.Close()

	environments, err := app.Catalog.List(context.Background())
	if err != nil {
		return err
	}

	if params.JSON {
		entries := make([]listEntry, 0, len(environments))
		for _, env := range environments {
			entry := listEntry{
				Name:         env.Name,
				Distribution: env.Distribution,
				Variant:      env.Variant,
				Status:       string(effectiveStatus(env)),
				RootDir:      env.RootDir,
				CreatedAt:    env.CreatedAt.UTC().Format(time.RFC3339),
			}
			if !env.LastLaunchAt.IsZero() {
				entry.LastLaunchAt = env.LastLaunchAt.UTC().Format(time.RFC3339)
			}
			entries = append(entries, entry)
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	if len(environments) == 0 {
		fmt.Println("No environments. Create one with 'rootbox setup NAME'.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDISTRIBUTION\tSTATUS\tCREATED\tLAST LAUNCH")
	for _, env := range environments {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			env.Name, distributionLabel(env), effectiveStatus(env),
			humanize.Time(env.CreatedAt), lastLaunch(env))
	}
	return tw.Flush()
}

// effectiveStatus rechecks active records against the filesystem so a
// root directory damaged outside rootbox shows as corrupt in listings.
func effectiveStatus(env catalog.Environment) catalog.Status {
	if env.Status == catalog.StatusActive && sandbox.Validate(env.RootDir) != nil {
		return catalog.StatusCorrupt
	}
	return env.Status
}

func distributionLabel(env catalog.Environment) string {
	if env.Variant != "" {
		return env.Distribution + "/" + env.Variant
	}
	return env.Distribution
}

func lastLaunch(env catalog.Environment) string {
	if env.LastLaunchAt.IsZero() {
		return "never"
	}
	return humanize.Time(env.LastLaunchAt)
}
