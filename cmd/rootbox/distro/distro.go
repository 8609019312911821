// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package distro implements the "rootbox distro" command group for
// inspecting the distribution registry and prefetching archives.
package distro

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/rootbox-sh/rootbox/cmd/rootbox/cli"
	"github.com/rootbox-sh/rootbox/lib/distro"
	"github.com/rootbox-sh/rootbox/lib/fetch"
	"github.com/rootbox-sh/rootbox/lib/mdterm"
)

// Command returns the "distro" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "distro",
		Summary: "Inspect the distribution registry",
		Subcommands: []*cli.Command{
			listCommand(),
			infoCommand(),
			urlsCommand(),
			downloadCommand(),
		},
		Examples: []cli.Example{
			{Description: "What can be installed", Command: "rootbox distro list"},
			{Description: "Details on one distribution", Command: "rootbox distro info alpine"},
		},
	}
}

func listCommand() *cli.Command {
	var params struct{ cli.CommonParams }
	return &cli.Command{
		Name:    "list",
		Summary: "List available distributions",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("distro list", &params)
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("usage: rootbox distro list")
			}
			app, err := cli.OpenApp(params.CommonParams)
			if err != nil {
				return err
			}
			defer app.Close()

			hostArch, archErr := distro.HostArch()
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDEFAULT VARIANT\tVARIANTS\tHOST SUPPORT")
			for _, name := range app.Registry.Names() {
				d, err := app.Registry.Describe(name)
				if err != nil {
					return err
				}
				support := "yes"
				if archErr != nil || !d.SupportsArch(hostArch) {
					support = "no"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					d.Name, d.DefaultVariant, strings.Join(d.VariantNames(), ", "), support)
			}
			return tw.Flush()
		},
	}
}

func infoCommand() *cli.Command {
	var params struct{ cli.CommonParams }
	return &cli.Command{
		Name:    "info",
		Summary: "Show a distribution's description and variants",
		Usage:   "rootbox distro info DISTRIBUTION",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("distro info", &params)
		},
		Run: func(args []string) error {
			name, err := cli.OneName(args, "rootbox distro info DISTRIBUTION")
			if err != nil {
				return err
			}
			app, err := cli.OpenApp(params.CommonParams)
			if err != nil {
				return err
			}
			defer app.Close()

			d, err := app.Registry.Describe(name)
			if err != nil {
				return err
			}
			if d.Description != "" {
				fmt.Print(mdterm.Render(d.Description, mdterm.Options{
					Color: term.IsTerminal(int(os.Stdout.Fd())),
				}))
				fmt.Println()
			}
			fmt.Printf("Architectures: %s\n\n", strings.Join(d.Arches, ", "))
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "VARIANT\tDEFAULT")
			for _, variant := range d.VariantNames() {
				marker := ""
				if variant == d.DefaultVariant {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\n", variant, marker)
			}
			return tw.Flush()
		},
	}
}

func urlsCommand() *cli.Command {
	var params struct {
		cli.CommonParams
		Variant string `flag:"type,t" desc:"variant to resolve (default: per-distro default)"`
	}
	return &cli.Command{
		Name:    "urls",
		Summary: "Show resolved download URLs per architecture",
		Usage:   "rootbox distro urls DISTRIBUTION [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("distro urls", &params)
		},
		Run: func(args []string) error {
			name, err := cli.OneName(args, "rootbox distro urls DISTRIBUTION [flags]")
			if err != nil {
				return err
			}
			app, err := cli.OpenApp(params.CommonParams)
			if err != nil {
				return err
			}
			defer app.Close()

			d, err := app.Registry.Describe(name)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "ARCH\tURL\tCHECKSUM")
			for _, arch := range d.Arches {
				source, err := app.Registry.Resolve(name, params.Variant, arch)
				if err != nil {
					return err
				}
				checksum := source.Checksum
				if checksum == "" {
					checksum = "(none published)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", arch, source.URL, checksum)
			}
			return tw.Flush()
		},
	}
}

func downloadCommand() *cli.Command {
	var params struct {
		cli.CommonParams
		Variant string `flag:"type,t" desc:"variant to download (default: per-distro default)"`
	}
	return &cli.Command{
		Name:    "download",
		Summary: "Download a distribution archive into the cache without creating an environment",
		Usage:   "rootbox distro download DISTRIBUTION [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("distro download", &params)
		},
		Run: func(args []string) error {
			name, err := cli.OneName(args, "rootbox distro download DISTRIBUTION [flags]")
			if err != nil {
				return err
			}
			app, err := cli.OpenApp(params.CommonParams)
			if err != nil {
				return err
			}
			defer app.Close()

			arch, err := distro.HostArch()
			if err != nil {
				return err
			}
			source, err := app.Registry.Resolve(name, params.Variant, arch)
			if err != nil {
				return err
			}
			download := cli.StartDownloadUI(source.Filename())
			result, err := app.Fetcher().Fetch(context.Background(), fetch.Task{
				URL:          source.URL,
				Dest:         filepath.Join(app.Config.ArchivesDir(), source.Filename()),
				Checksum:     source.Checksum,
				ExpectedSize: source.Size,
				Progress:     download.Progress,
			})
			download.Finish()
			if err != nil {
				return err
			}
			if result.Reused {
				fmt.Printf("Already cached at %s\n", result.Path)
				return nil
			}
			fmt.Printf("Downloaded %s\n", result.Path)
			return nil
		},
	}
}
