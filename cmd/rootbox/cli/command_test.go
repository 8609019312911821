// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatchesSubcommand(t *testing.T) {
	ran := false
	root := &Command{
		Name: "rootbox",
		Subcommands: []*Command{
			{Name: "list", Run: func(args []string) error { ran = true; return nil }},
		},
	}
	if err := root.Execute([]string{"list"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !ran {
		t.Error("subcommand did not run")
	}
}

func TestExecuteSuggestsCommand(t *testing.T) {
	root := &Command{
		Name: "rootbox",
		Subcommands: []*Command{
			{Name: "setup", Run: func([]string) error { return nil }},
			{Name: "launch", Run: func([]string) error { return nil }},
		},
	}
	err := root.Execute([]string{"lauch"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "launch"`) {
		t.Errorf("Execute = %v, want launch suggestion", err)
	}
}

func TestExecuteParsesFlags(t *testing.T) {
	var force bool
	var got []string
	command := &Command{
		Name: "remove",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("remove", pflag.ContinueOnError)
			flagSet.BoolVar(&force, "force", false, "")
			return flagSet
		},
		Run: func(args []string) error { got = args; return nil },
	}
	if err := command.Execute([]string{"--force", "dev"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !force {
		t.Error("--force not parsed")
	}
	if len(got) != 1 || got[0] != "dev" {
		t.Errorf("positional args = %v, want [dev]", got)
	}
}

func TestExecuteSuggestsFlag(t *testing.T) {
	command := &Command{
		Name: "remove",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("remove", pflag.ContinueOnError)
			flagSet.Bool("force", false, "")
			return flagSet
		},
		Run: func([]string) error { return nil },
	}
	err := command.Execute([]string{"--froce"})
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Errorf("Execute = %v, want --force suggestion", err)
	}
}

func TestExecuteGroupWithoutSubcommand(t *testing.T) {
	root := &Command{
		Name:        "distro",
		Subcommands: []*Command{{Name: "list", Run: func([]string) error { return nil }}},
	}
	if err := root.Execute(nil); err == nil {
		t.Error("group Execute without subcommand succeeded")
	}
}

func TestPrintHelpListsSubcommands(t *testing.T) {
	root := &Command{
		Name:    "rootbox",
		Summary: "environment manager",
		Subcommands: []*Command{
			{Name: "setup", Summary: "create an environment"},
			{Name: "launch", Summary: "enter an environment"},
		},
		Examples: []Example{{Description: "create alpine", Command: "rootbox setup dev"}},
	}
	var out strings.Builder
	root.PrintHelp(&out)
	help := out.String()
	for _, want := range []string{"setup", "create an environment", "launch", "rootbox setup dev"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"lauch", "launch", 1},
		{"setup", "backup", 4},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
