// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"filippo.io/age"
	"github.com/spf13/pflag"

	"github.com/rootbox-sh/rootbox/cmd/rootbox/cli"
	"github.com/rootbox-sh/rootbox/lib/lifecycle"
)

type backupParams struct {
	cli.CommonParams
	Output      string   `flag:"output,o" desc:"destination file (default: <backups dir>/<name>-<timestamp>)"`
	Compression string   `flag:"compression" desc:"none, zstd, or lz4" default:"zstd"`
	EncryptTo   []string `flag:"encrypt-to" desc:"age recipients to encrypt the backup to"`
}

// BackupCommand returns the "backup" command.
func BackupCommand() *cli.Command {
	var params backupParams
	return &cli.Command{
		Name:    "backup",
		Summary: "Archive an environment to a tar file",
		Usage:   "rootbox backup NAME [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("backup", &params)
		},
		Examples: []cli.Example{
			{Description: "Default zstd backup into the backups directory", Command: "rootbox backup dev"},
			{Description: "Encrypted to an age key", Command: "rootbox backup dev --encrypt-to age1..."},
		},
		Run: func(args []string) error {
			name, err := cli.OneName(args, "rootbox backup NAME [flags]")
			if err != nil {
				return err
			}
			return runBackup(name, params)
		},
	}
}

func runBackup(name string, params backupParams) error {
	compression, err := lifecycle.ParseCompression(params.Compression)
	if err != nil {
		return err
	}
	recipients := make([]age.Recipient, 0, len(params.EncryptTo))
	for _, s := range params.EncryptTo {
		recipient, err := age.ParseX25519Recipient(s)
		if err != nil {
			return fmt.Errorf("parsing recipient %q: %w", s, err)
		}
		recipients = append(recipients, recipient)
	}

	app, err := cli.OpenApp(params.CommonParams)
	if err != nil {
		return err
	}
	defer app.Close()

	dest := params.Output
	if dest == "" {
		stamp := time.Now().UTC().Format("20060102-150405")
		dest = filepath.Join(app.Config.BackupsDir(),
			lifecycle.BackupFilename(name, stamp, compression, len(recipients) > 0))
	}

	err = app.Lifecycle().Backup(context.Background(), name, lifecycle.BackupOptions{
		Dest:        dest,
		Compression: compression,
		Recipients:  recipients,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Backup written to %s\n", dest)
	return nil
}
