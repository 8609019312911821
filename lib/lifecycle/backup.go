// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

// BackupOptions controls Backup.
type BackupOptions struct {
	// Dest is the archive path to create. Required.
	Dest string

	// Compression defaults to zstd.
	Compression Compression

	// Recipients, when non-empty, encrypts the archive to these age
	// recipients after compression.
	Recipients []age.Recipient
}

// Backup writes the environment's whole root directory to a (possibly
// compressed and encrypted) tar archive at opts.Dest. It takes no
// environment lock; see the package comment for why.
func (m *Manager) Backup(ctx context.Context, name string, opts BackupOptions) error {
	env, err := m.Catalog.Get(ctx, name)
	if err != nil {
		return err
	}
	if opts.Dest == "" {
		return fmt.Errorf("backup of %s: destination is required", name)
	}
	if opts.Compression == "" {
		opts.Compression = CompressionZstd
	}

	file, err := os.OpenFile(opts.Dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating backup %s: %w", opts.Dest, err)
	}
	success := false
	defer func() {
		if !success {
			os.Remove(opts.Dest)
		}
	}()
	defer file.Close()

	var sink io.Writer = file
	var closeEncrypt func() error
	if len(opts.Recipients) > 0 {
		encWriter, err := age.Encrypt(file, opts.Recipients...)
		if err != nil {
			return fmt.Errorf("encrypting backup: %w", err)
		}
		sink = encWriter
		closeEncrypt = encWriter.Close
	}

	compressed, closeCompress, err := opts.Compression.wrap(sink)
	if err != nil {
		return fmt.Errorf("backup of %s: %w", name, err)
	}

	tw := tar.NewWriter(compressed)
	if err := m.writeTree(ctx, tw, env.RootDir, name); err != nil {
		return err
	}

	// Close innermost to outermost so every layer flushes.
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalizing backup tar: %w", err)
	}
	if err := closeCompress(); err != nil {
		return fmt.Errorf("finalizing backup compression: %w", err)
	}
	if closeEncrypt != nil {
		if err := closeEncrypt(); err != nil {
			return fmt.Errorf("finalizing backup encryption: %w", err)
		}
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing backup %s: %w", opts.Dest, err)
	}
	success = true
	m.logger().Info("backup written", "name", name, "dest", opts.Dest,
		"compression", string(opts.Compression), "encrypted", len(opts.Recipients) > 0)
	return nil
}

// writeTree archives root into tw with entries rooted at prefix/.
func (m *Manager) writeTree(ctx context.Context, tw *tar.Writer, root, prefix string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("backup walk: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("backup stat %s: %w", rel, err)
		}
		// Sockets, fifos, and devices do not belong in a backup of an
		// unprivileged environment.
		if !info.Mode().IsRegular() && !info.IsDir() && info.Mode()&fs.ModeSymlink == 0 {
			return nil
		}

		var linkname string
		if info.Mode()&fs.ModeSymlink != 0 {
			linkname, err = os.Readlink(path)
			if err != nil {
				return fmt.Errorf("backup readlink %s: %w", rel, err)
			}
		}
		hdr, err := tar.FileInfoHeader(info, linkname)
		if err != nil {
			return fmt.Errorf("backup header %s: %w", rel, err)
		}
		name := prefix
		if rel != "." {
			name = prefix + "/" + filepath.ToSlash(rel)
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("backup write header %s: %w", rel, err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		src, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("backup open %s: %w", rel, err)
		}
		defer src.Close()
		if _, err := io.Copy(tw, src); err != nil {
			return fmt.Errorf("backup copy %s: %w", rel, err)
		}
		return nil
	})
}

// BackupFilename returns the conventional archive name for an
// environment backed up at a given timestamp string.
func BackupFilename(name, stamp string, c Compression, encrypted bool) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString("-")
	b.WriteString(stamp)
	b.WriteString(c.Extension())
	if encrypted {
		b.WriteString(".age")
	}
	return b.String()
}
