// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package rootfs

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type entry struct {
	name     string
	typeflag byte
	content  string
	linkname string
	mode     int64
}

func buildTar(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		mode := e.mode
		if mode == 0 {
			if e.typeflag == tar.TypeDir {
				mode = 0o755
			} else {
				mode = 0o644
			}
		}
		hdr := &tar.Header{
			Name:     e.name,
			Typeflag: e.typeflag,
			Linkname: e.linkname,
			Mode:     mode,
			Size:     int64(len(e.content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if e.content != "" {
			if _, err := io.WriteString(tw, e.content); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeArchive(t *testing.T, dir, name string, data []byte, compress string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	var buf bytes.Buffer
	switch compress {
	case "gzip":
		gz := gzip.NewWriter(&buf)
		gz.Write(data)
		gz.Close()
	case "zstd":
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatal(err)
		}
		zw.Write(data)
		zw.Close()
	case "":
		buf.Write(data)
	default:
		t.Fatalf("unknown compression %q", compress)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func minimalRootfs() []entry {
	return []entry{
		{name: "etc", typeflag: tar.TypeDir},
		{name: "etc/os-release", typeflag: tar.TypeReg, content: "ID=testdistro\n"},
		{name: "bin", typeflag: tar.TypeDir},
		{name: "bin/sh", typeflag: tar.TypeReg, content: "#!/bin/true\n", mode: 0o755},
		{name: "usr/bin/env", typeflag: tar.TypeReg, content: "env\n", mode: 0o755},
		{name: "bin/ash", typeflag: tar.TypeSymlink, linkname: "sh"},
	}
}

func TestExtractPlainAndCompressed(t *testing.T) {
	data := buildTar(t, minimalRootfs())
	for _, compress := range []string{"", "gzip", "zstd"} {
		name := compress
		if name == "" {
			name = "plain"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			src := writeArchive(t, dir, "rootfs.tar", data, compress)
			target := filepath.Join(dir, "root")

			if err := Extract(context.Background(), src, target, ExtractOptions{}); err != nil {
				t.Fatalf("Extract: %v", err)
			}
			got, err := os.ReadFile(filepath.Join(target, "etc/os-release"))
			if err != nil {
				t.Fatalf("os-release missing: %v", err)
			}
			if string(got) != "ID=testdistro\n" {
				t.Errorf("os-release content = %q", got)
			}
			info, err := os.Stat(filepath.Join(target, "bin/sh"))
			if err != nil {
				t.Fatal(err)
			}
			if info.Mode().Perm() != 0o755 {
				t.Errorf("bin/sh mode = %v, want 0755", info.Mode().Perm())
			}
			link, err := os.Readlink(filepath.Join(target, "bin/ash"))
			if err != nil || link != "sh" {
				t.Errorf("bin/ash -> %q, %v; want sh", link, err)
			}
		})
	}
}

func TestExtractFlattensWrapperDir(t *testing.T) {
	entries := []entry{
		{name: "testdistro-rootfs", typeflag: tar.TypeDir},
		{name: "testdistro-rootfs/etc", typeflag: tar.TypeDir},
		{name: "testdistro-rootfs/etc/os-release", typeflag: tar.TypeReg, content: "ID=wrapped\n"},
		{name: "testdistro-rootfs/bin/sh", typeflag: tar.TypeReg, content: "x", mode: 0o755},
	}
	dir := t.TempDir()
	src := writeArchive(t, dir, "rootfs.tar.gz", buildTar(t, entries), "gzip")
	target := filepath.Join(dir, "root")

	if err := Extract(context.Background(), src, target, ExtractOptions{}); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "etc/os-release")); err != nil {
		t.Error("wrapper directory was not flattened")
	}
	if _, err := os.Stat(filepath.Join(target, "testdistro-rootfs")); !errors.Is(err, os.ErrNotExist) {
		t.Error("wrapper directory itself was materialized")
	}
}

func TestExtractKeepsMultipleTopLevelDirs(t *testing.T) {
	dir := t.TempDir()
	src := writeArchive(t, dir, "rootfs.tar", buildTar(t, minimalRootfs()), "")
	target := filepath.Join(dir, "root")

	if err := Extract(context.Background(), src, target, ExtractOptions{}); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, p := range []string{"etc", "bin", "usr/bin/env"} {
		if _, err := os.Stat(filepath.Join(target, p)); err != nil {
			t.Errorf("missing %s after extraction: %v", p, err)
		}
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	tests := []struct {
		name    string
		entries []entry
	}{
		{"dotdot-name", []entry{
			{name: "../evil", typeflag: tar.TypeReg, content: "x"},
		}},
		{"hardlink-escape", []entry{
			{name: "etc", typeflag: tar.TypeDir},
			{name: "etc/link", typeflag: tar.TypeLink, linkname: "../../outside"},
		}},
		{"symlink-escape", []entry{
			{name: "etc", typeflag: tar.TypeDir},
			{name: "etc/link", typeflag: tar.TypeSymlink, linkname: "../../../outside"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := writeArchive(t, dir, "evil.tar", buildTar(t, tt.entries), "")
			err := Extract(context.Background(), src, filepath.Join(dir, "root"), ExtractOptions{})
			if !errors.Is(err, ErrExtraction) {
				t.Errorf("Extract = %v, want ErrExtraction", err)
			}
		})
	}
}

func TestExtractAllowsAbsoluteSymlinkTargets(t *testing.T) {
	// /usr/merge style links are routine inside a rootfs.
	entries := []entry{
		{name: "bin", typeflag: tar.TypeSymlink, linkname: "/usr/bin"},
		{name: "usr/bin/sh", typeflag: tar.TypeReg, content: "x", mode: 0o755},
	}
	dir := t.TempDir()
	src := writeArchive(t, dir, "rootfs.tar", buildTar(t, entries), "")
	target := filepath.Join(dir, "root")

	if err := Extract(context.Background(), src, target, ExtractOptions{}); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	link, err := os.Readlink(filepath.Join(target, "bin"))
	if err != nil || link != "/usr/bin" {
		t.Errorf("bin -> %q, %v", link, err)
	}
}

func TestExtractPreservesSubtrees(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "root")

	// First setup.
	src := writeArchive(t, dir, "rootfs.tar", buildTar(t, minimalRootfs()), "")
	if err := Extract(context.Background(), src, target, ExtractOptions{}); err != nil {
		t.Fatalf("first Extract: %v", err)
	}

	// User data accumulates.
	homeFile := filepath.Join(target, "root-home", "notes.txt")
	if err := os.MkdirAll(filepath.Dir(homeFile), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(homeFile, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "etc/os-release"), []byte("ID=modified\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Re-setup with an archive that also ships root-home.
	entries := append(minimalRootfs(),
		entry{name: "root-home", typeflag: tar.TypeDir},
		entry{name: "root-home/notes.txt", typeflag: tar.TypeReg, content: "fresh"},
	)
	src2 := writeArchive(t, dir, "rootfs2.tar", buildTar(t, entries), "")
	err := Extract(context.Background(), src2, target, ExtractOptions{
		Preserve: []string{"root-home"},
	})
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}

	got, err := os.ReadFile(homeFile)
	if err != nil || string(got) != "keep me" {
		t.Errorf("preserved file = %q, %v; want \"keep me\"", got, err)
	}
	osr, _ := os.ReadFile(filepath.Join(target, "etc/os-release"))
	if string(osr) != "ID=testdistro\n" {
		t.Errorf("non-preserved file not refreshed: %q", osr)
	}
}

func TestExtractEmptyArchiveFails(t *testing.T) {
	dir := t.TempDir()
	src := writeArchive(t, dir, "empty.tar", buildTar(t, nil), "")
	err := Extract(context.Background(), src, filepath.Join(dir, "root"), ExtractOptions{})
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("Extract of empty archive = %v, want ErrExtraction", err)
	}
}

func TestExtractCancelled(t *testing.T) {
	dir := t.TempDir()
	src := writeArchive(t, dir, "rootfs.tar", buildTar(t, minimalRootfs()), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Extract(ctx, src, filepath.Join(dir, "root"), ExtractOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Extract = %v, want context.Canceled", err)
	}
}
