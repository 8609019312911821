// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package rootfs

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// ErrExtraction covers unreadable, malformed, or hostile archives.
var ErrExtraction = errors.New("extraction error")

// ExtractOptions adjusts Extract.
type ExtractOptions struct {
	// Preserve lists target-relative subtrees that are left untouched
	// when they already exist, so a re-setup keeps user data.
	Preserve []string

	Logger *slog.Logger
}

// Extract unpacks the archive at src into target, creating target if
// needed. The compression format is sniffed from the first bytes. A
// single enclosing top-level directory is stripped so target itself
// becomes the filesystem root.
func Extract(ctx context.Context, src, target string, opts ExtractOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("%w: creating target: %v", ErrExtraction, err)
	}

	prefix, err := detectWrapperDir(src)
	if err != nil {
		return err
	}
	if prefix != "" {
		logger.Debug("flattening archive wrapper directory", "prefix", prefix)
	}

	preserved := preservedSubtrees(target, opts.Preserve)
	for _, p := range preserved {
		logger.Info("preserving existing subtree", "path", p)
	}

	reader, closeAll, err := openArchive(src)
	if err != nil {
		return err
	}
	defer closeAll()

	tr := tar.NewReader(reader)
	var entries int
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: reading %s: %v", ErrExtraction, src, err)
		}

		name := path.Clean(hdr.Name)
		if prefix != "" && name+"/" == prefix {
			continue
		}
		name = strings.TrimPrefix(name, prefix)
		name = strings.TrimPrefix(name, "/")
		if name == "" || name == "." {
			continue
		}
		rel, err := safeRelPath(name)
		if err != nil {
			return err
		}
		if hdr.Typeflag == tar.TypeLink {
			// Hardlink targets are archive-root-relative, so the
			// wrapper prefix applies to them too.
			link := strings.TrimPrefix(path.Clean(hdr.Linkname), "/")
			hdr.Linkname = strings.TrimPrefix(link, prefix)
		}
		if underAny(rel, preserved) {
			continue
		}
		if err := writeEntry(target, rel, hdr, tr); err != nil {
			return err
		}
		entries++
	}
	if entries == 0 {
		return fmt.Errorf("%w: %s contains no usable entries", ErrExtraction, src)
	}
	logger.Info("archive extracted", "src", src, "target", target, "entries", entries)
	return nil
}

// detectWrapperDir scans the archive once and returns the shared
// top-level directory prefix ("dir/") when every entry lives under the
// same single directory, or "" otherwise.
func detectWrapperDir(src string) (string, error) {
	reader, closeAll, err := openArchive(src)
	if err != nil {
		return "", err
	}
	defer closeAll()

	tr := tar.NewReader(reader)
	top := ""
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: reading %s: %v", ErrExtraction, src, err)
		}
		name := strings.TrimPrefix(path.Clean(hdr.Name), "./")
		if name == "" || name == "." {
			continue
		}
		if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
			// Leave hostile names for the extraction pass to reject.
			return "", nil
		}
		first, rest, _ := strings.Cut(name, "/")
		if rest == "" && hdr.Typeflag != tar.TypeDir {
			// Top-level regular file: nothing to flatten.
			return "", nil
		}
		if top == "" {
			top = first
		} else if first != top {
			return "", nil
		}
	}
	if top == "" {
		return "", nil
	}
	return top + "/", nil
}

// openArchive opens src and wraps it in the decompressor implied by
// its magic bytes. The returned closer releases both layers.
func openArchive(src string) (io.Reader, func(), error) {
	file, err := os.Open(src)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: opening %s: %v", ErrExtraction, src, err)
	}

	magic := make([]byte, 6)
	n, err := io.ReadFull(file, magic)
	if err != nil && err != io.ErrUnexpectedEOF {
		file.Close()
		return nil, nil, fmt.Errorf("%w: reading %s: %v", ErrExtraction, src, err)
	}
	magic = magic[:n]
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("%w: seeking %s: %v", ErrExtraction, src, err)
	}

	closeFile := func() { file.Close() }
	switch {
	case len(magic) >= 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrExtraction, src, err)
		}
		return gz, func() { gz.Close(); file.Close() }, nil
	case len(magic) >= 6 && string(magic) == "\xfd7zXZ\x00":
		xr, err := xz.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrExtraction, src, err)
		}
		return xr, closeFile, nil
	case len(magic) >= 4 && magic[0] == 0x28 && magic[1] == 0xb5 && magic[2] == 0x2f && magic[3] == 0xfd:
		zr, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrExtraction, src, err)
		}
		return zr, func() { zr.Close(); file.Close() }, nil
	case len(magic) >= 4 && magic[0] == 0x04 && magic[1] == 0x22 && magic[2] == 0x4d && magic[3] == 0x18:
		return lz4.NewReader(file), closeFile, nil
	default:
		// Assume uncompressed tar; the tar reader rejects anything
		// that is not.
		return file, closeFile, nil
	}
}

// safeRelPath validates an archive entry name and returns it as a
// clean, slash-separated relative path.
func safeRelPath(name string) (string, error) {
	clean := path.Clean(name)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: entry %q escapes the target directory", ErrExtraction, name)
	}
	return clean, nil
}

// safeLinkTarget validates a symlink target for an entry at rel.
// Absolute targets are allowed (they resolve inside the environment at
// run time) but a relative target must not climb out of the tree.
func safeLinkTarget(rel, linkname string) error {
	if path.IsAbs(linkname) {
		return nil
	}
	resolved := path.Join(path.Dir(rel), linkname)
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return fmt.Errorf("%w: symlink %q target %q escapes the target directory", ErrExtraction, rel, linkname)
	}
	return nil
}

func writeEntry(target, rel string, hdr *tar.Header, body io.Reader) error {
	dest := filepath.Join(target, filepath.FromSlash(rel))
	mode := os.FileMode(hdr.Mode & 0o7777)

	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(dest, mode|0o700); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExtraction, rel, err)
		}
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExtraction, rel, err)
		}
		file, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExtraction, rel, err)
		}
		if _, err := io.Copy(file, body); err != nil {
			file.Close()
			return fmt.Errorf("%w: writing %s: %v", ErrExtraction, rel, err)
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("%w: closing %s: %v", ErrExtraction, rel, err)
		}
	case tar.TypeSymlink:
		if err := safeLinkTarget(rel, hdr.Linkname); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExtraction, rel, err)
		}
		os.Remove(dest)
		if err := os.Symlink(hdr.Linkname, dest); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExtraction, rel, err)
		}
	case tar.TypeLink:
		linkRel, err := safeRelPath(hdr.Linkname)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExtraction, rel, err)
		}
		os.Remove(dest)
		if err := os.Link(filepath.Join(target, filepath.FromSlash(linkRel)), dest); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExtraction, rel, err)
		}
	case tar.TypeChar, tar.TypeBlock, tar.TypeFifo:
		// Device nodes need privileges we do not have; the isolation
		// layer bind-mounts the host's /dev instead.
	default:
	}
	return nil
}

// preservedSubtrees filters opts.Preserve down to the subtrees that
// actually exist under target, returned as clean relative paths.
func preservedSubtrees(target string, preserve []string) []string {
	var out []string
	for _, p := range preserve {
		rel := strings.TrimPrefix(path.Clean(p), "/")
		if rel == "" || rel == "." {
			continue
		}
		if _, err := os.Stat(filepath.Join(target, filepath.FromSlash(rel))); err == nil {
			out = append(out, rel)
		}
	}
	return out
}

func underAny(rel string, subtrees []string) bool {
	for _, s := range subtrees {
		if rel == s || strings.HasPrefix(rel, s+"/") {
			return true
		}
	}
	return false
}
