// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rootbox-sh/rootbox/lib/clock"
)

var (
	// ErrNetwork covers transport failures and HTTP error statuses.
	ErrNetwork = errors.New("network error")
	// ErrIntegrity means the downloaded bytes do not match the
	// declared checksum. The partial file has been deleted.
	ErrIntegrity = errors.New("integrity error")
	// ErrStorage covers local filesystem failures (permissions,
	// disk full, unwritable destination).
	ErrStorage = errors.New("storage error")
)

// Progress is invoked as bytes arrive. received is cumulative across
// resumed attempts and never decreases within one Fetch call unless
// the transfer restarts from zero; total is 0 when the server did not
// declare a length.
type Progress func(received, total int64)

// Task describes one download.
type Task struct {
	URL  string
	Dest string

	// Checksum is a hex sha256 or sha512 digest, empty to skip
	// verification.
	Checksum string

	// ExpectedSize, when positive, is checked against free space on
	// the destination filesystem before any bytes move.
	ExpectedSize int64

	Progress Progress
}

// Result reports what Fetch did.
type Result struct {
	Path string
	// Bytes is the final size of the downloaded file.
	Bytes int64
	// Resumed is true when an earlier partial download was continued
	// rather than restarted.
	Resumed bool
	// Reused is true when Dest already held a verified copy and no
	// request was made.
	Reused bool
}

// Fetcher downloads archives. The zero value is not usable; call New.
type Fetcher struct {
	client  *http.Client
	clock   clock.Clock
	logger  *slog.Logger
	retries int
}

// Config configures a Fetcher. Zero values select defaults.
type Config struct {
	Client *http.Client
	Clock  clock.Clock
	Logger *slog.Logger
	// Retries is the number of additional attempts after a transient
	// failure. Defaults to 3.
	Retries int
}

func New(cfg Config) *Fetcher {
	f := &Fetcher{
		client:  cfg.Client,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		retries: cfg.Retries,
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: 0}
	}
	if f.clock == nil {
		f.clock = clock.Real()
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}
	if f.retries == 0 {
		f.retries = 3
	}
	return f
}

// Fetch downloads task.URL to task.Dest. An existing verified copy at
// Dest is reused without touching the network. Transient failures
// (connection errors, 5xx) are retried with exponential backoff;
// client errors (4xx) fail immediately. On success the partial file is
// renamed into place and the resume sidecar removed.
func (f *Fetcher) Fetch(ctx context.Context, task Task) (Result, error) {
	if reused, err := f.tryReuse(task); err != nil {
		return Result{}, err
	} else if reused {
		info, _ := os.Stat(task.Dest)
		var size int64
		if info != nil {
			size = info.Size()
		}
		f.logger.Info("archive already present, reusing",
			"dest", task.Dest, "bytes", size)
		return Result{Path: task.Dest, Bytes: size, Reused: true}, nil
	}

	if err := os.MkdirAll(filepath.Dir(task.Dest), 0o755); err != nil {
		return Result{}, fmt.Errorf("%w: creating download directory: %v", ErrStorage, err)
	}
	if task.ExpectedSize > 0 {
		if err := checkFreeSpace(filepath.Dir(task.Dest), task.ExpectedSize); err != nil {
			return Result{}, err
		}
	}

	var result Result
	var lastErr error
	backoff := time.Second
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			f.logger.Warn("download failed, retrying",
				"url", task.URL, "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-f.clock.After(backoff):
			}
			backoff *= 2
		}

		var retryable bool
		result, lastErr, retryable = f.attempt(ctx, task)
		if lastErr == nil {
			break
		}
		if !retryable {
			return Result{}, lastErr
		}
	}
	if lastErr != nil {
		return Result{}, lastErr
	}

	if task.Checksum != "" {
		if err := VerifyFile(partPath(task.Dest), task.Checksum); err != nil {
			if errors.Is(err, ErrIntegrity) {
				removePartial(task.Dest)
			}
			return Result{}, err
		}
	}
	if err := os.Rename(partPath(task.Dest), task.Dest); err != nil {
		return Result{}, fmt.Errorf("%w: renaming completed download: %v", ErrStorage, err)
	}
	os.Remove(metaPath(task.Dest))
	result.Path = task.Dest

	f.logger.Info("download complete",
		"url", task.URL, "dest", task.Dest, "bytes", result.Bytes, "resumed", result.Resumed)
	return result, nil
}

// tryReuse reports whether Dest already holds a usable archive. A
// verifiable mismatch deletes the stale file so the fetch proceeds.
func (f *Fetcher) tryReuse(task Task) (bool, error) {
	info, err := os.Stat(task.Dest)
	if err != nil || info.IsDir() {
		return false, nil
	}
	if task.Checksum == "" {
		return true, nil
	}
	if err := VerifyFile(task.Dest, task.Checksum); err != nil {
		if errors.Is(err, ErrIntegrity) {
			f.logger.Warn("existing archive fails verification, refetching", "dest", task.Dest)
			if err := os.Remove(task.Dest); err != nil {
				return false, fmt.Errorf("%w: removing stale archive: %v", ErrStorage, err)
			}
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// attempt performs one transfer, resuming an existing partial when the
// sidecar matches. It returns the in-progress Result, the error, and
// whether the error is worth retrying.
func (f *Fetcher) attempt(ctx context.Context, task Task) (Result, error, bool) {
	var result Result

	offset := f.resumeOffset(task)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return result, fmt.Errorf("%w: building request for %s: %v", ErrNetwork, task.URL, err), false
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err(), false
		}
		return result, fmt.Errorf("%w: %v", ErrNetwork, err), true
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPartialContent && offset > 0:
		result.Resumed = true
	case resp.StatusCode == http.StatusOK:
		// Server ignored the Range header (or none was sent):
		// restart from zero.
		offset = 0
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		// Partial is larger than the remote file; it cannot be
		// trusted.
		removePartial(task.Dest)
		return result, fmt.Errorf("%w: %s: stale partial rejected by server", ErrNetwork, task.URL), true
	case resp.StatusCode >= 500:
		return result, fmt.Errorf("%w: %s: %s", ErrNetwork, task.URL, resp.Status), true
	default:
		return result, fmt.Errorf("%w: %s: %s", ErrNetwork, task.URL, resp.Status), false
	}

	total := offset + resp.ContentLength
	if resp.ContentLength < 0 {
		total = 0
	}
	meta := partMeta{URL: task.URL, ETag: resp.Header.Get("Etag"), Total: total}

	flags := os.O_WRONLY | os.O_CREATE
	if result.Resumed {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(partPath(task.Dest), flags, 0o644)
	if err != nil {
		return result, fmt.Errorf("%w: opening partial file: %v", ErrStorage, err), false
	}
	defer file.Close()

	if err := writeMeta(task.Dest, meta); err != nil {
		return result, err, false
	}

	received := offset
	buf := make([]byte, 128*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				return result, fmt.Errorf("%w: writing partial file: %v", ErrStorage, err), false
			}
			received += int64(n)
			if task.Progress != nil {
				task.Progress(received, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return result, ctx.Err(), false
			}
			return result, fmt.Errorf("%w: reading response body: %v", ErrNetwork, readErr), true
		}
	}
	if err := file.Close(); err != nil {
		return result, fmt.Errorf("%w: closing partial file: %v", ErrStorage, err), false
	}
	if total > 0 && received != total {
		return result, fmt.Errorf("%w: %s: short body, got %d of %d bytes", ErrNetwork, task.URL, received, total), true
	}

	result.Bytes = received
	return result, nil, false
}

// resumeOffset returns the byte offset to continue from, or 0 when the
// partial file or its sidecar is missing or belongs to another URL.
func (f *Fetcher) resumeOffset(task Task) int64 {
	info, err := os.Stat(partPath(task.Dest))
	if err != nil || info.Size() == 0 {
		return 0
	}
	meta, ok := readMeta(task.Dest)
	if !ok || meta.URL != task.URL {
		removePartial(task.Dest)
		return 0
	}
	return info.Size()
}
