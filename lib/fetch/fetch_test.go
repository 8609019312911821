// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rootbox-sh/rootbox/lib/clock"
)

func testPayload(t *testing.T, size int) ([]byte, string) {
	t.Helper()
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(data)
	return data, hex.EncodeToString(sum[:])
}

func newFetcher(t *testing.T) (*Fetcher, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake()
	return New(Config{Clock: fake}), fake
}

func TestFetchVerifyAndRename(t *testing.T) {
	data, digest := testPayload(t, 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	f, _ := newFetcher(t)
	dest := filepath.Join(t.TempDir(), "rootfs.tar.gz")

	var last, lastTotal int64
	res, err := f.Fetch(context.Background(), Task{
		URL:      srv.URL + "/rootfs.tar.gz",
		Dest:     dest,
		Checksum: digest,
		Progress: func(received, total int64) {
			if received < last {
				t.Errorf("progress went backwards: %d after %d", received, last)
			}
			last, lastTotal = received, total
		},
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Bytes != int64(len(data)) {
		t.Errorf("Bytes = %d, want %d", res.Bytes, len(data))
	}
	if last != int64(len(data)) || lastTotal != int64(len(data)) {
		t.Errorf("final progress %d/%d, want %d/%d", last, lastTotal, len(data), len(data))
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading destination: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("destination content differs from served payload")
	}
	if _, err := os.Stat(partPath(dest)); !errors.Is(err, os.ErrNotExist) {
		t.Error("partial file left behind after success")
	}
	if _, err := os.Stat(metaPath(dest)); !errors.Is(err, os.ErrNotExist) {
		t.Error("sidecar left behind after success")
	}
}

func TestFetchIntegrityMismatchDeletesPartial(t *testing.T) {
	data, _ := testPayload(t, 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	f, _ := newFetcher(t)
	dest := filepath.Join(t.TempDir(), "rootfs.tar.gz")

	_, err := f.Fetch(context.Background(), Task{
		URL:      srv.URL,
		Dest:     dest,
		Checksum: strings.Repeat("ab", 32),
	})
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("Fetch = %v, want ErrIntegrity", err)
	}
	for _, path := range []string{dest, partPath(dest), metaPath(dest)} {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s survived an integrity failure", path)
		}
	}
}

// rangeServer serves data honoring Range requests and counts how many
// requests carried a Range header.
type rangeServer struct {
	data        []byte
	rangedCalls int
}

func (s *rangeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hdr := r.Header.Get("Range")
	if hdr == "" {
		w.Header().Set("Content-Length", strconv.Itoa(len(s.data)))
		w.Write(s.data)
		return
	}
	s.rangedCalls++
	var offset int64
	fmt.Sscanf(hdr, "bytes=%d-", &offset)
	w.Header().Set("Content-Range",
		fmt.Sprintf("bytes %d-%d/%d", offset, len(s.data)-1, len(s.data)))
	w.Header().Set("Content-Length", strconv.Itoa(len(s.data)-int(offset)))
	w.WriteHeader(http.StatusPartialContent)
	w.Write(s.data[offset:])
}

func TestFetchResumesPartial(t *testing.T) {
	data, digest := testPayload(t, 8192)
	backend := &rangeServer{data: data}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	f, _ := newFetcher(t)
	dest := filepath.Join(t.TempDir(), "rootfs.tar.xz")
	url := srv.URL + "/rootfs.tar.xz"

	// Simulate an interrupted download at the halfway mark.
	half := int64(len(data) / 2)
	if err := os.WriteFile(partPath(dest), data[:half], 0o644); err != nil {
		t.Fatal(err)
	}
	if err := writeMeta(dest, partMeta{URL: url, Total: int64(len(data))}); err != nil {
		t.Fatal(err)
	}

	res, err := f.Fetch(context.Background(), Task{URL: url, Dest: dest, Checksum: digest})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !res.Resumed {
		t.Error("Resumed = false, want true")
	}
	if backend.rangedCalls != 1 {
		t.Errorf("ranged requests = %d, want 1", backend.rangedCalls)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("resumed download is not byte-identical to the payload")
	}
}

func TestFetchRestartsWhenServerIgnoresRange(t *testing.T) {
	data, digest := testPayload(t, 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Plain 200 regardless of the Range header.
		w.Write(data)
	}))
	defer srv.Close()

	f, _ := newFetcher(t)
	dest := filepath.Join(t.TempDir(), "rootfs.tar.gz")

	if err := os.WriteFile(partPath(dest), []byte("stale prefix"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := writeMeta(dest, partMeta{URL: srv.URL}); err != nil {
		t.Fatal(err)
	}

	res, err := f.Fetch(context.Background(), Task{URL: srv.URL, Dest: dest, Checksum: digest})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Resumed {
		t.Error("Resumed = true for a 200 response")
	}
	got, _ := os.ReadFile(dest)
	if !bytes.Equal(got, data) {
		t.Error("restart did not discard the stale prefix")
	}
}

func TestFetchMismatchedSidecarRestartsFromZero(t *testing.T) {
	data, digest := testPayload(t, 2048)
	backend := &rangeServer{data: data}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	f, _ := newFetcher(t)
	dest := filepath.Join(t.TempDir(), "rootfs.tar.gz")

	// Partial belongs to a different URL; it must not be resumed.
	if err := os.WriteFile(partPath(dest), data[:100], 0o644); err != nil {
		t.Fatal(err)
	}
	if err := writeMeta(dest, partMeta{URL: "https://elsewhere.example/other.tar.gz"}); err != nil {
		t.Fatal(err)
	}

	res, err := f.Fetch(context.Background(), Task{URL: srv.URL, Dest: dest, Checksum: digest})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Resumed {
		t.Error("resumed a partial from a different URL")
	}
	if backend.rangedCalls != 0 {
		t.Errorf("ranged requests = %d, want 0", backend.rangedCalls)
	}
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	data, digest := testPayload(t, 1024)
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			http.Error(w, "upstream unhappy", http.StatusBadGateway)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	f, fake := newFetcher(t)
	dest := filepath.Join(t.TempDir(), "rootfs.tar.gz")

	if _, err := f.Fetch(context.Background(), Task{URL: srv.URL, Dest: dest, Checksum: digest}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls != 3 {
		t.Errorf("requests = %d, want 3", calls)
	}
	sleeps := fake.Sleeps()
	if len(sleeps) != 2 {
		t.Fatalf("backoff sleeps = %d, want 2", len(sleeps))
	}
	if sleeps[1] != 2*sleeps[0] {
		t.Errorf("backoff not exponential: %v", sleeps)
	}
}

func TestFetchClientErrorDoesNotRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f, _ := newFetcher(t)
	dest := filepath.Join(t.TempDir(), "rootfs.tar.gz")

	_, err := f.Fetch(context.Background(), Task{URL: srv.URL, Dest: dest})
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("Fetch = %v, want ErrNetwork", err)
	}
	if calls != 1 {
		t.Errorf("requests = %d, want 1 (no retry on 404)", calls)
	}
}

func TestFetchReusesVerifiedDestination(t *testing.T) {
	data, digest := testPayload(t, 512)
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write(data)
	}))
	defer srv.Close()

	f, _ := newFetcher(t)
	dest := filepath.Join(t.TempDir(), "rootfs.tar.gz")
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := f.Fetch(context.Background(), Task{URL: srv.URL, Dest: dest, Checksum: digest})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !res.Reused {
		t.Error("Reused = false for an existing verified archive")
	}
	if calls != 0 {
		t.Errorf("requests = %d, want 0", calls)
	}
}

func TestFetchContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		w.Write(bytes.Repeat([]byte("x"), 1024))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer srv.Close()

	f, _ := newFetcher(t)
	dest := filepath.Join(t.TempDir(), "rootfs.tar.gz")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, Task{URL: srv.URL, Dest: dest})
		done <- err
	}()
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch = %v, want context.Canceled", err)
	}
}

func TestFetchCancellationDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unhappy", http.StatusBadGateway)
	}))
	defer srv.Close()

	// Real clock: the first retry would wait a full second.
	f := New(Config{})
	dest := filepath.Join(t.TempDir(), "rootfs.tar.gz")

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	done := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, Task{URL: srv.URL, Dest: dest})
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Errorf("cancellation blocked %v, want return before the backoff elapses", elapsed)
	}
}

func TestVerifyFileAlgorithms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob")
	if err := os.WriteFile(path, []byte("hello rootbox"), 0o644); err != nil {
		t.Fatal(err)
	}

	sum := sha256.Sum256([]byte("hello rootbox"))
	if err := VerifyFile(path, hex.EncodeToString(sum[:])); err != nil {
		t.Errorf("sha256 verify: %v", err)
	}
	// Upper-case digests are accepted.
	if err := VerifyFile(path, strings.ToUpper(hex.EncodeToString(sum[:]))); err != nil {
		t.Errorf("upper-case digest: %v", err)
	}
	if err := VerifyFile(path, strings.Repeat("00", 32)); !errors.Is(err, ErrIntegrity) {
		t.Errorf("mismatch = %v, want ErrIntegrity", err)
	}
	if err := VerifyFile(path, "tooshort"); !errors.Is(err, ErrIntegrity) {
		t.Errorf("malformed digest = %v, want ErrIntegrity", err)
	}
}
