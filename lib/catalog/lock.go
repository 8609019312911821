// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/rootbox-sh/rootbox/lib/clock"
)

// ErrBusy means another process holds the lock for this environment.
var ErrBusy = errors.New("environment is busy")

// Locker hands out name-scoped advisory locks backed by flock(2) on
// files under a lock directory. Locks are exclusive and process-wide;
// they guard both the catalog record and the environment's directory
// tree during mutations.
type Locker struct {
	dir   string
	clock clock.Clock
}

// lockWait bounds how long Acquire polls before giving up with
// ErrBusy. Operations hold locks for seconds (or minutes during a
// setup), so waiting longer just hides the conflict from the user.
const (
	lockWait = 2 * time.Second
	lockPoll = 100 * time.Millisecond
)

func NewLocker(dir string, clk clock.Clock) *Locker {
	if clk == nil {
		clk = clock.Real()
	}
	return &Locker{dir: dir, clock: clk}
}

// Lock is a held advisory lock. Release it exactly once.
type Lock struct {
	file *os.File
	name string
}

// Acquire takes the exclusive lock for name, polling briefly when it
// is contended. Returns ErrBusy when another holder outlasts the wait.
func (l *Locker) Acquire(name string) (*Lock, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	path := filepath.Join(l.dir, name+".lock")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	deadline := l.clock.Now().Add(lockWait)
	for {
		err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &Lock{file: file, name: name}, nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EAGAIN {
			file.Close()
			return nil, fmt.Errorf("locking %s: %w", path, err)
		}
		if !l.clock.Now().Before(deadline) {
			file.Close()
			return nil, fmt.Errorf("%w: %s", ErrBusy, name)
		}
		l.clock.Sleep(lockPoll)
	}
}

// Release drops the lock. The lock file itself is left in place; it
// carries no state.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("unlocking %s: %w", l.name, err)
	}
	return closeErr
}
