// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeSleepAdvancesTime(t *testing.T) {
	fake := NewFake()
	start := fake.Now()

	fake.Sleep(3 * time.Second)
	fake.Sleep(500 * time.Millisecond)

	if got := fake.Now().Sub(start); got != 3500*time.Millisecond {
		t.Errorf("elapsed = %v, want 3.5s", got)
	}

	sleeps := fake.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 3*time.Second || sleeps[1] != 500*time.Millisecond {
		t.Errorf("Sleeps() = %v, want [3s 500ms]", sleeps)
	}
}

func TestFakeAfterDeliversImmediately(t *testing.T) {
	fake := NewFake()
	select {
	case <-fake.After(time.Hour):
	default:
		t.Fatal("After should deliver without blocking on a fake clock")
	}
	if len(fake.Sleeps()) != 1 {
		t.Errorf("After should record one sleep, got %d", len(fake.Sleeps()))
	}
}
