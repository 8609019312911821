// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code injects
// Real(); tests inject a Fake and advance it deterministically, so retry
// backoff and lock-wait tests run in microseconds instead of real time.
package clock
