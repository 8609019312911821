// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox plans and executes environment launches through
// proot, the user-space chroot/bind emulator that works without any
// privileges on Android.
//
// A launch is planned declaratively: a Profile lists bind rules in
// order, the Planner probes each source path on the host and drops the
// optional ones that are absent, and the result is a LaunchSpec whose
// proot argument vector is a pure function of the profile, the
// environment record, and the probe results. Planning also creates the
// environment's scratch directories (tmp, dev/shm) so a clean between
// launches cannot break the next one.
//
// Execution hands the argument vector to an Executor. The default
// executor execs proot directly; hosts where proot must run under a
// privilege bridge supply a wrapping executor instead. A non-zero exit
// from the guest surfaces as *ExitError carrying the code.
package sandbox
