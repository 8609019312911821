// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// ExitError reports a non-zero exit from the guest command.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("guest command exited with code %d", e.Code)
}

// Executor runs a fully assembled host argument vector with the
// caller's terminal attached. Implementations map a non-zero exit to
// *ExitError.
type Executor interface {
	Run(ctx context.Context, argv []string) error
}

// Config configures a Sandbox.
type Config struct {
	// ProotPath is the proot binary. Defaults to "proot" on PATH.
	ProotPath string

	// Executor defaults to direct execution. Hosts that must route
	// through a privilege bridge wrap it (see BridgeExecutor).
	Executor Executor

	Logger *slog.Logger
}

// Sandbox launches planned specs.
type Sandbox struct {
	prootPath string
	executor  Executor
	logger    *slog.Logger
}

func New(cfg Config) *Sandbox {
	s := &Sandbox{
		prootPath: cfg.ProotPath,
		executor:  cfg.Executor,
		logger:    cfg.Logger,
	}
	if s.prootPath == "" {
		s.prootPath = "proot"
	}
	if s.executor == nil {
		s.executor = directExecutor{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Run executes the spec and blocks until the guest command exits.
func (s *Sandbox) Run(ctx context.Context, spec *LaunchSpec) error {
	argv := append([]string{s.prootPath}, spec.ProotArgs()...)
	s.logger.Debug("launching", "argv", argv)
	return s.executor.Run(ctx, argv)
}

// Argv returns the full host argument vector for the spec without
// running it (dry runs, debugging).
func (s *Sandbox) Argv(spec *LaunchSpec) []string {
	return append([]string{s.prootPath}, spec.ProotArgs()...)
}

// directExecutor runs argv as a child process with the caller's
// stdio attached.
type directExecutor struct{}

func (directExecutor) Run(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	if err != nil {
		return fmt.Errorf("running %s: %w", argv[0], err)
	}
	return nil
}

// BridgeExecutor prefixes every launch with a bridge command (for
// example a Shizuku shell) that provides the process context proot
// needs on locked-down hosts.
type BridgeExecutor struct {
	// Command is the bridge argv prefix, e.g. ["rish", "-c"].
	Command []string

	// Inner defaults to direct execution of the combined vector.
	Inner Executor
}

func (b BridgeExecutor) Run(ctx context.Context, argv []string) error {
	inner := b.Inner
	if inner == nil {
		inner = directExecutor{}
	}
	if len(b.Command) == 0 {
		return inner.Run(ctx, argv)
	}
	combined := make([]string, 0, len(b.Command)+len(argv))
	combined = append(combined, b.Command...)
	combined = append(combined, argv...)
	return inner.Run(ctx, combined)
}
