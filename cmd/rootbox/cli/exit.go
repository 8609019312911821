// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit without an extra error line. The
// main function checks for the ExitCode method on returned errors and
// exits silently with the code; commands returning it are expected to
// have produced their own output. The launch command uses it to
// forward the guest shell's exit status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the process exit code to use.
func (e *ExitError) ExitCode() int {
	return e.Code
}
