// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "testing"

func TestOneName(t *testing.T) {
	if _, err := OneName(nil, "usage"); err == nil {
		t.Error("OneName accepted zero args")
	}
	if _, err := OneName([]string{"a", "b"}, "usage"); err == nil {
		t.Error("OneName accepted two args")
	}
	name, err := OneName([]string{"dev"}, "usage")
	if err != nil || name != "dev" {
		t.Errorf("OneName = %q, %v", name, err)
	}
}
