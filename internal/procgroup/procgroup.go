// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup runs helper processes in their own process group so the
// whole tree can be stopped together.
package procgroup

import (
	"errors"
	"os"
	"os/exec"
)

// Set configures cmd to start in a new process group. Call before Start.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, os.ErrProcessDone):
		return "esrch"
	default:
		return "error"
	}
}
