// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !unix

package procgroup

import (
	"os/exec"
)

func set(*exec.Cmd) {}

// signal only reaches the root process here. Graceful termination is not
// available, so only force has an effect.
func signal(cmd *exec.Cmd, force bool) error {
	if !force {
		return nil
	}
	return cmd.Process.Kill()
}
