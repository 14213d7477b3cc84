// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build windows

package browser

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// Chrome on Windows hands the window to an existing process and returns at
// once, so the launcher detaches and never waits for it.
func command(name string, args []string) (*exec.Cmd, bool) {
	if name != DefaultCommand {
		return attached(name, args), false
	}
	cmd := exec.Command("cmd", append([]string{"/C", "start", "chrome"}, args...)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.DETACHED_PROCESS}
	return cmd, true
}
