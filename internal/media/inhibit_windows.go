// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build windows

package media

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sys/windows"
)

const (
	esSystemRequired   = 0x00000001
	esDisplayRequired  = 0x00000002
	esAwayModeRequired = 0x00000040
	esContinuous       = 0x80000000
)

var procSetThreadExecutionState = windows.NewLazySystemDLL("kernel32.dll").NewProc("SetThreadExecutionState")

// SetThreadExecutionState is per thread, so every call happens on one
// locked OS thread owned by this worker.
type windowsToggler struct {
	reqs chan toggleReq
	once sync.Once
	done chan struct{}
}

type toggleReq struct {
	active bool
	errc   chan error
}

func newPlatformToggler() toggler {
	t := &windowsToggler{
		reqs: make(chan toggleReq),
		done: make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *windowsToggler) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case req := <-t.reqs:
			req.errc <- setExecutionState(req.active)
		case <-t.done:
			return
		}
	}
}

func (t *windowsToggler) set(active bool) error {
	errc := make(chan error, 1)
	select {
	case t.reqs <- toggleReq{active: active, errc: errc}:
		return <-errc
	case <-t.done:
		return fmt.Errorf("idle toggler closed")
	}
}

func (t *windowsToggler) close() {
	t.once.Do(func() { close(t.done) })
}

func setExecutionState(active bool) error {
	flags := uintptr(esContinuous)
	if active {
		flags |= esDisplayRequired | esSystemRequired | esAwayModeRequired
	}
	r, _, err := procSetThreadExecutionState.Call(flags)
	if r == 0 {
		return fmt.Errorf("SetThreadExecutionState: %w", err)
	}
	return nil
}
