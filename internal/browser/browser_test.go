// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700))
	return path
}

func TestArgs(t *testing.T) {
	l := New(Config{URL: "http://localhost:8000", UserDataDir: "/home/u/.config/Videocaster"})
	assert.Equal(t, []string{
		"http://localhost:8000",
		"--user-data-dir=/home/u/.config/Videocaster",
		"--no-default-browser-check",
	}, l.Args())

	assert.Equal(t, []string{"http://x", "--no-default-browser-check"}, New(Config{URL: "http://x"}).Args())
	assert.Equal(t, DefaultCommand, New(Config{}).cfg.Command)
}

func TestRunReturnsWhenBrowserExits(t *testing.T) {
	l := New(Config{Command: script(t, "exit 0"), URL: "http://x"})
	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRunStopsBrowserOnCancel(t *testing.T) {
	l := New(Config{Command: script(t, "sleep 30"), URL: "http://x"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunMissingCommand(t *testing.T) {
	l := New(Config{Command: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, l.Run(context.Background()))
}
