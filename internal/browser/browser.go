// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package browser opens the player UI in Chrome.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/jbfp/videocaster/internal/log"
	"github.com/jbfp/videocaster/internal/procgroup"
)

// DefaultCommand is the browser binary on non-Windows systems.
const DefaultCommand = "google-chrome"

// ErrClosed is returned by Run when the user closed the browser.
var ErrClosed = errors.New("browser: closed")

// Config configures a Launcher.
type Config struct {
	Command     string
	UserDataDir string
	URL         string
}

// Launcher starts one browser window pointing at the UI.
type Launcher struct {
	cfg    Config
	logger zerolog.Logger
}

// New returns a launcher. An empty command uses DefaultCommand.
func New(cfg Config) *Launcher {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	return &Launcher{cfg: cfg, logger: log.WithComponent("browser")}
}

// Args returns the browser arguments.
func (l *Launcher) Args() []string {
	args := []string{l.cfg.URL}
	if l.cfg.UserDataDir != "" {
		args = append(args, "--user-data-dir="+l.cfg.UserDataDir)
	}
	return append(args, "--no-default-browser-check")
}

// Run opens the browser and blocks until ctx ends or the browser exits.
// Where the launcher detaches (Windows) only ctx ends Run. Otherwise the
// browser exiting on its own returns ErrClosed, and ctx ending closes it.
func (l *Launcher) Run(ctx context.Context) error {
	cmd, detached := command(l.cfg.Command, l.Args())
	l.logger.Info().Str("event", "browser.start").Str("command", l.cfg.Command).Strs("args", l.Args()).Msg("opening browser")

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}

	if detached {
		go func() { _ = cmd.Wait() }()
		<-ctx.Done()
		return nil
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	select {
	case err := <-waitCh:
		l.logger.Info().Err(err).Str("event", "browser.exit").Msg("browser stopped")
		return ErrClosed
	case <-ctx.Done():
		_ = procgroup.Terminate(cmd, waitCh, 3*time.Second)
		return nil
	}
}

func attached(name string, args []string) *exec.Cmd {
	// #nosec G204 - command comes from config.
	cmd := exec.Command(name, args...)
	procgroup.Set(cmd)
	return cmd
}
