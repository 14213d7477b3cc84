// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jbfp/videocaster/internal/browser"
	"github.com/jbfp/videocaster/internal/config"
	"github.com/jbfp/videocaster/internal/log"
)

// ConfigApplier receives every successfully reloaded configuration.
type ConfigApplier interface {
	ApplyConfig(cfg config.AppConfig) error
}

// BrowserRunner opens the UI and blocks like browser.Launcher.Run.
type BrowserRunner interface {
	Run(ctx context.Context) error
}

// App owns the long-lived runtime lifecycle (watchers, reload wiring, browser)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	applier      ConfigApplier
	browser      BrowserRunner
	reloadSignal os.Signal
	stopOnce     sync.Once
	stopCh       chan struct{}
}

// NewApp creates a new App orchestrator. cfgHolder, applier and browser may be nil.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.ConfigHolder, applier ConfigApplier, launcher BrowserRunner) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		applier:      applier,
		browser:      launcher,
		reloadSignal: syscall.SIGHUP,
		stopCh:       make(chan struct{}),
	}
}

// Stop requests a graceful shutdown. It is safe to call before and during Run
// and more than once.
func (a *App) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}

// Run starts all owned background subsystems and blocks until ctx is cancelled,
// Stop is called, the browser window closes, or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.Go(func() error {
		select {
		case <-a.stopCh:
			a.logger.Info().Str("event", "daemon.stop_requested").Msg("stop requested")
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
		}
	}

	// Reload-during-runtime wiring: apply every config swap.
	if a.cfgHolder != nil {
		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.applyConfig(cfg)
				}
			}
		})
	}

	// SIGHUP trigger for manual reload.
	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	// Closing the browser window ends the daemon.
	if a.browser != nil {
		g.Go(func() error {
			err := a.browser.Run(ctx)
			switch {
			case errors.Is(err, browser.ErrClosed):
				a.logger.Info().Str("event", "browser.closed").Msg("browser closed, shutting down")
				cancel()
			case err != nil:
				a.logger.Warn().Err(err).Str("event", "browser.failed").Msg("could not open browser")
			}
			return nil
		})
	}

	// Main server lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		cancel()
		return err
	})

	return g.Wait()
}

func (a *App) applyConfig(cfg config.AppConfig) {
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		a.logger.Warn().Err(err).Str("level", cfg.LogLevel).Msg("invalid log level in reloaded config")
	}
	if a.applier == nil {
		return
	}
	if err := a.applier.ApplyConfig(cfg); err != nil {
		a.logger.Error().
			Err(err).
			Str("event", "config.apply_failed").
			Msg("failed to apply reloaded config, keeping previous settings")
	}
}
