// SPDX-License-Identifier: MIT

// Package daemon provides the core daemon bootstrapping and lifecycle management.
package daemon

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jbfp/videocaster/internal/api"
	"github.com/jbfp/videocaster/internal/audit"
	"github.com/jbfp/videocaster/internal/browser"
	"github.com/jbfp/videocaster/internal/config"
	"github.com/jbfp/videocaster/internal/health"
	"github.com/jbfp/videocaster/internal/log"
	"github.com/jbfp/videocaster/internal/media"
	"github.com/jbfp/videocaster/internal/telemetry"
)

// Options holds the command line inputs of the daemon.
type Options struct {
	// Version is the build version
	Version string

	// ConfigPath is the YAML config file. Empty uses the per-user file when
	// it exists.
	ConfigPath string

	// LogOutput defaults to stdout
	LogOutput io.Writer
}

// Bootstrap loads the configuration and wires every component into an App.
func Bootstrap(ctx context.Context, opts Options) (*App, error) {
	configPath := config.DiscoverPath(opts.ConfigPath)
	loader := config.NewLoader(configPath, opts.Version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  opts.LogOutput,
		Service: "videocaster",
		Version: opts.Version,
	})
	logger := log.WithComponent("daemon")
	logger.Info().
		Str("version", opts.Version).
		Str("config", configPath).
		Str("listen", cfg.ListenAddr).
		Str("media_root", cfg.Media.Root).
		Msg("Starting videocaster daemon")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, fmt.Errorf("startup checks: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    "videocaster",
		ServiceVersion: opts.Version,
		Environment:    "production",
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry initialization failed, continuing without tracing")
		tp = nil
	}

	var inhibitor media.IdleInhibitor = media.NoopInhibitor{}
	var system *media.SystemInhibitor
	if cfg.Media.InhibitIdle {
		system = media.NewSystemInhibitor()
		inhibitor = system
	}

	hm := health.NewManager(opts.Version)
	hm.RegisterChecker(health.NewDirChecker("media_root", cfg.Media.Root))
	hm.RegisterChecker(health.NewBinaryChecker("ffmpeg", cfg.FFmpeg.Bin))

	auditLog := audit.NewLogger()
	srv, err := api.New(cfg,
		api.WithHealthManager(hm),
		api.WithInhibitor(inhibitor),
		api.WithAuditLogger(auditLog),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build API server: %w", err)
	}

	deps := Deps{
		Logger:     logger,
		APIHandler: srv.Handler(),
	}
	if cfg.MetricsListen != "" {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsAddr = cfg.MetricsListen
	}
	mgr, err := NewManager(config.ParseServerConfigForApp(cfg), deps)
	if err != nil {
		return nil, err
	}

	// LIFO: tracing flushes after everything else has stopped.
	if tp != nil {
		mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	}
	if system != nil {
		mgr.RegisterShutdownHook("idle_inhibitor", func(context.Context) error {
			system.Close()
			return nil
		})
	}

	var launcher BrowserRunner
	if cfg.Browser.Enabled {
		launcher = browser.New(browser.Config{
			Command:     cfg.Browser.Command,
			UserDataDir: browserDataDir(cfg.Browser.UserDataDir),
			URL:         LocalURL(cfg.ListenAddr),
		})
	}

	holder := config.NewConfigHolder(cfg, loader, configPath)
	holder.SetReloadHook(func(err error) { auditLog.ConfigReload(configPath, err) })

	app := NewApp(logger, mgr, holder, srv, launcher)
	srv.SetShutdown(app.Stop)
	return app, nil
}

// Run bootstraps the daemon and blocks until it stops.
func Run(ctx context.Context, opts Options) error {
	app, err := Bootstrap(ctx, opts)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

// SignalContext is cancelled on interrupt or termination signals.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// LocalURL is the UI address on this machine for a listen address.
func LocalURL(listenAddr string) string {
	port := "8000"
	if _, p, err := net.SplitHostPort(listenAddr); err == nil && p != "" {
		port = p
	}
	return "http://localhost:" + port
}

// browserDataDir keeps the browser profile next to the config file by default.
func browserDataDir(configured string) string {
	if configured != "" {
		return configured
	}
	p, err := config.DefaultPath()
	if err != nil {
		return ""
	}
	return filepath.Dir(p)
}
