// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/jbfp/videocaster/internal/config"
	"github.com/jbfp/videocaster/internal/log"
)

// PerformStartupChecks validates the environment before the server starts.
// Missing optional helpers only log a warning.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkListenAddr(logger, cfg.ListenAddr); err != nil {
		return err
	}
	if err := checkMediaRoot(logger, cfg.Media.Root); err != nil {
		return fmt.Errorf("media root check failed: %w", err)
	}
	if err := checkSubtitleBase(logger, cfg.Subtitles.BaseURL); err != nil {
		return err
	}

	if _, err := exec.LookPath(cfg.FFmpeg.Bin); err != nil {
		logger.Warn().Str("ffmpeg", cfg.FFmpeg.Bin).Msg("ffmpeg not found; preview frames are unavailable")
	}
	if cfg.Browser.Enabled {
		if _, err := exec.LookPath(cfg.Browser.Command); err != nil {
			logger.Warn().Str("command", cfg.Browser.Command).Msg("browser command not found")
		}
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkListenAddr(logger zerolog.Logger, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	logger.Debug().Str("addr", addr).Msg("listen address is valid")
	return nil
}

func checkMediaRoot(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	logger.Debug().Str("path", path).Msg("media root is a directory")
	return nil
}

func checkSubtitleBase(logger zerolog.Logger, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid subtitles base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("subtitles base URL scheme must be http or https, got %q", u.Scheme)
	}
	logger.Debug().Str("url", raw).Msg("subtitles base URL is valid")
	return nil
}
