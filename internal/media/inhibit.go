// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/jbfp/videocaster/internal/log"
	"github.com/jbfp/videocaster/internal/metrics"
)

// IdleInhibitor keeps the host awake while video is streaming. Every Inhibit
// is paired with exactly one Release.
type IdleInhibitor interface {
	Inhibit()
	Release()
}

// NoopInhibitor never touches the host.
type NoopInhibitor struct{}

func (NoopInhibitor) Inhibit() {}
func (NoopInhibitor) Release() {}

// SystemInhibitor reference-counts inhibitions across concurrent streams and
// toggles the host state on the first Inhibit and the last Release.
type SystemInhibitor struct {
	mu     sync.Mutex
	count  int
	toggle toggler
	logger zerolog.Logger
}

// toggler switches the host idle state. Implementations are per platform.
type toggler interface {
	set(active bool) error
	close()
}

// NewSystemInhibitor returns an inhibitor for the current platform. Call
// Close when done.
func NewSystemInhibitor() *SystemInhibitor {
	return newSystemInhibitor(newPlatformToggler())
}

func newSystemInhibitor(t toggler) *SystemInhibitor {
	return &SystemInhibitor{
		toggle: t,
		logger: log.WithComponent("idle"),
	}
}

// Inhibit suppresses host sleep until the matching Release.
func (s *SystemInhibitor) Inhibit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.count == 1 {
		s.apply(true)
	}
}

// Release drops one inhibition. Extra releases are ignored.
func (s *SystemInhibitor) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == 0 {
		s.logger.Warn().Str("event", "idle.release_unbalanced").Msg("release without inhibit")
		return
	}
	s.count--
	if s.count == 0 {
		s.apply(false)
	}
}

// Active reports the number of outstanding inhibitions.
func (s *SystemInhibitor) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close restores the host state and stops the platform worker.
func (s *SystemInhibitor) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count > 0 {
		s.count = 0
		s.apply(false)
	}
	s.toggle.close()
}

func (s *SystemInhibitor) apply(active bool) {
	if err := s.toggle.set(active); err != nil {
		s.logger.Error().Err(err).Bool("active", active).Str("event", "idle.toggle_failed").Msg("failed to change idle state")
		return
	}
	metrics.SetIdleInhibited(active)
	s.logger.Debug().Bool("active", active).Str("event", "idle.toggle").Msg("idle state changed")
}
