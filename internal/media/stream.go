// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"io"
	"os"
	"sync"
)

// stream yields exactly length bytes from an already positioned file and
// holds one idle inhibition until Close.
type stream struct {
	r       io.Reader
	f       *os.File
	inhib   IdleInhibitor
	metrics StreamMetrics
	once    sync.Once
	err     error
}

func newStream(f *os.File, length int64, inhib IdleInhibitor, m StreamMetrics) *stream {
	inhib.Inhibit()
	m.StreamOpened()
	return &stream{
		r:       io.LimitReader(f, length),
		f:       f,
		inhib:   inhib,
		metrics: m,
	}
}

func (s *stream) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.metrics.AddBytes(int64(n))
	return n, err
}

// Close releases the file and the inhibition. Safe to call more than once.
func (s *stream) Close() error {
	s.once.Do(func() {
		s.err = s.f.Close()
		s.inhib.Release()
		s.metrics.StreamClosed()
	})
	return s.err
}
