// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jbfp/videocaster/internal/config"
	"github.com/jbfp/videocaster/internal/log"
)

func testServerConfig(listen string, shutdown time.Duration) config.ServerConfig {
	return config.ServerConfig{
		ListenAddr:      listen,
		ReadTimeout:     time.Second,
		IdleTimeout:     10 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: shutdown,
	}
}

// startManager runs Start in the background and waits for the API listener.
func startManager(t *testing.T, ctx context.Context, cfg config.ServerConfig, deps Deps) (*manager, string, <-chan error) {
	t.Helper()
	m, err := NewManager(cfg, deps)
	require.NoError(t, err)
	mgr := m.(*manager)

	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Start(ctx) }()

	addrCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	addr, err := mgr.Addr(addrCtx)
	require.NoError(t, err)
	return mgr, addr.String(), errCh
}

func waitStart(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return")
		return nil
	}
}

func noKeepAliveClient() *http.Client {
	return &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
}

func TestNewManager_ValidatesDeps(t *testing.T) {
	tests := []struct {
		name    string
		deps    Deps
		wantErr error
	}{
		{name: "complete", deps: Deps{Logger: log.WithComponent("test"), APIHandler: http.NotFoundHandler()}},
		{name: "disabled logger", deps: Deps{Logger: zerolog.Nop(), APIHandler: http.NotFoundHandler()}, wantErr: ErrMissingLogger},
		{name: "no handler", deps: Deps{Logger: log.WithComponent("test")}, wantErr: ErrMissingAPIHandler},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, err := NewManager(testServerConfig("127.0.0.1:0", time.Second), tt.deps)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, mgr)
		})
	}
}

func TestManager_ServesOnBoundAddr(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, addr, errCh := startManager(t, ctx, testServerConfig("127.0.0.1:0", 2*time.Second),
		Deps{Logger: log.WithComponent("test"), APIHandler: handler})

	resp, err := noKeepAliveClient().Get("http://" + addr)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	assert.NoError(t, waitStart(t, errCh))
}

func TestManager_ServesMetricsSeparately(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr, _, errCh := startManager(t, ctx, testServerConfig("127.0.0.1:0", 2*time.Second), Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# HELP videocaster_active_streams\n"))
		}),
		MetricsAddr: "127.0.0.1:0",
	})
	require.NotNil(t, mgr.metricsServer)

	cancel()
	assert.NoError(t, waitStart(t, errCh))
}

func TestManager_ShutdownCutsStreamsPastDeadline(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	streaming := make(chan struct{})
	release := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		close(streaming)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, addr, errCh := startManager(t, ctx, testServerConfig("127.0.0.1:0", 100*time.Millisecond),
		Deps{Logger: log.WithComponent("test"), APIHandler: handler})

	clientDone := make(chan struct{})
	go func() {
		defer close(clientDone)
		resp, err := noKeepAliveClient().Get("http://" + addr + "/video/long.mkv")
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
	}()

	select {
	case <-streaming:
	case <-time.After(2 * time.Second):
		t.Fatal("stream never started")
	}

	cancel()
	err := waitStart(t, errCh)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	select {
	case <-clientDone:
	case <-time.After(2 * time.Second):
		t.Fatal("client was not released after shutdown")
	}
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	mgr, err := NewManager(testServerConfig("127.0.0.1:0", time.Second),
		Deps{Logger: log.WithComponent("test"), APIHandler: http.NotFoundHandler()})
	require.NoError(t, err)
	assert.ErrorIs(t, mgr.Shutdown(context.Background()), ErrManagerNotStarted)
}

func TestManager_StartTwice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr, _, errCh := startManager(t, ctx, testServerConfig("127.0.0.1:0", time.Second),
		Deps{Logger: log.WithComponent("test"), APIHandler: http.NotFoundHandler()})

	assert.Error(t, mgr.Start(ctx))

	cancel()
	assert.NoError(t, waitStart(t, errCh))
}

func TestManager_ShutdownHooksRunLIFO(t *testing.T) {
	mgr, err := NewManager(testServerConfig("127.0.0.1:0", time.Second),
		Deps{Logger: log.WithComponent("test"), APIHandler: http.NotFoundHandler()})
	require.NoError(t, err)

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		mgr.RegisterShutdownHook(name, func(context.Context) error {
			order = append(order, name)
			if name == "second" {
				return errors.New("flush failed")
			}
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = mgr.Start(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook second")
	assert.Equal(t, []string{"third", "second", "first"}, order)

	assert.NoError(t, mgr.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestManager_ListenFailure(t *testing.T) {
	taken := httptest.NewServer(http.NotFoundHandler())
	defer taken.Close()

	mgr, err := NewManager(testServerConfig(taken.Listener.Addr().String(), time.Second),
		Deps{Logger: log.WithComponent("test"), APIHandler: http.NotFoundHandler()})
	require.NoError(t, err)

	ran := false
	mgr.RegisterShutdownHook("flush", func(context.Context) error {
		ran = true
		return nil
	})

	err = mgr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start API server")

	require.NoError(t, mgr.Shutdown(context.Background()))
	assert.True(t, ran)
}
