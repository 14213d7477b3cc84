// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbfp/videocaster/internal/audit"
	"github.com/jbfp/videocaster/internal/config"
	"github.com/jbfp/videocaster/internal/library"
	"github.com/jbfp/videocaster/internal/media"
	"github.com/jbfp/videocaster/internal/subtitles"
)

const sampleSRT = "1\r\n00:00:01,000 --> 00:00:02,500\r\nHello\r\n\r\n"

type fakeProvider struct {
	mu         sync.Mutex
	candidates []subtitles.Candidate
	searchErr  error
	body       []byte
	downloadOK bool
	lastQuery  subtitles.MetadataQuery
	lastHash   string
	downloads  []string
}

func (p *fakeProvider) SearchByHash(_ context.Context, _ int64, hash, _ string) ([]subtitles.Candidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastHash = hash
	return p.candidates, p.searchErr
}

func (p *fakeProvider) SearchByMetadata(_ context.Context, q subtitles.MetadataQuery) ([]subtitles.Candidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastQuery = q
	return p.candidates, p.searchErr
}

func (p *fakeProvider) Download(_ context.Context, url string) ([]byte, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downloads = append(p.downloads, url)
	if !p.downloadOK {
		return nil, "", errors.New("boom")
	}
	return p.body, "", nil
}

type testEnv struct {
	root     string
	server   *Server
	provider *fakeProvider
	stops    *atomic.Int32
	audit    *bytes.Buffer
}

func newTestEnv(t *testing.T, mutate ...func(*config.AppConfig)) *testEnv {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	video := make([]byte, 128<<10)
	for i := range video {
		video[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "movie.mp4"), video, 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(root, "Shows"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Shows", "ep 1.mkv"), []byte("0123456789"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("x"), 0o600))

	cfg := config.Defaults()
	cfg.Media.Root = root
	cfg.Media.Confine = true
	cfg.RateLimit.Enabled = false
	cfg.FFmpeg.Bin = filepath.Join(root, "no-such-ffmpeg")
	for _, m := range mutate {
		m(&cfg)
	}

	provider := &fakeProvider{downloadOK: true, body: []byte(sampleSRT)}
	stops := &atomic.Int32{}
	auditBuf := &bytes.Buffer{}
	s, err := New(cfg,
		WithAuditLogger(audit.NewLoggerWith(zerolog.New(auditBuf))),
		WithSubtitleProvider(provider),
		WithStreamMetrics(media.NoopStreamMetrics{}),
		WithLocalIP(func(context.Context) (net.IP, error) { return net.ParseIP("192.168.1.20"), nil }),
		WithShutdown(func() { stops.Add(1) }),
	)
	require.NoError(t, err)
	return &testEnv{root: root, server: s, provider: provider, stops: stops, audit: auditBuf}
}

func (e *testEnv) do(method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) problem {
	t.Helper()
	var p problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestVideoRange(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/video/movie.mp4", http.Header{"Range": {"bytes=10-19"}})
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 10-19/131072", rec.Header().Get("Content-Range"))
	assert.Equal(t, "10", rec.Header().Get("Content-Length"))
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, rec.Body.Bytes())
}

func TestVideoEscapedPath(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{
		"/video/Shows%2Fep%201%2Emkv",
		"/video/Shows%2fep%201.mkv",
		"/video/Shows/ep%201.mkv",
	} {
		t.Run(target, func(t *testing.T) {
			rec := env.do(http.MethodGet, target, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "0123456789", rec.Body.String())
			assert.Equal(t, "video/x-matroska", rec.Header().Get("Content-Type"))
		})
	}
}

func TestVideoHead(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodHead, "/video/movie.mp4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "131072", rec.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Zero(t, rec.Body.Len())
}

func TestVideoNotFound(t *testing.T) {
	env := newTestEnv(t)

	tests := map[string]string{
		"missing":      "/video/nope.mp4",
		"outside root": "/video/%2Fetc%2Fpasswd",
		"traversal":    "/video/..%2F..%2Fetc%2Fpasswd",
		"directory":    "/video/Shows",
	}
	for name, target := range tests {
		t.Run(name, func(t *testing.T) {
			rec := env.do(http.MethodGet, target, nil)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
			assert.Empty(t, rec.Header().Get("Content-Length"))
			assert.Zero(t, rec.Body.Len())
		})
	}
}

func TestVideoUnsatisfiableRange(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/video/movie.mp4", http.Header{"Range": {"bytes=999999-"}})
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
	assert.Equal(t, "bytes */131072", rec.Header().Get("Content-Range"))
	assert.Zero(t, rec.Body.Len())
}

func TestListDir(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/fs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing library.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, env.root, listing.RealPath)
	assert.Equal(t, []library.Item{
		{IsDir: true, Name: "Shows"},
		{IsDir: false, Name: "movie.mp4"},
	}, listing.Items)

	rec = env.do(http.MethodGet, "/fs?path=Shows", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `{"isDir":true,"name":".."}`)
	assert.Contains(t, rec.Body.String(), `"realPath"`)
}

func TestListDirErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/fs?path=missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeNotFound, decodeProblem(t, rec).Error)

	rec = env.do(http.MethodGet, "/fs?path=/etc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidPath, decodeProblem(t, rec).Error)
}

func TestSubtitlesByPath(t *testing.T) {
	env := newTestEnv(t)
	env.provider.candidates = []subtitles.Candidate{{Name: "Movie.srt", URL: "https://dl.example/1.gz", Format: "srt"}}

	rec := env.do(http.MethodGet, "/subtitles/by-path?path=movie.mp4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"Movie.srt","url":"https://dl.example/1.gz"}]`, rec.Body.String())
	assert.Len(t, env.provider.lastHash, 16)
}

func TestSubtitlesByPathEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/subtitles/by-path?path=movie.mp4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSubtitlesByPathErrors(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		searchErr error
		status    int
		code      string
	}{
		{name: "no path", target: "/subtitles/by-path", status: http.StatusBadRequest, code: codeBadRequest},
		{name: "missing file", target: "/subtitles/by-path?path=gone.mp4", status: http.StatusNotFound, code: codeNotFound},
		{name: "too small", target: "/subtitles/by-path?path=Shows/ep%201.mkv", status: http.StatusBadRequest, code: codeTooSmall},
		{name: "outside root", target: "/subtitles/by-path?path=/etc/passwd", status: http.StatusBadRequest, code: codeInvalidPath},
		{name: "upstream", target: "/subtitles/by-path?path=movie.mp4", searchErr: errors.New("503"), status: http.StatusBadGateway, code: codeUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.provider.searchErr = tt.searchErr

			rec := env.do(http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeProblem(t, rec).Error)
		})
	}
}

func TestSubtitlesByMetadata(t *testing.T) {
	env := newTestEnv(t)
	env.provider.candidates = []subtitles.Candidate{{Name: "a.srt", URL: "u"}}

	rec := env.do(http.MethodGet, "/subtitles/by-metadata?title=The+Wire&season=1&episode=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, subtitles.MetadataQuery{Title: "The Wire", Season: "1", Episode: "3", Language: "eng"}, env.provider.lastQuery)

	rec = env.do(http.MethodGet, "/subtitles/by-metadata?season=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.provider.searchErr = errors.New("down")
	rec = env.do(http.MethodGet, "/subtitles/by-metadata?title=x", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSubtitleDownload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/subtitles/download/https%3A%2F%2Fdl.example%2Fsub%2F1.gz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vttContentType, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "WEBVTT"))
	assert.Contains(t, rec.Body.String(), "00:00:01.000 --> 00:00:02.500")
	assert.Equal(t, "true", rec.Header().Get(HeaderSubtitlesResolved))
	assert.Equal(t, []string{"https://dl.example/sub/1.gz"}, env.provider.downloads)

	env.provider.downloadOK = false
	rec = env.do(http.MethodGet, "/subtitles/download/https%3A%2F%2Fdl.example%2F2.gz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, subtitles.FallbackVTT, rec.Body.String())
	assert.Equal(t, "false", rec.Header().Get(HeaderSubtitlesResolved))
}

func TestSubtitleResolve(t *testing.T) {
	env := newTestEnv(t)
	env.provider.candidates = []subtitles.Candidate{
		{Name: "a.sub", URL: "https://dl.example/a", Format: "sub"},
		{Name: "b.srt", URL: "https://dl.example/b", Format: "srt"},
	}

	rec := env.do(http.MethodGet, "/subtitles/resolve/movie%2Emp4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(HeaderSubtitlesResolved))
	assert.Contains(t, rec.Body.String(), "Hello")
	assert.Equal(t, []string{"https://dl.example/b"}, env.provider.downloads)

	rec = env.do(http.MethodGet, "/subtitles/resolve/%2Fetc%2Fpasswd", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "false", rec.Header().Get(HeaderSubtitlesResolved))
	assert.Equal(t, subtitles.FallbackVTT, rec.Body.String())
}

func TestSubtitleRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.AppConfig) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RequestsPerMinute = 1
	})

	rec := env.do(http.MethodGet, "/subtitles/by-metadata?title=x", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodGet, "/subtitles/by-metadata?title=x", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Video delivery is never throttled.
	for i := 0; i < 3; i++ {
		rec = env.do(http.MethodHead, "/video/movie.mp4", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRejectedRequestsAreAudited(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.AppConfig) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RequestsPerMinute = 1
	})

	rec := env.do(http.MethodGet, "/subtitles/by-path?path=/etc/passwd", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.audit.String(), `"event_type":"media.path_rejected"`)
	assert.Contains(t, env.audit.String(), `"reason":"outside media root"`)

	rec = env.do(http.MethodGet, "/subtitles/by-metadata?title=x", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, env.audit.String(), `"event_type":"api.ratelimit"`)
}

func TestFrameErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/frame", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/frame?path=Shows", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/frame?path=movie.mp4", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, codeInternal, decodeProblem(t, rec).Error)
}

func TestLocalIP(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/ip", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"192.168.1.20"`, rec.Body.String())
}

func TestShutdownOnce(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodPost, "/shutdown", nil)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	}
	assert.Equal(t, int32(1), env.stops.Load())
	assert.Equal(t, 2, strings.Count(env.audit.String(), `"event_type":"daemon.shutdown"`))

	rec := env.do(http.MethodGet, "/shutdown", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApplyConfigSwapsRoot(t *testing.T) {
	env := newTestEnv(t)

	other := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(other, "new.avi"), bytes.Repeat([]byte{1}, 4), 0o600))

	cfg := config.Defaults()
	cfg.Media.Root = other
	cfg.Media.Confine = true
	require.NoError(t, env.server.ApplyConfig(cfg))

	rec := env.do(http.MethodGet, "/video/new.avi", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodGet, "/video/movie.mp4", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSForCastReceiver(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/video/movie.mp4", http.Header{
		"Origin": {config.CastReceiverOrigin},
		"Range":  {"bytes=0-0"},
	})
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, config.CastReceiverOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Range")
}
