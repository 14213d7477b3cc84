// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package opensubtitles is a client for the rest.opensubtitles.org search API.
package opensubtitles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/jbfp/videocaster/internal/log"
	"github.com/jbfp/videocaster/internal/metrics"
	"github.com/jbfp/videocaster/internal/platform/httpx"
	platformnet "github.com/jbfp/videocaster/internal/platform/net"
	"github.com/jbfp/videocaster/internal/subtitles"
	"github.com/jbfp/videocaster/internal/telemetry"
)

const (
	// DefaultBaseURL is the public REST endpoint.
	DefaultBaseURL = "https://rest.opensubtitles.org"
	// DefaultUserAgent is the registered user agent. The API rejects unknown agents.
	DefaultUserAgent = "videocaster 1.0.0"

	maxSearchBytes   = 4 << 20
	maxDownloadBytes = 16 << 20
)

var (
	// ErrUpstream wraps non-success answers from the API.
	ErrUpstream = errors.New("opensubtitles: upstream error")
	// ErrDownloadNotAllowed is returned for download URLs outside the allowlist.
	ErrDownloadNotAllowed = errors.New("opensubtitles: download url not allowed")
)

// Config configures a Client.
type Config struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64 // <= 0 disables throttling
	Burst             int
	CacheSize         int // <= 0 disables the search cache
	CacheTTL          time.Duration

	// DownloadPolicy restricts Download. A disabled policy allows any
	// http(s) URL.
	DownloadPolicy platformnet.OutboundPolicy
}

// apiSubtitle is the subset of a search result we use.
type apiSubtitle struct {
	SubFileName     string `json:"SubFileName"`
	SubDownloadLink string `json:"SubDownloadLink"`
	SubEncoding     string `json:"SubEncoding"`
	SubFormat       string `json:"SubFormat"`
	SubLanguageID   string `json:"SubLanguageID"`
}

// Client implements subtitles.Provider.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	cache     *expirable.LRU[string, []subtitles.Candidate]
	guard     *platformnet.OutboundGuard
	resolver  platformnet.HostResolver
	logger    zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default traced client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithResolver sets the DNS resolver used by the download allowlist.
func WithResolver(r platformnet.HostResolver) Option {
	return func(cl *Client) { cl.resolver = r }
}

var _ subtitles.Provider = (*Client)(nil)

// New builds a client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	c := &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      httpx.NewClient(cfg.Timeout),
		limiter:   rate.NewLimiter(rate.Inf, 0),
		logger:    log.WithComponent("opensubtitles"),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if cfg.CacheSize > 0 {
		c.cache = expirable.NewLRU[string, []subtitles.Candidate](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.DownloadPolicy.Enabled {
		guard, err := platformnet.NewOutboundGuard(cfg.DownloadPolicy, c.resolver)
		if err != nil {
			return nil, fmt.Errorf("download allowlist: %w", err)
		}
		c.guard = guard

		hc := *c.http
		hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			if _, err := guard.Validate(req.Context(), req.URL.String()); err != nil {
				return fmt.Errorf("%w: redirect: %v", ErrDownloadNotAllowed, err)
			}
			return nil
		}
		c.http = &hc
	}
	return c, nil
}

// SearchByHash looks subtitles up by file size and fingerprint.
func (c *Client) SearchByHash(ctx context.Context, size int64, hash, lang string) ([]subtitles.Candidate, error) {
	return c.search(ctx, "search_hash", hash, lang, subtitles.HashSearchURL(c.baseURL, size, hash, lang))
}

// SearchByMetadata looks subtitles up by title and optional season and episode.
func (c *Client) SearchByMetadata(ctx context.Context, q subtitles.MetadataQuery) ([]subtitles.Candidate, error) {
	return c.search(ctx, "search_metadata", "", q.Language, MetadataSearchURL(c.baseURL, q))
}

func (c *Client) search(ctx context.Context, op, hash, lang, url string) (result []subtitles.Candidate, err error) {
	logger := log.WithContext(ctx, c.logger)

	if c.cache != nil {
		if cached, ok := c.cache.Get(url); ok {
			metrics.IncUpstreamCache(true)
			return cached, nil
		}
		metrics.IncUpstreamCache(false)
	}

	ctx, span := telemetry.Tracer("opensubtitles").Start(ctx, "opensubtitles."+op)
	defer func() {
		span.SetAttributes(telemetry.SubtitleAttributes(op, hash, lang, len(result))...)
		if err != nil {
			recordError(span, err)
		}
		span.End()
	}()

	logger.Info().Str("event", "opensubtitles.search").Str("op", op).Str("url", url).Msg("searching subtitles")

	body, _, err := c.get(ctx, op, url, maxSearchBytes)
	if err != nil {
		return nil, err
	}

	var raw []apiSubtitle
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", ErrUpstream, op, err)
	}

	result = make([]subtitles.Candidate, 0, len(raw))
	for _, s := range raw {
		if s.SubDownloadLink == "" {
			continue
		}
		result = append(result, subtitles.Candidate{
			Name:     s.SubFileName,
			URL:      s.SubDownloadLink,
			Encoding: s.SubEncoding,
			Format:   s.SubFormat,
		})
	}

	if c.cache != nil {
		c.cache.Add(url, result)
	}
	return result, nil
}

// Download fetches one subtitle file. Gzip payloads are decompressed; the
// returned charset comes from the Content-Type header and may be empty.
func (c *Client) Download(ctx context.Context, url string) ([]byte, string, error) {
	if c.guard != nil {
		normalized, err := c.guard.Validate(ctx, url)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrDownloadNotAllowed, err)
		}
		url = normalized
	} else if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, "", fmt.Errorf("%w: %s", ErrDownloadNotAllowed, platformnet.SanitizeURL(url))
	}

	ctx, span := telemetry.Tracer("opensubtitles").Start(ctx, "opensubtitles.download")
	defer span.End()

	logger := log.WithContext(ctx, c.logger)
	logger.Info().
		Str("event", "opensubtitles.download").
		Str("url", platformnet.SanitizeURL(url)).
		Msg("downloading subtitle")

	body, contentType, err := c.get(ctx, "download", url, maxDownloadBytes)
	if err != nil {
		recordError(span, err)
		return nil, "", err
	}

	data, err := gunzip(body, maxDownloadBytes)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrUpstream, err)
		recordError(span, err)
		return nil, "", err
	}
	return data, charsetOf(contentType), nil
}

func (c *Client) get(ctx context.Context, op, url string, limit int64) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	body, contentType, err := c.do(req, op, limit)
	metrics.ObserveUpstreamRequest(op, time.Since(start), err)
	return body, contentType, err
}

func (c *Client) do(req *http.Request, op string, limit int64) ([]byte, string, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%s request: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("%w: %s returned %d", ErrUpstream, op, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s response: %w", op, err)
	}
	if int64(len(body)) > limit {
		return nil, "", fmt.Errorf("%w: %s response exceeds %d bytes", ErrUpstream, op, limit)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func recordError(span trace.Span, err error) {
	kind := "transport"
	switch {
	case errors.Is(err, ErrUpstream):
		kind = "upstream"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = "canceled"
	}
	span.SetAttributes(telemetry.ErrorAttributes(err, kind)...)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
