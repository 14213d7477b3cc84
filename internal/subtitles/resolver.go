// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package subtitles

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jbfp/videocaster/internal/fingerprint"
	"github.com/jbfp/videocaster/internal/log"
	"github.com/jbfp/videocaster/internal/metrics"
)

// DefaultLanguage is the subtitle language used when none is configured.
const DefaultLanguage = "eng"

// ErrEmptySubtitle is returned when a downloaded subtitle has no text.
var ErrEmptySubtitle = errors.New("subtitles: empty subtitle")

// Candidate is one subtitle offered by the database.
type Candidate struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Encoding string `json:"-"`
	Format   string `json:"-"`
}

// IsSRT reports whether the candidate can be converted. An unknown format is
// assumed to be SRT.
func (c Candidate) IsSRT() bool {
	return c.Format == "" || strings.EqualFold(c.Format, "srt")
}

// pick returns the first convertible candidate.
func pick(candidates []Candidate) (Candidate, bool) {
	for _, c := range candidates {
		if c.IsSRT() {
			return c, true
		}
	}
	return Candidate{}, false
}

// MetadataQuery searches by title instead of file hash.
type MetadataQuery struct {
	Title    string
	Season   string
	Episode  string
	Language string
}

// Provider is the subtitle database the resolver talks to.
type Provider interface {
	SearchByHash(ctx context.Context, size int64, hash, lang string) ([]Candidate, error)
	SearchByMetadata(ctx context.Context, q MetadataQuery) ([]Candidate, error)
	// Download returns the decompressed subtitle payload and its declared
	// charset, which may be empty.
	Download(ctx context.Context, url string) ([]byte, string, error)
}

// Fingerprinter looks up the content hash of a local file.
type Fingerprinter interface {
	Lookup(path string) (fingerprint.Fingerprint, error)
}

// Resolver turns a local video file into WebVTT text. Every failure degrades
// to FallbackVTT so that a missing subtitle never blocks playback.
type Resolver struct {
	hasher    Fingerprinter
	provider  Provider
	converter *Converter
	language  string
	logger    zerolog.Logger
}

// NewResolver wires a resolver. converter is shared, not copied.
func NewResolver(hasher Fingerprinter, provider Provider, converter *Converter, language string) *Resolver {
	if language == "" {
		language = DefaultLanguage
	}
	return &Resolver{
		hasher:    hasher,
		provider:  provider,
		converter: converter,
		language:  language,
		logger:    log.WithComponent("subtitles"),
	}
}

// Language returns the configured subtitle language.
func (r *Resolver) Language() string {
	return r.language
}

// Search fingerprints path and queries the provider by hash.
func (r *Resolver) Search(ctx context.Context, path string) ([]Candidate, error) {
	fp, err := r.hasher.Lookup(path)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %s: %w", path, err)
	}

	logger := log.WithContext(ctx, r.logger)
	logger.Debug().
		Str("event", "subtitles.fingerprint").
		Str(log.FieldPath, path).
		Str(log.FieldHash, fp.Hash).
		Int64(log.FieldSize, fp.Size).
		Msg("computed video fingerprint")

	candidates, err := r.provider.SearchByHash(ctx, fp.Size, fp.Hash, r.language)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("event", "subtitles.search").
		Str(log.FieldPath, path).
		Int("count", len(candidates)).
		Msg("found subtitles")
	return candidates, nil
}

// SearchByMetadata queries the provider by title, season and episode.
func (r *Resolver) SearchByMetadata(ctx context.Context, q MetadataQuery) ([]Candidate, error) {
	if q.Language == "" {
		q.Language = r.language
	}
	return r.provider.SearchByMetadata(ctx, q)
}

// Resolve finds, downloads and converts the first SRT subtitle for path.
// The boolean reports whether real subtitles were found.
func (r *Resolver) Resolve(ctx context.Context, path string) ([]byte, bool) {
	logger := log.WithContext(ctx, r.logger)

	candidates, err := r.Search(ctx, path)
	if err != nil {
		logger.Warn().Err(err).Str("event", "subtitles.resolve_failed").Str(log.FieldPath, path).Msg("subtitle search failed, serving fallback")
		metrics.IncSubtitleLookup("resolve", "fallback")
		return []byte(FallbackVTT), false
	}
	if len(candidates) == 0 {
		logger.Info().Str("event", "subtitles.resolve_empty").Str(log.FieldPath, path).Msg("no subtitles found, serving fallback")
		metrics.IncSubtitleLookup("resolve", "empty")
		return []byte(FallbackVTT), false
	}

	best, ok := pick(candidates)
	if !ok {
		logger.Info().Str("event", "subtitles.resolve_unsupported").Str(log.FieldPath, path).Int("count", len(candidates)).Msg("no SRT subtitles among results, serving fallback")
		metrics.IncSubtitleLookup("resolve", "empty")
		return []byte(FallbackVTT), false
	}
	vtt, err := r.fetch(ctx, best.URL, best.Encoding)
	if err != nil {
		logger.Warn().Err(err).Str("event", "subtitles.download_failed").Str("name", best.Name).Msg("subtitle download failed, serving fallback")
		metrics.IncSubtitleLookup("resolve", "fallback")
		return []byte(FallbackVTT), false
	}

	metrics.IncSubtitleLookup("resolve", "found")
	return vtt, true
}

// Fetch downloads and converts one subtitle URL, falling back like Resolve.
func (r *Resolver) Fetch(ctx context.Context, url string) ([]byte, bool) {
	vtt, err := r.fetch(ctx, url, "")
	if err != nil {
		logger := log.WithContext(ctx, r.logger)
		logger.Warn().
			Err(err).
			Str("event", "subtitles.download_failed").
			Msg("subtitle download failed, serving fallback")
		metrics.IncSubtitleLookup("download", "fallback")
		return []byte(FallbackVTT), false
	}
	metrics.IncSubtitleLookup("download", "found")
	return vtt, true
}

func (r *Resolver) fetch(ctx context.Context, url, charset string) ([]byte, error) {
	data, declared, err := r.provider.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	if declared != "" {
		charset = declared
	}
	text := DecodeText(data, charset)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptySubtitle
	}
	return []byte(r.converter.Convert(text)), nil
}

// HashSearchURL renders the hash search path the subtitle database indexes by.
func HashSearchURL(base string, size int64, hash, lang string) string {
	return strings.TrimSuffix(base, "/") +
		"/search/moviebytesize-" + strconv.FormatInt(size, 10) +
		"/moviehash-" + hash +
		"/sublanguageid-" + lang
}
