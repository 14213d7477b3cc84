// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestContextWithRequestID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		requestID string
		want      string
	}{
		{name: "nil context", ctx: nil, requestID: "test-id-123", want: "test-id-123"},
		{name: "background context", ctx: context.Background(), requestID: "req-456", want: "req-456"},
		{name: "empty request ID", ctx: context.Background(), requestID: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(tt.ctx, tt.requestID) //nolint:staticcheck // nil is part of the contract
			assert.Equal(t, tt.want, RequestIDFromContext(ctx))
		})
	}
}

func TestRequestIDFromContextEmpty(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
	}{
		{name: "nil context", ctx: nil},
		{name: "context without request ID", ctx: context.Background()},
		{name: "context with wrong type", ctx: context.WithValue(context.Background(), requestIDKey{}, 123)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, RequestIDFromContext(tt.ctx))
		})
	}
}

func captureBase(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	mu.Lock()
	prev, prevConfigured := base, configured
	base, configured = zerolog.New(&buf), true
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		base, configured = prev, prevConfigured
		mu.Unlock()
	})
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestWithContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := WithContext(ContextWithRequestID(context.Background(), "req-123"), zerolog.New(&buf))
	l.Info().Msg("hello")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-123", entry[FieldRequestID])
	assert.NotContains(t, entry, FieldTraceID)
}

func TestWithContextWithoutFieldsReturnsLogger(t *testing.T) {
	var buf bytes.Buffer
	baseLogger := zerolog.New(&buf)

	l := WithContext(context.Background(), baseLogger)
	l.Info().Msg("plain")

	entry := decodeLine(t, &buf)
	assert.NotContains(t, entry, FieldRequestID)
}

func TestWithComponentFromContext(t *testing.T) {
	buf := captureBase(t)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	l := WithComponentFromContext(ctx, "media")
	l.Info().Msg("x")

	entry := decodeLine(t, buf)
	assert.Equal(t, "media", entry[FieldComponent])
	assert.Equal(t, "req-1", entry[FieldRequestID])
}

func TestDerive(t *testing.T) {
	buf := captureBase(t)

	l := Derive(func(ctx *zerolog.Context) {
		*ctx = ctx.Str("custom_field", "test_value")
	})
	l.Info().Msg("derived")

	entry := decodeLine(t, buf)
	assert.Equal(t, "test_value", entry["custom_field"])

	assert.NotPanics(t, func() { _ = Derive(nil) })
}

func TestWithContextTraceFields(t *testing.T) {
	t.Run("noop span", func(t *testing.T) {
		var buf bytes.Buffer
		ctx, span := noop.NewTracerProvider().Tracer("test").Start(context.Background(), "span")
		defer span.End()
		l := WithContext(ctx, zerolog.New(&buf))
		l.Info().Msg("x")
		assert.NotContains(t, decodeLine(t, &buf), FieldTraceID)
	})

	t.Run("valid span", func(t *testing.T) {
		var buf bytes.Buffer
		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		ctx := ContextWithRequestID(trace.ContextWithSpanContext(context.Background(), sc), "req-2")

		l := WithContext(ctx, zerolog.New(&buf))
		l.Info().Msg("x")

		entry := decodeLine(t, &buf)
		assert.Equal(t, "req-2", entry[FieldRequestID])
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry[FieldTraceID])
		assert.Equal(t, "00f067aa0ba902b7", entry[FieldSpanID])
	})
}
