// SPDX-License-Identifier: MIT

// Package audit records security relevant daemon events as structured log
// lines tagged log_type=audit: who asked, what was attempted, on which
// resource, and the outcome.
package audit

import (
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jbfp/videocaster/internal/log"
)

// EventType names an audit event.
type EventType string

const (
	EventShutdown          EventType = "daemon.shutdown"
	EventConfigReload      EventType = "config.reload"
	EventConfigReloadError EventType = "config.reload.error"
	EventPathRejected      EventType = "media.path_rejected"
	EventRateLimited       EventType = "api.ratelimit"
)

// Results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDenied  = "denied"
)

// ActorSystem is the actor of events the daemon triggers itself.
const ActorSystem = "system"

// Event is one audit record.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Actor     string // client IP or ActorSystem
	Action    string
	Resource  string
	Result    string
	UserAgent string
	RequestID string
	Details   map[string]string
}

// Logger writes audit events. The zero value is not usable; use NewLogger.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger returns a Logger on the "audit" component.
func NewLogger() *Logger {
	return &Logger{logger: log.WithComponent("audit").With().Str("log_type", "audit").Logger()}
}

// NewLoggerWith writes to l, for tests.
func NewLoggerWith(l zerolog.Logger) *Logger {
	return &Logger{logger: l.With().Str("log_type", "audit").Logger()}
}

// Log writes event, stamping it with the current time when unset.
func (l *Logger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ev := l.logger.Info().
		Time("at", event.Timestamp).
		Str("event_type", string(event.Type)).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("result", event.Result)
	if event.UserAgent != "" {
		ev = ev.Str("user_agent", event.UserAgent)
	}
	if event.RequestID != "" {
		ev = ev.Str(log.FieldRequestID, event.RequestID)
	}
	for k, v := range event.Details {
		ev = ev.Str(k, v)
	}
	ev.Msg("audit event")
}

// LogRequest fills actor, user agent and request id from r before logging.
func (l *Logger) LogRequest(r *http.Request, event Event) {
	if event.Actor == "" {
		event.Actor = clientIP(r)
	}
	if event.UserAgent == "" {
		event.UserAgent = r.UserAgent()
	}
	if event.RequestID == "" {
		event.RequestID = log.RequestIDFromContext(r.Context())
	}
	l.Log(event)
}

// ShutdownRequested records a remote shutdown request.
func (l *Logger) ShutdownRequested(r *http.Request, accepted bool) {
	result := ResultSuccess
	if !accepted {
		result = ResultFailure
	}
	l.LogRequest(r, Event{
		Type:     EventShutdown,
		Action:   "requested daemon shutdown",
		Resource: r.URL.Path,
		Result:   result,
	})
}

// PathRejected records a request for a path outside the media library or
// otherwise unusable.
func (l *Logger) PathRejected(r *http.Request, path, reason string) {
	l.LogRequest(r, Event{
		Type:     EventPathRejected,
		Action:   "requested media path",
		Resource: path,
		Result:   ResultDenied,
		Details:  map[string]string{"reason": reason},
	})
}

// RateLimited records a request refused by a rate limiter.
func (l *Logger) RateLimited(r *http.Request) {
	l.LogRequest(r, Event{
		Type:     EventRateLimited,
		Action:   "rate limit exceeded",
		Resource: r.URL.Path,
		Result:   ResultDenied,
	})
}

// ConfigReload records the outcome of a configuration reload. err is nil on
// success.
func (l *Logger) ConfigReload(source string, err error) {
	event := Event{
		Type:     EventConfigReload,
		Actor:    ActorSystem,
		Action:   "reloaded configuration",
		Resource: source,
		Result:   ResultSuccess,
	}
	if err != nil {
		event.Type = EventConfigReloadError
		event.Result = ResultFailure
		event.Details = map[string]string{"error": err.Error()}
	}
	l.Log(event)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
