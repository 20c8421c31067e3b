package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds operation-scoped logging context threaded through the
// discovery/writer/reader/transport call chains.
type LogContext struct {
	TraceID         string    // OpenTelemetry trace ID
	SpanID          string    // OpenTelemetry span ID
	Module          string    // discovery, writer, reader, transport, congestion
	ParticipantGUID string    // owning participant GUID prefix, hex
	Dialect         string    // vendor dialect selected for the peer, if any
	StartTime       time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for the given participant GUID
func NewLogContext(participantGUID string) *LogContext {
	return &LogContext{
		ParticipantGUID: participantGUID,
		StartTime:       time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:         lc.TraceID,
		SpanID:          lc.SpanID,
		Module:          lc.Module,
		ParticipantGUID: lc.ParticipantGUID,
		Dialect:         lc.Dialect,
		StartTime:       lc.StartTime,
	}
}

// WithModule returns a copy with the module set
func (lc *LogContext) WithModule(module string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Module = module
	}
	return clone
}

// WithDialect returns a copy with the vendor dialect set
func (lc *LogContext) WithDialect(dialect string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Dialect = dialect
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
