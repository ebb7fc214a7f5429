package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	traceIDKey contextKey = "trace_id"
)

// GenerateTraceID returns a random 16-byte hex trace ID.
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext retrieves the logger stashed in ctx, or Default() if none.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext returns a context carrying l.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithTraceContext stamps ctx with a fresh trace ID and returns a logger
// carrying it.
func WithTraceContext(ctx context.Context) (context.Context, *Logger) {
	traceID := GenerateTraceID()
	l := Default().WithTraceID(traceID)
	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, loggerKey, l)
	return newCtx, l
}

// DetectorContext scopes a logger to a detector's alert-generation calls.
func DetectorContext(symbol, detector string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"symbol":   symbol,
		"detector": detector,
	}).WithComponent("detector")
}

// SignalContext scopes a logger to a fused signal's lifecycle.
func SignalContext(signalID, symbol string, confluenceScore float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"signal_id":        signalID,
		"symbol":           symbol,
		"confluence_score": confluenceScore,
	}).WithComponent("signalengine")
}

// SchedulerContext scopes a logger to one cadence's tick.
func SchedulerContext(cadence string) *Logger {
	return Default().WithField("cadence", cadence).WithComponent("scheduler")
}
