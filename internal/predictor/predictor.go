// Package predictor implements the outbound ML port (spec §6.3): an HTTP
// client to an external win-probability service, wrapped in a redis-backed
// result cache and a periodically-refreshed health check.
package predictor

import (
	"context"

	"marketpulse/internal/model"
)

// PredictionResult is the Predictor port's response shape.
type PredictionResult struct {
	WinProbability float64
	QualityTier    model.QualityTier
	Confidence     float64
	ModelVersion   string
}

// Client is the outbound ML port. Predict is best-effort: callers degrade
// to rule-based confidence on any error or when Healthy reports false.
type Client interface {
	Predict(ctx context.Context, features model.Features) (PredictionResult, error)
	Healthy(ctx context.Context) bool
}
