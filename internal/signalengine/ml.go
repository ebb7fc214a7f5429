package signalengine

import (
	"context"

	"marketpulse/internal/model"
	"marketpulse/internal/predictor"
)

// Predictor is the outbound ML port. Implementations (internal/predictor)
// are best-effort: any error or unhealthy state degrades the engine back to
// rule-based confidence, never blocking signal emission.
type Predictor interface {
	Predict(ctx context.Context, features model.Features) (predictor.PredictionResult, error)
	Healthy(ctx context.Context) bool
}

// MLBlendConfig holds the blend weights; the agreement/disagreement bands
// are fixed in blendConfidence.
type MLBlendConfig struct {
	MLWeight   float64 // default 0.6
	RuleWeight float64 // default 0.4
}

// DefaultMLBlendConfig returns spec §4.3 defaults.
func DefaultMLBlendConfig() MLBlendConfig {
	return MLBlendConfig{MLWeight: 0.6, RuleWeight: 0.4}
}

// blendConfidence implements the ML enhancement formula: base is the
// weighted blend of ml and rule confidence, boosted ×1.1 when both sides
// agree (both > 60 or both < 40), penalised ×0.9 when they diverge by more
// than 30 points, then clamped to [0,100].
func blendConfidence(ml, ruleConfidence float64, cfg MLBlendConfig) float64 {
	base := ml*cfg.MLWeight + ruleConfidence*cfg.RuleWeight

	agree := (ml > 60 && ruleConfidence > 60) || (ml < 40 && ruleConfidence < 40)
	if agree {
		base *= 1.1
	}
	if absF(ml-ruleConfidence) > 30 {
		base *= 0.9
	}

	if base < 0 {
		return 0
	}
	if base > 100 {
		return 100
	}
	return base
}
