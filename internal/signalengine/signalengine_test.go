package signalengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/model"
)

// TestFuse_Scenario reproduces the worked fusion example: six weighted
// components, one neutral. Applying calculateConfluence exactly as defined
// to these literal inputs yields net=54.5 (bullish contributions
// 12+10.5+11+5+16, funding's neutral direction contributing 0), confluence
// 54.5 over W=100, aligned=5/6 non-neutral-matching components, and
// confidence = min(100, 54.5 + 5/6*20) ≈ 71.17.
func TestFuse_Scenario(t *testing.T) {
	components := []model.SignalComponent{
		{Name: "PriceMovement", Direction: model.Bullish, Strength: 60, Weight: 20},
		{Name: "Volume", Direction: model.Bullish, Strength: 70, Weight: 15},
		{Name: "Velocity", Direction: model.Bullish, Strength: 55, Weight: 20},
		{Name: "Funding", Direction: model.ComponentNeutral, Strength: 30, Weight: 15},
		{Name: "OpenInterest", Direction: model.Bullish, Strength: 50, Weight: 10},
		{Name: "MultiTimeframe", Direction: model.Bullish, Strength: 80, Weight: 20},
	}

	result := Fuse(components)

	require.Equal(t, 100.0, result.WeightSum)
	assert.InDelta(t, 54.5, result.Net, 1e-9)
	assert.InDelta(t, 54.5, result.Confluence, 1e-9)
	assert.Equal(t, 5, result.Aligned)
	wantConfidence := 54.5 + 5.0/6.0*20
	assert.InDelta(t, wantConfidence, result.Confidence, 1e-6)
	assert.Equal(t, model.Long, result.Direction)
}

func TestFuse_NoComponents(t *testing.T) {
	result := Fuse(nil)
	assert.Equal(t, model.Neutral, result.Direction)
	assert.Zero(t, result.Confidence)
	assert.Zero(t, result.Confluence)
}

// TestFuse_DirectionBand checks the ±10 net band independently of the
// worked scenario's specific numbers.
func TestFuse_DirectionBand(t *testing.T) {
	weak := []model.SignalComponent{{Name: "PriceMovement", Direction: model.Bullish, Strength: 10, Weight: 20}}
	assert.Equal(t, model.Neutral, Fuse(weak).Direction, "expected NEUTRAL for net within ±10")

	strong := []model.SignalComponent{{Name: "PriceMovement", Direction: model.Bearish, Strength: 90, Weight: 20}}
	assert.Equal(t, model.Short, Fuse(strong).Direction, "expected SHORT for strongly bearish net")
}

// TestBlendConfidence_Scenario reproduces the worked ML blend example:
// ml=80, ruleConf=70, default weights. base = 80*0.6 + 70*0.4 = 76; both
// exceed 60 so the agreement bonus applies (×1.1 = 83.6); the two inputs
// differ by only 10 (≤30) so the disagreement penalty does not apply.
func TestBlendConfidence_Scenario(t *testing.T) {
	got := blendConfidence(80, 70, DefaultMLBlendConfig())
	assert.InDelta(t, 83.6, got, 1e-9)
}

// TestBlendConfidence_EqualWeightsIdentity is the §8 invariant: when
// w_ml+w_rule=1 and ml=ruleConf=50, the blend must equal the
// non-penalised/non-boosted formula (50*w_ml + 50*w_rule = 50), since 50 is
// in neither the agreement band (both>60 or both<40) nor does it ever
// diverge from itself.
func TestBlendConfidence_EqualWeightsIdentity(t *testing.T) {
	cfg := MLBlendConfig{MLWeight: 0.6, RuleWeight: 0.4}
	got := blendConfidence(50, 50, cfg)
	assert.InDelta(t, 50.0, got, 1e-9)
}

func TestBlendConfidence_DisagreementPenalty(t *testing.T) {
	// ml=90, ruleConf=20: base = 54+8=62, diff=70>30 so ×0.9 = 55.8.
	// Both sides are not simultaneously >60 or <40, so no agreement bonus.
	got := blendConfidence(90, 20, DefaultMLBlendConfig())
	want := (90*0.6 + 20*0.4) * 0.9
	assert.InDelta(t, want, got, 1e-9)
}

func TestBlendConfidence_ClampedToRange(t *testing.T) {
	got := blendConfidence(100, 100, MLBlendConfig{MLWeight: 1, RuleWeight: 1})
	assert.Equal(t, 100.0, got)
}

// TestSelectEntryType_PriorityOrder covers the first-match-wins ordering.
func TestSelectEntryType_PriorityOrder(t *testing.T) {
	cases := []struct {
		name       string
		divergence model.MTFDivergence
		funding    float64
		volume     float64
		velocity   float64
		mtf        float64
		want       model.EntryType
	}{
		{"divergence wins", model.DivergenceBullish, 0, 0, 0, 0, model.EntryReversal},
		{"extreme funding wins", model.DivergenceNone, 75, 0, 0, 0, model.EntryReversal},
		{"early beats breakout", model.DivergenceNone, 0, 65, 30, 90, model.EntryEarly},
		{"breakout", model.DivergenceNone, 0, 0, 80, 65, model.EntryBreakout},
		{"momentum default", model.DivergenceNone, 0, 0, 0, 0, model.EntryMomentum},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := selectEntryType(c.divergence, c.funding, c.volume, c.velocity, c.mtf)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestSelectRiskLevel_Bands(t *testing.T) {
	assert.Equal(t, model.RiskLow, selectRiskLevel(75, 4))
	assert.Equal(t, model.RiskMedium, selectRiskLevel(60, 3))
	assert.Equal(t, model.RiskHigh, selectRiskLevel(60, 2), "insufficient strong components")
	assert.Equal(t, model.RiskHigh, selectRiskLevel(30, 5), "insufficient confluence")
}
