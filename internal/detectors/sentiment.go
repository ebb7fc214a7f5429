package detectors

import (
	"marketpulse/internal/clock"
	"marketpulse/internal/indicatorkit"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// FundingRateProvider supplies the raw funding rate Sentiment composes
// into its greed/fear score.
type FundingRateProvider interface {
	RateFor(symbol string) (float64, bool)
}

// OIChangeProvider supplies the raw OI delta percentage Sentiment composes
// into its greed/fear score.
type OIChangeProvider interface {
	ChangePctFor(symbol string) (float64, bool)
}

// SentimentConfig holds the composite's component weights.
type SentimentConfig struct {
	FundingWeight    float64 // default 0.30
	MomentumWeight   float64 // default 0.35
	VolatilityWeight float64 // default 0.15
	OIWeight         float64 // default 0.20
}

// DefaultSentimentConfig returns spec §4.2 defaults.
func DefaultSentimentConfig() SentimentConfig {
	return SentimentConfig{FundingWeight: 0.30, MomentumWeight: 0.35, VolatilityWeight: 0.15, OIWeight: 0.20}
}

// SentimentDetector reduces per-symbol funding, momentum, volatility, and
// OI into a 0-100 greed/fear composite, plus a market-wide aggregate.
type SentimentDetector struct {
	store   *marketstore.Store
	funding FundingRateProvider
	oi      OIChangeProvider
	clock   clock.Clock
	cfg     SentimentConfig
}

// NewSentimentDetector creates a Sentiment detector.
func NewSentimentDetector(store *marketstore.Store, funding FundingRateProvider, oi OIChangeProvider, c clock.Clock, cfg SentimentConfig) *SentimentDetector {
	if cfg.FundingWeight == 0 && cfg.MomentumWeight == 0 && cfg.VolatilityWeight == 0 && cfg.OIWeight == 0 {
		cfg = DefaultSentimentConfig()
	}
	return &SentimentDetector{store: store, funding: funding, oi: oi, clock: c, cfg: cfg}
}

func (d *SentimentDetector) Name() string { return "sentiment" }

func bandFor(score float64) model.SentimentBand {
	switch {
	case score <= 20:
		return model.SentimentExtremeFear
	case score <= 40:
		return model.SentimentFear
	case score < 60:
		return model.SentimentNeutral
	case score < 80:
		return model.SentimentGreed
	default:
		return model.SentimentExtremeGreed
	}
}

// componentScore normalizes a signed metric into a 0-100 greed axis, where
// 50 is neutral, clamped at ±maxMagnitude.
func componentScore(value, maxMagnitude float64) float64 {
	return indicatorkit.Clamp(50+(value/maxMagnitude)*50, 0, 100)
}

func (d *SentimentDetector) scoreSymbol(symbol string, st model.SymbolState) (float64, bool) {
	var weightSum float64
	var weighted float64

	if rate, ok := d.funding.RateFor(symbol); ok {
		weighted += componentScore(rate, 0.1) * d.cfg.FundingWeight
		weightSum += d.cfg.FundingWeight
	}
	if len(st.PriceHistory) >= 2 {
		first := st.PriceHistory[0]
		last := st.PriceHistory[len(st.PriceHistory)-1]
		minutes := last.Ts.Sub(first.Ts).Minutes()
		if minutes > 0 && first.Price != 0 {
			velocity := (last.Price - first.Price) / first.Price * 100 / minutes
			weighted += componentScore(velocity, 1) * d.cfg.MomentumWeight
			weightSum += d.cfg.MomentumWeight
		}
	}
	weighted += componentScore(st.Current.PriceChangePercent, 25) * d.cfg.VolatilityWeight
	weightSum += d.cfg.VolatilityWeight
	if oiChange, ok := d.oi.ChangePctFor(symbol); ok {
		weighted += componentScore(oiChange, 10) * d.cfg.OIWeight
		weightSum += d.cfg.OIWeight
	}

	if weightSum == 0 {
		return 0, false
	}
	return weighted / weightSum, true
}

// Detect implements Detector.
func (d *SentimentDetector) Detect() []Alert {
	snap := d.store.SnapshotAll()
	alerts := make([]model.SentimentAlert, 0, len(snap))

	for symbol, st := range snap {
		score, ok := d.scoreSymbol(symbol, st)
		if !ok {
			continue
		}
		dir := model.Long
		if score < 50 {
			dir = model.Short
		}
		alerts = append(alerts, model.SentimentAlert{
			Symbol:    symbol,
			Score:     score,
			Band:      bandFor(score),
			Direction: dir,
			Timestamp: d.clock.Now(),
		})
	}

	sortBySymbol(alerts,
		func(a, b model.SentimentAlert) bool { return a.Score > b.Score },
		func(a model.SentimentAlert) string { return a.Symbol },
	)

	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
	}
	return out
}

// Market reduces every symbol's composite into one market-wide
// MarketSentiment.
func (d *SentimentDetector) Market() model.MarketSentiment {
	snap := d.store.SnapshotAll()
	var total float64
	var count int
	for symbol, st := range snap {
		if score, ok := d.scoreSymbol(symbol, st); ok {
			total += score
			count++
		}
	}
	if count == 0 {
		return model.MarketSentiment{Score: 50, Band: model.SentimentNeutral}
	}
	avg := total / float64(count)
	return model.MarketSentiment{Score: avg, Band: bandFor(avg), SymbolCount: count}
}
