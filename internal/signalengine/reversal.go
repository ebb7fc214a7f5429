package signalengine

import (
	"marketpulse/internal/clock"
	"marketpulse/internal/detectors"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// ReversalConfig holds the per-trigger confidence contributions and the
// RSI extreme bands.
type ReversalConfig struct {
	RSIOverbought      float64 // default 70
	RSIOversold        float64 // default 30
	ExtremeFundingRate float64 // default 0.1
	VolumeClimax       float64 // default 5 (multiplier)

	RSIExtremeScore   float64 // default 20
	RSIDivergenceScore float64 // default 25
	FundingScore      float64 // default 20
	OIDivergenceScore float64 // default 15
	VolumeClimaxScore float64 // default 20
}

// DefaultReversalConfig returns spec §4.3 defaults.
func DefaultReversalConfig() ReversalConfig {
	return ReversalConfig{
		RSIOverbought: 70, RSIOversold: 30, ExtremeFundingRate: 0.1, VolumeClimax: 5,
		RSIExtremeScore: 20, RSIDivergenceScore: 25, FundingScore: 20, OIDivergenceScore: 15, VolumeClimaxScore: 20,
	}
}

// ReversalEngine accumulates independent reversal triggers per symbol.
// It depends on detectors (reading their raw accessors and alerts) but no
// detector depends back on it: the dependency is one-way, owned by the
// composition root, same as TopPicker.
type ReversalEngine struct {
	store          *marketstore.Store
	multiTimeframe *detectors.MultiTimeframeDetector
	funding        *detectors.FundingDetector
	openInterest   *detectors.OpenInterestDetector
	volume         *detectors.VolumeDetector
	clock          clock.Clock
	cfg            ReversalConfig
}

// NewReversalEngine creates a ReversalEngine.
func NewReversalEngine(store *marketstore.Store, mtf *detectors.MultiTimeframeDetector, funding *detectors.FundingDetector, oi *detectors.OpenInterestDetector, volume *detectors.VolumeDetector, c clock.Clock, cfg ReversalConfig) *ReversalEngine {
	def := DefaultReversalConfig()
	if cfg.RSIExtremeScore <= 0 {
		cfg = def
	}
	return &ReversalEngine{store: store, multiTimeframe: mtf, funding: funding, openInterest: oi, volume: volume, clock: c, cfg: cfg}
}

// trigger is one fired reversal condition; direction is the reversal's
// implied direction (opposite the exhausted move), reason is the label
// recorded on the alert.
type trigger struct {
	score     float64
	reason    string
	direction model.Direction
}

// Detect evaluates every symbol currently in the store, returning at most
// one ReversalAlert per symbol. Direction is taken from the first trigger
// to fire, in priority order: RSI extreme, RSI divergence, extreme funding,
// OI divergence, volume climax.
func (e *ReversalEngine) Detect() []model.ReversalAlert {
	snap := e.store.SnapshotAll()
	mtfAlerts := indexMTFBySymbol(e.multiTimeframe.Detect())
	volAlerts := indexVolumeBySymbol(e.volume.Detect())

	out := make([]model.ReversalAlert, 0)
	for symbol, st := range snap {
		var triggers []trigger

		if rsi, ok := e.multiTimeframe.RSI1hFor(symbol); ok {
			switch {
			case rsi >= e.cfg.RSIOverbought:
				triggers = append(triggers, trigger{e.cfg.RSIExtremeScore, "rsi overbought", model.Short})
			case rsi <= e.cfg.RSIOversold:
				triggers = append(triggers, trigger{e.cfg.RSIExtremeScore, "rsi oversold", model.Long})
			}
		}

		if mtf, ok := mtfAlerts[symbol]; ok {
			switch mtf.Divergence {
			case model.DivergenceBullish:
				triggers = append(triggers, trigger{e.cfg.RSIDivergenceScore, "bullish divergence", model.Long})
			case model.DivergenceBearish:
				triggers = append(triggers, trigger{e.cfg.RSIDivergenceScore, "bearish divergence", model.Short})
			}
		}

		if rate, ok := e.funding.RateFor(symbol); ok && absF(rate) >= e.cfg.ExtremeFundingRate {
			dir := model.Short
			if rate < 0 {
				dir = model.Long
			}
			triggers = append(triggers, trigger{e.cfg.FundingScore, "extreme funding", dir})
		}

		if oiChange, ok := e.openInterest.ChangePctFor(symbol); ok {
			priceChange := st.Current.PriceChangePercent
			if oiChange < 0 && priceChange > 0 {
				triggers = append(triggers, trigger{e.cfg.OIDivergenceScore, "oi divergence", model.Short})
			} else if oiChange > 0 && priceChange < 0 {
				triggers = append(triggers, trigger{e.cfg.OIDivergenceScore, "oi divergence", model.Long})
			}
		}

		if vol, ok := volAlerts[symbol]; ok && vol.Multiplier >= e.cfg.VolumeClimax {
			dir := model.Short
			if vol.Direction == model.Short {
				dir = model.Long
			}
			triggers = append(triggers, trigger{e.cfg.VolumeClimaxScore, "volume climax", dir})
		}

		if len(triggers) == 0 {
			continue
		}

		var confidence float64
		reasons := make([]string, 0, len(triggers))
		for _, t := range triggers {
			confidence += t.score
			reasons = append(reasons, t.reason)
		}
		if confidence > 100 {
			confidence = 100
		}

		out = append(out, model.ReversalAlert{
			Symbol:     symbol,
			Confidence: confidence,
			Triggers:   reasons,
			Direction:  triggers[0].direction,
			Timestamp:  e.clock.Now(),
		})
	}

	detectors.SortBySymbol(out,
		func(a, b model.ReversalAlert) bool { return a.Confidence > b.Confidence },
		func(a model.ReversalAlert) string { return a.Symbol },
	)
	return out
}

func indexMTFBySymbol(alerts []detectors.Alert) map[string]model.MultiTimeframeAlert {
	out := make(map[string]model.MultiTimeframeAlert, len(alerts))
	for _, a := range alerts {
		v := a.(model.MultiTimeframeAlert)
		out[v.Symbol] = v
	}
	return out
}

func indexVolumeBySymbol(alerts []detectors.Alert) map[string]model.VolumeAlert {
	out := make(map[string]model.VolumeAlert, len(alerts))
	for _, a := range alerts {
		v := a.(model.VolumeAlert)
		out[v.Symbol] = v
	}
	return out
}
