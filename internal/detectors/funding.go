package detectors

import (
	"context"
	"math"
	"sync"

	"marketpulse/internal/clock"
	"marketpulse/internal/exchange"
	"marketpulse/internal/indicatorkit"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// FundingConfig holds the extreme-rate and squeeze thresholds.
type FundingConfig struct {
	ExtremeRate     float64 // default 0.1
	SqueezeRate     float64 // default 0.05
	SqueezeChange24h float64 // default 5
}

// DefaultFundingConfig returns spec §4.2 defaults.
func DefaultFundingConfig() FundingConfig {
	return FundingConfig{ExtremeRate: 0.1, SqueezeRate: 0.05, SqueezeChange24h: 5}
}

// FundingDetector polls the exchange's perpetual funding rates on the
// scheduler's funding/OI cadence (120s by default; driven externally by the
// scheduler calling Update) and classifies them
// against the symbol's 24h change.
type FundingDetector struct {
	store  *marketstore.Store
	client exchange.RESTClient
	clock  clock.Clock
	cfg    FundingConfig

	mu    sync.RWMutex
	rates map[string]exchange.FundingRate
}

// NewFundingDetector creates a Funding detector.
func NewFundingDetector(store *marketstore.Store, client exchange.RESTClient, c clock.Clock, cfg FundingConfig) *FundingDetector {
	if cfg.ExtremeRate <= 0 {
		cfg.ExtremeRate = 0.1
	}
	if cfg.SqueezeRate <= 0 {
		cfg.SqueezeRate = 0.05
	}
	if cfg.SqueezeChange24h <= 0 {
		cfg.SqueezeChange24h = 5
	}
	return &FundingDetector{store: store, client: client, clock: c, cfg: cfg, rates: make(map[string]exchange.FundingRate)}
}

func (d *FundingDetector) Name() string { return "funding" }

// RateFor returns the last-polled raw funding rate for symbol. Sentiment
// composes this directly rather than reading FundingDetector's alerts, to
// stay independent of Funding's own emit threshold.
func (d *FundingDetector) RateFor(symbol string) (float64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rates[symbol]
	return r.Rate, ok
}

// Update implements Updater: refreshes the funding-rate cache.
func (d *FundingDetector) Update(ctx context.Context) error {
	rates, err := d.client.GetFundingRates(ctx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range rates {
		d.rates[r.Symbol] = r
	}
	return nil
}

// Detect implements Detector.
func (d *FundingDetector) Detect() []Alert {
	snap := d.store.SnapshotAll()

	d.mu.RLock()
	defer d.mu.RUnlock()

	alerts := make([]model.FundingAlert, 0, len(d.rates))
	for symbol, rate := range d.rates {
		st, ok := snap[symbol]
		if !ok {
			continue
		}
		change24h := st.Current.PriceChangePercent

		signal := model.FundingNormal
		switch {
		case rate.Rate < -d.cfg.SqueezeRate && change24h < -d.cfg.SqueezeChange24h:
			signal = model.FundingLongSqueeze
		case rate.Rate > d.cfg.SqueezeRate && change24h > d.cfg.SqueezeChange24h:
			signal = model.FundingShortSqueeze
		case rate.Rate > d.cfg.ExtremeRate:
			signal = model.FundingExtremePositive
		case rate.Rate < -d.cfg.ExtremeRate:
			signal = model.FundingExtremeNegative
		default:
			continue
		}

		strength := indicatorkit.Clamp(math.Abs(rate.Rate)/d.cfg.ExtremeRate*100, 0, 100)
		dir := model.Long
		if rate.Rate < 0 {
			dir = model.Short
		}

		alerts = append(alerts, model.FundingAlert{
			Symbol:    symbol,
			Rate:      rate.Rate,
			Signal:    signal,
			Strength:  strength,
			Direction: dir,
			Timestamp: d.clock.Now(),
		})
	}

	sortBySymbol(alerts,
		func(a, b model.FundingAlert) bool { return a.Strength > b.Strength },
		func(a model.FundingAlert) string { return a.Symbol },
	)

	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
	}
	return out
}
