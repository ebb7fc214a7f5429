package detectors

import (
	"fmt"

	"marketpulse/internal/clock"
	"marketpulse/internal/model"
)

// TopPickerConfig holds the per-detector-hit score contributions.
type TopPickerConfig struct {
	VolatilityWeight float64 // default 15
	VolumeWeight     float64 // default 20
	WhaleWeight      float64 // default 25
	PatternWeight    float64 // default 15
	EntryTimingWeight float64 // default 25
	Limit            int     // default 10
}

// DefaultTopPickerConfig returns sensible dashboard-ranking defaults.
func DefaultTopPickerConfig() TopPickerConfig {
	return TopPickerConfig{VolatilityWeight: 15, VolumeWeight: 20, WhaleWeight: 25, PatternWeight: 15, EntryTimingWeight: 25, Limit: 10}
}

// TopPickerDetector is the one legitimate cross-detector component: it
// reads the current output of several other detectors to build a
// cross-signal ranking. No other detector reads TopPicker's output or
// TopPicker's own alerts, keeping the dependency graph one-way.
type TopPickerDetector struct {
	volatility  *VolatilityDetector
	volume      *VolumeDetector
	whale       *WhaleDetector
	pattern     *PatternDetector
	entryTiming *EntryTimingDetector
	clock       clock.Clock
	cfg         TopPickerConfig
}

// NewTopPickerDetector creates a TopPicker aggregator over the given
// detector instances.
func NewTopPickerDetector(volatility *VolatilityDetector, volume *VolumeDetector, whale *WhaleDetector, pattern *PatternDetector, entryTiming *EntryTimingDetector, c clock.Clock, cfg TopPickerConfig) *TopPickerDetector {
	def := DefaultTopPickerConfig()
	if cfg.Limit <= 0 {
		cfg = def
	}
	return &TopPickerDetector{
		volatility: volatility, volume: volume, whale: whale, pattern: pattern, entryTiming: entryTiming,
		clock: c, cfg: cfg,
	}
}

func (d *TopPickerDetector) Name() string { return "top_picker" }

type topPickAccumulator struct {
	score     float64
	reasons   []string
	direction model.Direction
}

// Detect implements Detector.
func (d *TopPickerDetector) Detect() []Alert {
	acc := make(map[string]*topPickAccumulator)

	add := func(symbol string, weight float64, reason string, dir model.Direction) {
		a, ok := acc[symbol]
		if !ok {
			a = &topPickAccumulator{direction: dir}
			acc[symbol] = a
		}
		a.score += weight
		a.reasons = append(a.reasons, reason)
	}

	for _, al := range d.volatility.Detect() {
		v := al.(model.VolatilityAlert)
		reason := "critical volatility"
		weight := d.cfg.VolatilityWeight
		if !v.IsCritical {
			reason = "volatility"
			weight *= 0.5
		}
		add(v.Symbol, weight, reason, v.Direction)
	}
	for _, al := range d.volume.Detect() {
		v := al.(model.VolumeAlert)
		add(v.Symbol, d.cfg.VolumeWeight, fmt.Sprintf("volume spike %.1fx", v.Multiplier), v.Direction)
	}
	for _, al := range d.whale.Detect() {
		v := al.(model.WhaleAlert)
		add(v.Symbol, d.cfg.WhaleWeight, string(v.Activity), v.Direction)
	}
	for _, al := range d.pattern.Detect() {
		v := al.(model.PatternAlert)
		add(v.Symbol, d.cfg.PatternWeight, string(v.Kind), v.Direction)
	}
	for _, al := range d.entryTiming.Detect() {
		v := al.(model.EntryTimingAlert)
		add(v.Symbol, d.cfg.EntryTimingWeight, string(v.Type)+" entry", v.Direction)
	}

	picks := make([]model.TopPickAlert, 0, len(acc))
	for symbol, a := range acc {
		picks = append(picks, model.TopPickAlert{
			Symbol:    symbol,
			Score:     a.score,
			Reasons:   a.reasons,
			Direction: a.direction,
			Timestamp: d.clock.Now(),
		})
	}

	sortBySymbol(picks,
		func(a, b model.TopPickAlert) bool { return a.Score > b.Score },
		func(a model.TopPickAlert) string { return a.Symbol },
	)
	if len(picks) > d.cfg.Limit {
		picks = picks[:d.cfg.Limit]
	}

	out := make([]Alert, len(picks))
	for i, a := range picks {
		out[i] = a
	}
	return out
}
