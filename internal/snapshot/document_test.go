package snapshot

import (
	"testing"
	"time"

	"marketpulse/internal/clock"
	"marketpulse/internal/detectors"
	"marketpulse/internal/exchange"
	"marketpulse/internal/filter"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
	"marketpulse/internal/outcome"
	"marketpulse/internal/signalengine"
)

func newTestEngineAndTracker(t *testing.T) (*signalengine.Engine, *outcome.Tracker, *marketstore.Store) {
	t.Helper()
	fc := clock.NewFixed(time.Unix(0, 0))
	store := marketstore.New(fc, marketstore.DefaultConfig())
	mockClient := exchange.NewMockClient()

	volatility := detectors.NewVolatilityDetector(store, fc, detectors.DefaultVolatilityConfig())
	volume := detectors.NewVolumeDetector(store, fc, detectors.DefaultVolumeConfig())
	velocity := detectors.NewVelocityDetector(store, fc, detectors.DefaultVelocityConfig())
	funding := detectors.NewFundingDetector(store, mockClient, fc, detectors.DefaultFundingConfig())
	openInterest := detectors.NewOpenInterestDetector(store, mockClient, fc, detectors.DefaultOpenInterestConfig())
	mtf := detectors.NewMultiTimeframeDetector(store, mockClient, fc, detectors.DefaultMultiTimeframeConfig())

	engine := signalengine.NewEngine(store, volatility, volume, velocity, funding, openInterest, mtf, nil, fc, signalengine.DefaultConfig())
	tracker := outcome.New(store, nil, fc, outcome.DefaultConfig())
	return engine, tracker, store
}

func TestAssemble_AppliesFilterAndTopK(t *testing.T) {
	engine, tracker, store := newTestEngineAndTracker(t)

	alerts := []detectors.Alert{
		model.VolatilityAlert{Symbol: "AAAUSDT", Change24h: 40},
		model.VolatilityAlert{Symbol: "EXCLUDEDUSDT", Change24h: 30},
		model.VolatilityAlert{Symbol: "BBBUSDT", Change24h: 20},
	}
	cat := Category{
		Name:    "volatility",
		Collect: func() []detectors.Alert { return alerts },
		SymbolOf: func(a detectors.Alert) string {
			return a.(model.VolatilityAlert).Symbol
		},
	}

	f := filter.New(store, filter.Config{Exclude: map[string]struct{}{"EXCLUDEDUSDT": {}}})

	doc := Assemble(Inputs{
		ConnectionStatus: "CONNECTED",
		SymbolCount:      3,
		Now:              time.Unix(0, 0),
		Categories:       []Category{cat},
		TopK:             1,
		Engine:           engine,
		Tracker:          tracker,
		Filter:           f,
	})

	got := doc.Categories["volatility"]
	if len(got) != 1 {
		t.Fatalf("expected topK=1 to truncate to one alert, got %d", len(got))
	}
	if got[0].(model.VolatilityAlert).Symbol != "AAAUSDT" {
		t.Errorf("expected the highest-magnitude non-excluded alert first, got %v", got[0])
	}
}

func TestAssemble_NoFilterPassesEverything(t *testing.T) {
	engine, tracker, _ := newTestEngineAndTracker(t)

	alerts := []detectors.Alert{model.VolatilityAlert{Symbol: "AAAUSDT", Change24h: 40}}
	cat := Category{Name: "volatility", Collect: func() []detectors.Alert { return alerts }, SymbolOf: func(a detectors.Alert) string {
		return a.(model.VolatilityAlert).Symbol
	}}

	doc := Assemble(Inputs{
		Categories: []Category{cat},
		Engine:     engine,
		Tracker:    tracker,
	})

	if len(doc.Categories["volatility"]) != 1 {
		t.Errorf("expected alert to pass with no filter configured")
	}
}

func TestSummarizeSentiment_AverageAndBand(t *testing.T) {
	alerts := []model.SentimentAlert{{Score: 10}, {Score: 30}}
	summary := summarizeSentiment(alerts)
	if summary.AverageScore != 20 {
		t.Errorf("expected average 20, got %v", summary.AverageScore)
	}
	if summary.Band != model.SentimentExtremeFear {
		t.Errorf("expected EXTREME_FEAR band at score <= 20, got %v", summary.Band)
	}
	if summary.SymbolCount != 2 {
		t.Errorf("expected symbolCount=2, got %d", summary.SymbolCount)
	}
}

func TestSummarizeSentiment_EmptyDefaultsToNeutral(t *testing.T) {
	summary := summarizeSentiment(nil)
	if summary.Band != model.SentimentNeutral {
		t.Errorf("expected NEUTRAL with no sentiment data, got %v", summary.Band)
	}
}
