package detectors

import (
	"math"
	"testing"
	"time"

	"marketpulse/internal/clock"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

func TestVolatilityDetector_Gate(t *testing.T) {
	fc := clock.NewFixed(time.Unix(0, 0))
	store := marketstore.New(fc, marketstore.DefaultConfig())
	store.Update([]model.Ticker{{
		Symbol:             "AAAUSDT",
		OpenPrice:          100,
		LastPrice:          111,
		HighPrice:          112,
		LowPrice:           99,
		QuoteVolume:        2e7,
		PriceChangePercent: 11,
		EventTime:          fc.Now(),
	}})

	det := NewVolatilityDetector(store, fc, DefaultVolatilityConfig())
	alerts := det.Detect()
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
	a := alerts[0].(model.VolatilityAlert)
	if a.Direction != model.Long {
		t.Errorf("expected LONG direction, got %v", a.Direction)
	}
	if a.IsCritical {
		t.Error("expected isCritical false")
	}
	if a.Change24h != 11 {
		t.Errorf("expected change24h 11, got %v", a.Change24h)
	}
}

func TestVolumeDetector_Spike(t *testing.T) {
	fc := clock.NewFixed(time.Unix(0, 0))
	cfg := marketstore.Config{PriceWindow: 200 * time.Minute, VolumeWindow: 200 * time.Minute, NewListingTTL: time.Hour}
	store := marketstore.New(fc, cfg)

	cumulative := 1_000_000.0
	for i := 0; i < 60; i++ {
		if i < 50 {
			cumulative += 100
		} else {
			cumulative += 400
		}
		fc.Advance(time.Minute)
		store.Update([]model.Ticker{{
			Symbol:             "BBBUSDT",
			OpenPrice:          100,
			LastPrice:          105,
			HighPrice:          106,
			LowPrice:           99,
			QuoteVolume:        cumulative,
			PriceChangePercent: 5,
			EventTime:          fc.Now(),
		}})
	}

	det := NewVolumeDetector(store, fc, DefaultVolumeConfig())
	alerts := det.Detect()
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
	a := alerts[0].(model.VolumeAlert)
	if math.Abs(a.Multiplier-4.0) > 0.05 {
		t.Errorf("expected multiplier ~4.0, got %v", a.Multiplier)
	}
	if a.Direction != model.Long {
		t.Errorf("expected LONG direction from positive priceChangePercent, got %v", a.Direction)
	}
}
