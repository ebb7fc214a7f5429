package scheduler

import (
	"context"
	"testing"
	"time"

	"marketpulse/internal/clock"
	"marketpulse/internal/detectors"
	"marketpulse/internal/logging"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

type staticDetector struct{ name string }

func (d staticDetector) Name() string           { return d.name }
func (d staticDetector) Detect() []detectors.Alert { return nil }

type updatingDetector struct {
	staticDetector
	calls int
}

func (d *updatingDetector) Update(ctx context.Context) error {
	d.calls++
	return nil
}

func TestUpdateGroup_OnlyCallsUpdaters(t *testing.T) {
	plain := staticDetector{name: "plain"}
	updater := &updatingDetector{staticDetector: staticDetector{name: "updater"}}

	s := &Scheduler{logger: logging.New(&logging.Config{Component: "test"})}
	s.updateGroup(context.Background(), "group", []detectors.Detector{plain, updater})

	if updater.calls != 1 {
		t.Errorf("expected updater to be called once, got %d", updater.calls)
	}
}

func newVolatilityScheduler(t *testing.T) (*Scheduler, *marketstore.Store, *clock.Fixed) {
	t.Helper()
	fc := clock.NewFixed(time.Unix(0, 0))
	store := marketstore.New(fc, marketstore.DefaultConfig())
	vol := detectors.NewVolatilityDetector(store, fc, detectors.DefaultVolatilityConfig())
	s := &Scheduler{
		volatility:   vol,
		prevCritical: make(map[string]struct{}),
		logger:       logging.New(&logging.Config{Component: "test"}),
	}
	return s, store, fc
}

func TestDiffCriticalVolatility_FiresOnceForNewEntrant(t *testing.T) {
	s, store, fc := newVolatilityScheduler(t)

	var fired []string
	s.onCritical = func(symbol string, alert model.VolatilityAlert) {
		fired = append(fired, symbol)
	}

	store.Update([]model.Ticker{{
		Symbol: "AAAUSDT", OpenPrice: 100, LastPrice: 130, HighPrice: 131, LowPrice: 99,
		QuoteVolume: 2e7, PriceChangePercent: 30, EventTime: fc.Now(),
	}})

	s.diffCriticalVolatility()
	s.diffCriticalVolatility()

	if len(fired) != 1 {
		t.Fatalf("expected exactly one critical-entrant notification, got %d (%v)", len(fired), fired)
	}
	if fired[0] != "AAAUSDT" {
		t.Errorf("expected AAAUSDT, got %s", fired[0])
	}
}

func TestDiffCriticalVolatility_NoFireBelowCriticalThreshold(t *testing.T) {
	s, store, fc := newVolatilityScheduler(t)

	var fired []string
	s.onCritical = func(symbol string, alert model.VolatilityAlert) {
		fired = append(fired, symbol)
	}

	store.Update([]model.Ticker{{
		Symbol: "BBBUSDT", OpenPrice: 100, LastPrice: 111, HighPrice: 112, LowPrice: 99,
		QuoteVolume: 2e7, PriceChangePercent: 11, EventTime: fc.Now(),
	}})

	s.diffCriticalVolatility()

	if len(fired) != 0 {
		t.Errorf("expected no critical notifications for a non-critical move, got %v", fired)
	}
}

func TestDiffCriticalVolatility_NewEntrantAfterExit(t *testing.T) {
	s, store, fc := newVolatilityScheduler(t)

	var fired []string
	s.onCritical = func(symbol string, alert model.VolatilityAlert) {
		fired = append(fired, symbol)
	}

	store.Update([]model.Ticker{{
		Symbol: "CCCUSDT", OpenPrice: 100, LastPrice: 130, HighPrice: 131, LowPrice: 99,
		QuoteVolume: 2e7, PriceChangePercent: 30, EventTime: fc.Now(),
	}})
	s.diffCriticalVolatility()

	fc.Advance(time.Minute)
	store.Update([]model.Ticker{{
		Symbol: "CCCUSDT", OpenPrice: 100, LastPrice: 105, HighPrice: 112, LowPrice: 99,
		QuoteVolume: 2e7, PriceChangePercent: 5, EventTime: fc.Now(),
	}})
	s.diffCriticalVolatility()

	fc.Advance(time.Minute)
	store.Update([]model.Ticker{{
		Symbol: "CCCUSDT", OpenPrice: 100, LastPrice: 135, HighPrice: 136, LowPrice: 99,
		QuoteVolume: 2e7, PriceChangePercent: 35, EventTime: fc.Now(),
	}})
	s.diffCriticalVolatility()

	if len(fired) != 2 {
		t.Errorf("expected a second notification after re-entering the critical set, got %d (%v)", len(fired), fired)
	}
}
