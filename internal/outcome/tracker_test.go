package outcome

import (
	"context"
	"testing"
	"time"

	"marketpulse/internal/clock"
	"marketpulse/internal/model"
)

type fakePriceSource struct {
	states map[string]model.SymbolState
}

func (f *fakePriceSource) Snapshot(symbol string) (model.SymbolState, bool) {
	s, ok := f.states[symbol]
	return s, ok
}

func (f *fakePriceSource) setPrice(symbol string, price float64) {
	if f.states == nil {
		f.states = make(map[string]model.SymbolState)
	}
	f.states[symbol] = model.SymbolState{
		Symbol:  symbol,
		Current: model.Ticker{Symbol: symbol, LastPrice: price},
	}
}

type fakePersist struct {
	saved []model.SignalRecord
}

func (f *fakePersist) SaveSignal(ctx context.Context, record model.SignalRecord) error {
	f.saved = append(f.saved, record)
	return nil
}

// TestTracker_ScenarioLongWin is spec §8 scenario 5: LONG on CCCUSDT,
// entry=100 at t=0, confidence=70; at t=16min price=102 ⇒ pnl=2%>0.5 ⇒ WIN,
// exitPrice=102, pnlPercent=2, moved to completed.
func TestTracker_ScenarioLongWin(t *testing.T) {
	fc := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	prices := &fakePriceSource{}
	persist := &fakePersist{}
	tracker := New(prices, persist, fc, DefaultConfig())

	signal := model.SmartSignal{
		Symbol:     "CCCUSDT",
		Direction:  model.Long,
		Confidence: 70,
		Price:      100,
		Timestamp:  fc.Now(),
	}
	id, err := tracker.Record(context.Background(), signal, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a record id, got empty string")
	}

	fc.Advance(16 * time.Minute)
	prices.setPrice("CCCUSDT", 102)

	decided := tracker.EvaluateDue(context.Background())
	if len(decided) != 1 {
		t.Fatalf("expected exactly one decided record, got %d", len(decided))
	}

	record := decided[0]
	if record.Outcome != model.OutcomeWin {
		t.Errorf("expected WIN, got %s", record.Outcome)
	}
	if record.ExitPrice == nil || *record.ExitPrice != 102 {
		t.Errorf("expected exitPrice=102, got %v", record.ExitPrice)
	}
	if record.PnLPercent == nil || *record.PnLPercent != 2 {
		t.Errorf("expected pnlPercent=2, got %v", record.PnLPercent)
	}

	if len(tracker.Pending()) != 0 {
		t.Errorf("expected record to leave pending bucket, got %d still pending", len(tracker.Pending()))
	}
	if len(tracker.Completed()) != 1 {
		t.Errorf("expected record in completed bucket, got %d", len(tracker.Completed()))
	}
}

func TestTracker_BelowThresholdNotRecorded(t *testing.T) {
	fc := clock.NewFixed(time.Now())
	tracker := New(&fakePriceSource{}, nil, fc, DefaultConfig())

	id, err := tracker.Record(context.Background(), model.SmartSignal{
		Symbol: "AAAUSDT", Direction: model.Long, Confidence: 59, Price: 10,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if id != "" {
		t.Errorf("expected no record below emit threshold, got id %q", id)
	}
	if len(tracker.Pending()) != 0 {
		t.Errorf("expected nothing pending, got %d", len(tracker.Pending()))
	}
}

func TestTracker_NeutralDirectionNotRecorded(t *testing.T) {
	fc := clock.NewFixed(time.Now())
	tracker := New(&fakePriceSource{}, nil, fc, DefaultConfig())

	id, _ := tracker.Record(context.Background(), model.SmartSignal{
		Symbol: "BBBUSDT", Direction: model.Neutral, Confidence: 90, Price: 10,
	}, nil)
	if id != "" {
		t.Errorf("expected neutral-direction signal to be dropped, got id %q", id)
	}
}

func TestTracker_NotEligibleBeforeHorizon(t *testing.T) {
	fc := clock.NewFixed(time.Now())
	prices := &fakePriceSource{}
	prices.setPrice("CCCUSDT", 105)
	tracker := New(prices, nil, fc, DefaultConfig())

	tracker.Record(context.Background(), model.SmartSignal{
		Symbol: "CCCUSDT", Direction: model.Long, Confidence: 70, Price: 100, Timestamp: fc.Now(),
	}, nil)

	fc.Advance(10 * time.Minute)
	decided := tracker.EvaluateDue(context.Background())
	if len(decided) != 0 {
		t.Errorf("expected no records eligible before the 15min horizon, got %d", len(decided))
	}
	if len(tracker.Pending()) != 1 {
		t.Errorf("expected record to remain pending, got %d", len(tracker.Pending()))
	}
}

func TestTracker_ShortDirectionNegatesPnL(t *testing.T) {
	fc := clock.NewFixed(time.Now())
	prices := &fakePriceSource{}
	prices.setPrice("DDDUSDT", 95) // price fell 5%, a win for SHORT
	tracker := New(prices, nil, fc, DefaultConfig())

	tracker.Record(context.Background(), model.SmartSignal{
		Symbol: "DDDUSDT", Direction: model.Short, Confidence: 70, Price: 100, Timestamp: fc.Now(),
	}, nil)
	fc.Advance(16 * time.Minute)

	decided := tracker.EvaluateDue(context.Background())
	if len(decided) != 1 {
		t.Fatalf("expected one decided record, got %d", len(decided))
	}
	if decided[0].Outcome != model.OutcomeWin {
		t.Errorf("expected SHORT with falling price to WIN, got %s", decided[0].Outcome)
	}
	if *decided[0].PnLPercent != 5 {
		t.Errorf("expected pnlPercent=5 (negated), got %v", *decided[0].PnLPercent)
	}
}

func TestTracker_EvaluatesAtMostOnce(t *testing.T) {
	fc := clock.NewFixed(time.Now())
	prices := &fakePriceSource{}
	prices.setPrice("EEEUSDT", 101)
	tracker := New(prices, nil, fc, DefaultConfig())

	tracker.Record(context.Background(), model.SmartSignal{
		Symbol: "EEEUSDT", Direction: model.Long, Confidence: 70, Price: 100, Timestamp: fc.Now(),
	}, nil)
	fc.Advance(16 * time.Minute)

	first := tracker.EvaluateDue(context.Background())
	second := tracker.EvaluateDue(context.Background())

	if len(first) != 1 {
		t.Fatalf("expected one decided record on first pass, got %d", len(first))
	}
	if len(second) != 0 {
		t.Errorf("expected the same record to never be re-evaluated, got %d", len(second))
	}
}

func TestWinRateStats_ProfitFactorAndRates(t *testing.T) {
	win1 := 2.0
	win2 := 4.0
	loss1 := -1.0
	records := []model.SignalRecord{
		{Outcome: model.OutcomeWin, PnLPercent: &win1},
		{Outcome: model.OutcomeWin, PnLPercent: &win2},
		{Outcome: model.OutcomeLoss, PnLPercent: &loss1},
		{Outcome: model.OutcomePending},
	}

	stats := computeStats(records)
	if stats.Total != 3 {
		t.Errorf("expected pending record excluded from total, got %d", stats.Total)
	}
	if stats.Wins != 2 || stats.Losses != 1 {
		t.Errorf("expected 2 wins / 1 loss, got %d/%d", stats.Wins, stats.Losses)
	}
	wantWinRate := 2.0 / 3.0 * 100
	if stats.WinRate != wantWinRate {
		t.Errorf("expected winRate=%.4f, got %.4f", wantWinRate, stats.WinRate)
	}
	if stats.AvgWinPct != 3 {
		t.Errorf("expected avgWin=3, got %v", stats.AvgWinPct)
	}
	if stats.AvgLossPct != -1 {
		t.Errorf("expected avgLoss=-1, got %v", stats.AvgLossPct)
	}
	wantPF := 6.0 / 1.0
	if stats.ProfitFactor != wantPF {
		t.Errorf("expected profitFactor=%.2f, got %.2f", wantPF, stats.ProfitFactor)
	}
}

func TestTracker_CompletedLimitBoundsRing(t *testing.T) {
	fc := clock.NewFixed(time.Now())
	prices := &fakePriceSource{}
	prices.setPrice("FFFUSDT", 101)
	cfg := DefaultConfig()
	cfg.CompletedLimit = 3
	tracker := New(prices, nil, fc, cfg)

	for i := 0; i < 5; i++ {
		tracker.Record(context.Background(), model.SmartSignal{
			Symbol: "FFFUSDT", Direction: model.Long, Confidence: 70, Price: 100, Timestamp: fc.Now(),
		}, nil)
		fc.Advance(time.Millisecond)
	}
	fc.Advance(16 * time.Minute)
	tracker.EvaluateDue(context.Background())

	if got := len(tracker.Completed()); got != 3 {
		t.Errorf("expected completed ring bounded to 3, got %d", got)
	}
}
