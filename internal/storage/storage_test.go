package storage

import (
	"context"
	"math"
	"testing"
	"time"

	"marketpulse/internal/model"
)

func sampleRecord() model.SignalRecord {
	exit := 102.5
	pnl := 2.5
	return model.SignalRecord{
		ID:         "sig-1",
		Symbol:     "BTCUSDT",
		EntryType:  model.EntryMomentum,
		Direction:  model.Long,
		EntryPrice: 100.0,
		Confidence: 70.0,
		Timestamp:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Outcome:    model.OutcomeWin,
		ExitPrice:  &exit,
		PnLPercent: &pnl,
	}
}

func TestMemory_SaveSignalUpsertsByID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	pending := sampleRecord()
	pending.Outcome = model.OutcomePending
	pending.ExitPrice = nil
	pending.PnLPercent = nil
	if err := m.SaveSignal(ctx, pending); err != nil {
		t.Fatalf("save pending: %v", err)
	}

	won := sampleRecord()
	if err := m.SaveSignal(ctx, won); err != nil {
		t.Fatalf("save won: %v", err)
	}

	got, err := m.SignalByID(ctx, "sig-1")
	if err != nil {
		t.Fatalf("signal by id: %v", err)
	}
	if got.Outcome != model.OutcomeWin {
		t.Errorf("expected upsert to overwrite outcome, got %v", got.Outcome)
	}

	completed, err := m.CompletedSignals(ctx)
	if err != nil {
		t.Fatalf("completed signals: %v", err)
	}
	if len(completed) != 1 {
		t.Fatalf("expected exactly one completed record (upsert, not duplicate), got %d", len(completed))
	}
}

func TestMemory_SignalByID_NotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.SignalByID(context.Background(), "missing")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_SessionLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.RecordSession(ctx, 1000, "abc123")
	if err != nil {
		t.Fatalf("record session: %v", err)
	}
	if err := m.CloseSession(ctx, id, 2000); err != nil {
		t.Fatalf("close session: %v", err)
	}
	if err := m.CloseSession(ctx, id+1, 2000); err != ErrNotFound {
		t.Errorf("expected ErrNotFound closing an unknown session, got %v", err)
	}
}

func TestCSV_ExportThenParseRoundTrips(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a := sampleRecord()
	b := sampleRecord()
	b.ID = "sig-2"
	b.Symbol = "ETHUSDT"
	b.Direction = model.Short
	b.Outcome = model.OutcomeLoss
	lossExit := 97.123456789
	lossPnl := -2.876543211
	b.ExitPrice = &lossExit
	b.PnLPercent = &lossPnl
	b.Timestamp = a.Timestamp.Add(time.Minute)

	if err := m.SaveSignal(ctx, a); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := m.SaveSignal(ctx, b); err != nil {
		t.Fatalf("save b: %v", err)
	}

	out, err := ExportCompletedCSV(ctx, m)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	parsed, err := ParseSignalCSV(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(parsed))
	}
	if parsed[0].Timestamp.After(parsed[1].Timestamp) {
		t.Errorf("expected ascending timestamp order")
	}

	originals := map[string]model.SignalRecord{a.ID: a, b.ID: b}
	for _, got := range parsed {
		want, ok := originals[got.ID]
		if !ok {
			t.Fatalf("unexpected record id %s in parsed output", got.ID)
		}
		if math.Abs(got.EntryPrice-want.EntryPrice) > 1e-9 {
			t.Errorf("%s: entry price mismatch: got %v want %v", got.ID, got.EntryPrice, want.EntryPrice)
		}
		if math.Abs(*got.ExitPrice-*want.ExitPrice) > 1e-9 {
			t.Errorf("%s: exit price mismatch: got %v want %v", got.ID, *got.ExitPrice, *want.ExitPrice)
		}
		if math.Abs(*got.PnLPercent-*want.PnLPercent) > 1e-9 {
			t.Errorf("%s: pnl percent mismatch: got %v want %v", got.ID, *got.PnLPercent, *want.PnLPercent)
		}
		if got.Symbol != want.Symbol || got.Direction != want.Direction || got.Outcome != want.Outcome {
			t.Errorf("%s: categorical field mismatch: %+v vs %+v", got.ID, got, want)
		}
		if !got.Timestamp.Equal(want.Timestamp) {
			t.Errorf("%s: timestamp mismatch: got %v want %v", got.ID, got.Timestamp, want.Timestamp)
		}
	}
}

func TestCSV_ExportExcludesPendingRecords(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	pending := sampleRecord()
	pending.ID = "sig-pending"
	pending.Outcome = model.OutcomePending
	pending.ExitPrice = nil
	pending.PnLPercent = nil
	if err := m.SaveSignal(ctx, pending); err != nil {
		t.Fatalf("save pending: %v", err)
	}

	out, err := ExportCompletedCSV(ctx, m)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	parsed, err := ParseSignalCSV(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed) != 0 {
		t.Errorf("expected pending records excluded from export, got %d rows", len(parsed))
	}
}
