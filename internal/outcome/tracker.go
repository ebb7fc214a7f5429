// Package outcome implements the OutcomeTracker: it records emitted signals,
// evaluates them against live price once they are old enough, and keeps the
// aggregate win-rate statistics used by the snapshot.
package outcome

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketpulse/internal/clock"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// DefaultEmitThreshold is the minimum SmartSignal confidence recorded.
const DefaultEmitThreshold = 60.0

// DefaultEvaluationHorizon is how long a record stays PENDING before it
// becomes eligible for evaluation against current price.
const DefaultEvaluationHorizon = 15 * time.Minute

// DefaultCompletedLimit bounds the in-memory completed ring; Store keeps
// every row regardless.
const DefaultCompletedLimit = 500

// rollingWindow is the trailing-N window used by the rolling stats bucket.
const rollingWindow = 20

// PersistStore is the narrow persistence port the tracker writes completed
// (and newly recorded) rows through; internal/storage provides the
// production adapter.
type PersistStore interface {
	SaveSignal(ctx context.Context, record model.SignalRecord) error
}

// PriceSource is the narrow read port onto the live store the tracker needs
// to evaluate a pending record — just the current price per symbol.
type PriceSource interface {
	Snapshot(symbol string) (model.SymbolState, bool)
}

var _ PriceSource = (*marketstore.Store)(nil)

// Config holds the tracker's tunables, all defaulted from spec §4.4.
type Config struct {
	EmitThreshold     float64
	EvaluationHorizon time.Duration
	CompletedLimit    int
}

// DefaultConfig returns the spec's production defaults.
func DefaultConfig() Config {
	return Config{
		EmitThreshold:     DefaultEmitThreshold,
		EvaluationHorizon: DefaultEvaluationHorizon,
		CompletedLimit:    DefaultCompletedLimit,
	}
}

// Tracker owns the pending and completed SignalRecord buckets. It is the
// sole mutator of both; everything else reads a snapshot.
type Tracker struct {
	store   PriceSource
	persist PersistStore
	clock   clock.Clock
	cfg     Config

	mu        sync.Mutex
	pending   map[string]model.SignalRecord
	completed []model.SignalRecord
}

// New creates a Tracker. persist may be nil, in which case completed rows
// are kept only in the bounded in-memory ring.
func New(store PriceSource, persist PersistStore, c clock.Clock, cfg Config) *Tracker {
	return &Tracker{
		store:   store,
		persist: persist,
		clock:   c,
		cfg:     cfg,
		pending: make(map[string]model.SignalRecord),
	}
}

// Record stores signal as a new PENDING SignalRecord if its confidence meets
// the emit threshold and it has a defined direction; otherwise it is
// dropped silently (the engine emits signals below threshold too, but only
// qualifying ones are tracked to an outcome).
func (t *Tracker) Record(ctx context.Context, signal model.SmartSignal, features *model.Features) (string, error) {
	if signal.Confidence < t.cfg.EmitThreshold || signal.Direction == model.Neutral {
		return "", nil
	}

	record := model.SignalRecord{
		ID:         uuid.New().String(),
		Symbol:     signal.Symbol,
		EntryType:  signal.EntryType,
		Direction:  signal.Direction,
		EntryPrice: signal.Price,
		Confidence: signal.Confidence,
		Timestamp:  t.clock.Now(),
		Outcome:    model.OutcomePending,
		Features:   features,
	}
	if signal.MLPrediction != nil {
		record.MLPrediction = signal.MLPrediction
	}

	t.mu.Lock()
	t.pending[record.ID] = record
	t.mu.Unlock()

	if t.persist != nil {
		if err := t.persist.SaveSignal(ctx, record); err != nil {
			return record.ID, fmt.Errorf("outcome: persist pending record: %w", err)
		}
	}
	return record.ID, nil
}

// EvaluateDue evaluates every pending record whose horizon has elapsed,
// moves it to completed, persists it, and returns the records it just
// decided, leaving out any whose save failed (those stay in the completed
// ring). A record is evaluated at most once: it is removed from pending
// as soon as it is decided, so a later call can never re-evaluate it.
func (t *Tracker) EvaluateDue(ctx context.Context) []model.SignalRecord {
	now := t.clock.Now()

	t.mu.Lock()
	due := make([]model.SignalRecord, 0)
	for id, record := range t.pending {
		if now.Sub(record.Timestamp) >= t.cfg.EvaluationHorizon {
			due = append(due, record)
			delete(t.pending, id)
		}
	}
	t.mu.Unlock()

	if len(due) == 0 {
		return nil
	}

	decided := make([]model.SignalRecord, 0, len(due))
	for _, record := range due {
		state, ok := t.store.Snapshot(record.Symbol)
		if !ok {
			// No current price to evaluate against; put it back for the
			// next tick rather than losing it.
			t.mu.Lock()
			t.pending[record.ID] = record
			t.mu.Unlock()
			continue
		}

		decide(&record, state.Current.LastPrice)

		t.mu.Lock()
		t.completed = append(t.completed, record)
		if len(t.completed) > t.cfg.CompletedLimit {
			t.completed = t.completed[len(t.completed)-t.cfg.CompletedLimit:]
		}
		t.mu.Unlock()

		if t.persist != nil {
			if err := t.persist.SaveSignal(ctx, record); err != nil {
				// Already removed from pending; the row still lives in the
				// completed ring so Snapshot/stats see it even if the
				// write is lost.
				continue
			}
		}
		decided = append(decided, record)
	}
	return decided
}

// decide fills in record's ExitPrice, PnLPercent and Outcome from
// currentPrice per spec §4.4's evaluation policy.
func decide(record *model.SignalRecord, currentPrice float64) {
	pnl := (currentPrice - record.EntryPrice) / record.EntryPrice * 100
	if record.Direction == model.Short {
		pnl = -pnl
	}

	var outcome model.Outcome
	switch {
	case pnl > 0.5:
		outcome = model.OutcomeWin
	case pnl < -0.5:
		outcome = model.OutcomeLoss
	case pnl >= 0:
		outcome = model.OutcomeWin
	default:
		outcome = model.OutcomeLoss
	}

	record.ExitPrice = &currentPrice
	record.PnLPercent = &pnl
	record.Outcome = outcome
}

// Pending returns a snapshot of the currently pending records.
func (t *Tracker) Pending() []model.SignalRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.SignalRecord, 0, len(t.pending))
	for _, r := range t.pending {
		out = append(out, r)
	}
	return out
}

// Completed returns a copy of the bounded completed ring, oldest first.
func (t *Tracker) Completed() []model.SignalRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.SignalRecord, len(t.completed))
	copy(out, t.completed)
	return out
}

// RecentCompleted returns the last n completed records, most recent first.
func (t *Tracker) RecentCompleted(n int) []model.SignalRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > len(t.completed) {
		n = len(t.completed)
	}
	out := make([]model.SignalRecord, n)
	for i := 0; i < n; i++ {
		out[i] = t.completed[len(t.completed)-1-i]
	}
	return out
}
