// Package scheduler drives the engine's single cooperative clock: one
// ingest loop plus a small number of independent cadence loops, each
// coalescing its own in-flight work rather than queuing it.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"marketpulse/internal/detectors"
	"marketpulse/internal/exchange"
	"marketpulse/internal/logging"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
	"marketpulse/internal/outcome"
	"marketpulse/internal/signalengine"
)

// Cadences are the production defaults from spec §4.5.
const (
	CadenceFundingOI        = 120 * time.Second
	CadenceMTFPattern       = 60 * time.Second
	CadenceEntryCorrelation = 30 * time.Second
	CadenceWhale            = 10 * time.Second
	CadenceTopPickLiq       = 5 * time.Second
	CadenceSnapshot         = 2 * time.Second
	CadenceOutcomeEval      = 15 * time.Second
)

// SnapshotSink receives the scheduler's periodic snapshot tick; the
// snapshot package's Assemble is the production implementation.
type SnapshotSink interface {
	OnSnapshotTick(ctx context.Context)
}

// Scheduler owns the single-process cooperative loop: it drives ingest,
// runs each detector group at its own cadence, evaluates due outcomes, and
// fires the snapshot tick. Every loop is independent and coalesces its own
// in-flight work (spec §4.5: "if a detector's previous Update is still in
// flight, skip this tick, never queue").
type Scheduler struct {
	store      *marketstore.Store
	exchange   exchange.StreamClient
	engine     *signalengine.Engine
	tracker    *outcome.Tracker
	snapshot   SnapshotSink
	volatility *detectors.VolatilityDetector
	logger     *logging.Logger

	fundingOI        []detectors.Detector
	mtfPattern       []detectors.Detector
	entryCorrelation []detectors.Detector
	whale            []detectors.Detector
	topPickLiq       []detectors.Detector

	prevCritical map[string]struct{}
	onCritical   func(symbol string, alert model.VolatilityAlert)

	wg sync.WaitGroup
}

// Groups bundles the per-cadence detector sets the scheduler drives.
type Groups struct {
	FundingOI        []detectors.Detector // funding, open interest — 120s
	MTFPattern       []detectors.Detector // multi-timeframe, pattern — 60s
	EntryCorrelation []detectors.Detector // entry-timing, correlation — 30s
	Whale            []detectors.Detector // whale — 10s
	TopPickLiq       []detectors.Detector // top picker, liquidation — 5s
}

// New creates a Scheduler. onCritical, if non-nil, is invoked once per new
// entrant into the critical-volatility set after each snapshot tick.
func New(
	store *marketstore.Store,
	streamClient exchange.StreamClient,
	engine *signalengine.Engine,
	tracker *outcome.Tracker,
	snapshot SnapshotSink,
	volatility *detectors.VolatilityDetector,
	groups Groups,
	onCritical func(symbol string, alert model.VolatilityAlert),
	logger *logging.Logger,
) *Scheduler {
	return &Scheduler{
		store:            store,
		exchange:         streamClient,
		engine:           engine,
		tracker:          tracker,
		snapshot:         snapshot,
		volatility:       volatility,
		logger:           logger,
		fundingOI:        groups.FundingOI,
		mtfPattern:       groups.MTFPattern,
		entryCorrelation: groups.EntryCorrelation,
		whale:            groups.Whale,
		topPickLiq:       groups.TopPickLiq,
		prevCritical:     make(map[string]struct{}),
		onCritical:       onCritical,
	}
}

// Run starts every loop and blocks until ctx is cancelled, at which point it
// waits for all in-flight work to observe cancellation and return.
func (s *Scheduler) Run(ctx context.Context) {
	s.wg.Add(1)
	go s.runIngest(ctx)

	s.runCadence(ctx, "funding_oi", CadenceFundingOI, s.fundingOI)
	s.runCadence(ctx, "mtf_pattern", CadenceMTFPattern, s.mtfPattern)
	s.runCadence(ctx, "entry_correlation", CadenceEntryCorrelation, s.entryCorrelation)
	s.runCadence(ctx, "whale", CadenceWhale, s.whale)
	s.runCadence(ctx, "top_pick_liquidation", CadenceTopPickLiq, s.topPickLiq)

	s.wg.Add(1)
	go s.runOutcomeEval(ctx)

	s.wg.Add(1)
	go s.runSnapshot(ctx)

	s.wg.Wait()
}

// runIngest never calls the network or the predictor; it suspends only on
// message receipt from the stream client (spec §5).
func (s *Scheduler) runIngest(ctx context.Context) {
	defer s.wg.Done()

	err := s.exchange.Stream(ctx, func(batch []model.Ticker) {
		s.store.Update(batch)
	})
	if err != nil && ctx.Err() == nil {
		s.logger.Error("exchange stream terminated", "error", err)
	}
}

// runCadence runs one cadence group's Update calls on a fixed ticker,
// skipping the tick entirely if the previous run for this group hasn't
// finished (coalescing, never queuing).
func (s *Scheduler) runCadence(ctx context.Context, name string, interval time.Duration, group []detectors.Detector) {
	if len(group) == 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var inFlight int32
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !atomic.CompareAndSwapInt32(&inFlight, 0, 1) {
					continue
				}
				go func() {
					defer atomic.StoreInt32(&inFlight, 0)
					s.updateGroup(ctx, name, group)
				}()
			}
		}
	}()
}

func (s *Scheduler) updateGroup(ctx context.Context, name string, group []detectors.Detector) {
	for _, d := range group {
		updater, ok := d.(detectors.Updater)
		if !ok {
			continue
		}
		if err := updater.Update(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("detector update failed", "group", name, "detector", d.Name(), "error", err)
		}
	}
}

func (s *Scheduler) runOutcomeEval(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(CadenceOutcomeEval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tracker.EvaluateDue(ctx)
		}
	}
}

func (s *Scheduler) runSnapshot(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(CadenceSnapshot)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			signals := s.engine.EvaluateAll(ctx)
			for _, sig := range signals {
				if _, err := s.tracker.Record(ctx, sig, sig.Features); err != nil && ctx.Err() == nil {
					s.logger.Warn("signal record failed", "symbol", sig.Symbol, "error", err)
				}
			}
			if s.snapshot != nil {
				s.snapshot.OnSnapshotTick(ctx)
			}
			s.diffCriticalVolatility()
		}
	}
}

// diffCriticalVolatility fires onCritical once for every symbol newly
// crossing into the critical-volatility set since the last snapshot tick
// (spec §4.5: idempotent via set diff).
func (s *Scheduler) diffCriticalVolatility() {
	if s.onCritical == nil {
		return
	}

	current := make(map[string]model.VolatilityAlert)
	for _, alert := range s.criticalAlerts() {
		current[alert.Symbol] = alert
		if _, wasCritical := s.prevCritical[alert.Symbol]; !wasCritical {
			s.onCritical(alert.Symbol, alert)
		}
	}
	s.prevCritical = make(map[string]struct{}, len(current))
	for symbol := range current {
		s.prevCritical[symbol] = struct{}{}
	}
}

func (s *Scheduler) criticalAlerts() []model.VolatilityAlert {
	if s.volatility == nil {
		return nil
	}
	var out []model.VolatilityAlert
	for _, a := range s.volatility.Detect() {
		alert, ok := a.(model.VolatilityAlert)
		if ok && alert.IsCritical {
			out = append(out, alert)
		}
	}
	return out
}
