// Package signalengine fuses the independent detectors' output into one
// directional SmartSignal per symbol (spec §4.3), runs the additive
// reversal sub-engine, and optionally blends in a Predictor's ML estimate.
package signalengine

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketpulse/internal/clock"
	"marketpulse/internal/detectors"
	"marketpulse/internal/indicatorkit"
	"marketpulse/internal/logging"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// Config holds the engine's tunables; everything else (component weights,
// entry-type/risk-level bands) is fixed per spec §4.3.
type Config struct {
	MLBlend  MLBlendConfig
	Reversal ReversalConfig
}

// DefaultConfig returns spec §4.3 defaults.
func DefaultConfig() Config {
	return Config{MLBlend: DefaultMLBlendConfig(), Reversal: DefaultReversalConfig()}
}

// Engine fuses detector output into SmartSignals, one per symbol,
// overwriting the previous signal for that symbol on every evaluation.
type Engine struct {
	store *marketstore.Store

	volatility     *detectors.VolatilityDetector
	volume         *detectors.VolumeDetector
	velocity       *detectors.VelocityDetector
	funding        *detectors.FundingDetector
	openInterest   *detectors.OpenInterestDetector
	multiTimeframe *detectors.MultiTimeframeDetector
	reversal       *ReversalEngine

	// pattern, whale, and correlation enrich the full feature vector sent to
	// the predictor; unlike the six components above, they don't feed Fuse.
	pattern     *detectors.PatternDetector
	whale       *detectors.WhaleDetector
	correlation *detectors.CorrelationDetector

	predictor Predictor // optional; nil disables ML enhancement
	clock     clock.Clock
	cfg       Config

	mu     sync.RWMutex
	latest map[string]model.SmartSignal
}

// SetAuxDetectors wires the optional detectors that enrich the 35-column
// feature vector (pattern/whale/correlation alerts) beyond the six Fuse
// blends into the SmartSignal itself. Any of them may be nil.
func (e *Engine) SetAuxDetectors(pattern *detectors.PatternDetector, whale *detectors.WhaleDetector, correlation *detectors.CorrelationDetector) {
	e.pattern = pattern
	e.whale = whale
	e.correlation = correlation
}

// NewEngine creates an Engine wired to the given detector instances. All six
// component detectors are required; predictor may be nil.
func NewEngine(
	store *marketstore.Store,
	volatility *detectors.VolatilityDetector,
	volume *detectors.VolumeDetector,
	velocity *detectors.VelocityDetector,
	funding *detectors.FundingDetector,
	openInterest *detectors.OpenInterestDetector,
	multiTimeframe *detectors.MultiTimeframeDetector,
	predictor Predictor,
	c clock.Clock,
	cfg Config,
) *Engine {
	def := DefaultConfig()
	if cfg.MLBlend.MLWeight <= 0 {
		cfg.MLBlend = def.MLBlend
	}
	if cfg.Reversal.RSIExtremeScore <= 0 {
		cfg.Reversal = def.Reversal
	}
	return &Engine{
		store: store,
		volatility: volatility, volume: volume, velocity: velocity,
		funding: funding, openInterest: openInterest, multiTimeframe: multiTimeframe,
		reversal: NewReversalEngine(store, multiTimeframe, funding, openInterest, volume, c, cfg.Reversal),
		predictor: predictor, clock: c, cfg: cfg,
		latest: make(map[string]model.SmartSignal),
	}
}

// EvaluateAll runs one fusion cycle over every symbol any component detector
// currently has an alert for, overwrites the retained latest signal per
// symbol, and returns the full set produced this cycle.
func (e *Engine) EvaluateAll(ctx context.Context) []model.SmartSignal {
	snap := e.store.SnapshotAll()

	priorVelo := e.velocity.PriorVelocities()

	volat := indexVolatility(e.volatility.Detect())
	vol := indexVolume(e.volume.Detect())
	velo := indexVelocity(e.velocity.Detect())
	fund := indexFunding(e.funding.Detect())
	oi := indexOpenInterest(e.openInterest.Detect())
	mtf := indexMTFBySymbol(e.multiTimeframe.Detect())
	pattern := indexPattern(e.pattern)
	whale := indexWhale(e.whale)
	correlation := indexCorrelation(e.correlation)

	symbols := make(map[string]struct{})
	for s := range volat {
		symbols[s] = struct{}{}
	}
	for s := range vol {
		symbols[s] = struct{}{}
	}
	for s := range velo {
		symbols[s] = struct{}{}
	}
	for s := range fund {
		symbols[s] = struct{}{}
	}
	for s := range oi {
		symbols[s] = struct{}{}
	}
	for s := range mtf {
		symbols[s] = struct{}{}
	}

	signals := make([]model.SmartSignal, 0, len(symbols))
	for symbol := range symbols {
		st, ok := snap[symbol]
		if !ok {
			continue
		}

		var components []model.SignalComponent
		if a, ok := volat[symbol]; ok {
			components = append(components, priceMovementComponent(a))
		}
		if a, ok := vol[symbol]; ok {
			components = append(components, volumeComponent(a))
		}
		if a, ok := velo[symbol]; ok {
			components = append(components, velocityComponent(a))
		}
		if a, ok := fund[symbol]; ok {
			components = append(components, fundingComponent(a))
		}
		if a, ok := oi[symbol]; ok {
			components = append(components, openInterestComponent(a))
		}
		if a, ok := mtf[symbol]; ok {
			components = append(components, multiTimeframeComponent(a))
		}
		if len(components) == 0 {
			continue
		}

		fusion := Fuse(components)

		divergence := model.DivergenceNone
		if a, ok := mtf[symbol]; ok {
			divergence = a.Divergence
		}
		fundingStrength := 0.0
		if a, ok := fund[symbol]; ok {
			fundingStrength = a.Strength
		}
		volumeStrength, velocityStrength, mtfStrength := 0.0, 0.0, 0.0
		for _, c := range components {
			switch c.Name {
			case "Volume":
				volumeStrength = c.Strength
			case "Velocity":
				velocityStrength = c.Strength
			case "MultiTimeframe":
				mtfStrength = c.Strength
			}
		}

		entryType := selectEntryType(divergence, fundingStrength, volumeStrength, velocityStrength, mtfStrength)
		strongCount := 0
		for _, c := range components {
			if c.Strength > 50 {
				strongCount++
			}
		}
		riskLevel := selectRiskLevel(fusion.Confluence, strongCount)

		reasoning := make([]string, 0, len(components))
		for _, c := range components {
			reasoning = append(reasoning, c.Name+" "+string(c.Direction))
		}

		signal := model.SmartSignal{
			Symbol:          symbol,
			Direction:       fusion.Direction,
			Confidence:      fusion.Confidence,
			ConfluenceScore: fusion.Confluence,
			Components:      components,
			Reasoning:       reasoning,
			EntryType:       entryType,
			RiskLevel:       riskLevel,
			Price:           st.Current.LastPrice,
			Timestamp:       e.clock.Now(),
		}

		features := e.buildFeatures(symbol, st, signal, vol, velo, priorVelo, fund, oi, mtf, pattern, whale, correlation)
		e.enhanceWithML(ctx, symbol, &signal, features)
		signal.Features = &features

		signals = append(signals, signal)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].ConfluenceScore != signals[j].ConfluenceScore {
			return signals[i].ConfluenceScore > signals[j].ConfluenceScore
		}
		return signals[i].Symbol < signals[j].Symbol
	})

	e.mu.Lock()
	for _, s := range signals {
		e.latest[s.Symbol] = s
	}
	e.mu.Unlock()

	return signals
}

// enhanceWithML requests a prediction over the already-assembled feature
// vector and blends it into signal in place. Failures (nil predictor,
// error, unhealthy) degrade silently: signal is left with only its
// rule-based confidence.
func (e *Engine) enhanceWithML(ctx context.Context, symbol string, signal *model.SmartSignal, features model.Features) {
	if e.predictor == nil || !e.predictor.Healthy(ctx) {
		return
	}
	pred, err := e.predictor.Predict(ctx, features)
	if err != nil {
		logging.WithComponent("signalengine").WithField("symbol", symbol).WithError(err).Warn("ml predict failed")
		return
	}

	ml := pred.WinProbability * 100
	combined := blendConfidence(ml, signal.Confidence, e.cfg.MLBlend)

	mlCopy := ml
	combinedCopy := combined
	tierCopy := pred.QualityTier
	signal.MLPrediction = &mlCopy
	signal.CombinedConfidence = &combinedCopy
	signal.QualityTier = &tierCopy
}

// Reversals returns the reversal sub-engine's current triggers (spec §4.3).
func (e *Engine) Reversals() []model.ReversalAlert {
	return e.reversal.Detect()
}

// TopSignals returns the top `limit` retained signals by confluence score,
// optionally filtered to one direction.
func (e *Engine) TopSignals(limit int, direction *model.Direction) []model.SmartSignal {
	all := e.snapshotLatest()
	out := make([]model.SmartSignal, 0, len(all))
	for _, s := range all {
		if direction != nil && s.Direction != *direction {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ConfluenceScore != out[j].ConfluenceScore {
			return out[i].ConfluenceScore > out[j].ConfluenceScore
		}
		return out[i].Symbol < out[j].Symbol
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// EarlyEntries returns retained signals with EntryType EARLY.
func (e *Engine) EarlyEntries() []model.SmartSignal { return e.filterByEntryType(model.EntryEarly) }

// ReversalSignals returns retained signals with EntryType REVERSAL.
func (e *Engine) ReversalSignals() []model.SmartSignal {
	return e.filterByEntryType(model.EntryReversal)
}

// BreakoutCandidates returns retained signals with EntryType BREAKOUT.
func (e *Engine) BreakoutCandidates() []model.SmartSignal {
	return e.filterByEntryType(model.EntryBreakout)
}

// LowRiskSetups returns retained signals with RiskLevel LOW.
func (e *Engine) LowRiskSetups() []model.SmartSignal {
	all := e.snapshotLatest()
	out := make([]model.SmartSignal, 0, len(all))
	for _, s := range all {
		if s.RiskLevel == model.RiskLow {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (e *Engine) filterByEntryType(t model.EntryType) []model.SmartSignal {
	all := e.snapshotLatest()
	out := make([]model.SmartSignal, 0, len(all))
	for _, s := range all {
		if s.EntryType == t {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (e *Engine) snapshotLatest() []model.SmartSignal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.SmartSignal, 0, len(e.latest))
	for _, s := range e.latest {
		out = append(out, s)
	}
	return out
}

// selectEntryType implements the first-match-wins priority order of spec
// §4.3: Reversal beats Early beats Breakout beats the Momentum default.
func selectEntryType(divergence model.MTFDivergence, fundingStrength, volumeStrength, velocityStrength, mtfStrength float64) model.EntryType {
	switch {
	case divergence != model.DivergenceNone || fundingStrength > 70:
		return model.EntryReversal
	case volumeStrength > 60 && velocityStrength < 40:
		return model.EntryEarly
	case velocityStrength > 70 && mtfStrength > 60:
		return model.EntryBreakout
	default:
		return model.EntryMomentum
	}
}

// selectRiskLevel implements spec §4.3's risk-level bands.
func selectRiskLevel(confluence float64, strongCount int) model.RiskLevel {
	switch {
	case confluence > 70 && strongCount >= 4:
		return model.RiskLow
	case confluence > 50 && strongCount >= 3:
		return model.RiskMedium
	default:
		return model.RiskHigh
	}
}

func entryTypeCode(t model.EntryType) int {
	switch t {
	case model.EntryEarly:
		return 1
	case model.EntryMomentum:
		return 2
	case model.EntryReversal:
		return 3
	case model.EntryBreakout:
		return 4
	default:
		return 0
	}
}

func riskLevelCode(r model.RiskLevel) int {
	switch r {
	case model.RiskLow:
		return 1
	case model.RiskMedium:
		return 2
	case model.RiskHigh:
		return 3
	default:
		return 0
	}
}

func indexVolatility(alerts []detectors.Alert) map[string]model.VolatilityAlert {
	out := make(map[string]model.VolatilityAlert, len(alerts))
	for _, a := range alerts {
		v := a.(model.VolatilityAlert)
		out[v.Symbol] = v
	}
	return out
}

func indexVolume(alerts []detectors.Alert) map[string]model.VolumeAlert {
	return indexVolumeBySymbol(alerts)
}

func indexVelocity(alerts []detectors.Alert) map[string]model.VelocityAlert {
	out := make(map[string]model.VelocityAlert, len(alerts))
	for _, a := range alerts {
		v := a.(model.VelocityAlert)
		out[v.Symbol] = v
	}
	return out
}

func indexFunding(alerts []detectors.Alert) map[string]model.FundingAlert {
	out := make(map[string]model.FundingAlert, len(alerts))
	for _, a := range alerts {
		v := a.(model.FundingAlert)
		out[v.Symbol] = v
	}
	return out
}

func indexOpenInterest(alerts []detectors.Alert) map[string]model.OpenInterestAlert {
	out := make(map[string]model.OpenInterestAlert, len(alerts))
	for _, a := range alerts {
		v := a.(model.OpenInterestAlert)
		out[v.Symbol] = v
	}
	return out
}

func indexPattern(d *detectors.PatternDetector) map[string]model.PatternAlert {
	if d == nil {
		return nil
	}
	out := make(map[string]model.PatternAlert)
	for _, a := range d.Detect() {
		v := a.(model.PatternAlert)
		out[v.Symbol] = v
	}
	return out
}

func indexWhale(d *detectors.WhaleDetector) map[string]model.WhaleAlert {
	if d == nil {
		return nil
	}
	out := make(map[string]model.WhaleAlert)
	for _, a := range d.Detect() {
		v := a.(model.WhaleAlert)
		out[v.Symbol] = v
	}
	return out
}

func indexCorrelation(d *detectors.CorrelationDetector) map[string]model.CorrelationAlert {
	if d == nil {
		return nil
	}
	out := make(map[string]model.CorrelationAlert)
	for _, a := range d.Detect() {
		v := a.(model.CorrelationAlert)
		out[v.Symbol] = v
	}
	return out
}

// buildFeatures assembles the full 35-column vector (spec §6.4) for symbol
// from the current store snapshot, the component alert maps EvaluateAll
// already computed, and the optional pattern/whale/correlation detectors.
// Columns with no corresponding data source anywhere in this engine
// (RiskRewardRatio: no stop/target is tracked outside order execution,
// which is out of scope) are left at zero.
func (e *Engine) buildFeatures(
	symbol string,
	st model.SymbolState,
	signal model.SmartSignal,
	vol map[string]model.VolumeAlert,
	velo map[string]model.VelocityAlert,
	priorVelo map[string]float64,
	fund map[string]model.FundingAlert,
	oi map[string]model.OpenInterestAlert,
	mtf map[string]model.MultiTimeframeAlert,
	pattern map[string]model.PatternAlert,
	whale map[string]model.WhaleAlert,
	correlation map[string]model.CorrelationAlert,
) model.Features {
	now := e.clock.Now()
	f := model.Features{
		PriceChange24h: st.Current.PriceChangePercent,
		SmartConfidence: signal.Confidence,
		ComponentCount:  len(signal.Components),
		EntryType:       entryTypeCode(signal.EntryType),
		RiskLevel:       riskLevelCode(signal.RiskLevel),
		Direction:       signal.Direction.Encode(),
	}

	if v, ok := priceChangeOverWindow(st.PriceHistory, now, time.Hour); ok {
		f.PriceChange1h = v
	}
	if v, ok := priceChangeOverWindow(st.PriceHistory, now, 15*time.Minute); ok {
		f.PriceChange15m = v
	}
	if v, ok := priceChangeOverWindow(st.PriceHistory, now, 5*time.Minute); ok {
		f.PriceChange5m = v
	}

	if st.Current.LowPrice > 0 {
		f.HighLowRange = (st.Current.HighPrice - st.Current.LowPrice) / st.Current.LowPrice * 100
	}
	if rng := st.Current.HighPrice - st.Current.LowPrice; rng > 0 {
		f.PricePosition = (st.Current.LastPrice - st.Current.LowPrice) / rng * 100
	}

	f.VolumeQuote24h = st.Current.QuoteVolume
	if v, ok := volumeChangeOverWindow(st.VolumeHistory, now, time.Hour); ok {
		f.VolumeChange1h = v
	}
	if a, ok := vol[symbol]; ok {
		f.VolumeMultiplier = a.Multiplier
	}

	if a, ok := velo[symbol]; ok {
		f.Velocity = a.VelocityPct
		f.TrendState = trendStateCode(a.Trend)
	}
	if prior, ok := priorVelo[symbol]; ok {
		f.Acceleration = f.Velocity - prior
	}

	if rsi, ok := rsi1h(st.PriceHistory); ok {
		f.RSI1h = rsi
	}

	if a, ok := mtf[symbol]; ok {
		f.MTFAlignment = mtfAlignmentCode(a.Alignment)
		f.DivergenceType = divergenceCode(a.Divergence)
	}

	if a, ok := fund[symbol]; ok {
		f.FundingRate = a.Rate
		f.FundingSignal = fundingSignalCode(a.Signal)
		if (a.Direction == model.Long && signal.Direction == model.Long) ||
			(a.Direction == model.Short && signal.Direction == model.Short) {
			f.FundingDirectionMatch = 1
		}
	}

	if a, ok := oi[symbol]; ok {
		f.OIChangePercent = a.OIChangePct
		f.OISignal = oiSignalCode(a.Signal)
		if (a.Direction == model.Long && signal.Direction == model.Long) ||
			(a.Direction == model.Short && signal.Direction == model.Short) {
			f.OIPriceAlignment = 1
		}
	}

	if a, ok := pattern[symbol]; ok {
		f.PatternType = patternTypeCode(a.Kind)
		f.PatternConfidence = a.Confidence
		f.DistanceFromLevel = a.DistanceFromLevel
	}

	if a, ok := whale[symbol]; ok {
		f.WhaleActivity = a.Confidence
	}

	if a, ok := correlation[symbol]; ok {
		f.BTCCorrelation = a.Correlation
		f.BTCOutperformance = a.Outperformance
	}

	if atrPct, ok := atrPercent(st.PriceHistory, st.Current.LastPrice); ok {
		f.ATRPercent = atrPct
	}
	if dist, ok := vwapDistance(st.PriceHistory, st.VolumeHistory, st.Current.LastPrice); ok {
		f.VWAPDistance = dist
	}

	return f
}

// priceChangeOverWindow returns the percent change from the price recorded
// at or just before now-window to the current price.
func priceChangeOverWindow(history []model.PricePoint, now time.Time, window time.Duration) (float64, bool) {
	if len(history) == 0 {
		return 0, false
	}
	cutoff := now.Add(-window)
	past := history[0].Price
	for _, p := range history {
		if p.Ts.After(cutoff) {
			break
		}
		past = p.Price
	}
	return indicatorkit.PercentChange(past, history[len(history)-1].Price)
}

// volumeChangeOverWindow mirrors priceChangeOverWindow for the cumulative
// quote-volume history.
func volumeChangeOverWindow(history []model.VolumePoint, now time.Time, window time.Duration) (float64, bool) {
	if len(history) == 0 {
		return 0, false
	}
	cutoff := now.Add(-window)
	past := history[0].CumulativeQuoteVolume
	for _, p := range history {
		if p.Ts.After(cutoff) {
			break
		}
		past = p.CumulativeQuoteVolume
	}
	return indicatorkit.PercentChange(past, history[len(history)-1].CumulativeQuoteVolume)
}

// rsi1h runs WilderRSI over the retained price history's closes, using
// whatever window DataStore has (capped at 14 periods).
func rsi1h(history []model.PricePoint) (float64, bool) {
	if len(history) < 3 {
		return 0, false
	}
	closes := make([]float64, len(history))
	for i, p := range history {
		closes[i] = p.Price
	}
	period := len(closes) - 1
	if period > 14 {
		period = 14
	}
	return indicatorkit.WilderRSI(closes, period)
}

// atrPercent approximates ATR from price-only history: DataStore retains
// last-price ticks, not OHLC candles, so each consecutive pair of points
// stands in for one candle's high/low/close.
func atrPercent(history []model.PricePoint, currentPrice float64) (float64, bool) {
	if len(history) < 3 || currentPrice <= 0 {
		return 0, false
	}
	candles := make([]indicatorkit.Candle, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		hi, lo := history[i-1].Price, history[i].Price
		if hi < lo {
			hi, lo = lo, hi
		}
		candles = append(candles, indicatorkit.Candle{High: hi, Low: lo, Close: history[i].Price})
	}
	period := len(candles)
	if period > 14 {
		period = 14
	}
	atr, ok := indicatorkit.ATR(candles, period)
	if !ok {
		return 0, false
	}
	return atr / currentPrice * 100, true
}

// vwapDistance pairs the price and cumulative-volume histories (both
// appended once per DataStore.Update call, so their trailing N entries
// line up chronologically even when trimmed to different window lengths)
// into per-interval volume deltas, then measures the current price's
// distance from that VWAP.
func vwapDistance(priceHistory []model.PricePoint, volumeHistory []model.VolumePoint, currentPrice float64) (float64, bool) {
	n := len(priceHistory)
	if len(volumeHistory) < n {
		n = len(volumeHistory)
	}
	if n < 2 || currentPrice <= 0 {
		return 0, false
	}
	prices := priceHistory[len(priceHistory)-n:]
	volumes := volumeHistory[len(volumeHistory)-n:]

	candles := make([]indicatorkit.Candle, 0, n-1)
	for i := 1; i < n; i++ {
		delta := volumes[i].CumulativeQuoteVolume - volumes[i-1].CumulativeQuoteVolume
		if delta < 0 {
			delta = 0
		}
		candles = append(candles, indicatorkit.Candle{Close: prices[i].Price, Volume: delta})
	}
	vwap, ok := indicatorkit.VWAP(candles, len(candles))
	if !ok || vwap == 0 {
		return 0, false
	}
	return (currentPrice - vwap) / vwap * 100, true
}

func trendStateCode(t model.VelocityTrend) int {
	switch t {
	case model.TrendAccelerating:
		return 1
	case model.TrendDecelerating:
		return -1
	default:
		return 0
	}
}

func mtfAlignmentCode(a model.MTFAlignment) int {
	switch a {
	case model.AlignStrongBullish:
		return 2
	case model.AlignBullish:
		return 1
	case model.AlignStrongBearish:
		return -2
	default:
		return 0
	}
}

func divergenceCode(d model.MTFDivergence) int {
	switch d {
	case model.DivergenceBullish:
		return 1
	case model.DivergenceBearish:
		return -1
	default:
		return 0
	}
}

func fundingSignalCode(s model.FundingSignal) int {
	switch s {
	case model.FundingExtremePositive:
		return 2
	case model.FundingLongSqueeze:
		return 1
	case model.FundingExtremeNegative:
		return -2
	case model.FundingShortSqueeze:
		return -1
	default:
		return 0
	}
}

func oiSignalCode(s model.OISignal) int {
	switch s {
	case model.OIStrongTrend:
		return 2
	case model.OIBuildingLongs:
		return 1
	case model.OIBuildingShorts:
		return -1
	case model.OIClosingPositions:
		return -2
	default:
		return 0
	}
}

func patternTypeCode(k model.PatternKind) int {
	switch k {
	case model.PatternKeyLevel:
		return 1
	case model.PatternDoubleTop:
		return -1
	case model.PatternDoubleBottom:
		return 2
	default:
		return 0
	}
}
