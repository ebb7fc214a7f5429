package detectors

import (
	"context"
	"sync"

	"marketpulse/internal/clock"
	"marketpulse/internal/exchange"
	"marketpulse/internal/indicatorkit"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// EntryTimingConfig holds the candle window, ATR multiples, and the R/R
// gate.
type EntryTimingConfig struct {
	CandleCount    int     // default 50, 15m candles
	ATRPeriod      int     // default 14
	VWAPPeriod     int     // default 20
	RSIPeriod      int     // default 14
	RSIOverbought  float64 // default 70
	RSIOversold    float64 // default 30
	VWAPProximity  float64 // default 0.5 (%)
	BreakoutLookback int   // default 20
	StopLossATR    float64 // default 2
	TakeProfit1ATR float64 // default 1.5
	TakeProfit2ATR float64 // default 3
	TakeProfit3ATR float64 // default 5
	MinRiskReward  float64 // default 1.5
	Symbols        []string
}

// DefaultEntryTimingConfig returns spec §4.2 defaults.
func DefaultEntryTimingConfig() EntryTimingConfig {
	return EntryTimingConfig{
		CandleCount: 50, ATRPeriod: 14, VWAPPeriod: 20, RSIPeriod: 14,
		RSIOverbought: 70, RSIOversold: 30, VWAPProximity: 0.5, BreakoutLookback: 20,
		StopLossATR: 2, TakeProfit1ATR: 1.5, TakeProfit2ATR: 3, TakeProfit3ATR: 5, MinRiskReward: 1.5,
	}
}

// EntryTimingDetector polls 15m candles (driven externally by the
// scheduler), computes ATR/VWAP/RSI, and proposes an entry type with
// SL/TP levels gated on risk/reward.
type EntryTimingDetector struct {
	client exchange.RESTClient
	store  *marketstore.Store
	clock  clock.Clock
	cfg    EntryTimingConfig

	mu      sync.Mutex
	candles map[string][]exchange.Kline
}

// NewEntryTimingDetector creates an EntryTiming detector.
func NewEntryTimingDetector(store *marketstore.Store, client exchange.RESTClient, c clock.Clock, cfg EntryTimingConfig) *EntryTimingDetector {
	def := DefaultEntryTimingConfig()
	if cfg.CandleCount <= 0 {
		cfg.CandleCount = def.CandleCount
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = def.ATRPeriod
	}
	if cfg.VWAPPeriod <= 0 {
		cfg.VWAPPeriod = def.VWAPPeriod
	}
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = def.RSIPeriod
	}
	if cfg.RSIOverbought <= 0 {
		cfg.RSIOverbought = def.RSIOverbought
	}
	if cfg.RSIOversold <= 0 {
		cfg.RSIOversold = def.RSIOversold
	}
	if cfg.VWAPProximity <= 0 {
		cfg.VWAPProximity = def.VWAPProximity
	}
	if cfg.BreakoutLookback <= 0 {
		cfg.BreakoutLookback = def.BreakoutLookback
	}
	if cfg.StopLossATR <= 0 {
		cfg.StopLossATR = def.StopLossATR
	}
	if cfg.TakeProfit1ATR <= 0 {
		cfg.TakeProfit1ATR = def.TakeProfit1ATR
	}
	if cfg.TakeProfit2ATR <= 0 {
		cfg.TakeProfit2ATR = def.TakeProfit2ATR
	}
	if cfg.TakeProfit3ATR <= 0 {
		cfg.TakeProfit3ATR = def.TakeProfit3ATR
	}
	if cfg.MinRiskReward <= 0 {
		cfg.MinRiskReward = def.MinRiskReward
	}
	return &EntryTimingDetector{store: store, client: client, clock: c, cfg: cfg, candles: make(map[string][]exchange.Kline)}
}

func (d *EntryTimingDetector) Name() string { return "entry_timing" }

// Update implements Updater: refreshes 15m candles for the configured
// symbols (all store symbols if unset).
func (d *EntryTimingDetector) Update(ctx context.Context) error {
	symbols := d.cfg.Symbols
	if len(symbols) == 0 {
		symbols = d.store.Symbols()
	}
	for _, symbol := range symbols {
		klines, err := d.client.GetKlines(ctx, symbol, exchange.Interval15m, d.cfg.CandleCount)
		if err != nil || len(klines) == 0 {
			continue
		}
		d.mu.Lock()
		d.candles[symbol] = klines
		d.mu.Unlock()
	}
	return nil
}

// Detect implements Detector.
func (d *EntryTimingDetector) Detect() []Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	alerts := make([]model.EntryTimingAlert, 0)
	for symbol, klines := range d.candles {
		alert, ok := d.evaluate(symbol, klines)
		if !ok {
			continue
		}
		alert.Timestamp = d.clock.Now()
		alerts = append(alerts, alert)
	}

	sortBySymbol(alerts,
		func(a, b model.EntryTimingAlert) bool { return a.RiskReward > b.RiskReward },
		func(a model.EntryTimingAlert) string { return a.Symbol },
	)

	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
	}
	return out
}

func (d *EntryTimingDetector) evaluate(symbol string, klines []exchange.Kline) (model.EntryTimingAlert, bool) {
	if len(klines) < d.cfg.ATRPeriod+1 {
		return model.EntryTimingAlert{}, false
	}

	candles := make([]indicatorkit.Candle, len(klines))
	closes := make([]float64, len(klines))
	for i, k := range klines {
		candles[i] = indicatorkit.Candle{Open: k.Open, High: k.High, Low: k.Low, Close: k.Close, Volume: k.Volume}
		closes[i] = k.Close
	}

	atr, ok := indicatorkit.ATR(candles, d.cfg.ATRPeriod)
	if !ok || atr == 0 {
		return model.EntryTimingAlert{}, false
	}
	vwap, vwapOK := indicatorkit.VWAP(candles, d.cfg.VWAPPeriod)
	rsi, rsiOK := indicatorkit.WilderRSI(closes, d.cfg.RSIPeriod)
	price := closes[len(closes)-1]

	entryType := model.EntryMomentum
	switch {
	case vwapOK && price != 0 && indicatorkit.Clamp(absPct(price, vwap), 0, 1000) <= d.cfg.VWAPProximity:
		entryType = model.EntryEarly
	case rsiOK && (rsi >= d.cfg.RSIOverbought || rsi <= d.cfg.RSIOversold):
		entryType = model.EntryReversal
	case isBreakout(closes, d.cfg.BreakoutLookback):
		entryType = model.EntryBreakout
	}

	dir := model.Long
	if rsiOK && rsi > 50 {
		dir = model.Long
	} else if rsiOK {
		dir = model.Short
	} else if len(closes) >= 2 && closes[len(closes)-1] < closes[len(closes)-2] {
		dir = model.Short
	}

	var stopLoss, tp1, tp2, tp3 float64
	if dir == model.Long {
		stopLoss = price - atr*d.cfg.StopLossATR
		tp1 = price + atr*d.cfg.TakeProfit1ATR
		tp2 = price + atr*d.cfg.TakeProfit2ATR
		tp3 = price + atr*d.cfg.TakeProfit3ATR
	} else {
		stopLoss = price + atr*d.cfg.StopLossATR
		tp1 = price - atr*d.cfg.TakeProfit1ATR
		tp2 = price - atr*d.cfg.TakeProfit2ATR
		tp3 = price - atr*d.cfg.TakeProfit3ATR
	}

	risk := atr * d.cfg.StopLossATR
	reward := atr * d.cfg.TakeProfit1ATR
	if risk == 0 {
		return model.EntryTimingAlert{}, false
	}
	riskReward := reward / risk
	if riskReward < d.cfg.MinRiskReward {
		return model.EntryTimingAlert{}, false
	}

	return model.EntryTimingAlert{
		Symbol:      symbol,
		Type:        entryType,
		StopLoss:    stopLoss,
		TakeProfit1: tp1,
		TakeProfit2: tp2,
		TakeProfit3: tp3,
		RiskReward:  riskReward,
		Direction:   dir,
	}, true
}

func absPct(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	v := (a - b) / b * 100
	if v < 0 {
		return -v
	}
	return v
}

func isBreakout(closes []float64, lookback int) bool {
	if len(closes) < lookback+1 {
		return false
	}
	window := closes[len(closes)-lookback-1 : len(closes)-1]
	high, low := window[0], window[0]
	for _, c := range window {
		if c > high {
			high = c
		}
		if c < low {
			low = c
		}
	}
	current := closes[len(closes)-1]
	return current > high || current < low
}
