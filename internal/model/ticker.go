// Package model holds the data types shared across the detection pipeline:
// tickers, per-symbol rolling state, alerts, fused signals, and the feature
// schema handed to the predictor and the store.
package model

import "time"

// Ticker is a snapshot of a symbol's 24h window at a point in time, field
// compatible with a futures exchange's `!ticker@arr` payload.
type Ticker struct {
	Symbol             string
	LastPrice          float64
	OpenPrice          float64
	HighPrice          float64
	LowPrice           float64
	PriceChangePercent float64 // 24h %, e.g. 11.0 for +11%
	BaseVolume         float64
	QuoteVolume        float64
	TradeCount         int64
	EventTime          time.Time
}

// PricePoint is one observation in a symbol's rolling price history.
type PricePoint struct {
	Price float64
	Ts    time.Time
}

// VolumePoint is one observation in a symbol's rolling cumulative-volume
// history (cumulative 24h quote volume at ts, not a delta).
type VolumePoint struct {
	CumulativeQuoteVolume float64
	Ts                    time.Time
}
