// Package exchange defines the ExchangeClient port (spec §6.1/§6.2) and
// ships reference adapters for the futures exchange's WS ticker stream and
// REST surface. The transport itself is an external collaborator (spec §1);
// CORE only depends on these interfaces.
package exchange

import (
	"context"
	"time"

	"marketpulse/internal/indicatorkit"
	"marketpulse/internal/model"
)

// KlineInterval is one of the supported REST/stream candle intervals.
type KlineInterval string

const (
	Interval1m  KlineInterval = "1m"
	Interval5m  KlineInterval = "5m"
	Interval15m KlineInterval = "15m"
	Interval1h  KlineInterval = "1h"
	Interval4h  KlineInterval = "4h"
	Interval1d  KlineInterval = "1d"
)

// Kline is one OHLCV candle.
type Kline struct {
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// FundingRate is one symbol's current perpetual funding rate.
type FundingRate struct {
	Symbol        string
	Rate          float64
	NextFundingTs time.Time
	MarkPrice     float64
}

// OpenInterest is a symbol's current open interest.
type OpenInterest struct {
	Symbol        string
	OpenInterest  float64
	Ts            time.Time
}

// StreamClient produces the live ticker batch stream (spec §6.1).
type StreamClient interface {
	// Stream blocks, invoking onBatch for every received ticker array, until
	// ctx is cancelled or an unrecoverable error occurs. Transient
	// disconnects are retried internally with fixed backoff and never
	// surfaced as a return error.
	Stream(ctx context.Context, onBatch func([]model.Ticker)) error
}

// RESTClient is the exchange's outbound REST surface (spec §6.2).
type RESTClient interface {
	GetFundingRates(ctx context.Context) ([]FundingRate, error)
	GetOpenInterest(ctx context.Context, symbol string) (OpenInterest, error)
	GetKlines(ctx context.Context, symbol string, interval KlineInterval, limit int) ([]Kline, error)
}

// Client is the full ExchangeClient port detectors and the scheduler depend
// on.
type Client interface {
	StreamClient
	RESTClient
}

// GetSymbolRSI is the spec §6.2(d) helper: Wilder RSI(14) computed from
// klines at the given interval.
func GetSymbolRSI(ctx context.Context, c RESTClient, symbol string, interval KlineInterval) (float64, bool, error) {
	klines, err := c.GetKlines(ctx, symbol, interval, 30)
	if err != nil {
		return 0, false, err
	}
	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}
	rsi, ok := indicatorkit.WilderRSI(closes, 14)
	return rsi, ok, nil
}
