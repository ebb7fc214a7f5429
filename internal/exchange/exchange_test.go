package exchange

import (
	"context"
	"testing"
	"time"

	"marketpulse/internal/model"
)

func TestToTicker(t *testing.T) {
	raw := rawTicker{
		Symbol:             "BTCUSDT",
		PriceChangePercent: "11.0",
		LastPrice:          "65000.5",
		OpenPrice:          "58000.0",
		HighPrice:          "66000.0",
		LowPrice:           "57000.0",
		BaseVolume:         "1200.5",
		QuoteVolume:        "75000000.0",
		TradeCount:         45000,
		EventTime:          1700000000000,
	}

	ticker, err := toTicker(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticker.Symbol != "BTCUSDT" {
		t.Errorf("expected symbol BTCUSDT, got %s", ticker.Symbol)
	}
	if ticker.LastPrice != 65000.5 {
		t.Errorf("expected last price 65000.5, got %v", ticker.LastPrice)
	}
	if ticker.PriceChangePercent != 11.0 {
		t.Errorf("expected 11.0 pct change, got %v", ticker.PriceChangePercent)
	}
	if !ticker.EventTime.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("unexpected event time: %v", ticker.EventTime)
	}
}

func TestToTicker_MalformedPriceRejected(t *testing.T) {
	raw := rawTicker{Symbol: "BTCUSDT", LastPrice: "not-a-number"}
	if _, err := toTicker(raw); err == nil {
		t.Fatal("expected error for malformed last price")
	}
}

func TestMockClient_KlinesTruncatesToLimit(t *testing.T) {
	m := NewMockClient()
	klines := make([]Kline, 0, 30)
	for i := 0; i < 30; i++ {
		klines = append(klines, Kline{Close: float64(100 + i)})
	}
	m.SeedKlines("BTCUSDT", klines)

	got, err := m.GetKlines(context.Background(), "BTCUSDT", Interval1h, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 klines, got %d", len(got))
	}
	if got[len(got)-1].Close != 129 {
		t.Fatalf("expected last close 129, got %v", got[len(got)-1].Close)
	}
}

func TestMockClient_StreamReplaysSeededBatches(t *testing.T) {
	m := NewMockClient()
	batch := []model.Ticker{{Symbol: "ETHUSDT", LastPrice: 3500}}
	m.SeedStreamBatches(batch)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var received []model.Ticker
	err := m.Stream(ctx, func(b []model.Ticker) {
		received = append(received, b...)
	})
	if err == nil {
		t.Fatal("expected context deadline error once stream blocks")
	}
	if len(received) != 1 || received[0].Symbol != "ETHUSDT" {
		t.Fatalf("expected one replayed ETHUSDT ticker, got %+v", received)
	}
}

func TestGetSymbolRSI(t *testing.T) {
	m := NewMockClient()
	klines := make([]Kline, 20)
	for i := range klines {
		klines[i] = Kline{Close: float64(100 + i)}
	}
	m.SeedKlines("BTCUSDT", klines)

	rsi, ok, err := GetSymbolRSI(context.Background(), m, "BTCUSDT", Interval1h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok")
	}
	if rsi != 100 {
		t.Fatalf("expected RSI 100 for monotonic closes, got %v", rsi)
	}
}
