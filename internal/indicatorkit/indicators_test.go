package indicatorkit

import "testing"

func TestWilderRSI_InsufficientData(t *testing.T) {
	if _, ok := WilderRSI([]float64{1, 2, 3}, 14); ok {
		t.Fatal("expected not-ok with fewer than period+1 closes")
	}
}

func TestWilderRSI_AllGainsIs100(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	rsi, ok := WilderRSI(closes, 14)
	if !ok {
		t.Fatal("expected ok")
	}
	if rsi != 100 {
		t.Fatalf("expected RSI 100 for monotonic gains, got %v", rsi)
	}
}

func TestATR_InsufficientData(t *testing.T) {
	if _, ok := ATR([]Candle{{High: 1, Low: 0, Close: 0.5}}, 14); ok {
		t.Fatal("expected not-ok with too few candles")
	}
}

func TestVWAP_Basic(t *testing.T) {
	candles := []Candle{
		{High: 10, Low: 8, Close: 9, Volume: 100},
		{High: 11, Low: 9, Close: 10, Volume: 200},
	}
	vwap, ok := VWAP(candles, 2)
	if !ok {
		t.Fatal("expected ok")
	}
	if vwap <= 0 {
		t.Fatalf("expected positive vwap, got %v", vwap)
	}
}

func TestPearsonCorrelation_PerfectPositive(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 4, 6, 8, 10}
	r, ok := PearsonCorrelation(a, b)
	if !ok {
		t.Fatal("expected ok")
	}
	if r < 0.999 {
		t.Fatalf("expected near-perfect correlation, got %v", r)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(150, 0, 100) != 100 {
		t.Fatal("expected clamp to upper bound")
	}
	if Clamp(-10, 0, 100) != 0 {
		t.Fatal("expected clamp to lower bound")
	}
}
