// Package indicatorkit holds the technical-indicator math shared across
// detectors: Wilder RSI, ATR, VWAP, EMA, and Pearson correlation. Detectors
// compose these rather than each hand-rolling its own.
package indicatorkit

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Candle is the minimal OHLCV shape indicator functions operate over.
type Candle struct {
	Open, High, Low, Close, Volume float64
}

// WilderRSI computes the 14-period (or len(period)) Wilder-smoothed RSI from
// closes, returning (rsi, ok). ok is false when there aren't enough closes.
func WilderRSI(closes []float64, period int) (float64, bool) {
	if period <= 0 {
		period = 14
	}
	if len(closes) < period+1 {
		return 0, false
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		var gain, loss float64
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))
	return rsi, true
}

// ATR computes the N-period average true range from candles, returning
// (atr, ok).
func ATR(candles []Candle, period int) (float64, bool) {
	if period <= 0 {
		period = 14
	}
	if len(candles) < period+1 {
		return 0, false
	}

	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		c := candles[i]
		prevClose := candles[i-1].Close
		tr := math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
		trs = append(trs, tr)
	}
	if len(trs) < period {
		return 0, false
	}

	var sum float64
	for _, tr := range trs[len(trs)-period:] {
		sum += tr
	}
	return sum / float64(period), true
}

// VWAP computes the volume-weighted average of typical price (H+L+C)/3 over
// the last `period` candles, returning (vwap, ok).
func VWAP(candles []Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < period {
		return 0, false
	}
	window := candles[len(candles)-period:]

	var pvSum, vSum float64
	for _, c := range window {
		typical := (c.High + c.Low + c.Close) / 3
		pvSum += typical * c.Volume
		vSum += c.Volume
	}
	if vSum == 0 {
		return 0, false
	}
	return pvSum / vSum, true
}

// EMA computes an exponential moving average over values with the standard
// smoothing factor 2/(period+1), returning (ema, ok).
func EMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	alpha := 2.0 / float64(period+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = alpha*v + (1-alpha)*ema
	}
	return ema, true
}

// PearsonCorrelation computes the Pearson correlation coefficient between
// two equal-length windows, returning (r, ok). Requires at least 2 points.
func PearsonCorrelation(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) < 2 {
		return 0, false
	}
	r := stat.Correlation(a, b, nil)
	if math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

// PercentChange returns (cur-prev)/prev*100, or (0, false) if prev is zero.
func PercentChange(prev, cur float64) (float64, bool) {
	if prev == 0 {
		return 0, false
	}
	return (cur - prev) / prev * 100, true
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
