package model

import "time"

// Direction is the closed sum type shared by every alert and signal. It is
// encoded as ±1/0 in the feature schema (see Features.Direction).
type Direction string

const (
	Long    Direction = "LONG"
	Short   Direction = "SHORT"
	Neutral Direction = "NEUTRAL"
)

// Encode returns the integer encoding used by the feature schema.
func (d Direction) Encode() int {
	switch d {
	case Long:
		return 1
	case Short:
		return -1
	default:
		return 0
	}
}

// VolatilityAlert — emitted when |Δ24h%| crosses the configured floor.
type VolatilityAlert struct {
	Symbol      string
	Change24h   float64
	IsCritical  bool
	Direction   Direction
	Timestamp   time.Time
}

// VelocityTrend classifies how a symbol's velocity is changing call over
// call.
type VelocityTrend string

const (
	TrendAccelerating VelocityTrend = "ACCELERATING"
	TrendSteady       VelocityTrend = "STEADY"
	TrendDecelerating VelocityTrend = "DECELERATING"
)

// VelocityAlert — rate of price change per minute over the velocity window.
type VelocityAlert struct {
	Symbol      string
	VelocityPct float64 // % per minute
	Trend       VelocityTrend
	Direction   Direction
	Timestamp   time.Time
}

// VolumeAlert — a volume spike relative to the detector's own trailing
// baseline.
type VolumeAlert struct {
	Symbol      string
	Multiplier  float64 // recentRate / avgRate
	QuoteVol24h float64
	Direction   Direction
	Timestamp   time.Time
}

// RangePosition classifies where price sits within the 24h range.
type RangePosition string

const (
	PositionNearHigh  RangePosition = "NEAR_HIGH"
	PositionNearLow   RangePosition = "NEAR_LOW"
	PositionBreaking  RangePosition = "BREAKING"
	PositionMiddle    RangePosition = "MIDDLE"
)

// RangeAlert — 24h high/low range as a percentage of the open.
type RangeAlert struct {
	Symbol    string
	RangePct  float64
	Position  RangePosition
	Direction Direction
	Timestamp time.Time
}

// NewListingAlert — a symbol observed for the first time since process
// start, still inside its 1h "new" grace window.
type NewListingAlert struct {
	Symbol          string
	FirstPrice      float64
	CurrentPrice    float64
	ChangeFromFirst float64
	Timestamp       time.Time
}

// FundingSignal classifies the funding-rate/24h-change combination.
type FundingSignal string

const (
	FundingExtremePositive FundingSignal = "EXTREME_POSITIVE"
	FundingExtremeNegative FundingSignal = "EXTREME_NEGATIVE"
	FundingLongSqueeze     FundingSignal = "LONG_SQUEEZE"
	FundingShortSqueeze    FundingSignal = "SHORT_SQUEEZE"
	FundingNormal          FundingSignal = "NORMAL"
)

// FundingAlert — polled funding rate classified against 24h price action.
type FundingAlert struct {
	Symbol    string
	Rate      float64
	Signal    FundingSignal
	Strength  float64 // 0..100
	Direction Direction
	Timestamp time.Time
}

// OISignal classifies an (OIΔ, priceΔ) pair.
type OISignal string

const (
	OIStrongTrend     OISignal = "STRONG_TREND"
	OIBuildingShorts  OISignal = "BUILDING_SHORTS"
	OIBuildingLongs   OISignal = "BUILDING_LONGS"
	OIClosingPositions OISignal = "CLOSING_POSITIONS"
	OINeutral         OISignal = "NEUTRAL"
)

// OpenInterestAlert — OI delta co-analysed with price delta.
type OpenInterestAlert struct {
	Symbol       string
	OIChangePct  float64
	PriceChange  float64
	Signal       OISignal
	Direction    Direction
	Timestamp    time.Time
}

// MTFAlignment classifies cross-timeframe agreement.
type MTFAlignment string

const (
	AlignStrongBullish MTFAlignment = "STRONG_BULLISH"
	AlignBullish       MTFAlignment = "BULLISH"
	AlignStrongBearish MTFAlignment = "STRONG_BEARISH"
	AlignBearish       MTFAlignment = "BEARISH"
	AlignMixed         MTFAlignment = "MIXED"
)

// MTFDivergence classifies a 15m/4h divergence.
type MTFDivergence string

const (
	DivergenceNone     MTFDivergence = "NONE"
	DivergenceBullish  MTFDivergence = "BULLISH_DIVERGENCE" // 15m up, 4h down
	DivergenceBearish  MTFDivergence = "BEARISH_DIVERGENCE" // 15m down, 4h up
)

// MTFMomentum classifies momentum change across timeframes.
type MTFMomentum string

const (
	MomentumAccelerating MTFMomentum = "ACCELERATING"
	MomentumDecelerating MTFMomentum = "DECELERATING"
	MomentumSteady       MTFMomentum = "STEADY"
)

// MultiTimeframeAlert — 15m/1h/4h alignment, divergence, and momentum.
type MultiTimeframeAlert struct {
	Symbol     string
	Alignment  MTFAlignment
	Divergence MTFDivergence
	Momentum   MTFMomentum
	Direction  Direction
	Timestamp  time.Time
}

// LiquidationIntensity classifies estimated liquidated notional over the
// rolling 5-minute window.
type LiquidationIntensity string

const (
	LiquidationExtreme LiquidationIntensity = "EXTREME"
	LiquidationHigh    LiquidationIntensity = "HIGH"
	LiquidationMedium  LiquidationIntensity = "MEDIUM"
	LiquidationLow     LiquidationIntensity = "LOW"
)

// LiquidationAlert — inferred liquidation pressure from public ticker data
// only. Not a ground-truth liquidation stream (see spec Open Question #2).
type LiquidationAlert struct {
	Symbol           string
	EstimatedNotional float64
	Intensity        LiquidationIntensity
	Direction        Direction
	Timestamp        time.Time
}

// WhaleActivity classifies a large-size volume event.
type WhaleActivity string

const (
	WhaleAccumulation WhaleActivity = "ACCUMULATION"
	WhaleDistribution WhaleActivity = "DISTRIBUTION"
	WhaleLargeBuy     WhaleActivity = "LARGE_BUY"
	WhaleLargeSell    WhaleActivity = "LARGE_SELL"
)

// WhaleAlert — large-size volume burst classified by concurrent price move.
type WhaleAlert struct {
	Symbol     string
	Activity   WhaleActivity
	SizeUSD    float64
	Ratio      float64
	Confidence float64 // 0..100
	Direction  Direction
	Timestamp  time.Time
}

// CorrelationAlert — per-symbol correlation vs BTC over a rolling window.
type CorrelationAlert struct {
	Symbol          string
	Correlation     float64 // Pearson r, [-1, 1]
	Decoupled       bool    // |r| < 0.3
	Outperformance  float64 // |altΔ - btcΔ|, only meaningful when |r| >= 0.3
	Direction       Direction
	Timestamp       time.Time
}

// SentimentBand labels a 0-100 composite score.
type SentimentBand string

const (
	SentimentExtremeFear SentimentBand = "EXTREME_FEAR"
	SentimentFear        SentimentBand = "FEAR"
	SentimentNeutral     SentimentBand = "NEUTRAL"
	SentimentGreed       SentimentBand = "GREED"
	SentimentExtremeGreed SentimentBand = "EXTREME_GREED"
)

// SentimentAlert — per-symbol greed/fear composite.
type SentimentAlert struct {
	Symbol    string
	Score     float64 // 0..100
	Band      SentimentBand
	Direction Direction
	Timestamp time.Time
}

// PatternKind distinguishes key-level proximity from double top/bottom.
type PatternKind string

const (
	PatternKeyLevel      PatternKind = "KEY_LEVEL"
	PatternDoubleTop     PatternKind = "DOUBLE_TOP"
	PatternDoubleBottom  PatternKind = "DOUBLE_BOTTOM"
)

// PatternAlert — proximity to a key level, or a double top/bottom formation.
type PatternAlert struct {
	Symbol            string
	Kind              PatternKind
	DistanceFromLevel float64 // %, only meaningful for PatternKeyLevel
	Confidence        float64 // 0..100
	Direction         Direction
	Timestamp         time.Time
}

// EntryType is the categorical trading thesis behind an emitted signal.
type EntryType string

const (
	EntryEarly     EntryType = "EARLY"
	EntryMomentum  EntryType = "MOMENTUM"
	EntryReversal  EntryType = "REVERSAL"
	EntryBreakout  EntryType = "BREAKOUT"
)

// EntryTimingAlert — ATR/VWAP/RSI derived entry proposal with R/R gate.
type EntryTimingAlert struct {
	Symbol        string
	Type          EntryType
	StopLoss      float64
	TakeProfit1   float64
	TakeProfit2   float64
	TakeProfit3   float64
	RiskReward    float64
	Direction     Direction
	Timestamp     time.Time
}

// ReversalAlert — output of the SignalEngine's reversal sub-engine.
type ReversalAlert struct {
	Symbol     string
	Confidence float64 // additive trigger score, 0..100
	Triggers   []string
	Direction  Direction
	Timestamp  time.Time
}

// TopPickAlert — TopPicker's cross-detector composite ranking.
type TopPickAlert struct {
	Symbol     string
	Score      float64
	Reasons    []string
	Direction  Direction
	Timestamp  time.Time
}
