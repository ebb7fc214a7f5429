package model

// FeatureSchemaVersion is bumped whenever the column set or encoding below
// changes shape. It is not written with persisted rows or sent to the
// predictor.
const FeatureSchemaVersion = 1

// Features is the fixed 35-column numeric vector shared by the predictor and
// the store. Column order matches spec §6.4 exactly; Direction is required
// and must be the final column.
type Features struct {
	PriceChange24h      float64
	PriceChange1h       float64
	PriceChange15m      float64
	PriceChange5m       float64
	HighLowRange        float64
	PricePosition       float64
	VolumeQuote24h      float64
	VolumeMultiplier    float64
	VolumeChange1h      float64
	Velocity            float64
	Acceleration        float64
	TrendState          int
	RSI1h               float64
	MTFAlignment        int
	DivergenceType      int
	FundingRate         float64
	FundingSignal       int
	FundingDirectionMatch int
	OIChangePercent     float64
	OISignal            int
	OIPriceAlignment    int
	PatternType         int
	PatternConfidence   float64
	DistanceFromLevel   float64
	SmartConfidence     float64
	ComponentCount      int
	EntryType           int
	RiskLevel           int
	ATRPercent          float64
	VWAPDistance        float64
	RiskRewardRatio     float64
	WhaleActivity       float64
	BTCCorrelation      float64
	BTCOutperformance   float64
	Direction           int // +1 LONG, -1 SHORT, 0 NEUTRAL; required, final column
}

// Columns returns the 35 feature values in schema order, the shape written
// to Store and sent to Predictor.
func (f Features) Columns() [35]float64 {
	return [35]float64{
		f.PriceChange24h, f.PriceChange1h, f.PriceChange15m, f.PriceChange5m,
		f.HighLowRange, f.PricePosition, f.VolumeQuote24h, f.VolumeMultiplier,
		f.VolumeChange1h, f.Velocity, f.Acceleration, float64(f.TrendState),
		f.RSI1h, float64(f.MTFAlignment), float64(f.DivergenceType), f.FundingRate,
		float64(f.FundingSignal), float64(f.FundingDirectionMatch), f.OIChangePercent,
		float64(f.OISignal), float64(f.OIPriceAlignment), float64(f.PatternType),
		f.PatternConfidence, f.DistanceFromLevel, f.SmartConfidence, float64(f.ComponentCount),
		float64(f.EntryType), float64(f.RiskLevel), f.ATRPercent, f.VWAPDistance,
		f.RiskRewardRatio, f.WhaleActivity, f.BTCCorrelation, f.BTCOutperformance,
		float64(f.Direction),
	}
}

// ColumnNames returns the 35 column names in schema order, matching
// Columns().
func ColumnNames() [35]string {
	return [35]string{
		"price_change_24h", "price_change_1h", "price_change_15m", "price_change_5m",
		"high_low_range", "price_position", "volume_quote_24h", "volume_multiplier",
		"volume_change_1h", "velocity", "acceleration", "trend_state",
		"rsi_1h", "mtf_alignment", "divergence_type", "funding_rate",
		"funding_signal", "funding_direction_match", "oi_change_percent",
		"oi_signal", "oi_price_alignment", "pattern_type",
		"pattern_confidence", "distance_from_level", "smart_confidence", "component_count",
		"entry_type", "risk_level", "atr_percent", "vwap_distance",
		"risk_reward_ratio", "whale_activity", "btc_correlation", "btc_outperformance",
		"direction",
	}
}
