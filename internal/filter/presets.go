package filter

// Named presets (spec §4.7). Watchlist entries for topTier are the
// exchange's usual highest-liquidity perpetuals; operators can override via
// config.
var (
	// HighVolumePreset surfaces only the deepest-liquidity USDT pairs,
	// regardless of how much they've moved.
	HighVolumePreset = Config{
		MinVolume24h:       5_000_000,
		OnlyQuote:          "USDT",
		ExcludeStablecoins: true,
	}

	// BigMoversPreset surfaces liquid pairs making a meaningful 24h move.
	BigMoversPreset = Config{
		MinVolume24h:       10_000_000,
		MinChange24h:       5,
		OnlyQuote:          "USDT",
		ExcludeStablecoins: true,
	}

	// TopTierPreset restricts to a fixed watchlist of the most liquid
	// majors, with no volume/change floor of its own.
	TopTierPreset = Config{
		Watchlist:          []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT"},
		OnlyQuote:          "USDT",
		ExcludeStablecoins: true,
	}

	// AllPreset applies no restriction at all.
	AllPreset = Config{}
)

// Presets returns the four named presets keyed by name, for config-driven
// selection.
func Presets() map[string]Config {
	return map[string]Config{
		"highVolume": HighVolumePreset,
		"bigMovers":  BigMoversPreset,
		"topTier":    TopTierPreset,
		"all":        AllPreset,
	}
}
