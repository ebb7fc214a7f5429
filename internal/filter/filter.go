// Package filter implements the dashboard's symbol inclusion rules (spec
// §4.7): a single Pass(symbol) predicate driven by a small Config, with four
// named presets.
package filter

import (
	"math"
	"strings"

	"marketpulse/internal/model"
)

// SymbolLookup is the narrow read port onto live ticker state Filter needs
// to evaluate volume/change thresholds.
type SymbolLookup interface {
	Snapshot(symbol string) (model.SymbolState, bool)
}

// stablecoins is the set of stablecoin base assets excludeStablecoins
// filters out, keyed by the asset symbol with no quote suffix.
var stablecoins = map[string]struct{}{
	"USDC": {}, "BUSD": {}, "TUSD": {}, "DAI": {}, "FDUSD": {},
	"USDP": {}, "PYUSD": {}, "USDD": {}, "GUSD": {}, "USTC": {},
}

// knownQuotes is tried in order when stripping a symbol's quote suffix to
// recover its base asset.
var knownQuotes = []string{"USDT", "USDC", "BUSD", "FDUSD"}

// Config holds one filter's tunables.
type Config struct {
	MinVolume24h       float64
	MinChange24h       float64 // compared against |Change24h%|
	Exclude            map[string]struct{}
	Watchlist          []string // non-empty: acts as an allow-list
	OnlyQuote          string   // e.g. "USDT"; empty disables the check
	ExcludeStablecoins bool
}

// Filter evaluates Config against live ticker state.
type Filter struct {
	store SymbolLookup
	cfg   Config
}

// New creates a Filter backed by store.
func New(store SymbolLookup, cfg Config) *Filter {
	return &Filter{store: store, cfg: cfg}
}

// Pass reports whether symbol satisfies every configured rule.
func (f *Filter) Pass(symbol string) bool {
	if len(f.cfg.Watchlist) > 0 && !contains(f.cfg.Watchlist, symbol) {
		return false
	}
	if _, excluded := f.cfg.Exclude[symbol]; excluded {
		return false
	}
	if f.cfg.OnlyQuote != "" && !strings.HasSuffix(symbol, f.cfg.OnlyQuote) {
		return false
	}
	if f.cfg.ExcludeStablecoins && isStablecoinBase(symbol) {
		return false
	}

	if f.cfg.MinVolume24h <= 0 && f.cfg.MinChange24h <= 0 {
		return true
	}

	state, ok := f.store.Snapshot(symbol)
	if !ok {
		return false
	}
	if state.Current.QuoteVolume < f.cfg.MinVolume24h {
		return false
	}
	if math.Abs(state.Current.PriceChangePercent) < f.cfg.MinChange24h {
		return false
	}
	return true
}

func isStablecoinBase(symbol string) bool {
	base := baseAsset(symbol)
	_, ok := stablecoins[base]
	return ok
}

func baseAsset(symbol string) string {
	for _, quote := range knownQuotes {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return strings.TrimSuffix(symbol, quote)
		}
	}
	return symbol
}

func contains(list []string, symbol string) bool {
	for _, s := range list {
		if s == symbol {
			return true
		}
	}
	return false
}
