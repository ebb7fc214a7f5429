package filter

import (
	"testing"

	"marketpulse/internal/model"
)

type fakeLookup struct {
	states map[string]model.SymbolState
}

func (f *fakeLookup) Snapshot(symbol string) (model.SymbolState, bool) {
	s, ok := f.states[symbol]
	return s, ok
}

func newLookup(entries map[string][2]float64) *fakeLookup {
	states := make(map[string]model.SymbolState, len(entries))
	for symbol, vc := range entries {
		states[symbol] = model.SymbolState{
			Symbol:  symbol,
			Current: model.Ticker{Symbol: symbol, QuoteVolume: vc[0], PriceChangePercent: vc[1]},
		}
	}
	return &fakeLookup{states: states}
}

// TestBigMoversPreset_Scenario is spec §8 scenario 6: USDCUSDT with a 20%
// move is excluded as a stablecoin base; DOGEUSDT with volume 20M/change 6%
// is included.
func TestBigMoversPreset_Scenario(t *testing.T) {
	lookup := newLookup(map[string][2]float64{
		"USDCUSDT": {20_000_000, 20},
		"DOGEUSDT": {20_000_000, 6},
	})
	f := New(lookup, BigMoversPreset)

	if f.Pass("USDCUSDT") {
		t.Error("expected USDCUSDT excluded as a stablecoin base")
	}
	if !f.Pass("DOGEUSDT") {
		t.Error("expected DOGEUSDT to pass bigMovers")
	}
}

func TestBigMoversPreset_BelowVolumeFloorExcluded(t *testing.T) {
	lookup := newLookup(map[string][2]float64{"LOWVOLUSDT": {1_000_000, 10}})
	f := New(lookup, BigMoversPreset)
	if f.Pass("LOWVOLUSDT") {
		t.Error("expected symbol below minVolume24h to be excluded")
	}
}

func TestBigMoversPreset_BelowChangeFloorExcluded(t *testing.T) {
	lookup := newLookup(map[string][2]float64{"FLATUSDT": {20_000_000, 1}})
	f := New(lookup, BigMoversPreset)
	if f.Pass("FLATUSDT") {
		t.Error("expected symbol below minChange24h to be excluded")
	}
}

func TestBigMoversPreset_NonUSDTExcluded(t *testing.T) {
	lookup := newLookup(map[string][2]float64{"BTCUSDC": {20_000_000, 10}})
	f := New(lookup, BigMoversPreset)
	if f.Pass("BTCUSDC") {
		t.Error("expected non-USDT quote excluded by onlyQuote")
	}
}

func TestTopTierPreset_WatchlistActsAsAllowList(t *testing.T) {
	lookup := newLookup(map[string][2]float64{
		"BTCUSDT": {1, 0},
		"DOGEUSDT": {1, 0},
	})
	f := New(lookup, TopTierPreset)

	if !f.Pass("BTCUSDT") {
		t.Error("expected BTCUSDT on the top-tier watchlist to pass")
	}
	if f.Pass("DOGEUSDT") {
		t.Error("expected DOGEUSDT off the top-tier watchlist to be excluded")
	}
}

func TestAllPreset_PassesEverythingWithoutLookup(t *testing.T) {
	f := New(&fakeLookup{}, AllPreset)
	if !f.Pass("ANYTHINGATALL") {
		t.Error("expected the all preset to pass any symbol without needing store state")
	}
}

func TestExcludeSet_OverridesEverythingElse(t *testing.T) {
	lookup := newLookup(map[string][2]float64{"BANNEDUSDT": {50_000_000, 50}})
	cfg := BigMoversPreset
	cfg.Exclude = map[string]struct{}{"BANNEDUSDT": {}}
	f := New(lookup, cfg)

	if f.Pass("BANNEDUSDT") {
		t.Error("expected explicitly excluded symbol to fail Pass even if it otherwise qualifies")
	}
}

func TestPresets_ReturnsAllFourNames(t *testing.T) {
	presets := Presets()
	for _, name := range []string{"highVolume", "bigMovers", "topTier", "all"} {
		if _, ok := presets[name]; !ok {
			t.Errorf("expected preset %q to be present", name)
		}
	}
}
