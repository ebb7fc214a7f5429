package marketstore

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"marketpulse/internal/clock"
	"marketpulse/internal/model"
)

func TestUpdate_FirstSightNotReportedAsNewListing(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	s := New(c, DefaultConfig())

	res := s.Update([]model.Ticker{{Symbol: "AAAUSDT", LastPrice: 1, EventTime: c.Now()}})
	if len(res.NewListings) != 0 {
		t.Fatalf("first batch must never report new listings, got %v", res.NewListings)
	}

	c.Advance(time.Second)
	res = s.Update([]model.Ticker{{Symbol: "BBBUSDT", LastPrice: 1, EventTime: c.Now()}})
	if len(res.NewListings) != 1 || res.NewListings[0] != "BBBUSDT" {
		t.Fatalf("expected BBBUSDT reported as new listing, got %v", res.NewListings)
	}
}

func TestUpdate_IsNewFlipsAfterOneHour(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	s := New(c, DefaultConfig())
	s.Update([]model.Ticker{{Symbol: "AAAUSDT", LastPrice: 1, EventTime: c.Now()}})

	st, _ := s.Snapshot("AAAUSDT")
	if !st.IsNew {
		t.Fatal("expected isNew true immediately after first sight")
	}

	c.Advance(61 * time.Minute)
	s.Update([]model.Ticker{{Symbol: "AAAUSDT", LastPrice: 1, EventTime: c.Now()}})
	st, _ = s.Snapshot("AAAUSDT")
	if st.IsNew {
		t.Fatal("expected isNew false after > 1h")
	}
}

func TestUpdate_OutOfOrderEventTimeIgnored(t *testing.T) {
	c := clock.NewFixed(time.Unix(100, 0))
	s := New(c, DefaultConfig())
	s.Update([]model.Ticker{{Symbol: "AAAUSDT", LastPrice: 10, EventTime: c.Now()}})

	// Stale event time arrives after; must not overwrite current state.
	s.Update([]model.Ticker{{Symbol: "AAAUSDT", LastPrice: 999, EventTime: c.Now().Add(-time.Minute)}})
	st, _ := s.Snapshot("AAAUSDT")
	if st.Current.LastPrice != 10 {
		t.Fatalf("out-of-order update must be ignored, got price %v", st.Current.LastPrice)
	}
}

func TestUpdate_DuplicateEventTimeIgnored(t *testing.T) {
	c := clock.NewFixed(time.Unix(100, 0))
	s := New(c, DefaultConfig())
	s.Update([]model.Ticker{{Symbol: "AAAUSDT", LastPrice: 10, EventTime: c.Now()}})
	s.Update([]model.Ticker{{Symbol: "AAAUSDT", LastPrice: 20, EventTime: c.Now()}})

	st, _ := s.Snapshot("AAAUSDT")
	if st.Current.LastPrice != 10 {
		t.Fatalf("duplicate event time must be ignored, got price %v", st.Current.LastPrice)
	}
	if len(st.PriceHistory) != 1 {
		t.Fatalf("duplicate update must not append a second history point, got %d", len(st.PriceHistory))
	}
}

// TestUpdate_HistoryInvariant is the property test from spec §8: after N
// random updates, both histories are strictly ts-increasing and within
// their configured windows.
func TestUpdate_HistoryInvariant(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	cfg := DefaultConfig()
	s := New(c, cfg)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		c.Advance(time.Duration(rng.Intn(5000)) * time.Millisecond)
		s.Update([]model.Ticker{{
			Symbol:      "AAAUSDT",
			LastPrice:   100 + rng.Float64()*10,
			QuoteVolume: float64(i) * 10,
			EventTime:   c.Now(),
		}})
	}

	st, ok := s.Snapshot("AAAUSDT")
	if !ok {
		t.Fatal("expected symbol to be tracked")
	}

	now := c.Now()
	for i := 1; i < len(st.PriceHistory); i++ {
		if !st.PriceHistory[i].Ts.After(st.PriceHistory[i-1].Ts) {
			t.Fatalf("price history not strictly increasing at %d", i)
		}
	}
	for _, p := range st.PriceHistory {
		if now.Sub(p.Ts) > cfg.PriceWindow {
			t.Fatalf("price point older than window: age=%v", now.Sub(p.Ts))
		}
	}
	for i := 1; i < len(st.VolumeHistory); i++ {
		if !st.VolumeHistory[i].Ts.After(st.VolumeHistory[i-1].Ts) {
			t.Fatalf("volume history not strictly increasing at %d", i)
		}
	}
	for _, v := range st.VolumeHistory {
		if now.Sub(v.Ts) > cfg.VolumeWindow {
			t.Fatalf("volume point older than window: age=%v", now.Sub(v.Ts))
		}
	}
}

func TestSnapshot_IsACopyNotAnAlias(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	s := New(c, DefaultConfig())
	s.Update([]model.Ticker{{Symbol: "AAAUSDT", LastPrice: 1, EventTime: c.Now()}})

	st, _ := s.Snapshot("AAAUSDT")
	st.PriceHistory[0].Price = 12345

	st2, _ := s.Snapshot("AAAUSDT")
	if st2.PriceHistory[0].Price == 12345 {
		t.Fatal("Snapshot must return an independent copy")
	}
}

func TestUpdate_MalformedBatchRejectedWhole(t *testing.T) {
	c := clock.NewFixed(time.Unix(0, 0))
	s := New(c, DefaultConfig())
	s.Update([]model.Ticker{
		{Symbol: "AAAUSDT", LastPrice: 1, EventTime: c.Now()},
		{Symbol: "", LastPrice: 2, EventTime: c.Now()},
	})
	if s.Len() != 0 {
		t.Fatalf("malformed batch must be rejected as a whole, got %d symbols", s.Len())
	}
}

func ExampleStore_Update() {
	c := clock.NewFixed(time.Unix(0, 0))
	s := New(c, DefaultConfig())
	s.Update([]model.Ticker{{Symbol: "AAAUSDT", LastPrice: 100, EventTime: c.Now()}})
	st, _ := s.Snapshot("AAAUSDT")
	fmt.Println(st.Symbol, st.Current.LastPrice)
	// Output: AAAUSDT 100
}
