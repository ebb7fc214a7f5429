package detectors

import (
	"math"

	"marketpulse/internal/clock"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// NewListingDetector reports symbols still inside DataStore's "new" grace
// window, comparing current price against the price first observed.
type NewListingDetector struct {
	store *marketstore.Store
	clock clock.Clock
}

// NewNewListingDetector creates a NewListing detector over store.
func NewNewListingDetector(store *marketstore.Store, c clock.Clock) *NewListingDetector {
	return &NewListingDetector{store: store, clock: c}
}

func (d *NewListingDetector) Name() string { return "new_listing" }

// Detect implements Detector.
func (d *NewListingDetector) Detect() []Alert {
	snap := d.store.SnapshotAll()
	alerts := make([]model.NewListingAlert, 0)

	for symbol, st := range snap {
		if !st.IsNew || len(st.PriceHistory) == 0 {
			continue
		}
		firstPrice := st.PriceHistory[0].Price
		if firstPrice == 0 {
			continue
		}
		currentPrice := st.Current.LastPrice
		changeFromFirst := (currentPrice - firstPrice) / firstPrice * 100

		alerts = append(alerts, model.NewListingAlert{
			Symbol:          symbol,
			FirstPrice:      firstPrice,
			CurrentPrice:    currentPrice,
			ChangeFromFirst: changeFromFirst,
			Timestamp:       d.clock.Now(),
		})
	}

	sortBySymbol(alerts,
		func(a, b model.NewListingAlert) bool {
			return math.Abs(a.ChangeFromFirst) > math.Abs(b.ChangeFromFirst)
		},
		func(a model.NewListingAlert) string { return a.Symbol },
	)

	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
	}
	return out
}
