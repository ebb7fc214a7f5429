// Package detectors holds the independent signal detectors that read
// DataStore's current state and emit alerts. Every detector implements the
// same small contract; none reads another detector's output, so call order
// never affects correctness.
package detectors

import (
	"context"
	"sort"
)

// Alert is the marker type every detector's concrete alert struct satisfies.
// Detect() returns alerts in descending order of primary-metric magnitude,
// ties broken by symbol.
type Alert interface{}

// Detector is the uniform contract: Detect is pure over the store's current
// snapshot. Detectors that maintain rolling state or poll exchange REST
// data also implement Updater.
type Detector interface {
	Name() string
	Detect() []Alert
}

// Updater is implemented by detectors with internal state to refresh before
// Detect is called (REST polling, rotating queues). The scheduler drives
// Update at each detector's configured cadence.
type Updater interface {
	Update(ctx context.Context) error
}

// sortBySymbol breaks ties in detector output deterministically once the
// caller has already sorted by descending primary-metric magnitude.
func sortBySymbol[T any](items []T, less func(a, b T) bool, symbolOf func(T) string) {
	SortBySymbol(items, less, symbolOf)
}

// SortBySymbol is sortBySymbol exported for packages outside detectors (the
// signalengine's reversal sub-engine) that need the same tie-break.
func SortBySymbol[T any](items []T, less func(a, b T) bool, symbolOf func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		if less(items[i], items[j]) {
			return true
		}
		if less(items[j], items[i]) {
			return false
		}
		return symbolOf(items[i]) < symbolOf(items[j])
	})
}
