// Package snapshot assembles the single, pure dashboard document (spec
// §4.6) from the store, detector caches, fused signals, outcome stats, the
// active filter, and the notification buffer. Assemble drains the
// notification buffer and mutates none of its other inputs.
package snapshot

import (
	"time"

	"marketpulse/internal/detectors"
	"marketpulse/internal/filter"
	"marketpulse/internal/model"
	"marketpulse/internal/outcome"
	"marketpulse/internal/signalengine"
)

// DefaultCategoryTopK is the spec's typical per-category cap.
const DefaultCategoryTopK = 20

// Category is one detector's current output plus the symbol accessor
// Assemble needs to apply Filter.Pass before truncating to the top-K.
// Collect is called fresh on every Assemble so the category reflects the
// detector's state at tick time rather than a frozen snapshot taken at
// wiring time.
type Category struct {
	Name     string
	Collect  func() []detectors.Alert
	SymbolOf func(alert detectors.Alert) string
}

// SignalBuckets groups the engine's retained SmartSignals the way the
// dashboard presents them.
type SignalBuckets struct {
	Long      []model.SmartSignal
	Short     []model.SmartSignal
	Early     []model.SmartSignal
	Reversal  []model.SmartSignal
	Breakout  []model.SmartSignal
	LowRisk   []model.SmartSignal
}

// SentimentSummary is the market-wide aggregate of per-symbol sentiment
// scores.
type SentimentSummary struct {
	AverageScore float64
	Band         model.SentimentBand
	SymbolCount  int
}

// Document is the single structured view the dashboard renders from.
type Document struct {
	ConnectionStatus string
	SymbolCount      int
	Timestamp        time.Time

	Categories map[string][]detectors.Alert

	Signals   SignalBuckets
	Sentiment SentimentSummary

	WinRate         outcome.WinRateStats
	RecentCompleted []model.SignalRecord

	Notifications []Notification

	ActiveFilter filter.Config
	Watchlist    []string
}

// Inputs bundles Assemble's collaborators so the call site stays readable.
type Inputs struct {
	ConnectionStatus string
	SymbolCount      int
	Now              time.Time

	Categories []Category
	TopK       int // 0 uses DefaultCategoryTopK

	Engine        *signalengine.Engine
	Tracker       *outcome.Tracker
	Sentiment     []model.SentimentAlert
	Notifications *NotificationBuffer

	Filter       *filter.Filter
	FilterConfig filter.Config
	Watchlist    []string

	TopSignalsLimit int // 0 uses DefaultCategoryTopK
}

// Assemble builds one Document. It reads the engine and tracker, drains
// (and so clears) the notification buffer, and never writes to the store
// or the detector caches.
func Assemble(in Inputs) Document {
	topK := in.TopK
	if topK <= 0 {
		topK = DefaultCategoryTopK
	}
	signalsLimit := in.TopSignalsLimit
	if signalsLimit <= 0 {
		signalsLimit = DefaultCategoryTopK
	}

	doc := Document{
		ConnectionStatus: in.ConnectionStatus,
		SymbolCount:      in.SymbolCount,
		Timestamp:        in.Now,
		Categories:       make(map[string][]detectors.Alert, len(in.Categories)),
		ActiveFilter:     in.FilterConfig,
		Watchlist:        in.Watchlist,
	}

	for _, cat := range in.Categories {
		doc.Categories[cat.Name] = topKAfterFilter(cat, in.Filter, topK)
	}

	long := model.Long
	short := model.Short
	doc.Signals = SignalBuckets{
		Long:     in.Engine.TopSignals(signalsLimit, &long),
		Short:    in.Engine.TopSignals(signalsLimit, &short),
		Early:    in.Engine.EarlyEntries(),
		Reversal: in.Engine.ReversalSignals(),
		Breakout: in.Engine.BreakoutCandidates(),
		LowRisk:  in.Engine.LowRiskSetups(),
	}

	doc.Sentiment = summarizeSentiment(in.Sentiment)

	doc.WinRate = in.Tracker.Stats()
	doc.RecentCompleted = in.Tracker.RecentCompleted(10)

	if in.Notifications != nil {
		doc.Notifications = in.Notifications.Drain()
	}

	return doc
}

func topKAfterFilter(cat Category, f *filter.Filter, topK int) []detectors.Alert {
	out := make([]detectors.Alert, 0, topK)
	for _, a := range cat.Collect() {
		if f != nil && !f.Pass(cat.SymbolOf(a)) {
			continue
		}
		out = append(out, a)
		if len(out) >= topK {
			break
		}
	}
	return out
}

func summarizeSentiment(alerts []model.SentimentAlert) SentimentSummary {
	if len(alerts) == 0 {
		return SentimentSummary{Band: model.SentimentNeutral}
	}
	var sum float64
	for _, a := range alerts {
		sum += a.Score
	}
	avg := sum / float64(len(alerts))
	return SentimentSummary{AverageScore: avg, Band: bandForScore(avg), SymbolCount: len(alerts)}
}

func bandForScore(score float64) model.SentimentBand {
	switch {
	case score <= 20:
		return model.SentimentExtremeFear
	case score <= 40:
		return model.SentimentFear
	case score < 60:
		return model.SentimentNeutral
	case score < 80:
		return model.SentimentGreed
	default:
		return model.SentimentExtremeGreed
	}
}
