package outcome

import "marketpulse/internal/model"

// WinRateStats is the aggregate performance summary over a set of
// completed SignalRecords, generalized from the teacher's backtest
// calculateMetrics to live, continuously-accumulating signal outcomes.
type WinRateStats struct {
	Total        int
	Wins         int
	Losses       int
	WinRate      float64 // percent
	AvgWinPct    float64
	AvgLossPct   float64
	ProfitFactor float64 // sum(wins%) / -sum(losses%), 0 if no losses
}

// computeStats summarizes records, ignoring any still PENDING.
func computeStats(records []model.SignalRecord) WinRateStats {
	var stats WinRateStats
	var totalWinPct, totalLossPct float64

	for _, r := range records {
		if r.Outcome == model.OutcomePending || r.PnLPercent == nil {
			continue
		}
		stats.Total++
		switch r.Outcome {
		case model.OutcomeWin:
			stats.Wins++
			totalWinPct += *r.PnLPercent
		case model.OutcomeLoss:
			stats.Losses++
			totalLossPct += *r.PnLPercent
		}
	}

	if stats.Total > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Total) * 100
	}
	if stats.Wins > 0 {
		stats.AvgWinPct = totalWinPct / float64(stats.Wins)
	}
	if stats.Losses > 0 {
		stats.AvgLossPct = totalLossPct / float64(stats.Losses)
	}
	if totalLossPct != 0 {
		stats.ProfitFactor = totalWinPct / -totalLossPct
	}
	return stats
}

// Stats returns overall win-rate statistics over every completed record.
func (t *Tracker) Stats() WinRateStats {
	return computeStats(t.Completed())
}

// StatsByEntryType buckets completed records by EntryType.
func (t *Tracker) StatsByEntryType() map[model.EntryType]WinRateStats {
	byType := make(map[model.EntryType][]model.SignalRecord)
	for _, r := range t.Completed() {
		byType[r.EntryType] = append(byType[r.EntryType], r)
	}
	out := make(map[model.EntryType]WinRateStats, len(byType))
	for entryType, records := range byType {
		out[entryType] = computeStats(records)
	}
	return out
}

// StatsBySymbol buckets completed records by symbol.
func (t *Tracker) StatsBySymbol() map[string]WinRateStats {
	bySymbol := make(map[string][]model.SignalRecord)
	for _, r := range t.Completed() {
		bySymbol[r.Symbol] = append(bySymbol[r.Symbol], r)
	}
	out := make(map[string]WinRateStats, len(bySymbol))
	for symbol, records := range bySymbol {
		out[symbol] = computeStats(records)
	}
	return out
}

// RollingStats returns stats over the most recent rollingWindow completed
// records (fewer if the tracker hasn't accumulated that many yet).
func (t *Tracker) RollingStats() WinRateStats {
	return computeStats(t.RecentCompleted(rollingWindow))
}
