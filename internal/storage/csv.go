package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"marketpulse/internal/model"
)

var csvHeader = []string{
	"id", "symbol", "entry_type", "direction", "entry_price", "confidence",
	"timestamp", "outcome", "exit_price", "pnl_percent",
}

// ExportCompletedCSV serialises every WIN/LOSS record in ascending
// timestamp order (spec §6.5/§8: export then re-ingest must round-trip).
func ExportCompletedCSV(ctx context.Context, store Store) (string, error) {
	records, err := store.CompletedSignals(ctx)
	if err != nil {
		return "", fmt.Errorf("export completed csv: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, rec := range records {
		if err := w.Write(recordToRow(rec)); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseSignalCSV is ExportCompletedCSV's inverse: re-ingesting its output
// must yield float-identical records within 1e-9.
func ParseSignalCSV(data string) ([]model.SignalRecord, error) {
	r := csv.NewReader(strings.NewReader(data))
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse signal csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]model.SignalRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func recordToRow(rec model.SignalRecord) []string {
	exitPrice := ""
	if rec.ExitPrice != nil {
		exitPrice = strconv.FormatFloat(*rec.ExitPrice, 'f', -1, 64)
	}
	pnl := ""
	if rec.PnLPercent != nil {
		pnl = strconv.FormatFloat(*rec.PnLPercent, 'f', -1, 64)
	}
	return []string{
		rec.ID,
		rec.Symbol,
		string(rec.EntryType),
		string(rec.Direction),
		strconv.FormatFloat(rec.EntryPrice, 'f', -1, 64),
		strconv.FormatFloat(rec.Confidence, 'f', -1, 64),
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		string(rec.Outcome),
		exitPrice,
		pnl,
	}
}

func rowToRecord(row []string) (model.SignalRecord, error) {
	if len(row) != len(csvHeader) {
		return model.SignalRecord{}, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(row))
	}
	entryPrice, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return model.SignalRecord{}, fmt.Errorf("entry_price: %w", err)
	}
	confidence, err := strconv.ParseFloat(row[5], 64)
	if err != nil {
		return model.SignalRecord{}, fmt.Errorf("confidence: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, row[6])
	if err != nil {
		return model.SignalRecord{}, fmt.Errorf("timestamp: %w", err)
	}

	rec := model.SignalRecord{
		ID:         row[0],
		Symbol:     row[1],
		EntryType:  model.EntryType(row[2]),
		Direction:  model.Direction(row[3]),
		EntryPrice: entryPrice,
		Confidence: confidence,
		Timestamp:  ts,
		Outcome:    model.Outcome(row[7]),
	}
	if row[8] != "" {
		v, err := strconv.ParseFloat(row[8], 64)
		if err != nil {
			return model.SignalRecord{}, fmt.Errorf("exit_price: %w", err)
		}
		rec.ExitPrice = &v
	}
	if row[9] != "" {
		v, err := strconv.ParseFloat(row[9], 64)
		if err != nil {
			return model.SignalRecord{}, fmt.Errorf("pnl_percent: %w", err)
		}
		rec.PnLPercent = &v
	}
	return rec, nil
}
