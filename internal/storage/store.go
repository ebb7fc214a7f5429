// Package storage persists signal records and session bookkeeping (spec
// §6.8). Store is the narrow port outcome.Tracker and cmd/engine depend on;
// Postgres is the production adapter, Memory is the in-process fake used in
// tests and for --no-db runs.
package storage

import (
	"context"
	"errors"

	"marketpulse/internal/model"
)

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("storage: not found")

// Store is the persistence surface the rest of the engine depends on. It
// satisfies outcome.PersistStore by way of SaveSignal alone.
type Store interface {
	// SaveSignal upserts a SignalRecord keyed by its ID, so a record
	// recorded as PENDING and later updated to WIN/LOSS overwrites the
	// same row rather than duplicating it.
	SaveSignal(ctx context.Context, record model.SignalRecord) error

	// SignalByID returns the persisted record for id, or ErrNotFound.
	SignalByID(ctx context.Context, id string) (model.SignalRecord, error)

	// CompletedSignals returns every WIN/LOSS record, oldest first.
	CompletedSignals(ctx context.Context) ([]model.SignalRecord, error)

	// RecordSession opens a new engine run and returns its session ID.
	RecordSession(ctx context.Context, startedAt int64, gitRevision string) (int64, error)

	// CloseSession marks a session's end time.
	CloseSession(ctx context.Context, sessionID int64, endedAt int64) error

	Close()
}
