package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketpulse/internal/model"
)

// Memory is an in-process Store used in tests and --no-db runs. It mirrors
// Postgres's upsert-by-ID semantics without a real database.
type Memory struct {
	mu       sync.Mutex
	records  map[string]model.SignalRecord
	sessions map[int64]memSession
	nextID   int64
}

type memSession struct {
	startedAt   time.Time
	endedAt     time.Time
	gitRevision string
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		records:  make(map[string]model.SignalRecord),
		sessions: make(map[int64]memSession),
	}
}

// SaveSignal upserts record by ID, matching Postgres's ON CONFLICT behavior.
func (m *Memory) SaveSignal(_ context.Context, record model.SignalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record
	return nil
}

// SignalByID returns the stored record for id.
func (m *Memory) SignalByID(_ context.Context, id string) (model.SignalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return model.SignalRecord{}, ErrNotFound
	}
	return rec, nil
}

// CompletedSignals returns every WIN/LOSS record, oldest first.
func (m *Memory) CompletedSignals(_ context.Context) ([]model.SignalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SignalRecord
	for _, rec := range m.records {
		if rec.Outcome == model.OutcomeWin || rec.Outcome == model.OutcomeLoss {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// RecordSession opens a new in-memory session and returns its ID.
func (m *Memory) RecordSession(_ context.Context, startedAt int64, gitRevision string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.sessions[m.nextID] = memSession{startedAt: time.Unix(startedAt, 0).UTC(), gitRevision: gitRevision}
	return m.nextID, nil
}

// CloseSession stamps a session's end time.
func (m *Memory) CloseSession(_ context.Context, sessionID int64, endedAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.endedAt = time.Unix(endedAt, 0).UTC()
	m.sessions[sessionID] = s
	return nil
}

// Close is a no-op; Memory holds no external resources.
func (m *Memory) Close() {}

var _ Store = (*Memory)(nil)
