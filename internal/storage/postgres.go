package storage

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketpulse/internal/logging"
	"marketpulse/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds the Postgres connection parameters (spec §6.8).
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Postgres wraps the pgx connection pool used for signal and session
// persistence. Its migrations also create the alerts and ml_model_metrics
// tables, but no method writes to them.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *logging.Logger
}

// NewPostgres opens a pooled connection and pings it before returning.
func NewPostgres(ctx context.Context, cfg Config, logger *logging.Logger) (*Postgres, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Info("connected to postgres", "database", cfg.Database)
	return &Postgres{pool: pool, logger: logger}, nil
}

// RunMigrations creates the schema if it does not already exist.
func (p *Postgres) RunMigrations(ctx context.Context) error {
	p.logger.Info("running storage migrations")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS signal_records (
			id TEXT PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			entry_type VARCHAR(20) NOT NULL,
			direction VARCHAR(10) NOT NULL,
			entry_price DECIMAL(20, 8) NOT NULL,
			confidence DECIMAL(10, 4) NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			outcome VARCHAR(10) NOT NULL DEFAULT 'PENDING',
			exit_price DECIMAL(20, 8),
			pnl_percent DECIMAL(10, 4),
			ml_prediction DECIMAL(10, 4),
			features JSONB,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_records_symbol ON signal_records(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_records_outcome ON signal_records(outcome)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_records_timestamp ON signal_records(timestamp)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			category VARCHAR(40) NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_category ON alerts(category)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id BIGSERIAL PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ,
			git_revision VARCHAR(64)
		)`,

		`CREATE TABLE IF NOT EXISTS ml_model_metrics (
			id SERIAL PRIMARY KEY,
			model_version VARCHAR(40) NOT NULL,
			accuracy DECIMAL(10, 4),
			sample_count INTEGER,
			recorded_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for i, migration := range migrations {
		if _, err := p.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

// SaveSignal upserts a SignalRecord keyed by ID: a PENDING row written at
// emit time and later overwritten with its WIN/LOSS outcome share one row.
func (p *Postgres) SaveSignal(ctx context.Context, record model.SignalRecord) error {
	var featuresJSON []byte
	if record.Features != nil {
		var err error
		featuresJSON, err = json.Marshal(record.Features)
		if err != nil {
			return fmt.Errorf("marshal features: %w", err)
		}
	}

	query := `
		INSERT INTO signal_records (
			id, symbol, entry_type, direction, entry_price, confidence,
			timestamp, outcome, exit_price, pnl_percent, ml_prediction, features, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			exit_price = EXCLUDED.exit_price,
			pnl_percent = EXCLUDED.pnl_percent,
			ml_prediction = EXCLUDED.ml_prediction,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := p.pool.Exec(ctx, query,
		record.ID, record.Symbol, record.EntryType, record.Direction, record.EntryPrice,
		record.Confidence, record.Timestamp, record.Outcome, record.ExitPrice,
		record.PnLPercent, record.MLPrediction, featuresJSON,
	)
	if err != nil {
		return fmt.Errorf("save signal %s: %w", record.ID, err)
	}
	return nil
}

// SignalByID returns the persisted record for id.
func (p *Postgres) SignalByID(ctx context.Context, id string) (model.SignalRecord, error) {
	query := `
		SELECT id, symbol, entry_type, direction, entry_price, confidence,
		       timestamp, outcome, exit_price, pnl_percent, ml_prediction
		FROM signal_records WHERE id = $1
	`
	var rec model.SignalRecord
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.Symbol, &rec.EntryType, &rec.Direction, &rec.EntryPrice,
		&rec.Confidence, &rec.Timestamp, &rec.Outcome, &rec.ExitPrice,
		&rec.PnLPercent, &rec.MLPrediction,
	)
	if err == pgx.ErrNoRows {
		return model.SignalRecord{}, ErrNotFound
	}
	if err != nil {
		return model.SignalRecord{}, fmt.Errorf("signal by id %s: %w", id, err)
	}
	return rec, nil
}

// CompletedSignals returns every WIN/LOSS record, oldest first.
func (p *Postgres) CompletedSignals(ctx context.Context) ([]model.SignalRecord, error) {
	query := `
		SELECT id, symbol, entry_type, direction, entry_price, confidence,
		       timestamp, outcome, exit_price, pnl_percent, ml_prediction
		FROM signal_records
		WHERE outcome IN ('WIN', 'LOSS')
		ORDER BY timestamp ASC
	`
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("completed signals: %w", err)
	}
	defer rows.Close()

	var out []model.SignalRecord
	for rows.Next() {
		var rec model.SignalRecord
		if err := rows.Scan(
			&rec.ID, &rec.Symbol, &rec.EntryType, &rec.Direction, &rec.EntryPrice,
			&rec.Confidence, &rec.Timestamp, &rec.Outcome, &rec.ExitPrice,
			&rec.PnLPercent, &rec.MLPrediction,
		); err != nil {
			return nil, fmt.Errorf("scan signal record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecordSession inserts a new session row and returns its ID.
func (p *Postgres) RecordSession(ctx context.Context, startedAt int64, gitRevision string) (int64, error) {
	query := `INSERT INTO sessions (started_at, git_revision) VALUES ($1, $2) RETURNING id`
	var id int64
	err := p.pool.QueryRow(ctx, query, time.Unix(startedAt, 0).UTC(), gitRevision).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record session: %w", err)
	}
	return id, nil
}

// CloseSession stamps a session's end time.
func (p *Postgres) CloseSession(ctx context.Context, sessionID int64, endedAt int64) error {
	query := `UPDATE sessions SET ended_at = $2 WHERE id = $1`
	_, err := p.pool.Exec(ctx, query, sessionID, time.Unix(endedAt, 0).UTC())
	if err != nil {
		return fmt.Errorf("close session %d: %w", sessionID, err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
		p.logger.Info("storage connection closed")
	}
}

var _ Store = (*Postgres)(nil)
