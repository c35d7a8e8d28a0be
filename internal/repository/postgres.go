package repository

import (
	"context"
	"fmt"
	"time"

	"housing-assistant/internal/logger"
	"housing-assistant/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS conversation_logs (
	id               BIGSERIAL PRIMARY KEY,
	session_id       TEXT        NOT NULL,
	phase            TEXT        NOT NULL,
	outcome          TEXT        NOT NULL,
	user_message     TEXT        NOT NULL,
	candidate_ids    BIGINT[],
	response_time_ms INTEGER     NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS listing_feedback (
	id         BIGSERIAL PRIMARY KEY,
	session_id TEXT        NOT NULL,
	listing_id BIGINT      NOT NULL,
	action     TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// PostgresRepository handles database operations
type PostgresRepository struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int, log *logger.Logger) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db, log: log}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the audit and feedback tables if they are missing
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}

// LoadListings reads the whole housing_listings table in dataset order
func (r *PostgresRepository) LoadListings(ctx context.Context) (*Inventory, error) {
	query := `
		SELECT
			id::text, COALESCE(society, '') AS society, house_type, availability, location,
			size, total_sqft::text, price::text,
			COALESCE(agent_name, '') AS agent_name, COALESCE(agent_contact, '') AS agent_contact
		FROM housing_listings
		ORDER BY id
	`
	var rows []rawListing
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to fetch listings: %w", err)
	}

	records := make([]model.HouseRecord, 0, len(rows))
	for i, raw := range rows {
		record, err := raw.toRecord(i + 1)
		if err != nil {
			r.log.Warn("skipping listing row", "id", raw.ID, "error", err)
			continue
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("housing_listings has no usable rows")
	}

	r.log.Info("inventory loaded", "source", "postgres", "listings", len(records), "skipped", len(rows)-len(records))
	return NewInventory(records)
}

// LogTurn records the outcome of one conversation turn
func (r *PostgresRepository) LogTurn(ctx context.Context, entry model.TurnLog) error {
	query := `
		INSERT INTO conversation_logs (session_id, phase, outcome, user_message, candidate_ids, response_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.SessionID, string(entry.Phase), string(entry.Outcome), entry.UserMessage,
		pq.Array(entry.CandidateIDs), entry.ResponseTimeMs,
	)
	if err != nil {
		return fmt.Errorf("failed to log turn: %w", err)
	}
	return nil
}

// LogFeedback records a user action on a recommended listing
func (r *PostgresRepository) LogFeedback(ctx context.Context, sessionID string, listingID int64, action string) error {
	query := `INSERT INTO listing_feedback (session_id, listing_id, action) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, sessionID, listingID, action); err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	return nil
}
