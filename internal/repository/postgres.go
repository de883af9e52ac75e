package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"couponagent/internal/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// schema holds the conversation log tables
const schema = `
CREATE TABLE IF NOT EXISTS conversation_turns (
	id                 BIGSERIAL PRIMARY KEY,
	session_id         TEXT        NOT NULL,
	input              TEXT        NOT NULL,
	reply              TEXT        NOT NULL,
	state              TEXT        NOT NULL,
	party_size         INTEGER,
	preferences        JSONB,
	matched_bundle_ids JSONB,
	response_time_ms   INTEGER     NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_conversation_turns_session ON conversation_turns (session_id, id);

CREATE TABLE IF NOT EXISTS bundle_feedback (
	id         BIGSERIAL PRIMARY KEY,
	session_id TEXT        NOT NULL,
	bundle_id  TEXT        NOT NULL,
	action     TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresRepository handles the conversation log
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	// Disable prepared statement caching to avoid "unnamed prepared statement does not exist" errors
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

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

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the log tables when missing
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// LogTurn logs one conversation turn
func (r *PostgresRepository) LogTurn(ctx context.Context, rec *model.TurnRecord) error {
	query := `
		INSERT INTO conversation_turns
			(session_id, input, reply, state, party_size, preferences, matched_bundle_ids, response_time_ms)
		VALUES
			(:session_id, :input, :reply, :state, :party_size, :preferences, :matched_bundle_ids, :response_time_ms)
	`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to log turn: %w", err)
	}
	return nil
}

// LogFeedback logs user feedback on a recommended bundle
func (r *PostgresRepository) LogFeedback(ctx context.Context, sessionID, bundleID, action string) error {
	query := `
		INSERT INTO bundle_feedback (session_id, bundle_id, action)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, sessionID, bundleID, action); err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	return nil
}

// RecentTurns returns the latest turns of a session, oldest first
func (r *PostgresRepository) RecentTurns(ctx context.Context, sessionID string, limit int) ([]model.TurnRecord, error) {
	query := `
		SELECT session_id, input, reply, state, party_size, preferences, matched_bundle_ids, response_time_ms
		FROM (
			SELECT * FROM conversation_turns
			WHERE session_id = $1
			ORDER BY id DESC
			LIMIT $2
		) latest
		ORDER BY id ASC
	`
	var turns []model.TurnRecord
	if err := r.db.SelectContext(ctx, &turns, query, sessionID, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch turns: %w", err)
	}
	return turns, nil
}
