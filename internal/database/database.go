package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gnemet/DeckForge/internal/logger"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS generation_usage (
	id                SERIAL PRIMARY KEY,
	provider          TEXT NOT NULL,
	model             TEXT NOT NULL,
	slide_count       INTEGER NOT NULL,
	prompt_tokens     INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens      INTEGER NOT NULL DEFAULT 0,
	outcome           TEXT NOT NULL,
	error_kind        TEXT NOT NULL DEFAULT '',
	duration_ms       BIGINT NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func NewConnection(ctx context.Context, connectStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	logger.Info(ctx, "database connection established")
	return db, nil
}

// EnsureSchema creates the usage ledger table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error creating schema: %w", err)
	}
	return nil
}
