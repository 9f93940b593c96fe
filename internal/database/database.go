package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

func NewConnection(connectStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	log.Info().Msg("Database connection established")
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS decks (
	id           SERIAL PRIMARY KEY,
	filename     TEXT NOT NULL,
	file_path    TEXT NOT NULL,
	checksum     TEXT NOT NULL UNIQUE,
	total_slides INTEGER NOT NULL,
	width        BIGINT NOT NULL,
	height       BIGINT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	report       JSONB NOT NULL,
	ai_summary   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS deck_slides (
	id           SERIAL PRIMARY KEY,
	deck_id      INTEGER NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
	slide_number INTEGER NOT NULL,
	title        TEXT NOT NULL,
	content      TEXT NOT NULL,
	notes        TEXT NOT NULL DEFAULT '',
	layout_name  TEXT NOT NULL DEFAULT '',
	UNIQUE (deck_id, slide_number)
);

CREATE TABLE IF NOT EXISTS ai_usage (
	id                SERIAL PRIMARY KEY,
	deck_id           INTEGER REFERENCES decks(id) ON DELETE SET NULL,
	provider          TEXT NOT NULL,
	model             TEXT NOT NULL,
	prompt_tokens     INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	total_tokens      INTEGER NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the report tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
