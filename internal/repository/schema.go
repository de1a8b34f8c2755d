package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		api_key    TEXT NOT NULL UNIQUE,
		domain     TEXT,
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id             UUID PRIMARY KEY,
		client_id      UUID NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		external_id    TEXT NOT NULL,
		email          TEXT,
		username       TEXT,
		avatar_file_id UUID,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL,
		UNIQUE (client_id, external_id)
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		id          UUID PRIMARY KEY,
		client_id   UUID NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		user_id     UUID REFERENCES users(id) ON DELETE SET NULL,
		kind        TEXT NOT NULL,
		filename    TEXT NOT NULL,
		storage_key TEXT NOT NULL,
		mime_type   TEXT NOT NULL,
		size        BIGINT NOT NULL,
		width       INTEGER,
		height      INTEGER,
		description TEXT,
		tags        TEXT[] NOT NULL DEFAULT '{}',
		views       BIGINT NOT NULL DEFAULT 0,
		downloads   BIGINT NOT NULL DEFAULT 0,
		private     BOOLEAN NOT NULL DEFAULT FALSE,
		optimized   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_avatar_file_id_fkey`,
	`ALTER TABLE users ADD CONSTRAINT users_avatar_file_id_fkey
		FOREIGN KEY (avatar_file_id) REFERENCES files(id) ON DELETE SET NULL`,
	`CREATE TABLE IF NOT EXISTS albums (
		id          UUID PRIMARY KEY,
		client_id   UUID NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		user_id     UUID REFERENCES users(id) ON DELETE SET NULL,
		name        TEXT NOT NULL,
		description TEXT,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS album_images (
		album_id UUID NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
		file_id  UUID NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		added_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (album_id, file_id)
	)`,
	`CREATE TABLE IF NOT EXISTS album_tokens (
		id         UUID PRIMARY KEY,
		album_id   UUID NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
		client_id  UUID NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_client_created ON files(client_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_files_tags ON files USING GIN (tags)`,
	`CREATE INDEX IF NOT EXISTS idx_albums_client ON albums(client_id)`,
	`CREATE INDEX IF NOT EXISTS idx_album_tokens_expires_at ON album_tokens(expires_at) WHERE expires_at IS NOT NULL`,
}

// Migrate creates the schema if it does not exist yet
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations")

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range migrations {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	log.Info().Int("statements", len(migrations)).Msg("Database migrations completed")
	return nil
}
