package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the users table if it is missing. The unique index on
// LOWER(email) is the actual uniqueness guarantee; the application-level
// check before insert only exists to produce a friendlier error.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id               TEXT PRIMARY KEY,
			email            TEXT NOT NULL,
			password_hash    TEXT NOT NULL,
			name             TEXT NOT NULL,
			age              INT  NOT NULL DEFAULT 0,
			reset_token      TEXT,
			reset_expires_at TIMESTAMPTZ,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL
		)
	`)

	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_key
		ON users (LOWER(email))
	`)

	return err
}
