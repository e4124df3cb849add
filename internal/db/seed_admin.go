package db

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureAdminUser creates the bootstrap account from config if it does not
// exist yet. A deployment without ADMIN_EMAIL/ADMIN_PASSWORD skips seeding.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, hasher *security.Hasher) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	// check if the user exists

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE LOWER(email) = LOWER($1)`, cfg.AdminEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := hasher.Hash(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, age, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
		uuid.NewString(), cfg.AdminEmail, hash, cfg.AdminName, 0, now, now,
	)

	return err
}
