package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already used")
)

const userColumns = `id, email, password_hash, name, age, reset_token, reset_expires_at, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Age,
		&u.ResetToken,
		&u.ResetExpires,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

// Create inserts a new user. The email is persisted lowercased; the unique
// index on LOWER(email) turns a lost check-then-create race into
// ErrEmailAlreadyUsed instead of a duplicate row.
func (r *UsersRepo) Create(ctx context.Context, email, passwordHash, name string, age int) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        user.NormalizeEmail(email),
		PasswordHash: passwordHash,
		Name:         name,
		Age:          age,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, name, age, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			u.ID, u.Email, u.PasswordHash, u.Name, u.Age, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE LOWER(email) = $1`,
			user.NormalizeEmail(email),
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

// Update patches name and/or age. Nil fields are left untouched.
func (r *UsersRepo) Update(ctx context.Context, id string, name *string, age *int) (user.User, error) {
	var u user.User

	err := r.observe("users.update", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`UPDATE users
				SET name = COALESCE($2, name),
					age = COALESCE($3, age),
					updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			id, name, age,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	var tag pgconn.CommandTag

	err := r.observe("users.update_password", func() error {
		var err error
		tag, err = r.pool.Exec(ctx,
			`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
			id, passwordHash,
		)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *UsersRepo) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	var tag pgconn.CommandTag

	err := r.observe("users.set_reset_token", func() error {
		var err error
		tag, err = r.pool.Exec(ctx,
			`UPDATE users SET reset_token = $2, reset_expires_at = $3, updated_at = NOW() WHERE id = $1`,
			id, token, expiresAt,
		)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// GetByResetToken only matches tokens that have not expired yet. An expired
// token is indistinguishable from a wrong one.
func (r *UsersRepo) GetByResetToken(ctx context.Context, token string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_reset_token", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE reset_token = $1 AND reset_expires_at > NOW()`,
			token,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

// ResetPassword swaps the hash and clears the reset token pair in one
// statement, so the token cannot be replayed.
func (r *UsersRepo) ResetPassword(ctx context.Context, id, passwordHash string) error {
	var tag pgconn.CommandTag

	err := r.observe("users.reset_password", func() error {
		var err error
		tag, err = r.pool.Exec(ctx,
			`UPDATE users
				SET password_hash = $2,
					reset_token = NULL,
					reset_expires_at = NULL,
					updated_at = NOW()
			WHERE id = $1`,
			id, passwordHash,
		)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("users.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
	"email":     "email",
	"age":       "age",
}

func (r *UsersRepo) List(ctx context.Context, q user.ListQuery) ([]user.User, int, error) {
	var conds []string
	var args []interface{}

	argsPosition := 1

	if q.Age != nil {
		conds = append(conds, fmt.Sprintf("age = $%d", argsPosition))
		args = append(args, *q.Age)
		argsPosition++
	}

	if q.Search != "" {
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", argsPosition, argsPosition))
		args = append(args, "%"+q.Search+"%")
		argsPosition++
	}

	where := ""

	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	// the total comes from its own count over the same filter; a windowed
	// count would vanish on pages past the end
	countQuery := `SELECT COUNT(*) FROM users` + where

	query := `SELECT ` + userColumns + ` FROM users` + where

	// sort column comes from an allowlist, never from the raw query string
	col, ok := sortColumns[q.SortBy]

	if !ok {
		col = "created_at"
	}

	dir := "DESC"

	if q.SortOrder == "asc" {
		dir = "ASC"
	}

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d", col, dir, argsPosition, argsPosition+1)

	pageArgs := append(append([]interface{}{}, args...), q.Limit, (q.Page-1)*q.Limit)

	var output []user.User
	total := 0

	err := r.observe("users.list", func() error {
		err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total)

		if err != nil {
			return err
		}

		rows, err := r.pool.Query(ctx, query, pageArgs...)

		if err != nil {
			return err
		}

		defer rows.Close()

		output = make([]user.User, 0, q.Limit)

		for rows.Next() {
			var u user.User

			err = rows.Scan(
				&u.ID,
				&u.Email,
				&u.PasswordHash,
				&u.Name,
				&u.Age,
				&u.ResetToken,
				&u.ResetExpires,
				&u.CreatedAt,
				&u.UpdatedAt,
			)

			if err != nil {
				return err
			}

			output = append(output, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}
