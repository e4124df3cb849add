package handlers_test

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/repo/postgres"
)

// fakeUsers is an in-memory stand-in for the postgres users repo. It mirrors
// the repo's observable behavior, including the sentinel errors.
type fakeUsers struct {
	mu   sync.Mutex
	byID map[string]user.User
	seq  int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]user.User)}
}

func (f *fakeUsers) Create(ctx context.Context, email, passwordHash, name string, age int) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	email = user.NormalizeEmail(email)

	for _, u := range f.byID {
		if u.Email == email {
			return user.User{}, postgres.ErrEmailAlreadyUsed
		}
	}

	f.seq++
	now := time.Now().UTC()

	u := user.User{
		ID:           "u" + strconv.Itoa(f.seq),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Age:          age,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	f.byID[u.ID] = u

	return u, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	email = user.NormalizeEmail(email)

	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}

	return user.User{}, postgres.ErrUserNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[id]

	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}

	return u, nil
}

func (f *fakeUsers) Update(ctx context.Context, id string, name *string, age *int) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[id]

	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}

	if name != nil {
		u.Name = *name
	}

	if age != nil {
		u.Age = *age
	}

	u.UpdatedAt = time.Now().UTC()
	f.byID[id] = u

	return u, nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[id]

	if !ok {
		return postgres.ErrUserNotFound
	}

	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	f.byID[id] = u

	return nil
}

func (f *fakeUsers) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[id]

	if !ok {
		return postgres.ErrUserNotFound
	}

	u.ResetToken = &token
	u.ResetExpires = &expiresAt
	f.byID[id] = u

	return nil
}

func (f *fakeUsers) GetByResetToken(ctx context.Context, token string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()

	for _, u := range f.byID {
		if u.ResetToken != nil && *u.ResetToken == token && u.ResetExpires != nil && u.ResetExpires.After(now) {
			return u, nil
		}
	}

	return user.User{}, postgres.ErrUserNotFound
}

func (f *fakeUsers) ResetPassword(ctx context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[id]

	if !ok {
		return postgres.ErrUserNotFound
	}

	u.PasswordHash = passwordHash
	u.ResetToken = nil
	u.ResetExpires = nil
	u.UpdatedAt = time.Now().UTC()
	f.byID[id] = u

	return nil
}

func (f *fakeUsers) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.byID[id]

	if !ok {
		return postgres.ErrUserNotFound
	}

	delete(f.byID, id)

	return nil
}

func (f *fakeUsers) List(ctx context.Context, q user.ListQuery) ([]user.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []user.User

	for _, u := range f.byID {
		if q.Age != nil && u.Age != *q.Age {
			continue
		}

		if q.Search != "" {
			s := strings.ToLower(q.Search)

			if !strings.Contains(strings.ToLower(u.Name), s) && !strings.Contains(u.Email, s) {
				continue
			}
		}

		all = append(all, u)
	}

	sort.Slice(all, func(i, j int) bool {
		less := false

		switch q.SortBy {
		case "name":
			less = all[i].Name < all[j].Name
		case "email":
			less = all[i].Email < all[j].Email
		case "age":
			less = all[i].Age < all[j].Age
		default:
			less = all[i].CreatedAt.Before(all[j].CreatedAt)
		}

		if q.SortOrder == "desc" {
			return !less
		}

		return less
	})

	total := len(all)

	start := (q.Page - 1) * q.Limit

	if start >= total {
		return []user.User{}, total, nil
	}

	end := start + q.Limit

	if end > total {
		end = total
	}

	return all[start:end], total, nil
}
