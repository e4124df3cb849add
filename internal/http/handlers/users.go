package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/errs"
	"github.com/geocoder89/userhub/internal/repo/postgres"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	Create(ctx context.Context, email, passwordHash, name string, age int) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, name *string, age *int) (user.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q user.ListQuery) ([]user.User, int, error)
}

type UsersHandler struct {
	users  UserStore
	hasher *security.Hasher
}

func NewUsersHandler(users UserStore, hasher *security.Hasher) *UsersHandler {
	return &UsersHandler{users: users, hasher: hasher}
}

// CreateUser is the admin-style creation path. No role check is enforced
// yet; any authenticated caller may use it.
func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	hash, err := h.hasher.Hash(req.Password)

	if err != nil {
		RespondAppError(ctx, errs.Internal(err, "Could not create user"))
		return
	}

	u, err := h.users.Create(cctx, req.Email, hash, req.Name, req.Age)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondAppError(ctx, errs.Internal(err, "Could not create user"))
		return
	}

	Respond(ctx, http.StatusCreated, "User created", gin.H{"user": u})
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	var q user.ListQuery

	if !BindQuery(ctx, &q) {
		return
	}

	q.Defaults()

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	users, total, err := h.users.List(cctx, q)

	if err != nil {
		RespondAppError(ctx, errs.Internal(err, "Could not list users"))
		return
	}

	RespondList(ctx, "Users", gin.H{"users": users}, NewPagination(q.Page, q.Limit, total))
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	var p user.IDParam

	if !BindURI(ctx, &p) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	u, err := h.users.GetByID(cctx, p.ID)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondAppError(ctx, errs.Internal(err, "Could not load user"))
		return
	}

	Respond(ctx, http.StatusOK, "User", gin.H{"user": u})
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	var p user.IDParam

	if !BindURI(ctx, &p) {
		return
	}

	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Name == nil && req.Age == nil {
		RespondBadRequest(ctx, "validation_error", "body: at least one of name, age is required")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	u, err := h.users.Update(cctx, p.ID, req.Name, req.Age)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondAppError(ctx, errs.Internal(err, "Could not update user"))
		return
	}

	Respond(ctx, http.StatusOK, "User updated", gin.H{"user": u})
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	var p user.IDParam

	if !BindURI(ctx, &p) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	err := h.users.Delete(cctx, p.ID)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondAppError(ctx, errs.Internal(err, "Could not delete user"))
		return
	}

	Respond(ctx, http.StatusOK, "User deleted", nil)
}
