package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/errs"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/repo/postgres"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/gin-gonic/gin"
)

const resetTokenTTL = 15 * time.Minute

// identical wording whether the email is unknown or the password is wrong,
// so the endpoint cannot be used to enumerate accounts
const badCredentials = "Email or password is incorrect."

const forgotPasswordMessage = "If that email exists, a password reset token has been issued."

type AuthUserStore interface {
	Create(ctx context.Context, email, passwordHash, name string, age int) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	GetByResetToken(ctx context.Context, token string) (user.User, error)
	ResetPassword(ctx context.Context, id, passwordHash string) error
}

type AuthHandler struct {
	users  AuthUserStore
	jwt    *auth.Manager
	hasher *security.Hasher
	cfg    config.Config
}

func NewAuthHandler(users AuthUserStore, jwtManager *auth.Manager, hasher *security.Hasher, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:  users,
		jwt:    jwtManager,
		hasher: hasher,
		cfg:    cfg,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	// friendly pre-check; the unique index is the actual guarantee

	_, err := h.users.GetByEmail(cctx, req.Email)

	if err == nil {
		RespondConflict(ctx, "email_taken", "Email is already in use.")
		return
	}

	if !errors.Is(err, postgres.ErrUserNotFound) {
		RespondAppError(ctx, errs.Internal(err, "Could not create user"))
		return
	}

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

	token, err := h.jwt.Issue(u.ID, u.Email)

	if err != nil {
		RespondAppError(ctx, errs.Internal(err, "Could not generate token"))
		return
	}

	Respond(ctx, http.StatusCreated, "User registered", gin.H{
		"user":  u,
		"token": token,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		// unknown email reads exactly like a wrong password
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondUnAuthorized(ctx, "invalid_credentials", badCredentials)
			return
		}

		RespondAppError(ctx, errs.Internal(err, "Could not log in"))
		return
	}

	ok, err := h.hasher.Verify(req.Password, foundUser.PasswordHash)

	if err != nil {
		RespondAppError(ctx, errs.Internal(err, "Could not log in"))
		return
	}

	if !ok {
		RespondUnAuthorized(ctx, "invalid_credentials", badCredentials)
		return
	}

	token, err := h.jwt.Issue(foundUser.ID, foundUser.Email)

	if err != nil {
		RespondAppError(ctx, errs.Internal(err, "Could not generate token"))
		return
	}

	Respond(ctx, http.StatusOK, "Logged in", gin.H{
		"user":  foundUser,
		"token": token,
	})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok || id == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	u, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondAppError(ctx, errs.Internal(err, "Could not load profile"))
		return
	}

	Respond(ctx, http.StatusOK, "Profile", gin.H{"user": u})
}

func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	var req user.ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok || id == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	u, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondAppError(ctx, errs.Internal(err, "Could not change password"))
		return
	}

	ok, err = h.hasher.Verify(req.CurrentPassword, u.PasswordHash)

	if err != nil {
		RespondAppError(ctx, errs.Internal(err, "Could not change password"))
		return
	}

	if !ok {
		RespondBadRequest(ctx, "wrong_password", "Current password is incorrect.")
		return
	}

	hash, err := h.hasher.Hash(req.NewPassword)

	if err != nil {
		RespondAppError(ctx, errs.Internal(err, "Could not change password"))
		return
	}

	// existing tokens stay valid until natural expiry

	err = h.users.UpdatePassword(cctx, id, hash)

	if err != nil {
		RespondAppError(ctx, errs.Internal(err, "Could not change password"))
		return
	}

	Respond(ctx, http.StatusOK, "Password changed", nil)
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req user.ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	u, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		// unknown emails get the exact same response shape
		if errors.Is(err, postgres.ErrUserNotFound) {
			Respond(ctx, http.StatusOK, forgotPasswordMessage, nil)
			return
		}

		RespondAppError(ctx, errs.Internal(err, "Could not process request"))
		return
	}

	token, err := security.NewResetToken()

	if err != nil {
		RespondAppError(ctx, errs.Internal(err, "Could not process request"))
		return
	}

	err = h.users.SetResetToken(cctx, u.ID, token, time.Now().UTC().Add(resetTokenTTL))

	if err != nil {
		RespondAppError(ctx, errs.Internal(err, "Could not process request"))
		return
	}

	// Returning the token here stands in for an email delivery channel.
	// Gated off outside dev so real deployments never leak it in-band.
	if h.cfg.ExposeResetToken {
		Respond(ctx, http.StatusOK, forgotPasswordMessage, gin.H{"resetToken": token})
		return
	}

	Respond(ctx, http.StatusOK, forgotPasswordMessage, nil)
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req user.ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	// wrong and expired tokens are indistinguishable on purpose

	u, err := h.users.GetByResetToken(cctx, req.Token)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondBadRequest(ctx, "invalid_reset_token", "Invalid or expired reset token.")
			return
		}

		RespondAppError(ctx, errs.Internal(err, "Could not reset password"))
		return
	}

	hash, err := h.hasher.Hash(req.NewPassword)

	if err != nil {
		RespondAppError(ctx, errs.Internal(err, "Could not reset password"))
		return
	}

	err = h.users.ResetPassword(cctx, u.ID, hash)

	if err != nil {
		RespondAppError(ctx, errs.Internal(err, "Could not reset password"))
		return
	}

	Respond(ctx, http.StatusOK, "Password reset", nil)
}

// VerifyToken never fails the request; it always reports a verdict.
func (h *AuthHandler) VerifyToken(ctx *gin.Context) {
	var req user.VerifyTokenRequest

	if !BindJSON(ctx, &req) {
		return
	}

	claims, err := h.jwt.Verify(req.Token)

	if err != nil {
		reason := "invalid"

		if errors.Is(err, auth.ErrTokenExpired) {
			reason = "expired"
		}

		Respond(ctx, http.StatusOK, "Token verified", gin.H{"valid": false, "reason": reason})
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	u, err := h.users.GetByEmail(cctx, claims.Email)

	if err != nil {
		Respond(ctx, http.StatusOK, "Token verified", gin.H{"valid": false, "reason": "subject no longer exists"})
		return
	}

	Respond(ctx, http.StatusOK, "Token verified", gin.H{
		"valid": true,
		"subject": gin.H{
			"id":    u.ID,
			"email": u.Email,
		},
	})
}

// Logout is a stateless no-op: the token stays valid until it expires.
// Revocation would need a denylist or short-lived tokens plus refresh.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	Respond(ctx, http.StatusOK, "Logged out", nil)
}
