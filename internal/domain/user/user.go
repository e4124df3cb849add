package user

import (
	"strings"
	"time"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	Name         string     `json:"name"`
	Age          int        `json:"age"`
	ResetToken   *string    `json:"-"`
	ResetExpires *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// NormalizeEmail is applied before every store lookup or write so that
// uniqueness and login are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=7,max=128"`
	Age      int    `json:"age" binding:"required,gte=13,lte=120"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=7,max=128,nefield=CurrentPassword"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=7,max=128"`
}

type VerifyTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=7,max=128"`
	Age      int    `json:"age" binding:"required,gte=13,lte=120"`
}

type UpdateUserRequest struct {
	Name *string `json:"name" binding:"omitempty,min=2,max=100"`
	Age  *int    `json:"age" binding:"omitempty,gte=13,lte=120"`
}

type IDParam struct {
	ID string `uri:"id" binding:"required,max=64"`
}

type ListQuery struct {
	Page      int    `form:"page" binding:"omitempty,gte=1"`
	Limit     int    `form:"limit" binding:"omitempty,gte=1,lte=100"`
	Age       *int   `form:"age" binding:"omitempty,gte=0"`
	SortBy    string `form:"sortBy" binding:"omitempty,oneof=createdAt name email age"`
	SortOrder string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
	Search    string `form:"search" binding:"omitempty,max=100"`
}

// Defaults fills in the unset paging fields after binding.
func (q *ListQuery) Defaults() {
	if q.Page == 0 {
		q.Page = 1
	}

	if q.Limit == 0 {
		q.Limit = 10
	}

	if q.SortBy == "" {
		q.SortBy = "createdAt"
	}

	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
