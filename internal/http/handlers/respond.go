package handlers

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/userhub/internal/errs"
	"github.com/gin-gonic/gin"
)

// Every response uses the same envelope: success flag, human message, and
// either data or an error code. List endpoints add pagination.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

func NewPagination(page, limit, total int) Pagination {
	totalPages := 0

	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func Respond(ctx *gin.Context, status int, message string, data interface{}) {
	body := gin.H{
		"success": true,
		"message": message,
	}

	if data != nil {
		body["data"] = data
	}

	ctx.JSON(status, body)
}

func RespondList(ctx *gin.Context, message string, data interface{}, p Pagination) {
	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    message,
		"data":       data,
		"pagination": p,
	})
}

func RespondError(ctx *gin.Context, status int, code, message string) {
	ctx.JSON(status, gin.H{
		"success": false,
		"message": message,
		"error":   code,
	})
}

// RespondAppError maps any error to the envelope. Unexpected failures are
// logged in full server-side; the client only ever sees the generic message.
func RespondAppError(ctx *gin.Context, err error) {
	appErr := errs.From(err)

	if appErr.Status >= http.StatusInternalServerError {
		slog.Default().ErrorContext(ctx.Request.Context(), "internal error",
			"err", appErr.Err,
			"request_id", requestIDFrom(ctx),
			"route", ctx.FullPath(),
		)
	}

	RespondError(ctx, appErr.Status, appErr.Code, appErr.Message)
}

// The shorthands below all funnel through RespondAppError so the errs
// constructors stay the one place status codes are assigned.

func RespondBadRequest(ctx *gin.Context, code, message string) {
	RespondAppError(ctx, errs.BadRequest(code, message))
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondAppError(ctx, errs.Unauthorized(code, message))
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondAppError(ctx, errs.NotFound(message))
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondAppError(ctx, errs.Conflict(code, message))
}
