package middlewares

import (
	"github.com/geocoder89/userhub/internal/errs"
	"github.com/gin-gonic/gin"
)

// RequireSelf is the only authorization rule in this service: the route's
// resource id must equal the caller's own id. Role-based restriction is a
// declared extension point with no enforcement yet.
func RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID, ok := UserIDFromContext(c)

		if !ok || callerID == "" {
			abortUnauthorized(c, "Missing identity context")
			return
		}

		resourceID := c.Param(param)

		if resourceID == "" {
			abortError(c, errs.BadRequest("invalid_request", "Missing resource id"))
			return
		}

		if callerID != resourceID {
			abortError(c, errs.Forbidden("forbidden", "You can only act on your own account"))
			return
		}

		c.Next()
	}
}
