package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "barstock/internal/core/context"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
)

// UserContext copies the caller identity set by the upstream auth proxy into
// the request context. Movements and orders record it as created_by_user_id.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
			user := &appctx.UserContext{
				UserID: uid,
				Email:  strings.TrimSpace(c.GetHeader(HeaderUserEmail)),
			}
			c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), user))
			c.Set("user_id", uid)
		}
		c.Next()
	}
}
