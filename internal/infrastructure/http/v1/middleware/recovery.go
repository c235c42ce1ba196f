// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/internal/infrastructure/http/v1/dto"
	"barstock/pkg/logger"
)

// Recovery turns a panic into a 500 response and logs the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
				)

				appErr := apperror.NewInternal(fmt.Errorf("panic: %v", err))
				_ = c.Error(appErr)
				// ErrorHandler runs inside this frame and was unwound by the panic.
				c.AbortWithStatusJSON(appErr.HTTPStatus, dto.ErrorResponse{
					Code:      appErr.Code,
					Message:   appErr.Message,
					RequestID: appctx.RequestID(c.Request.Context()),
				})
			}
		}()
		c.Next()
	}
}
