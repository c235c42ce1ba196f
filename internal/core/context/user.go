// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext identifies the operator performing a request.
// Authentication happens upstream; the identity arrives already resolved.
type UserContext struct {
	UserID string
	Email  string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// UserIDPtr returns the user ID as an optional value for nullable columns.
func UserIDPtr(ctx context.Context) *string {
	if uid := GetUserID(ctx); uid != "" {
		return &uid
	}
	return nil
}
