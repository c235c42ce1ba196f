package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext ties log lines, audit entries and error responses to the
// call that produced them. TraceID may be shared by several calls (an
// upstream proxy, one seeding run); RequestID names a single call.
type TraceContext struct {
	TraceID   string
	RequestID string
}

// NewTrace fills missing ids with fresh UUIDs.
func NewTrace(traceID, requestID string) *TraceContext {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &TraceContext{TraceID: traceID, RequestID: requestID}
}

type traceContextKey struct{}

func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

func GetTrace(ctx context.Context) *TraceContext {
	t, _ := ctx.Value(traceContextKey{}).(*TraceContext)
	return t
}

// RequestID returns the request id of ctx, or "" outside a traced call.
func RequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// TraceID returns the trace id of ctx, or "" outside a traced call.
func TraceID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.TraceID
	}
	return ""
}
