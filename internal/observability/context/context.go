package context

import (
	stdctx "context"
	"strings"
)

type requestIDKey struct{}
type actorKey struct{}

// WithRequestID stores the request correlation id.
func WithRequestID(ctx stdctx.Context, requestID string) stdctx.Context {
	return stdctx.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx stdctx.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WithActor records the acting operator for log correlation only. Engine
// operations still take the actor as an explicit argument.
func WithActor(ctx stdctx.Context, actor string) stdctx.Context {
	return stdctx.WithValue(ctx, actorKey{}, strings.TrimSpace(actor))
}

func ActorFromContext(ctx stdctx.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(actorKey{}).(string)
	return value
}
