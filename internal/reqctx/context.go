package reqctx

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const (
	keyRID      ctxKey = "request_id"
	keyClientID ctxKey = "client_id"
)

// WithRID stores the request correlation id for logs.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RID returns correlation id if present.
func RID(ctx context.Context) string {
	v, _ := ctx.Value(keyRID).(string)
	return v
}

// WithClientID stores the browser session the request acts on.
func WithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyClientID, id)
}

func ClientID(ctx context.Context) string {
	v, _ := ctx.Value(keyClientID).(string)
	return v
}

// Fields returns the correlation fields present on ctx.
func Fields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if rid := RID(ctx); rid != "" {
		fields = append(fields, zap.String("rid", rid))
	}
	if cid := ClientID(ctx); cid != "" {
		fields = append(fields, zap.String("client", cid))
	}
	return fields
}
