package reqctx

import (
	"context"
	"testing"
)

func TestFields(t *testing.T) {
	ctx := context.Background()
	if got := Fields(ctx); len(got) != 0 {
		t.Fatalf("fields=%v", got)
	}
	ctx = WithClientID(WithRID(ctx, "r1"), "c1")
	if RID(ctx) != "r1" || ClientID(ctx) != "c1" {
		t.Fatalf("rid=%q client=%q", RID(ctx), ClientID(ctx))
	}
	if got := Fields(ctx); len(got) != 2 {
		t.Fatalf("fields=%v", got)
	}
}
