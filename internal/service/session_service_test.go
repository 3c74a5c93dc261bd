package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shinyyama/fragrance-assistant/internal/model"
	"github.com/shinyyama/fragrance-assistant/internal/repository"
)

func TestSessionServiceGet(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionService(Dependencies{Snapshots: repository.NewMemorySnapshotRepository(), Async: inline})

	if _, err := svc.Get(ctx, "  ", ""); !errors.Is(err, ErrClientIDRequired) {
		t.Fatalf("err=%v", err)
	}

	first, err := svc.Get(ctx, "c1", "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	again, _ := svc.Get(ctx, "c1", "")
	if first != again {
		t.Fatalf("same client must get the same session")
	}
	st := first.Cart.State()
	if st.UserID != GuestUserID || st.SessionID != first.Conversation.SessionID() {
		t.Fatalf("cart identity=%q/%q", st.UserID, st.SessionID)
	}

	other, _ := svc.Get(ctx, "c2", "u9")
	if other == first {
		t.Fatalf("clients must not share sessions")
	}
	if svc.Len() != 2 {
		t.Fatalf("len=%d", svc.Len())
	}
}

func TestSessionSurvivesEvictionThroughSnapshots(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	svc := NewSessionService(Dependencies{
		Snapshots: repository.NewMemorySnapshotRepository(),
		IdleTTL:   time.Hour,
		Async:     inline,
		Now:       func() time.Time { return now },
	})

	sess, _ := svc.Get(ctx, "c1", "u1")
	sess.Cart.AddItem(ctx, productA)
	sessionID := sess.Conversation.SessionID()

	now = now.Add(2 * time.Hour)
	_, _ = svc.Get(ctx, "c2", "")
	if svc.Len() != 1 {
		t.Fatalf("idle session not evicted, len=%d", svc.Len())
	}

	restored, err := svc.Get(ctx, "c1", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if restored == sess {
		t.Fatalf("expected a rebuilt session")
	}
	if st := restored.Cart.State(); st.TotalItems != 1 || st.SessionID != sessionID {
		t.Fatalf("restored cart=%+v", st)
	}
}

func TestSessionUserChange(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionService(Dependencies{})
	sess, _ := svc.Get(ctx, "c1", "")
	_, _ = svc.Get(ctx, "c1", "firebase-uid")
	if got := sess.Cart.State().UserID; got != "firebase-uid" {
		t.Fatalf("user=%q", got)
	}
}

func TestSessionKeepsSignedInUserOnGuestRequest(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	svc := NewSessionService(Dependencies{
		Snapshots: repository.NewMemorySnapshotRepository(),
		IdleTTL:   time.Hour,
		Async:     inline,
		Now:       func() time.Time { return now },
	})
	sess, _ := svc.Get(ctx, "c1", "firebase-uid")
	sess.Cart.AddItem(ctx, productA)

	_, _ = svc.Get(ctx, "c1", "")
	if got := sess.Cart.State().UserID; got != "firebase-uid" {
		t.Fatalf("live session user=%q", got)
	}

	now = now.Add(2 * time.Hour)
	restored, err := svc.Get(ctx, "c1", GuestUserID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if restored == sess {
		t.Fatalf("expected a rebuilt session")
	}
	if got := restored.Cart.State().UserID; got != "firebase-uid" {
		t.Fatalf("restored session user=%q", got)
	}

	_, _ = svc.Get(ctx, "c1", "other-uid")
	if got := restored.Cart.State().UserID; got != "other-uid" {
		t.Fatalf("switching users must still re-point the cart, got %q", got)
	}
}

func TestIdleSweepKeepsCheckoutInProgress(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	svc := NewSessionService(Dependencies{
		Snapshots: repository.NewMemorySnapshotRepository(),
		IdleTTL:   time.Hour,
		Async:     inline,
		Now:       func() time.Time { return now },
	})
	buying, _ := svc.Get(ctx, "c1", "u1")
	buying.Cart.AddItem(ctx, productA)
	if _, err := buying.Checkout.StartCheckout(ctx, model.CheckoutModeCart, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, _ = svc.Get(ctx, "c2", "u2")

	now = now.Add(2 * time.Hour)
	_, _ = svc.Get(ctx, "c3", "")
	if svc.Len() != 2 {
		t.Fatalf("only the idle session without a checkout should go, len=%d", svc.Len())
	}
	again, _ := svc.Get(ctx, "c1", "u1")
	if again != buying || again.Checkout.State() == nil {
		t.Fatalf("checkout in progress was lost")
	}
}

func TestResetConversationRepointsCart(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionService(Dependencies{Snapshots: repository.NewMemorySnapshotRepository()})
	sess, _ := svc.Get(ctx, "c1", "u1")
	sess.Cart.AddItem(ctx, productA)
	before := sess.Conversation.SessionID()

	cc := sess.ResetConversation(ctx)
	st := sess.Cart.State()
	if cc.SessionID == before || st.SessionID != cc.SessionID {
		t.Fatalf("cart session=%q conversation=%q before=%q", st.SessionID, cc.SessionID, before)
	}
	if st.TotalItems != 1 || st.UserID != "u1" {
		t.Fatalf("reset must not touch cart lines: %+v", st)
	}
}

func TestSessionView(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionService(Dependencies{})
	sess, _ := svc.Get(ctx, "c1", "")
	view := sess.View()
	if view.ClientID != "c1" || view.Checkout != nil || len(view.Messages) != 1 {
		t.Fatalf("view=%+v", view)
	}
	if view.Messages[0].Type != model.MessageTypeText {
		t.Fatalf("greeting=%+v", view.Messages[0])
	}
}
