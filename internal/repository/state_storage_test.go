package repository

import (
	"context"
	"testing"

	"github.com/shinyyama/fragrance-assistant/internal/model"
)

func TestCartStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySnapshotRepository()
	store := NewCartStorage(repo, "client-1")

	st, err := store.Load(ctx)
	if err != nil || st != nil {
		t.Fatalf("empty load: st=%v err=%v", st, err)
	}

	cart := model.CartState{Lines: []model.CartLine{{ID: "p1", Price: 50000, Quantity: 2}}}
	cart.Recalculate()
	if err := store.Save(ctx, cart); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TotalPrice != 100000 || len(got.Lines) != 1 {
		t.Fatalf("got=%+v", got)
	}

	other, _ := NewCartStorage(repo, "client-2").Load(ctx)
	if other != nil {
		t.Fatalf("storage keys must be scoped per client")
	}
}

func TestConversationStorageClear(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStorage(NewMemorySnapshotRepository(), "client-1")
	if err := store.Save(ctx, model.ConversationContext{SessionID: "s1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil || got != nil {
		t.Fatalf("after clear: got=%v err=%v", got, err)
	}
}

func TestSnapshotRepositoryWithoutDB(t *testing.T) {
	repo := NewSnapshotRepository(nil)
	if _, err := repo.Get(context.Background(), "k"); err != ErrDBNotReady {
		t.Fatalf("err=%v", err)
	}
}

func TestMemoryOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOrderRepository()
	_ = repo.Create(ctx, &model.OrderRecord{OrderID: "o1", ClientID: "c1"})
	_ = repo.Create(ctx, &model.OrderRecord{OrderID: "o2", ClientID: "c2"})
	_ = repo.Create(ctx, &model.OrderRecord{OrderID: "o3", ClientID: "c1"})

	list, err := repo.ListByClient(ctx, "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].OrderID != "o3" {
		t.Fatalf("list=%+v", list)
	}
	if _, err := repo.FindByOrderID(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("err=%v", err)
	}
}
