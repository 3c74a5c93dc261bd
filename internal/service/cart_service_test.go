package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shinyyama/fragrance-assistant/internal/events"
	"github.com/shinyyama/fragrance-assistant/internal/model"
	"github.com/shinyyama/fragrance-assistant/internal/repository"
)

func assertTotals(t *testing.T, st model.CartState) {
	t.Helper()
	var price int64
	var items int
	for _, l := range st.Lines {
		if l.Quantity < 1 {
			t.Fatalf("line %s has quantity %d", l.ID, l.Quantity)
		}
		price += l.Price * int64(l.Quantity)
		items += l.Quantity
	}
	if st.TotalPrice != price || st.TotalItems != items {
		t.Fatalf("totals=%d/%d want %d/%d", st.TotalPrice, st.TotalItems, price, items)
	}
}

func TestCartScenario(t *testing.T) {
	ctx := context.Background()
	svc := NewCartService(CartOptions{})

	st := svc.AddItem(ctx, productA)
	if len(st.Lines) != 1 || st.TotalPrice != 50000 || st.TotalItems != 1 {
		t.Fatalf("after first add: %+v", st)
	}
	st = svc.AddItem(ctx, productA)
	if len(st.Lines) != 1 || st.TotalPrice != 100000 || st.TotalItems != 2 {
		t.Fatalf("after second add: %+v", st)
	}
	st = svc.UpdateQuantity(ctx, "A", 0)
	if len(st.Lines) != 0 || st.TotalPrice != 0 || st.TotalItems != 0 {
		t.Fatalf("after zero quantity: %+v", st)
	}
}

func TestCartTotalsHoldAfterEveryOperation(t *testing.T) {
	ctx := context.Background()
	svc := NewCartService(CartOptions{})
	ops := []struct {
		name string
		run  func() model.CartState
	}{
		{"add A", func() model.CartState { return svc.AddItem(ctx, productA) }},
		{"add B", func() model.CartState { return svc.AddItem(ctx, productB) }},
		{"add B again", func() model.CartState { return svc.AddItem(ctx, productB) }},
		{"set A to 5", func() model.CartState { return svc.UpdateQuantity(ctx, "A", 5) }},
		{"add C", func() model.CartState { return svc.AddItem(ctx, productC) }},
		{"remove B", func() model.CartState { return svc.RemoveItem(ctx, "B") }},
		{"negative C", func() model.CartState { return svc.UpdateQuantity(ctx, "C", -3) }},
		{"remove missing", func() model.CartState { return svc.RemoveItem(ctx, "zzz") }},
		{"update missing", func() model.CartState { return svc.UpdateQuantity(ctx, "zzz", 4) }},
		{"clear", func() model.CartState { return svc.ClearCart(ctx) }},
	}
	for _, op := range ops {
		st := op.run()
		t.Run(op.name, func(t *testing.T) {
			assertTotals(t, st)
			assertTotals(t, svc.State())
		})
	}
}

func TestCartDecrementExactness(t *testing.T) {
	ctx := context.Background()
	svc := NewCartService(CartOptions{})
	svc.AddItem(ctx, productB)
	before := svc.UpdateQuantity(ctx, "B", 4)

	after := svc.UpdateQuantity(ctx, "B", 3)
	if after.Lines[0].Quantity != 3 {
		t.Fatalf("quantity=%d want 3", after.Lines[0].Quantity)
	}
	if before.TotalItems-after.TotalItems != 1 {
		t.Fatalf("totalItems %d -> %d", before.TotalItems, after.TotalItems)
	}
}

func TestCartAddWithoutIDIsIgnored(t *testing.T) {
	svc := NewCartService(CartOptions{})
	st := svc.AddItem(context.Background(), model.Product{Name: "nameless", Price: 1000})
	if len(st.Lines) != 0 {
		t.Fatalf("lines=%v", st.Lines)
	}
}

func TestCartPersistsAndHydrates(t *testing.T) {
	ctx := context.Background()
	snapshots := repository.NewMemorySnapshotRepository()
	svc := NewCartService(CartOptions{Storage: repository.NewCartStorage(snapshots, "c1")})
	svc.AddItem(ctx, productA)
	svc.AddItem(ctx, productB)
	svc.AddItem(ctx, productB)

	restored := NewCartService(CartOptions{Storage: repository.NewCartStorage(snapshots, "c1")})
	if err := restored.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	st := restored.State()
	if len(st.Lines) != 2 || st.TotalItems != 3 || st.TotalPrice != 110000 {
		t.Fatalf("restored=%+v", st)
	}
}

// gatedCartStorage holds the first Save until release is closed.
type gatedCartStorage struct {
	mu      sync.Mutex
	calls   int
	stored  *model.CartState
	entered chan struct{}
	release chan struct{}
}

func (g *gatedCartStorage) Load(context.Context) (*model.CartState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stored, nil
}

func (g *gatedCartStorage) Save(_ context.Context, st model.CartState) error {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()
	if first {
		close(g.entered)
		<-g.release
	}
	g.mu.Lock()
	cp := st.Clone()
	g.stored = &cp
	g.mu.Unlock()
	return nil
}

func TestCartOverlappingSavesKeepNewestSnapshot(t *testing.T) {
	ctx := context.Background()
	store := &gatedCartStorage{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewCartService(CartOptions{Storage: store})

	first := make(chan struct{})
	go func() {
		svc.AddItem(ctx, productA)
		close(first)
	}()
	<-store.entered

	second := make(chan struct{})
	go func() {
		svc.AddItem(ctx, productB)
		close(second)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for len(svc.State().Lines) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("second add never applied")
		}
		time.Sleep(time.Millisecond)
	}
	close(store.release)
	<-first
	<-second

	stored, _ := store.Load(ctx)
	if stored == nil || len(stored.Lines) != 2 {
		t.Fatalf("stored=%+v memory=%+v", stored, svc.State())
	}
}

func TestCartBackgroundPush(t *testing.T) {
	ctx := context.Background()
	api := &fakeCartBackend{pushErr: errors.New("connection refused")}
	obs := &recordingObserver{}
	pub := &recordingPublisher{}
	svc := NewCartService(CartOptions{Backend: api, Observer: obs, Publisher: pub, Async: inline})

	svc.AddItem(ctx, productA)
	if len(api.pushes) != 0 {
		t.Fatalf("pushed without a session: %d", len(api.pushes))
	}

	svc.SetSession(ctx, "s1", "u1")
	st := svc.AddItem(ctx, productA)
	if st.TotalItems != 2 {
		t.Fatalf("local state must stay authoritative, got %+v", st)
	}
	if len(api.pushes) != 1 || api.pushes[0][0].Quantity != 2 {
		t.Fatalf("pushes=%v", api.pushes)
	}
	if len(obs.ops) != 1 || obs.ops[0] != "push:add" {
		t.Fatalf("observer ops=%v", obs.ops)
	}
	if got := pub.types(); len(got) != 2 || got[0] != events.CartUpdated {
		t.Fatalf("events=%v", got)
	}
}

func TestCartSyncWithBackend(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name       string
		remote     *model.CartState
		fetchErr   error
		wantSynced bool
		wantIDs    []string
	}{
		{
			name:       "backend wins",
			remote:     &model.CartState{Lines: []model.CartLine{{ID: "C", Price: 80000, Quantity: 2}}},
			wantSynced: true,
			wantIDs:    []string{"C"},
		},
		{
			name:       "failure keeps local",
			fetchErr:   errors.New("timeout"),
			wantSynced: false,
			wantIDs:    []string{"A"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeCartBackend{remote: tt.remote, fetchErr: tt.fetchErr}
			obs := &recordingObserver{}
			svc := NewCartService(CartOptions{Backend: api, Observer: obs, Async: inline})
			svc.AddItem(ctx, productA)
			svc.SetSession(ctx, "s1", "u1")

			st, synced := svc.SyncWithBackend(ctx)
			if synced != tt.wantSynced {
				t.Fatalf("synced=%v", synced)
			}
			if st.Syncing {
				t.Fatalf("syncing flag left set")
			}
			if len(st.Lines) != len(tt.wantIDs) || st.Lines[0].ID != tt.wantIDs[0] {
				t.Fatalf("lines=%+v", st.Lines)
			}
			assertTotals(t, st)
			if tt.fetchErr != nil && len(obs.ops) != 1 {
				t.Fatalf("observer ops=%v", obs.ops)
			}
		})
	}
}
