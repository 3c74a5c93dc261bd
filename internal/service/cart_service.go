package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shinyyama/fragrance-assistant/internal/events"
	"github.com/shinyyama/fragrance-assistant/internal/model"
	"github.com/shinyyama/fragrance-assistant/internal/reqctx"
	"github.com/shinyyama/fragrance-assistant/internal/repository"
)

const pushTimeout = 10 * time.Second

type CartService interface {
	State() model.CartState
	Hydrate(ctx context.Context) error
	AddItem(ctx context.Context, p model.Product) model.CartState
	RemoveItem(ctx context.Context, id string) model.CartState
	UpdateQuantity(ctx context.Context, id string, n int) model.CartState
	ClearCart(ctx context.Context) model.CartState
	SetSession(ctx context.Context, sessionID, userID string)
	// SyncWithBackend replaces local lines with the backend cart. On failure
	// the local cart is kept and synced is false.
	SyncWithBackend(ctx context.Context) (st model.CartState, synced bool)
}

type CartOptions struct {
	ClientID  string
	Storage   repository.CartStorage
	Backend   CartBackend
	Observer  SyncObserver
	Publisher events.Publisher
	Logger    *zap.Logger
	// Async runs the background backend push. Defaults to a goroutine.
	Async func(func())
}

// cartService applies every mutation locally first; the backend push that
// follows is fire-and-forget. A push or fetch resolving late is applied in
// completion order, so SyncWithBackend can overwrite an AddItem that raced it.
type cartService struct {
	mu      sync.Mutex
	state   model.CartState
	version uint64

	// saveMu orders storage writes; saved is the newest version stored.
	saveMu sync.Mutex
	saved  uint64

	clientID string
	storage  repository.CartStorage
	backend  CartBackend
	observer SyncObserver
	pub      events.Publisher
	logger   *zap.Logger
	async    func(func())
}

func NewCartService(opts CartOptions) CartService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Observer == nil {
		opts.Observer = NewLogSyncObserver(opts.Logger)
	}
	if opts.Async == nil {
		opts.Async = runAsync
	}
	return &cartService{
		state:    model.CartState{Lines: []model.CartLine{}},
		clientID: opts.ClientID,
		storage:  opts.Storage,
		backend:  opts.Backend,
		observer: opts.Observer,
		pub:      opts.Publisher,
		logger:   opts.Logger,
		async:    opts.Async,
	}
}

func (s *cartService) State() model.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *cartService) Hydrate(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	st, err := s.storage.Load(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Lines = s.state.Lines[:0]
	for _, l := range st.Lines {
		if l.ID == "" || l.Quantity <= 0 {
			continue
		}
		if i := s.state.IndexOf(l.ID); i >= 0 {
			s.state.Lines[i].Quantity += l.Quantity
			continue
		}
		s.state.Lines = append(s.state.Lines, l)
	}
	if s.state.SessionID == "" {
		s.state.SessionID = st.SessionID
	}
	if s.state.UserID == "" {
		s.state.UserID = st.UserID
	}
	s.state.Recalculate()
	return nil
}

func (s *cartService) AddItem(ctx context.Context, p model.Product) model.CartState {
	if p.ID == "" {
		s.logger.Warn("add item without product id", reqctx.Fields(ctx)...)
		return s.State()
	}
	return s.mutate(ctx, "add", func(st *model.CartState) bool {
		if i := st.IndexOf(p.ID); i >= 0 {
			st.Lines[i].Quantity++
			return true
		}
		st.Lines = append(st.Lines, model.LineFromProduct(p))
		return true
	})
}

func (s *cartService) RemoveItem(ctx context.Context, id string) model.CartState {
	return s.mutate(ctx, "remove", func(st *model.CartState) bool {
		i := st.IndexOf(id)
		if i < 0 {
			return false
		}
		st.Lines = append(st.Lines[:i], st.Lines[i+1:]...)
		return true
	})
}

func (s *cartService) UpdateQuantity(ctx context.Context, id string, n int) model.CartState {
	if n <= 0 {
		return s.RemoveItem(ctx, id)
	}
	return s.mutate(ctx, "update", func(st *model.CartState) bool {
		i := st.IndexOf(id)
		if i < 0 || st.Lines[i].Quantity == n {
			return false
		}
		st.Lines[i].Quantity = n
		return true
	})
}

func (s *cartService) ClearCart(ctx context.Context) model.CartState {
	return s.mutate(ctx, "clear", func(st *model.CartState) bool {
		if len(st.Lines) == 0 {
			return false
		}
		st.Lines = []model.CartLine{}
		return true
	})
}

func (s *cartService) SetSession(ctx context.Context, sessionID, userID string) {
	s.mu.Lock()
	s.state.SessionID = sessionID
	s.state.UserID = userID
	snap := s.state.Clone()
	v := s.bumpLocked()
	s.mu.Unlock()
	s.persist(ctx, snap, v)
}

func (s *cartService) SyncWithBackend(ctx context.Context) (model.CartState, bool) {
	s.mu.Lock()
	if s.backend == nil || s.state.SessionID == "" {
		snap := s.state.Clone()
		s.mu.Unlock()
		return snap, false
	}
	s.state.Syncing = true
	userID, sessionID := s.state.UserID, s.state.SessionID
	s.mu.Unlock()

	remote, err := s.backend.FetchCart(ctx, userID, sessionID)

	s.mu.Lock()
	s.state.Syncing = false
	if err != nil || remote == nil {
		snap := s.state.Clone()
		s.mu.Unlock()
		if err != nil {
			s.observer.SyncFailed(ctx, "fetch", err)
		}
		return snap, false
	}
	s.state.Lines = model.CloneLines(remote.Lines)
	s.state.Recalculate()
	snap := s.state.Clone()
	v := s.bumpLocked()
	s.mu.Unlock()

	s.persist(ctx, snap, v)
	return snap, true
}

// mutate applies fn under the lock and recomputes totals. When fn reports a
// change the new state is persisted, pushed to the backend in the
// background and announced as an event.
func (s *cartService) mutate(ctx context.Context, op string, fn func(st *model.CartState) bool) model.CartState {
	s.mu.Lock()
	changed := fn(&s.state)
	s.state.Recalculate()
	snap := s.state.Clone()
	var v uint64
	if changed {
		v = s.bumpLocked()
	}
	s.mu.Unlock()

	if !changed {
		return snap
	}
	s.persist(ctx, snap, v)
	s.push(ctx, op, snap)
	publish(ctx, s.pub, s.logger, events.New(events.CartUpdated, s.clientID, map[string]any{
		"op":         op,
		"totalItems": snap.TotalItems,
		"totalPrice": snap.TotalPrice,
	}))
	return snap
}

func (s *cartService) bumpLocked() uint64 {
	s.version++
	return s.version
}

// persist stores snapshot v unless a newer one is already stored, so
// overlapping mutations never leave an older cart in storage.
func (s *cartService) persist(ctx context.Context, snap model.CartState, v uint64) {
	if s.storage == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if v <= s.saved {
		return
	}
	snap.Syncing = false
	if err := s.storage.Save(ctx, snap); err != nil {
		s.logger.Warn("persist cart failed", append(reqctx.Fields(ctx), zap.String("stage", "persist"), zap.Error(err))...)
		return
	}
	s.saved = v
}

func (s *cartService) push(ctx context.Context, op string, snap model.CartState) {
	if s.backend == nil || snap.SessionID == "" {
		return
	}
	bg := context.WithoutCancel(ctx)
	s.async(func() {
		pctx, cancel := context.WithTimeout(bg, pushTimeout)
		defer cancel()
		if err := s.backend.PushCart(pctx, snap.UserID, snap.SessionID, snap.Lines); err != nil {
			s.observer.SyncFailed(bg, "push:"+op, err)
		}
	})
}
