package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shinyyama/fragrance-assistant/internal/events"
	"github.com/shinyyama/fragrance-assistant/internal/model"
	"github.com/shinyyama/fragrance-assistant/internal/reqctx"
	"github.com/shinyyama/fragrance-assistant/internal/repository"
)

const GuestUserID = "guest"

// Session is the assistant state owned by one browser client.
type Session struct {
	ClientID     string
	Cart         CartService
	Conversation ConversationService
	Checkout     CheckoutService
	Actions      *QuickActionDispatcher

	once     sync.Once
	initErr  error
	lastSeen time.Time
}

// SessionView is a read-only copy of everything a client renders.
type SessionView struct {
	ClientID       string                    `json:"clientId"`
	Cart           model.CartState           `json:"cart"`
	Messages       []model.Message           `json:"messages"`
	Typing         bool                      `json:"typing"`
	Checkout       *model.CheckoutState      `json:"checkout"`
	PaymentMethods []model.PaymentMethod     `json:"paymentMethods"`
	Context        model.ConversationContext `json:"context"`
}

func (s *Session) View() SessionView {
	return SessionView{
		ClientID:       s.ClientID,
		Cart:           s.Cart.State(),
		Messages:       s.Conversation.Messages(),
		Typing:         s.Conversation.IsTyping(),
		Checkout:       s.Checkout.State(),
		PaymentMethods: s.Checkout.PaymentMethods(),
		Context:        s.Conversation.Context(),
	}
}

// ResetConversation clears the conversation and points the cart at the new
// session id.
func (s *Session) ResetConversation(ctx context.Context) model.ConversationContext {
	cc := s.Conversation.ClearMessages(ctx)
	st := s.Cart.State()
	s.Cart.SetSession(ctx, cc.SessionID, st.UserID)
	return cc
}

type Dependencies struct {
	Snapshots repository.SnapshotRepository
	Orders    repository.OrderRepository
	Cart      CartBackend
	OrderAPI  OrderBackend
	Chat      ChatClient
	Publisher events.Publisher
	Observer  SyncObserver
	Logger    *zap.Logger
	IdleTTL   time.Duration
	Async     func(func())
	Now       func() time.Time
}

type SessionService interface {
	Get(ctx context.Context, clientID, userID string) (*Session, error)
	Drop(clientID string)
	Len() int
}

type sessionService struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Dependencies
}

func NewSessionService(deps Dependencies) SessionService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewNopPublisher()
	}
	return &sessionService{sessions: make(map[string]*Session), deps: deps}
}

func (s *sessionService) Get(ctx context.Context, clientID, userID string) (*Session, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, ErrClientIDRequired
	}
	if userID == "" {
		userID = GuestUserID
	}

	s.mu.Lock()
	now := s.deps.Now()
	s.sweepLocked(now)
	sess, ok := s.sessions[clientID]
	if !ok {
		sess = s.build(clientID, userID)
		s.sessions[clientID] = sess
	}
	sess.lastSeen = now
	s.mu.Unlock()

	ctx = reqctx.WithClientID(ctx, clientID)
	sess.once.Do(func() {
		sess.initErr = s.hydrate(ctx, sess, userID)
	})
	if sess.initErr != nil {
		s.Drop(clientID)
		return nil, sess.initErr
	}
	if ok {
		current := sess.Cart.State().UserID
		if user := effectiveUser(current, userID); user != current {
			sess.Conversation.SetUser(user)
			sess.Cart.SetSession(ctx, sess.Conversation.SessionID(), user)
		}
	}
	return sess, nil
}

func (s *sessionService) build(clientID, userID string) *Session {
	d := s.deps
	logger := d.Logger.With(zap.String("client_id", clientID))

	var cartStore repository.CartStorage
	var convStore repository.ConversationStorage
	if d.Snapshots != nil {
		cartStore = repository.NewCartStorage(d.Snapshots, clientID)
		convStore = repository.NewConversationStorage(d.Snapshots, clientID)
	}

	cart := NewCartService(CartOptions{
		ClientID:  clientID,
		Storage:   cartStore,
		Backend:   d.Cart,
		Observer:  d.Observer,
		Publisher: d.Publisher,
		Logger:    logger,
		Async:     d.Async,
	})
	conv := NewConversationService(ConversationOptions{
		ClientID:  clientID,
		UserID:    userID,
		Storage:   convStore,
		Chat:      d.Chat,
		Publisher: d.Publisher,
		Logger:    logger,
	})
	checkout := NewCheckoutService(CheckoutOptions{
		ClientID:     clientID,
		Cart:         cart,
		Conversation: conv,
		Orders:       d.OrderAPI,
		OrderRepo:    d.Orders,
		Publisher:    d.Publisher,
		Logger:       logger,
		Now:          d.Now,
	})
	return &Session{
		ClientID:     clientID,
		Cart:         cart,
		Conversation: conv,
		Checkout:     checkout,
		Actions:      NewQuickActionDispatcher(cart, checkout, conv, logger),
	}
}

func (s *sessionService) hydrate(ctx context.Context, sess *Session, userID string) error {
	if err := sess.Conversation.Hydrate(ctx); err != nil {
		s.deps.Logger.Error("hydrate conversation failed", append(reqctx.Fields(ctx), zap.String("stage", "hydrate"), zap.Error(err))...)
		return err
	}
	if err := sess.Cart.Hydrate(ctx); err != nil {
		s.deps.Logger.Error("hydrate cart failed", append(reqctx.Fields(ctx), zap.String("stage", "hydrate"), zap.Error(err))...)
		return err
	}
	user := effectiveUser(sess.Cart.State().UserID, userID)
	if user != userID {
		sess.Conversation.SetUser(user)
	}
	sess.Cart.SetSession(ctx, sess.Conversation.SessionID(), user)
	return nil
}

// effectiveUser keeps a signed-in user when a request arrives as guest; a
// missing token is not a sign-out.
func effectiveUser(current, requested string) string {
	if requested == GuestUserID && current != "" && current != GuestUserID {
		return current
	}
	return requested
}

func (s *sessionService) Drop(clientID string) {
	s.mu.Lock()
	delete(s.sessions, clientID)
	s.mu.Unlock()
}

func (s *sessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweepLocked evicts idle sessions; their cart and context stay in the
// snapshot store. A session with a checkout in progress is kept, since the
// checkout lives only in memory.
func (s *sessionService) sweepLocked(now time.Time) {
	if s.deps.IdleTTL <= 0 {
		return
	}
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) <= s.deps.IdleTTL {
			continue
		}
		if sess.Checkout.State() != nil {
			continue
		}
		delete(s.sessions, id)
	}
}
