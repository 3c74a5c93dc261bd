package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shinyyama/fragrance-assistant/internal/events"
	"github.com/shinyyama/fragrance-assistant/internal/failure"
	"github.com/shinyyama/fragrance-assistant/internal/model"
	"github.com/shinyyama/fragrance-assistant/internal/reqctx"
	"github.com/shinyyama/fragrance-assistant/internal/repository"
)

const (
	maxRecentProducts = 20
	maxHistoryIDs     = 50
	maxMessages       = 200
)

type ConversationService interface {
	Messages() []model.Message
	Context() model.ConversationContext
	SessionID() string
	IsTyping() bool
	Hydrate(ctx context.Context) error
	// SendMessage returns the messages appended by this call. A failed chat
	// call is reported as an error message, not as an error.
	SendMessage(ctx context.Context, text string) ([]model.Message, error)
	AppendMessage(ctx context.Context, msgs ...model.Message)
	UpdatePreferences(ctx context.Context, patch model.PreferencesPatch) model.Preferences
	// ClearMessages starts a new conversation under a fresh session id. The
	// purchase history survives the reset.
	ClearMessages(ctx context.Context) model.ConversationContext
	RememberProducts(ctx context.Context, products ...model.Product)
	FindRecentProduct(id string) (model.Product, bool)
	NoteViewed(ctx context.Context, productID string)
	NoteCarted(ctx context.Context, productID string)
	RecordPurchase(ctx context.Context, info model.OrderInfo)
	RecordFailure() int
	ResetFailures()
	FailureCount() int
	SetUser(userID string)
	LastUserMessage() string
}

type ConversationOptions struct {
	ClientID  string
	UserID    string
	Storage   repository.ConversationStorage
	Chat      ChatClient
	Publisher events.Publisher
	Logger    *zap.Logger
}

type conversationService struct {
	mu       sync.Mutex
	messages []model.Message
	cc       model.ConversationContext
	typing   bool
	failures int
	userID   string
	clientID string
	storage  repository.ConversationStorage
	chat     ChatClient
	pub      events.Publisher
	logger   *zap.Logger
}

func NewConversationService(opts ConversationOptions) ConversationService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &conversationService{
		messages: []model.Message{greetingMessage()},
		cc:       newConversationContext(),
		userID:   opts.UserID,
		clientID: opts.ClientID,
		storage:  opts.Storage,
		chat:     opts.Chat,
		pub:      opts.Publisher,
		logger:   opts.Logger,
	}
}

func newConversationContext() model.ConversationContext {
	return model.ConversationContext{
		SessionID:       uuid.NewString(),
		Preferences:     model.DefaultPreferences(),
		RecentProducts:  []model.Product{},
		PurchaseHistory: []model.OrderInfo{},
	}
}

func (s *conversationService) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *conversationService) Context() model.ConversationContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneContext(s.cc)
}

func (s *conversationService) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cc.SessionID
}

func (s *conversationService) IsTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

func (s *conversationService) Hydrate(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	stored, err := s.storage.Load(ctx)
	if err != nil {
		return err
	}
	if stored == nil {
		s.persist(ctx, s.Context())
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored.SessionID != "" {
		s.cc.SessionID = stored.SessionID
	}
	s.cc.Preferences = stored.Preferences
	if s.cc.Preferences.Intensity == "" {
		s.cc.Preferences.Intensity = model.IntensityMedium
	}
	if stored.RecentProducts != nil {
		s.cc.RecentProducts = stored.RecentProducts
	}
	if stored.PurchaseHistory != nil {
		s.cc.PurchaseHistory = stored.PurchaseHistory
	}
	return nil
}

func (s *conversationService) SendMessage(ctx context.Context, text string) ([]model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	log := s.logger.With(reqctx.Fields(ctx)...)

	user := newUserMessage(text)
	s.mu.Lock()
	history := make([]model.Message, len(s.messages))
	copy(history, s.messages)
	s.appendLocked(user)
	s.typing = true
	req := model.ChatRequest{
		UserID:      s.userID,
		SessionID:   s.cc.SessionID,
		Message:     text,
		Preferences: s.cc.Preferences,
		History:     history,
	}
	s.mu.Unlock()

	reply, err := s.send(ctx, req)

	if err != nil {
		fe := failure.Classify(err)
		log.Warn("chat send failed", zap.String("stage", "chat"),
			zap.String("kind", string(fe.Kind)), zap.Int("status", fe.Status), zap.Error(err))
		s.mu.Lock()
		s.typing = false
		s.failures++
		out := []model.Message{user, chatFailureMessage(fe, text)}
		if s.failures >= failureHintThreshold {
			out = append(out, networkHintMessage())
		}
		s.appendLocked(out[1:]...)
		s.mu.Unlock()
		return out, nil
	}

	msg := replyMessage(reply)
	s.mu.Lock()
	s.typing = false
	s.failures = 0
	s.appendLocked(msg)
	s.mu.Unlock()
	if len(reply.Products) > 0 {
		s.RememberProducts(ctx, reply.Products...)
	}
	log.Debug("chat reply", zap.String("stage", "chat"), zap.String("type", string(msg.Type)))
	return []model.Message{user, msg}, nil
}

func (s *conversationService) send(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error) {
	if s.chat == nil {
		return nil, failure.Network(errors.New("chat client is not configured"))
	}
	reply, err := s.chat.SendChat(ctx, req)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, failure.Network(errors.New("empty chat reply"))
	}
	return reply, nil
}

func (s *conversationService) AppendMessage(ctx context.Context, msgs ...model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(msgs...)
}

func (s *conversationService) appendLocked(msgs ...model.Message) {
	s.messages = append(s.messages, msgs...)
	if over := len(s.messages) - maxMessages; over > 0 {
		s.messages = append([]model.Message(nil), s.messages[over:]...)
	}
}

func (s *conversationService) UpdatePreferences(ctx context.Context, patch model.PreferencesPatch) model.Preferences {
	s.mu.Lock()
	s.cc.Preferences = s.cc.Preferences.Merge(patch)
	snap := cloneContext(s.cc)
	s.mu.Unlock()
	s.persist(ctx, snap)
	return snap.Preferences
}

func (s *conversationService) ClearMessages(ctx context.Context) model.ConversationContext {
	s.mu.Lock()
	previous := s.cc.SessionID
	fresh := newConversationContext()
	fresh.PurchaseHistory = s.cc.PurchaseHistory
	s.cc = fresh
	s.messages = []model.Message{greetingMessage()}
	s.failures = 0
	s.typing = false
	snap := cloneContext(s.cc)
	s.mu.Unlock()

	if s.storage != nil {
		if err := s.storage.Clear(ctx); err != nil {
			s.logger.Warn("clear conversation failed", append(reqctx.Fields(ctx), zap.String("stage", "persist"), zap.Error(err))...)
		}
	}
	s.persist(ctx, snap)
	publish(ctx, s.pub, s.logger, events.New(events.ConversationReset, s.clientID, map[string]any{
		"previousSessionId": previous,
		"sessionId":         snap.SessionID,
	}))
	return snap
}

// RememberProducts puts products at the front of the recent list, most
// recent first, dropping older duplicates.
func (s *conversationService) RememberProducts(ctx context.Context, products ...model.Product) {
	if len(products) == 0 {
		return
	}
	s.mu.Lock()
	seen := make(map[string]bool, len(products))
	next := make([]model.Product, 0, maxRecentProducts)
	for _, p := range products {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		next = append(next, p)
	}
	for _, p := range s.cc.RecentProducts {
		if !seen[p.ID] {
			seen[p.ID] = true
			next = append(next, p)
		}
	}
	if len(next) > maxRecentProducts {
		next = next[:maxRecentProducts]
	}
	s.cc.RecentProducts = next
	snap := cloneContext(s.cc)
	s.mu.Unlock()
	s.persist(ctx, snap)
}

func (s *conversationService) FindRecentProduct(id string) (model.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.cc.RecentProducts {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

func (s *conversationService) NoteViewed(ctx context.Context, productID string) {
	s.note(ctx, productID, func(p *model.Preferences) *[]string { return &p.ViewHistory })
}

func (s *conversationService) NoteCarted(ctx context.Context, productID string) {
	s.note(ctx, productID, func(p *model.Preferences) *[]string { return &p.CartHistory })
}

func (s *conversationService) note(ctx context.Context, productID string, list func(*model.Preferences) *[]string) {
	if productID == "" {
		return
	}
	s.mu.Lock()
	ids := list(&s.cc.Preferences)
	*ids = pushID(*ids, productID)
	snap := cloneContext(s.cc)
	s.mu.Unlock()
	s.persist(ctx, snap)
}

func (s *conversationService) RecordPurchase(ctx context.Context, info model.OrderInfo) {
	s.mu.Lock()
	s.cc.PurchaseHistory = append(s.cc.PurchaseHistory, info)
	for _, l := range info.Items {
		s.cc.Preferences.PurchaseHistory = pushID(s.cc.Preferences.PurchaseHistory, l.ID)
	}
	snap := cloneContext(s.cc)
	s.mu.Unlock()
	s.persist(ctx, snap)
}

func (s *conversationService) RecordFailure() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	return s.failures
}

func (s *conversationService) ResetFailures() {
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
}

func (s *conversationService) FailureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

func (s *conversationService) SetUser(userID string) {
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
}

func (s *conversationService) LastUserMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Sender == model.SenderUser {
			return s.messages[i].Text
		}
	}
	return ""
}

func (s *conversationService) persist(ctx context.Context, cc model.ConversationContext) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Save(ctx, cc); err != nil {
		s.logger.Warn("persist conversation failed", append(reqctx.Fields(ctx), zap.String("stage", "persist"), zap.Error(err))...)
	}
}

// pushID moves id to the end of ids, keeping at most maxHistoryIDs entries.
func pushID(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	out = append(out, id)
	if len(out) > maxHistoryIDs {
		out = out[len(out)-maxHistoryIDs:]
	}
	return out
}

func cloneContext(cc model.ConversationContext) model.ConversationContext {
	out := cc
	out.Preferences.FragranceTypes = cloneStrings(cc.Preferences.FragranceTypes)
	out.Preferences.FavoriteNotes = cloneStrings(cc.Preferences.FavoriteNotes)
	out.Preferences.PreferredBrands = cloneStrings(cc.Preferences.PreferredBrands)
	out.Preferences.Occasions = cloneStrings(cc.Preferences.Occasions)
	out.Preferences.PurchaseHistory = cloneStrings(cc.Preferences.PurchaseHistory)
	out.Preferences.ViewHistory = cloneStrings(cc.Preferences.ViewHistory)
	out.Preferences.CartHistory = cloneStrings(cc.Preferences.CartHistory)
	out.RecentProducts = append([]model.Product{}, cc.RecentProducts...)
	out.PurchaseHistory = append([]model.OrderInfo{}, cc.PurchaseHistory...)
	return out
}

func cloneStrings(in []string) []string {
	return append([]string{}, in...)
}
