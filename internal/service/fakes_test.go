package service

import (
	"context"
	"sync"
	"time"

	"github.com/shinyyama/fragrance-assistant/internal/events"
	"github.com/shinyyama/fragrance-assistant/internal/model"
	"github.com/shinyyama/fragrance-assistant/internal/repository"
)

func inline(fn func()) { fn() }

type fakeCartBackend struct {
	mu       sync.Mutex
	remote   *model.CartState
	fetchErr error
	pushErr  error
	pushes   [][]model.CartLine
}

func (f *fakeCartBackend) FetchCart(_ context.Context, _, _ string) (*model.CartState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.remote, nil
}

func (f *fakeCartBackend) PushCart(_ context.Context, _, _ string, lines []model.CartLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, model.CloneLines(lines))
	return f.pushErr
}

type fakeOrderBackend struct {
	mu       sync.Mutex
	methods  []model.PaymentMethod
	receipt  *model.OrderReceipt
	err      error
	requests []model.OrderRequest
}

func (f *fakeOrderBackend) PaymentMethods(context.Context, string, string) ([]model.PaymentMethod, error) {
	return f.methods, nil
}

func (f *fakeOrderBackend) CreateOrder(_ context.Context, req model.OrderRequest) (*model.OrderReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}

func (f *fakeOrderBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeChat struct {
	reply *model.ChatReply
	err   error
	reqs  []model.ChatRequest
}

func (f *fakeChat) SendChat(_ context.Context, req model.ChatRequest) (*model.ChatReply, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []string
}

func (o *recordingObserver) SyncFailed(_ context.Context, op string, _ error) {
	o.mu.Lock()
	o.ops = append(o.ops, op)
	o.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

var (
	productA = model.Product{ID: "A", Name: "Bleu", Brand: "Chanel", Price: 50000, Category: "EDP"}
	productB = model.Product{ID: "B", Name: "Santal 33", Brand: "Le Labo", Price: 30000, Category: "EDP"}
	productC = model.Product{ID: "C", Name: "Mojave Ghost", Brand: "Byredo", Price: 80000, Category: "EDP"}
)

func validShipping() model.ShippingInfo {
	return model.ShippingInfo{
		RecipientName: "홍길동",
		Phone:         "010-1234-5678",
		Address:       "서울시 강남구 테헤란로 1",
		AddressDetail: "101호",
		PostalCode:    "12345",
	}
}

var cardMethod = model.PaymentMethod{MethodID: "card", MethodType: "credit_card", DisplayName: "신용카드", IsAvailable: true}

var fixedNow = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

// harness wires the three state containers the way a session does.
type harness struct {
	cart     CartService
	conv     ConversationService
	checkout CheckoutService
	actions  *QuickActionDispatcher

	cartAPI  *fakeCartBackend
	orderAPI *fakeOrderBackend
	chat     *fakeChat
	pub      *recordingPublisher
	orders   *repository.MemoryOrderRepository
}

func newHarness() *harness {
	h := &harness{
		cartAPI: &fakeCartBackend{},
		orderAPI: &fakeOrderBackend{
			methods: []model.PaymentMethod{cardMethod, {MethodID: "bank", MethodType: "bank", DisplayName: "계좌이체", IsAvailable: false}},
			receipt: &model.OrderReceipt{OrderID: "1042", OrderDate: "2026-10-15", EstimatedDelivery: "2026-10-18", TotalAmount: 110000, Status: "confirmed"},
		},
		chat:   &fakeChat{},
		pub:    &recordingPublisher{},
		orders: repository.NewMemoryOrderRepository(),
	}
	snapshots := repository.NewMemorySnapshotRepository()
	h.cart = NewCartService(CartOptions{
		ClientID:  "c1",
		Storage:   repository.NewCartStorage(snapshots, "c1"),
		Backend:   h.cartAPI,
		Publisher: h.pub,
		Async:     inline,
	})
	h.conv = NewConversationService(ConversationOptions{
		ClientID:  "c1",
		UserID:    "u1",
		Storage:   repository.NewConversationStorage(snapshots, "c1"),
		Chat:      h.chat,
		Publisher: h.pub,
	})
	h.checkout = NewCheckoutService(CheckoutOptions{
		ClientID:     "c1",
		Cart:         h.cart,
		Conversation: h.conv,
		Orders:       h.orderAPI,
		OrderRepo:    h.orders,
		Publisher:    h.pub,
		Now:          func() time.Time { return fixedNow },
	})
	h.actions = NewQuickActionDispatcher(h.cart, h.checkout, h.conv, nil)
	h.cart.SetSession(context.Background(), h.conv.SessionID(), "u1")
	return h
}

func (h *harness) lastMessage() model.Message {
	msgs := h.conv.Messages()
	return msgs[len(msgs)-1]
}

func hasAction(msg model.Message, action string) bool {
	for _, a := range msg.QuickActions {
		if a.Payload != nil && a.Payload["action"] == action {
			return true
		}
	}
	return false
}
