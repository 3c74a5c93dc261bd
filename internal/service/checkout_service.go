package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shinyyama/fragrance-assistant/internal/events"
	"github.com/shinyyama/fragrance-assistant/internal/failure"
	"github.com/shinyyama/fragrance-assistant/internal/model"
	"github.com/shinyyama/fragrance-assistant/internal/reqctx"
	"github.com/shinyyama/fragrance-assistant/internal/repository"
)

const (
	dateLayout       = "2006-01-02"
	deliveryLeadTime = 3 * 24 * time.Hour
)

type CheckoutService interface {
	// State returns a copy of the in-flight checkout, or nil.
	State() *model.CheckoutState
	PaymentMethods() []model.PaymentMethod
	// Summary is the snapshot total and item count, zero without a checkout.
	Summary() (int64, int)
	StartCheckout(ctx context.Context, mode model.CheckoutMode, productID string) (*model.CheckoutState, error)
	ProceedToShipping(ctx context.Context) (*model.CheckoutState, error)
	SubmitShipping(ctx context.Context, info model.ShippingInfo) (*model.CheckoutState, error)
	SubmitPayment(ctx context.Context, method model.PaymentMethod) (*model.CheckoutState, error)
	// ConfirmOrder is the only step that writes to the backend. A failure
	// keeps the checkout and the cart as they were.
	ConfirmOrder(ctx context.Context) (*model.OrderInfo, error)
	CancelCheckout(ctx context.Context) error
	Orders(ctx context.Context) ([]model.OrderInfo, error)
	// Order returns one stored receipt of this client.
	Order(ctx context.Context, orderID string) (*model.OrderInfo, error)
}

type CheckoutOptions struct {
	ClientID     string
	Cart         CartService
	Conversation ConversationService
	Orders       OrderBackend
	OrderRepo    repository.OrderRepository
	Publisher    events.Publisher
	Logger       *zap.Logger
	Now          func() time.Time
}

type checkoutService struct {
	mu         sync.Mutex
	state      *model.CheckoutState
	methods    []model.PaymentMethod
	submitting bool

	clientID  string
	cart      CartService
	conv      ConversationService
	orders    OrderBackend
	orderRepo repository.OrderRepository
	pub       events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewCheckoutService(opts CheckoutOptions) CheckoutService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &checkoutService{
		clientID:  opts.ClientID,
		cart:      opts.Cart,
		conv:      opts.Conversation,
		orders:    opts.Orders,
		orderRepo: opts.OrderRepo,
		pub:       opts.Publisher,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

func (s *checkoutService) State() *model.CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *checkoutService) PaymentMethods() []model.PaymentMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.PaymentMethod{}, s.methods...)
}

func (s *checkoutService) Summary() (int64, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return 0, 0
	}
	return s.state.Total()
}

func (s *checkoutService) StartCheckout(ctx context.Context, mode model.CheckoutMode, productID string) (*model.CheckoutState, error) {
	s.mu.Lock()
	busy := s.state != nil
	s.mu.Unlock()
	if busy {
		s.say(ctx, model.MessageTypeText, "이미 진행 중인 주문이 있어요. 이어서 진행하거나 취소한 뒤 다시 시작해 주세요.",
			model.CustomAction("주문 취소", "cancel_checkout"))
		return nil, ErrCheckoutInProgress
	}

	var items []model.CartLine
	switch mode {
	case model.CheckoutModeDirect:
		p, ok := s.conv.FindRecentProduct(productID)
		if productID == "" || !ok {
			s.say(ctx, model.MessageTypeError, "상품 정보를 찾을 수 없어요. 상품을 다시 검색해 주세요.",
				model.CustomAction("쇼핑 계속하기", "continue_shopping"))
			return nil, ErrProductNotFound
		}
		items = []model.CartLine{model.LineFromProduct(p)}
	case model.CheckoutModeCart:
		items = model.CloneLines(s.cart.State().Lines)
		if len(items) == 0 {
			s.say(ctx, model.MessageTypeText, "장바구니가 비어 있어요. 마음에 드는 향수를 먼저 담아 주세요.",
				model.CustomAction("쇼핑 계속하기", "continue_shopping"))
			return nil, ErrEmptyCart
		}
	default:
		return nil, fmt.Errorf("unknown checkout mode %q", mode)
	}

	methods := s.fetchPaymentMethods(ctx)

	st := &model.CheckoutState{
		Mode:      mode,
		Items:     items,
		Step:      model.CheckoutStepSummary,
		StartedAt: s.now(),
	}
	s.mu.Lock()
	if s.state != nil {
		s.mu.Unlock()
		return nil, ErrCheckoutInProgress
	}
	s.state = st
	s.methods = methods
	snap := s.state.Clone()
	s.mu.Unlock()

	total, count := snap.Total()
	summary := model.CartState{Lines: model.CloneLines(snap.Items), TotalPrice: total, TotalItems: count}
	s.conv.AppendMessage(ctx, cartSummaryMessage(
		fmt.Sprintf("주문 상품 %d개, 총 %s입니다. 배송 정보를 입력해 주세요.", count, formatWon(total)),
		summary,
		model.CustomAction("배송 정보 입력", "proceed_shipping"),
		model.CustomAction("주문 취소", "cancel_checkout"),
	))
	publish(ctx, s.pub, s.logger, events.New(events.CheckoutStarted, s.clientID, map[string]any{
		"mode":       string(mode),
		"totalPrice": total,
		"totalItems": count,
	}))
	return snap, nil
}

// fetchPaymentMethods is advisory; a failure only leaves the list empty.
func (s *checkoutService) fetchPaymentMethods(ctx context.Context) []model.PaymentMethod {
	if s.orders == nil {
		return nil
	}
	cs := s.cart.State()
	methods, err := s.orders.PaymentMethods(ctx, cs.UserID, cs.SessionID)
	if err != nil {
		s.logger.Warn("payment methods lookup failed", append(reqctx.Fields(ctx), zap.String("stage", "payment_methods"), zap.Error(err))...)
		return nil
	}
	return methods
}

func (s *checkoutService) ProceedToShipping(ctx context.Context) (*model.CheckoutState, error) {
	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return nil, ErrNoCheckout
	}
	if s.state.Step != model.CheckoutStepSummary && s.state.Step != model.CheckoutStepShipping {
		s.mu.Unlock()
		return nil, ErrInvalidStep
	}
	s.state.Step = model.CheckoutStepShipping
	snap := s.state.Clone()
	s.mu.Unlock()

	s.say(ctx, model.MessageTypeCheckoutForm, "받는 분, 연락처, 주소를 입력해 주세요.",
		model.CustomAction("주문 취소", "cancel_checkout"))
	return snap, nil
}

func (s *checkoutService) SubmitShipping(ctx context.Context, info model.ShippingInfo) (*model.CheckoutState, error) {
	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return nil, ErrNoCheckout
	}
	if s.state.Step != model.CheckoutStepSummary && s.state.Step != model.CheckoutStepShipping {
		s.mu.Unlock()
		return nil, ErrInvalidStep
	}
	s.mu.Unlock()

	info = normalizeShipping(info)
	if verr := validateShipping(info); verr != nil {
		s.say(ctx, model.MessageTypeError, verr.Message)
		return nil, verr
	}

	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return nil, ErrNoCheckout
	}
	s.state.ShippingInfo = &info
	s.state.Step = model.CheckoutStepPayment
	snap := s.state.Clone()
	methods := append([]model.PaymentMethod{}, s.methods...)
	s.mu.Unlock()

	msg := newBotMessage(model.MessageTypePaymentMethods, "결제 수단을 선택해 주세요.",
		model.CustomAction("주문 취소", "cancel_checkout"))
	msg.PaymentMethods = methods
	s.conv.AppendMessage(ctx, msg)
	return snap, nil
}

func (s *checkoutService) SubmitPayment(ctx context.Context, method model.PaymentMethod) (*model.CheckoutState, error) {
	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return nil, ErrNoCheckout
	}
	if s.state.Step != model.CheckoutStepPayment {
		s.mu.Unlock()
		return nil, ErrInvalidStep
	}
	s.mu.Unlock()

	if verr := validatePayment(method); verr != nil {
		s.say(ctx, model.MessageTypeError, verr.Message)
		return nil, verr
	}

	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return nil, ErrNoCheckout
	}
	s.state.PaymentMethod = &method
	s.state.Step = model.CheckoutStepConfirmation
	snap := s.state.Clone()
	s.mu.Unlock()

	total, _ := snap.Total()
	name := method.DisplayName
	if name == "" {
		name = method.MethodID
	}
	s.say(ctx, model.MessageTypeText,
		fmt.Sprintf("%s(으)로 총 %s을 결제합니다. 주문을 확정할까요?", name, formatWon(total)),
		model.CustomAction("주문 확정", "confirm_order"),
		model.CustomAction("주문 취소", "cancel_checkout"),
	)
	return snap, nil
}

func (s *checkoutService) ConfirmOrder(ctx context.Context) (*model.OrderInfo, error) {
	log := s.logger.With(reqctx.Fields(ctx)...)

	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return nil, ErrNoCheckout
	}
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrOrderInFlight
	}
	if s.state.ShippingInfo == nil || s.state.PaymentMethod == nil {
		s.mu.Unlock()
		s.say(ctx, model.MessageTypeError, "배송 정보와 결제 수단을 모두 입력해야 주문할 수 있어요.")
		return nil, ErrMissingInfo
	}
	if !s.advertisedAvailableLocked(s.state.PaymentMethod.MethodID) {
		// Back to payment so another method can be chosen.
		s.state.PaymentMethod = nil
		s.state.Step = model.CheckoutStepPayment
		methods := append([]model.PaymentMethod{}, s.methods...)
		s.mu.Unlock()
		msg := newBotMessage(model.MessageTypePaymentMethods, "선택하신 결제 수단은 현재 사용할 수 없어요. 다른 결제 수단을 선택해 주세요.",
			model.CustomAction("주문 취소", "cancel_checkout"))
		msg.PaymentMethods = methods
		s.conv.AppendMessage(ctx, msg)
		return nil, ErrPaymentUnavailable
	}
	s.submitting = true
	cur := s.state
	snap := s.state.Clone()
	s.mu.Unlock()

	cs := s.cart.State()
	req := model.OrderRequest{
		UserID:        cs.UserID,
		SessionID:     cs.SessionID,
		Items:         snap.Items,
		ShippingInfo:  *snap.ShippingInfo,
		PaymentMethod: *snap.PaymentMethod,
	}
	log.Info("order submit", zap.String("stage", "order_start"), zap.String("mode", string(snap.Mode)), zap.Int("items", len(snap.Items)))

	receipt, err := s.createOrder(ctx, req)
	if err != nil {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
		return nil, s.orderFailed(ctx, snap, err)
	}

	info := s.orderInfo(snap, receipt)
	s.mu.Lock()
	s.submitting = false
	if s.state == cur {
		s.state = nil
	}
	s.mu.Unlock()

	if snap.Mode == model.CheckoutModeCart {
		s.cart.ClearCart(ctx)
	}
	s.conv.RecordPurchase(ctx, info)
	s.conv.ResetFailures()
	msg := newBotMessage(model.MessageTypeOrderConfirmation,
		fmt.Sprintf("주문이 완료되었어요! 주문번호 %s, 예상 도착일은 %s입니다.", info.OrderID, info.EstimatedDelivery),
		model.CustomAction("쇼핑 계속하기", "continue_shopping"))
	msg.OrderConfirmation = &info
	s.conv.AppendMessage(ctx, msg)
	s.storeReceipt(ctx, snap.Mode, cs.UserID, info)
	publish(ctx, s.pub, s.logger, events.New(events.OrderCompleted, s.clientID, map[string]any{
		"orderId":     info.OrderID,
		"mode":        string(snap.Mode),
		"totalAmount": info.TotalAmount,
	}))
	log.Info("order done", zap.String("stage", "order_done"), zap.String("order_id", info.OrderID))
	return &info, nil
}

func (s *checkoutService) createOrder(ctx context.Context, req model.OrderRequest) (*model.OrderReceipt, error) {
	if s.orders == nil {
		return nil, failure.Network(errors.New("order backend is not configured"))
	}
	receipt, err := s.orders.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if receipt == nil || receipt.OrderID == "" {
		return nil, failure.Rejected("주문번호를 받지 못했어요")
	}
	return receipt, nil
}

// advertisedAvailableLocked rejects only methods the backend listed as
// unavailable; methods missing from the advisory list pass.
func (s *checkoutService) advertisedAvailableLocked(methodID string) bool {
	for _, m := range s.methods {
		if m.MethodID == methodID {
			return m.IsAvailable
		}
	}
	return true
}

func (s *checkoutService) orderFailed(ctx context.Context, snap *model.CheckoutState, err error) error {
	fe := failure.Classify(err)
	n := s.conv.RecordFailure()
	s.logger.Warn("order failed", append(reqctx.Fields(ctx),
		zap.String("stage", "order_fail"), zap.String("kind", string(fe.Kind)),
		zap.Int("status", fe.Status), zap.Int("failures", n), zap.Error(err))...)

	msgs := []model.Message{orderFailureMessage(fe)}
	if n >= failureHintThreshold {
		msgs = append(msgs, networkHintMessage())
	}
	s.conv.AppendMessage(ctx, msgs...)
	total, _ := snap.Total()
	publish(ctx, s.pub, s.logger, events.New(events.OrderFailed, s.clientID, map[string]any{
		"mode":        string(snap.Mode),
		"kind":        string(fe.Kind),
		"totalAmount": total,
	}))
	return fmt.Errorf("confirm order: %w", fe)
}

func (s *checkoutService) orderInfo(snap *model.CheckoutState, r *model.OrderReceipt) model.OrderInfo {
	now := s.now()
	total, _ := snap.Total()
	info := model.OrderInfo{
		OrderID:           r.OrderID,
		OrderDate:         r.OrderDate,
		EstimatedDelivery: r.EstimatedDelivery,
		Items:             model.CloneLines(snap.Items),
		TotalAmount:       r.TotalAmount,
		ShippingInfo:      *snap.ShippingInfo,
		PaymentMethod:     *snap.PaymentMethod,
		Status:            model.OrderStatus(r.Status),
	}
	if info.OrderDate == "" {
		info.OrderDate = now.Format(dateLayout)
	}
	if info.EstimatedDelivery == "" {
		info.EstimatedDelivery = now.Add(deliveryLeadTime).Format(dateLayout)
	}
	if info.TotalAmount <= 0 {
		info.TotalAmount = total
	}
	if info.Status == "" {
		info.Status = model.OrderStatusConfirmed
	}
	return info
}

func (s *checkoutService) storeReceipt(ctx context.Context, mode model.CheckoutMode, userID string, info model.OrderInfo) {
	if s.orderRepo == nil {
		return
	}
	b, err := json.Marshal(info)
	if err != nil {
		return
	}
	rec := &model.OrderRecord{
		OrderID:     info.OrderID,
		ClientID:    s.clientID,
		UserID:      userID,
		Mode:        mode,
		Status:      info.Status,
		TotalAmount: info.TotalAmount,
		Receipt:     string(b),
	}
	if err := s.orderRepo.Create(ctx, rec); err != nil {
		s.logger.Warn("store receipt failed", append(reqctx.Fields(ctx), zap.String("stage", "persist"), zap.Error(err))...)
	}
}

func (s *checkoutService) CancelCheckout(ctx context.Context) error {
	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return ErrNoCheckout
	}
	step := s.state.Step
	mode := s.state.Mode
	s.state = nil
	s.mu.Unlock()

	s.say(ctx, model.MessageTypeText, "주문을 취소했어요. 장바구니는 그대로 남아 있어요.",
		model.QuickAction{Label: "장바구니 보기", ActionType: model.ActionViewCart},
		model.CustomAction("쇼핑 계속하기", "continue_shopping"),
	)
	publish(ctx, s.pub, s.logger, events.New(events.CheckoutCancelled, s.clientID, map[string]any{
		"mode": string(mode),
		"step": string(step),
	}))
	return nil
}

func (s *checkoutService) Orders(ctx context.Context) ([]model.OrderInfo, error) {
	if s.orderRepo == nil {
		return []model.OrderInfo{}, nil
	}
	recs, err := s.orderRepo.ListByClient(ctx, s.clientID)
	if err != nil {
		return nil, err
	}
	out := make([]model.OrderInfo, 0, len(recs))
	for _, rec := range recs {
		out = append(out, decodeReceipt(rec))
	}
	return out, nil
}

func (s *checkoutService) Order(ctx context.Context, orderID string) (*model.OrderInfo, error) {
	if s.orderRepo == nil || orderID == "" {
		return nil, ErrOrderNotFound
	}
	rec, err := s.orderRepo.FindByOrderID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	// Receipts of other clients are not visible.
	if rec.ClientID != s.clientID {
		return nil, ErrOrderNotFound
	}
	info := decodeReceipt(*rec)
	return &info, nil
}

func decodeReceipt(rec model.OrderRecord) model.OrderInfo {
	var info model.OrderInfo
	if err := json.Unmarshal([]byte(rec.Receipt), &info); err != nil {
		info = model.OrderInfo{OrderID: rec.OrderID, TotalAmount: rec.TotalAmount, Status: rec.Status}
	}
	return info
}

func (s *checkoutService) say(ctx context.Context, typ model.MessageType, text string, actions ...model.QuickAction) {
	s.conv.AppendMessage(ctx, newBotMessage(typ, text, actions...))
}
