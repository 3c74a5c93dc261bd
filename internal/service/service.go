package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/shinyyama/fragrance-assistant/internal/events"
	"github.com/shinyyama/fragrance-assistant/internal/model"
	"github.com/shinyyama/fragrance-assistant/internal/reqctx"
)

var (
	ErrEmptyMessage       = errors.New("message is empty")
	ErrNoCheckout         = errors.New("no checkout in progress")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductNotFound    = errors.New("product not found in recent context")
	ErrInvalidStep        = errors.New("operation not allowed at current checkout step")
	ErrMissingInfo        = errors.New("shipping or payment information missing")
	ErrOrderInFlight      = errors.New("order submission already in flight")
	ErrPaymentUnavailable = errors.New("payment method unavailable")
	ErrClientIDRequired   = errors.New("client id is required")
	ErrOrderNotFound      = errors.New("order not found")
)

// CartBackend is the storefront cart API keyed by (userID, sessionID).
type CartBackend interface {
	FetchCart(ctx context.Context, userID, sessionID string) (*model.CartState, error)
	PushCart(ctx context.Context, userID, sessionID string, lines []model.CartLine) error
}

type OrderBackend interface {
	PaymentMethods(ctx context.Context, userID, sessionID string) ([]model.PaymentMethod, error)
	CreateOrder(ctx context.Context, req model.OrderRequest) (*model.OrderReceipt, error)
}

type ChatClient interface {
	SendChat(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error)
}

// SyncObserver receives background cart sync failures, which are never
// returned to callers.
type SyncObserver interface {
	SyncFailed(ctx context.Context, op string, err error)
}

type logSyncObserver struct {
	logger *zap.Logger
}

func NewLogSyncObserver(logger *zap.Logger) SyncObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logSyncObserver{logger: logger}
}

func (o *logSyncObserver) SyncFailed(ctx context.Context, op string, err error) {
	o.logger.Warn("cart sync failed", append(reqctx.Fields(ctx),
		zap.String("stage", "cart_sync"), zap.String("op", op), zap.Error(err))...)
}

// publish is best effort; failures are logged and dropped.
func publish(ctx context.Context, p events.Publisher, logger *zap.Logger, ev events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.Warn("publish event failed", append(reqctx.Fields(ctx),
			zap.String("stage", "publish"), zap.String("type", string(ev.Type)), zap.Error(err))...)
	}
}

// runAsync launches fire-and-forget work.
func runAsync(fn func()) {
	go fn()
}
