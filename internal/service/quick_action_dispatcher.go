package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/shinyyama/fragrance-assistant/internal/model"
	"github.com/shinyyama/fragrance-assistant/internal/reqctx"
)

const productPageSize = 4

type actionHandler func(ctx context.Context, payload map[string]any) error

// QuickActionDispatcher routes a quick action to the cart, the checkout or
// the conversation. Custom actions are routed a second time by
// payload["action"].
type QuickActionDispatcher struct {
	cart     CartService
	checkout CheckoutService
	conv     ConversationService
	logger   *zap.Logger

	handlers map[model.ActionType]actionHandler
	custom   map[string]actionHandler
}

func NewQuickActionDispatcher(cart CartService, checkout CheckoutService, conv ConversationService, logger *zap.Logger) *QuickActionDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &QuickActionDispatcher{cart: cart, checkout: checkout, conv: conv, logger: logger}
	d.handlers = map[model.ActionType]actionHandler{
		model.ActionAddToCart:  d.addToCart,
		model.ActionBuyNow:     d.buyNow,
		model.ActionViewCart:   d.viewCart,
		model.ActionCheckout:   d.startCartCheckout,
		model.ActionShowDetail: d.showDetail,
		model.ActionNextPage:   d.pageBy(1),
		model.ActionPrevPage:   d.pageBy(-1),
		model.ActionCustom:     d.dispatchCustom,
	}
	d.custom = map[string]actionHandler{
		"increase":          d.adjustQuantity(1),
		"decrease":          d.adjustQuantity(-1),
		"remove":            d.removeLine,
		"clear_cart":        d.clearCart,
		"view_cart":         d.viewCart,
		"checkout":          d.startCartCheckout,
		"cancel_checkout":   d.cancelCheckout,
		"retry_order":       d.confirmOrder,
		"confirm_order":     d.confirmOrder,
		"proceed_shipping":  d.proceedShipping,
		"retry_message":     d.retryMessage,
		"help":              d.inform(model.MessageTypeText, helpText),
		"continue_shopping": d.inform(model.MessageTypeText, "어떤 향을 찾고 계신가요? 계열이나 분위기, 예산을 알려 주세요."),
		"contact_support":   d.inform(model.MessageTypeText, supportText),
		"cancel":            d.inform(model.MessageTypeText, "알겠어요. 다른 도움이 필요하시면 말씀해 주세요."),
		"login":             d.inform(model.MessageTypeText, "로그인 후 다시 시도해 주세요. 장바구니는 그대로 유지돼요."),
	}
	return d
}

// Dispatch runs the handler for a. Unknown actions are logged and ignored.
func (d *QuickActionDispatcher) Dispatch(ctx context.Context, a model.QuickAction) error {
	h, ok := d.handlers[a.ActionType]
	if !ok {
		d.logger.Warn("unknown quick action", append(reqctx.Fields(ctx),
			zap.String("stage", "quick_action"), zap.String("action_type", string(a.ActionType)))...)
		return nil
	}
	payload := a.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return h(ctx, payload)
}

func (d *QuickActionDispatcher) dispatchCustom(ctx context.Context, payload map[string]any) error {
	action := payloadString(payload, "action")
	h, ok := d.custom[action]
	if !ok {
		d.logger.Warn("unknown custom action", append(reqctx.Fields(ctx),
			zap.String("stage", "quick_action"), zap.String("action", action))...)
		return nil
	}
	return h(ctx, payload)
}

func (d *QuickActionDispatcher) addToCart(ctx context.Context, payload map[string]any) error {
	p, ok := d.resolveProduct(ctx, payload)
	if !ok {
		d.say(ctx, model.MessageTypeError, "상품 정보를 찾을 수 없어요. 상품을 다시 검색해 주세요.")
		return ErrProductNotFound
	}
	st := d.cart.AddItem(ctx, p)
	d.conv.NoteCarted(ctx, p.ID)
	d.conv.AppendMessage(ctx, cartSummaryMessage(
		fmt.Sprintf("%s을(를) 장바구니에 담았어요. (총 %d개, %s)", p.Name, st.TotalItems, formatWon(st.TotalPrice)),
		st,
		model.CustomAction("주문하기", "checkout"),
		model.CustomAction("쇼핑 계속하기", "continue_shopping"),
	))
	return nil
}

func (d *QuickActionDispatcher) buyNow(ctx context.Context, payload map[string]any) error {
	p, ok := d.resolveProduct(ctx, payload)
	if !ok {
		d.say(ctx, model.MessageTypeError, "상품 정보를 찾을 수 없어요. 상품을 다시 검색해 주세요.")
		return ErrProductNotFound
	}
	_, err := d.checkout.StartCheckout(ctx, model.CheckoutModeDirect, p.ID)
	return err
}

func (d *QuickActionDispatcher) viewCart(ctx context.Context, _ map[string]any) error {
	st := d.cart.State()
	if len(st.Lines) == 0 {
		d.say(ctx, model.MessageTypeText, "장바구니가 비어 있어요.", model.CustomAction("쇼핑 계속하기", "continue_shopping"))
		return nil
	}
	d.conv.AppendMessage(ctx, cartSummaryMessage(
		fmt.Sprintf("장바구니에 %d개, 총 %s 담겨 있어요.", st.TotalItems, formatWon(st.TotalPrice)),
		st,
		model.CustomAction("주문하기", "checkout"),
		model.CustomAction("장바구니 비우기", "clear_cart"),
	))
	return nil
}

func (d *QuickActionDispatcher) startCartCheckout(ctx context.Context, _ map[string]any) error {
	_, err := d.checkout.StartCheckout(ctx, model.CheckoutModeCart, "")
	return err
}

func (d *QuickActionDispatcher) showDetail(ctx context.Context, payload map[string]any) error {
	p, ok := d.resolveProduct(ctx, payload)
	if !ok {
		d.say(ctx, model.MessageTypeError, "상품 정보를 찾을 수 없어요.")
		return ErrProductNotFound
	}
	d.conv.NoteViewed(ctx, p.ID)
	text := fmt.Sprintf("%s %s · %s", p.Brand, p.Name, formatWon(p.Price))
	if p.Description != "" {
		text += "\n" + p.Description
	}
	msg := newBotMessage(model.MessageTypeProductCards, text,
		model.QuickAction{Label: "장바구니 담기", ActionType: model.ActionAddToCart, Payload: map[string]any{"product_id": p.ID}},
		model.QuickAction{Label: "바로 구매", ActionType: model.ActionBuyNow, Payload: map[string]any{"product_id": p.ID}},
	)
	msg.Products = []model.Product{p}
	d.conv.AppendMessage(ctx, msg)
	return nil
}

// pageBy shows a page of recently recommended products. payload["page"] is
// the zero-based page the shopper is currently on.
func (d *QuickActionDispatcher) pageBy(delta int) actionHandler {
	return func(ctx context.Context, payload map[string]any) error {
		recent := d.conv.Context().RecentProducts
		if len(recent) == 0 {
			d.say(ctx, model.MessageTypeText, "최근 추천된 상품이 없어요. 원하시는 향을 말씀해 주세요.")
			return nil
		}
		pages := (len(recent) + productPageSize - 1) / productPageSize
		page := payloadInt(payload, "page") + delta
		if page < 0 {
			page = 0
		}
		if page > pages-1 {
			page = pages - 1
		}
		start := page * productPageSize
		end := min(start+productPageSize, len(recent))

		var actions []model.QuickAction
		if page > 0 {
			actions = append(actions, model.QuickAction{Label: "이전", ActionType: model.ActionPrevPage, Payload: map[string]any{"page": page}})
		}
		if page < pages-1 {
			actions = append(actions, model.QuickAction{Label: "다음", ActionType: model.ActionNextPage, Payload: map[string]any{"page": page}})
		}
		msg := newBotMessage(model.MessageTypeProductCards, fmt.Sprintf("추천 상품 %d/%d 페이지", page+1, pages), actions...)
		msg.Products = append([]model.Product{}, recent[start:end]...)
		d.conv.AppendMessage(ctx, msg)
		return nil
	}
}

func (d *QuickActionDispatcher) adjustQuantity(delta int) actionHandler {
	return func(ctx context.Context, payload map[string]any) error {
		id := payloadProductID(payload)
		st := d.cart.State()
		i := st.IndexOf(id)
		if i < 0 {
			d.logger.Debug("quantity change for missing line", append(reqctx.Fields(ctx), zap.String("product_id", id))...)
			return nil
		}
		st = d.cart.UpdateQuantity(ctx, id, st.Lines[i].Quantity+delta)
		d.conv.AppendMessage(ctx, cartSummaryMessage(
			fmt.Sprintf("장바구니를 변경했어요. (총 %d개, %s)", st.TotalItems, formatWon(st.TotalPrice)), st))
		return nil
	}
}

func (d *QuickActionDispatcher) removeLine(ctx context.Context, payload map[string]any) error {
	st := d.cart.RemoveItem(ctx, payloadProductID(payload))
	d.conv.AppendMessage(ctx, cartSummaryMessage(
		fmt.Sprintf("상품을 뺐어요. (총 %d개, %s)", st.TotalItems, formatWon(st.TotalPrice)), st))
	return nil
}

func (d *QuickActionDispatcher) clearCart(ctx context.Context, _ map[string]any) error {
	d.cart.ClearCart(ctx)
	d.say(ctx, model.MessageTypeText, "장바구니를 비웠어요.", model.CustomAction("쇼핑 계속하기", "continue_shopping"))
	return nil
}

func (d *QuickActionDispatcher) cancelCheckout(ctx context.Context, _ map[string]any) error {
	return d.checkout.CancelCheckout(ctx)
}

func (d *QuickActionDispatcher) confirmOrder(ctx context.Context, _ map[string]any) error {
	_, err := d.checkout.ConfirmOrder(ctx)
	return err
}

func (d *QuickActionDispatcher) proceedShipping(ctx context.Context, _ map[string]any) error {
	_, err := d.checkout.ProceedToShipping(ctx)
	return err
}

func (d *QuickActionDispatcher) retryMessage(ctx context.Context, payload map[string]any) error {
	text := payloadString(payload, "text")
	if text == "" {
		text = d.conv.LastUserMessage()
	}
	if text == "" {
		return nil
	}
	_, err := d.conv.SendMessage(ctx, text)
	return err
}

func (d *QuickActionDispatcher) inform(typ model.MessageType, text string) actionHandler {
	return func(ctx context.Context, _ map[string]any) error {
		d.say(ctx, typ, text)
		return nil
	}
}

func (d *QuickActionDispatcher) say(ctx context.Context, typ model.MessageType, text string, actions ...model.QuickAction) {
	d.conv.AppendMessage(ctx, newBotMessage(typ, text, actions...))
}

// resolveProduct finds the product in the recent context, falling back to
// the product fields carried by the payload itself.
func (d *QuickActionDispatcher) resolveProduct(ctx context.Context, payload map[string]any) (model.Product, bool) {
	id := payloadProductID(payload)
	if id == "" {
		return model.Product{}, false
	}
	if p, ok := d.conv.FindRecentProduct(id); ok {
		return p, true
	}
	name := payloadString(payload, "name")
	if name == "" {
		return model.Product{}, false
	}
	p := model.Product{
		ID:            id,
		Name:          name,
		Brand:         payloadString(payload, "brand"),
		Price:         int64(payloadInt(payload, "price")),
		Image:         payloadString(payload, "image"),
		Category:      payloadString(payload, "category"),
		Concentration: payloadString(payload, "concentration"),
	}
	d.conv.RememberProducts(ctx, p)
	return p, true
}

func payloadProductID(payload map[string]any) string {
	for _, k := range []string{"product_id", "productId", "id"} {
		if v := payloadString(payload, k); v != "" {
			return v
		}
	}
	return ""
}

// payloadString accepts strings and JSON numbers.
func payloadString(payload map[string]any, key string) string {
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(math.Round(v))
	case int:
		return v
	case int64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	}
	return 0
}
