package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shinyyama/fragrance-assistant/internal/failure"
	"github.com/shinyyama/fragrance-assistant/internal/model"
)

const (
	greetingText    = "안녕하세요! 향수 쇼핑 도우미입니다. 찾으시는 향이나 분위기를 말씀해 주세요."
	networkHintText = "연속으로 요청이 실패하고 있어요. 네트워크 연결 상태를 확인해 주세요."
	cartKeptText    = "장바구니는 그대로 유지되어 있으니 안심하세요."
	helpText        = "원하는 향의 계열, 분위기, 예산을 알려 주시면 추천해 드려요. 장바구니 보기, 바로 구매도 언제든 가능합니다."
	supportText     = "고객센터(1588-0000, 평일 10시~18시) 또는 이메일 support@fragrance.example 로 문의해 주세요."

	// failureHintThreshold is the consecutive-failure count that adds the network hint.
	failureHintThreshold = 3
)

func newBotMessage(typ model.MessageType, text string, actions ...model.QuickAction) model.Message {
	return model.Message{
		ID:           uuid.NewString(),
		Sender:       model.SenderBot,
		Type:         typ,
		Text:         text,
		CreatedAt:    time.Now(),
		QuickActions: actions,
	}
}

func newUserMessage(text string) model.Message {
	return model.Message{
		ID:        uuid.NewString(),
		Sender:    model.SenderUser,
		Type:      model.MessageTypeText,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

func greetingMessage() model.Message {
	return newBotMessage(model.MessageTypeText, greetingText,
		model.CustomAction("도움말", "help"),
		model.QuickAction{Label: "장바구니 보기", ActionType: model.ActionViewCart},
	)
}

func networkHintMessage() model.Message {
	return newBotMessage(model.MessageTypeError, networkHintText, model.CustomAction("고객센터 문의", "contact_support"))
}

// responseTypes maps backend response_type tags to local rendering types.
var responseTypes = map[string]model.MessageType{
	"text":                   model.MessageTypeText,
	"general":                model.MessageTypeText,
	"product_recommendation": model.MessageTypeProductCards,
	"product_list":           model.MessageTypeProductCards,
	"cart_summary":           model.MessageTypeCartSummary,
	"cart":                   model.MessageTypeCartSummary,
	"checkout_form":          model.MessageTypeCheckoutForm,
	"shipping_form":          model.MessageTypeCheckoutForm,
	"payment_methods":        model.MessageTypePaymentMethods,
	"payment_select":         model.MessageTypePaymentMethods,
	"order_confirmation":     model.MessageTypeOrderConfirmation,
}

func mapResponseType(tag string) model.MessageType {
	if t, ok := responseTypes[tag]; ok {
		return t
	}
	return model.MessageTypeText
}

func replyMessage(reply *model.ChatReply) model.Message {
	msg := newBotMessage(mapResponseType(reply.ResponseType), reply.Message, reply.QuickActions...)
	msg.Products = reply.Products
	msg.Cart = reply.Cart
	msg.PaymentMethods = reply.PaymentMethods
	msg.OrderConfirmation = reply.OrderConfirmation
	if msg.Type == model.MessageTypeProductCards && len(msg.Products) == 0 {
		msg.Type = model.MessageTypeText
	}
	return msg
}

// chatFailureMessage explains a failed message send. The retry action carries
// the original text so the shopper does not have to type it again.
func chatFailureMessage(fe *failure.Error, text string) model.Message {
	retry := model.CustomAction("다시 보내기", "retry_message")
	retry.Payload["text"] = text
	switch fe.Kind {
	case failure.KindValidation:
		actions := []model.QuickAction{}
		if fe.Fallback == failure.FallbackLogin {
			actions = append(actions, model.CustomAction("로그인", "login"))
		}
		actions = append(actions, model.CustomAction("도움말", "help"))
		return newBotMessage(model.MessageTypeError, "요청을 처리할 수 없어요. 로그인 상태나 입력 내용을 확인해 주세요.", actions...)
	case failure.KindBusiness:
		text := "요청하신 내용을 처리할 수 없어요."
		if fe.Message != "" {
			text = fmt.Sprintf("요청하신 내용을 처리할 수 없어요: %s", fe.Message)
		}
		return newBotMessage(model.MessageTypeError, text, model.CustomAction("도움말", "help"), model.CustomAction("고객센터 문의", "contact_support"))
	default:
		return newBotMessage(model.MessageTypeError, "일시적인 연결 문제로 답변을 받지 못했어요. 잠시 후 다시 시도해 주세요.",
			retry, model.CustomAction("도움말", "help"))
	}
}

// orderFailureMessage explains a failed order submission; the cart and the
// entered checkout details are always kept.
func orderFailureMessage(fe *failure.Error) model.Message {
	var text string
	switch fe.Kind {
	case failure.KindValidation:
		text = "주문 정보를 확인할 수 없어 주문이 접수되지 않았어요."
		if fe.Fallback == failure.FallbackLogin {
			text = "로그인이 필요해 주문이 접수되지 않았어요."
		}
	case failure.KindBusiness:
		text = "주문을 완료하지 못했어요."
		if fe.Message != "" {
			text = fmt.Sprintf("주문을 완료하지 못했어요: %s", fe.Message)
		}
	default:
		text = "네트워크 문제로 주문을 완료하지 못했어요. 입력하신 배송·결제 정보는 그대로 남아 있어요."
	}
	actions := []model.QuickAction{}
	if fe.Retryable() {
		actions = append(actions, model.CustomAction("다시 시도", "retry_order"))
	}
	if fe.Fallback == failure.FallbackLogin {
		actions = append(actions, model.CustomAction("로그인", "login"))
	}
	actions = append(actions,
		model.QuickAction{Label: "장바구니 보기", ActionType: model.ActionViewCart},
		model.CustomAction("주문 취소", "cancel_checkout"),
	)
	return newBotMessage(model.MessageTypeError, text+" "+cartKeptText, actions...)
}

func cartSummaryMessage(text string, st model.CartState, actions ...model.QuickAction) model.Message {
	msg := newBotMessage(model.MessageTypeCartSummary, text, actions...)
	msg.Cart = &st
	return msg
}

func formatWon(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out) + "원"
	}
	return string(out) + "원"
}
