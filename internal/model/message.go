package model

import "time"

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type MessageType string

const (
	MessageTypeText              MessageType = "text"
	MessageTypeProductCards      MessageType = "product_cards"
	MessageTypeCartSummary       MessageType = "cart_summary"
	MessageTypeCheckoutForm      MessageType = "checkout_form"
	MessageTypePaymentMethods    MessageType = "payment_methods"
	MessageTypeOrderConfirmation MessageType = "order_confirmation"
	MessageTypeError             MessageType = "error"
)

type Message struct {
	ID                string          `json:"id"`
	Sender            Sender          `json:"sender"`
	Type              MessageType     `json:"type"`
	Text              string          `json:"text"`
	CreatedAt         time.Time       `json:"createdAt"`
	Products          []Product       `json:"products,omitempty"`
	QuickActions      []QuickAction   `json:"quickActions,omitempty"`
	Cart              *CartState      `json:"cart,omitempty"`
	PaymentMethods    []PaymentMethod `json:"paymentMethods,omitempty"`
	OrderConfirmation *OrderInfo      `json:"orderConfirmation,omitempty"`
}

// ChatRequest is sent to the chat-completion collaborator.
type ChatRequest struct {
	UserID      string
	SessionID   string
	Message     string
	Preferences Preferences
	History     []Message
}

// ChatReply is the collaborator's answer; ResponseType selects how it renders.
type ChatReply struct {
	Message           string
	ResponseType      string
	Products          []Product
	QuickActions      []QuickAction
	Cart              *CartState
	PaymentMethods    []PaymentMethod
	OrderConfirmation *OrderInfo
}
