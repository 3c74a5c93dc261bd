package model

import "time"

type CheckoutMode string

const (
	CheckoutModeCart   CheckoutMode = "cart"
	CheckoutModeDirect CheckoutMode = "direct"
)

type CheckoutStep string

const (
	CheckoutStepSummary      CheckoutStep = "summary"
	CheckoutStepShipping     CheckoutStep = "shipping"
	CheckoutStepPayment      CheckoutStep = "payment"
	CheckoutStepConfirmation CheckoutStep = "confirmation"
)

type ShippingInfo struct {
	RecipientName   string `json:"recipientName" validate:"min=2"`
	Phone           string `json:"phone" validate:"krmobile"`
	Address         string `json:"address" validate:"min=5"`
	AddressDetail   string `json:"addressDetail" validate:"min=1"`
	PostalCode      string `json:"postalCode" validate:"postalcode"`
	DeliveryMessage string `json:"deliveryMessage,omitempty"`
}

type PaymentMethod struct {
	MethodID    string `json:"methodId"`
	MethodType  string `json:"methodType"`
	DisplayName string `json:"displayName"`
	Icon        string `json:"icon,omitempty"`
	IsAvailable bool   `json:"isAvailable"`
}

// CheckoutState is the single in-flight checkout of a session. Items is a
// snapshot taken at start and never follows later cart mutations.
type CheckoutState struct {
	Mode          CheckoutMode   `json:"mode"`
	Items         []CartLine     `json:"items"`
	ShippingInfo  *ShippingInfo  `json:"shippingInfo,omitempty"`
	PaymentMethod *PaymentMethod `json:"paymentMethod,omitempty"`
	Step          CheckoutStep   `json:"step"`
	StartedAt     time.Time      `json:"startedAt"`
}

func (s *CheckoutState) Clone() *CheckoutState {
	if s == nil {
		return nil
	}
	out := *s
	out.Items = CloneLines(s.Items)
	if s.ShippingInfo != nil {
		info := *s.ShippingInfo
		out.ShippingInfo = &info
	}
	if s.PaymentMethod != nil {
		pm := *s.PaymentMethod
		out.PaymentMethod = &pm
	}
	return &out
}

func (s *CheckoutState) Total() (int64, int) {
	return SumLines(s.Items)
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// OrderInfo is the receipt of a successfully created order.
type OrderInfo struct {
	OrderID           string        `json:"orderId"`
	OrderDate         string        `json:"orderDate"`
	EstimatedDelivery string        `json:"estimatedDelivery"`
	Items             []CartLine    `json:"items"`
	TotalAmount       int64         `json:"totalAmount"`
	ShippingInfo      ShippingInfo  `json:"shippingInfo"`
	PaymentMethod     PaymentMethod `json:"paymentMethod"`
	Status            OrderStatus   `json:"status"`
}

// OrderRequest is what the checkout machine hands to the order backend.
type OrderRequest struct {
	UserID        string
	SessionID     string
	Items         []CartLine
	ShippingInfo  ShippingInfo
	PaymentMethod PaymentMethod
}

// OrderReceipt is the backend's answer to an order creation call.
type OrderReceipt struct {
	OrderID           string
	OrderDate         string
	TotalAmount       int64
	EstimatedDelivery string
	Status            string
}
