package backend

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// flexID accepts ids sent either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// minorUnits rounds a decimal amount to whole currency units (KRW has no subunit).
func minorUnits(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

type checkoutFormWire struct {
	RecipientName   string `json:"recipient_name"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	AddressDetail   string `json:"address_detail"`
	PostalCode      string `json:"postal_code"`
	DeliveryMessage string `json:"delivery_message"`
}

type orderItemWire struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

type createOrderRequest struct {
	UserID        string           `json:"user_id"`
	SessionID     string           `json:"session_id"`
	CheckoutForm  checkoutFormWire `json:"checkout_form"`
	PaymentMethod string           `json:"payment_method"`
	Items         []orderItemWire  `json:"items,omitempty"`
}

type orderWire struct {
	OrderID           flexID          `json:"order_id"`
	OrderDate         string          `json:"order_date"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	EstimatedDelivery string          `json:"estimated_delivery"`
	Status            string          `json:"status"`
}

type createOrderResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Error   string     `json:"error"`
	Order   *orderWire `json:"order"`
}

type paymentMethodWire struct {
	MethodID    flexID `json:"method_id"`
	MethodType  string `json:"method_type"`
	DisplayName string `json:"display_name"`
	Icon        string `json:"icon"`
	IsAvailable bool   `json:"is_available"`
}

type paymentMethodsResponse struct {
	PaymentMethods []paymentMethodWire `json:"payment_methods"`
}

type cartItemWire struct {
	ProductID     flexID          `json:"product_id"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	ImageURL      string          `json:"image_url"`
	Concentration string          `json:"concentration"`
}

type cartSnapshotWire struct {
	Items       []cartItemWire  `json:"items"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type cartSyncRequest struct {
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	Items     []cartItemWire `json:"items"`
}

type productCardWire struct {
	ProductID     flexID          `json:"product_id"`
	ID            flexID          `json:"id"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	Price         decimal.Decimal `json:"price"`
	ImageURL      string          `json:"image_url"`
	Category      string          `json:"category"`
	Concentration string          `json:"concentration"`
	Description   string          `json:"description"`
}

type quickActionWire struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	ActionType string         `json:"action_type"`
	Payload    map[string]any `json:"payload"`
}

type chatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type orderConfirmationWire struct {
	OrderID           flexID          `json:"order_id"`
	OrderDate         string          `json:"order_date"`
	EstimatedDelivery string          `json:"estimated_delivery"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Status            string          `json:"status"`
}

type chatResponse struct {
	Message           string                 `json:"message"`
	ResponseType      string                 `json:"response_type"`
	ProductCards      []productCardWire      `json:"product_cards"`
	QuickActions      []quickActionWire      `json:"quick_actions"`
	CartSummary       *cartSnapshotWire      `json:"cart_summary"`
	PaymentMethods    []paymentMethodWire    `json:"payment_methods"`
	OrderConfirmation *orderConfirmationWire `json:"order_confirmation"`
}
