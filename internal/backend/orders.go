package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shinyyama/fragrance-assistant/internal/failure"
	"github.com/shinyyama/fragrance-assistant/internal/model"
)

func (c *Client) CreateOrder(ctx context.Context, req model.OrderRequest) (*model.OrderReceipt, error) {
	body := createOrderRequest{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		CheckoutForm: checkoutFormWire{
			RecipientName:   req.ShippingInfo.RecipientName,
			Phone:           req.ShippingInfo.Phone,
			Address:         req.ShippingInfo.Address,
			AddressDetail:   req.ShippingInfo.AddressDetail,
			PostalCode:      req.ShippingInfo.PostalCode,
			DeliveryMessage: req.ShippingInfo.DeliveryMessage,
		},
		PaymentMethod: req.PaymentMethod.MethodID,
	}
	for _, l := range req.Items {
		body.Items = append(body.Items, orderItemWire{ProductID: l.ID, Quantity: l.Quantity, Price: l.Price})
	}

	var resp createOrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders/create", nil, body, &resp); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if !resp.Success || resp.Order == nil {
		msg := resp.Message
		if msg == "" {
			msg = resp.Error
		}
		if msg == "" {
			msg = "order was not accepted"
		}
		return nil, fmt.Errorf("create order: %w", failure.Rejected(msg))
	}
	return &model.OrderReceipt{
		OrderID:           string(resp.Order.OrderID),
		OrderDate:         resp.Order.OrderDate,
		TotalAmount:       minorUnits(resp.Order.TotalAmount),
		EstimatedDelivery: resp.Order.EstimatedDelivery,
		Status:            resp.Order.Status,
	}, nil
}

func (c *Client) PaymentMethods(ctx context.Context, userID, sessionID string) ([]model.PaymentMethod, error) {
	var resp paymentMethodsResponse
	if err := c.do(ctx, http.MethodGet, "/checkout/payment-methods", identity(userID, sessionID), nil, &resp); err != nil {
		return nil, fmt.Errorf("payment methods: %w", err)
	}
	return toPaymentMethods(resp.PaymentMethods), nil
}
