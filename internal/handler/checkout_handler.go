package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shinyyama/fragrance-assistant/internal/model"
	"github.com/shinyyama/fragrance-assistant/internal/service"
)

type CheckoutHandler struct {
	sessions service.SessionService
	logger   *zap.Logger
}

func NewCheckoutHandler(sessions service.SessionService, logger *zap.Logger) *CheckoutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutHandler{sessions: sessions, logger: logger}
}

type checkoutResponse struct {
	Checkout       *model.CheckoutState  `json:"checkout"`
	PaymentMethods []model.PaymentMethod `json:"paymentMethods,omitempty"`
	TotalPrice     int64                 `json:"totalPrice"`
	TotalItems     int                   `json:"totalItems"`
	Messages       []model.Message       `json:"messages"`
}

func (h *CheckoutHandler) respond(c echo.Context, sess *service.Session, status int) error {
	total, items := sess.Checkout.Summary()
	return c.JSON(status, checkoutResponse{
		Checkout:       sess.Checkout.State(),
		TotalPrice:     total,
		TotalItems:     items,
		PaymentMethods: sess.Checkout.PaymentMethods(),
		Messages:       sess.Conversation.Messages(),
	})
}

func (h *CheckoutHandler) Get(c echo.Context) error {
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return h.respond(c, sess, http.StatusOK)
}

func (h *CheckoutHandler) Start(c echo.Context) error {
	var body struct {
		Mode      model.CheckoutMode `json:"mode"`
		ProductID string             `json:"productId"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	if body.Mode == "" {
		body.Mode = model.CheckoutModeCart
	}
	if body.Mode != model.CheckoutModeCart && body.Mode != model.CheckoutModeDirect {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "mode must be cart or direct"))
	}
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if _, err := sess.Checkout.StartCheckout(c.Request().Context(), body.Mode, body.ProductID); err != nil {
		return respondError(c, h.logger, err)
	}
	return h.respond(c, sess, http.StatusCreated)
}

func (h *CheckoutHandler) Proceed(c echo.Context) error {
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if _, err := sess.Checkout.ProceedToShipping(c.Request().Context()); err != nil {
		return respondError(c, h.logger, err)
	}
	return h.respond(c, sess, http.StatusOK)
}

func (h *CheckoutHandler) SubmitShipping(c echo.Context) error {
	var info model.ShippingInfo
	if err := c.Bind(&info); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid shipping info"))
	}
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if _, err := sess.Checkout.SubmitShipping(c.Request().Context(), info); err != nil {
		return respondError(c, h.logger, err)
	}
	return h.respond(c, sess, http.StatusOK)
}

func (h *CheckoutHandler) SubmitPayment(c echo.Context) error {
	var method model.PaymentMethod
	if err := c.Bind(&method); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid payment method"))
	}
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if _, err := sess.Checkout.SubmitPayment(c.Request().Context(), method); err != nil {
		return respondError(c, h.logger, err)
	}
	return h.respond(c, sess, http.StatusOK)
}

func (h *CheckoutHandler) Confirm(c echo.Context) error {
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	info, err := sess.Checkout.ConfirmOrder(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"order":    info,
		"cart":     sess.Cart.State(),
		"messages": sess.Conversation.Messages(),
	})
}

func (h *CheckoutHandler) Cancel(c echo.Context) error {
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if err := sess.Checkout.CancelCheckout(c.Request().Context()); err != nil {
		return respondError(c, h.logger, err)
	}
	return h.respond(c, sess, http.StatusOK)
}

func (h *CheckoutHandler) ListOrders(c echo.Context) error {
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	orders, err := sess.Checkout.Orders(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"orders": orders})
}

func (h *CheckoutHandler) GetOrder(c echo.Context) error {
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	info, err := sess.Checkout.Order(c.Request().Context(), c.Param("oid"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, info)
}
