package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shinyyama/fragrance-assistant/internal/model"
	"github.com/shinyyama/fragrance-assistant/internal/service"
)

type CartHandler struct {
	sessions service.SessionService
	logger   *zap.Logger
}

func NewCartHandler(sessions service.SessionService, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{sessions: sessions, logger: logger}
}

func (h *CartHandler) Get(c echo.Context) error {
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, sess.Cart.State())
}

func (h *CartHandler) AddItem(c echo.Context) error {
	var p model.Product
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid product"))
	}
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "product id is required"))
	}
	if p.Price < 0 {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "price must not be negative"))
	}
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ctx := c.Request().Context()
	st := sess.Cart.AddItem(ctx, p)
	sess.Conversation.NoteCarted(ctx, p.ID)
	return c.JSON(http.StatusOK, st)
}

func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	var body struct {
		Quantity *int `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil || body.Quantity == nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "quantity is required"))
	}
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, sess.Cart.UpdateQuantity(c.Request().Context(), c.Param("pid"), *body.Quantity))
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, sess.Cart.RemoveItem(c.Request().Context(), c.Param("pid")))
}

func (h *CartHandler) Clear(c echo.Context) error {
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, sess.Cart.ClearCart(c.Request().Context()))
}

// Sync pulls the backend cart. A failed sync keeps the local cart and is
// reported in the response, not as an error status.
func (h *CartHandler) Sync(c echo.Context) error {
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	st, synced := sess.Cart.SyncWithBackend(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{
		"cart":   st,
		"synced": synced,
	})
}
