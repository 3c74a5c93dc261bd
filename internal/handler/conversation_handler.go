package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shinyyama/fragrance-assistant/internal/model"
	"github.com/shinyyama/fragrance-assistant/internal/service"
)

type ConversationHandler struct {
	sessions service.SessionService
	logger   *zap.Logger
}

func NewConversationHandler(sessions service.SessionService, logger *zap.Logger) *ConversationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationHandler{sessions: sessions, logger: logger}
}

func (h *ConversationHandler) ListMessages(c echo.Context) error {
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"messages": sess.Conversation.Messages(),
		"typing":   sess.Conversation.IsTyping(),
	})
}

// SendMessage answers 200 even when the assistant call failed; the failure
// is one of the returned messages.
func (h *ConversationHandler) SendMessage(c echo.Context) error {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	msgs, err := sess.Conversation.SendMessage(c.Request().Context(), body.Text)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": msgs})
}

func (h *ConversationHandler) Clear(c echo.Context) error {
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	cc := sess.ResetConversation(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{
		"context":  cc,
		"messages": sess.Conversation.Messages(),
	})
}

func (h *ConversationHandler) GetContext(c echo.Context) error {
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, sess.Conversation.Context())
}

func (h *ConversationHandler) UpdatePreferences(c echo.Context) error {
	var patch model.PreferencesPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid preferences"))
	}
	if patch.Intensity != nil {
		switch *patch.Intensity {
		case model.IntensityLight, model.IntensityMedium, model.IntensityStrong:
		default:
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "intensity must be light, medium or strong"))
		}
	}
	if patch.PriceRange != nil && patch.PriceRange.Max > 0 && patch.PriceRange.Min > patch.PriceRange.Max {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "priceRange.min exceeds priceRange.max"))
	}
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, sess.Conversation.UpdatePreferences(c.Request().Context(), patch))
}
