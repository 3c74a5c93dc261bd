package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shinyyama/fragrance-assistant/internal/model"
	"github.com/shinyyama/fragrance-assistant/internal/service"
)

type QuickActionHandler struct {
	sessions service.SessionService
	logger   *zap.Logger
}

func NewQuickActionHandler(sessions service.SessionService, logger *zap.Logger) *QuickActionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuickActionHandler{sessions: sessions, logger: logger}
}

// Dispatch runs one quick action and answers with the whole session, since
// an action may touch the cart, the checkout and the messages at once.
func (h *QuickActionHandler) Dispatch(c echo.Context) error {
	var action model.QuickAction
	if err := c.Bind(&action); err != nil || action.ActionType == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "actionType is required"))
	}
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if err := sess.Actions.Dispatch(c.Request().Context(), action); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, sess.View())
}
