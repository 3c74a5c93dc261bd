package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shinyyama/fragrance-assistant/internal/failure"
	"github.com/shinyyama/fragrance-assistant/internal/repository"
	"github.com/shinyyama/fragrance-assistant/internal/reqctx"
	"github.com/shinyyama/fragrance-assistant/internal/service"
)

type SessionHandler struct {
	sessions service.SessionService
	logger   *zap.Logger
}

func NewSessionHandler(sessions service.SessionService, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{sessions: sessions, logger: logger}
}

func (h *SessionHandler) Get(c echo.Context) error {
	sess, err := loadSession(c, h.sessions)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, sess.View())
}

// Drop forgets the in-memory session; persisted state is kept.
func (h *SessionHandler) Drop(c echo.Context) error {
	h.sessions.Drop(c.Param("sid"))
	return c.NoContent(http.StatusNoContent)
}

func loadSession(c echo.Context, sessions service.SessionService) (*service.Session, error) {
	uid, _ := c.Get("uid").(string)
	return sessions.Get(c.Request().Context(), c.Param("sid"), uid)
}

func respondError(c echo.Context, logger *zap.Logger, err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, NewFieldErrorResponse("validation_failed", verr.Message, verr.Field))
	}
	var fe *failure.Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case failure.KindValidation:
			if fe.Fallback == failure.FallbackLogin {
				return c.JSON(http.StatusUnauthorized, NewErrorResponse("login_required", fe.Error()))
			}
			return c.JSON(http.StatusBadRequest, NewErrorResponse("upstream_rejected", fe.Error()))
		case failure.KindBusiness:
			return c.JSON(http.StatusUnprocessableEntity, NewErrorResponse("order_rejected", fe.Error()))
		default:
			return c.JSON(http.StatusBadGateway, NewErrorResponse("upstream_unavailable", fe.Error()))
		}
	}

	switch {
	case errors.Is(err, service.ErrClientIDRequired), errors.Is(err, service.ErrEmptyMessage):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	case errors.Is(err, service.ErrNoCheckout):
		return c.JSON(http.StatusNotFound, NewErrorResponse("no_checkout", err.Error()))
	case errors.Is(err, service.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("order_not_found", err.Error()))
	case errors.Is(err, service.ErrCheckoutInProgress), errors.Is(err, service.ErrOrderInFlight), errors.Is(err, service.ErrInvalidStep):
		return c.JSON(http.StatusConflict, NewErrorResponse("conflict", err.Error()))
	case errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrMissingInfo), errors.Is(err, service.ErrPaymentUnavailable):
		return c.JSON(http.StatusUnprocessableEntity, NewErrorResponse("unprocessable", err.Error()))
	case errors.Is(err, repository.ErrDBNotReady):
		return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("db_not_ready", "database is not ready"))
	}
	logger.Error("request failed", append(reqctx.Fields(c.Request().Context()), zap.String("stage", "handler"), zap.Error(err))...)
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal", "internal error"))
}
