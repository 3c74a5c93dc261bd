package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/shinyyama/fragrance-assistant/internal/reqctx"
)

// RequestContext copies the request id and the session path parameter onto
// the request context so services can log them.
func RequestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := req.Context()
		rid := req.Header.Get(echo.HeaderXRequestID)
		if rid == "" {
			rid = c.Response().Header().Get(echo.HeaderXRequestID)
		}
		if rid != "" {
			ctx = reqctx.WithRID(ctx, rid)
		}
		if sid := c.Param("sid"); sid != "" {
			ctx = reqctx.WithClientID(ctx, sid)
		}
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}
