package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shinyyama/fragrance-assistant/internal/handler"
	appmw "github.com/shinyyama/fragrance-assistant/internal/middleware"
	"github.com/shinyyama/fragrance-assistant/internal/service"
)

// DBSetter is a repository that gets its connection after startup.
type DBSetter interface {
	SetDB(db *gorm.DB)
}

type Options struct {
	Sessions     service.SessionService
	Auth         *appmw.AuthMiddleware
	Logger       *zap.Logger
	OriginSuffix string
	SHA          string
	BuildTime    string
	Repos        []DBSetter
}

type Server struct {
	e     *echo.Echo
	repos []DBSetter
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Auth == nil {
		opts.Auth = appmw.NewAuthMiddlewareWithVerifier(nil)
	}
	logger := opts.Logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("stage", "access"),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("rid", v.RequestID),
			}
			if v.Error != nil {
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", appmw.HeaderUserID, echo.HeaderXRequestID},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(opts.OriginSuffix),
	}))
	e.Use(appmw.RequestContext)

	sessionHandler := handler.NewSessionHandler(opts.Sessions, logger)
	cartHandler := handler.NewCartHandler(opts.Sessions, logger)
	convHandler := handler.NewConversationHandler(opts.Sessions, logger)
	checkoutHandler := handler.NewCheckoutHandler(opts.Sessions, logger)
	actionHandler := handler.NewQuickActionHandler(opts.Sessions, logger)

	sha, buildTime := opts.SHA, opts.BuildTime
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})

	s := e.Group("/api/sessions/:sid", opts.Auth.OptionalAuth)
	s.GET("", sessionHandler.Get)
	s.DELETE("", sessionHandler.Drop)

	s.GET("/cart", cartHandler.Get)
	s.POST("/cart/items", cartHandler.AddItem)
	s.PATCH("/cart/items/:pid", cartHandler.UpdateQuantity)
	s.DELETE("/cart/items/:pid", cartHandler.RemoveItem)
	s.DELETE("/cart", cartHandler.Clear)
	s.POST("/cart/sync", cartHandler.Sync)

	s.GET("/messages", convHandler.ListMessages)
	s.POST("/messages", convHandler.SendMessage)
	s.DELETE("/messages", convHandler.Clear)
	s.GET("/context", convHandler.GetContext)
	s.PATCH("/preferences", convHandler.UpdatePreferences)

	s.GET("/checkout", checkoutHandler.Get)
	s.POST("/checkout", checkoutHandler.Start)
	s.POST("/checkout/proceed", checkoutHandler.Proceed)
	s.POST("/checkout/shipping", checkoutHandler.SubmitShipping)
	s.POST("/checkout/payment", checkoutHandler.SubmitPayment)
	s.POST("/checkout/confirm", checkoutHandler.Confirm)
	s.DELETE("/checkout", checkoutHandler.Cancel)
	s.GET("/orders", checkoutHandler.ListOrders)
	s.GET("/orders/:oid", checkoutHandler.GetOrder)

	s.POST("/quick-actions", actionHandler.Dispatch)

	return &Server{e: e, repos: opts.Repos}
}

func allowOrigin(suffix string) func(string) (bool, error) {
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true, nil
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false, nil
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false, nil
		}
		if suffix != "" && strings.HasSuffix(u.Hostname(), suffix) {
			return true, nil
		}
		return false, nil
	}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) SetDB(db *gorm.DB) {
	for _, r := range s.repos {
		r.SetDB(db)
	}
}
