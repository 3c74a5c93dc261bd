package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shinyyama/fragrance-assistant/internal/ai"
	"github.com/shinyyama/fragrance-assistant/internal/backend"
	"github.com/shinyyama/fragrance-assistant/internal/config"
	"github.com/shinyyama/fragrance-assistant/internal/db"
	"github.com/shinyyama/fragrance-assistant/internal/events"
	appmw "github.com/shinyyama/fragrance-assistant/internal/middleware"
	"github.com/shinyyama/fragrance-assistant/internal/repository"
	"github.com/shinyyama/fragrance-assistant/internal/server"
	"github.com/shinyyama/fragrance-assistant/internal/service"
)

// Set with -ldflags at build time.
var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, nil)
	chat := chatClient(ctx, cfg, api, logger)

	pub := newPublisher(cfg, logger)
	defer func() { _ = pub.Close() }()

	var snapshots repository.SnapshotRepository
	var orders repository.OrderRepository
	if cfg.UseDatabase() {
		snapshots = repository.NewSnapshotRepository(nil)
		orders = repository.NewOrderRepository(nil)
	} else {
		logger.Info("DB_HOST not set; keeping client state in memory", zap.String("stage", "boot"))
		snapshots = repository.NewMemorySnapshotRepository()
		orders = repository.NewMemoryOrderRepository()
	}

	sessions := service.NewSessionService(service.Dependencies{
		Snapshots: snapshots,
		Orders:    orders,
		Cart:      api,
		OrderAPI:  api,
		Chat:      chat,
		Publisher: pub,
		Observer:  service.NewLogSyncObserver(logger),
		Logger:    logger,
		IdleTTL:   cfg.SessionIdleTTL,
	})

	authMw, err := appmw.NewAuthMiddleware(ctx, cfg.FirebaseProjectID)
	if err != nil {
		logger.Fatal("failed to init firebase auth", zap.Error(err))
	}

	srv := server.New(server.Options{
		Sessions:     sessions,
		Auth:         authMw,
		Logger:       logger,
		OriginSuffix: cfg.Origins,
		SHA:          gitSHA,
		BuildTime:    buildTime,
		Repos:        []server.DBSetter{snapshots, orders},
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("stage", "boot"), zap.String("addr", addr))
		errCh <- srv.Start(addr)
	}()

	if cfg.UseDatabase() {
		go func() {
			conn, err := db.Connect(cfg)
			if err != nil {
				logger.Error("db connect error", zap.String("stage", "db"), zap.Error(err))
				return
			}
			if err := db.Migrate(conn); err != nil {
				logger.Error("auto migrate error", zap.String("stage", "db"), zap.Error(err))
			}
			srv.SetDB(conn)
			logger.Info("db ready", zap.String("stage", "db"))
		}()
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Development() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	return logger
}

func chatClient(ctx context.Context, cfg *config.Config, api *backend.Client, logger *zap.Logger) service.ChatClient {
	if cfg.ChatProvider != "gemini" {
		return api
	}
	gemini, err := ai.NewGeminiChatClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		logger.Warn("gemini unavailable; using storefront chat", zap.String("stage", "boot"), zap.Error(err))
		return api
	}
	return gemini
}

func newPublisher(cfg *config.Config, logger *zap.Logger) events.Publisher {
	if cfg.RabbitMQURL == "" {
		return events.NewNopPublisher()
	}
	pub, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.EventsQueue)
	if err != nil {
		logger.Warn("rabbitmq unavailable; events disabled", zap.String("stage", "boot"), zap.Error(err))
		return events.NewNopPublisher()
	}
	return pub
}
