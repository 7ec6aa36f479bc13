package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coachhub/coach-chat/internal/config"
	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/internal/handler"
	"github.com/coachhub/coach-chat/internal/hub"
	"github.com/coachhub/coach-chat/internal/notify"
	"github.com/coachhub/coach-chat/internal/repository"
	"github.com/coachhub/coach-chat/internal/service"
	"github.com/coachhub/coach-chat/pkg/database"
	"github.com/coachhub/coach-chat/pkg/jwt"
	pkglog "github.com/coachhub/coach-chat/pkg/log"
	"github.com/coachhub/coach-chat/pkg/middleware"
	"github.com/coachhub/coach-chat/pkg/pubsub"
)

const serviceName = "coach-chat"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(cfg.LogOptions(serviceName))
	logger := pkglog.L()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("auth.jwt_secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database using GORM
	db, err := database.New(cfg.DatabaseOptions(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	// Live session registry and connection hub
	registry := hub.NewRegistry()
	wsHub := hub.NewHub(registry)
	go wsHub.Run(ctx)

	// Cross-instance relay
	var relay *notify.Relay
	ps, err := pubsub.NewPubSub(cfg.PubSubOptions())
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to create pubsub")
	}
	if ps != nil {
		defer ps.Close()
		relay = notify.NewRelay(ps, cfg.PubSub.ChannelPrefix, cfg.NodeID, registry, cfg.Fanout.PublishTimeout)
		if err := relay.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to start relay")
		}
		logger.Info().Str("driver", cfg.PubSub.Driver).Msg("notification relay started")
	}

	// Initialize service
	chatService := service.NewChatService(
		repository.NewGormConversationRepository(db),
		repository.NewGormMessageRepository(db),
		repository.NewGormParticipantRepository(db),
		notify.NewNotifier(registry, relay),
		service.Options{
			ExemptAuthor:     cfg.Fanout.ExemptAuthor,
			MaxParallelLoads: cfg.Fanout.MaxParallelLoads,
		},
	)

	// Initialize auth
	tokens := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	handler.NewHandler(chatService, authMiddleware).RegisterRoutes(r)
	handler.NewWSHandler(wsHub, tokens, cfg.WebSocket).RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Str("node_id", cfg.NodeID).Msg("coach-chat starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down coach-chat")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if relay != nil {
		if err := relay.Stop(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("failed to stop relay")
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info().Msg("coach-chat stopped")
}
