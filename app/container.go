package main

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"field-dispatch/internal/listeners"
	"field-dispatch/internal/repositories"
	"field-dispatch/internal/routes"
	"field-dispatch/internal/services"
	"field-dispatch/pkg/config"
	"field-dispatch/pkg/eventbus"
	"field-dispatch/pkg/telegram"
	"field-dispatch/pkg/websocket"
)

type container struct {
	services *routes.Services
	listener *listeners.TaskListener
	relay    *services.OutboxRelay
}

// buildContainer wires repositories into services. The event bus and hub are
// owned by main so their lifetimes can be managed there.
func buildContainer(
	dbConn *pgxpool.Pool,
	redisClient *redis.Client,
	bus *eventbus.Bus,
	hub *websocket.Hub,
	cfg *config.Config,
	logger *zap.Logger,
) *container {
	txManager := repositories.NewTxManager(dbConn)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)
	userRepo := repositories.NewUserRepository(dbConn, logger)
	taskRepo := repositories.NewTaskRepository(dbConn, logger)
	locationRepo := repositories.NewLocationRepository(dbConn, logger)
	notificationRepo := repositories.NewNotificationRepository(dbConn, logger)
	ratingRepo := repositories.NewRatingRepository(dbConn, logger)
	statsRepo := repositories.NewStatsRepository(dbConn, logger)
	outboxRepo := repositories.NewOutboxRepository(dbConn, logger)

	tgService := telegram.NewService(cfg.Telegram.BotToken, cfg.Telegram.APIURL)
	if !tgService.Enabled() {
		logger.Warn("TELEGRAM_BOT_TOKEN is not set, assignments fall back to WhatsApp links")
	}

	push := services.NewWebSocketNotificationService(hub, logger)
	notificationService := services.NewNotificationService(notificationRepo, userRepo, cacheRepo, push, logger)
	dispatchService := services.NewDispatchService(tgService, userRepo, taskRepo, notificationService, cfg.Dispatch, logger)

	svcs := &routes.Services{
		Auth:         services.NewAuthService(userRepo, cacheRepo, logger, cfg.Auth),
		Task:         services.NewTaskService(txManager, taskRepo, userRepo, outboxRepo, dispatchService, cacheRepo, bus, logger),
		Location:     services.NewLocationService(locationRepo, taskRepo, cacheRepo, logger),
		Notification: notificationService,
		Dispatch:     dispatchService,
		Rating:       services.NewRatingService(ratingRepo, taskRepo, userRepo, logger),
		Stats:        services.NewStatsService(statsRepo, userRepo, logger),
		Technician:   services.NewTechnicianService(userRepo, logger),
		Report:       services.NewReportService(taskRepo, ratingRepo, userRepo, logger),
	}

	return &container{
		services: svcs,
		listener: listeners.NewTaskListener(notificationService, dispatchService, userRepo, outboxRepo, cfg.Dispatch, logger),
		relay:    services.NewOutboxRelay(outboxRepo, bus, cfg.Dispatch, logger),
	}
}
