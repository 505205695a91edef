package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-dispatch/internal/entities"
	"field-dispatch/internal/services"
	"field-dispatch/pkg/config"
	"field-dispatch/pkg/middleware"
	"field-dispatch/pkg/service"
	"field-dispatch/pkg/websocket"
)

type Loggers struct {
	Main         *zap.Logger
	Auth         *zap.Logger
	Task         *zap.Logger
	Location     *zap.Logger
	Notification *zap.Logger
}

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth         services.AuthServiceInterface
	Task         services.TaskServiceInterface
	Location     services.LocationServiceInterface
	Notification services.NotificationServiceInterface
	Dispatch     services.DispatchServiceInterface
	Rating       services.RatingServiceInterface
	Stats        services.StatsServiceInterface
	Technician   services.TechnicianServiceInterface
	Report       services.ReportServiceInterface
}

var (
	adminOnly      = []entities.Role{entities.RoleAdmin}
	technicianOnly = []entities.Role{entities.RoleTechnician}
)

func InitRouter(e *echo.Echo, svcs *Services, jwtSvc service.JWTService, hub *websocket.Hub, loggers *Loggers, cfg *config.Config) {
	loggers.Main.Info("InitRouter: registering routes")

	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(jwtSvc, loggers.Auth)
	secureGroup := api.Group("", authMW.Auth)

	runAuthRouter(api, secureGroup, svcs.Auth, jwtSvc, loggers.Auth)
	runTaskRouter(secureGroup, svcs, loggers.Task, authMW)
	runLocationRouter(secureGroup, svcs.Location, loggers.Location, authMW, cfg.RateLimit)
	runNotificationRouter(secureGroup, svcs.Notification, loggers.Notification)
	runTechnicianRouter(secureGroup, svcs, loggers.Main, authMW)
	runReportRouter(secureGroup, svcs, loggers.Main, authMW)
	runWebSocketRouter(api, hub, jwtSvc, loggers.Notification)

	loggers.Main.Info("InitRouter: routes registered")
}
