package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-dispatch/internal/controllers"
	"field-dispatch/internal/services"
	"field-dispatch/pkg/config"
	"field-dispatch/pkg/middleware"
)

func runLocationRouter(
	secureGroup *echo.Group,
	locationService services.LocationServiceInterface,
	logger *zap.Logger,
	authMW *middleware.AuthMiddleware,
	rateCfg config.RateLimitConfig,
) {
	locationCtrl := controllers.NewLocationController(locationService, logger)
	limiter := middleware.NewRateLimiter(rateCfg.LocationPerSecond, rateCfg.LocationBurst, logger)

	locations := secureGroup.Group("/locations")
	{
		locations.POST("", locationCtrl.RecordLocation, authMW.RequireRole(technicianOnly...), limiter.Limit)
		locations.GET("/technician/:user_id/latest", locationCtrl.GetLatest, authMW.RequireRole(adminOnly...))
		locations.GET("/:task_id", locationCtrl.GetLocations)
		locations.GET("/:task_id/summary", locationCtrl.GetTrackSummary)
	}
}
