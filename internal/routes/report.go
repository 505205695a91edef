package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-dispatch/internal/controllers"
	"field-dispatch/pkg/middleware"
)

func runReportRouter(secureGroup *echo.Group, svcs *Services, logger *zap.Logger, authMW *middleware.AuthMiddleware) {
	reportCtrl := controllers.NewReportController(svcs.Report, logger)
	statsCtrl := controllers.NewStatsController(svcs.Stats, logger)

	secureGroup.GET("/stats", statsCtrl.GetStats)
	secureGroup.GET("/reports/tasks.xlsx", reportCtrl.ExportTasks, authMW.RequireRole(adminOnly...))
}
