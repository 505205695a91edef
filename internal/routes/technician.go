package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-dispatch/internal/controllers"
	"field-dispatch/pkg/middleware"
)

func runTechnicianRouter(secureGroup *echo.Group, svcs *Services, logger *zap.Logger, authMW *middleware.AuthMiddleware) {
	technicianCtrl := controllers.NewTechnicianController(svcs.Technician, svcs.Rating, logger)
	broadcastCtrl := controllers.NewBroadcastController(svcs.Dispatch, logger)
	admin := authMW.RequireRole(adminOnly...)

	technicians := secureGroup.Group("/technicians", admin)
	{
		technicians.GET("", technicianCtrl.GetTechnicians)
		technicians.PUT("/:id/contact", technicianCtrl.UpdateContact)
		technicians.GET("/:id/ratings", technicianCtrl.GetRatings)
	}

	secureGroup.POST("/broadcast", broadcastCtrl.Broadcast, admin)
}
