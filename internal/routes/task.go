package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-dispatch/internal/controllers"
	"field-dispatch/pkg/middleware"
)

func runTaskRouter(secureGroup *echo.Group, svcs *Services, logger *zap.Logger, authMW *middleware.AuthMiddleware) {
	taskCtrl := controllers.NewTaskController(svcs.Task, svcs.Dispatch, svcs.Rating, logger)
	admin := authMW.RequireRole(adminOnly...)
	technician := authMW.RequireRole(technicianOnly...)

	tasks := secureGroup.Group("/tasks")
	{
		tasks.GET("", taskCtrl.GetTasks)
		tasks.GET("/:id", taskCtrl.FindTask)
		tasks.POST("", taskCtrl.CreateTask, admin)
		tasks.DELETE("/:id", taskCtrl.DeleteTask, admin)
		tasks.POST("/:id/dispatch", taskCtrl.DispatchTask, admin)
		tasks.POST("/:id/rating", taskCtrl.RateTask, admin)
		tasks.PATCH("/:id/accept", taskCtrl.AcceptTask, technician)
		tasks.PATCH("/:id/start", taskCtrl.StartTask, technician)
		tasks.POST("/:id/complete", taskCtrl.CompleteTask, technician)
	}
}
