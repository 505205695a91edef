package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-dispatch/internal/controllers"
	"field-dispatch/internal/services"
)

func runNotificationRouter(secureGroup *echo.Group, notificationService services.NotificationServiceInterface, logger *zap.Logger) {
	notificationCtrl := controllers.NewNotificationController(notificationService, logger)

	notifications := secureGroup.Group("/notifications")
	{
		notifications.GET("", notificationCtrl.GetNotifications)
		notifications.GET("/unread/count", notificationCtrl.GetUnreadCount)
		notifications.PATCH("/read-all", notificationCtrl.MarkAllRead)
		notifications.PATCH("/:id/read", notificationCtrl.MarkRead)
	}
}
