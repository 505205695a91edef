package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-dispatch/internal/controllers"
	"field-dispatch/pkg/service"
	"field-dispatch/pkg/websocket"
)

func runWebSocketRouter(api *echo.Group, hub *websocket.Hub, jwtSvc service.JWTService, logger *zap.Logger) {
	wsCtrl := controllers.NewWebSocketController(hub, jwtSvc, logger)
	api.GET("/ws", wsCtrl.ServeWs)
}
