package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-dispatch/internal/controllers"
	"field-dispatch/internal/services"
	"field-dispatch/pkg/service"
)

func runAuthRouter(api, secureGroup *echo.Group, authService services.AuthServiceInterface, jwtSvc service.JWTService, logger *zap.Logger) {
	authCtrl := controllers.NewAuthController(authService, jwtSvc, logger)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authCtrl.Register)
		authGroup.POST("/login", authCtrl.Login)
		authGroup.POST("/refresh_token", authCtrl.RefreshToken)
		authGroup.POST("/logout", authCtrl.Logout)
	}

	secureGroup.GET("/auth/me", authCtrl.Me)
	secureGroup.POST("/auth/change-password", authCtrl.ChangePassword)
}
