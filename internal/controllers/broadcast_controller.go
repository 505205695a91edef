package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/services"
	apperrors "field-dispatch/pkg/errors"
	"field-dispatch/pkg/utils"
)

type BroadcastController struct {
	dispatchService services.DispatchServiceInterface
	logger          *zap.Logger
}

func NewBroadcastController(dispatchService services.DispatchServiceInterface, logger *zap.Logger) *BroadcastController {
	return &BroadcastController{dispatchService: dispatchService, logger: logger}
}

func (c *BroadcastController) Broadcast(ctx echo.Context) error {
	var payload dto.BroadcastDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError("invalid broadcast payload"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.dispatchService.Broadcast(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	c.logger.Info("broadcast finished", zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
	return utils.SuccessResponse(ctx, res, "Broadcast finished", http.StatusOK)
}
