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

type LocationController struct {
	locationService services.LocationServiceInterface
	logger          *zap.Logger
}

func NewLocationController(locationService services.LocationServiceInterface, logger *zap.Logger) *LocationController {
	return &LocationController{locationService: locationService, logger: logger}
}

func (c *LocationController) RecordLocation(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.RecordLocationDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError("invalid location payload"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	sample, err := c.locationService.RecordLocation(reqCtx, actor, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, sample, "Location recorded", http.StatusCreated)
}

func (c *LocationController) GetLocations(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	taskID, err := uuidParam(ctx, "task_id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	limit, err := intQuery(ctx, "limit", 0)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	samples, err := c.locationService.GetLocations(reqCtx, actor, taskID, limit)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, samples, "Locations loaded", http.StatusOK)
}

func (c *LocationController) GetTrackSummary(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	taskID, err := uuidParam(ctx, "task_id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	summary, err := c.locationService.TrackSummary(reqCtx, actor, taskID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, summary, "Track summary loaded", http.StatusOK)
}

func (c *LocationController) GetLatest(ctx echo.Context) error {
	technicianID, err := uuidParam(ctx, "user_id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	latest, err := c.locationService.LatestForTechnician(ctx.Request().Context(), technicianID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, latest, "Latest location loaded", http.StatusOK)
}
