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

type TechnicianController struct {
	technicianService services.TechnicianServiceInterface
	ratingService     services.RatingServiceInterface
	logger            *zap.Logger
}

func NewTechnicianController(
	technicianService services.TechnicianServiceInterface,
	ratingService services.RatingServiceInterface,
	logger *zap.Logger,
) *TechnicianController {
	return &TechnicianController{
		technicianService: technicianService,
		ratingService:     ratingService,
		logger:            logger,
	}
}

func (c *TechnicianController) GetTechnicians(ctx echo.Context) error {
	list, err := c.technicianService.ListTechnicians(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, list, "Technicians loaded", http.StatusOK)
}

func (c *TechnicianController) UpdateContact(ctx echo.Context) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.UpdateContactDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError("invalid contact payload"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	user, err := c.technicianService.UpdateContact(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, user, "Contact updated", http.StatusOK)
}

func (c *TechnicianController) GetRatings(ctx echo.Context) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	ratings, err := c.ratingService.RatingsFor(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, ratings, "Ratings loaded", http.StatusOK)
}
