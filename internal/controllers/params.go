package controllers

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "field-dispatch/pkg/errors"
)

func uuidParam(ctx echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.NewBadRequestError("invalid " + name)
	}
	return id, nil
}

// intQuery returns fallback when the parameter is absent and a 400 when it is
// not an integer.
func intQuery(ctx echo.Context, name string, fallback int) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewBadRequestError(name + " must be an integer")
	}
	return n, nil
}
