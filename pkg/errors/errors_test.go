package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActiveTaskExistsIsConflict(t *testing.T) {
	assert.ErrorIs(t, ErrActiveTaskExists, ErrConflict)
	assert.NotErrorIs(t, ErrConflict, ErrActiveTaskExists)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("assigned_to", "is required")
	assert.Equal(t, "assigned_to: is required", err.Error())
	assert.True(t, IsValidation(fmt.Errorf("create task: %w", err)))
	assert.False(t, IsValidation(ErrNotFound))

	noField := NewValidationError("", "bad %s", "input")
	assert.Equal(t, "bad input", noField.Error())
}

func TestHttpErrorUnwrap(t *testing.T) {
	httpErr := NewHttpError(http.StatusNotFound, "task not found", ErrNotFound, nil)
	assert.ErrorIs(t, httpErr, ErrNotFound)

	var target *HttpError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", httpErr), &target))
	assert.Equal(t, http.StatusNotFound, target.Code)
}
