package entities

import (
	"time"

	"github.com/google/uuid"
)

type Rating struct {
	ID           uuid.UUID
	TaskID       uuid.UUID
	TechnicianID uuid.UUID
	Rating       int
	Comment      *string
	CreatedAt    time.Time
}
