package entities

import (
	"time"

	"github.com/google/uuid"
)

type LocationSample struct {
	ID         uuid.UUID
	TaskID     uuid.UUID
	UserID     uuid.UUID
	Latitude   float64
	Longitude  float64
	RecordedAt time.Time
}
