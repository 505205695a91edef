package dto

import (
	"time"

	"github.com/google/uuid"
)

type RecordLocationDTO struct {
	TaskID    string   `json:"task_id" validate:"required,uuid"`
	Latitude  *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"required,min=-180,max=180"`
}

type LocationSampleDTO struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	UserID    uuid.UUID `json:"user_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

type TrackSummaryDTO struct {
	TaskID         uuid.UUID  `json:"task_id"`
	Samples        int        `json:"samples"`
	FirstAt        *time.Time `json:"first_at"`
	LastAt         *time.Time `json:"last_at"`
	DistanceMeters float64    `json:"distance_meters"`
}
