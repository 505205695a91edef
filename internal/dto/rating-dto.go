package dto

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
)

type RateTaskDTO struct {
	Rating  int         `json:"rating" validate:"required,min=1,max=5"`
	Comment null.String `json:"comment" validate:"omitempty,max=1000"`
}

type RatingDTO struct {
	ID           uuid.UUID `json:"id"`
	TaskID       uuid.UUID `json:"task_id"`
	TechnicianID uuid.UUID `json:"technician_id"`
	Rating       int       `json:"rating"`
	Comment      *string   `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

type TechnicianRatingsDTO struct {
	Ratings []RatingDTO `json:"ratings"`
	Average float64     `json:"average"`
	Count   int         `json:"count"`
}
