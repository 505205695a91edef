package dto

import (
	"time"

	"github.com/google/uuid"
)

// TaskReportRowDTO is one line of the task export.
type TaskReportRowDTO struct {
	TaskID          uuid.UUID
	CreatedAt       time.Time
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Issue           string
	Technician      string
	Status          string
	AcceptedAt      *time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	DurationMinutes *int
	Success         *bool
	Report          *string
	Rating          *int
	RatingComment   *string
}

type TechnicianRatingRowDTO struct {
	TechnicianID uuid.UUID
	Name         string
	Email        string
	Completed    int
	Rated        int
	Average      float64
}

type TaskReportDTO struct {
	Tasks       []TaskReportRowDTO
	Technicians []TechnicianRatingRowDTO
}
