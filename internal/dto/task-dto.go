package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateTaskDTO struct {
	CustomerName     string `json:"customer_name" validate:"required,notblank,max=255"`
	CustomerPhone    string `json:"customer_phone" validate:"required,notblank,phone"`
	CustomerAddress  string `json:"customer_address" validate:"required,notblank,max=500"`
	IssueDescription string `json:"issue_description" validate:"required,notblank"`
	AssignedTo       string `json:"assigned_to" validate:"required,uuid"`
}

type CompleteTaskDTO struct {
	Report       string   `json:"report_text" validate:"required,notblank"`
	Success      *bool    `json:"success" validate:"required"`
	ReportImages []string `json:"images,omitempty" validate:"omitempty,max=20,dive,url"`
}

type TaskDTO struct {
	ID               uuid.UUID  `json:"id"`
	CustomerName     string     `json:"customer_name"`
	CustomerPhone    string     `json:"customer_phone"`
	CustomerAddress  string     `json:"customer_address"`
	IssueDescription string     `json:"issue_description"`
	Status           string     `json:"status"`
	AssignedTo       uuid.UUID  `json:"assigned_to"`
	AssignedToName   string     `json:"assigned_to_name,omitempty"`
	CreatedBy        uuid.UUID  `json:"created_by"`
	Report           *string    `json:"report"`
	ReportImages     []string   `json:"report_images"`
	Success          *bool      `json:"success"`
	DurationMinutes  *int       `json:"duration_minutes"`
	Duration         string     `json:"duration,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	AcceptedAt       *time.Time `json:"accepted_at"`
	StartedAt        *time.Time `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
}

// CreateTaskResultDTO tells the admin client whether the technician could be
// reached out of band.
type CreateTaskResultDTO struct {
	Task     TaskDTO           `json:"task"`
	Dispatch DispatchResultDTO `json:"dispatch"`
}

// TaskListQueryDTO holds the typed list filters; paging and sort come from
// utils.ParseFilterFromQuery.
type TaskListQueryDTO struct {
	Status     string `query:"status" validate:"omitempty,task_status"`
	AssignedTo string `query:"assigned_to" validate:"omitempty,uuid"`
}
