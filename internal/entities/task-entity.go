package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusAccepted   TaskStatus = "accepted"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

var taskStatusOrder = []TaskStatus{
	TaskStatusPending,
	TaskStatusAccepted,
	TaskStatusInProgress,
	TaskStatusCompleted,
}

func (s TaskStatus) String() string { return string(s) }

func (s TaskStatus) IsValid() bool {
	for _, st := range taskStatusOrder {
		if st == s {
			return true
		}
	}
	return false
}

// Next returns the only status a task may move to from s.
// Completed tasks have no successor.
func (s TaskStatus) Next() (TaskStatus, bool) {
	for i, st := range taskStatusOrder {
		if st == s && i+1 < len(taskStatusOrder) {
			return taskStatusOrder[i+1], true
		}
	}
	return "", false
}

func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	next, ok := s.Next()
	return ok && next == target
}

func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown task status %q", s)
	}
	return status, nil
}

type Task struct {
	ID               uuid.UUID
	CustomerName     string
	CustomerPhone    string
	CustomerAddress  string
	IssueDescription string
	AssignedTo       uuid.UUID
	AssignedToName   string
	CreatedBy        uuid.UUID
	Status           TaskStatus
	Report           *string
	ReportImages     []string
	Success          *bool
	DurationMinutes  *int
	CreatedAt        time.Time
	AcceptedAt       *time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
}

// Tracking reports whether the task currently accepts location samples.
func (t *Task) Tracking() bool {
	return t.Status == TaskStatusInProgress
}

// CompletionDuration is the whole number of minutes between start and completedAt.
func (t *Task) CompletionDuration(completedAt time.Time) int {
	if t.StartedAt == nil || completedAt.Before(*t.StartedAt) {
		return 0
	}
	return int(completedAt.Sub(*t.StartedAt) / time.Minute)
}
