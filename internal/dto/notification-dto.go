package dto

import (
	"time"

	"github.com/google/uuid"
)

type NotificationDTO struct {
	ID        uuid.UUID  `json:"id"`
	Message   string     `json:"message"`
	TaskID    *uuid.UUID `json:"task_id"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
}

type UnreadCountDTO struct {
	Count int64 `json:"count"`
}
