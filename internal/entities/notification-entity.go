package entities

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	Message     string
	TaskID      *uuid.UUID
	Read        bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}
