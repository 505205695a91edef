package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxMessage is a side-effect intent written in the same transaction
// as the task change that caused it.
type OutboxMessage struct {
	ID          uuid.UUID
	EventType   string
	Payload     json.RawMessage
	Attempts    int
	LastError   *string
	CreatedAt   time.Time
	ProcessedAt *time.Time
	// ClaimedAt is set each time the relay re-publishes the row.
	ClaimedAt *time.Time
}
