package events

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"field-dispatch/internal/entities"
)

const (
	TaskCreated = "created"
	// TaskAssigned carries the out-of-band assignment message. It is written
	// next to TaskCreated so the two side effects settle independently.
	TaskAssigned  = "assigned"
	TaskAccepted  = "accepted"
	TaskStarted   = "started"
	TaskCompleted = "completed"

	namePrefix = "task."
)

// TaskEvent is published after a task change commits. OutboxID points at the
// outbox row that records the pending side effects of the change.
type TaskEvent struct {
	OutboxID uuid.UUID     `json:"outbox_id"`
	Type     string        `json:"type"`
	Task     entities.Task `json:"task"`
	ActorID  uuid.UUID     `json:"actor_id"`
}

func (e TaskEvent) Name() string {
	return namePrefix + e.Type
}

// TaskEventNames lists every name a TaskEvent can be published under.
func TaskEventNames() []string {
	return []string{
		namePrefix + TaskCreated,
		namePrefix + TaskAssigned,
		namePrefix + TaskAccepted,
		namePrefix + TaskStarted,
		namePrefix + TaskCompleted,
	}
}

// TypeFromTransition maps the status a task moved to onto its event type.
func TypeFromTransition(status entities.TaskStatus) string {
	switch status {
	case entities.TaskStatusAccepted:
		return TaskAccepted
	case entities.TaskStatusInProgress:
		return TaskStarted
	case entities.TaskStatusCompleted:
		return TaskCompleted
	}
	return TaskCreated
}

func (e TaskEvent) Payload() (json.RawMessage, error) {
	return json.Marshal(e)
}

// DecodeTaskEvent restores an event stored in the outbox.
func DecodeTaskEvent(eventName string, payload []byte) (TaskEvent, error) {
	var e TaskEvent
	if !strings.HasPrefix(eventName, namePrefix) {
		return e, fmt.Errorf("not a task event: %q", eventName)
	}
	if err := json.Unmarshal(payload, &e); err != nil {
		return e, fmt.Errorf("decode %s payload: %w", eventName, err)
	}
	if e.Name() != eventName {
		return e, fmt.Errorf("payload type %q does not match event %q", e.Type, eventName)
	}
	return e, nil
}
