package websocket

import "time"

const (
	TypeNotificationCreated = "notification.created"
	TypeUnreadCount         = "notification.unread_count"
)

// Envelope lets the client dispatch on Type.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}
