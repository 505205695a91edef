package entities

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleTechnician
}

// User covers both admins and technicians. Contact fields are only
// meaningful for technicians and drive out-of-band dispatch.
type User struct {
	ID             uuid.UUID
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	TelegramChatID *int64
	WhatsAppNumber *string
	CreatedAt      time.Time
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u *User) HasDispatchChannel() bool {
	return u.TelegramChatID != nil || (u.WhatsAppNumber != nil && *u.WhatsAppNumber != "")
}
