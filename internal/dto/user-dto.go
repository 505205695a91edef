package dto

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
)

type UserDTO struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"`
	WhatsAppNumber *string   `json:"whatsapp_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type UpdateContactDTO struct {
	TelegramChatID null.Int64  `json:"telegram_chat_id"`
	WhatsAppNumber null.String `json:"whatsapp_number" validate:"omitempty,phone"`
}

type LatestLocationDTO struct {
	TechnicianID uuid.UUID         `json:"technician_id"`
	Location     LocationSampleDTO `json:"location"`
}
