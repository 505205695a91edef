package dto

import "github.com/google/uuid"

const (
	DispatchStatusSent      = "sent"
	DispatchStatusQueued    = "queued"
	DispatchStatusLink      = "link"
	DispatchStatusNoChannel = "no_channel"
	DispatchStatusFailed    = "failed"
)

type DispatchResultDTO struct {
	TechnicianID uuid.UUID `json:"technician_id"`
	Channel      string    `json:"channel,omitempty"`
	Status       string    `json:"status"`
	Link         string    `json:"link,omitempty"`
	Error        string    `json:"error,omitempty"`
}

type BroadcastDTO struct {
	Message       string   `json:"message" validate:"required,notblank,max=4000"`
	TechnicianIDs []string `json:"technician_ids" validate:"required,min=1,dive,uuid"`
}

type BroadcastResultDTO struct {
	Sent    int                 `json:"sent"`
	Failed  int                 `json:"failed"`
	Results []DispatchResultDTO `json:"results"`
}
