package services

import (
	"field-dispatch/internal/dto"
	"field-dispatch/internal/entities"
	"field-dispatch/pkg/utils"
)

func taskToDTO(t *entities.Task) dto.TaskDTO {
	images := t.ReportImages
	if images == nil {
		images = []string{}
	}
	var duration string
	if t.DurationMinutes != nil {
		duration = utils.FormatMinutesToHumanReadable(*t.DurationMinutes)
	}
	return dto.TaskDTO{
		ID:               t.ID,
		CustomerName:     t.CustomerName,
		CustomerPhone:    t.CustomerPhone,
		CustomerAddress:  t.CustomerAddress,
		IssueDescription: t.IssueDescription,
		Status:           t.Status.String(),
		AssignedTo:       t.AssignedTo,
		AssignedToName:   t.AssignedToName,
		CreatedBy:        t.CreatedBy,
		Report:           t.Report,
		ReportImages:     images,
		Success:          t.Success,
		DurationMinutes:  t.DurationMinutes,
		Duration:         duration,
		CreatedAt:        t.CreatedAt,
		AcceptedAt:       t.AcceptedAt,
		StartedAt:        t.StartedAt,
		CompletedAt:      t.CompletedAt,
	}
}

func locationToDTO(s *entities.LocationSample) dto.LocationSampleDTO {
	return dto.LocationSampleDTO{
		ID:        s.ID,
		TaskID:    s.TaskID,
		UserID:    s.UserID,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Timestamp: s.RecordedAt,
	}
}

func notificationToDTO(n *entities.Notification) dto.NotificationDTO {
	return dto.NotificationDTO{
		ID:        n.ID,
		Message:   n.Message,
		TaskID:    n.TaskID,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func ratingToDTO(r *entities.Rating) dto.RatingDTO {
	return dto.RatingDTO{
		ID:           r.ID,
		TaskID:       r.TaskID,
		TechnicianID: r.TechnicianID,
		Rating:       r.Rating,
		Comment:      r.Comment,
		CreatedAt:    r.CreatedAt,
	}
}

func UserToDTO(u *entities.User) dto.UserDTO {
	return dto.UserDTO{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           string(u.Role),
		TelegramChatID: u.TelegramChatID,
		WhatsAppNumber: u.WhatsAppNumber,
		CreatedAt:      u.CreatedAt,
	}
}
