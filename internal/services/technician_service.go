package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/entities"
	"field-dispatch/internal/repositories"
	apperrors "field-dispatch/pkg/errors"
	"field-dispatch/pkg/whatsapp"
)

type TechnicianServiceInterface interface {
	ListTechnicians(ctx context.Context) ([]dto.UserDTO, error)
	UpdateContact(ctx context.Context, technicianID uuid.UUID, payload dto.UpdateContactDTO) (*dto.UserDTO, error)
}

type TechnicianService struct {
	userRepo repositories.UserRepositoryInterface
	logger   *zap.Logger
}

func NewTechnicianService(userRepo repositories.UserRepositoryInterface, logger *zap.Logger) TechnicianServiceInterface {
	return &TechnicianService{userRepo: userRepo, logger: logger}
}

func (s *TechnicianService) ListTechnicians(ctx context.Context) ([]dto.UserDTO, error) {
	users, err := s.userRepo.ListByRole(ctx, entities.RoleTechnician)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserDTO, 0, len(users))
	for i := range users {
		out = append(out, UserToDTO(&users[i]))
	}
	return out, nil
}

// UpdateContact replaces both dispatch channels. A null field clears it.
func (s *TechnicianService) UpdateContact(ctx context.Context, technicianID uuid.UUID, payload dto.UpdateContactDTO) (*dto.UserDTO, error) {
	user, err := s.userRepo.FindByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if user.Role != entities.RoleTechnician {
		return nil, apperrors.ErrNotFound
	}

	var chatID *int64
	if payload.TelegramChatID.Valid {
		v := payload.TelegramChatID.Int64
		chatID = &v
	}

	var number *string
	if payload.WhatsAppNumber.Valid {
		if v := strings.TrimSpace(payload.WhatsAppNumber.String); v != "" {
			if _, err := whatsapp.ChatLink(v, ""); err != nil {
				if errors.Is(err, whatsapp.ErrInvalidNumber) {
					return nil, apperrors.NewValidationError("whatsapp_number", "%s", err.Error())
				}
				return nil, err
			}
			number = &v
		}
	}

	updated, err := s.userRepo.UpdateContact(ctx, technicianID, chatID, number)
	if err != nil {
		return nil, err
	}
	s.logger.Info("technician contact updated",
		zap.String("technician_id", technicianID.String()),
		zap.Bool("telegram", chatID != nil),
		zap.Bool("whatsapp", number != nil),
	)
	out := UserToDTO(updated)
	return &out, nil
}
