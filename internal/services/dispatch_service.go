package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/entities"
	"field-dispatch/internal/repositories"
	"field-dispatch/pkg/config"
	apperrors "field-dispatch/pkg/errors"
	"field-dispatch/pkg/telegram"
	"field-dispatch/pkg/whatsapp"
)

const (
	ChannelTelegram = "telegram"
	ChannelWhatsApp = "whatsapp"

	mapsSearchURL = "https://www.google.com/maps/search/?api=1&query="
)

type DispatchServiceInterface interface {
	PlanAssignment(technician *entities.User, task *entities.Task) dto.DispatchResultDTO
	DispatchAssignment(ctx context.Context, technician *entities.User, task *entities.Task) (*dto.DispatchResultDTO, error)
	Redispatch(ctx context.Context, taskID uuid.UUID) (*dto.DispatchResultDTO, error)
	Broadcast(ctx context.Context, payload dto.BroadcastDTO) (*dto.BroadcastResultDTO, error)
}

type DispatchService struct {
	telegram      telegram.ServiceInterface
	userRepo      repositories.UserRepositoryInterface
	taskRepo      repositories.TaskRepositoryInterface
	notifications NotificationServiceInterface
	cfg           config.DispatchConfig
	logger        *zap.Logger
}

func NewDispatchService(
	tg telegram.ServiceInterface,
	userRepo repositories.UserRepositoryInterface,
	taskRepo repositories.TaskRepositoryInterface,
	notifications NotificationServiceInterface,
	cfg config.DispatchConfig,
	logger *zap.Logger,
) DispatchServiceInterface {
	if cfg.BroadcastWorkers <= 0 {
		cfg.BroadcastWorkers = 1
	}
	return &DispatchService{
		telegram:      tg,
		userRepo:      userRepo,
		taskRepo:      taskRepo,
		notifications: notifications,
		cfg:           cfg,
		logger:        logger,
	}
}

// channelFor picks telegram first and whatsapp second.
func (s *DispatchService) channelFor(technician *entities.User) string {
	if technician.TelegramChatID != nil && s.telegram != nil && s.telegram.Enabled() {
		return ChannelTelegram
	}
	if technician.WhatsAppNumber != nil && strings.TrimSpace(*technician.WhatsAppNumber) != "" {
		return ChannelWhatsApp
	}
	return ""
}

// PlanAssignment reports how the assignment will reach the technician
// without sending anything. Telegram delivery happens later through the outbox.
func (s *DispatchService) PlanAssignment(technician *entities.User, task *entities.Task) dto.DispatchResultDTO {
	result := dto.DispatchResultDTO{TechnicianID: technician.ID}
	switch s.channelFor(technician) {
	case ChannelTelegram:
		result.Channel = ChannelTelegram
		result.Status = dto.DispatchStatusQueued
	case ChannelWhatsApp:
		result.Channel = ChannelWhatsApp
		link, err := whatsapp.ChatLink(*technician.WhatsAppNumber, assignmentText(task))
		if err != nil {
			result.Status = dto.DispatchStatusNoChannel
			result.Error = err.Error()
			return result
		}
		result.Status = dto.DispatchStatusLink
		result.Link = link
	default:
		result.Status = dto.DispatchStatusNoChannel
		result.Error = apperrors.ErrNoChannelConfigured.Error()
	}
	return result
}

// DispatchAssignment sends the assignment over telegram, or returns a
// whatsapp link for the admin client. It fails with ErrNoChannelConfigured
// when the technician cannot be reached.
func (s *DispatchService) DispatchAssignment(ctx context.Context, technician *entities.User, task *entities.Task) (*dto.DispatchResultDTO, error) {
	result := s.PlanAssignment(technician, task)
	switch result.Status {
	case dto.DispatchStatusNoChannel:
		return &result, apperrors.ErrNoChannelConfigured
	case dto.DispatchStatusLink:
		return &result, nil
	}

	text, opts := assignmentTelegramMessage(task)
	if err := s.sendTelegram(ctx, *technician.TelegramChatID, text, opts...); err != nil {
		result.Status = dto.DispatchStatusFailed
		result.Error = err.Error()
		return &result, err
	}
	result.Status = dto.DispatchStatusSent
	s.logger.Info("assignment dispatched",
		zap.String("task_id", task.ID.String()),
		zap.String("technician_id", technician.ID.String()),
		zap.String("channel", result.Channel),
	)
	return &result, nil
}

func (s *DispatchService) Redispatch(ctx context.Context, taskID uuid.UUID) (*dto.DispatchResultDTO, error) {
	task, err := s.taskRepo.FindByID(ctx, nil, taskID)
	if err != nil {
		return nil, err
	}
	technician, err := s.userRepo.FindByID(ctx, task.AssignedTo)
	if err != nil {
		return nil, err
	}
	return s.DispatchAssignment(ctx, technician, task)
}

// Broadcast sends message to every listed technician with a bounded number
// of concurrent sends. Unknown ids, missing channels and send errors are
// reported per recipient and counted as failed.
func (s *DispatchService) Broadcast(ctx context.Context, payload dto.BroadcastDTO) (*dto.BroadcastResultDTO, error) {
	ids := make([]uuid.UUID, 0, len(payload.TechnicianIDs))
	seen := make(map[uuid.UUID]bool, len(payload.TechnicianIDs))
	for _, raw := range payload.TechnicianIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("technician_ids", "%q is not a valid id", raw)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	message := strings.TrimSpace(payload.Message)
	results := make([]dto.DispatchResultDTO, len(ids))
	sem := make(chan struct{}, s.cfg.BroadcastWorkers)
	var wg sync.WaitGroup

	for i, id := range ids {
		user, ok := users[id]
		if !ok || user.Role != entities.RoleTechnician {
			results[i] = dto.DispatchResultDTO{TechnicianID: id, Status: dto.DispatchStatusFailed, Error: "technician not found"}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, technician *entities.User) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.broadcastTo(ctx, technician, message)
		}(i, user)
	}
	wg.Wait()

	out := &dto.BroadcastResultDTO{Results: results}
	for _, r := range results {
		if r.Status == dto.DispatchStatusSent || r.Status == dto.DispatchStatusLink {
			out.Sent++
		} else {
			out.Failed++
		}
	}
	s.logger.Info("broadcast finished", zap.Int("sent", out.Sent), zap.Int("failed", out.Failed))
	return out, nil
}

func (s *DispatchService) broadcastTo(ctx context.Context, technician *entities.User, message string) dto.DispatchResultDTO {
	if s.notifications != nil {
		if _, err := s.notifications.Notify(ctx, technician.ID, message, nil); err != nil {
			s.logger.Warn("broadcast notification not stored", zap.String("technician_id", technician.ID.String()), zap.Error(err))
		}
	}

	result := dto.DispatchResultDTO{TechnicianID: technician.ID}
	switch s.channelFor(technician) {
	case ChannelTelegram:
		result.Channel = ChannelTelegram
		if err := s.sendTelegram(ctx, *technician.TelegramChatID, message); err != nil {
			result.Status = dto.DispatchStatusFailed
			result.Error = err.Error()
			return result
		}
		result.Status = dto.DispatchStatusSent
	case ChannelWhatsApp:
		result.Channel = ChannelWhatsApp
		link, err := whatsapp.ChatLink(*technician.WhatsAppNumber, message)
		if err != nil {
			result.Status = dto.DispatchStatusFailed
			result.Error = err.Error()
			return result
		}
		result.Status = dto.DispatchStatusLink
		result.Link = link
	default:
		result.Status = dto.DispatchStatusFailed
		result.Error = apperrors.ErrNoChannelConfigured.Error()
	}
	return result
}

func (s *DispatchService) sendTelegram(ctx context.Context, chatID int64, text string, opts ...telegram.MessageOption) error {
	attempt := 0
	err := Retry(ctx, s.cfg.RetryMaxElapsed, func() error {
		attempt++
		err := s.telegram.SendMessageEx(ctx, chatID, text, opts...)
		if err != nil {
			s.logger.Debug("telegram send failed", zap.Int64("chat_id", chatID), zap.Int("attempt", attempt), zap.Error(err))
		}
		return permanentUnlessTemporary(err)
	})
	if err != nil {
		return fmt.Errorf("telegram delivery: %w", err)
	}
	return nil
}

func assignmentText(task *entities.Task) string {
	return fmt.Sprintf("New task assigned\nCustomer: %s\nPhone: %s\nAddress: %s\nIssue: %s\nCreated: %s",
		task.CustomerName,
		task.CustomerPhone,
		task.CustomerAddress,
		task.IssueDescription,
		task.CreatedAt.Format("2006-01-02 15:04"),
	)
}

func assignmentTelegramMessage(task *entities.Task) (string, []telegram.MessageOption) {
	esc := telegram.EscapeTextForMarkdownV2
	var b strings.Builder
	b.WriteString("*New task assigned*\n")
	fmt.Fprintf(&b, "Customer: %s\n", esc(task.CustomerName))
	fmt.Fprintf(&b, "Phone: %s\n", esc(task.CustomerPhone))
	fmt.Fprintf(&b, "Address: %s\n", esc(task.CustomerAddress))
	fmt.Fprintf(&b, "Issue: %s\n", esc(task.IssueDescription))
	fmt.Fprintf(&b, "Created: %s", esc(task.CreatedAt.Format("2006-01-02 15:04")))

	keyboard := [][]telegram.InlineKeyboardButton{{
		{Text: "Open in maps", URL: mapsSearchURL + url.QueryEscape(task.CustomerAddress)},
	}}
	return b.String(), []telegram.MessageOption{telegram.WithMarkdownV2(), telegram.WithKeyboard(keyboard)}
}
