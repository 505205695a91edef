package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/entities"
	"field-dispatch/internal/repositories"
	apperrors "field-dispatch/pkg/errors"
	"field-dispatch/pkg/utils"
	"field-dispatch/pkg/websocket"
)

const unreadCountTTL = 5 * time.Minute

type NotificationServiceInterface interface {
	Notify(ctx context.Context, recipientID uuid.UUID, message string, taskID *uuid.UUID) (*dto.NotificationDTO, error)
	NotifyAdmins(ctx context.Context, message string, taskID *uuid.UUID) error
	ListFor(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]dto.NotificationDTO, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (*dto.UnreadCountDTO, error)
	MarkRead(ctx context.Context, actor utils.Actor, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type NotificationService struct {
	*BaseService
	repo     repositories.NotificationRepositoryInterface
	userRepo repositories.UserRepositoryInterface
	push     WebSocketNotificationServiceInterface
	logger   *zap.Logger
}

func NewNotificationService(
	repo repositories.NotificationRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	push WebSocketNotificationServiceInterface,
	logger *zap.Logger,
) NotificationServiceInterface {
	return &NotificationService{
		BaseService: NewBaseService(cache, logger),
		repo:        repo,
		userRepo:    userRepo,
		push:        push,
		logger:      logger,
	}
}

func unreadCountKey(userID uuid.UUID) string {
	return fmt.Sprintf("notifications:unread:%s", userID)
}

// Notify stores an unread notification and pushes it to open websocket
// connections of the recipient. Only the insert can fail the call.
func (s *NotificationService) Notify(ctx context.Context, recipientID uuid.UUID, message string, taskID *uuid.UUID) (*dto.NotificationDTO, error) {
	n := &entities.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Message:     message,
		TaskID:      taskID,
	}
	if err := s.repo.Create(ctx, nil, n); err != nil {
		return nil, err
	}
	s.CacheDel(ctx, unreadCountKey(recipientID))

	out := notificationToDTO(n)
	if s.push != nil {
		if err := s.push.SendNotification(recipientID, out, websocket.TypeNotificationCreated); err != nil {
			s.logger.Warn("websocket push failed", zap.String("recipient_id", recipientID.String()), zap.Error(err))
		}
	}
	return &out, nil
}

func (s *NotificationService) NotifyAdmins(ctx context.Context, message string, taskID *uuid.UUID) error {
	admins, err := s.userRepo.ListByRole(ctx, entities.RoleAdmin)
	if err != nil {
		return err
	}
	var firstErr error
	for _, admin := range admins {
		if _, err := s.Notify(ctx, admin.ID, message, taskID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ListFor returns the newest notifications first. A limit of zero or less
// returns everything from offset on.
func (s *NotificationService) ListFor(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]dto.NotificationDTO, error) {
	list, err := s.repo.ListFor(ctx, recipientID, unreadOnly, max(limit, 0), max(offset, 0))
	if err != nil {
		return nil, err
	}
	out := make([]dto.NotificationDTO, 0, len(list))
	for i := range list {
		out = append(out, notificationToDTO(&list[i]))
	}
	return out, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uuid.UUID) (*dto.UnreadCountDTO, error) {
	key := unreadCountKey(recipientID)
	var cached dto.UnreadCountDTO
	if s.CacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	count, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	result := &dto.UnreadCountDTO{Count: count}
	s.CacheSet(ctx, key, result, unreadCountTTL)
	return result, nil
}

// MarkRead is idempotent. Only the recipient may mark a notification.
func (s *NotificationService) MarkRead(ctx context.Context, actor utils.Actor, id uuid.UUID) error {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if n.RecipientID != actor.UserID {
		return apperrors.ErrForbidden
	}
	if n.Read {
		return nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return err
	}
	s.CacheDel(ctx, unreadCountKey(actor.UserID))
	s.pushUnreadCount(ctx, actor.UserID)
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	s.CacheDel(ctx, unreadCountKey(recipientID))
	s.pushUnreadCount(ctx, recipientID)
	return updated, nil
}

// pushUnreadCount keeps other open sessions of the user in sync.
func (s *NotificationService) pushUnreadCount(ctx context.Context, userID uuid.UUID) {
	if s.push == nil {
		return
	}
	count, err := s.UnreadCount(ctx, userID)
	if err != nil {
		s.logger.Warn("unread count refresh failed", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	if err := s.push.SendNotification(userID, count, websocket.TypeUnreadCount); err != nil {
		s.logger.Warn("websocket push failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}
