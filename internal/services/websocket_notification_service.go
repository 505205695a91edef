package services

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"field-dispatch/pkg/websocket"
)

type WebSocketNotificationServiceInterface interface {
	SendNotification(userID uuid.UUID, payload interface{}, messageType string) error
}

type WebSocketNotificationService struct {
	hub    *websocket.Hub
	logger *zap.Logger
}

func NewWebSocketNotificationService(hub *websocket.Hub, logger *zap.Logger) WebSocketNotificationServiceInterface {
	return &WebSocketNotificationService{
		hub:    hub,
		logger: logger,
	}
}

func (s *WebSocketNotificationService) SendNotification(userID uuid.UUID, payload interface{}, messageType string) error {
	delivered, err := s.hub.SendMessageToUser(userID, payload, messageType)
	if err != nil {
		return err
	}
	s.logger.Debug("websocket notification pushed",
		zap.String("user_id", userID.String()),
		zap.String("type", messageType),
		zap.Int("connections", delivered),
	)
	return nil
}
