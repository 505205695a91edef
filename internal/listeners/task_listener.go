package listeners

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"field-dispatch/internal/entities"
	"field-dispatch/internal/events"
	"field-dispatch/internal/repositories"
	"field-dispatch/internal/services"
	"field-dispatch/pkg/config"
	apperrors "field-dispatch/pkg/errors"
	"field-dispatch/pkg/eventbus"
)

const settleTimeout = 10 * time.Second

// TaskListener turns committed task changes into in-app notifications and
// the out-of-band assignment message, then settles the outbox row. Each
// outbox row carries one side effect, so a failed telegram send never
// repeats the in-app notification.
type TaskListener struct {
	notifications services.NotificationServiceInterface
	dispatch      services.DispatchServiceInterface
	userRepo      repositories.UserRepositoryInterface
	outboxRepo    repositories.OutboxRepositoryInterface
	cfg           config.DispatchConfig
	logger        *zap.Logger
}

func NewTaskListener(
	notifications services.NotificationServiceInterface,
	dispatch services.DispatchServiceInterface,
	userRepo repositories.UserRepositoryInterface,
	outboxRepo repositories.OutboxRepositoryInterface,
	cfg config.DispatchConfig,
	logger *zap.Logger,
) *TaskListener {
	return &TaskListener{
		notifications: notifications,
		dispatch:      dispatch,
		userRepo:      userRepo,
		outboxRepo:    outboxRepo,
		cfg:           cfg,
		logger:        logger,
	}
}

func (l *TaskListener) Register(bus *eventbus.Bus) {
	for _, name := range events.TaskEventNames() {
		bus.Subscribe(name, l.Handle)
	}
	l.logger.Info("task listener subscribed", zap.Strings("events", events.TaskEventNames()))
}

// Handle delivers the side effects of one event. The returned error has
// already been recorded on the outbox row.
func (l *TaskListener) Handle(ctx context.Context, event eventbus.Event) error {
	te, ok := event.(events.TaskEvent)
	if !ok {
		return fmt.Errorf("task listener got unexpected event %T", event)
	}

	err := l.deliver(ctx, te)

	// Settle even when retries used up the bus deadline.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if err != nil {
		l.logger.Error("task event delivery failed",
			zap.String("event", te.Name()),
			zap.String("task_id", te.Task.ID.String()),
			zap.String("outbox_id", te.OutboxID.String()),
			zap.Error(err),
		)
		if markErr := l.outboxRepo.MarkFailed(settleCtx, te.OutboxID, err.Error()); markErr != nil {
			l.logger.Error("cannot record outbox failure", zap.String("outbox_id", te.OutboxID.String()), zap.Error(markErr))
		}
		return err
	}

	if err := l.outboxRepo.MarkProcessed(settleCtx, te.OutboxID); err != nil {
		l.logger.Error("cannot mark outbox message processed", zap.String("outbox_id", te.OutboxID.String()), zap.Error(err))
		return err
	}
	return nil
}

func (l *TaskListener) deliver(ctx context.Context, te events.TaskEvent) error {
	task := te.Task
	taskID := task.ID

	switch te.Type {
	case events.TaskCreated:
		message := fmt.Sprintf("New task assigned: %s, %s", task.CustomerName, task.CustomerAddress)
		return services.Retry(ctx, l.cfg.RetryMaxElapsed, func() error {
			_, err := l.notifications.Notify(ctx, task.AssignedTo, message, &taskID)
			return stopOnNotFound(err)
		})
	case events.TaskAssigned:
		return l.deliverAssignment(ctx, &task)
	}

	message := adminMessage(te.Type, &task)
	if message == "" {
		return nil
	}
	return services.Retry(ctx, l.cfg.RetryMaxElapsed, func() error {
		return stopOnNotFound(l.notifications.NotifyAdmins(ctx, message, &taskID))
	})
}

func stopOnNotFound(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return backoff.Permanent(err)
	}
	return err
}

// deliverAssignment sends the assignment over the technician's channel.
// Only errors worth another relay pass are returned: a missing channel, a
// removed technician and a rejection by the Bot API settle the row.
func (l *TaskListener) deliverAssignment(ctx context.Context, task *entities.Task) error {
	technician, err := l.userRepo.FindByID(ctx, task.AssignedTo)
	if errors.Is(err, apperrors.ErrNotFound) {
		l.logger.Warn("assigned technician no longer exists", zap.String("task_id", task.ID.String()))
		return nil
	}
	if err != nil {
		return err
	}

	result, err := l.dispatch.DispatchAssignment(ctx, technician, task)
	switch {
	case errors.Is(err, apperrors.ErrNoChannelConfigured):
		l.logger.Warn("technician has no dispatch channel", zap.String("technician_id", technician.ID.String()))
		return nil
	case services.IsPermanentSendError(err):
		l.logger.Warn("assignment rejected by telegram, giving up",
			zap.String("task_id", task.ID.String()),
			zap.String("technician_id", technician.ID.String()),
			zap.Error(err),
		)
		return nil
	case err != nil:
		return err
	}
	l.logger.Debug("assignment delivered", zap.String("task_id", task.ID.String()), zap.String("status", result.Status))
	return nil
}

func adminMessage(eventType string, task *entities.Task) string {
	who := task.AssignedToName
	if who == "" {
		who = "Technician"
	}
	switch eventType {
	case events.TaskAccepted:
		return fmt.Sprintf("%s accepted the task for %s", who, task.CustomerName)
	case events.TaskStarted:
		return fmt.Sprintf("%s started work for %s at %s", who, task.CustomerName, task.CustomerAddress)
	case events.TaskCompleted:
		outcome := "successfully"
		if task.Success != nil && !*task.Success {
			outcome = "unsuccessfully"
		}
		return fmt.Sprintf("%s completed the task for %s %s", who, task.CustomerName, outcome)
	}
	return ""
}
