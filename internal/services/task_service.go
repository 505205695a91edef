package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/entities"
	"field-dispatch/internal/events"
	"field-dispatch/internal/repositories"
	apperrors "field-dispatch/pkg/errors"
	"field-dispatch/pkg/eventbus"
	"field-dispatch/pkg/types"
	"field-dispatch/pkg/utils"
)

type TaskServiceInterface interface {
	CreateTask(ctx context.Context, actor utils.Actor, payload dto.CreateTaskDTO) (*dto.CreateTaskResultDTO, error)
	ListTasks(ctx context.Context, actor utils.Actor, filter types.Filter) ([]dto.TaskDTO, uint64, error)
	GetTask(ctx context.Context, actor utils.Actor, id uuid.UUID) (*dto.TaskDTO, error)
	AcceptTask(ctx context.Context, actor utils.Actor, id uuid.UUID) (*dto.TaskDTO, error)
	StartTask(ctx context.Context, actor utils.Actor, id uuid.UUID) (*dto.TaskDTO, error)
	CompleteTask(ctx context.Context, actor utils.Actor, id uuid.UUID, payload dto.CompleteTaskDTO) (*dto.TaskDTO, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
}

type TaskService struct {
	*BaseService
	txManager  repositories.TxManagerInterface
	taskRepo   repositories.TaskRepositoryInterface
	userRepo   repositories.UserRepositoryInterface
	outboxRepo repositories.OutboxRepositoryInterface
	dispatch   DispatchServiceInterface
	bus        *eventbus.Bus
	logger     *zap.Logger
	now        func() time.Time
}

func NewTaskService(
	txManager repositories.TxManagerInterface,
	taskRepo repositories.TaskRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	outboxRepo repositories.OutboxRepositoryInterface,
	dispatch DispatchServiceInterface,
	cache repositories.CacheRepositoryInterface,
	bus *eventbus.Bus,
	logger *zap.Logger,
) TaskServiceInterface {
	return &TaskService{
		BaseService: NewBaseService(cache, logger),
		txManager:   txManager,
		taskRepo:    taskRepo,
		userRepo:    userRepo,
		outboxRepo:  outboxRepo,
		dispatch:    dispatch,
		bus:         bus,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *TaskService) CreateTask(ctx context.Context, actor utils.Actor, payload dto.CreateTaskDTO) (*dto.CreateTaskResultDTO, error) {
	task, err := newTaskFromDTO(payload)
	if err != nil {
		return nil, err
	}

	technician, err := s.userRepo.FindByID(ctx, task.AssignedTo)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewValidationError("assigned_to", "technician does not exist")
		}
		return nil, err
	}
	if technician.Role != entities.RoleTechnician {
		return nil, apperrors.NewValidationError("assigned_to", "user is not a technician")
	}
	task.CreatedBy = actor.UserID

	var created, assigned events.TaskEvent
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.taskRepo.Create(ctx, tx, task); err != nil {
			return err
		}
		task.AssignedToName = technician.Name
		created = events.TaskEvent{OutboxID: uuid.New(), Type: events.TaskCreated, Task: *task, ActorID: actor.UserID}
		assigned = events.TaskEvent{OutboxID: uuid.New(), Type: events.TaskAssigned, Task: *task, ActorID: actor.UserID}
		if err := s.recordEvent(ctx, tx, created); err != nil {
			return err
		}
		return s.recordEvent(ctx, tx, assigned)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task created",
		zap.String("task_id", task.ID.String()),
		zap.String("assigned_to", task.AssignedTo.String()),
	)
	s.bus.Publish(ctx, created)
	s.bus.Publish(ctx, assigned)

	return &dto.CreateTaskResultDTO{
		Task:     taskToDTO(task),
		Dispatch: s.dispatch.PlanAssignment(technician, task),
	}, nil
}

func newTaskFromDTO(payload dto.CreateTaskDTO) (*entities.Task, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"customer_name", payload.CustomerName},
		{"customer_phone", payload.CustomerPhone},
		{"customer_address", payload.CustomerAddress},
		{"issue_description", payload.IssueDescription},
		{"assigned_to", payload.AssignedTo},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return nil, apperrors.NewValidationError(f.name, "is required")
		}
	}

	assignedTo, err := uuid.Parse(strings.TrimSpace(payload.AssignedTo))
	if err != nil {
		return nil, apperrors.NewValidationError("assigned_to", "must be a valid id")
	}

	return &entities.Task{
		ID:               uuid.New(),
		CustomerName:     strings.TrimSpace(payload.CustomerName),
		CustomerPhone:    strings.TrimSpace(payload.CustomerPhone),
		CustomerAddress:  strings.TrimSpace(payload.CustomerAddress),
		IssueDescription: strings.TrimSpace(payload.IssueDescription),
		AssignedTo:       assignedTo,
		Status:           entities.TaskStatusPending,
		ReportImages:     []string{},
	}, nil
}

// ListTasks shows admins every task and technicians only their own.
func (s *TaskService) ListTasks(ctx context.Context, actor utils.Actor, filter types.Filter) ([]dto.TaskDTO, uint64, error) {
	if raw, ok := filter.Filter["status"]; ok {
		for _, st := range strings.Split(fmt.Sprint(raw), ",") {
			if _, err := entities.ParseTaskStatus(st); err != nil {
				return nil, 0, apperrors.NewValidationError("status", "%s", err.Error())
			}
		}
	}
	if raw, ok := filter.Filter["assigned_to"]; ok {
		if _, err := uuid.Parse(fmt.Sprint(raw)); err != nil {
			return nil, 0, apperrors.NewValidationError("assigned_to", "must be a valid id")
		}
	}

	var scope *uuid.UUID
	if !actor.IsAdmin() {
		scope = &actor.UserID
	}

	tasks, total, err := s.taskRepo.List(ctx, filter, scope)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.TaskDTO, 0, len(tasks))
	for i := range tasks {
		out = append(out, taskToDTO(&tasks[i]))
	}
	return out, total, nil
}

func (s *TaskService) GetTask(ctx context.Context, actor utils.Actor, id uuid.UUID) (*dto.TaskDTO, error) {
	task, err := s.taskRepo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && task.AssignedTo != actor.UserID {
		return nil, apperrors.ErrForbidden
	}
	out := taskToDTO(task)
	return &out, nil
}

func (s *TaskService) AcceptTask(ctx context.Context, actor utils.Actor, id uuid.UUID) (*dto.TaskDTO, error) {
	return s.transition(ctx, actor, id, entities.TaskStatusAccepted, func(*entities.Task, time.Time) (repositories.TaskTransition, error) {
		return repositories.TaskTransition{}, nil
	})
}

func (s *TaskService) StartTask(ctx context.Context, actor utils.Actor, id uuid.UUID) (*dto.TaskDTO, error) {
	return s.transition(ctx, actor, id, entities.TaskStatusInProgress, func(task *entities.Task, _ time.Time) (repositories.TaskTransition, error) {
		active, err := s.taskRepo.FindActiveByTechnician(ctx, nil, task.AssignedTo)
		switch {
		case err == nil && active.ID != task.ID:
			return repositories.TaskTransition{}, apperrors.ErrActiveTaskExists
		case err != nil && !errors.Is(err, apperrors.ErrNotFound):
			return repositories.TaskTransition{}, err
		}
		return repositories.TaskTransition{}, nil
	})
}

func (s *TaskService) CompleteTask(ctx context.Context, actor utils.Actor, id uuid.UUID, payload dto.CompleteTaskDTO) (*dto.TaskDTO, error) {
	report := strings.TrimSpace(payload.Report)
	if report == "" {
		return nil, apperrors.NewValidationError("report_text", "is required")
	}
	if payload.Success == nil {
		return nil, apperrors.NewValidationError("success", "is required")
	}
	success := *payload.Success

	return s.transition(ctx, actor, id, entities.TaskStatusCompleted, func(task *entities.Task, at time.Time) (repositories.TaskTransition, error) {
		duration := task.CompletionDuration(at)
		return repositories.TaskTransition{
			Report:          &report,
			ReportImages:    payload.ReportImages,
			Success:         &success,
			DurationMinutes: &duration,
		}, nil
	})
}

// transition is the single path every status change goes through. The
// status check is repeated inside the UPDATE, so of two racing callers
// only one wins and the other gets ErrInvalidTransition.
func (s *TaskService) transition(
	ctx context.Context,
	actor utils.Actor,
	id uuid.UUID,
	to entities.TaskStatus,
	prepare func(task *entities.Task, at time.Time) (repositories.TaskTransition, error),
) (*dto.TaskDTO, error) {
	task, err := s.taskRepo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if task.AssignedTo != actor.UserID {
		return nil, apperrors.ErrForbidden
	}
	if !task.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: task is %s, cannot move to %s", apperrors.ErrInvalidTransition, task.Status, to)
	}

	at := s.now()
	change, err := prepare(task, at)
	if err != nil {
		return nil, err
	}
	change.To = to
	change.At = at

	var (
		updated *entities.Task
		event   events.TaskEvent
	)
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		updated, err = s.taskRepo.Transition(ctx, tx, id, task.Status, change)
		if err != nil {
			return err
		}
		event = events.TaskEvent{OutboxID: uuid.New(), Type: events.TypeFromTransition(to), Task: *updated, ActorID: actor.UserID}
		return s.recordEvent(ctx, tx, event)
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrInvalidTransition) && !errors.Is(err, apperrors.ErrConflict) {
			s.logger.Error("task transition failed", zap.String("task_id", id.String()), zap.String("to", string(to)), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("task status changed",
		zap.String("task_id", id.String()),
		zap.String("from", string(task.Status)),
		zap.String("to", string(to)),
	)
	s.bus.Publish(ctx, event)

	out := taskToDTO(updated)
	return &out, nil
}

// DeleteTask removes the task together with its samples and rating. The
// technician's cached latest location may point at one of those samples, so
// it is dropped as well.
func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	task, err := s.taskRepo.FindByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if err := s.taskRepo.Delete(ctx, nil, id); err != nil {
		return err
	}
	s.CacheDel(ctx, latestLocationKey(task.AssignedTo))
	s.logger.Info("task deleted", zap.String("task_id", id.String()))
	return nil
}

func (s *TaskService) recordEvent(ctx context.Context, tx pgx.Tx, event events.TaskEvent) error {
	payload, err := event.Payload()
	if err != nil {
		return err
	}
	return s.outboxRepo.Insert(ctx, tx, &entities.OutboxMessage{
		ID:        event.OutboxID,
		EventType: event.Name(),
		Payload:   payload,
	})
}
