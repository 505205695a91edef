package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/services"
	apperrors "field-dispatch/pkg/errors"
	"field-dispatch/pkg/utils"
)

type TaskController struct {
	taskService     services.TaskServiceInterface
	dispatchService services.DispatchServiceInterface
	ratingService   services.RatingServiceInterface
	logger          *zap.Logger
}

func NewTaskController(
	taskService services.TaskServiceInterface,
	dispatchService services.DispatchServiceInterface,
	ratingService services.RatingServiceInterface,
	logger *zap.Logger,
) *TaskController {
	return &TaskController{
		taskService:     taskService,
		dispatchService: dispatchService,
		ratingService:   ratingService,
		logger:          logger,
	}
}

func (c *TaskController) CreateTask(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.CreateTaskDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError("invalid task payload"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.taskService.CreateTask(reqCtx, actor, payload)
	if err != nil {
		c.logger.Warn("CreateTask failed", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Task created", http.StatusCreated)
}

// GetTasks lists tasks visible to the caller. The typed status and
// assigned_to parameters are folded into the generic filter.
func (c *TaskController) GetTasks(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var query dto.TaskListQueryDTO
	if err := ctx.Bind(&query); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError("invalid query parameters"), c.logger)
	}
	if err := ctx.Validate(&query); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())
	filter.Where("status", query.Status)
	filter.Where("assigned_to", query.AssignedTo)

	tasks, total, err := c.taskService.ListTasks(reqCtx, actor, filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, tasks, "Tasks loaded", http.StatusOK, total)
}

func (c *TaskController) FindTask(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	task, err := c.taskService.GetTask(reqCtx, actor, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, task, "Task loaded", http.StatusOK)
}

func (c *TaskController) AcceptTask(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	task, err := c.taskService.AcceptTask(reqCtx, actor, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, task, "Task accepted", http.StatusOK)
}

func (c *TaskController) StartTask(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	task, err := c.taskService.StartTask(reqCtx, actor, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, task, "Work started", http.StatusOK)
}

func (c *TaskController) CompleteTask(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.CompleteTaskDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError("invalid completion payload"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	task, err := c.taskService.CompleteTask(reqCtx, actor, id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, task, "Task completed", http.StatusOK)
}

func (c *TaskController) DeleteTask(ctx echo.Context) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.taskService.DeleteTask(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Task deleted", http.StatusOK)
}

// DispatchTask re-sends the assignment to the technician's configured channel.
// A delivery failure is reported in the body with status "failed".
func (c *TaskController) DispatchTask(ctx echo.Context) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.dispatchService.Redispatch(ctx.Request().Context(), id)
	if res == nil || errors.Is(err, apperrors.ErrNoChannelConfigured) {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err != nil {
		c.logger.Warn("DispatchTask: delivery failed", zap.String("task_id", id.String()), zap.Error(err))
	}
	return utils.SuccessResponse(ctx, res, "Dispatch attempted", http.StatusOK)
}

func (c *TaskController) RateTask(ctx echo.Context) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.RateTaskDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError("invalid rating payload"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	rating, err := c.ratingService.RateTask(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, rating, "Rating saved", http.StatusCreated)
}
