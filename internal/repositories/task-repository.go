package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"field-dispatch/internal/entities"
	db "field-dispatch/internal/infrastructure/bd"
	apperrors "field-dispatch/pkg/errors"
	"field-dispatch/pkg/types"
)

const activeTaskConstraint = "tasks_one_active_per_technician"

var taskColumns = []string{
	"t.id", "t.customer_name", "t.customer_phone", "t.customer_address", "t.issue_description",
	"t.assigned_to", "COALESCE(u.name, '')", "t.created_by", "t.status",
	"t.report", "t.report_images", "t.success", "t.duration_minutes",
	"t.created_at", "t.accepted_at", "t.started_at", "t.completed_at",
}

var taskListMap = map[string]string{
	"status":       "t.status",
	"assigned_to":  "t.assigned_to",
	"created_by":   "t.created_by",
	"created_at":   "t.created_at",
	"completed_at": "t.completed_at",
	"customer":     "t.customer_name",
}

// TaskTransition describes the columns written when a task moves to To.
type TaskTransition struct {
	To              entities.TaskStatus
	At              time.Time
	Report          *string
	ReportImages    []string
	Success         *bool
	DurationMinutes *int
}

type TaskRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, task *entities.Task) error
	FindByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*entities.Task, error)
	List(ctx context.Context, filter types.Filter, assignedTo *uuid.UUID) ([]entities.Task, uint64, error)
	FindActiveByTechnician(ctx context.Context, tx pgx.Tx, technicianID uuid.UUID) (*entities.Task, error)
	Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, from entities.TaskStatus, change TaskTransition) (*entities.Task, error)
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

type TaskRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewTaskRepository(storage *pgxpool.Pool, logger *zap.Logger) TaskRepositoryInterface {
	return &TaskRepository{storage: storage, logger: logger}
}

func scanTask(row pgx.Row) (*entities.Task, error) {
	var t entities.Task
	var status string
	err := row.Scan(
		&t.ID, &t.CustomerName, &t.CustomerPhone, &t.CustomerAddress, &t.IssueDescription,
		&t.AssignedTo, &t.AssignedToName, &t.CreatedBy, &status,
		&t.Report, &t.ReportImages, &t.Success, &t.DurationMinutes,
		&t.CreatedAt, &t.AcceptedAt, &t.StartedAt, &t.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	t.Status = entities.TaskStatus(status)
	if t.ReportImages == nil {
		t.ReportImages = []string{}
	}
	return &t, nil
}

func selectTasks() sq.SelectBuilder {
	return psql.Select(taskColumns...).
		From("tasks t").
		LeftJoin("users u ON u.id = t.assigned_to")
}

func (r *TaskRepository) Create(ctx context.Context, tx pgx.Tx, task *entities.Task) error {
	if task.ReportImages == nil {
		task.ReportImages = []string{}
	}
	query, args, err := psql.Insert("tasks").
		Columns("id", "customer_name", "customer_phone", "customer_address", "issue_description",
			"assigned_to", "created_by", "status", "report_images").
		Values(task.ID, task.CustomerName, task.CustomerPhone, task.CustomerAddress, task.IssueDescription,
			task.AssignedTo, task.CreatedBy, string(task.Status), task.ReportImages).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return err
	}

	if err := pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&task.CreatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NewValidationError("assigned_to", "technician does not exist")
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*entities.Task, error) {
	query, args, err := selectTasks().Where(sq.Eq{"t.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanTask(pick(r.storage, tx).QueryRow(ctx, query, args...))
}

func (r *TaskRepository) FindActiveByTechnician(ctx context.Context, tx pgx.Tx, technicianID uuid.UUID) (*entities.Task, error) {
	query, args, err := selectTasks().
		Where(sq.Eq{"t.assigned_to": technicianID, "t.status": string(entities.TaskStatusInProgress)}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanTask(pick(r.storage, tx).QueryRow(ctx, query, args...))
}

// List returns one page of tasks plus the total matching count.
// A non-nil assignedTo restricts the result to that technician.
func (r *TaskRepository) List(ctx context.Context, filter types.Filter, assignedTo *uuid.UUID) ([]entities.Task, uint64, error) {
	applyScope := func(b sq.SelectBuilder) sq.SelectBuilder {
		if assignedTo != nil {
			b = b.Where(sq.Eq{"t.assigned_to": *assignedTo})
		}
		if filter.Search != "" {
			pat := db.ContainsPattern(filter.Search)
			b = b.Where(sq.Or{
				sq.ILike{"t.customer_name": pat},
				sq.ILike{"t.customer_address": pat},
				sq.ILike{"t.issue_description": pat},
			})
		}
		return b
	}

	countFilter := filter
	countFilter.WithPagination = false
	countFilter.Sort = nil
	countBuilder := db.ApplyListParams(applyScope(psql.Select("COUNT(t.id)").From("tasks t")), countFilter, taskListMap)

	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	if total == 0 {
		return []entities.Task{}, 0, nil
	}

	builder := db.ApplyListParams(applyScope(selectTasks()), filter, taskListMap)
	if !db.HasSort(filter, taskListMap) {
		builder = builder.OrderBy("t.created_at DESC", "t.id")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]entities.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, total, rows.Err()
}

// Transition moves the task from one status to change.To only if it is still
// in from. A task that is no longer in from yields ErrInvalidTransition.
func (r *TaskRepository) Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, from entities.TaskStatus, change TaskTransition) (*entities.Task, error) {
	builder := psql.Update("tasks").
		Set("status", string(change.To)).
		Where(sq.Eq{"id": id, "status": string(from)})

	switch change.To {
	case entities.TaskStatusAccepted:
		builder = builder.Set("accepted_at", change.At)
	case entities.TaskStatusInProgress:
		builder = builder.Set("started_at", change.At)
	case entities.TaskStatusCompleted:
		images := change.ReportImages
		if images == nil {
			images = []string{}
		}
		builder = builder.
			Set("completed_at", change.At).
			Set("report", change.Report).
			Set("report_images", images).
			Set("success", change.Success).
			Set("duration_minutes", change.DurationMinutes)
	default:
		return nil, fmt.Errorf("%w: cannot move a task to %q", apperrors.ErrInvalidTransition, change.To)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	q := pick(r.storage, tx)
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolationOf(err, activeTaskConstraint) {
			return nil, apperrors.ErrActiveTaskExists
		}
		return nil, fmt.Errorf("update task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ErrInvalidTransition
	}
	return r.FindByID(ctx, tx, id)
}

func (r *TaskRepository) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query, args, err := psql.Delete("tasks").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := pick(r.storage, tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
