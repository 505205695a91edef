package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/entities"
)

type StatsRepositoryInterface interface {
	TaskCounts(ctx context.Context, assignedTo *uuid.UUID) (*dto.StatsDTO, error)
}

type StatsRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewStatsRepository(storage *pgxpool.Pool, logger *zap.Logger) StatsRepositoryInterface {
	return &StatsRepository{storage: storage, logger: logger}
}

func countStatus(status entities.TaskStatus) string {
	return fmt.Sprintf("COUNT(*) FILTER (WHERE status = '%s')", status)
}

// TaskCounts aggregates over all tasks, or over the tasks of one technician
// when assignedTo is set.
func (r *StatsRepository) TaskCounts(ctx context.Context, assignedTo *uuid.UUID) (*dto.StatsDTO, error) {
	builder := psql.Select(
		"COUNT(*)",
		countStatus(entities.TaskStatusPending),
		countStatus(entities.TaskStatusAccepted),
		countStatus(entities.TaskStatusInProgress),
		countStatus(entities.TaskStatusCompleted),
		"COUNT(*) FILTER (WHERE status = 'completed' AND success IS TRUE)",
		"COUNT(*) FILTER (WHERE status = 'completed' AND success IS FALSE)",
	).From("tasks")
	if assignedTo != nil {
		builder = builder.Where(sq.Eq{"assigned_to": *assignedTo})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	stats := &dto.StatsDTO{}
	err = r.storage.QueryRow(ctx, query, args...).Scan(
		&stats.Total, &stats.Pending, &stats.Accepted, &stats.InProgress, &stats.Completed,
		&stats.Successful, &stats.Unsuccessful,
	)
	if err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}
	return stats, nil
}
