package services

import (
	"context"

	"go.uber.org/zap"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/entities"
	"field-dispatch/internal/repositories"
	"field-dispatch/pkg/utils"
)

type StatsServiceInterface interface {
	GetStats(ctx context.Context, actor utils.Actor) (*dto.StatsDTO, error)
}

type StatsService struct {
	statsRepo repositories.StatsRepositoryInterface
	userRepo  repositories.UserRepositoryInterface
	logger    *zap.Logger
}

func NewStatsService(
	statsRepo repositories.StatsRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	logger *zap.Logger,
) StatsServiceInterface {
	return &StatsService{statsRepo: statsRepo, userRepo: userRepo, logger: logger}
}

// GetStats is computed on every call. Technicians only see their own tasks.
func (s *StatsService) GetStats(ctx context.Context, actor utils.Actor) (*dto.StatsDTO, error) {
	if !actor.IsAdmin() {
		return s.statsRepo.TaskCounts(ctx, &actor.UserID)
	}

	stats, err := s.statsRepo.TaskCounts(ctx, nil)
	if err != nil {
		return nil, err
	}
	technicians, err := s.userRepo.CountByRole(ctx, entities.RoleTechnician)
	if err != nil {
		return nil, err
	}
	stats.TotalTechnicians = &technicians
	return stats, nil
}
