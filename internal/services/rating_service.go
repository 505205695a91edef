package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/entities"
	"field-dispatch/internal/repositories"
	apperrors "field-dispatch/pkg/errors"
)

type RatingServiceInterface interface {
	RateTask(ctx context.Context, taskID uuid.UUID, payload dto.RateTaskDTO) (*dto.RatingDTO, error)
	RatingsFor(ctx context.Context, technicianID uuid.UUID) (*dto.TechnicianRatingsDTO, error)
}

type RatingService struct {
	ratingRepo repositories.RatingRepositoryInterface
	taskRepo   repositories.TaskRepositoryInterface
	userRepo   repositories.UserRepositoryInterface
	logger     *zap.Logger
}

func NewRatingService(
	ratingRepo repositories.RatingRepositoryInterface,
	taskRepo repositories.TaskRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	logger *zap.Logger,
) RatingServiceInterface {
	return &RatingService{ratingRepo: ratingRepo, taskRepo: taskRepo, userRepo: userRepo, logger: logger}
}

// RateTask stores the one and only rating of a completed task.
func (s *RatingService) RateTask(ctx context.Context, taskID uuid.UUID, payload dto.RateTaskDTO) (*dto.RatingDTO, error) {
	if payload.Rating < 1 || payload.Rating > 5 {
		return nil, apperrors.NewValidationError("rating", "must be an integer between 1 and 5")
	}

	task, err := s.taskRepo.FindByID(ctx, nil, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != entities.TaskStatusCompleted {
		return nil, fmt.Errorf("%w: only completed tasks can be rated, task is %s", apperrors.ErrInvalidState, task.Status)
	}

	rating := &entities.Rating{
		ID:           uuid.New(),
		TaskID:       task.ID,
		TechnicianID: task.AssignedTo,
		Rating:       payload.Rating,
	}
	if payload.Comment.Valid {
		if c := strings.TrimSpace(payload.Comment.String); c != "" {
			rating.Comment = &c
		}
	}

	if err := s.ratingRepo.Create(ctx, rating); err != nil {
		return nil, err
	}
	s.logger.Info("task rated", zap.String("task_id", taskID.String()), zap.Int("rating", rating.Rating))

	out := ratingToDTO(rating)
	return &out, nil
}

func (s *RatingService) RatingsFor(ctx context.Context, technicianID uuid.UUID) (*dto.TechnicianRatingsDTO, error) {
	technician, err := s.userRepo.FindByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if technician.Role != entities.RoleTechnician {
		return nil, apperrors.ErrNotFound
	}

	ratings, err := s.ratingRepo.ListByTechnician(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	out := &dto.TechnicianRatingsDTO{Ratings: make([]dto.RatingDTO, 0, len(ratings)), Count: len(ratings)}
	sum := 0
	for i := range ratings {
		out.Ratings = append(out.Ratings, ratingToDTO(&ratings[i]))
		sum += ratings[i].Rating
	}
	if len(ratings) > 0 {
		out.Average = math.Round(float64(sum)/float64(len(ratings))*100) / 100
	}
	return out, nil
}
