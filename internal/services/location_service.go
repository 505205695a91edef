package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/entities"
	"field-dispatch/internal/repositories"
	apperrors "field-dispatch/pkg/errors"
	"field-dispatch/pkg/geo"
	"field-dispatch/pkg/utils"
)

const (
	MaxLocationLimit = 1000

	latestLocationTTL = 24 * time.Hour
)

type LocationServiceInterface interface {
	RecordLocation(ctx context.Context, actor utils.Actor, payload dto.RecordLocationDTO) (*dto.LocationSampleDTO, error)
	GetLocations(ctx context.Context, actor utils.Actor, taskID uuid.UUID, limit int) ([]dto.LocationSampleDTO, error)
	LatestForTechnician(ctx context.Context, technicianID uuid.UUID) (*dto.LatestLocationDTO, error)
	TrackSummary(ctx context.Context, actor utils.Actor, taskID uuid.UUID) (*dto.TrackSummaryDTO, error)
}

type LocationService struct {
	*BaseService
	locationRepo repositories.LocationRepositoryInterface
	taskRepo     repositories.TaskRepositoryInterface
	logger       *zap.Logger
}

func NewLocationService(
	locationRepo repositories.LocationRepositoryInterface,
	taskRepo repositories.TaskRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	logger *zap.Logger,
) LocationServiceInterface {
	return &LocationService{
		BaseService:  NewBaseService(cache, logger),
		locationRepo: locationRepo,
		taskRepo:     taskRepo,
		logger:       logger,
	}
}

func latestLocationKey(technicianID uuid.UUID) string {
	return fmt.Sprintf("location:latest:%s", technicianID)
}

func (s *LocationService) RecordLocation(ctx context.Context, actor utils.Actor, payload dto.RecordLocationDTO) (*dto.LocationSampleDTO, error) {
	taskID, err := uuid.Parse(payload.TaskID)
	if err != nil {
		return nil, apperrors.NewValidationError("task_id", "must be a valid id")
	}
	if payload.Latitude == nil || !geo.ValidLatitude(*payload.Latitude) {
		return nil, apperrors.NewValidationError("latitude", "must be between -90 and 90")
	}
	if payload.Longitude == nil || !geo.ValidLongitude(*payload.Longitude) {
		return nil, apperrors.NewValidationError("longitude", "must be between -180 and 180")
	}

	task, err := s.taskRepo.FindByID(ctx, nil, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Tracking() {
		return nil, fmt.Errorf("%w: task is %s, locations are accepted only while in progress", apperrors.ErrInvalidState, task.Status)
	}
	if task.AssignedTo != actor.UserID {
		return nil, apperrors.ErrForbidden
	}

	sample := &entities.LocationSample{
		ID:        uuid.New(),
		TaskID:    taskID,
		UserID:    actor.UserID,
		Latitude:  *payload.Latitude,
		Longitude: *payload.Longitude,
	}
	if err := s.locationRepo.InsertIfTracking(ctx, sample); err != nil {
		return nil, err
	}

	out := locationToDTO(sample)
	s.CacheSet(ctx, latestLocationKey(actor.UserID), out, latestLocationTTL)
	return &out, nil
}

// GetLocations returns the newest samples first, at most MaxLocationLimit
// of them. A limit of zero or less means the full MaxLocationLimit.
func (s *LocationService) GetLocations(ctx context.Context, actor utils.Actor, taskID uuid.UUID, limit int) ([]dto.LocationSampleDTO, error) {
	if err := s.checkTaskAccess(ctx, actor, taskID); err != nil {
		return nil, err
	}
	samples, err := s.locationRepo.ListByTask(ctx, taskID, clampLocationLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]dto.LocationSampleDTO, 0, len(samples))
	for i := range samples {
		out = append(out, locationToDTO(&samples[i]))
	}
	return out, nil
}

func clampLocationLimit(limit int) int {
	switch {
	case limit <= 0, limit > MaxLocationLimit:
		return MaxLocationLimit
	}
	return limit
}

func (s *LocationService) LatestForTechnician(ctx context.Context, technicianID uuid.UUID) (*dto.LatestLocationDTO, error) {
	var cached dto.LocationSampleDTO
	if s.CacheGet(ctx, latestLocationKey(technicianID), &cached) {
		return &dto.LatestLocationDTO{TechnicianID: technicianID, Location: cached}, nil
	}

	sample, err := s.locationRepo.LatestForUser(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	out := locationToDTO(sample)
	s.CacheSet(ctx, latestLocationKey(technicianID), out, latestLocationTTL)
	return &dto.LatestLocationDTO{TechnicianID: technicianID, Location: out}, nil
}

func (s *LocationService) TrackSummary(ctx context.Context, actor utils.Actor, taskID uuid.UUID) (*dto.TrackSummaryDTO, error) {
	if err := s.checkTaskAccess(ctx, actor, taskID); err != nil {
		return nil, err
	}
	track, err := s.locationRepo.Track(ctx, taskID)
	if err != nil {
		return nil, err
	}

	summary := &dto.TrackSummaryDTO{TaskID: taskID, Samples: len(track)}
	if len(track) == 0 {
		return summary, nil
	}

	points := make([]geo.Point, 0, len(track))
	for _, sample := range track {
		points = append(points, geo.Point{Latitude: sample.Latitude, Longitude: sample.Longitude})
	}
	first, last := track[0].RecordedAt, track[len(track)-1].RecordedAt
	summary.FirstAt = &first
	summary.LastAt = &last
	summary.DistanceMeters = geo.PathLength(points)
	return summary, nil
}

func (s *LocationService) checkTaskAccess(ctx context.Context, actor utils.Actor, taskID uuid.UUID) error {
	task, err := s.taskRepo.FindByID(ctx, nil, taskID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("load task: %w", err)
	}
	if !actor.IsAdmin() && task.AssignedTo != actor.UserID {
		return apperrors.ErrForbidden
	}
	return nil
}
