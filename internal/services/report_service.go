package services

import (
	"context"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/entities"
	"field-dispatch/internal/repositories"
	"field-dispatch/pkg/types"
)

type ReportServiceInterface interface {
	TaskReport(ctx context.Context, filter types.Filter) (*dto.TaskReportDTO, error)
}

type ReportService struct {
	taskRepo   repositories.TaskRepositoryInterface
	ratingRepo repositories.RatingRepositoryInterface
	userRepo   repositories.UserRepositoryInterface
	logger     *zap.Logger
}

func NewReportService(
	taskRepo repositories.TaskRepositoryInterface,
	ratingRepo repositories.RatingRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	logger *zap.Logger,
) ReportServiceInterface {
	return &ReportService{taskRepo: taskRepo, ratingRepo: ratingRepo, userRepo: userRepo, logger: logger}
}

// TaskReport gathers every task matching filter, joined with its rating, plus
// a per-technician summary. Pagination in filter is ignored.
func (s *ReportService) TaskReport(ctx context.Context, filter types.Filter) (*dto.TaskReportDTO, error) {
	filter.WithPagination = false
	tasks, _, err := s.taskRepo.List(ctx, filter, nil)
	if err != nil {
		return nil, err
	}
	ratings, err := s.ratingRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	technicians, err := s.userRepo.ListByRole(ctx, entities.RoleTechnician)
	if err != nil {
		return nil, err
	}

	byTask := make(map[uuid.UUID]*entities.Rating, len(ratings))
	for i := range ratings {
		byTask[ratings[i].TaskID] = &ratings[i]
	}

	report := &dto.TaskReportDTO{
		Tasks:       make([]dto.TaskReportRowDTO, 0, len(tasks)),
		Technicians: make([]dto.TechnicianRatingRowDTO, 0, len(technicians)),
	}
	for i := range tasks {
		t := &tasks[i]
		row := dto.TaskReportRowDTO{
			TaskID:          t.ID,
			CreatedAt:       t.CreatedAt,
			CustomerName:    t.CustomerName,
			CustomerPhone:   t.CustomerPhone,
			CustomerAddress: t.CustomerAddress,
			Issue:           t.IssueDescription,
			Technician:      t.AssignedToName,
			Status:          string(t.Status),
			AcceptedAt:      t.AcceptedAt,
			StartedAt:       t.StartedAt,
			CompletedAt:     t.CompletedAt,
			DurationMinutes: t.DurationMinutes,
			Success:         t.Success,
			Report:          t.Report,
		}
		if r, ok := byTask[t.ID]; ok {
			rating := r.Rating
			row.Rating = &rating
			row.RatingComment = r.Comment
		}
		report.Tasks = append(report.Tasks, row)
	}

	// Ratings are counted over every task, completed counts follow the filter.
	type acc struct{ completed, rated, sum int }
	totals := make(map[uuid.UUID]*acc, len(technicians))
	for i := range technicians {
		totals[technicians[i].ID] = &acc{}
	}
	for i := range ratings {
		if a, ok := totals[ratings[i].TechnicianID]; ok {
			a.rated++
			a.sum += ratings[i].Rating
		}
	}
	for i := range tasks {
		if a, ok := totals[tasks[i].AssignedTo]; ok && tasks[i].Status == entities.TaskStatusCompleted {
			a.completed++
		}
	}

	for i := range technicians {
		u := &technicians[i]
		a := totals[u.ID]
		row := dto.TechnicianRatingRowDTO{TechnicianID: u.ID, Name: u.Name, Email: u.Email, Completed: a.completed, Rated: a.rated}
		if a.rated > 0 {
			row.Average = math.Round(float64(a.sum)/float64(a.rated)*100) / 100
		}
		report.Technicians = append(report.Technicians, row)
	}

	s.logger.Debug("task report built", zap.Int("tasks", len(report.Tasks)), zap.Int("technicians", len(report.Technicians)))
	return report, nil
}
