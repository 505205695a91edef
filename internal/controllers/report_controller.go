package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/services"
	apperrors "field-dispatch/pkg/errors"
	"field-dispatch/pkg/utils"
)

const (
	tasksSheet       = "Tasks"
	techniciansSheet = "Technicians"
	reportTimeFormat = "2006-01-02 15:04"
)

type ReportController struct {
	reportService services.ReportServiceInterface
	logger        *zap.Logger
}

func NewReportController(reportService services.ReportServiceInterface, logger *zap.Logger) *ReportController {
	return &ReportController{reportService: reportService, logger: logger}
}

// ExportTasks streams the task report as an xlsx workbook. It accepts the
// same status and assigned_to filters as the task list.
func (c *ReportController) ExportTasks(ctx echo.Context) error {
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
	c.logger.Debug("task report requested", zap.Any("filter", filter.Filter))

	report, err := c.reportService.TaskReport(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	f, err := buildReportWorkbook(report)
	if err != nil {
		c.logger.Error("failed to build report workbook", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	defer f.Close()

	fileName := fmt.Sprintf("tasks_%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}

var taskReportHeaders = []interface{}{
	"Task ID", "Created", "Customer", "Phone", "Address", "Issue", "Technician", "Status",
	"Accepted", "Started", "Completed", "Duration (min)", "Outcome", "Report", "Rating", "Rating comment",
}

var technicianReportHeaders = []interface{}{
	"Technician ID", "Name", "Email", "Completed tasks", "Rated tasks", "Average rating",
}

func buildReportWorkbook(report *dto.TaskReportDTO) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", tasksSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(techniciansSheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	if err := writeSheet(f, tasksSheet, taskReportHeaders, bold, len(report.Tasks), func(i int) []interface{} {
		return taskReportRow(report.Tasks[i])
	}); err != nil {
		return nil, err
	}
	if err := writeSheet(f, techniciansSheet, technicianReportHeaders, bold, len(report.Technicians), func(i int) []interface{} {
		t := report.Technicians[i]
		return []interface{}{t.TechnicianID.String(), t.Name, t.Email, t.Completed, t.Rated, t.Average}
	}); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(tasksSheet, "A", "A", 38)
	_ = f.SetColWidth(tasksSheet, "C", "E", 25)
	_ = f.SetColWidth(tasksSheet, "F", "F", 40)
	_ = f.SetColWidth(tasksSheet, "N", "N", 50)
	_ = f.SetColWidth(techniciansSheet, "A", "C", 30)
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, headers []interface{}, headerStyle, rows int, row func(i int) []interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	for i := 0; i < rows; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(i)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

func taskReportRow(r dto.TaskReportRowDTO) []interface{} {
	formatTime := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(reportTimeFormat)
	}

	outcome := ""
	if r.Success != nil {
		outcome = "unsuccessful"
		if *r.Success {
			outcome = "successful"
		}
	}

	var duration, rating interface{} = "", ""
	if r.DurationMinutes != nil {
		duration = *r.DurationMinutes
	}
	if r.Rating != nil {
		rating = *r.Rating
	}

	return []interface{}{
		r.TaskID.String(), r.CreatedAt.Format(reportTimeFormat), r.CustomerName, r.CustomerPhone,
		r.CustomerAddress, r.Issue, r.Technician, r.Status,
		formatTime(r.AcceptedAt), formatTime(r.StartedAt), formatTime(r.CompletedAt), duration,
		outcome, utils.SafeDeref(r.Report), rating, utils.SafeDeref(r.RatingComment),
	}
}
