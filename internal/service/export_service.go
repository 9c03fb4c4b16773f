package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/minhvh/teacher-hub-api/internal/models"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
	"github.com/minhvh/teacher-hub-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type exportScheduleSource interface {
	WeeklyReport(ctx context.Context, teacherID int64, day time.Time) ([]models.WorkSchedule, error)
	Summary(ctx context.Context, teacherID int64, day time.Time) (*models.TeacherWorkSummary, error)
}

// ExportService renders weekly schedule reports as CSV or PDF downloads.
type ExportService struct {
	schedules exportScheduleSource
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(schedules exportScheduleSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		schedules: schedules,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// WeeklySchedule renders a teacher's week as a downloadable document and
// returns the bytes, content type and suggested file name.
func (s *ExportService) WeeklySchedule(ctx context.Context, teacherID int64, day time.Time, format string) ([]byte, string, string, error) {
	summary, err := s.schedules.Summary(ctx, teacherID, day)
	if err != nil {
		return nil, "", "", err
	}
	schedules, err := s.schedules.WeeklyReport(ctx, teacherID, day)
	if err != nil {
		return nil, "", "", err
	}

	dataset := weeklyDataset(schedules)
	base := fmt.Sprintf("schedule-%d-%s", teacherID, day.Format("2006-01-02"))

	switch format {
	case ExportFormatCSV:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return body, "text/csv", base + ".csv", nil
	case ExportFormatPDF:
		title := fmt.Sprintf("Weekly schedule - %s (%.1fh)", summary.TeacherName, summary.TotalHours)
		body, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return body, "application/pdf", base + ".pdf", nil
	}
	return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
}

func weeklyDataset(schedules []models.WorkSchedule) export.Dataset {
	headers := []string{"Date", "Start", "End", "Type", "Content", "Location", "Attendance", "Hours"}
	rows := make([]map[string]string, 0, len(schedules))
	for _, w := range schedules {
		location := ""
		if w.Location != nil {
			location = *w.Location
		}
		rows = append(rows, map[string]string{
			"Date":       w.WorkDate.Format("2006-01-02"),
			"Start":      w.StartTime,
			"End":        w.EndTime,
			"Type":       w.WorkType.Display(),
			"Content":    w.Content,
			"Location":   location,
			"Attendance": w.AttendanceStatus.Display(),
			"Hours":      fmt.Sprintf("%.1f", w.Duration()),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
