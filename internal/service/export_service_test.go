package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhvh/teacher-hub-api/internal/models"
)

type stubScheduleSource struct {
	schedules []models.WorkSchedule
	summary   *models.TeacherWorkSummary
}

func (s *stubScheduleSource) WeeklyReport(ctx context.Context, teacherID int64, day time.Time) ([]models.WorkSchedule, error) {
	return s.schedules, nil
}

func (s *stubScheduleSource) Summary(ctx context.Context, teacherID int64, day time.Time) (*models.TeacherWorkSummary, error) {
	return s.summary, nil
}

func exportFixture() *ExportService {
	source := &stubScheduleSource{
		schedules: []models.WorkSchedule{
			{
				TeacherID:        7,
				WorkDate:         time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
				StartTime:        "08:00",
				EndTime:          "10:00",
				WorkType:         models.WorkTypeRegularClass,
				Content:          "Math 8A",
				Location:         strPtr("Room B2"),
				AttendanceStatus: models.AttendancePresent,
			},
			{
				TeacherID:        7,
				WorkDate:         time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
				StartTime:        "13:00",
				EndTime:          "14:30",
				WorkType:         models.WorkTypeSupport,
				Content:          "Lab supervision",
				AttendanceStatus: models.AttendanceNotMarked,
			},
		},
		summary: &models.TeacherWorkSummary{
			TeacherID:      7,
			TeacherName:    "Nguyen Van A",
			TotalHours:     3.5,
			TotalSchedules: 2,
		},
	}
	return NewExportService(source, nil)
}

func TestExportServiceWeeklyScheduleCSV(t *testing.T) {
	svc := exportFixture()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	body, contentType, filename, err := svc.WeeklySchedule(context.Background(), 7, day, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "schedule-7-2024-03-04.csv", filename)

	csv := string(body)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Start,End,Type,Content,Location,Attendance,Hours", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "2024-03-04")
	assert.Contains(t, lines[1], "Regular class")
	assert.Contains(t, lines[1], "Room B2")
	assert.Contains(t, lines[1], "2.0")
	assert.Contains(t, lines[2], "Not marked")
	assert.Contains(t, lines[2], "1.5")
}

func TestExportServiceWeeklySchedulePDF(t *testing.T) {
	svc := exportFixture()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	body, contentType, filename, err := svc.WeeklySchedule(context.Background(), 7, day, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "schedule-7-2024-03-04.pdf", filename)
	assert.True(t, strings.HasPrefix(string(body), "%PDF"))
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc := exportFixture()

	_, _, _, err := svc.WeeklySchedule(context.Background(), 7, time.Now(), "xlsx")
	assert.Error(t, err)
}
