package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/minhvh/teacher-hub-api/internal/models"
)

const scheduleColumns = `s.id, s.teacher_id, t.full_name AS teacher_name, s.work_date,
	to_char(s.start_time, 'HH24:MI') AS start_time, to_char(s.end_time, 'HH24:MI') AS end_time,
	s.work_type, s.location, s.content, s.notes, s.attendance_status, s.attendance_notes,
	s.created_by, s.is_recurring, s.recurring_end_date, s.parent_schedule_id, s.week_number,
	s.created_at, s.updated_at`

const scheduleJoins = `FROM work_schedules s
	JOIN users t ON t.id = s.teacher_id`

// ScheduleFilter captures filtering criteria for listing work schedules.
type ScheduleFilter struct {
	TeacherID int64
	From      *time.Time
	To        *time.Time
	WorkType  models.WorkType
	models.ListFilter
}

// WorkScheduleRepository manages persistence for work schedules.
type WorkScheduleRepository struct {
	db *sqlx.DB
}

// NewWorkScheduleRepository constructs a WorkScheduleRepository.
func NewWorkScheduleRepository(db *sqlx.DB) *WorkScheduleRepository {
	return &WorkScheduleRepository{db: db}
}

// List returns schedules matching the filter ordered by date and start time.
func (r *WorkScheduleRepository) List(ctx context.Context, f ScheduleFilter) ([]models.WorkSchedule, int, error) {
	f.Normalize()

	conditions := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if f.TeacherID > 0 {
		conditions = append(conditions, fmt.Sprintf("s.teacher_id = $%d", idx))
		args = append(args, f.TeacherID)
		idx++
	}
	if f.From != nil {
		conditions = append(conditions, fmt.Sprintf("s.work_date >= $%d", idx))
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		conditions = append(conditions, fmt.Sprintf("s.work_date <= $%d", idx))
		args = append(args, *f.To)
		idx++
	}
	if f.WorkType != "" {
		conditions = append(conditions, fmt.Sprintf("s.work_type = $%d", idx))
		args = append(args, f.WorkType)
		idx++
	}
	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", scheduleJoins, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY s.work_date ASC, s.start_time ASC", scheduleColumns, scheduleJoins, where)
	if f.Paged() {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
		args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	}

	var schedules []models.WorkSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, total, nil
}

// FindByID fetches a schedule by ID.
func (r *WorkScheduleRepository) FindByID(ctx context.Context, id int64) (*models.WorkSchedule, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1", scheduleColumns, scheduleJoins)
	var schedule models.WorkSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Create inserts a schedule and fills the generated ID and timestamps.
func (r *WorkScheduleRepository) Create(ctx context.Context, s *models.WorkSchedule) error {
	const query = `
		INSERT INTO work_schedules (teacher_id, work_date, start_time, end_time, work_type, location,
			content, notes, attendance_status, attendance_notes, created_by, is_recurring,
			recurring_end_date, parent_schedule_id, week_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query,
		s.TeacherID, s.WorkDate, s.StartTime, s.EndTime, s.WorkType, s.Location,
		s.Content, s.Notes, s.AttendanceStatus, s.AttendanceNotes, s.CreatedBy, s.IsRecurring,
		s.RecurringEndDate, s.ParentScheduleID, s.WeekNumber)
	if err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update persists mutable schedule fields.
func (r *WorkScheduleRepository) Update(ctx context.Context, s *models.WorkSchedule) error {
	const query = `
		UPDATE work_schedules
		SET work_date = $2, start_time = $3, end_time = $4, work_type = $5, location = $6,
			content = $7, notes = $8, updated_at = NOW()
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		s.ID, s.WorkDate, s.StartTime, s.EndTime, s.WorkType, s.Location, s.Content, s.Notes); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// UpdateAttendance sets the attendance status and notes of a schedule.
func (r *WorkScheduleRepository) UpdateAttendance(ctx context.Context, id int64, status models.AttendanceStatus, notes *string) error {
	const query = `
		UPDATE work_schedules
		SET attendance_status = $2, attendance_notes = $3, updated_at = NOW()
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, notes); err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return nil
}

// Delete removes a schedule.
func (r *WorkScheduleRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM work_schedules WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}

// DeleteByParent removes all children generated from a template.
func (r *WorkScheduleRepository) DeleteByParent(ctx context.Context, parentID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM work_schedules WHERE parent_schedule_id = $1", parentID); err != nil {
		return fmt.Errorf("delete schedules by parent: %w", err)
	}
	return nil
}

// FindByParent returns the children of a template ordered by week number.
func (r *WorkScheduleRepository) FindByParent(ctx context.Context, parentID int64) ([]models.WorkSchedule, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.parent_schedule_id = $1 ORDER BY s.week_number ASC", scheduleColumns, scheduleJoins)
	var schedules []models.WorkSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, parentID); err != nil {
		return nil, fmt.Errorf("find schedules by parent: %w", err)
	}
	return schedules, nil
}

// FindByTeacherAndRange returns a teacher's schedules within a date span.
func (r *WorkScheduleRepository) FindByTeacherAndRange(ctx context.Context, teacherID int64, from, to time.Time) ([]models.WorkSchedule, error) {
	query := fmt.Sprintf(`SELECT %s %s
		WHERE s.teacher_id = $1 AND s.work_date BETWEEN $2 AND $3
		ORDER BY s.work_date ASC, s.start_time ASC`, scheduleColumns, scheduleJoins)
	var schedules []models.WorkSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, teacherID, from, to); err != nil {
		return nil, fmt.Errorf("find schedules by teacher and range: %w", err)
	}
	return schedules, nil
}

// SumHoursByTeacher returns a teacher's total scheduled hours within a span.
func (r *WorkScheduleRepository) SumHoursByTeacher(ctx context.Context, teacherID int64, from, to time.Time) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(EXTRACT(EPOCH FROM (end_time - start_time)) / 3600), 0)
		FROM work_schedules
		WHERE teacher_id = $1 AND work_date BETWEEN $2 AND $3`
	var hours float64
	if err := r.db.GetContext(ctx, &hours, query, teacherID, from, to); err != nil {
		return 0, fmt.Errorf("sum schedule hours: %w", err)
	}
	return hours, nil
}

// CountUnmarkedByTeacher returns how many past blocks still lack attendance.
func (r *WorkScheduleRepository) CountUnmarkedByTeacher(ctx context.Context, teacherID int64, until time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM work_schedules
		WHERE teacher_id = $1 AND work_date <= $2 AND attendance_status = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID, until, models.AttendanceNotMarked); err != nil {
		return 0, fmt.Errorf("count unmarked attendance: %w", err)
	}
	return count, nil
}

// CountTodayByTeacher returns the number of a teacher's blocks on a given day.
func (r *WorkScheduleRepository) CountTodayByTeacher(ctx context.Context, teacherID int64, day time.Time) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM work_schedules WHERE teacher_id = $1 AND work_date = $2", teacherID, day); err != nil {
		return 0, fmt.Errorf("count schedules for day: %w", err)
	}
	return count, nil
}

// ListAll returns every schedule; used by spreadsheet sync.
func (r *WorkScheduleRepository) ListAll(ctx context.Context) ([]models.WorkSchedule, error) {
	query := fmt.Sprintf("SELECT %s %s ORDER BY s.work_date ASC, s.id ASC", scheduleColumns, scheduleJoins)
	var schedules []models.WorkSchedule
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list all schedules: %w", err)
	}
	return schedules, nil
}
