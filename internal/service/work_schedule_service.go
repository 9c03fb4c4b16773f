package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minhvh/teacher-hub-api/internal/models"
	"github.com/minhvh/teacher-hub-api/internal/repository"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type scheduleRepository interface {
	List(ctx context.Context, f repository.ScheduleFilter) ([]models.WorkSchedule, int, error)
	FindByID(ctx context.Context, id int64) (*models.WorkSchedule, error)
	Create(ctx context.Context, s *models.WorkSchedule) error
	Update(ctx context.Context, s *models.WorkSchedule) error
	UpdateAttendance(ctx context.Context, id int64, status models.AttendanceStatus, notes *string) error
	Delete(ctx context.Context, id int64) error
	DeleteByParent(ctx context.Context, parentID int64) error
	FindByParent(ctx context.Context, parentID int64) ([]models.WorkSchedule, error)
	FindByTeacherAndRange(ctx context.Context, teacherID int64, from, to time.Time) ([]models.WorkSchedule, error)
	SumHoursByTeacher(ctx context.Context, teacherID int64, from, to time.Time) (float64, error)
	CountUnmarkedByTeacher(ctx context.Context, teacherID int64, until time.Time) (int, error)
}

type scheduleUserLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// WorkScheduleService provides schedule use cases including weekly
// recurrence generation and attendance marking.
type WorkScheduleService struct {
	repo       scheduleRepository
	users      scheduleUserLookup
	dashboards dashboardInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewWorkScheduleService constructs a WorkScheduleService instance.
func NewWorkScheduleService(repo scheduleRepository, users scheduleUserLookup, validate *validator.Validate, logger *zap.Logger) *WorkScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &WorkScheduleService{
		repo:      repo,
		users:     users,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// UseDashboard registers a dashboard cache to drop after writes.
func (s *WorkScheduleService) UseDashboard(d dashboardInvalidator) {
	s.dashboards = d
}

func (s *WorkScheduleService) invalidateDashboard(ctx context.Context, teacherID int64) {
	if s.dashboards != nil {
		s.dashboards.InvalidateTeacher(ctx, teacherID)
	}
}

// List returns schedules matching the filter with pagination metadata.
func (s *WorkScheduleService) List(ctx context.Context, f repository.ScheduleFilter) ([]models.WorkSchedule, *models.Pagination, error) {
	schedules, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}

	f.Normalize()
	return schedules, &models.Pagination{Page: f.Page, PageSize: f.PageSize, TotalCount: total}, nil
}

// Get returns one schedule by ID.
func (s *WorkScheduleService) Get(ctx context.Context, id int64) (*models.WorkSchedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// Create stores a work block. When the request is recurring, the record is
// saved first as the template and weekly copies are generated from the date
// one week after it through the recurrence end date inclusive.
func (s *WorkScheduleService) Create(ctx context.Context, req models.CreateScheduleRequest, createdBy int64) (*models.WorkSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if !req.WorkType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown work type")
	}
	if req.EndTime <= req.StartTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	workDate, err := time.Parse(dateLayout, req.WorkDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid work date")
	}

	teacher, err := s.users.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a teacher")
	}

	// Recurrence without an end date degrades to a single block.
	recurring := req.IsRecurring && req.RecurringEndDate != nil
	var recurringEnd *time.Time
	if recurring {
		end, err := time.Parse(dateLayout, *req.RecurringEndDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid recurrence end date")
		}
		if end.Before(workDate) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "recurrence end date precedes work date")
		}
		recurringEnd = &end
	}

	template := &models.WorkSchedule{
		TeacherID:        req.TeacherID,
		WorkDate:         workDate,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		WorkType:         req.WorkType,
		Location:         req.Location,
		Content:          req.Content,
		Notes:            req.Notes,
		AttendanceStatus: models.AttendanceNotMarked,
		CreatedBy:        createdBy,
		IsRecurring:      recurring,
		RecurringEndDate: recurringEnd,
	}
	if err := s.repo.Create(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}

	if recurring {
		generated, err := s.generateChildren(ctx, template)
		if err != nil {
			return nil, err
		}
		s.logger.Info("recurring schedule created",
			zap.Int64("schedule_id", template.ID),
			zap.Int("generated", generated))
	}

	s.invalidateDashboard(ctx, template.TeacherID)
	return template, nil
}

// generateChildren creates the weekly copies of a template. Children carry
// sequential week numbers starting at 1, the template's ID as parent, and are
// themselves non-recurring.
func (s *WorkScheduleService) generateChildren(ctx context.Context, template *models.WorkSchedule) (int, error) {
	week := 0
	for date := template.WorkDate.AddDate(0, 0, 7); !date.After(*template.RecurringEndDate); date = date.AddDate(0, 0, 7) {
		week++
		weekNumber := week
		child := &models.WorkSchedule{
			TeacherID:        template.TeacherID,
			WorkDate:         date,
			StartTime:        template.StartTime,
			EndTime:          template.EndTime,
			WorkType:         template.WorkType,
			Location:         template.Location,
			Content:          template.Content,
			Notes:            template.Notes,
			AttendanceStatus: models.AttendanceNotMarked,
			CreatedBy:        template.CreatedBy,
			IsRecurring:      false,
			ParentScheduleID: &template.ID,
			WeekNumber:       &weekNumber,
		}
		if err := s.repo.Create(ctx, child); err != nil {
			return week - 1, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create recurring copy")
		}
	}
	return week, nil
}

// Update modifies a schedule. Generated children only accept changes to their
// own occurrence; their recurrence linkage is immutable.
func (s *WorkScheduleService) Update(ctx context.Context, id int64, req models.UpdateScheduleRequest) (*models.WorkSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.WorkDate != nil {
		date, err := time.Parse(dateLayout, *req.WorkDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid work date")
		}
		schedule.WorkDate = date
	}
	if req.StartTime != nil {
		schedule.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		schedule.EndTime = *req.EndTime
	}
	if schedule.EndTime <= schedule.StartTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	if req.WorkType != nil {
		if !req.WorkType.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown work type")
		}
		schedule.WorkType = *req.WorkType
	}
	if req.Location != nil {
		schedule.Location = req.Location
	}
	if req.Content != nil {
		schedule.Content = *req.Content
	}
	if req.Notes != nil {
		schedule.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	s.invalidateDashboard(ctx, schedule.TeacherID)
	return schedule, nil
}

// Delete removes a schedule. Deleting a recurrence template removes every
// generated child with it; deleting a child removes only that occurrence.
func (s *WorkScheduleService) Delete(ctx context.Context, id int64) error {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if schedule.IsTemplate() {
		if err := s.repo.DeleteByParent(ctx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete recurring copies")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}

	s.logger.Info("schedule deleted",
		zap.Int64("schedule_id", id),
		zap.Bool("template", schedule.IsTemplate()))

	s.invalidateDashboard(ctx, schedule.TeacherID)
	return nil
}

// UpdateChild modifies a single generated occurrence of a recurring schedule.
// Templates and standalone blocks are rejected.
func (s *WorkScheduleService) UpdateChild(ctx context.Context, id int64, req models.UpdateScheduleRequest) (*models.WorkSchedule, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !schedule.IsChild() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule is not a generated occurrence")
	}
	return s.Update(ctx, id, req)
}

// DeleteChild removes a single generated occurrence of a recurring schedule.
// Templates and standalone blocks are rejected.
func (s *WorkScheduleService) DeleteChild(ctx context.Context, id int64) error {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !schedule.IsChild() {
		return appErrors.Clone(appErrors.ErrValidation, "schedule is not a generated occurrence")
	}
	return s.Delete(ctx, id)
}

// ListChildren returns the generated copies of a recurrence template.
func (s *WorkScheduleService) ListChildren(ctx context.Context, templateID int64) ([]models.WorkSchedule, error) {
	schedule, err := s.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !schedule.IsTemplate() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule is not a recurrence template")
	}
	children, err := s.repo.FindByParent(ctx, templateID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recurring copies")
	}
	return children, nil
}

// MarkAttendance records attendance on a schedule. Teachers may only mark
// their own blocks; the handler enforces ownership via actorID.
func (s *WorkScheduleService) MarkAttendance(ctx context.Context, id int64, req models.MarkAttendanceRequest, actorID int64, actorRole models.UserRole) (*models.WorkSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
	}

	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorRole != models.RoleAdmin && schedule.TeacherID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot mark attendance for another teacher")
	}

	if err := s.repo.UpdateAttendance(ctx, id, req.Status, req.Notes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}

	schedule.AttendanceStatus = req.Status
	schedule.AttendanceNotes = req.Notes
	s.invalidateDashboard(ctx, schedule.TeacherID)
	return schedule, nil
}

// WeeklyReport returns a teacher's schedules for the week containing the
// given day, Monday through Sunday.
func (s *WorkScheduleService) WeeklyReport(ctx context.Context, teacherID int64, day time.Time) ([]models.WorkSchedule, error) {
	from, to := weekBounds(day)
	schedules, err := s.repo.FindByTeacherAndRange(ctx, teacherID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly schedules")
	}
	return schedules, nil
}

// Summary aggregates a teacher's workload for the week containing the given
// day.
func (s *WorkScheduleService) Summary(ctx context.Context, teacherID int64, day time.Time) (*models.TeacherWorkSummary, error) {
	teacher, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	from, to := weekBounds(day)
	schedules, err := s.repo.FindByTeacherAndRange(ctx, teacherID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly schedules")
	}

	hours, err := s.repo.SumHoursByTeacher(ctx, teacherID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum hours")
	}

	unmarked, err := s.repo.CountUnmarkedByTeacher(ctx, teacherID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unmarked attendance")
	}

	return &models.TeacherWorkSummary{
		TeacherID:          teacherID,
		TeacherName:        teacher.FullName,
		TeacherEmail:       teacher.Email,
		TotalHours:         hours,
		TotalSchedules:     len(schedules),
		UnmarkedAttendance: unmarked,
		GeneratedAt:        s.now().UTC(),
	}, nil
}

// weekBounds returns the Monday and Sunday of the week containing day.
func weekBounds(day time.Time) (time.Time, time.Time) {
	year, month, d := day.Date()
	midnight := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
	offset := int(midnight.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	monday := midnight.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}
