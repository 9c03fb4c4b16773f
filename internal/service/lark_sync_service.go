package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minhvh/teacher-hub-api/internal/lark"
	"github.com/minhvh/teacher-hub-api/internal/models"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
	"github.com/minhvh/teacher-hub-api/pkg/jobs"
)

// Sync job types.
const (
	SyncJobUsers         = "sync_users"
	SyncJobCourses       = "sync_courses"
	SyncJobSchedules     = "sync_schedules"
	SyncJobLeaveRequests = "sync_leave_requests"
)

type larkRecordWriter interface {
	AccessToken(ctx context.Context) (string, error)
	CreateRecord(ctx context.Context, baseToken, tableID string, fields map[string]interface{}) error
}

type syncUserSource interface {
	ListAll(ctx context.Context) ([]models.User, error)
}

type syncCourseSource interface {
	ListAll(ctx context.Context) ([]models.Course, error)
}

type syncScheduleSource interface {
	ListAll(ctx context.Context) ([]models.WorkSchedule, error)
}

type syncLeaveSource interface {
	ListAll(ctx context.Context) ([]models.LeaveRequest, error)
}

// LarkSyncConfig binds the sync to one Lark Base and its tables.
type LarkSyncConfig struct {
	Enabled            bool
	BaseToken          string
	UsersTable         string
	CoursesTable       string
	SchedulesTable     string
	LeaveRequestsTable string
	RecordDelay        time.Duration
	Workers            int
}

// LarkSyncService mirrors application data into Lark Base tables through a
// background queue. Exports are snapshot pushes; failed rows are logged and
// skipped so one bad record never aborts a run.
type LarkSyncService struct {
	client    larkRecordWriter
	users     syncUserSource
	courses   syncCourseSource
	schedules syncScheduleSource
	leaves    syncLeaveSource
	config    LarkSyncConfig
	logger    *zap.Logger
	metrics   *MetricsService
	queue     *jobs.Queue
}

// NewLarkSyncService constructs a LarkSyncService and its queue. Call Start
// before enqueueing syncs.
func NewLarkSyncService(client larkRecordWriter, users syncUserSource, courses syncCourseSource, schedules syncScheduleSource, leaves syncLeaveSource, config LarkSyncConfig, metrics *MetricsService, logger *zap.Logger) *LarkSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &LarkSyncService{
		client:    client,
		users:     users,
		courses:   courses,
		schedules: schedules,
		leaves:    leaves,
		config:    config,
		logger:    logger,
		metrics:   metrics,
	}
	s.queue = jobs.NewQueue("lark-sync", s.handle, jobs.QueueConfig{
		Workers: config.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the sync workers.
func (s *LarkSyncService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the sync workers.
func (s *LarkSyncService) Stop() {
	s.queue.Stop()
}

// Enabled reports whether the sync is configured and switched on.
func (s *LarkSyncService) Enabled() bool {
	return s.config.Enabled
}

// Trigger enqueues one sync job and returns immediately.
func (s *LarkSyncService) Trigger(jobType string) error {
	if !s.config.Enabled {
		return appErrors.Clone(appErrors.ErrInvalidState, "spreadsheet sync is disabled")
	}
	switch jobType {
	case SyncJobUsers, SyncJobCourses, SyncJobSchedules, SyncJobLeaveRequests:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown sync target")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobType}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue sync")
	}
	return nil
}

// TestConnection exchanges credentials for an access token to verify the
// Lark app configuration without writing anything.
func (s *LarkSyncService) TestConnection(ctx context.Context) error {
	if !s.config.Enabled {
		return appErrors.Clone(appErrors.ErrInvalidState, "spreadsheet sync is disabled")
	}
	if _, err := s.client.AccessToken(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "lark connection test failed")
	}
	return nil
}

// TriggerAll enqueues every sync job.
func (s *LarkSyncService) TriggerAll() error {
	for _, jobType := range []string{SyncJobUsers, SyncJobCourses, SyncJobSchedules, SyncJobLeaveRequests} {
		if err := s.Trigger(jobType); err != nil {
			return err
		}
	}
	return nil
}

func (s *LarkSyncService) handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case SyncJobUsers:
		return s.syncUsers(ctx)
	case SyncJobCourses:
		return s.syncCourses(ctx)
	case SyncJobSchedules:
		return s.syncSchedules(ctx)
	case SyncJobLeaveRequests:
		return s.syncLeaveRequests(ctx)
	}
	s.logger.Warn("dropping unknown sync job", zap.String("type", job.Type))
	return nil
}

func (s *LarkSyncService) syncUsers(ctx context.Context) error {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return err
	}
	synced := 0
	for _, u := range users {
		fields := map[string]interface{}{
			"Username":  u.Username,
			"Full name": u.FullName,
			"Email":     u.Email,
			"Role":      string(u.Role),
			"Enabled":   u.Enabled,
		}
		if s.pushRecord(ctx, s.config.UsersTable, fields, "user", u.ID) {
			synced++
		}
	}
	s.logger.Info("user sync finished", zap.Int("total", len(users)), zap.Int("synced", synced))
	return nil
}

func (s *LarkSyncService) syncCourses(ctx context.Context) error {
	courses, err := s.courses.ListAll(ctx)
	if err != nil {
		return err
	}
	synced := 0
	for _, c := range courses {
		fields := map[string]interface{}{
			"Course code": c.CourseCode,
			"Course name": c.CourseName,
			"Active":      c.Active,
			"Created by":  c.CreatedByName,
		}
		if c.Description != nil {
			fields["Description"] = *c.Description
		}
		if s.pushRecord(ctx, s.config.CoursesTable, fields, "course", c.ID) {
			synced++
		}
	}
	s.logger.Info("course sync finished", zap.Int("total", len(courses)), zap.Int("synced", synced))
	return nil
}

func (s *LarkSyncService) syncSchedules(ctx context.Context) error {
	schedules, err := s.schedules.ListAll(ctx)
	if err != nil {
		return err
	}
	synced := 0
	for _, w := range schedules {
		fields := map[string]interface{}{
			"Teacher":    w.TeacherName,
			"Date":       w.WorkDate.Format("2006-01-02"),
			"Start":      w.StartTime,
			"End":        w.EndTime,
			"Type":       w.WorkType.Display(),
			"Content":    w.Content,
			"Attendance": w.AttendanceStatus.Display(),
			"Hours":      w.Duration(),
		}
		if w.Location != nil {
			fields["Location"] = *w.Location
		}
		if s.pushRecord(ctx, s.config.SchedulesTable, fields, "schedule", w.ID) {
			synced++
		}
	}
	s.logger.Info("schedule sync finished", zap.Int("total", len(schedules)), zap.Int("synced", synced))
	return nil
}

func (s *LarkSyncService) syncLeaveRequests(ctx context.Context) error {
	requests, err := s.leaves.ListAll(ctx)
	if err != nil {
		return err
	}
	synced := 0
	for _, l := range requests {
		fields := map[string]interface{}{
			"Teacher":    l.TeacherName,
			"Type":       string(l.LeaveType),
			"Start date": l.StartDate.Format("2006-01-02"),
			"End date":   l.EndDate.Format("2006-01-02"),
			"Total days": l.DayCount(),
			"Status":     string(l.Status),
			"Reason":     l.Reason,
		}
		if s.pushRecord(ctx, s.config.LeaveRequestsTable, fields, "leave request", l.ID) {
			synced++
		}
	}
	s.logger.Info("leave sync finished", zap.Int("total", len(requests)), zap.Int("synced", synced))
	return nil
}

// pushRecord writes one row, pacing requests and logging failures without
// aborting the run.
func (s *LarkSyncService) pushRecord(ctx context.Context, tableID string, fields map[string]interface{}, kind string, id int64) bool {
	if err := s.client.CreateRecord(ctx, s.config.BaseToken, tableID, fields); err != nil {
		s.logger.Warn("failed to sync record, skipping",
			zap.String("kind", kind),
			zap.Int64("id", id),
			zap.Error(err))
		s.metrics.ObserveSyncRecord(tableID, false)
		return false
	}
	s.metrics.ObserveSyncRecord(tableID, true)
	if s.config.RecordDelay > 0 {
		timer := time.NewTimer(s.config.RecordDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
	return true
}

var _ larkRecordWriter = (*lark.Client)(nil)
