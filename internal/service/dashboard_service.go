package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/minhvh/teacher-hub-api/internal/models"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
)

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type dashboardScheduleRepository interface {
	SumHoursByTeacher(ctx context.Context, teacherID int64, from, to time.Time) (float64, error)
	FindByTeacherAndRange(ctx context.Context, teacherID int64, from, to time.Time) ([]models.WorkSchedule, error)
	CountTodayByTeacher(ctx context.Context, teacherID int64, day time.Time) (int, error)
}

type dashboardCourseRepository interface {
	CountActive(ctx context.Context) (int, error)
	CountByTeacher(ctx context.Context, teacherID int64) (int, error)
}

type dashboardClassRepository interface {
	CountActive(ctx context.Context) (int, error)
	CountByTeacher(ctx context.Context, teacherID int64) (int, error)
}

type dashboardAssignmentRepository interface {
	CountActive(ctx context.Context) (int, error)
}

type dashboardMessageRepository interface {
	CountUnread(ctx context.Context, userID int64) (int, error)
}

type dashboardLeaveRepository interface {
	CountPendingByTeacher(ctx context.Context, teacherID int64) (int, error)
}

type dashboardUserRepository interface {
	Stats(ctx context.Context) (*models.UserStats, error)
}

type dashboardLeaveStats interface {
	Stats(ctx context.Context) (*models.LeaveStats, error)
}

// dashboardInvalidator is satisfied by DashboardService. Mutating services
// call it after writes that change a teacher's dashboard counts.
type dashboardInvalidator interface {
	InvalidateTeacher(ctx context.Context, teacherID int64)
}

// DashboardService aggregates teacher and admin dashboards, with short-lived
// Redis caching in front of the counting queries.
type DashboardService struct {
	schedules   dashboardScheduleRepository
	courses     dashboardCourseRepository
	classes     dashboardClassRepository
	assignments dashboardAssignmentRepository
	messages    dashboardMessageRepository
	leaves      dashboardLeaveRepository
	users       dashboardUserRepository
	leaveStats  dashboardLeaveStats
	cache       dashboardCache
	cacheTTL    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(
	schedules dashboardScheduleRepository,
	courses dashboardCourseRepository,
	classes dashboardClassRepository,
	assignments dashboardAssignmentRepository,
	messages dashboardMessageRepository,
	leaves dashboardLeaveRepository,
	users dashboardUserRepository,
	leaveStats dashboardLeaveStats,
	cache dashboardCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		schedules:   schedules,
		courses:     courses,
		classes:     classes,
		assignments: assignments,
		messages:    messages,
		leaves:      leaves,
		users:       users,
		leaveStats:  leaveStats,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// TeacherDashboard builds a teacher's at-a-glance view. The unread message
// count is always fresh; the rest may be served from cache.
func (s *DashboardService) TeacherDashboard(ctx context.Context, teacherID int64) (*models.TeacherDashboard, error) {
	key := fmt.Sprintf("dashboard:teacher:%d", teacherID)

	var dashboard models.TeacherDashboard
	if err := s.cache.Get(ctx, key, &dashboard); err == nil {
		unread, err := s.messages.CountUnread(ctx, teacherID)
		if err == nil {
			dashboard.UnreadMessages = unread
		}
		return &dashboard, nil
	}

	today := s.today()
	monday, sunday := weekBounds(today)

	todayCount, err := s.schedules.CountTodayByTeacher(ctx, teacherID, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count today's schedules")
	}
	hours, err := s.schedules.SumHoursByTeacher(ctx, teacherID, monday, sunday)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum weekly hours")
	}
	todaySchedule, err := s.schedules.FindByTeacherAndRange(ctx, teacherID, today, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load today's schedule")
	}
	classes, err := s.classes.CountByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count classes")
	}
	courses, err := s.courses.CountByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}
	unread, err := s.messages.CountUnread(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread messages")
	}
	pendingLeaves, err := s.leaves.CountPendingByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending leave")
	}

	dashboard = models.TeacherDashboard{
		TodayClasses:   todayCount,
		WeeklyHours:    hours,
		TotalClasses:   classes,
		TotalCourses:   courses,
		UnreadMessages: unread,
		PendingLeaves:  pendingLeaves,
		TodaySchedule:  todaySchedule,
		GeneratedAt:    s.now().UTC(),
	}

	if err := s.cache.Set(ctx, key, dashboard, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache teacher dashboard", zap.Error(err))
	}
	return &dashboard, nil
}

// AdminStats builds the system-wide overview for administrators.
func (s *DashboardService) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	const key = "dashboard:admin"

	var stats models.AdminStats
	if err := s.cache.Get(ctx, key, &stats); err == nil {
		return &stats, nil
	}

	userStats, err := s.users.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute user stats")
	}
	courses, err := s.courses.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}
	assignments, err := s.assignments.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
	}
	classes, err := s.classes.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count classes")
	}
	leaveStats, err := s.leaveStats.Stats(ctx)
	if err != nil {
		return nil, err
	}

	stats = models.AdminStats{
		Users:       *userStats,
		Courses:     courses,
		Assignments: assignments,
		Classes:     classes,
		Leave:       *leaveStats,
		GeneratedAt: s.now().UTC(),
	}

	if err := s.cache.Set(ctx, key, stats, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache admin stats", zap.Error(err))
	}
	return &stats, nil
}

// InvalidateTeacher drops a teacher's cached dashboard, called after writes
// that change their counts.
func (s *DashboardService) InvalidateTeacher(ctx context.Context, teacherID int64) {
	key := fmt.Sprintf("dashboard:teacher:%d", teacherID)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to invalidate teacher dashboard", zap.Error(err))
	}
}

func (s *DashboardService) today() time.Time {
	year, month, day := s.now().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
