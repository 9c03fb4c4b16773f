package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/minhvh/teacher-hub-api/internal/models"
	"github.com/minhvh/teacher-hub-api/internal/repository"
)

type mockScheduleRepo struct {
	items          map[int64]*models.WorkSchedule
	created        []*models.WorkSchedule
	nextID         int64
	deleted        []int64
	deletedParents []int64
	rangeResult    []models.WorkSchedule
	hours          float64
	unmarked       int
	attendance     map[int64]models.AttendanceStatus
}

func (m *mockScheduleRepo) List(ctx context.Context, f repository.ScheduleFilter) ([]models.WorkSchedule, int, error) {
	return nil, 0, nil
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id int64) (*models.WorkSchedule, error) {
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleRepo) Create(ctx context.Context, s *models.WorkSchedule) error {
	if m.items == nil {
		m.items = make(map[int64]*models.WorkSchedule)
	}
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.items[s.ID] = &cp
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockScheduleRepo) Update(ctx context.Context, s *models.WorkSchedule) error {
	cp := *s
	m.items[s.ID] = &cp
	return nil
}

func (m *mockScheduleRepo) UpdateAttendance(ctx context.Context, id int64, status models.AttendanceStatus, notes *string) error {
	if m.attendance == nil {
		m.attendance = make(map[int64]models.AttendanceStatus)
	}
	m.attendance[id] = status
	return nil
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockScheduleRepo) DeleteByParent(ctx context.Context, parentID int64) error {
	m.deletedParents = append(m.deletedParents, parentID)
	for id, s := range m.items {
		if s.ParentScheduleID != nil && *s.ParentScheduleID == parentID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *mockScheduleRepo) FindByParent(ctx context.Context, parentID int64) ([]models.WorkSchedule, error) {
	var out []models.WorkSchedule
	for _, s := range m.items {
		if s.ParentScheduleID != nil && *s.ParentScheduleID == parentID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockScheduleRepo) FindByTeacherAndRange(ctx context.Context, teacherID int64, from, to time.Time) ([]models.WorkSchedule, error) {
	return m.rangeResult, nil
}

func (m *mockScheduleRepo) SumHoursByTeacher(ctx context.Context, teacherID int64, from, to time.Time) (float64, error) {
	return m.hours, nil
}

func (m *mockScheduleRepo) CountUnmarkedByTeacher(ctx context.Context, teacherID int64, until time.Time) (int, error) {
	return m.unmarked, nil
}

type spyDashboard struct {
	teacherIDs []int64
}

func (s *spyDashboard) InvalidateTeacher(ctx context.Context, teacherID int64) {
	s.teacherIDs = append(s.teacherIDs, teacherID)
}

type mockUserLookup struct {
	users map[int64]*models.User
}

func (m *mockUserLookup) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserLookup) ListAll(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func teacherLookup(id int64) *mockUserLookup {
	return &mockUserLookup{users: map[int64]*models.User{
		id: {ID: id, Username: "teacher", FullName: "Teacher One", Email: "t1@school.test", Role: models.RoleTeacher, Enabled: true},
	}}
}

func strPtr(s string) *string { return &s }

func TestWorkScheduleServiceCreateSingle(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewWorkScheduleService(repo, teacherLookup(7), validator.New(), zap.NewNop())

	schedule, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeacherID: 7,
		WorkDate:  "2024-01-01",
		StartTime: "08:00",
		EndTime:   "10:00",
		WorkType:  models.WorkTypeRegularClass,
		Content:   "Math",
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceNotMarked, schedule.AttendanceStatus)
	assert.False(t, schedule.IsRecurring)
	assert.Len(t, repo.created, 1)
}

func TestWorkScheduleServiceCreateRecurring(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewWorkScheduleService(repo, teacherLookup(7), validator.New(), zap.NewNop())

	template, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeacherID:        7,
		WorkDate:         "2024-01-01",
		StartTime:        "08:00",
		EndTime:          "10:00",
		WorkType:         models.WorkTypeRegularClass,
		Content:          "Math",
		IsRecurring:      true,
		RecurringEndDate: strPtr("2024-01-22"),
	}, 1)
	require.NoError(t, err)
	require.Len(t, repo.created, 4)

	assert.True(t, template.IsTemplate())
	assert.Nil(t, template.WeekNumber)

	children := repo.created[1:]
	wantDates := []string{"2024-01-08", "2024-01-15", "2024-01-22"}
	for i, child := range children {
		assert.Equal(t, wantDates[i], child.WorkDate.Format("2006-01-02"))
		require.NotNil(t, child.WeekNumber)
		assert.Equal(t, i+1, *child.WeekNumber)
		require.NotNil(t, child.ParentScheduleID)
		assert.Equal(t, template.ID, *child.ParentScheduleID)
		assert.False(t, child.IsRecurring)
		assert.Equal(t, "08:00", child.StartTime)
		assert.Equal(t, "10:00", child.EndTime)
		assert.Equal(t, models.AttendanceNotMarked, child.AttendanceStatus)
	}
}

func TestWorkScheduleServiceCreateRecurringEndOnWorkDate(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewWorkScheduleService(repo, teacherLookup(7), validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeacherID:        7,
		WorkDate:         "2024-01-01",
		StartTime:        "08:00",
		EndTime:          "10:00",
		WorkType:         models.WorkTypeSupport,
		Content:          "Tutoring",
		IsRecurring:      true,
		RecurringEndDate: strPtr("2024-01-01"),
	}, 1)
	require.NoError(t, err)
	assert.Len(t, repo.created, 1)
}

func TestWorkScheduleServiceCreateRecurringMissingEndDate(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewWorkScheduleService(repo, teacherLookup(7), validator.New(), zap.NewNop())

	created, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeacherID:   7,
		WorkDate:    "2024-01-01",
		StartTime:   "08:00",
		EndTime:     "10:00",
		WorkType:    models.WorkTypeRegularClass,
		Content:     "Math",
		IsRecurring: true,
	}, 1)
	require.NoError(t, err)
	assert.Len(t, repo.created, 1)
	assert.False(t, created.IsRecurring)
	assert.Nil(t, created.RecurringEndDate)
}

func TestWorkScheduleServiceCreateRecurringEndBeforeStart(t *testing.T) {
	svc := NewWorkScheduleService(&mockScheduleRepo{}, teacherLookup(7), validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeacherID:        7,
		WorkDate:         "2024-01-08",
		StartTime:        "08:00",
		EndTime:          "10:00",
		WorkType:         models.WorkTypeRegularClass,
		Content:          "Math",
		IsRecurring:      true,
		RecurringEndDate: strPtr("2024-01-01"),
	}, 1)
	require.Error(t, err)
}

func TestWorkScheduleServiceCreateInvertedTimes(t *testing.T) {
	svc := NewWorkScheduleService(&mockScheduleRepo{}, teacherLookup(7), validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeacherID: 7,
		WorkDate:  "2024-01-01",
		StartTime: "10:00",
		EndTime:   "08:00",
		WorkType:  models.WorkTypeRegularClass,
		Content:   "Math",
	}, 1)
	require.Error(t, err)
}

func TestWorkScheduleServiceCreateRejectsNonTeacher(t *testing.T) {
	lookup := &mockUserLookup{users: map[int64]*models.User{
		3: {ID: 3, Role: models.RoleAdmin, Enabled: true},
	}}
	svc := NewWorkScheduleService(&mockScheduleRepo{}, lookup, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeacherID: 3,
		WorkDate:  "2024-01-01",
		StartTime: "08:00",
		EndTime:   "10:00",
		WorkType:  models.WorkTypeRegularClass,
		Content:   "Math",
	}, 1)
	require.Error(t, err)
}

func TestWorkScheduleServiceDeleteTemplateCascades(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewWorkScheduleService(repo, teacherLookup(7), validator.New(), zap.NewNop())

	template, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeacherID:        7,
		WorkDate:         "2024-01-01",
		StartTime:        "08:00",
		EndTime:          "10:00",
		WorkType:         models.WorkTypeRegularClass,
		Content:          "Math",
		IsRecurring:      true,
		RecurringEndDate: strPtr("2024-01-15"),
	}, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), template.ID))
	assert.Equal(t, []int64{template.ID}, repo.deletedParents)
	assert.Empty(t, repo.items)
}

func TestWorkScheduleServiceDeleteChildKeepsSiblings(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewWorkScheduleService(repo, teacherLookup(7), validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeacherID:        7,
		WorkDate:         "2024-01-01",
		StartTime:        "08:00",
		EndTime:          "10:00",
		WorkType:         models.WorkTypeRegularClass,
		Content:          "Math",
		IsRecurring:      true,
		RecurringEndDate: strPtr("2024-01-15"),
	}, 1)
	require.NoError(t, err)
	require.Len(t, repo.items, 3)

	childID := repo.created[1].ID
	require.NoError(t, svc.Delete(context.Background(), childID))
	assert.Empty(t, repo.deletedParents)
	assert.Len(t, repo.items, 2)
}

func TestWorkScheduleServiceUpdateChildGuards(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewWorkScheduleService(repo, teacherLookup(7), validator.New(), zap.NewNop())

	template, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeacherID:        7,
		WorkDate:         "2024-01-01",
		StartTime:        "08:00",
		EndTime:          "10:00",
		WorkType:         models.WorkTypeRegularClass,
		Content:          "Math",
		IsRecurring:      true,
		RecurringEndDate: strPtr("2024-01-15"),
	}, 1)
	require.NoError(t, err)

	childID := repo.created[1].ID
	updated, err := svc.UpdateChild(context.Background(), childID, models.UpdateScheduleRequest{
		Content: strPtr("Math review"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Math review", updated.Content)

	_, err = svc.UpdateChild(context.Background(), template.ID, models.UpdateScheduleRequest{
		Content: strPtr("Math review"),
	})
	require.Error(t, err)
}

func TestWorkScheduleServiceDeleteChildGuards(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewWorkScheduleService(repo, teacherLookup(7), validator.New(), zap.NewNop())

	template, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeacherID:        7,
		WorkDate:         "2024-01-01",
		StartTime:        "08:00",
		EndTime:          "10:00",
		WorkType:         models.WorkTypeRegularClass,
		Content:          "Math",
		IsRecurring:      true,
		RecurringEndDate: strPtr("2024-01-15"),
	}, 1)
	require.NoError(t, err)
	require.Len(t, repo.items, 3)

	require.Error(t, svc.DeleteChild(context.Background(), template.ID))

	childID := repo.created[2].ID
	require.NoError(t, svc.DeleteChild(context.Background(), childID))
	assert.Empty(t, repo.deletedParents)
	assert.Len(t, repo.items, 2)
}

func TestWorkScheduleServiceListChildrenRejectsNonTemplate(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewWorkScheduleService(repo, teacherLookup(7), validator.New(), zap.NewNop())

	single, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeacherID: 7,
		WorkDate:  "2024-01-01",
		StartTime: "08:00",
		EndTime:   "10:00",
		WorkType:  models.WorkTypeRegularClass,
		Content:   "Math",
	}, 1)
	require.NoError(t, err)

	_, err = svc.ListChildren(context.Background(), single.ID)
	require.Error(t, err)
}

func TestWorkScheduleServiceMarkAttendanceOwnership(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewWorkScheduleService(repo, teacherLookup(7), validator.New(), zap.NewNop())

	schedule, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeacherID: 7,
		WorkDate:  "2024-01-01",
		StartTime: "08:00",
		EndTime:   "10:00",
		WorkType:  models.WorkTypeRegularClass,
		Content:   "Math",
	}, 1)
	require.NoError(t, err)

	_, err = svc.MarkAttendance(context.Background(), schedule.ID, models.MarkAttendanceRequest{
		Status: models.AttendancePresent,
	}, 99, models.RoleTeacher)
	require.Error(t, err)

	marked, err := svc.MarkAttendance(context.Background(), schedule.ID, models.MarkAttendanceRequest{
		Status: models.AttendancePresent,
	}, 7, models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, marked.AttendanceStatus)

	absent, err := svc.MarkAttendance(context.Background(), schedule.ID, models.MarkAttendanceRequest{
		Status: models.AttendanceAbsent,
		Notes:  strPtr("sick"),
	}, 1, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAbsent, absent.AttendanceStatus)
}

func TestWorkScheduleServiceWritesDropDashboard(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewWorkScheduleService(repo, teacherLookup(7), validator.New(), zap.NewNop())
	dashboards := &spyDashboard{}
	svc.UseDashboard(dashboards)

	schedule, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeacherID: 7,
		WorkDate:  "2024-01-01",
		StartTime: "08:00",
		EndTime:   "10:00",
		WorkType:  models.WorkTypeRegularClass,
		Content:   "Math",
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, dashboards.teacherIDs)

	_, err = svc.MarkAttendance(context.Background(), schedule.ID, models.MarkAttendanceRequest{
		Status: models.AttendancePresent,
	}, 7, models.RoleTeacher)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), schedule.ID))
	assert.Equal(t, []int64{7, 7, 7}, dashboards.teacherIDs)
}

func TestWorkScheduleServiceSummary(t *testing.T) {
	repo := &mockScheduleRepo{
		rangeResult: []models.WorkSchedule{{ID: 1}, {ID: 2}},
		hours:       4.5,
		unmarked:    1,
	}
	svc := NewWorkScheduleService(repo, teacherLookup(7), validator.New(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC) }

	summary, err := svc.Summary(context.Background(), 7, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 4.5, summary.TotalHours)
	assert.Equal(t, 2, summary.TotalSchedules)
	assert.Equal(t, 1, summary.UnmarkedAttendance)
	assert.Equal(t, "Teacher One", summary.TeacherName)
}

func TestWeekBounds(t *testing.T) {
	monday, sunday := weekBounds(time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC))
	assert.Equal(t, "2024-03-04", monday.Format("2006-01-02"))
	assert.Equal(t, "2024-03-10", sunday.Format("2006-01-02"))

	// Sunday belongs to the week that started the previous Monday.
	monday, sunday = weekBounds(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-03-04", monday.Format("2006-01-02"))
	assert.Equal(t, "2024-03-10", sunday.Format("2006-01-02"))

	monday, _ = weekBounds(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-03-11", monday.Format("2006-01-02"))
}
