package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/minhvh/teacher-hub-api/internal/models"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
)

type mockCourseRepo struct {
	items       map[int64]*models.Course
	codes       map[string]bool
	nextID      int64
	deactivated []int64
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var out []models.Course
	for _, c := range m.items {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if c, ok := m.items[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return m.codes[code], nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.items == nil {
		m.items = make(map[int64]*models.Course)
	}
	if m.codes == nil {
		m.codes = make(map[string]bool)
	}
	m.nextID++
	course.ID = m.nextID
	m.codes[course.CourseCode] = true
	cp := *course
	m.items[course.ID] = &cp
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	cp := *course
	m.items[course.ID] = &cp
	return nil
}

func (m *mockCourseRepo) Deactivate(ctx context.Context, id int64) error {
	m.deactivated = append(m.deactivated, id)
	if c, ok := m.items[id]; ok {
		c.Active = false
	}
	return nil
}

func (m *mockCourseRepo) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Course, error) {
	return nil, nil
}

type mockAssignmentRepo struct {
	items              map[int64]*models.CourseAssignment
	nextID             int64
	deactivated        []int64
	deactivatedCourses []int64
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id int64) (*models.CourseAssignment, error) {
	if a, ok := m.items[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) ExistsActive(ctx context.Context, courseID, teacherID int64) (bool, error) {
	for _, a := range m.items {
		if a.CourseID == courseID && a.TeacherID == teacherID && a.Active {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.CourseAssignment) error {
	if m.items == nil {
		m.items = make(map[int64]*models.CourseAssignment)
	}
	m.nextID++
	assignment.ID = m.nextID
	cp := *assignment
	m.items[assignment.ID] = &cp
	return nil
}

func (m *mockAssignmentRepo) ListByCourse(ctx context.Context, courseID int64) ([]models.CourseAssignment, error) {
	var out []models.CourseAssignment
	for _, a := range m.items {
		if a.CourseID == courseID && a.Active {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) ListByTeacher(ctx context.Context, teacherID int64) ([]models.CourseAssignment, error) {
	return nil, nil
}

func (m *mockAssignmentRepo) Deactivate(ctx context.Context, id int64) error {
	m.deactivated = append(m.deactivated, id)
	if a, ok := m.items[id]; ok {
		a.Active = false
	}
	return nil
}

func (m *mockAssignmentRepo) DeactivateByCourse(ctx context.Context, courseID int64) error {
	m.deactivatedCourses = append(m.deactivatedCourses, courseID)
	for _, a := range m.items {
		if a.CourseID == courseID {
			a.Active = false
		}
	}
	return nil
}

type mockClassRepo struct {
	items              map[int64]*models.CourseClass
	nextID             int64
	deactivatedCourses []int64
	deactivatedPairs   [][2]int64
}

func (m *mockClassRepo) FindByID(ctx context.Context, id int64) (*models.CourseClass, error) {
	if c, ok := m.items[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.CourseClass) error {
	if m.items == nil {
		m.items = make(map[int64]*models.CourseClass)
	}
	m.nextID++
	class.ID = m.nextID
	cp := *class
	m.items[class.ID] = &cp
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.CourseClass) error {
	cp := *class
	m.items[class.ID] = &cp
	return nil
}

func (m *mockClassRepo) Deactivate(ctx context.Context, id int64) error {
	if c, ok := m.items[id]; ok {
		c.Active = false
	}
	return nil
}

func (m *mockClassRepo) DeactivateByCourse(ctx context.Context, courseID int64) error {
	m.deactivatedCourses = append(m.deactivatedCourses, courseID)
	for _, c := range m.items {
		if c.CourseID == courseID {
			c.Active = false
		}
	}
	return nil
}

func (m *mockClassRepo) DeactivateByCourseAndTeacher(ctx context.Context, courseID, teacherID int64) error {
	m.deactivatedPairs = append(m.deactivatedPairs, [2]int64{courseID, teacherID})
	for _, c := range m.items {
		if c.CourseID == courseID && c.TeacherID == teacherID {
			c.Active = false
		}
	}
	return nil
}

func (m *mockClassRepo) ListByCourse(ctx context.Context, courseID int64) ([]models.CourseClass, error) {
	var out []models.CourseClass
	for _, c := range m.items {
		if c.CourseID == courseID && c.Active {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockClassRepo) ListByTeacher(ctx context.Context, teacherID int64) ([]models.CourseClass, error) {
	return nil, nil
}

func newCourseFixture() (*CourseService, *mockCourseRepo, *mockAssignmentRepo, *mockClassRepo) {
	courses := &mockCourseRepo{}
	assignments := &mockAssignmentRepo{}
	classes := &mockClassRepo{}
	users := &mockUserLookup{users: map[int64]*models.User{
		7: {ID: 7, FullName: "Teacher One", Role: models.RoleTeacher, Enabled: true},
		1: {ID: 1, FullName: "Admin", Role: models.RoleAdmin, Enabled: true},
	}}
	svc := NewCourseService(courses, assignments, classes, users, validator.New(), zap.NewNop())
	return svc, courses, assignments, classes
}

func TestCourseServiceCreate(t *testing.T) {
	svc, _, _, _ := newCourseFixture()

	course, err := svc.Create(context.Background(), models.CreateCourseRequest{
		CourseCode: "MATH101",
		CourseName: "Algebra",
	}, 1)
	require.NoError(t, err)
	assert.True(t, course.Active)

	_, err = svc.Create(context.Background(), models.CreateCourseRequest{
		CourseCode: "MATH101",
		CourseName: "Algebra again",
	}, 1)
	require.Error(t, err)
}

func TestCourseServiceUpdateInactive(t *testing.T) {
	svc, courses, _, _ := newCourseFixture()

	course, err := svc.Create(context.Background(), models.CreateCourseRequest{
		CourseCode: "MATH101",
		CourseName: "Algebra",
	}, 1)
	require.NoError(t, err)

	courses.items[course.ID].Active = false
	_, err = svc.Update(context.Background(), course.ID, models.UpdateCourseRequest{
		CourseName: strPtr("Algebra II"),
	})
	require.Error(t, err)
}

func TestCourseServiceDeleteCascades(t *testing.T) {
	svc, courses, assignments, classes := newCourseFixture()

	course, err := svc.Create(context.Background(), models.CreateCourseRequest{
		CourseCode: "MATH101",
		CourseName: "Algebra",
	}, 1)
	require.NoError(t, err)

	_, err = svc.AssignTeacher(context.Background(), course.ID, models.AssignTeacherRequest{TeacherID: 7}, 1)
	require.NoError(t, err)
	class, err := svc.CreateClass(context.Background(), course.ID, models.CreateClassRequest{
		TeacherID: 7,
		ClassName: "10A",
	}, 1, models.RoleAdmin)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), course.ID))
	assert.Equal(t, []int64{course.ID}, courses.deactivated)
	assert.Equal(t, []int64{course.ID}, assignments.deactivatedCourses)
	assert.Equal(t, []int64{course.ID}, classes.deactivatedCourses)
	assert.False(t, classes.items[class.ID].Active)
}

func TestCourseServiceAssignTeacher(t *testing.T) {
	svc, _, _, _ := newCourseFixture()

	course, err := svc.Create(context.Background(), models.CreateCourseRequest{
		CourseCode: "MATH101",
		CourseName: "Algebra",
	}, 1)
	require.NoError(t, err)

	assignment, err := svc.AssignTeacher(context.Background(), course.ID, models.AssignTeacherRequest{TeacherID: 7}, 1)
	require.NoError(t, err)
	assert.True(t, assignment.Active)

	// Duplicate active assignment is rejected.
	_, err = svc.AssignTeacher(context.Background(), course.ID, models.AssignTeacherRequest{TeacherID: 7}, 1)
	require.Error(t, err)

	// Admins cannot be assigned as course teachers.
	_, err = svc.AssignTeacher(context.Background(), course.ID, models.AssignTeacherRequest{TeacherID: 1}, 1)
	require.Error(t, err)
}

func TestCourseServiceRemoveAssignmentCascades(t *testing.T) {
	svc, _, assignments, classes := newCourseFixture()

	course, err := svc.Create(context.Background(), models.CreateCourseRequest{
		CourseCode: "MATH101",
		CourseName: "Algebra",
	}, 1)
	require.NoError(t, err)
	assignment, err := svc.AssignTeacher(context.Background(), course.ID, models.AssignTeacherRequest{TeacherID: 7}, 1)
	require.NoError(t, err)
	class, err := svc.CreateClass(context.Background(), course.ID, models.CreateClassRequest{
		TeacherID: 7,
		ClassName: "10A",
	}, 1, models.RoleAdmin)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveAssignment(context.Background(), assignment.ID))
	assert.Equal(t, []int64{assignment.ID}, assignments.deactivated)
	assert.Equal(t, [][2]int64{{course.ID, 7}}, classes.deactivatedPairs)
	assert.False(t, classes.items[class.ID].Active)
}

func TestCourseServiceCreateClassRequiresAssignment(t *testing.T) {
	svc, _, _, _ := newCourseFixture()

	course, err := svc.Create(context.Background(), models.CreateCourseRequest{
		CourseCode: "MATH101",
		CourseName: "Algebra",
	}, 1)
	require.NoError(t, err)

	_, err = svc.CreateClass(context.Background(), course.ID, models.CreateClassRequest{
		TeacherID: 7,
		ClassName: "10A",
	}, 1, models.RoleAdmin)
	require.Error(t, err)
}

func TestCourseServiceClassAccessByAssignment(t *testing.T) {
	svc, _, _, _ := newCourseFixture()

	course, err := svc.Create(context.Background(), models.CreateCourseRequest{
		CourseCode: "MATH101",
		CourseName: "Algebra",
	}, 1)
	require.NoError(t, err)
	_, err = svc.AssignTeacher(context.Background(), course.ID, models.AssignTeacherRequest{TeacherID: 7}, 1)
	require.NoError(t, err)

	// An assigned teacher manages classes on their own course.
	class, err := svc.CreateClass(context.Background(), course.ID, models.CreateClassRequest{
		TeacherID: 7,
		ClassName: "10A",
	}, 7, models.RoleTeacher)
	require.NoError(t, err)

	updated, err := svc.UpdateClass(context.Background(), class.ID, models.UpdateClassRequest{
		ClassName: strPtr("10B"),
	}, 7, models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, "10B", updated.ClassName)

	// A teacher without an assignment is turned away.
	_, err = svc.UpdateClass(context.Background(), class.ID, models.UpdateClassRequest{
		ClassName: strPtr("10C"),
	}, 8, models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	err = svc.DeleteClass(context.Background(), class.ID, 8, models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// Admins stay unrestricted.
	require.NoError(t, svc.DeleteClass(context.Background(), class.ID, 1, models.RoleAdmin))
}
