package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minhvh/teacher-hub-api/internal/models"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Deactivate(ctx context.Context, id int64) error
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.Course, error)
}

type assignmentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.CourseAssignment, error)
	ExistsActive(ctx context.Context, courseID, teacherID int64) (bool, error)
	Create(ctx context.Context, assignment *models.CourseAssignment) error
	ListByCourse(ctx context.Context, courseID int64) ([]models.CourseAssignment, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.CourseAssignment, error)
	Deactivate(ctx context.Context, id int64) error
	DeactivateByCourse(ctx context.Context, courseID int64) error
}

type classRepository interface {
	FindByID(ctx context.Context, id int64) (*models.CourseClass, error)
	Create(ctx context.Context, class *models.CourseClass) error
	Update(ctx context.Context, class *models.CourseClass) error
	Deactivate(ctx context.Context, id int64) error
	DeactivateByCourse(ctx context.Context, courseID int64) error
	DeactivateByCourseAndTeacher(ctx context.Context, courseID, teacherID int64) error
	ListByCourse(ctx context.Context, courseID int64) ([]models.CourseClass, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.CourseClass, error)
}

type courseUserLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// CourseService provides course, assignment and class use cases.
type CourseService struct {
	courses     courseRepository
	assignments assignmentRepository
	classes     classRepository
	users       courseUserLookup
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(courses courseRepository, assignments assignmentRepository, classes classRepository, users courseUserLookup, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{
		courses:     courses,
		assignments: assignments,
		classes:     classes,
		users:       users,
		validator:   validate,
		logger:      logger,
	}
}

// List returns courses matching the filter with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	filter.Normalize()
	return courses, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one course by ID.
func (s *CourseService) Get(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create registers a new course. Course codes are unique.
func (s *CourseService) Create(ctx context.Context, req models.CreateCourseRequest, createdBy int64) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	taken, err := s.courses.ExistsByCode(ctx, req.CourseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already in use")
	}

	course := &models.Course{
		CourseCode:         req.CourseCode,
		CourseName:         req.CourseName,
		Description:        req.Description,
		TeachingMaterials:  req.TeachingMaterials,
		ReferenceMaterials: req.ReferenceMaterials,
		Active:             true,
		CreatedBy:          createdBy,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.logger.Info("course created",
		zap.Int64("course_id", course.ID),
		zap.String("course_code", course.CourseCode))

	return course, nil
}

// Update modifies an active course. Nil request fields are left unchanged.
func (s *CourseService) Update(ctx context.Context, id int64, req models.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "course is inactive")
	}

	if req.CourseName != nil {
		course.CourseName = *req.CourseName
	}
	if req.Description != nil {
		course.Description = req.Description
	}
	if req.TeachingMaterials != nil {
		course.TeachingMaterials = req.TeachingMaterials
	}
	if req.ReferenceMaterials != nil {
		course.ReferenceMaterials = req.ReferenceMaterials
	}

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete soft deletes a course, cascading to its active assignments and
// classes.
func (s *CourseService) Delete(ctx context.Context, id int64) error {
	course, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.classes.DeactivateByCourse(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate classes")
	}
	if err := s.assignments.DeactivateByCourse(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate assignments")
	}
	if err := s.courses.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
	}

	s.logger.Info("course deactivated",
		zap.Int64("course_id", id),
		zap.String("course_code", course.CourseCode))

	return nil
}

// ListByTeacher returns the active courses a teacher is assigned to.
func (s *CourseService) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Course, error) {
	courses, err := s.courses.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses by teacher")
	}
	return courses, nil
}

// AssignTeacher links a teacher to a course. The teacher must exist, hold the
// TEACHER role, and not already be assigned.
func (s *CourseService) AssignTeacher(ctx context.Context, courseID int64, req models.AssignTeacherRequest, assignedBy int64) (*models.CourseAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	course, err := s.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "course is inactive")
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

	exists, err := s.assignments.ExistsActive(ctx, courseID, req.TeacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher already assigned to course")
	}

	assignment := &models.CourseAssignment{
		CourseID:   courseID,
		TeacherID:  req.TeacherID,
		AssignedBy: assignedBy,
		Active:     true,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.logger.Info("teacher assigned to course",
		zap.Int64("course_id", courseID),
		zap.Int64("teacher_id", req.TeacherID))

	return assignment, nil
}

// ListAssignments returns the active assignments of a course.
func (s *CourseService) ListAssignments(ctx context.Context, courseID int64) ([]models.CourseAssignment, error) {
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// RemoveAssignment deactivates an assignment, cascading to the teacher's
// classes under that course.
func (s *CourseService) RemoveAssignment(ctx context.Context, assignmentID int64) error {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	if err := s.classes.DeactivateByCourseAndTeacher(ctx, assignment.CourseID, assignment.TeacherID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate teacher classes")
	}
	if err := s.assignments.Deactivate(ctx, assignmentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate assignment")
	}

	s.logger.Info("assignment removed",
		zap.Int64("assignment_id", assignmentID),
		zap.Int64("course_id", assignment.CourseID),
		zap.Int64("teacher_id", assignment.TeacherID))

	return nil
}

// ensureClassAccess lets admins through and requires teachers to hold an
// active assignment on the course before touching its classes.
func (s *CourseService) ensureClassAccess(ctx context.Context, courseID, actorID int64, actorRole models.UserRole) error {
	if actorRole == models.RoleAdmin {
		return nil
	}
	assigned, err := s.assignments.ExistsActive(ctx, courseID, actorID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !assigned {
		return appErrors.Clone(appErrors.ErrForbidden, "not assigned to course")
	}
	return nil
}

// CreateClass opens a class under a course for an assigned teacher.
func (s *CourseService) CreateClass(ctx context.Context, courseID int64, req models.CreateClassRequest, actorID int64, actorRole models.UserRole) (*models.CourseClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	course, err := s.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "course is inactive")
	}

	if err := s.ensureClassAccess(ctx, courseID, actorID, actorRole); err != nil {
		return nil, err
	}

	assigned, err := s.assignments.ExistsActive(ctx, courseID, req.TeacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !assigned {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is not assigned to course")
	}

	class := &models.CourseClass{
		CourseID:    courseID,
		TeacherID:   req.TeacherID,
		ClassName:   req.ClassName,
		Schedule:    req.Schedule,
		StudentList: req.StudentList,
		Active:      true,
		CreatedBy:   actorID,
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	return class, nil
}

// GetClass returns one class by ID.
func (s *CourseService) GetClass(ctx context.Context, id int64) (*models.CourseClass, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// UpdateClass modifies an active class. Nil request fields are left unchanged.
func (s *CourseService) UpdateClass(ctx context.Context, id int64, req models.UpdateClassRequest, actorID int64, actorRole models.UserRole) (*models.CourseClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class, err := s.GetClass(ctx, id)
	if err != nil {
		return nil, err
	}
	if !class.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "class is inactive")
	}
	if err := s.ensureClassAccess(ctx, class.CourseID, actorID, actorRole); err != nil {
		return nil, err
	}

	if req.ClassName != nil {
		class.ClassName = *req.ClassName
	}
	if req.Schedule != nil {
		class.Schedule = req.Schedule
	}
	if req.StudentList != nil {
		class.StudentList = req.StudentList
	}

	if err := s.classes.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// DeleteClass soft deletes a class.
func (s *CourseService) DeleteClass(ctx context.Context, id int64, actorID int64, actorRole models.UserRole) error {
	class, err := s.GetClass(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ensureClassAccess(ctx, class.CourseID, actorID, actorRole); err != nil {
		return err
	}
	if err := s.classes.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate class")
	}
	return nil
}

// ListClasses returns the active classes of a course.
func (s *CourseService) ListClasses(ctx context.Context, courseID int64) ([]models.CourseClass, error) {
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}
	classes, err := s.classes.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// ListClassesByTeacher returns a teacher's active classes.
func (s *CourseService) ListClassesByTeacher(ctx context.Context, teacherID int64) ([]models.CourseClass, error) {
	classes, err := s.classes.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes by teacher")
	}
	return classes, nil
}
