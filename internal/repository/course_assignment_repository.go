package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/minhvh/teacher-hub-api/internal/models"
)

const assignmentColumns = `a.id, a.course_id, c.course_code, c.course_name, a.teacher_id,
	t.full_name AS teacher_name, t.email AS teacher_email, a.assigned_by, a.active, a.created_at`

const assignmentJoins = `FROM course_assignments a
	JOIN courses c ON c.id = a.course_id
	JOIN users t ON t.id = a.teacher_id`

// CourseAssignmentRepository manages persistence for teacher-course links.
type CourseAssignmentRepository struct {
	db *sqlx.DB
}

// NewCourseAssignmentRepository constructs a CourseAssignmentRepository.
func NewCourseAssignmentRepository(db *sqlx.DB) *CourseAssignmentRepository {
	return &CourseAssignmentRepository{db: db}
}

// FindByID fetches an assignment by ID.
func (r *CourseAssignmentRepository) FindByID(ctx context.Context, id int64) (*models.CourseAssignment, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE a.id = $1", assignmentColumns, assignmentJoins)
	var assignment models.CourseAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ExistsActive checks for an existing active assignment between course and teacher.
func (r *CourseAssignmentRepository) ExistsActive(ctx context.Context, courseID, teacherID int64) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists,
		"SELECT 1 FROM course_assignments WHERE course_id = $1 AND teacher_id = $2 AND active LIMIT 1",
		courseID, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return true, nil
}

// Create inserts an assignment and fills the generated ID.
func (r *CourseAssignmentRepository) Create(ctx context.Context, assignment *models.CourseAssignment) error {
	const query = `
		INSERT INTO course_assignments (course_id, teacher_id, assigned_by, active, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query,
		assignment.CourseID, assignment.TeacherID, assignment.AssignedBy, assignment.Active)
	if err := row.Scan(&assignment.ID, &assignment.CreatedAt); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// ListByCourse returns active assignments for a course.
func (r *CourseAssignmentRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.CourseAssignment, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE a.course_id = $1 AND a.active ORDER BY t.full_name ASC", assignmentColumns, assignmentJoins)
	var assignments []models.CourseAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, courseID); err != nil {
		return nil, fmt.Errorf("list assignments by course: %w", err)
	}
	return assignments, nil
}

// ListByTeacher returns active assignments held by a teacher.
func (r *CourseAssignmentRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.CourseAssignment, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE a.teacher_id = $1 AND a.active ORDER BY c.course_code ASC", assignmentColumns, assignmentJoins)
	var assignments []models.CourseAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list assignments by teacher: %w", err)
	}
	return assignments, nil
}

// Deactivate soft deletes an assignment.
func (r *CourseAssignmentRepository) Deactivate(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE course_assignments SET active = FALSE WHERE id = $1", id); err != nil {
		return fmt.Errorf("deactivate assignment: %w", err)
	}
	return nil
}

// DeactivateByCourse soft deletes all active assignments of a course; part of
// the course soft-delete cascade.
func (r *CourseAssignmentRepository) DeactivateByCourse(ctx context.Context, courseID int64) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE course_assignments SET active = FALSE WHERE course_id = $1 AND active", courseID); err != nil {
		return fmt.Errorf("deactivate assignments by course: %w", err)
	}
	return nil
}

// CountActive returns the number of active assignments.
func (r *CourseAssignmentRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM course_assignments WHERE active"); err != nil {
		return 0, fmt.Errorf("count active assignments: %w", err)
	}
	return count, nil
}
