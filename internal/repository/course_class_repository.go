package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/minhvh/teacher-hub-api/internal/models"
)

const classColumns = `k.id, k.course_id, c.course_code, c.course_name, k.teacher_id,
	t.full_name AS teacher_name, k.class_name, k.schedule, k.student_list, k.active,
	k.created_by, k.created_at, k.updated_at`

const classJoins = `FROM course_classes k
	JOIN courses c ON c.id = k.course_id
	JOIN users t ON t.id = k.teacher_id`

// CourseClassRepository manages persistence for course classes.
type CourseClassRepository struct {
	db *sqlx.DB
}

// NewCourseClassRepository constructs a CourseClassRepository.
func NewCourseClassRepository(db *sqlx.DB) *CourseClassRepository {
	return &CourseClassRepository{db: db}
}

// FindByID fetches a class by ID.
func (r *CourseClassRepository) FindByID(ctx context.Context, id int64) (*models.CourseClass, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE k.id = $1", classColumns, classJoins)
	var class models.CourseClass
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create inserts a class and fills the generated ID and timestamps.
func (r *CourseClassRepository) Create(ctx context.Context, class *models.CourseClass) error {
	const query = `
		INSERT INTO course_classes (course_id, teacher_id, class_name, schedule, student_list, active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query,
		class.CourseID, class.TeacherID, class.ClassName, class.Schedule, class.StudentList, class.Active, class.CreatedBy)
	if err := row.Scan(&class.ID, &class.CreatedAt, &class.UpdatedAt); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update persists mutable class fields.
func (r *CourseClassRepository) Update(ctx context.Context, class *models.CourseClass) error {
	const query = `
		UPDATE course_classes
		SET class_name = $2, schedule = $3, student_list = $4, updated_at = NOW()
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, class.ID, class.ClassName, class.Schedule, class.StudentList); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Deactivate soft deletes a class.
func (r *CourseClassRepository) Deactivate(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE course_classes SET active = FALSE, updated_at = NOW() WHERE id = $1", id); err != nil {
		return fmt.Errorf("deactivate class: %w", err)
	}
	return nil
}

// DeactivateByCourse soft deletes all active classes of a course; part of the
// course soft-delete cascade.
func (r *CourseClassRepository) DeactivateByCourse(ctx context.Context, courseID int64) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE course_classes SET active = FALSE, updated_at = NOW() WHERE course_id = $1 AND active", courseID); err != nil {
		return fmt.Errorf("deactivate classes by course: %w", err)
	}
	return nil
}

// DeactivateByCourseAndTeacher soft deletes a teacher's active classes of a
// course; part of the assignment removal cascade.
func (r *CourseClassRepository) DeactivateByCourseAndTeacher(ctx context.Context, courseID, teacherID int64) error {
	const query = `
		UPDATE course_classes SET active = FALSE, updated_at = NOW()
		WHERE course_id = $1 AND teacher_id = $2 AND active`
	if _, err := r.db.ExecContext(ctx, query, courseID, teacherID); err != nil {
		return fmt.Errorf("deactivate classes by course and teacher: %w", err)
	}
	return nil
}

// ListByCourse returns active classes of a course.
func (r *CourseClassRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.CourseClass, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE k.course_id = $1 AND k.active ORDER BY k.class_name ASC", classColumns, classJoins)
	var classes []models.CourseClass
	if err := r.db.SelectContext(ctx, &classes, query, courseID); err != nil {
		return nil, fmt.Errorf("list classes by course: %w", err)
	}
	return classes, nil
}

// ListByTeacher returns a teacher's active classes.
func (r *CourseClassRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.CourseClass, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE k.teacher_id = $1 AND k.active ORDER BY k.class_name ASC", classColumns, classJoins)
	var classes []models.CourseClass
	if err := r.db.SelectContext(ctx, &classes, query, teacherID); err != nil {
		return nil, fmt.Errorf("list classes by teacher: %w", err)
	}
	return classes, nil
}

// ListByCourseAndTeacher returns a teacher's active classes for one course.
func (r *CourseClassRepository) ListByCourseAndTeacher(ctx context.Context, courseID, teacherID int64) ([]models.CourseClass, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE k.course_id = $1 AND k.teacher_id = $2 AND k.active ORDER BY k.class_name ASC", classColumns, classJoins)
	var classes []models.CourseClass
	if err := r.db.SelectContext(ctx, &classes, query, courseID, teacherID); err != nil {
		return nil, fmt.Errorf("list classes by course and teacher: %w", err)
	}
	return classes, nil
}

// CountActive returns the number of active classes.
func (r *CourseClassRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM course_classes WHERE active"); err != nil {
		return 0, fmt.Errorf("count active classes: %w", err)
	}
	return count, nil
}

// CountByTeacher returns the number of a teacher's active classes.
func (r *CourseClassRepository) CountByTeacher(ctx context.Context, teacherID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM course_classes WHERE teacher_id = $1 AND active", teacherID); err != nil {
		return 0, fmt.Errorf("count classes by teacher: %w", err)
	}
	return count, nil
}
