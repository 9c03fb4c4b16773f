package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/minhvh/teacher-hub-api/internal/models"
)

const courseColumns = `c.id, c.course_code, c.course_name, c.description, c.teaching_materials,
	c.reference_materials, c.active, c.created_by, u.full_name AS created_by_name, c.created_at, c.updated_at`

// CourseRepository manages persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns active courses matching filters along with the total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses c JOIN users u ON u.id = c.created_by WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("c.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.course_code) LIKE $%d OR LOWER(c.course_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY c.created_at DESC", courseColumns, base)
	f := filter.ListFilter
	f.Normalize()
	if f.Paged() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (f.Page-1)*f.PageSize)
	}

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	return courses, total, nil
}

// FindByID fetches a course by ID regardless of active state.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses c JOIN users u ON u.id = c.created_by WHERE c.id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ExistsByCode checks for an existing course code.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM courses WHERE LOWER(course_code) = LOWER($1) LIMIT 1", code)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// Create inserts a course and fills the generated ID and timestamps.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	const query = `
		INSERT INTO courses (course_code, course_name, description, teaching_materials, reference_materials, active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query,
		course.CourseCode, course.CourseName, course.Description, course.TeachingMaterials,
		course.ReferenceMaterials, course.Active, course.CreatedBy)
	if err := row.Scan(&course.ID, &course.CreatedAt, &course.UpdatedAt); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update persists mutable course fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	const query = `
		UPDATE courses
		SET course_name = $2, description = $3, teaching_materials = $4, reference_materials = $5, updated_at = NOW()
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		course.ID, course.CourseName, course.Description, course.TeachingMaterials, course.ReferenceMaterials); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Deactivate soft deletes a course.
func (r *CourseRepository) Deactivate(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE courses SET active = FALSE, updated_at = NOW() WHERE id = $1", id); err != nil {
		return fmt.Errorf("deactivate course: %w", err)
	}
	return nil
}

// ListByTeacher returns active courses the teacher is actively assigned to.
func (r *CourseRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Course, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM courses c
		JOIN users u ON u.id = c.created_by
		JOIN course_assignments a ON a.course_id = c.id AND a.active
		WHERE c.active AND a.teacher_id = $1
		ORDER BY c.course_code ASC`, courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, teacherID); err != nil {
		return nil, fmt.Errorf("list courses by teacher: %w", err)
	}
	return courses, nil
}

// ListAll returns every course ordered by id; used by the Lark sync batches.
func (r *CourseRepository) ListAll(ctx context.Context) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses c JOIN users u ON u.id = c.created_by ORDER BY c.id ASC", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list all courses: %w", err)
	}
	return courses, nil
}

// CountActive returns the number of active courses.
func (r *CourseRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM courses WHERE active"); err != nil {
		return 0, fmt.Errorf("count active courses: %w", err)
	}
	return count, nil
}

// CountByTeacher returns the number of active courses assigned to a teacher.
func (r *CourseRepository) CountByTeacher(ctx context.Context, teacherID int64) (int, error) {
	const query = `
		SELECT COUNT(*) FROM courses c
		JOIN course_assignments a ON a.course_id = c.id AND a.active
		WHERE c.active AND a.teacher_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID); err != nil {
		return 0, fmt.Errorf("count courses by teacher: %w", err)
	}
	return count, nil
}
