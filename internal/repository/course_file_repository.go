package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/minhvh/teacher-hub-api/internal/models"
)

const fileColumns = `f.id, f.course_id, f.file_name, f.original_name, f.file_path,
	f.file_category, f.file_size, f.content_type, f.uploaded_by,
	u.full_name AS uploader_name, f.created_at`

const fileJoins = `FROM course_files f
	JOIN users u ON u.id = f.uploaded_by`

// CourseFileRepository manages persistence for uploaded course materials.
type CourseFileRepository struct {
	db *sqlx.DB
}

// NewCourseFileRepository constructs a CourseFileRepository.
func NewCourseFileRepository(db *sqlx.DB) *CourseFileRepository {
	return &CourseFileRepository{db: db}
}

// Create inserts a file record and fills the generated ID and timestamp.
func (r *CourseFileRepository) Create(ctx context.Context, f *models.CourseFile) error {
	const query = `
		INSERT INTO course_files (course_id, file_name, original_name, file_path, file_category,
			file_size, content_type, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query,
		f.CourseID, f.FileName, f.OriginalName, f.FilePath, f.FileCategory,
		f.FileSize, f.ContentType, f.UploadedBy)
	if err := row.Scan(&f.ID, &f.CreatedAt); err != nil {
		return fmt.Errorf("create course file: %w", err)
	}
	return nil
}

// FindByID fetches a file record by ID.
func (r *CourseFileRepository) FindByID(ctx context.Context, id int64) (*models.CourseFile, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE f.id = $1", fileColumns, fileJoins)
	var file models.CourseFile
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		return nil, err
	}
	return &file, nil
}

// ListByCourse returns a course's files, optionally limited to one category.
func (r *CourseFileRepository) ListByCourse(ctx context.Context, courseID int64, category models.FileCategory) ([]models.CourseFile, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE f.course_id = $1", fileColumns, fileJoins)
	args := []interface{}{courseID}
	if category != "" {
		query += " AND f.file_category = $2"
		args = append(args, category)
	}
	query += " ORDER BY f.created_at DESC"

	var files []models.CourseFile
	if err := r.db.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, fmt.Errorf("list course files: %w", err)
	}
	return files, nil
}

// Delete removes a file record.
func (r *CourseFileRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM course_files WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete course file: %w", err)
	}
	return nil
}
