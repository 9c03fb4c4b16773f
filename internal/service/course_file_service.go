package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/minhvh/teacher-hub-api/internal/models"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
	"github.com/minhvh/teacher-hub-api/pkg/storage"
)

type courseFileRepository interface {
	Create(ctx context.Context, f *models.CourseFile) error
	FindByID(ctx context.Context, id int64) (*models.CourseFile, error)
	ListByCourse(ctx context.Context, courseID int64, category models.FileCategory) ([]models.CourseFile, error)
	Delete(ctx context.Context, id int64) error
}

type fileCourseLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

// CourseFileService provides upload, download and listing of course
// materials.
type CourseFileService struct {
	repo    courseFileRepository
	courses fileCourseLookup
	uploads *storage.UploadStorage
	logger  *zap.Logger
}

// NewCourseFileService constructs a CourseFileService instance.
func NewCourseFileService(repo courseFileRepository, courses fileCourseLookup, uploads *storage.UploadStorage, logger *zap.Logger) *CourseFileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseFileService{repo: repo, courses: courses, uploads: uploads, logger: logger}
}

// Upload validates and stores a document, then records it against the course.
func (s *CourseFileService) Upload(ctx context.Context, courseID int64, category models.FileCategory, originalName string, size int64, r io.Reader, uploadedBy int64) (*models.CourseFile, error) {
	if !category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown file category")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "course is inactive")
	}

	if err := s.uploads.ValidateDocument(originalName, size); err != nil {
		return nil, err
	}

	path, err := s.uploads.SaveStream("courses", originalName, r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	file := &models.CourseFile{
		CourseID:     courseID,
		FileName:     filepath.Base(path),
		OriginalName: originalName,
		FilePath:     path,
		FileCategory: category,
		FileSize:     size,
		ContentType:  storage.ContentType(originalName),
		UploadedBy:   uploadedBy,
	}
	if err := s.repo.Create(ctx, file); err != nil {
		if cleanupErr := s.uploads.Delete(path); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record file")
	}

	s.logger.Info("course file uploaded",
		zap.Int64("file_id", file.ID),
		zap.Int64("course_id", courseID),
		zap.Int64("size", size))

	return file, nil
}

// List returns a course's files, optionally limited to one category.
func (s *CourseFileService) List(ctx context.Context, courseID int64, category models.FileCategory) ([]models.CourseFile, error) {
	if category != "" && !category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown file category")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	files, err := s.repo.ListByCourse(ctx, courseID, category)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	return files, nil
}

// Open returns a stored document for download along with its metadata.
func (s *CourseFileService) Open(ctx context.Context, id int64) (io.ReadCloser, *models.CourseFile, error) {
	file, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	reader, err := s.uploads.Open(file.FilePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return reader, file, nil
}

// Delete removes a file record and its stored bytes. Only the uploader or an
// admin may delete.
func (s *CourseFileService) Delete(ctx context.Context, id int64, actorID int64, actorRole models.UserRole) error {
	file, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	if actorRole != models.RoleAdmin && file.UploadedBy != actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot delete another user's file")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
	}
	if err := s.uploads.Delete(file.FilePath); err != nil {
		s.logger.Warn("failed to remove stored file", zap.Error(err), zap.Int64("file_id", id))
	}
	return nil
}
