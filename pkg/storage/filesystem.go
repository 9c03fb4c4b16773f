package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
)

var documentExtensions = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".txt":  "text/plain",
	".rtf":  "application/rtf",
}

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
}

// UploadStorage persists uploaded files on disk under a base directory.
type UploadStorage struct {
	baseDir          string
	maxDocumentBytes int64
	maxImageBytes    int64
}

// NewUploadStorage ensures the base directory exists and returns a handle.
func NewUploadStorage(baseDir string, maxDocumentBytes, maxImageBytes int64) (*UploadStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if maxDocumentBytes <= 0 {
		maxDocumentBytes = 50 * 1024 * 1024
	}
	if maxImageBytes <= 0 {
		maxImageBytes = 5 * 1024 * 1024
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &UploadStorage{baseDir: baseDir, maxDocumentBytes: maxDocumentBytes, maxImageBytes: maxImageBytes}, nil
}

// ValidateDocument checks an uploaded course document against the allowed
// extension set and size ceiling.
func (s *UploadStorage) ValidateDocument(filename string, size int64) error {
	if size <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "file must not be empty")
	}
	if size > s.maxDocumentBytes {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file too large, maximum is %dMB", s.maxDocumentBytes/(1024*1024)))
	}
	ext := extensionOf(filename)
	if _, ok := documentExtensions[ext]; !ok {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported file type: "+ext)
	}
	return nil
}

// ValidateImage checks an uploaded image against the allowed extension set
// and size ceiling.
func (s *UploadStorage) ValidateImage(filename string, size int64) error {
	if size <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "image must not be empty")
	}
	if size > s.maxImageBytes {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("image too large, maximum is %dMB", s.maxImageBytes/(1024*1024)))
	}
	ext := extensionOf(filename)
	if _, ok := imageExtensions[ext]; !ok {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported image type: "+ext)
	}
	return nil
}

// SaveStream stores a stream under dir with a generated unique name and
// returns the relative path.
func (s *UploadStorage) SaveStream(dir, originalName string, r io.Reader) (string, error) {
	unique := uuid.NewString() + extensionOf(originalName)
	rel := filepath.Join(dir, unique)
	path := s.resolve(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write upload stream: %w", err)
	}
	return rel, nil
}

// Open returns a read-only handle for a stored file.
func (s *UploadStorage) Open(rel string) (*os.File, error) {
	file, err := os.Open(s.resolve(rel))
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *UploadStorage) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	if err := os.Remove(s.resolve(rel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// Exists reports whether a stored file is present on disk.
func (s *UploadStorage) Exists(rel string) bool {
	_, err := os.Stat(s.resolve(rel))
	return err == nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *UploadStorage) Path(rel string) string {
	return s.resolve(rel)
}

// ContentType maps a file name to a MIME type based on its extension.
func ContentType(filename string) string {
	ext := extensionOf(filename)
	if ct, ok := documentExtensions[ext]; ok {
		return ct
	}
	if ct, ok := imageExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

func extensionOf(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func (s *UploadStorage) resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(s.baseDir, rel)
}
