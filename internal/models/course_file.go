package models

import "time"

// FileCategory groups uploaded course materials.
type FileCategory string

const (
	FileCategoryTeaching  FileCategory = "TEACHING"
	FileCategoryReference FileCategory = "REFERENCE"
	FileCategoryOther     FileCategory = "OTHER"
)

// Valid reports whether the category is one of the known values.
func (c FileCategory) Valid() bool {
	switch c {
	case FileCategoryTeaching, FileCategoryReference, FileCategoryOther:
		return true
	}
	return false
}

// CourseFile is an uploaded document attached to a course.
type CourseFile struct {
	ID           int64        `db:"id" json:"id"`
	CourseID     int64        `db:"course_id" json:"course_id"`
	FileName     string       `db:"file_name" json:"file_name"`
	OriginalName string       `db:"original_name" json:"original_name"`
	FilePath     string       `db:"file_path" json:"-"`
	FileCategory FileCategory `db:"file_category" json:"file_category"`
	FileSize     int64        `db:"file_size" json:"file_size"`
	ContentType  string       `db:"content_type" json:"content_type"`
	UploadedBy   int64        `db:"uploaded_by" json:"uploaded_by"`
	UploaderName string       `db:"uploader_name" json:"uploader_name,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}
