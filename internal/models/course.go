package models

import "time"

// Course represents a subject taught at the school.
type Course struct {
	ID                 int64     `db:"id" json:"id"`
	CourseCode         string    `db:"course_code" json:"course_code"`
	CourseName         string    `db:"course_name" json:"course_name"`
	Description        *string   `db:"description" json:"description,omitempty"`
	TeachingMaterials  *string   `db:"teaching_materials" json:"teaching_materials,omitempty"`
	ReferenceMaterials *string   `db:"reference_materials" json:"reference_materials,omitempty"`
	Active             bool      `db:"active" json:"active"`
	CreatedBy          int64     `db:"created_by" json:"created_by"`
	CreatedByName      string    `db:"created_by_name" json:"created_by_name,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// CourseAssignment links a teacher to a course.
type CourseAssignment struct {
	ID           int64     `db:"id" json:"id"`
	CourseID     int64     `db:"course_id" json:"course_id"`
	CourseCode   string    `db:"course_code" json:"course_code,omitempty"`
	CourseName   string    `db:"course_name" json:"course_name,omitempty"`
	TeacherID    int64     `db:"teacher_id" json:"teacher_id"`
	TeacherName  string    `db:"teacher_name" json:"teacher_name,omitempty"`
	TeacherEmail string    `db:"teacher_email" json:"teacher_email,omitempty"`
	AssignedBy   int64     `db:"assigned_by" json:"assigned_by"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CourseClass is a concrete class of a course taught by an assigned teacher.
type CourseClass struct {
	ID          int64     `db:"id" json:"id"`
	CourseID    int64     `db:"course_id" json:"course_id"`
	CourseCode  string    `db:"course_code" json:"course_code,omitempty"`
	CourseName  string    `db:"course_name" json:"course_name,omitempty"`
	TeacherID   int64     `db:"teacher_id" json:"teacher_id"`
	TeacherName string    `db:"teacher_name" json:"teacher_name,omitempty"`
	ClassName   string    `db:"class_name" json:"class_name"`
	Schedule    *string   `db:"schedule" json:"schedule,omitempty"`
	StudentList *string   `db:"student_list" json:"student_list,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedBy   int64     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	CourseCode         string  `json:"course_code" validate:"required,max=20"`
	CourseName         string  `json:"course_name" validate:"required,max=200"`
	Description        *string `json:"description"`
	TeachingMaterials  *string `json:"teaching_materials"`
	ReferenceMaterials *string `json:"reference_materials"`
}

// UpdateCourseRequest is the payload for updating a course. Nil fields are
// left unchanged; the course code is immutable.
type UpdateCourseRequest struct {
	CourseName         *string `json:"course_name" validate:"omitempty,max=200"`
	Description        *string `json:"description"`
	TeachingMaterials  *string `json:"teaching_materials"`
	ReferenceMaterials *string `json:"reference_materials"`
}

// AssignTeacherRequest links a teacher to a course.
type AssignTeacherRequest struct {
	TeacherID int64 `json:"teacher_id" validate:"required"`
}

// CreateClassRequest is the payload for opening a class under a course.
type CreateClassRequest struct {
	TeacherID   int64   `json:"teacher_id" validate:"required"`
	ClassName   string  `json:"class_name" validate:"required,max=100"`
	Schedule    *string `json:"schedule"`
	StudentList *string `json:"student_list"`
}

// UpdateClassRequest is the payload for updating a class.
type UpdateClassRequest struct {
	ClassName   *string `json:"class_name" validate:"omitempty,max=100"`
	Schedule    *string `json:"schedule"`
	StudentList *string `json:"student_list"`
}

// CourseFilter captures filtering criteria for listing courses.
type CourseFilter struct {
	Active *bool
	Search string
	ListFilter
}
