package models

import "time"

// WorkType classifies a work-schedule block.
type WorkType string

const (
	WorkTypeRegularClass WorkType = "REGULAR_CLASS"
	WorkTypeSpecialEvent WorkType = "SPECIAL_EVENT"
	WorkTypeSupport      WorkType = "SUPPORT"
)

// Valid reports whether the work type is one of the known kinds.
func (t WorkType) Valid() bool {
	switch t {
	case WorkTypeRegularClass, WorkTypeSpecialEvent, WorkTypeSupport:
		return true
	}
	return false
}

// Display returns the human label shown in exports and synced records.
func (t WorkType) Display() string {
	switch t {
	case WorkTypeRegularClass:
		return "Regular class"
	case WorkTypeSpecialEvent:
		return "Special event"
	case WorkTypeSupport:
		return "Support / assistant"
	}
	return string(t)
}

// AttendanceStatus tracks whether a scheduled block was attended.
type AttendanceStatus string

const (
	AttendanceNotMarked AttendanceStatus = "NOT_MARKED"
	AttendancePresent   AttendanceStatus = "PRESENT"
	AttendanceAbsent    AttendanceStatus = "ABSENT"
)

// Valid reports whether the attendance status is one of the known values.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceNotMarked, AttendancePresent, AttendanceAbsent:
		return true
	}
	return false
}

// Display returns the human label shown in exports and synced records.
func (s AttendanceStatus) Display() string {
	switch s {
	case AttendanceNotMarked:
		return "Not marked"
	case AttendancePresent:
		return "Present"
	case AttendanceAbsent:
		return "Absent"
	}
	return string(s)
}

// WorkSchedule represents one work block for one teacher on one date.
// A record with IsRecurring true and no parent is a recurrence template;
// a record with a non-nil ParentScheduleID is a generated weekly child.
type WorkSchedule struct {
	ID               int64            `db:"id" json:"id"`
	TeacherID        int64            `db:"teacher_id" json:"teacher_id"`
	TeacherName      string           `db:"teacher_name" json:"teacher_name,omitempty"`
	WorkDate         time.Time        `db:"work_date" json:"work_date"`
	StartTime        string           `db:"start_time" json:"start_time"`
	EndTime          string           `db:"end_time" json:"end_time"`
	WorkType         WorkType         `db:"work_type" json:"work_type"`
	Location         *string          `db:"location" json:"location,omitempty"`
	Content          string           `db:"content" json:"content"`
	Notes            *string          `db:"notes" json:"notes,omitempty"`
	AttendanceStatus AttendanceStatus `db:"attendance_status" json:"attendance_status"`
	AttendanceNotes  *string          `db:"attendance_notes" json:"attendance_notes,omitempty"`
	CreatedBy        int64            `db:"created_by" json:"created_by"`
	IsRecurring      bool             `db:"is_recurring" json:"is_recurring"`
	RecurringEndDate *time.Time       `db:"recurring_end_date" json:"recurring_end_date,omitempty"`
	ParentScheduleID *int64           `db:"parent_schedule_id" json:"parent_schedule_id,omitempty"`
	WeekNumber       *int             `db:"week_number" json:"week_number,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// Duration returns the block length in hours, derived from the start and end
// times. It is never stored.
func (w WorkSchedule) Duration() float64 {
	start, err := time.Parse("15:04", clip(w.StartTime))
	if err != nil {
		return 0
	}
	end, err := time.Parse("15:04", clip(w.EndTime))
	if err != nil {
		return 0
	}
	return end.Sub(start).Hours()
}

// IsTemplate reports whether the record is a recurrence template.
func (w WorkSchedule) IsTemplate() bool {
	return w.IsRecurring && w.ParentScheduleID == nil
}

// IsChild reports whether the record was generated from a template.
func (w WorkSchedule) IsChild() bool {
	return w.ParentScheduleID != nil
}

// Postgres TIME columns scan with seconds attached; keep HH:MM.
func clip(t string) string {
	if len(t) > 5 {
		return t[:5]
	}
	return t
}

// CreateScheduleRequest is the payload for creating a work block. Dates use
// the 2006-01-02 layout and times the 15:04 layout.
type CreateScheduleRequest struct {
	TeacherID        int64    `json:"teacher_id" validate:"required"`
	WorkDate         string   `json:"work_date" validate:"required,datetime=2006-01-02"`
	StartTime        string   `json:"start_time" validate:"required,datetime=15:04"`
	EndTime          string   `json:"end_time" validate:"required,datetime=15:04"`
	WorkType         WorkType `json:"work_type" validate:"required"`
	Location         *string  `json:"location"`
	Content          string   `json:"content" validate:"required"`
	Notes            *string  `json:"notes"`
	IsRecurring      bool     `json:"is_recurring"`
	RecurringEndDate *string  `json:"recurring_end_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateScheduleRequest is the payload for updating a work block. Nil fields
// are left unchanged.
type UpdateScheduleRequest struct {
	WorkDate  *string   `json:"work_date" validate:"omitempty,datetime=2006-01-02"`
	StartTime *string   `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime   *string   `json:"end_time" validate:"omitempty,datetime=15:04"`
	WorkType  *WorkType `json:"work_type"`
	Location  *string   `json:"location"`
	Content   *string   `json:"content"`
	Notes     *string   `json:"notes"`
}

// MarkAttendanceRequest records whether a block was attended.
type MarkAttendanceRequest struct {
	Status AttendanceStatus `json:"status" validate:"required"`
	Notes  *string          `json:"notes"`
}

// TeacherWorkSummary aggregates a teacher's current-week workload.
type TeacherWorkSummary struct {
	TeacherID          int64     `db:"teacher_id" json:"teacher_id"`
	TeacherName        string    `db:"teacher_name" json:"teacher_name"`
	TeacherEmail       string    `db:"teacher_email" json:"teacher_email"`
	TotalHours         float64   `db:"total_hours" json:"total_hours"`
	TotalSchedules     int       `db:"total_schedules" json:"total_schedules"`
	UnmarkedAttendance int       `db:"unmarked_attendance" json:"unmarked_attendance"`
	GeneratedAt        time.Time `json:"generated_at"`
}
