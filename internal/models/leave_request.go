package models

import "time"

// LeaveType classifies a leave request.
type LeaveType string

const (
	LeaveAnnual   LeaveType = "ANNUAL"
	LeaveSick     LeaveType = "SICK"
	LeavePersonal LeaveType = "PERSONAL"
	LeaveUnpaid   LeaveType = "UNPAID"
	LeaveOther    LeaveType = "OTHER"
)

// Valid reports whether the leave type is one of the known kinds.
func (t LeaveType) Valid() bool {
	switch t {
	case LeaveAnnual, LeaveSick, LeavePersonal, LeaveUnpaid, LeaveOther:
		return true
	}
	return false
}

// LeaveStatus is the workflow state of a leave request. PENDING is the only
// non-terminal state; no transition leaves a terminal state.
type LeaveStatus string

const (
	LeavePending   LeaveStatus = "PENDING"
	LeaveApproved  LeaveStatus = "APPROVED"
	LeaveRejected  LeaveStatus = "REJECTED"
	LeaveCancelled LeaveStatus = "CANCELLED"
)

// Terminal reports whether no further transition is permitted.
func (s LeaveStatus) Terminal() bool {
	return s == LeaveApproved || s == LeaveRejected || s == LeaveCancelled
}

// LeaveRequest represents a teacher's request for time off.
type LeaveRequest struct {
	ID             int64       `db:"id" json:"id"`
	TeacherID      int64       `db:"teacher_id" json:"teacher_id"`
	TeacherName    string      `db:"teacher_name" json:"teacher_name,omitempty"`
	TeacherEmail   string      `db:"teacher_email" json:"teacher_email,omitempty"`
	LeaveType      LeaveType   `db:"leave_type" json:"leave_type"`
	StartDate      time.Time   `db:"start_date" json:"start_date"`
	EndDate        time.Time   `db:"end_date" json:"end_date"`
	Reason         string      `db:"reason" json:"reason"`
	Status         LeaveStatus `db:"status" json:"status"`
	ApprovedBy     *int64      `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedByName *string     `db:"approved_by_name" json:"approved_by_name,omitempty"`
	AdminNotes     *string     `db:"admin_notes" json:"admin_notes,omitempty"`
	ApprovedAt     *time.Time  `db:"approved_at" json:"approved_at,omitempty"`
	TotalDays      int         `db:"-" json:"total_days"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// DayCount returns the inclusive day span between start and end date.
func (r LeaveRequest) DayCount() int {
	return EpochDays(r.EndDate) - EpochDays(r.StartDate) + 1
}

// EpochDays converts a date to whole days since the Unix epoch.
func EpochDays(t time.Time) int {
	year, month, day := t.Date()
	utc := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return int(utc.Unix() / 86400)
}

// CreateLeaveRequest is the payload for submitting a leave request. Dates use
// the 2006-01-02 layout.
type CreateLeaveRequest struct {
	LeaveType LeaveType `json:"leave_type" validate:"required"`
	StartDate string    `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string    `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason    string    `json:"reason" validate:"required"`
}

// UpdateLeaveRequest is the payload for editing a pending request. Nil fields
// are left unchanged.
type UpdateLeaveRequest struct {
	LeaveType *LeaveType `json:"leave_type"`
	StartDate *string    `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string    `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Reason    *string    `json:"reason"`
}

// DecideLeaveRequest carries optional notes on an approval or rejection.
type DecideLeaveRequest struct {
	AdminNotes *string `json:"admin_notes"`
}

// LeaveStats holds derived, on-demand leave-request counts.
type LeaveStats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Active   int `json:"active"`
	Total    int `json:"total"`
}
