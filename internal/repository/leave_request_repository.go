package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/minhvh/teacher-hub-api/internal/models"
)

const leaveColumns = `l.id, l.teacher_id, t.full_name AS teacher_name, t.email AS teacher_email,
	l.leave_type, l.start_date, l.end_date, l.reason, l.status, l.approved_by,
	a.full_name AS approved_by_name, l.admin_notes, l.approved_at, l.created_at, l.updated_at`

const leaveJoins = `FROM leave_requests l
	JOIN users t ON t.id = l.teacher_id
	LEFT JOIN users a ON a.id = l.approved_by`

// LeaveFilter captures filtering criteria for listing leave requests.
type LeaveFilter struct {
	TeacherID int64
	Status    models.LeaveStatus
	From      *time.Time
	To        *time.Time
	models.ListFilter
}

// LeaveRequestRepository manages persistence for leave requests.
type LeaveRequestRepository struct {
	db *sqlx.DB
}

// NewLeaveRequestRepository constructs a LeaveRequestRepository.
func NewLeaveRequestRepository(db *sqlx.DB) *LeaveRequestRepository {
	return &LeaveRequestRepository{db: db}
}

// List returns leave requests matching the filter, newest first.
func (r *LeaveRequestRepository) List(ctx context.Context, f LeaveFilter) ([]models.LeaveRequest, int, error) {
	f.Normalize()

	conditions := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if f.TeacherID > 0 {
		conditions = append(conditions, fmt.Sprintf("l.teacher_id = $%d", idx))
		args = append(args, f.TeacherID)
		idx++
	}
	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("l.status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}
	if f.From != nil {
		conditions = append(conditions, fmt.Sprintf("l.end_date >= $%d", idx))
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		conditions = append(conditions, fmt.Sprintf("l.start_date <= $%d", idx))
		args = append(args, *f.To)
		idx++
	}
	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", leaveJoins, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY l.created_at DESC", leaveColumns, leaveJoins, where)
	if f.Paged() {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
		args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	}

	var requests []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}
	return requests, total, nil
}

// FindByID fetches a leave request by ID.
func (r *LeaveRequestRepository) FindByID(ctx context.Context, id int64) (*models.LeaveRequest, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE l.id = $1", leaveColumns, leaveJoins)
	var request models.LeaveRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// Create inserts a leave request and fills the generated ID and timestamps.
func (r *LeaveRequestRepository) Create(ctx context.Context, l *models.LeaveRequest) error {
	const query = `
		INSERT INTO leave_requests (teacher_id, leave_type, start_date, end_date, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query,
		l.TeacherID, l.LeaveType, l.StartDate, l.EndDate, l.Reason, l.Status)
	if err := row.Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// Update persists the editable fields of a pending request.
func (r *LeaveRequestRepository) Update(ctx context.Context, l *models.LeaveRequest) error {
	const query = `
		UPDATE leave_requests
		SET leave_type = $2, start_date = $3, end_date = $4, reason = $5, updated_at = NOW()
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, l.ID, l.LeaveType, l.StartDate, l.EndDate, l.Reason); err != nil {
		return fmt.Errorf("update leave request: %w", err)
	}
	return nil
}

// UpdateStatus moves a request out of PENDING. The WHERE clause guards the
// transition at the database level; callers check the affected-row count.
func (r *LeaveRequestRepository) UpdateStatus(ctx context.Context, id int64, status models.LeaveStatus, approvedBy *int64, adminNotes *string) (bool, error) {
	// approved_at only captures an admin decision; cancellations leave it NULL.
	const query = `
		UPDATE leave_requests
		SET status = $2, approved_by = $3, admin_notes = $4,
			approved_at = CASE WHEN $3::bigint IS NULL THEN NULL ELSE NOW() END,
			updated_at = NOW()
		WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, status, approvedBy, adminNotes, models.LeavePending)
	if err != nil {
		return false, fmt.Errorf("update leave status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update leave status: %w", err)
	}
	return affected > 0, nil
}

// Delete removes a leave request.
func (r *LeaveRequestRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM leave_requests WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete leave request: %w", err)
	}
	return nil
}

// FindOverlapping returns a teacher's pending or approved requests whose date
// span intersects [start, end].
func (r *LeaveRequestRepository) FindOverlapping(ctx context.Context, teacherID int64, start, end time.Time, excludeID int64) ([]models.LeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s %s
		WHERE l.teacher_id = $1 AND l.id <> $2
			AND l.status IN ($3, $4)
			AND l.start_date <= $5 AND l.end_date >= $6`, leaveColumns, leaveJoins)
	var requests []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &requests, query,
		teacherID, excludeID, models.LeavePending, models.LeaveApproved, end, start); err != nil {
		return nil, fmt.Errorf("find overlapping leave: %w", err)
	}
	return requests, nil
}

// CountByStatus returns the number of requests in a given state.
func (r *LeaveRequestRepository) CountByStatus(ctx context.Context, status models.LeaveStatus) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM leave_requests WHERE status = $1", status); err != nil {
		return 0, fmt.Errorf("count leave by status: %w", err)
	}
	return count, nil
}

// CountActive returns how many approved requests cover the given day.
func (r *LeaveRequestRepository) CountActive(ctx context.Context, day time.Time) (int, error) {
	const query = `
		SELECT COUNT(*) FROM leave_requests
		WHERE status = $1 AND start_date <= $2 AND end_date >= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, models.LeaveApproved, day); err != nil {
		return 0, fmt.Errorf("count active leave: %w", err)
	}
	return count, nil
}

// Count returns the total number of leave requests.
func (r *LeaveRequestRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM leave_requests"); err != nil {
		return 0, fmt.Errorf("count leave requests: %w", err)
	}
	return count, nil
}

// CountPendingByTeacher returns a teacher's pending request count.
func (r *LeaveRequestRepository) CountPendingByTeacher(ctx context.Context, teacherID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM leave_requests WHERE teacher_id = $1 AND status = $2", teacherID, models.LeavePending); err != nil {
		return 0, fmt.Errorf("count pending leave by teacher: %w", err)
	}
	return count, nil
}

// ListAll returns every leave request; used by spreadsheet sync.
func (r *LeaveRequestRepository) ListAll(ctx context.Context) ([]models.LeaveRequest, error) {
	query := fmt.Sprintf("SELECT %s %s ORDER BY l.id ASC", leaveColumns, leaveJoins)
	var requests []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("list all leave requests: %w", err)
	}
	return requests, nil
}
