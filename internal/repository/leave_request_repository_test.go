package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhvh/teacher-hub-api/internal/models"
)

func TestLeaveCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRequestRepository(db)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO leave_requests").
		WithArgs(int64(7), models.LeaveSick, sqlmock.AnyArg(), sqlmock.AnyArg(), "flu", models.LeavePending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(3), now, now))

	request := &models.LeaveRequest{
		TeacherID: 7,
		LeaveType: models.LeaveSick,
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
		Reason:    "flu",
		Status:    models.LeavePending,
	}
	require.NoError(t, repo.Create(context.Background(), request))
	assert.Equal(t, int64(3), request.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveUpdateStatusGuardsPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRequestRepository(db)

	adminID := int64(1)
	notes := "approved, enjoy"

	// Row still PENDING: transition applies.
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $5")).
		WithArgs(int64(3), models.LeaveApproved, &adminID, &notes, models.LeavePending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.UpdateStatus(context.Background(), 3, models.LeaveApproved, &adminID, &notes)
	require.NoError(t, err)
	assert.True(t, ok)

	// Row already decided: zero rows affected, no transition.
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $5")).
		WithArgs(int64(3), models.LeaveRejected, &adminID, &notes, models.LeavePending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.UpdateStatus(context.Background(), 3, models.LeaveRejected, &adminID, &notes)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveUpdateStatusCancelSkipsApprovedAt(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRequestRepository(db)

	// A cancel carries no approver, so approved_at stays NULL.
	mock.ExpectExec(regexp.QuoteMeta("approved_at = CASE WHEN $3::bigint IS NULL THEN NULL ELSE NOW() END")).
		WithArgs(int64(3), models.LeaveCancelled, nil, nil, models.LeavePending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.UpdateStatus(context.Background(), 3, models.LeaveCancelled, nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveListWithFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRequestRepository(db)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM leave_requests l")).
		WithArgs(int64(7), models.LeavePending, from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "teacher_name", "teacher_email", "leave_type", "start_date", "end_date", "reason", "status", "approved_by", "approved_by_name", "admin_notes", "approved_at", "created_at", "updated_at"}).
		AddRow(3, 7, "Nguyen Van A", "a@example.com", string(models.LeaveSick), from, from.AddDate(0, 0, 2), "flu", string(models.LeavePending), nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("l.teacher_id = $1 AND l.status = $2 AND l.end_date >= $3 ORDER BY l.created_at DESC LIMIT $4 OFFSET $5")).
		WithArgs(int64(7), models.LeavePending, from, 20, 0).
		WillReturnRows(rows)

	requests, total, err := repo.List(context.Background(), LeaveFilter{TeacherID: 7, Status: models.LeavePending, From: &from})
	require.NoError(t, err)
	assert.Len(t, requests, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Nguyen Van A", requests[0].TeacherName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveFindOverlapping(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRequestRepository(db)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("l.start_date <= $5 AND l.end_date >= $6")).
		WithArgs(int64(7), int64(0), models.LeavePending, models.LeaveApproved, end, start).
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id", "teacher_name", "teacher_email", "leave_type", "start_date", "end_date", "reason", "status", "approved_by", "approved_by_name", "admin_notes", "approved_at", "created_at", "updated_at"}))

	requests, err := repo.FindOverlapping(context.Background(), 7, start, end, 0)
	require.NoError(t, err)
	assert.Empty(t, requests)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveCountByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM leave_requests WHERE status = $1")).
		WithArgs(models.LeavePending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountByStatus(context.Background(), models.LeavePending)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
