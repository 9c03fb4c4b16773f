package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minhvh/teacher-hub-api/internal/models"
	"github.com/minhvh/teacher-hub-api/internal/repository"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
)

type leaveRepository interface {
	List(ctx context.Context, f repository.LeaveFilter) ([]models.LeaveRequest, int, error)
	FindByID(ctx context.Context, id int64) (*models.LeaveRequest, error)
	Create(ctx context.Context, l *models.LeaveRequest) error
	Update(ctx context.Context, l *models.LeaveRequest) error
	UpdateStatus(ctx context.Context, id int64, status models.LeaveStatus, approvedBy *int64, adminNotes *string) (bool, error)
	Delete(ctx context.Context, id int64) error
	FindOverlapping(ctx context.Context, teacherID int64, start, end time.Time, excludeID int64) ([]models.LeaveRequest, error)
	CountByStatus(ctx context.Context, status models.LeaveStatus) (int, error)
	CountActive(ctx context.Context, day time.Time) (int, error)
	Count(ctx context.Context) (int, error)
}

// LeaveConfig toggles optional leave validation rules.
type LeaveConfig struct {
	OverlapCheck bool
}

// LeaveRequestService provides the leave-request workflow: submission,
// pending-only edits, and the admin decision state machine.
type LeaveRequestService struct {
	repo       leaveRepository
	dashboards dashboardInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
	config     LeaveConfig
	now        func() time.Time
}

// UseDashboard registers a dashboard cache to drop after writes.
func (s *LeaveRequestService) UseDashboard(d dashboardInvalidator) {
	s.dashboards = d
}

func (s *LeaveRequestService) invalidateDashboard(ctx context.Context, teacherID int64) {
	if s.dashboards != nil {
		s.dashboards.InvalidateTeacher(ctx, teacherID)
	}
}

// NewLeaveRequestService constructs a LeaveRequestService instance.
func NewLeaveRequestService(repo leaveRepository, validate *validator.Validate, logger *zap.Logger, config LeaveConfig) *LeaveRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LeaveRequestService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// List returns leave requests matching the filter with pagination metadata.
// TotalDays is computed on the way out, never stored.
func (s *LeaveRequestService) List(ctx context.Context, f repository.LeaveFilter) ([]models.LeaveRequest, *models.Pagination, error) {
	requests, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	for i := range requests {
		requests[i].TotalDays = requests[i].DayCount()
	}

	f.Normalize()
	return requests, &models.Pagination{Page: f.Page, PageSize: f.PageSize, TotalCount: total}, nil
}

// Get returns one leave request by ID.
func (s *LeaveRequestService) Get(ctx context.Context, id int64) (*models.LeaveRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	request.TotalDays = request.DayCount()
	return request, nil
}

// Create submits a leave request in the PENDING state.
func (s *LeaveRequestService) Create(ctx context.Context, req models.CreateLeaveRequest, teacherID int64) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}
	if !req.LeaveType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown leave type")
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	if s.config.OverlapCheck {
		overlapping, err := s.repo.FindOverlapping(ctx, teacherID, start, end, 0)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check overlap")
		}
		if len(overlapping) > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, "leave request overlaps an existing one")
		}
	}

	request := &models.LeaveRequest{
		TeacherID: teacherID,
		LeaveType: req.LeaveType,
		StartDate: start,
		EndDate:   end,
		Reason:    req.Reason,
		Status:    models.LeavePending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}
	request.TotalDays = request.DayCount()

	s.logger.Info("leave request submitted",
		zap.Int64("leave_id", request.ID),
		zap.Int64("teacher_id", teacherID),
		zap.Int("total_days", request.TotalDays))

	s.invalidateDashboard(ctx, teacherID)
	return request, nil
}

// Update edits a request. Only the owner may edit and only while PENDING.
func (s *LeaveRequestService) Update(ctx context.Context, id int64, req models.UpdateLeaveRequest, actorID int64) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}

	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.TeacherID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot edit another teacher's request")
	}
	if request.Status != models.LeavePending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only pending requests can be edited")
	}

	if req.LeaveType != nil {
		if !req.LeaveType.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown leave type")
		}
		request.LeaveType = *req.LeaveType
	}
	if req.StartDate != nil {
		start, err := time.Parse(dateLayout, *req.StartDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
		}
		request.StartDate = start
	}
	if req.EndDate != nil {
		end, err := time.Parse(dateLayout, *req.EndDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
		}
		request.EndDate = end
	}
	if request.EndDate.Before(request.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}
	if req.Reason != nil {
		request.Reason = *req.Reason
	}

	if s.config.OverlapCheck {
		overlapping, err := s.repo.FindOverlapping(ctx, request.TeacherID, request.StartDate, request.EndDate, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check overlap")
		}
		if len(overlapping) > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, "leave request overlaps an existing one")
		}
	}

	if err := s.repo.Update(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update leave request")
	}
	request.TotalDays = request.DayCount()
	return request, nil
}

// Approve moves a PENDING request to APPROVED.
func (s *LeaveRequestService) Approve(ctx context.Context, id int64, req models.DecideLeaveRequest, adminID int64) (*models.LeaveRequest, error) {
	return s.decide(ctx, id, models.LeaveApproved, req.AdminNotes, adminID)
}

// Reject moves a PENDING request to REJECTED.
func (s *LeaveRequestService) Reject(ctx context.Context, id int64, req models.DecideLeaveRequest, adminID int64) (*models.LeaveRequest, error) {
	return s.decide(ctx, id, models.LeaveRejected, req.AdminNotes, adminID)
}

// Cancel moves a PENDING request to CANCELLED. Only the owner may cancel.
func (s *LeaveRequestService) Cancel(ctx context.Context, id int64, actorID int64) (*models.LeaveRequest, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.TeacherID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot cancel another teacher's request")
	}
	return s.transition(ctx, request, models.LeaveCancelled, nil, nil)
}

func (s *LeaveRequestService) decide(ctx context.Context, id int64, status models.LeaveStatus, notes *string, adminID int64) (*models.LeaveRequest, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, request, status, &adminID, notes)
}

// transition enforces the state machine: PENDING is the only state that can
// move, and the repository re-checks it under the update to close races.
func (s *LeaveRequestService) transition(ctx context.Context, request *models.LeaveRequest, status models.LeaveStatus, approvedBy *int64, notes *string) (*models.LeaveRequest, error) {
	if request.Status != models.LeavePending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request has already been decided")
	}

	moved, err := s.repo.UpdateStatus(ctx, request.ID, status, approvedBy, notes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update leave status")
	}
	if !moved {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request has already been decided")
	}

	s.logger.Info("leave request transitioned",
		zap.Int64("leave_id", request.ID),
		zap.String("status", string(status)))

	s.invalidateDashboard(ctx, request.TeacherID)
	return s.Get(ctx, request.ID)
}

// Delete removes a request. Only the owner may delete and only while PENDING.
func (s *LeaveRequestService) Delete(ctx context.Context, id int64, actorID int64, actorRole models.UserRole) error {
	request, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if actorRole != models.RoleAdmin {
		if request.TeacherID != actorID {
			return appErrors.Clone(appErrors.ErrForbidden, "cannot delete another teacher's request")
		}
		if request.Status != models.LeavePending {
			return appErrors.Clone(appErrors.ErrInvalidState, "only pending requests can be deleted")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete leave request")
	}
	s.invalidateDashboard(ctx, request.TeacherID)
	return nil
}

// Stats returns on-demand leave counts for the admin dashboard.
func (s *LeaveRequestService) Stats(ctx context.Context) (*models.LeaveStats, error) {
	pending, err := s.repo.CountByStatus(ctx, models.LeavePending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending requests")
	}
	approved, err := s.repo.CountByStatus(ctx, models.LeaveApproved)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count approved requests")
	}
	rejected, err := s.repo.CountByStatus(ctx, models.LeaveRejected)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count rejected requests")
	}
	active, err := s.repo.CountActive(ctx, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active leave")
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count leave requests")
	}

	return &models.LeaveStats{
		Pending:  pending,
		Approved: approved,
		Rejected: rejected,
		Active:   active,
		Total:    total,
	}, nil
}
