package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/minhvh/teacher-hub-api/internal/models"
	"github.com/minhvh/teacher-hub-api/internal/repository"
	"github.com/minhvh/teacher-hub-api/internal/service"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
	"github.com/minhvh/teacher-hub-api/pkg/response"
)

// LeaveRequestHandler handles leave request endpoints.
type LeaveRequestHandler struct {
	service *service.LeaveRequestService
}

// NewLeaveRequestHandler creates a new leave request handler.
func NewLeaveRequestHandler(svc *service.LeaveRequestService) *LeaveRequestHandler {
	return &LeaveRequestHandler{service: svc}
}

// List godoc
// @Summary List leave requests
// @Description Teachers see their own requests, admins can filter by teacher and status
// @Tags Leave
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param teacher_id query int false "Teacher filter (admin only)"
// @Param status query string false "Status filter"
// @Param from query string false "Start of date range (YYYY-MM-DD)"
// @Param to query string false "End of date range (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /leave-requests [get]
func (h *LeaveRequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter repository.LeaveFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	if claims.Role == models.RoleAdmin {
		if raw := c.Query("teacher_id"); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				filter.TeacherID = id
			}
		}
	} else {
		filter.TeacherID = claims.UserID
	}
	filter.Status = models.LeaveStatus(c.Query("status"))
	if from, ok := parseDateQuery(c, "from"); ok {
		filter.From = &from
	}
	if to, ok := parseDateQuery(c, "to"); ok {
		filter.To = &to
	}

	requests, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get leave request
// @Tags Leave
// @Produce json
// @Param id path int true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leave-requests/{id} [get]
func (h *LeaveRequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid leave request id"))
		return
	}

	request, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims.Role != models.RoleAdmin && request.TeacherID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Create godoc
// @Summary Submit leave request
// @Tags Leave
// @Accept json
// @Produce json
// @Param payload body models.CreateLeaveRequest true "Leave request payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave-requests [post]
func (h *LeaveRequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Update godoc
// @Summary Update leave request
// @Description Only the owner can update, and only while the request is pending
// @Tags Leave
// @Accept json
// @Produce json
// @Param id path int true "Leave request ID"
// @Param payload body models.UpdateLeaveRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave-requests/{id} [put]
func (h *LeaveRequestHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid leave request id"))
		return
	}

	var req models.UpdateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.service.Update(c.Request.Context(), id, req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Approve godoc
// @Summary Approve leave request
// @Tags Leave
// @Accept json
// @Produce json
// @Param id path int true "Leave request ID"
// @Param payload body models.DecideLeaveRequest false "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave-requests/{id}/approve [post]
func (h *LeaveRequestHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject leave request
// @Tags Leave
// @Accept json
// @Produce json
// @Param id path int true "Leave request ID"
// @Param payload body models.DecideLeaveRequest false "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave-requests/{id}/reject [post]
func (h *LeaveRequestHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

type decideFunc func(ctx context.Context, id int64, req models.DecideLeaveRequest, adminID int64) (*models.LeaveRequest, error)

func (h *LeaveRequestHandler) decide(c *gin.Context, fn decideFunc) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid leave request id"))
		return
	}

	var req models.DecideLeaveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	request, err := fn(c.Request.Context(), id, req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Cancel godoc
// @Summary Cancel leave request
// @Description The owner withdraws a pending request
// @Tags Leave
// @Produce json
// @Param id path int true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave-requests/{id}/cancel [post]
func (h *LeaveRequestHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid leave request id"))
		return
	}

	request, err := h.service.Cancel(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Delete godoc
// @Summary Delete leave request
// @Tags Leave
// @Produce json
// @Param id path int true "Leave request ID"
// @Success 204
// @Router /leave-requests/{id} [delete]
func (h *LeaveRequestHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid leave request id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Leave request statistics
// @Tags Leave
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leave-requests/stats [get]
func (h *LeaveRequestHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
