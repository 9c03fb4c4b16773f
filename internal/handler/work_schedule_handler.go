package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/minhvh/teacher-hub-api/internal/models"
	"github.com/minhvh/teacher-hub-api/internal/repository"
	"github.com/minhvh/teacher-hub-api/internal/service"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
	"github.com/minhvh/teacher-hub-api/pkg/response"
)

const queryDateLayout = "2006-01-02"

// WorkScheduleHandler handles work schedule endpoints.
type WorkScheduleHandler struct {
	service *service.WorkScheduleService
	export  *service.ExportService
}

// NewWorkScheduleHandler creates a new work schedule handler.
func NewWorkScheduleHandler(svc *service.WorkScheduleService, export *service.ExportService) *WorkScheduleHandler {
	return &WorkScheduleHandler{service: svc, export: export}
}

// List godoc
// @Summary List work schedules
// @Description Teachers see their own schedules, admins can filter by teacher
// @Tags Schedules
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param teacher_id query int false "Teacher filter (admin only)"
// @Param from query string false "Start of date range (YYYY-MM-DD)"
// @Param to query string false "End of date range (YYYY-MM-DD)"
// @Param work_type query string false "Work type filter"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *WorkScheduleHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter repository.ScheduleFilter

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
	if from, ok := parseDateQuery(c, "from"); ok {
		filter.From = &from
	}
	if to, ok := parseDateQuery(c, "to"); ok {
		filter.To = &to
	}
	filter.WorkType = models.WorkType(c.Query("work_type"))

	schedules, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Get godoc
// @Summary Get work schedule
// @Tags Schedules
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *WorkScheduleHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid schedule id"))
		return
	}

	schedule, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Create godoc
// @Summary Create work schedule
// @Description Creates a single schedule, or a weekly series when recurring
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body models.CreateScheduleRequest true "Create schedule payload"
// @Success 201 {object} response.Envelope
// @Router /schedules [post]
func (h *WorkScheduleHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	schedule, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Update godoc
// @Summary Update work schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path int true "Schedule ID"
// @Param payload body models.UpdateScheduleRequest true "Update schedule payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *WorkScheduleHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid schedule id"))
		return
	}

	var req models.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	schedule, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete work schedule
// @Description Deleting a recurring template also removes its generated occurrences
// @Tags Schedules
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *WorkScheduleHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid schedule id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateChild godoc
// @Summary Update one generated occurrence
// @Description Only schedules generated from a recurring template are accepted
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path int true "Child schedule ID"
// @Param payload body models.UpdateScheduleRequest true "Update schedule payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/children/{id} [put]
func (h *WorkScheduleHandler) UpdateChild(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid schedule id"))
		return
	}

	var req models.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	schedule, err := h.service.UpdateChild(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// DeleteChild godoc
// @Summary Delete one generated occurrence
// @Description Only schedules generated from a recurring template are accepted
// @Tags Schedules
// @Produce json
// @Param id path int true "Child schedule ID"
// @Success 204
// @Router /schedules/children/{id} [delete]
func (h *WorkScheduleHandler) DeleteChild(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid schedule id"))
		return
	}

	if err := h.service.DeleteChild(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Children godoc
// @Summary List generated occurrences
// @Tags Schedules
// @Produce json
// @Param id path int true "Template schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/children [get]
func (h *WorkScheduleHandler) Children(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid schedule id"))
		return
	}

	children, err := h.service.ListChildren(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, children, nil)
}

// MarkAttendance godoc
// @Summary Mark attendance
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path int true "Schedule ID"
// @Param payload body models.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /schedules/{id}/attendance [patch]
func (h *WorkScheduleHandler) MarkAttendance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid schedule id"))
		return
	}

	var req models.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	schedule, err := h.service.MarkAttendance(c.Request.Context(), id, req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// WeeklyReport godoc
// @Summary Weekly schedule report
// @Description Returns schedules for the Monday-Sunday week containing the given day
// @Tags Schedules
// @Produce json
// @Param week query string false "Any day inside the week (YYYY-MM-DD), defaults to today"
// @Param teacher_id query int false "Teacher filter (admin only)"
// @Success 200 {object} response.Envelope
// @Router /schedules/weekly [get]
func (h *WorkScheduleHandler) WeeklyReport(c *gin.Context) {
	teacherID, day, ok := h.reportParams(c)
	if !ok {
		return
	}

	schedules, err := h.service.WeeklyReport(c.Request.Context(), teacherID, day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Summary godoc
// @Summary Weekly work summary
// @Tags Schedules
// @Produce json
// @Param week query string false "Any day inside the week (YYYY-MM-DD), defaults to today"
// @Param teacher_id query int false "Teacher filter (admin only)"
// @Success 200 {object} response.Envelope
// @Router /schedules/summary [get]
func (h *WorkScheduleHandler) Summary(c *gin.Context) {
	teacherID, day, ok := h.reportParams(c)
	if !ok {
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), teacherID, day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Export weekly schedule
// @Description Downloads the weekly schedule as a CSV or PDF file
// @Tags Schedules
// @Produce application/octet-stream
// @Param week query string false "Any day inside the week (YYYY-MM-DD), defaults to today"
// @Param teacher_id query int false "Teacher filter (admin only)"
// @Param format query string false "Export format: csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /schedules/export [get]
func (h *WorkScheduleHandler) Export(c *gin.Context) {
	teacherID, day, ok := h.reportParams(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", service.ExportFormatCSV)
	data, contentType, filename, err := h.export.WeeklySchedule(c.Request.Context(), teacherID, day, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

// reportParams resolves the target teacher and week day for report endpoints.
// Non-admin callers are always scoped to themselves.
func (h *WorkScheduleHandler) reportParams(c *gin.Context) (int64, time.Time, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return 0, time.Time{}, false
	}

	teacherID := claims.UserID
	if claims.Role == models.RoleAdmin {
		if raw := c.Query("teacher_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid teacher id"))
				return 0, time.Time{}, false
			}
			teacherID = id
		}
	}

	day := time.Now().UTC()
	if raw := c.Query("week"); raw != "" {
		parsed, err := time.Parse(queryDateLayout, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid week date, expected YYYY-MM-DD"))
			return 0, time.Time{}, false
		}
		day = parsed
	}
	return teacherID, day, true
}

func parseDateQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(queryDateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
