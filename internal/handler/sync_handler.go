package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minhvh/teacher-hub-api/internal/service"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
	"github.com/minhvh/teacher-hub-api/pkg/response"
)

// SyncHandler exposes manual Lark Base synchronisation triggers.
type SyncHandler struct {
	service *service.LarkSyncService
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(svc *service.LarkSyncService) *SyncHandler {
	return &SyncHandler{service: svc}
}

var syncTargets = map[string]string{
	"users":          service.SyncJobUsers,
	"courses":        service.SyncJobCourses,
	"schedules":      service.SyncJobSchedules,
	"leave-requests": service.SyncJobLeaveRequests,
}

// Trigger godoc
// @Summary Trigger a sync job
// @Description Enqueues a background sync of the named dataset to Lark Base
// @Tags Sync
// @Produce json
// @Param job path string true "Job name" Enums(users, courses, schedules, leave-requests)
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sync/{job} [post]
func (h *SyncHandler) Trigger(c *gin.Context) {
	job, ok := syncTargets[c.Param("job")]
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown sync target"))
		return
	}

	if err := h.service.Trigger(job); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"job": c.Param("job"), "queued": true}, nil)
}

// TestConnection godoc
// @Summary Test the Lark connection
// @Description Exchanges app credentials for an access token
// @Tags Sync
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sync/test [get]
func (h *SyncHandler) TestConnection(c *gin.Context) {
	if err := h.service.TestConnection(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"connected": true}, nil)
}

// TriggerAll godoc
// @Summary Trigger all sync jobs
// @Tags Sync
// @Produce json
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sync [post]
func (h *SyncHandler) TriggerAll(c *gin.Context) {
	if err := h.service.TriggerAll(); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"queued": true}, nil)
}
