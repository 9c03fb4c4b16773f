package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minhvh/teacher-hub-api/internal/models"
	"github.com/minhvh/teacher-hub-api/internal/service"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
	"github.com/minhvh/teacher-hub-api/pkg/response"
)

// CourseFileHandler handles course file upload and download endpoints.
type CourseFileHandler struct {
	service *service.CourseFileService
	metrics *service.MetricsService
}

// NewCourseFileHandler creates a new course file handler.
func NewCourseFileHandler(svc *service.CourseFileService, metrics *service.MetricsService) *CourseFileHandler {
	return &CourseFileHandler{service: svc, metrics: metrics}
}

// Upload godoc
// @Summary Upload course file
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Course ID"
// @Param category formData string true "File category"
// @Param file formData file true "Document file"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/files [post]
func (h *CourseFileHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	courseID, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}

	category := models.FileCategory(c.PostForm("category"))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing file"))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "open uploaded file"))
		return
	}
	defer src.Close()

	file, err := h.service.Upload(c.Request.Context(), courseID, category, fileHeader.Filename, fileHeader.Size, src, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveUpload(fileHeader.Size)
	response.Created(c, file)
}

// List godoc
// @Summary List course files
// @Tags Files
// @Produce json
// @Param id path int true "Course ID"
// @Param category query string false "Category filter"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/files [get]
func (h *CourseFileHandler) List(c *gin.Context) {
	courseID, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}

	files, err := h.service.List(c.Request.Context(), courseID, models.FileCategory(c.Query("category")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, files, nil)
}

// Download godoc
// @Summary Download course file
// @Tags Files
// @Produce application/octet-stream
// @Param id path int true "File ID"
// @Success 200 {file} binary
// @Router /files/{id} [get]
func (h *CourseFileHandler) Download(c *gin.Context) {
	h.stream(c, "attachment")
}

// View godoc
// @Summary View course file inline
// @Description Streams the file with an inline disposition so browsers render it
// @Tags Files
// @Produce application/octet-stream
// @Param id path int true "File ID"
// @Success 200 {file} binary
// @Router /files/{id}/view [get]
func (h *CourseFileHandler) View(c *gin.Context) {
	h.stream(c, "inline")
}

func (h *CourseFileHandler) stream(c *gin.Context, disposition string) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid file id"))
		return
	}

	reader, file, err := h.service.Open(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer reader.Close()

	c.Status(http.StatusOK)
	c.Header("Content-Type", file.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, file.OriginalName))
	io.Copy(c.Writer, reader) //nolint:errcheck // response already committed
}

// Delete godoc
// @Summary Delete course file
// @Description Only the uploader or an admin can delete a file
// @Tags Files
// @Produce json
// @Param id path int true "File ID"
// @Success 204
// @Router /files/{id} [delete]
func (h *CourseFileHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid file id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
