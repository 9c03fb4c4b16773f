package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minhvh/teacher-hub-api/internal/models"
	"github.com/minhvh/teacher-hub-api/internal/service"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
	"github.com/minhvh/teacher-hub-api/pkg/response"
)

// ProfileHandler handles teacher profile endpoints.
type ProfileHandler struct {
	service *service.ProfileService
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(svc *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Me godoc
// @Summary Get own profile
// @Description Returns the caller's profile, creating an empty one on first access
// @Tags Profiles
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /profile [get]
func (h *ProfileHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	profile, err := h.service.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Get godoc
// @Summary Get teacher profile
// @Tags Profiles
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Router /profiles/{id} [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}

	profile, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Update godoc
// @Summary Update own profile
// @Description Replaces education, experience and availability lists wholesale
// @Tags Profiles
// @Accept json
// @Produce json
// @Param payload body models.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /profile [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	profile, err := h.service.Update(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// AddCertification godoc
// @Summary Add certification
// @Tags Profiles
// @Accept json
// @Produce json
// @Param payload body models.AddCertificationRequest true "Certification payload"
// @Success 201 {object} response.Envelope
// @Router /profile/certifications [post]
func (h *ProfileHandler) AddCertification(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.AddCertificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	cert, err := h.service.AddCertification(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cert)
}

// UploadCertificationImage godoc
// @Summary Upload certification image
// @Tags Profiles
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Certification ID"
// @Param file formData file true "Image file"
// @Success 200 {object} response.Envelope
// @Router /profile/certifications/{id}/image [post]
func (h *ProfileHandler) UploadCertificationImage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	certID, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid certification id"))
		return
	}

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

	cert, err := h.service.UploadCertificationImage(c.Request.Context(), claims.UserID, certID, fileHeader.Filename, fileHeader.Size, src)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cert, nil)
}

// CertificationImage godoc
// @Summary Download certification image
// @Tags Profiles
// @Produce application/octet-stream
// @Param id path int true "Certification ID"
// @Success 200 {file} binary
// @Router /profile/certifications/{id}/image [get]
func (h *ProfileHandler) CertificationImage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	certID, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid certification id"))
		return
	}

	reader, contentType, err := h.service.OpenCertificationImage(c.Request.Context(), claims.UserID, certID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer reader.Close()

	c.Status(http.StatusOK)
	c.Header("Content-Type", contentType)
	io.Copy(c.Writer, reader) //nolint:errcheck // response already committed
}

// DeleteCertification godoc
// @Summary Delete certification
// @Tags Profiles
// @Produce json
// @Param id path int true "Certification ID"
// @Success 204
// @Router /profile/certifications/{id} [delete]
func (h *ProfileHandler) DeleteCertification(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	certID, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid certification id"))
		return
	}

	if err := h.service.DeleteCertification(c.Request.Context(), claims.UserID, certID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
