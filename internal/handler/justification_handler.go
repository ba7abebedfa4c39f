package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unimark/attendance-api/internal/models"
	"github.com/unimark/attendance-api/internal/service"
	appErrors "github.com/unimark/attendance-api/pkg/errors"
	"github.com/unimark/attendance-api/pkg/response"
)

// JustificationHandler exposes absence justification endpoints.
type JustificationHandler struct {
	service  *service.JustificationService
	students *service.StudentService
}

// NewJustificationHandler creates a new handler.
func NewJustificationHandler(svc *service.JustificationService, students *service.StudentService) *JustificationHandler {
	return &JustificationHandler{service: svc, students: students}
}

// Submit godoc
// @Summary Submit an absence justification
// @Description File an excuse for a missed class meeting
// @Tags Justifications
// @Accept json
// @Produce json
// @Param payload body models.SubmitJustificationRequest true "Justification payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /justifications [post]
func (h *JustificationHandler) Submit(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	student, err := h.students.Resolve(c.Request.Context(), models.StudentIdentity{Email: claims.Email})
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.SubmitJustificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid justification payload"))
		return
	}

	j, err := h.service.Submit(c.Request.Context(), student.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, j)
}

// List godoc
// @Summary List justifications
// @Description List justifications filtered by student or review status
// @Tags Justifications
// @Produce json
// @Param student_id query string false "Student filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /justifications [get]
func (h *JustificationHandler) List(c *gin.Context) {
	var status *models.JustificationStatus
	if raw := c.Query("status"); raw != "" {
		s := models.JustificationStatus(raw)
		status = &s
	}

	rows, err := h.service.List(c.Request.Context(), c.Query("student_id"), status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rows, nil)
}

// Review godoc
// @Summary Review a justification
// @Description Approve or reject a pending justification; approval excuses the absence
// @Tags Justifications
// @Accept json
// @Produce json
// @Param id path string true "Justification id"
// @Param payload body models.ReviewJustificationRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /justifications/{id}/review [put]
func (h *JustificationHandler) Review(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req models.ReviewJustificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	j, err := h.service.Review(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, j, nil)
}
