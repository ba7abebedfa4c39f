package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unimark/attendance-api/internal/models"
	"github.com/unimark/attendance-api/internal/service"
	appErrors "github.com/unimark/attendance-api/pkg/errors"
	"github.com/unimark/attendance-api/pkg/response"
)

// QRHandler wires HTTP endpoints to the QR session lifecycle and the
// check-in protocol.
type QRHandler struct {
	sessions   *service.QRSessionService
	attendance *service.AttendanceService
	metrics    *service.MetricsService
}

// NewQRHandler creates a new handler.
func NewQRHandler(sessions *service.QRSessionService, attendance *service.AttendanceService, metrics *service.MetricsService) *QRHandler {
	return &QRHandler{sessions: sessions, attendance: attendance, metrics: metrics}
}

// Generate godoc
// @Summary Start QR attendance for a class
// @Description Create a scannable QR session for the class's current meeting
// @Tags QR
// @Accept json
// @Produce json
// @Param payload body models.GenerateQRRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /qr/generate [post]
func (h *QRHandler) Generate(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req models.GenerateQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid qr generation payload"))
		return
	}

	res, err := h.sessions.Generate(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveQRGenerated()
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Mark godoc
// @Summary Mark attendance by QR scan
// @Description Record a student's check-in against an active QR session
// @Tags QR
// @Accept json
// @Produce json
// @Param sessionId path string true "QR session id"
// @Param payload body models.MarkAttendanceRequest true "Check-in payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /qr/mark/{sessionId} [post]
func (h *QRHandler) Mark(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "session id is required"))
		return
	}

	var req models.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid check-in payload"))
		return
	}

	res, err := h.attendance.MarkByQR(c.Request.Context(), sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Status godoc
// @Summary Poll a QR session's live status
// @Description Serve the scan feed and counters for the staff dashboard
// @Tags QR
// @Produce json
// @Param sessionId path string true "QR session id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /qr/session/{sessionId} [get]
func (h *QRHandler) Status(c *gin.Context) {
	view, err := h.sessions.Status(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil)
}

// Close godoc
// @Summary Close a QR session
// @Description Stop accepting scans for a session before its natural expiry
// @Tags QR
// @Produce json
// @Param sessionId path string true "QR session id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /qr/session/{sessionId}/close [post]
func (h *QRHandler) Close(c *gin.Context) {
	if err := h.sessions.Close(c.Request.Context(), c.Param("sessionId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
