package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unimark/attendance-api/internal/models"
	"github.com/unimark/attendance-api/internal/service"
	appErrors "github.com/unimark/attendance-api/pkg/errors"
	"github.com/unimark/attendance-api/pkg/response"
)

// AttendanceHandler exposes the staff-facing attendance surface.
type AttendanceHandler struct {
	attendance   *service.AttendanceService
	gamification *service.GamificationService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(attendance *service.AttendanceService, gamification *service.GamificationService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, gamification: gamification}
}

// List godoc
// @Summary List attendance records
// @Description Filterable, paginated attendance listing with student metadata
// @Tags Attendance
// @Produce json
// @Param class_id query string false "Class filter"
// @Param student_id query string false "Student filter"
// @Param status query string false "Status filter"
// @Param method query string false "Method filter"
// @Param date_from query string false "Start date (RFC3339)"
// @Param date_to query string false "End date (RFC3339)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	filter, err := parseAttendanceFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	rows, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rows, pagination)
}

// MarkManual godoc
// @Summary Record attendance manually
// @Description Record attendance on staff authority without a QR scan
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.ManualMarkRequest true "Manual mark payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/manual [post]
func (h *AttendanceHandler) MarkManual(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req service.ManualMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid manual mark payload"))
		return
	}

	record, err := h.attendance.MarkManual(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, record)
}

// StudentSummary godoc
// @Summary Attendance summary for a student
// @Description Aggregate counts and attendance percentage across classes
// @Tags Attendance
// @Produce json
// @Param id path string true "Student id"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/attendance/summary [get]
func (h *AttendanceHandler) StudentSummary(c *gin.Context) {
	summary, err := h.attendance.StudentSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}

// StudentPoints godoc
// @Summary Points balance for a student
// @Description Running points total and current streak
// @Tags Attendance
// @Produce json
// @Param id path string true "Student id"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/points [get]
func (h *AttendanceHandler) StudentPoints(c *gin.Context) {
	points, err := h.gamification.StudentPoints(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, points, nil)
}

func parseAttendanceFilter(c *gin.Context) (models.AttendanceFilter, error) {
	filter := models.AttendanceFilter{
		ClassID:   c.Query("class_id"),
		StudentID: c.Query("student_id"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      1,
		PageSize:  50,
	}

	if raw := c.Query("status"); raw != "" {
		status := models.AttendanceStatus(raw)
		if !status.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unsupported attendance status")
		}
		filter.Status = &status
	}
	if raw := c.Query("method"); raw != "" {
		method := models.AttendanceMethod(raw)
		filter.Method = &method
	}
	if raw := c.Query("date_from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid date_from")
		}
		filter.DateFrom = &ts
	}
	if raw := c.Query("date_to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid date_to")
		}
		filter.DateTo = &ts
	}
	if raw := c.Query("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 && size <= 200 {
			filter.PageSize = size
		}
	}

	return filter, nil
}
