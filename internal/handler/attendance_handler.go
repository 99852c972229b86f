package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sunday-attendance/internal/service"
	appErrors "github.com/noah-isme/sunday-attendance/pkg/errors"
	"github.com/noah-isme/sunday-attendance/pkg/response"
)

// AttendanceHandler exposes the marking sheet and attendance writes.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Sheet godoc
// @Summary Get the pre-filled marking sheet of a class for a date
// @Tags Attendance
// @Produce json
// @Param date query string true "Session date (YYYY-MM-DD)"
// @Param class_id query int true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/sheet [get]
func (h *AttendanceHandler) Sheet(c *gin.Context) {
	date := c.Query("date")
	classID, err := strconv.ParseInt(c.Query("class_id"), 10, 64)
	if date == "" || err != nil || classID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date and class_id are required"))
		return
	}
	sheet, err := h.service.Sheet(c.Request.Context(), date, classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet)
}

// RecordSession godoc
// @Summary Record attendance for one class on a markable date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RecordSessionRequest true "Class session marks"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/sessions [post]
func (h *AttendanceHandler) RecordSession(c *gin.Context) {
	var req service.RecordSessionRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.service.Mark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"saved": len(records)})
}

// Upsert godoc
// @Summary Write a single attendance mark
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.UpsertAttendanceRequest true "Mark"
// @Success 200 {object} response.Envelope
// @Router /attendance [put]
func (h *AttendanceHandler) Upsert(c *gin.Context) {
	var req service.UpsertAttendanceRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.service.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}
