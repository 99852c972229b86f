package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sunday-attendance/internal/dto"
	"github.com/noah-isme/sunday-attendance/internal/service"
	"github.com/noah-isme/sunday-attendance/pkg/response"
)

// SessionHandler exposes the session bounds and the attendance calendar.
type SessionHandler struct {
	sessions *service.SessionService
	calendar *service.CalendarService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(sessions *service.SessionService, calendar *service.CalendarService) *SessionHandler {
	return &SessionHandler{sessions: sessions, calendar: calendar}
}

// Get godoc
// @Summary Get session bounds
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) Get(c *gin.Context) {
	bounds, err := h.sessions.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(bounds))
}

// Update godoc
// @Summary Update session bounds
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body service.UpdateSessionRequest true "Session bounds"
// @Success 200 {object} response.Envelope
// @Router /session [put]
func (h *SessionHandler) Update(c *gin.Context) {
	var req service.UpdateSessionRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	bounds, err := h.sessions.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(bounds))
}

// Dates godoc
// @Summary List every attendance date of the session
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/dates [get]
func (h *SessionHandler) Dates(c *gin.Context) {
	dates, err := h.calendar.SessionDates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewCalendarResponse(h.calendar.Weekday(), h.calendar.Today(), dates))
}

// Markable godoc
// @Summary List session dates open for marking
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/markable [get]
func (h *SessionHandler) Markable(c *gin.Context) {
	dates, err := h.calendar.MarkableDates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewCalendarResponse(h.calendar.Weekday(), h.calendar.Today(), dates))
}
