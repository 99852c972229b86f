package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sunday-attendance/internal/dto"
	"github.com/noah-isme/sunday-attendance/internal/models"
	"github.com/noah-isme/sunday-attendance/internal/service"
	"github.com/noah-isme/sunday-attendance/pkg/middleware/requestid"
	"github.com/noah-isme/sunday-attendance/pkg/response"
)

type reportGenerator interface {
	Generate(ctx context.Context, from, to time.Time) (*models.AttendanceReport, error)
}

type reportExporter interface {
	Export(ctx context.Context, from, to time.Time, format models.ReportFormat) (*service.ExportResult, error)
}

// ReportHandler serves attendance reports as JSON or file downloads.
type ReportHandler struct {
	reports  reportGenerator
	exporter reportExporter
	logger   *zap.Logger
}

// NewReportHandler constructs a report handler.
func NewReportHandler(reports reportGenerator, exporter reportExporter, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reports: reports, exporter: exporter, logger: logger}
}

// Attendance godoc
// @Summary Attendance report for a date range
// @Description Missing bounds default to the session bounds.
// @Tags Reports
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	from, to, ok := h.rangeParams(c)
	if !ok {
		return
	}
	report, err := h.reports.Generate(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewAttendanceReportResponse(report))
}

// Export godoc
// @Summary Download the attendance report
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Produce application/pdf
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param format query string false "xlsx, csv or pdf" default(xlsx)
// @Success 200 {file} file
// @Router /reports/attendance/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	from, to, ok := h.rangeParams(c)
	if !ok {
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), from, to, models.ReportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("serving report export",
		zap.String("filename", result.Filename),
		zap.String("format", string(result.Format)),
		zap.Int("bytes", len(result.Payload)),
		zap.String("request_id", requestid.FromContext(c.Request.Context())))
	response.Attachment(c, result.Filename, result.ContentType, result.Payload)
}

func (h *ReportHandler) rangeParams(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := queryDate(c, "from")
	if err != nil {
		response.Error(c, err)
		return time.Time{}, time.Time{}, false
	}
	to, err := queryDate(c, "to")
	if err != nil {
		response.Error(c, err)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
