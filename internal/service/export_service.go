package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sunday-attendance/internal/models"
	appErrors "github.com/noah-isme/sunday-attendance/pkg/errors"
	"github.com/noah-isme/sunday-attendance/pkg/export"
)

// ReportSheetTitle names the exported sheet and PDF heading.
const ReportSheetTitle = "Attendance Report"

const fileDateLayout = "20060102"

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type reportArchiver interface {
	Save(filename string, data []byte) (string, error)
	Prune() ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	FilePrefix string
}

// ExportResult is a rendered report file.
type ExportResult struct {
	Filename    string
	ContentType string
	Format      models.ReportFormat
	Payload     []byte
}

// ExportService renders attendance reports into downloadable files.
type ExportService struct {
	reports   *ReportService
	renderers map[models.ReportFormat]datasetRenderer
	cfg       ExportConfig
	archive   reportArchiver
	logger    *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(reports *ReportService, cfg ExportConfig, logger *zap.Logger, xlsx, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FilePrefix == "" {
		cfg.FilePrefix = "Sunday_School_Attendance_Report"
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		reports: reports,
		renderers: map[models.ReportFormat]datasetRenderer{
			models.ReportFormatXLSX: xlsx,
			models.ReportFormatCSV:  csv,
			models.ReportFormatPDF:  pdf,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// WithArchive keeps a copy of every rendered export in archive.
func (s *ExportService) WithArchive(archive reportArchiver) *ExportService {
	s.archive = archive
	return s
}

// Export generates the report for [from, to] and renders it in format.
func (s *ExportService) Export(ctx context.Context, from, to time.Time, format models.ReportFormat) (*ExportResult, error) {
	if format == "" {
		format = models.ReportFormatXLSX
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupported, fmt.Sprintf("unsupported export format %q", format))
	}
	report, err := s.reports.Generate(ctx, from, to)
	if err != nil {
		return nil, err
	}

	payload, err := renderer.Render(BuildDataset(report))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	filename := s.Filename(report.From, report.To, format)
	s.archiveCopy(filename, payload)
	s.logger.Info("attendance report exported", zap.String("filename", filename), zap.Int("bytes", len(payload)))
	return &ExportResult{
		Filename:    filename,
		ContentType: format.ContentType(),
		Format:      format,
		Payload:     payload,
	}, nil
}

// archiveCopy never fails the export; the download is served even when the copy is lost.
func (s *ExportService) archiveCopy(filename string, payload []byte) {
	if s.archive == nil {
		return
	}
	path, err := s.archive.Save(filename, payload)
	if err != nil {
		s.logger.Warn("failed to archive report", zap.String("filename", filename), zap.Error(err))
		return
	}
	pruned, err := s.archive.Prune()
	if err != nil {
		s.logger.Warn("failed to prune report archive", zap.Error(err))
	}
	s.logger.Debug("report archived", zap.String("path", path), zap.Int("pruned", len(pruned)))
}

// Filename embeds the report range as <prefix>_YYYYMMDD_YYYYMMDD.<ext>.
func (s *ExportService) Filename(from, to time.Time, format models.ReportFormat) string {
	return fmt.Sprintf("%s_%s_%s.%s", s.cfg.FilePrefix, from.Format(fileDateLayout), to.Format(fileDateLayout), format)
}

// BuildDataset flattens a report into export rows with display date headers.
func BuildDataset(report *models.AttendanceReport) export.Dataset {
	headers := []string{models.ReportColumnClass, models.ReportColumnTeacher, models.ReportColumnStudent}
	for _, d := range report.Dates {
		headers = append(headers, models.DateLabel(d))
	}
	headers = append(headers, models.ReportColumnTotalClasses, models.ReportColumnAttended, models.ReportColumnPercentage)

	rows := make([][]string, 0, len(report.Rows))
	for _, r := range report.Rows {
		row := make([]string, 0, len(headers))
		row = append(row, r.ClassName, r.Teacher, r.StudentName)
		for _, status := range r.Statuses {
			row = append(row, status.String())
		}
		row = append(row, fmt.Sprintf("%d", r.TotalClasses), fmt.Sprintf("%d", r.Attended), r.Percentage)
		rows = append(rows, row)
	}
	total := len(headers) - 3
	return export.Dataset{
		Title:          ReportSheetTitle,
		Headers:        headers,
		Rows:           rows,
		NumericColumns: []int{total, total + 1},
	}
}
