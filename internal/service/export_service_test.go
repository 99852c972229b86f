package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/sunday-attendance/internal/models"
	appErrors "github.com/noah-isme/sunday-attendance/pkg/errors"
	"github.com/noah-isme/sunday-attendance/pkg/export"
)

type failingRenderer struct{}

func (failingRenderer) Render(export.Dataset) ([]byte, error) {
	return nil, errors.New("boom")
}

func seededExportServices(t *testing.T) *testServices {
	t.Helper()
	svc := newTestServices(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	class := svc.store.addClass("Beginner", strPtr("Mrs Smith"))
	ann := svc.store.addStudent("Ann", class.ID, 1)
	svc.store.mark("2024-01-07", ann.ID, models.AttendanceStatusPresent)
	return svc
}

func TestDateHeader(t *testing.T) {
	assert.Equal(t, "07 JAN", models.DateLabel(day(t, "2024-01-07")))
	assert.Equal(t, "29 DEC", models.DateLabel(day(t, "2024-12-29")))
}

func TestExportXLSX(t *testing.T) {
	svc := seededExportServices(t)

	result, err := svc.exports.Export(context.Background(), day(t, "2024-01-01"), day(t, "2024-01-14"), models.ReportFormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "Sunday_School_Attendance_Report_20240101_20240114.xlsx", result.Filename)
	assert.Equal(t, models.ReportFormatXLSX.ContentType(), result.ContentType)

	f, err := excelize.OpenReader(bytes.NewReader(result.Payload))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(ReportSheetTitle)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Class", "Teacher", "Student Name", "07 JAN", "14 JAN", "Total Classes", "Attended", "Attendance %"}, rows[0])
	assert.Equal(t, []string{"Beginner", "Mrs Smith", "Ann", "P", "A (M)", "2", "1", "50.0%"}, rows[1])

	for _, ref := range []string{"F2", "G2"} {
		typ, err := f.GetCellType(ReportSheetTitle, ref)
		require.NoError(t, err)
		assert.Equal(t, excelize.CellTypeUnset, typ, ref)
	}
	typ, err := f.GetCellType(ReportSheetTitle, "H2")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeSharedString, typ)
}

func TestExportCSVAndUnsupported(t *testing.T) {
	svc := seededExportServices(t)
	ctx := context.Background()

	result, err := svc.exports.Export(ctx, day(t, "2024-01-01"), day(t, "2024-01-07"), models.ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "Class,Teacher,Student Name,07 JAN,Total Classes,Attended,Attendance %\nBeginner,Mrs Smith,Ann,P,1,1,100.0%\n", string(result.Payload))

	_, err = svc.exports.Export(ctx, day(t, "2024-01-01"), day(t, "2024-01-07"), "docx")
	assert.Equal(t, appErrors.ErrUnsupported.Code, errorCode(err))
}

func TestExportRenderFailure(t *testing.T) {
	svc := seededExportServices(t)
	exports := NewExportService(svc.reports, ExportConfig{FilePrefix: "Report"}, nil, failingRenderer{}, nil, nil)

	_, err := exports.Export(context.Background(), day(t, "2024-01-01"), day(t, "2024-01-07"), models.ReportFormatXLSX)
	assert.Equal(t, appErrors.ErrInternal.Code, errorCode(err))
	assert.Equal(t, "Report_20240101_20240107.pdf", exports.Filename(day(t, "2024-01-01"), day(t, "2024-01-07"), models.ReportFormatPDF))
}

type recordingArchive struct {
	saved   map[string][]byte
	saveErr error
	prunes  int
}

func (a *recordingArchive) Save(filename string, data []byte) (string, error) {
	if a.saveErr != nil {
		return "", a.saveErr
	}
	if a.saved == nil {
		a.saved = make(map[string][]byte)
	}
	a.saved[filename] = data
	return "/archive/" + filename, nil
}

func (a *recordingArchive) Prune() ([]string, error) {
	a.prunes++
	return nil, nil
}

func TestExportArchivesCopy(t *testing.T) {
	svc := seededExportServices(t)
	archive := &recordingArchive{}
	svc.exports.WithArchive(archive)

	result, err := svc.exports.Export(context.Background(), day(t, "2024-01-01"), day(t, "2024-01-14"), models.ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, result.Payload, archive.saved[result.Filename])
	assert.Equal(t, 1, archive.prunes)
}

func TestExportServedWhenArchiveFails(t *testing.T) {
	svc := seededExportServices(t)
	archive := &recordingArchive{saveErr: errors.New("disk full")}
	svc.exports.WithArchive(archive)

	result, err := svc.exports.Export(context.Background(), day(t, "2024-01-01"), day(t, "2024-01-14"), models.ReportFormatCSV)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Payload)
	assert.Zero(t, archive.prunes)
}
