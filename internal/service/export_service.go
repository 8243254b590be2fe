package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/export"
)

type reportRenderer interface {
	ContentType() string
	Render(data export.Dataset) ([]byte, error)
}

var gradeReportHeaders = []string{"Item", "Type", "Grade", "Range", "Percentage", "Feedback"}

// ExportService renders grade reports into downloadable documents.
type ExportService struct {
	csv    reportRenderer
	pdf    reportRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the
// package export implementations.
func NewExportService(csv, pdf reportRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ParseReportFormat normalizes a format query value. Empty means JSON.
func ParseReportFormat(raw string) (models.ReportFormat, error) {
	switch format := models.ReportFormat(strings.ToLower(strings.TrimSpace(raw))); format {
	case "":
		return models.ReportFormatJSON, nil
	case models.ReportFormatJSON, models.ReportFormatCSV, models.ReportFormatPDF:
		return format, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "format must be one of json, csv or pdf")
	}
}

// RenderGrades encodes report as CSV or PDF.
func (s *ExportService) RenderGrades(report *models.GradeReport, format models.ReportFormat) (*models.RenderedReport, error) {
	var renderer reportRenderer
	switch format {
	case models.ReportFormatCSV:
		renderer = s.csv
	case models.ReportFormatPDF:
		renderer = s.pdf
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	body, err := renderer.Render(gradeDataset(report))
	if err != nil {
		s.logger.Error("grade report render failed", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render grade report")
	}
	return &models.RenderedReport{
		FileName:    s.fileName(report, format),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func gradeDataset(report *models.GradeReport) export.Dataset {
	rows := make([]map[string]string, 0, len(report.Items))
	for _, item := range report.Items {
		grade := item.GradeFormatted
		if grade == "" && item.GradeRaw != nil {
			grade = strconv.FormatFloat(*item.GradeRaw, 'f', 2, 64)
		}
		if grade == "" {
			grade = "-"
		}
		rows = append(rows, map[string]string{
			"Item":       strings.TrimSpace(item.ItemName),
			"Type":       item.ItemType,
			"Grade":      grade,
			"Range":      fmt.Sprintf("%s-%s", formatScore(item.GradeMin), formatScore(item.GradeMax)),
			"Percentage": item.PercentageFormatted,
			"Feedback":   item.Feedback,
		})
	}
	subtitles := []string{fmt.Sprintf("Course %d", report.CourseID)}
	if report.UserFullName != "" {
		subtitles = append(subtitles, "Student: "+report.UserFullName)
	}
	return export.Dataset{
		Title:     "Grade Report",
		Subtitles: subtitles,
		Headers:   gradeReportHeaders,
		Rows:      rows,
	}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (s *ExportService) fileName(report *models.GradeReport, format models.ReportFormat) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("grades_course-%d_user-%d_%s.%s", report.CourseID, report.UserID, timestamp, format)
}
