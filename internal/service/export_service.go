package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/learning-analytics-api/internal/dto"
	"github.com/noah-isme/learning-analytics-api/internal/models"
	appErrors "github.com/noah-isme/learning-analytics-api/pkg/errors"
	"github.com/noah-isme/learning-analytics-api/pkg/export"
)

// Exportable reports and formats.
const (
	ReportLeaderboard = "leaderboard"
	ReportCohorts     = "cohorts"
	ReportAge         = "age"
	ReportGeography   = "geography"
	ReportPerformance = "performance"
	ReportDropOff     = "dropoff"

	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// reportSource is the subset of AnalyticsService the exporter reads from.
type reportSource interface {
	Leaderboard(ctx context.Context, filter models.PopulationFilter) (*dto.LeaderboardResponse, bool, error)
	Cohorts(ctx context.Context, filter models.PopulationFilter) (*dto.CohortInsights, bool, error)
	Age(ctx context.Context, filter models.PopulationFilter) ([]dto.AgeSegment, bool, error)
	Geography(ctx context.Context, filter models.PopulationFilter) (*dto.GeographicalDistribution, bool, error)
	Performance(ctx context.Context, filter models.PopulationFilter) (*dto.PerformanceMetrics, bool, error)
	DropOff(ctx context.Context, filter models.PopulationFilter, detailed *bool) (*dto.DropOffReport, bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders analytics reports as downloadable tables.
type ExportService struct {
	reports reportSource
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(reports reportSource, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{reports: reports, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Export builds the named report for the population and renders it in the requested format.
func (s *ExportService) Export(ctx context.Context, query dto.ExportQuery, filter models.PopulationFilter) (*dto.ExportFile, error) {
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", query.Format))
	}

	dataset, title, err := s.buildDataset(ctx, strings.ToLower(strings.TrimSpace(query.Report)), filter)
	if err != nil {
		return nil, err
	}

	var payload []byte
	contentType := "text/csv"
	switch format {
	case FormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Debug("analytics export rendered",
		zap.String("report", query.Report),
		zap.String("format", format),
		zap.Int("rows", len(dataset.Rows)),
	)

	return &dto.ExportFile{
		Filename:    s.buildFilename(query.Report, format),
		ContentType: contentType,
		Content:     payload,
	}, nil
}

func (s *ExportService) buildFilename(report, format string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_report_%s.%s", sanitizeFilename(strings.ToLower(report)), timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, report string, filter models.PopulationFilter) (export.Dataset, string, error) {
	switch report {
	case ReportLeaderboard:
		return s.buildLeaderboardDataset(ctx, filter)
	case ReportCohorts:
		return s.buildCohortDataset(ctx, filter)
	case ReportAge:
		return s.buildAgeDataset(ctx, filter)
	case ReportGeography:
		return s.buildGeographyDataset(ctx, filter)
	case ReportPerformance:
		return s.buildPerformanceDataset(ctx, filter)
	case ReportDropOff:
		return s.buildDropOffDataset(ctx, filter)
	default:
		return export.Dataset{}, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report %q", report))
	}
}

func (s *ExportService) buildLeaderboardDataset(ctx context.Context, filter models.PopulationFilter) (export.Dataset, string, error) {
	result, _, err := s.reports.Leaderboard(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(result.Leaderboard))
	for _, entry := range result.Leaderboard {
		rows = append(rows, map[string]string{
			"Rank":            strconv.Itoa(entry.Rank),
			"Name":            entry.Name,
			"Email":           entry.Email,
			"Average Score":   formatFloat(entry.AvgScore),
			"Blogs Completed": strconv.Itoa(entry.BlogsCompleted),
			"Passed Quizzes":  strconv.Itoa(entry.PassedQuizzes),
			"Score":           formatFloat(entry.Score),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Rank", "Name", "Email", "Average Score", "Blogs Completed", "Passed Quizzes", "Score"},
		Rows:    rows,
	}
	return dataset, reportTitle("Leaderboard", filter), nil
}

func (s *ExportService) buildCohortDataset(ctx context.Context, filter models.PopulationFilter) (export.Dataset, string, error) {
	result, _, err := s.reports.Cohorts(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(result.Cohorts))
	for _, cohort := range result.Cohorts {
		rows = append(rows, map[string]string{
			"Cohort":         cohort.Cohort,
			"Total":          strconv.Itoa(cohort.Total),
			"Male":           strconv.Itoa(cohort.Male),
			"Female":         strconv.Itoa(cohort.Female),
			"Completions":    strconv.Itoa(cohort.Completions),
			"Engaged":        strconv.Itoa(cohort.Engaged),
			"Inactive":       strconv.Itoa(cohort.Inactive),
			"Engagement (%)": formatFloat(cohort.EngagementRate),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Cohort", "Total", "Male", "Female", "Completions", "Engaged", "Inactive", "Engagement (%)"},
		Rows:    rows,
	}
	return dataset, reportTitle("Cohort Insights", filter), nil
}

func (s *ExportService) buildAgeDataset(ctx context.Context, filter models.PopulationFilter) (export.Dataset, string, error) {
	segments, _, err := s.reports.Age(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(segments))
	for _, segment := range segments {
		rows = append(rows, map[string]string{
			"Age Group":          segment.Range,
			"Count":              strconv.Itoa(segment.Count),
			"Percent":            formatFloat(segment.Percent),
			"Avg Completion (%)": formatFloat(segment.AvgCompletion),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Age Group", "Count", "Percent", "Avg Completion (%)"},
		Rows:    rows,
	}
	return dataset, reportTitle("Age Segmentation", filter), nil
}

func (s *ExportService) buildGeographyDataset(ctx context.Context, filter models.PopulationFilter) (export.Dataset, string, error) {
	result, _, err := s.reports.Geography(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(result.ByCountry)+len(result.NigeriaByState))
	for _, country := range sortedKeys(result.ByCountry) {
		rows = append(rows, map[string]string{"Level": "Country", "Name": country, "Count": strconv.Itoa(result.ByCountry[country])})
	}
	for _, state := range sortedKeys(result.NigeriaByState) {
		rows = append(rows, map[string]string{"Level": "State", "Name": state, "Count": strconv.Itoa(result.NigeriaByState[state])})
	}
	for _, city := range sortedKeys(result.NigeriaByCity) {
		rows = append(rows, map[string]string{"Level": "City", "Name": city, "Count": strconv.Itoa(result.NigeriaByCity[city])})
	}
	dataset := export.Dataset{
		Headers: []string{"Level", "Name", "Count"},
		Rows:    rows,
	}
	return dataset, reportTitle("Geographical Spread", filter), nil
}

func (s *ExportService) buildPerformanceDataset(ctx context.Context, filter models.PopulationFilter) (export.Dataset, string, error) {
	result, _, err := s.reports.Performance(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := []map[string]string{
		{"Metric": "Avg Quiz Score", "Value": formatFloat(result.AverageQuizScore)},
		{"Metric": "Avg Completion Rate", "Value": formatFloat(result.AvgCompletionRate)},
		{"Metric": "Certificates Issued", "Value": strconv.Itoa(result.CertificatesIssued)},
		{"Metric": "Most Popular Course", "Value": result.MostPopularCourse},
		{"Metric": "Most Completed Class", "Value": result.MostCompletedClass},
		{"Metric": "Most Completed Quiz", "Value": result.MostCompletedQuiz},
	}
	dataset := export.Dataset{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}
	return dataset, reportTitle("Performance Metrics", filter), nil
}

func (s *ExportService) buildDropOffDataset(ctx context.Context, filter models.PopulationFilter) (export.Dataset, string, error) {
	detailed := true
	result, _, err := s.reports.DropOff(ctx, filter, &detailed)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(result.Detailed))
	for _, entry := range result.Detailed {
		rows = append(rows, map[string]string{
			"Name":          entry.Name,
			"Email":         entry.Email,
			"Cohort":        entry.Cohort,
			"Last Activity": formatReportTime(entry.LastActivity),
			"Reason":        entry.Reason,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Name", "Email", "Cohort", "Last Activity", "Reason"},
		Rows:    rows,
	}
	title := fmt.Sprintf("%s (active %d, inactive 14-30 %d, inactive 30+ %d)",
		reportTitle("Drop-Off Tracking", filter), result.ActiveCount, result.Inactive14Count, result.Inactive30Count)
	return dataset, title, nil
}

func reportTitle(name string, filter models.PopulationFilter) string {
	if cohort := strings.TrimSpace(filter.Cohort); cohort != "" {
		return fmt.Sprintf("%s - %s", name, cohort)
	}
	return name
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatReportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
