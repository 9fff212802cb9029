package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/learning-analytics-api/internal/dto"
	"github.com/noah-isme/learning-analytics-api/internal/middleware"
	"github.com/noah-isme/learning-analytics-api/internal/models"
	appErrors "github.com/noah-isme/learning-analytics-api/pkg/errors"
	"github.com/noah-isme/learning-analytics-api/pkg/response"
)

type analyticsService interface {
	UserStats(ctx context.Context, userID string) (*dto.UserStatsResponse, bool, error)
	UserTimeline(ctx context.Context, userID string) (*dto.TimelineResponse, bool, error)
	Gender(ctx context.Context, filter models.PopulationFilter) (*dto.GenderDistribution, bool, error)
	Age(ctx context.Context, filter models.PopulationFilter) ([]dto.AgeSegment, bool, error)
	Geography(ctx context.Context, filter models.PopulationFilter) (*dto.GeographicalDistribution, bool, error)
	Engagement(ctx context.Context, filter models.PopulationFilter, granularity models.Granularity) (*dto.EngagementAnalysis, bool, error)
	Performance(ctx context.Context, filter models.PopulationFilter) (*dto.PerformanceMetrics, bool, error)
	Cohorts(ctx context.Context, filter models.PopulationFilter) (*dto.CohortInsights, bool, error)
	Leaderboard(ctx context.Context, filter models.PopulationFilter) (*dto.LeaderboardResponse, bool, error)
	DropOff(ctx context.Context, filter models.PopulationFilter, detailed *bool) (*dto.DropOffReport, bool, error)
	PurgeCache(ctx context.Context) (int, error)
	SystemMetrics() dto.SystemMetrics
}

type analyticsExporter interface {
	Export(ctx context.Context, query dto.ExportQuery, filter models.PopulationFilter) (*dto.ExportFile, error)
}

// AnalyticsHandler exposes learner and population analytics endpoints.
type AnalyticsHandler struct {
	service  analyticsService
	exporter analyticsExporter
	parser   populationParser
}

// NewAnalyticsHandler constructs the handler. Calendar dates in query filters are read in loc.
func NewAnalyticsHandler(service analyticsService, exporter analyticsExporter, validate *validator.Validate, loc *time.Location) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:  service,
		exporter: exporter,
		parser:   newPopulationParser(validate, loc),
	}
}

// UserStats godoc
// @Summary Per-user learning statistics
// @Tags Analytics
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /analytics/users/{id}/stats [get]
func (h *AnalyticsHandler) UserStats(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "user id is required"))
		return
	}
	start := time.Now()
	stats, cacheHit, err := h.service.UserStats(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeAnalytics(c, start, stats, cacheHit)
}

// UserTimeline godoc
// @Summary Most recent completions of a user
// @Tags Analytics
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /analytics/users/{id}/timeline [get]
func (h *AnalyticsHandler) UserTimeline(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "user id is required"))
		return
	}
	start := time.Now()
	timeline, cacheHit, err := h.service.UserTimeline(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeAnalytics(c, start, timeline, cacheHit)
}

// Gender godoc
// @Summary Gender distribution
// @Tags Analytics
// @Produce json
// @Param cohort query string false "Cohort"
// @Param from query string false "Registered from (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Registered until (RFC3339 or YYYY-MM-DD)"
// @Param active query bool false "Account active flag"
// @Success 200 {object} response.Envelope
// @Router /analytics/gender-distribution [get]
func (h *AnalyticsHandler) Gender(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	_, filter, err := h.parser.parse(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	result, cacheHit, err := h.service.Gender(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeAnalytics(c, start, result, cacheHit)
}

// Age godoc
// @Summary Age segmentation
// @Tags Analytics
// @Produce json
// @Param cohort query string false "Cohort"
// @Param from query string false "Registered from (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Registered until (RFC3339 or YYYY-MM-DD)"
// @Param active query bool false "Account active flag"
// @Success 200 {object} response.Envelope
// @Router /analytics/age-segmentation [get]
func (h *AnalyticsHandler) Age(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	_, filter, err := h.parser.parse(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	segments, cacheHit, err := h.service.Age(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeAnalytics(c, start, segments, cacheHit)
}

// Geography godoc
// @Summary Geographical distribution
// @Tags Analytics
// @Produce json
// @Param cohort query string false "Cohort"
// @Param from query string false "Registered from (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Registered until (RFC3339 or YYYY-MM-DD)"
// @Param active query bool false "Account active flag"
// @Success 200 {object} response.Envelope
// @Router /analytics/geographical-distribution [get]
func (h *AnalyticsHandler) Geography(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	_, filter, err := h.parser.parse(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	result, cacheHit, err := h.service.Geography(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeAnalytics(c, start, result, cacheHit)
}

// Engagement godoc
// @Summary Engagement time series
// @Tags Analytics
// @Produce json
// @Param range query string false "daily, weekly or monthly (default monthly)"
// @Param cohort query string false "Cohort"
// @Param from query string false "Registered from (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Registered until (RFC3339 or YYYY-MM-DD)"
// @Param active query bool false "Account active flag"
// @Success 200 {object} response.Envelope
// @Router /analytics/engagement-analysis [get]
func (h *AnalyticsHandler) Engagement(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	query, filter, err := h.parser.parse(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	granularity := models.Granularity(query.Range)
	if granularity == "" {
		granularity = models.GranularityMonthly
	}
	start := time.Now()
	result, cacheHit, err := h.service.Engagement(c.Request.Context(), filter, granularity)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeAnalytics(c, start, result, cacheHit)
}

// Performance godoc
// @Summary Platform performance metrics
// @Tags Analytics
// @Produce json
// @Param cohort query string false "Cohort"
// @Param from query string false "Registered from (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Registered until (RFC3339 or YYYY-MM-DD)"
// @Param active query bool false "Account active flag"
// @Success 200 {object} response.Envelope
// @Router /analytics/performance-metrics [get]
func (h *AnalyticsHandler) Performance(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	_, filter, err := h.parser.parse(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	result, cacheHit, err := h.service.Performance(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeAnalytics(c, start, result, cacheHit)
}

// Cohorts godoc
// @Summary Cohort engagement insights
// @Tags Analytics
// @Produce json
// @Param cohort query string false "Cohort"
// @Param from query string false "Registered from (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Registered until (RFC3339 or YYYY-MM-DD)"
// @Param active query bool false "Account active flag"
// @Success 200 {object} response.Envelope
// @Router /analytics/cohort-insights [get]
func (h *AnalyticsHandler) Cohorts(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	_, filter, err := h.parser.parse(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	result, cacheHit, err := h.service.Cohorts(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeAnalytics(c, start, result, cacheHit)
}

// Leaderboard godoc
// @Summary Learner leaderboard
// @Tags Analytics
// @Produce json
// @Param cohort query string false "Cohort"
// @Param from query string false "Registered from (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Registered until (RFC3339 or YYYY-MM-DD)"
// @Param active query bool false "Account active flag"
// @Success 200 {object} response.Envelope
// @Router /analytics/leaderboard [get]
func (h *AnalyticsHandler) Leaderboard(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	_, filter, err := h.parser.parse(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	result, cacheHit, err := h.service.Leaderboard(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeAnalytics(c, start, result, cacheHit)
}

// DropOff godoc
// @Summary Drop-off tracking
// @Tags Analytics
// @Produce json
// @Param detailed query bool false "List each inactive user"
// @Param cohort query string false "Cohort"
// @Param from query string false "Registered from (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Registered until (RFC3339 or YYYY-MM-DD)"
// @Param active query bool false "Account active flag"
// @Success 200 {object} response.Envelope
// @Router /analytics/drop-off-tracking [get]
func (h *AnalyticsHandler) DropOff(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	query, filter, err := h.parser.parse(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	result, cacheHit, err := h.service.DropOff(c.Request.Context(), filter, parseOptionalBool(query.Detailed))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeAnalytics(c, start, result, cacheHit)
}

// Export godoc
// @Summary Download an analytics report
// @Tags Analytics
// @Produce text/csv
// @Produce application/pdf
// @Param report query string true "leaderboard, cohorts, age, geography, performance or dropoff"
// @Param format query string false "csv (default) or pdf"
// @Param cohort query string false "Cohort"
// @Success 200 {file} file
// @Router /analytics/export [get]
func (h *AnalyticsHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export parameters"))
		return
	}
	query.Report = strings.ToLower(strings.TrimSpace(query.Report))
	query.Format = strings.ToLower(strings.TrimSpace(query.Format))
	if err := h.parser.validate.Struct(query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export parameters"))
		return
	}
	_, filter, err := h.parser.parse(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.exporter.Export(c.Request.Context(), query, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

// PurgeCache godoc
// @Summary Purge cached analytics
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/cache [delete]
func (h *AnalyticsHandler) PurgeCache(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	removed, err := h.service.PurgeCache(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CachePurgeResult{Removed: removed}, middleware.ExtractMeta(c))
}

// System godoc
// @Summary Analytics runtime metrics
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	response.JSON(c, http.StatusOK, h.service.SystemMetrics(), middleware.ExtractMeta(c))
}

func writeAnalytics(c *gin.Context, start time.Time, data interface{}, cacheHit bool) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, data, meta)
}
