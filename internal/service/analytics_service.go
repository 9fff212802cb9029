package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/learning-analytics-api/internal/dto"
	"github.com/noah-isme/learning-analytics-api/internal/models"
)

const analyticsCachePattern = "analytics:*"

// AnalyticsOptions pins the computation policy shared by every analytics operation.
type AnalyticsOptions struct {
	Location         *time.Location
	CompletionSource CompletionSource
	FocusCountry     string
	LeaderboardSize  int
	DropOffDetailed  bool
}

// AnalyticsService computes analytics from request-scoped snapshots with optional read-through caching.
type AnalyticsService struct {
	loader  *SnapshotLoader
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	opts    AnalyticsOptions
	now     func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(loader *SnapshotLoader, cache *CacheService, metrics *MetricsService, logger *zap.Logger, opts AnalyticsOptions) *AnalyticsService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.CompletionSource == "" {
		opts.CompletionSource = CompletionSourceUser
	}
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = DefaultLeaderboardSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{loader: loader, cache: cache, metrics: metrics, logger: logger, opts: opts, now: time.Now}
}

// UserStats returns the per-user progress roll-up. The boolean indicates whether data originated from cache.
func (s *AnalyticsService) UserStats(ctx context.Context, userID string) (*dto.UserStatsResponse, bool, error) {
	return cached(ctx, s, "user_stats", []string{"user=" + userID}, func(ctx context.Context) (*dto.UserStatsResponse, error) {
		user, err := s.loader.FindUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		snap, err := s.loader.Load(ctx, SnapshotSpec{
			Content:    true,
			Quizzes:    true,
			Attempts:   AttemptsByID,
			AttemptIDs: user.QuizAttemptIDs,
		})
		if err != nil {
			return nil, err
		}
		idx := NewCompletionIndex(s.opts.CompletionSource, []models.User{*user}, snap.Classes)
		stats := ComputeUserStats(UserStatsInput{
			User:     *user,
			Snapshot: snap,
			Index:    idx,
			Now:      s.now(),
			Location: s.opts.Location,
		})
		return &stats, nil
	})
}

// UserTimeline returns the user's most recent completions.
func (s *AnalyticsService) UserTimeline(ctx context.Context, userID string) (*dto.TimelineResponse, bool, error) {
	return cached(ctx, s, "user_timeline", []string{"user=" + userID}, func(ctx context.Context) (*dto.TimelineResponse, error) {
		user, err := s.loader.FindUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		snap, err := s.loader.Load(ctx, SnapshotSpec{Content: true})
		if err != nil {
			return nil, err
		}
		idx := NewCompletionIndex(s.opts.CompletionSource, []models.User{*user}, snap.Classes)
		timeline := BuildTimeline(idx.Records(user.ID), snap)
		return &timeline, nil
	})
}

// Groups lists every course.
func (s *AnalyticsService) Groups(ctx context.Context) ([]dto.GroupSummary, bool, error) {
	return cached(ctx, s, "groups", nil, func(ctx context.Context) ([]dto.GroupSummary, error) {
		snap, err := s.loader.Load(ctx, SnapshotSpec{Content: true})
		if err != nil {
			return nil, err
		}
		return GroupSummaries(snap.Groups), nil
	})
}

// Gender returns the gender split of the population.
func (s *AnalyticsService) Gender(ctx context.Context, filter models.PopulationFilter) (*dto.GenderDistribution, bool, error) {
	return cached(ctx, s, "gender", filterKey(filter), func(ctx context.Context) (*dto.GenderDistribution, error) {
		snap, err := s.loadPopulation(ctx, filter, SnapshotSpec{})
		if err != nil {
			return nil, err
		}
		result := ComputeGender(snap.Users)
		return &result, nil
	})
}

// Age returns the fixed age segments of the population.
func (s *AnalyticsService) Age(ctx context.Context, filter models.PopulationFilter) ([]dto.AgeSegment, bool, error) {
	return cached(ctx, s, "age", filterKey(filter), func(ctx context.Context) ([]dto.AgeSegment, error) {
		snap, err := s.loadPopulation(ctx, filter, SnapshotSpec{Content: true})
		if err != nil {
			return nil, err
		}
		idx := s.completionIndex(snap)
		return ComputeAgeSegments(snap.Users, snap.Classes, idx, s.now(), s.opts.Location), nil
	})
}

// Geography returns the location spread of the population.
func (s *AnalyticsService) Geography(ctx context.Context, filter models.PopulationFilter) (*dto.GeographicalDistribution, bool, error) {
	return cached(ctx, s, "geography", filterKey(filter), func(ctx context.Context) (*dto.GeographicalDistribution, error) {
		snap, err := s.loadPopulation(ctx, filter, SnapshotSpec{})
		if err != nil {
			return nil, err
		}
		result := ComputeGeography(snap.Users, s.opts.FocusCountry)
		return &result, nil
	})
}

// Engagement returns time-bucketed engagement series at the requested granularity.
func (s *AnalyticsService) Engagement(ctx context.Context, filter models.PopulationFilter, granularity models.Granularity) (*dto.EngagementAnalysis, bool, error) {
	if granularity == "" {
		granularity = models.GranularityMonthly
	}
	parts := append(filterKey(filter), "range="+string(granularity))
	return cached(ctx, s, "engagement", parts, func(ctx context.Context) (*dto.EngagementAnalysis, error) {
		snap, err := s.loadPopulation(ctx, filter, SnapshotSpec{
			Content:  s.classSourced(),
			Attempts: AttemptsAll,
		})
		if err != nil {
			return nil, err
		}
		result := ComputeEngagement(EngagementInput{
			Users:       snap.Users,
			Attempts:    s.populationAttempts(filter, snap),
			Index:       s.completionIndex(snap),
			Granularity: granularity,
			Location:    s.opts.Location,
		})
		return &result, nil
	})
}

// Performance returns platform-wide outcome metrics.
func (s *AnalyticsService) Performance(ctx context.Context, filter models.PopulationFilter) (*dto.PerformanceMetrics, bool, error) {
	return cached(ctx, s, "performance", filterKey(filter), func(ctx context.Context) (*dto.PerformanceMetrics, error) {
		snap, err := s.loadPopulation(ctx, filter, SnapshotSpec{
			Content:  true,
			Quizzes:  true,
			Attempts: AttemptsAll,
		})
		if err != nil {
			return nil, err
		}
		var members memberSet
		if !filter.IsZero() {
			members = newMemberSet(snap.Users)
		}
		result := ComputePerformance(PerformanceInput{
			Users:    snap.Users,
			Snapshot: snap,
			Attempts: s.populationAttempts(filter, snap),
			Index:    s.completionIndex(snap),
			Members:  members,
		})
		return &result, nil
	})
}

// Cohorts compares engagement across cohorts.
func (s *AnalyticsService) Cohorts(ctx context.Context, filter models.PopulationFilter) (*dto.CohortInsights, bool, error) {
	return cached(ctx, s, "cohorts", filterKey(filter), func(ctx context.Context) (*dto.CohortInsights, error) {
		snap, err := s.loadPopulation(ctx, filter, SnapshotSpec{Content: true, Attempts: AttemptsAll})
		if err != nil {
			return nil, err
		}
		result := ComputeCohorts(CohortInput{
			Users:    snap.Users,
			Classes:  snap.Classes,
			Attempts: snap.Attempts,
			Index:    s.completionIndex(snap),
			Now:      s.now(),
			Location: s.opts.Location,
		})
		return &result, nil
	})
}

// Leaderboard ranks the population by composite score.
func (s *AnalyticsService) Leaderboard(ctx context.Context, filter models.PopulationFilter) (*dto.LeaderboardResponse, bool, error) {
	parts := append(filterKey(filter), "size="+strconv.Itoa(s.opts.LeaderboardSize))
	return cached(ctx, s, "leaderboard", parts, func(ctx context.Context) (*dto.LeaderboardResponse, error) {
		snap, err := s.loadPopulation(ctx, filter, SnapshotSpec{
			Content:  s.classSourced(),
			Attempts: AttemptsAll,
		})
		if err != nil {
			return nil, err
		}
		result := ComputeLeaderboard(LeaderboardInput{
			Users:    snap.Users,
			Attempts: snap.Attempts,
			Index:    s.completionIndex(snap),
			Size:     s.opts.LeaderboardSize,
		})
		return &result, nil
	})
}

// DropOff counts users per inactivity band. A nil detailed flag falls back to the configured default.
func (s *AnalyticsService) DropOff(ctx context.Context, filter models.PopulationFilter, detailed *bool) (*dto.DropOffReport, bool, error) {
	withDetail := s.opts.DropOffDetailed
	if detailed != nil {
		withDetail = *detailed
	}
	parts := append(filterKey(filter), "detailed="+strconv.FormatBool(withDetail))
	return cached(ctx, s, "dropoff", parts, func(ctx context.Context) (*dto.DropOffReport, error) {
		snap, err := s.loadPopulation(ctx, filter, SnapshotSpec{Content: s.classSourced()})
		if err != nil {
			return nil, err
		}
		result := ComputeDropOff(DropOffInput{
			Users:    snap.Users,
			Index:    s.completionIndex(snap),
			Now:      s.now(),
			Detailed: withDetail,
		})
		return &result, nil
	})
}

// PurgeCache drops every cached analytics result.
func (s *AnalyticsService) PurgeCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.Invalidate(ctx, analyticsCachePattern)
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() dto.SystemMetrics {
	if s.metrics == nil {
		return dto.SystemMetrics{}
	}
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) loadPopulation(ctx context.Context, filter models.PopulationFilter, spec SnapshotSpec) (*Snapshot, error) {
	spec.Users = true
	spec.UserFilter = models.UserListFilter{Cohort: strings.TrimSpace(filter.Cohort)}
	snap, err := s.loader.Load(ctx, spec)
	if err != nil {
		return nil, err
	}
	if !filter.IsZero() {
		users := make([]models.User, 0, len(snap.Users))
		for _, user := range snap.Users {
			if filter.Matches(user) {
				users = append(users, user)
			}
		}
		snap.Users = users
	}
	return snap, nil
}

func (s *AnalyticsService) populationAttempts(filter models.PopulationFilter, snap *Snapshot) []models.QuizAttempt {
	if filter.IsZero() {
		return snap.Attempts
	}
	return FilterAttemptsByUsers(snap.Attempts, snap.Users)
}

func (s *AnalyticsService) completionIndex(snap *Snapshot) *CompletionIndex {
	return NewCompletionIndex(s.opts.CompletionSource, snap.Users, snap.Classes)
}

func (s *AnalyticsService) classSourced() bool {
	return s.opts.CompletionSource == CompletionSourceClass
}

// cached serves a result from cache when possible and stores freshly computed ones.
// Cache failures are logged by the cache service and never fail the request.
func cached[T any](ctx context.Context, s *AnalyticsService, operation string, params []string, compute func(context.Context) (T, error)) (T, bool, error) {
	parts := make([]string, 0, len(params)+3)
	parts = append(parts, operation, "source="+string(s.opts.CompletionSource))
	parts = append(parts, params...)
	parts = append(parts, "day="+s.now().In(s.opts.Location).Format("2006-01-02"))
	key := makeAnalyticsCacheKey(parts...)

	var result T
	if hit, err := s.cache.Get(ctx, key, &result); err == nil && hit {
		return result, true, nil
	}

	start := time.Now()
	result, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	s.metrics.ObserveComputation(operation, time.Since(start))

	if err := s.cache.Set(ctx, key, result, 0); err != nil {
		s.logger.Debug("analytics result not cached", zap.String("operation", operation), zap.Error(err))
	}
	return result, false, nil
}

func filterKey(filter models.PopulationFilter) []string {
	parts := make([]string, 0, 4)
	if cohort := strings.ToLower(strings.TrimSpace(filter.Cohort)); cohort != "" {
		parts = append(parts, "cohort="+cohort)
	}
	if filter.From != nil {
		parts = append(parts, "from="+formatTime(filter.From))
	}
	if filter.To != nil {
		parts = append(parts, "to="+formatTime(filter.To))
	}
	if filter.Active != nil {
		parts = append(parts, "active="+strconv.FormatBool(*filter.Active))
	}
	return parts
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
