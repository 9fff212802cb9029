package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/learning-analytics-api/internal/models"
	appErrors "github.com/noah-isme/learning-analytics-api/pkg/errors"
)

type fakeEntityStore struct {
	mu         sync.Mutex
	snap       *Snapshot
	userCalls  int
	listErr    error
	attemptErr error
	lastFilter models.UserListFilter
	lastIDs    []string
}

func (f *fakeEntityStore) store() EntityStore {
	return EntityStore{
		Users:        fakeUsers{f},
		Groups:       fakeList[models.Group]{f, func() []models.Group { return f.snap.Groups }},
		Chapters:     fakeList[models.Chapter]{f, func() []models.Chapter { return f.snap.Chapters }},
		Classes:      fakeList[models.Class]{f, func() []models.Class { return f.snap.Classes }},
		Quizzes:      fakeList[models.Quiz]{f, func() []models.Quiz { return f.snap.Quizzes }},
		QuizAttempts: fakeAttempts{f},
	}
}

type fakeUsers struct{ f *fakeEntityStore }

func (u fakeUsers) List(_ context.Context, filter models.UserListFilter) ([]models.User, error) {
	u.f.mu.Lock()
	defer u.f.mu.Unlock()
	u.f.userCalls++
	u.f.lastFilter = filter
	if u.f.listErr != nil {
		return nil, u.f.listErr
	}
	return u.f.snap.Users, nil
}

func (u fakeUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	u.f.mu.Lock()
	defer u.f.mu.Unlock()
	u.f.userCalls++
	for _, user := range u.f.snap.Users {
		if user.ID == id {
			found := user
			return &found, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
}

type fakeList[T any] struct {
	f    *fakeEntityStore
	read func() []T
}

func (l fakeList[T]) List(context.Context) ([]T, error) {
	return l.read(), nil
}

type fakeAttempts struct{ f *fakeEntityStore }

func (a fakeAttempts) List(context.Context) ([]models.QuizAttempt, error) {
	if a.f.attemptErr != nil {
		return nil, a.f.attemptErr
	}
	return a.f.snap.Attempts, nil
}

func (a fakeAttempts) ListByIDs(_ context.Context, ids []string) ([]models.QuizAttempt, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	a.f.lastIDs = ids
	if a.f.attemptErr != nil {
		return nil, a.f.attemptErr
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	result := make([]models.QuizAttempt, 0, len(ids))
	for _, attempt := range a.f.snap.Attempts {
		if _, ok := wanted[attempt.ID]; ok {
			result = append(result, attempt)
		}
	}
	return result, nil
}

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	removed := 0
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
			removed++
		}
	}
	return removed, nil
}

type failingCacheRepo struct{}

func (failingCacheRepo) Get(context.Context, string, interface{}) error { return assert.AnError }
func (failingCacheRepo) Set(context.Context, string, interface{}, time.Duration) error {
	return assert.AnError
}
func (failingCacheRepo) DeleteByPattern(context.Context, string) (int, error) {
	return 0, assert.AnError
}

func newAnalyticsServiceForTest(t *testing.T, fake *fakeEntityStore, cacheRepo CacheRepository) *AnalyticsService {
	t.Helper()
	metrics := NewMetricsService()
	cacheSvc := NewCacheService(cacheRepo, metrics, time.Minute, zap.NewNop(), cacheRepo != nil)
	loader := NewSnapshotLoader(fake.store(), metrics, time.Second)
	svc := NewAnalyticsService(loader, cacheSvc, metrics, zap.NewNop(), AnalyticsOptions{
		Location:         time.UTC,
		CompletionSource: CompletionSourceUser,
		FocusCountry:     "Nigeria",
	})
	svc.now = func() time.Time { return fixtureNow }
	return svc
}

func TestAnalyticsServiceUserStatsCaching(t *testing.T) {
	_, snap := userStatsFixture()
	snap.Users[0].QuizAttemptIDs = []string{"a1", "a2", "missing"}
	fake := &fakeEntityStore{snap: snap}
	svc := newAnalyticsServiceForTest(t, fake, &stubCacheRepo{})
	ctx := context.Background()

	stats, cacheHit, err := svc.UserStats(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, []string{"a1", "a2", "missing"}, fake.lastIDs)
	assert.Equal(t, 2, stats.QuizzesAttempted)
	assert.Equal(t, 60.0, stats.QuizAverage)
	assert.Equal(t, 1, fake.userCalls)

	cachedStats, cacheHit, err := svc.UserStats(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, cacheHit)
	assert.Equal(t, 1, fake.userCalls)
	assert.Equal(t, stats.CompletedClasses, cachedStats.CompletedClasses)
	assert.Equal(t, stats.Consistency, cachedStats.Consistency)
}

func TestAnalyticsServiceUserStatsNotFound(t *testing.T) {
	fake := &fakeEntityStore{snap: contentFixture()}
	svc := newAnalyticsServiceForTest(t, fake, nil)

	_, _, err := svc.UserStats(context.Background(), "nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAnalyticsServiceReadFailureIsComputationFailure(t *testing.T) {
	fake := &fakeEntityStore{snap: populationFixture(), attemptErr: assert.AnError}
	svc := newAnalyticsServiceForTest(t, fake, &stubCacheRepo{})

	result, _, err := svc.Leaderboard(context.Background(), models.PopulationFilter{})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, appErrors.ErrAnalyticsFailed)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestAnalyticsServiceCohortFilter(t *testing.T) {
	fake := &fakeEntityStore{snap: populationFixture()}
	svc := newAnalyticsServiceForTest(t, fake, nil)

	gender, cacheHit, err := svc.Gender(context.Background(), models.PopulationFilter{Cohort: "cohort a"})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, "cohort a", fake.lastFilter.Cohort)
	assert.Equal(t, 2, gender.Total)
	assert.Equal(t, 1, gender.Male)
	assert.Equal(t, 1, gender.Female)
}

func TestAnalyticsServiceActiveFilterRestrictsAttempts(t *testing.T) {
	fake := &fakeEntityStore{snap: populationFixture()}
	svc := newAnalyticsServiceForTest(t, fake, nil)
	active := true

	performance, _, err := svc.Performance(context.Background(), models.PopulationFilter{Active: &active})
	require.NoError(t, err)
	assert.Equal(t, 80.0, performance.AverageQuizScore)
	assert.Equal(t, 1, performance.CertificatesIssued)

	all, _, err := svc.Performance(context.Background(), models.PopulationFilter{})
	require.NoError(t, err)
	assert.Equal(t, 70.0, all.AverageQuizScore)
}

func TestAnalyticsServicePopulationOperations(t *testing.T) {
	fake := &fakeEntityStore{snap: populationFixture()}
	svc := newAnalyticsServiceForTest(t, fake, nil)
	ctx := context.Background()

	age, _, err := svc.Age(ctx, models.PopulationFilter{})
	require.NoError(t, err)
	assert.Len(t, age, 5)

	geo, _, err := svc.Geography(ctx, models.PopulationFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Nigeria", geo.FocusCountry)

	engagement, _, err := svc.Engagement(ctx, models.PopulationFilter{}, "")
	require.NoError(t, err)
	assert.Equal(t, "monthly", engagement.Range)

	cohorts, _, err := svc.Cohorts(ctx, models.PopulationFilter{})
	require.NoError(t, err)
	assert.Len(t, cohorts.Cohorts, 2)

	leaderboard, _, err := svc.Leaderboard(ctx, models.PopulationFilter{})
	require.NoError(t, err)
	assert.Len(t, leaderboard.Leaderboard, 4)

	groups, _, err := svc.Groups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 3)

	timeline, _, err := svc.UserTimeline(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, timeline.Timeline, 2)
}

func TestAnalyticsServiceDropOffDetailedOverride(t *testing.T) {
	fake := &fakeEntityStore{snap: populationFixture()}
	svc := newAnalyticsServiceForTest(t, fake, nil)
	ctx := context.Background()

	report, _, err := svc.DropOff(ctx, models.PopulationFilter{}, nil)
	require.NoError(t, err)
	assert.Nil(t, report.Detailed)
	assert.Equal(t, 4, report.Inactive30Count)

	detailed := true
	report, _, err = svc.DropOff(ctx, models.PopulationFilter{}, &detailed)
	require.NoError(t, err)
	assert.Len(t, report.Detailed, 4)
}

func TestAnalyticsServiceCacheFailureDoesNotFailRequest(t *testing.T) {
	fake := &fakeEntityStore{snap: populationFixture()}
	svc := newAnalyticsServiceForTest(t, fake, failingCacheRepo{})

	gender, cacheHit, err := svc.Gender(context.Background(), models.PopulationFilter{})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 4, gender.Total)

	_, err = svc.PurgeCache(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestAnalyticsServicePurgeCache(t *testing.T) {
	fake := &fakeEntityStore{snap: populationFixture()}
	cacheRepo := &stubCacheRepo{}
	svc := newAnalyticsServiceForTest(t, fake, cacheRepo)
	ctx := context.Background()

	_, _, err := svc.Gender(ctx, models.PopulationFilter{})
	require.NoError(t, err)
	_, _, err = svc.Geography(ctx, models.PopulationFilter{})
	require.NoError(t, err)

	removed, err := svc.PurgeCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, cacheHit, err := svc.Gender(ctx, models.PopulationFilter{})
	require.NoError(t, err)
	assert.False(t, cacheHit)
}

func TestAnalyticsServiceSystemMetrics(t *testing.T) {
	fake := &fakeEntityStore{snap: populationFixture()}
	svc := newAnalyticsServiceForTest(t, fake, nil)

	_, _, err := svc.Gender(context.Background(), models.PopulationFilter{})
	require.NoError(t, err)

	snapshot := svc.SystemMetrics()
	assert.Equal(t, uint64(1), snapshot.ComputationsTotal)
	assert.Equal(t, uint64(1), snapshot.StoreReadCount)
}

func TestMakeAnalyticsCacheKey(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	key := makeAnalyticsCacheKey(append([]string{"gender"}, filterKey(models.PopulationFilter{Cohort: " Cohort A ", From: &from})...)...)
	assert.Equal(t, "analytics:gender:cohort=cohort a:from=2024-01-01T00|00|00Z", key)
}
