package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learning-analytics-api/internal/models"
)

func userStatsFixture() (models.User, *Snapshot) {
	snap := contentFixture()
	user := models.User{
		ID:        "u1",
		FirstName: "Ada",
		LastName:  "Obi",
		CompletedBlogs: []models.CompletedBlog{
			{ClassID: "c1", CompletedAt: &fixtureNow},
			{ClassID: "c4", CompletedAt: daysAgo(2)},
			{ClassID: "c5"},
			{ClassID: "gone", CompletedAt: daysAgo(1)},
		},
	}
	snap.Users = []models.User{user}
	snap.Attempts = []models.QuizAttempt{
		{ID: "a1", UserID: "u1", QuizID: "q1", Score: scoreOf(80), IsPassed: true},
		{ID: "a2", UserID: "u1", QuizID: "q2", Score: scoreOf(40)},
		{ID: "a3", UserID: "u1", QuizID: "q3", Score: scoreOf(60), IsPassed: true},
		{ID: "a4", UserID: "u1", QuizID: "q1", IsPassed: true},
	}
	return user, snap
}

func TestComputeUserStatsRollsUpHierarchy(t *testing.T) {
	user, snap := userStatsFixture()
	idx := NewCompletionIndex(CompletionSourceUser, snap.Users, snap.Classes)

	stats := ComputeUserStats(UserStatsInput{User: user, Snapshot: snap, Index: idx, Now: fixtureNow, Location: time.UTC})

	assert.Equal(t, "u1", stats.UserID)
	assert.Equal(t, "Ada Obi", stats.Name)
	assert.Equal(t, 3, stats.TotalCourses)
	assert.Equal(t, 1, stats.CoursesCompleted)
	assert.Equal(t, 5, stats.TotalChapters)
	assert.Equal(t, 3, stats.CompletedChapters)
	assert.Equal(t, 5, stats.TotalClasses)
	assert.Equal(t, 3, stats.CompletedClasses)
	assert.Equal(t, 3, stats.TotalQuizzes)
	assert.Equal(t, 4, stats.QuizzesAttempted)
	assert.Equal(t, 2, stats.QuizzesPassed)
	assert.Equal(t, 60.0, stats.QuizAverage)

	require.Len(t, stats.PerCourseStats, 3)
	frontend := stats.PerCourseStats[0]
	assert.Equal(t, "g1", frontend.GroupID)
	assert.Equal(t, 3, frontend.ClassesTotal)
	assert.Equal(t, 1, frontend.ClassesCompleted)
	assert.Equal(t, 2, frontend.ChaptersTotal)
	assert.Equal(t, 1, frontend.ChaptersCompleted)
	assert.Equal(t, 1, frontend.QuizzesTotal)
	assert.Equal(t, 1, frontend.QuizzesAttempted)
	assert.Equal(t, 1, frontend.QuizzesPassed)
	assert.Equal(t, 80.0, frontend.QuizAverage)

	backend := stats.PerCourseStats[1]
	assert.Equal(t, 1, backend.ClassesCompleted)
	assert.Equal(t, 1, backend.ChaptersCompleted)
	assert.Equal(t, 0, backend.QuizzesPassed)
	assert.Equal(t, 40.0, backend.QuizAverage)

	empty := stats.PerCourseStats[2]
	assert.Equal(t, 1, empty.ChaptersTotal)
	assert.Equal(t, 0.0, empty.QuizAverage)

	for _, course := range stats.PerCourseStats {
		assert.LessOrEqual(t, course.ClassesCompleted, course.ClassesTotal)
		assert.LessOrEqual(t, course.ChaptersCompleted, course.ChaptersTotal)
	}
}

func TestComputeUserStatsConsistency(t *testing.T) {
	user, snap := userStatsFixture()
	idx := NewCompletionIndex(CompletionSourceUser, snap.Users, snap.Classes)

	stats := ComputeUserStats(UserStatsInput{User: user, Snapshot: snap, Index: idx, Now: fixtureNow, Location: time.UTC})

	assert.Equal(t, 42.9, stats.Consistency.Last7Days)
	assert.Equal(t, 10.0, stats.Consistency.Last30Days)
	assert.Equal(t, 3.3, stats.Consistency.Last90Days)
	assert.Equal(t, BadgeGettingThere, stats.Consistency.Badge)

	require.Len(t, stats.ActivityChartData, 90)
	last := stats.ActivityChartData[89]
	assert.Equal(t, "2024-06-15", last.Date)
	assert.Equal(t, 1, last.Completed)
	assert.Equal(t, 1, stats.ActivityChartData[88].Completed)
	assert.Equal(t, 1, stats.ActivityChartData[87].Completed)
	assert.Equal(t, 0, stats.ActivityChartData[86].Completed)
	for i := 1; i < len(stats.ActivityChartData); i++ {
		assert.Less(t, stats.ActivityChartData[i-1].Date, stats.ActivityChartData[i].Date)
	}
}

func TestComputeUserStatsWithoutActivity(t *testing.T) {
	snap := contentFixture()
	user := models.User{ID: "u2", FirstName: "Idle"}
	idx := NewCompletionIndex(CompletionSourceUser, []models.User{user}, snap.Classes)

	stats := ComputeUserStats(UserStatsInput{User: user, Snapshot: snap, Index: idx, Now: fixtureNow})

	assert.Equal(t, "Idle", stats.Name)
	assert.Equal(t, 0, stats.QuizzesAttempted)
	assert.Equal(t, 0.0, stats.QuizAverage)
	assert.Equal(t, 0.0, stats.Consistency.Last90Days)
	assert.Equal(t, BadgeNeedsMotivation, stats.Consistency.Badge)
	assert.Len(t, stats.ActivityChartData, 90)
}

func TestConsistencyBadgeThresholds(t *testing.T) {
	assert.Equal(t, BadgeConsistentLearner, consistencyBadge(100))
	assert.Equal(t, BadgeConsistentLearner, consistencyBadge(90))
	assert.Equal(t, BadgeActiveParticipant, consistencyBadge(71.4))
	assert.Equal(t, BadgeGettingThere, consistencyBadge(42.9))
	assert.Equal(t, BadgeNeedsMotivation, consistencyBadge(28.6))
}

func TestBuildTimelineNewestFirst(t *testing.T) {
	snap := contentFixture()
	snap.Classes[4].UpdatedAt = at("2024-06-09T08:00:00Z")
	records := []CompletionRecord{
		{ClassID: "c1", CompletedAt: at("2024-06-10T08:00:00Z")},
		{ClassID: "c4", CompletedAt: at("2024-06-11T08:00:00Z")},
		{ClassID: "c5"},
		{ClassID: "gone", CompletedAt: at("2024-06-11T09:00:00Z")},
		{ClassID: "c2", CompletedAt: at("2024-06-12T08:00:00Z")},
		{ClassID: "c3", CompletedAt: at("2024-06-13T08:00:00Z")},
		{ClassID: "c1", CompletedAt: at("2024-06-14T08:00:00Z")},
	}

	result := BuildTimeline(records, snap)

	require.Len(t, result.Timeline, 5)
	ids := make([]string, 0, len(result.Timeline))
	for _, entry := range result.Timeline {
		ids = append(ids, entry.BlogID)
	}
	assert.Equal(t, []string{"c1", "c3", "c2", "c5", "c4"}, ids)

	first := result.Timeline[0]
	assert.Equal(t, "Tags", first.BlogTitle)
	assert.Equal(t, "HTML", first.ChapterTitle)
	assert.Equal(t, "Frontend", first.CourseTitle)

	orphan := result.Timeline[3]
	assert.Equal(t, "Orphan", orphan.ChapterTitle)
	assert.Equal(t, "Unknown", orphan.CourseTitle)
	assert.Equal(t, at("2024-06-09T08:00:00Z"), orphan.CompletedAt)
}

func TestBuildTimelineClassSourceNewestFirst(t *testing.T) {
	snap := contentFixture()
	snap.Classes[0].CompletedBy = []string{"u1"}
	snap.Classes[1].CompletedBy = []string{"u1"}
	snap.Classes[2].CompletedBy = []string{"u1"}
	snap.Classes[2].UpdatedAt = at("2024-06-05T08:00:00Z")
	users := []models.User{{ID: "u1", CompletedBlogs: []models.CompletedBlog{
		{ClassID: "c1", CompletedAt: at("2024-06-20T08:00:00Z")},
		{ClassID: "c2", CompletedAt: at("2024-06-10T08:00:00Z")},
	}}}
	idx := NewCompletionIndex(CompletionSourceClass, users, snap.Classes)

	result := BuildTimeline(idx.Records("u1"), snap)

	ids := make([]string, 0, len(result.Timeline))
	for _, entry := range result.Timeline {
		ids = append(ids, entry.BlogID)
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids)
	assert.Equal(t, at("2024-06-05T08:00:00Z"), result.Timeline[2].CompletedAt)
}

func TestBuildTimelineEmpty(t *testing.T) {
	result := BuildTimeline(nil, contentFixture())
	assert.NotNil(t, result.Timeline)
	assert.Empty(t, result.Timeline)
}
