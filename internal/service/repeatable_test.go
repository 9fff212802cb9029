package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learning-analytics-api/internal/models"
)

func TestComputationsAreRepeatable(t *testing.T) {
	snap := populationFixture()
	user, userSnap := userStatsFixture()

	cases := map[string]func() interface{}{
		"gender": func() interface{} { return ComputeGender(snap.Users) },
		"age": func() interface{} {
			idx := NewCompletionIndex(CompletionSourceUser, snap.Users, snap.Classes)
			return ComputeAgeSegments(snap.Users, snap.Classes, idx, fixtureNow, time.UTC)
		},
		"geography": func() interface{} { return ComputeGeography(snap.Users, "Nigeria") },
		"engagement": func() interface{} {
			idx := NewCompletionIndex(CompletionSourceUser, snap.Users, snap.Classes)
			return ComputeEngagement(EngagementInput{
				Users:       snap.Users,
				Attempts:    snap.Attempts,
				Index:       idx,
				Granularity: models.GranularityWeekly,
				Location:    time.UTC,
			})
		},
		"performance": func() interface{} {
			idx := NewCompletionIndex(CompletionSourceUser, snap.Users, snap.Classes)
			return ComputePerformance(PerformanceInput{Users: snap.Users, Snapshot: snap, Attempts: snap.Attempts, Index: idx})
		},
		"cohorts": func() interface{} {
			idx := NewCompletionIndex(CompletionSourceUser, snap.Users, snap.Classes)
			return ComputeCohorts(CohortInput{
				Users:    snap.Users,
				Classes:  snap.Classes,
				Attempts: snap.Attempts,
				Index:    idx,
				Now:      fixtureNow,
				Location: time.UTC,
			})
		},
		"leaderboard": func() interface{} {
			idx := NewCompletionIndex(CompletionSourceUser, snap.Users, snap.Classes)
			return ComputeLeaderboard(LeaderboardInput{Users: snap.Users, Attempts: snap.Attempts, Index: idx})
		},
		"drop-off": func() interface{} {
			idx := NewCompletionIndex(CompletionSourceClass, snap.Users, snap.Classes)
			return ComputeDropOff(DropOffInput{Users: snap.Users, Index: idx, Now: fixtureNow, Detailed: true})
		},
		"user-stats": func() interface{} {
			idx := NewCompletionIndex(CompletionSourceUser, []models.User{user}, userSnap.Classes)
			return ComputeUserStats(UserStatsInput{User: user, Snapshot: userSnap, Index: idx, Now: fixtureNow, Location: time.UTC})
		},
		"groups": func() interface{} { return GroupSummaries(snap.Groups) },
	}

	for name, compute := range cases {
		compute := compute
		t.Run(name, func(t *testing.T) {
			first, err := json.Marshal(compute())
			require.NoError(t, err)
			for i := 0; i < 5; i++ {
				again, err := json.Marshal(compute())
				require.NoError(t, err)
				assert.Equal(t, string(first), string(again))
			}
		})
	}
}
