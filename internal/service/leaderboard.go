package service

import (
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/learning-analytics-api/internal/dto"
	"github.com/noah-isme/learning-analytics-api/internal/models"
)

const (
	DefaultLeaderboardSize = 20

	passingScore        = 50
	highAchieverScore   = 85
	highAchieverBonus   = 10
	scoreWeightAverage  = 5
	scoreWeightBlog     = 8
	scoreWeightPassed   = 2
	inactiveShortWindow = 14 * 24 * time.Hour
	inactiveLongWindow  = 30 * 24 * time.Hour

	ReasonNoActivity = "No recorded activity"
	ReasonInactive30 = "Inactive for 30+ days"
	ReasonInactive14 = "Inactive for 14–30 days"
)

// LeaderboardInput is the population slice read by ComputeLeaderboard.
type LeaderboardInput struct {
	Users    []models.User
	Attempts []models.QuizAttempt
	Index    *CompletionIndex
	Size     int
}

// ComputeLeaderboard scores every user, sorts descending keeping snapshot order for equal scores,
// and returns the top entries with dense ranks.
func ComputeLeaderboard(in LeaderboardInput) dto.LeaderboardResponse {
	size := in.Size
	if size <= 0 {
		size = DefaultLeaderboardSize
	}

	scoresByUser := make(map[string][]float64)
	for _, attempt := range in.Attempts {
		if attempt.Score == nil || attempt.UserID == "" {
			continue
		}
		scoresByUser[attempt.UserID] = append(scoresByUser[attempt.UserID], *attempt.Score)
	}

	type scored struct {
		entry     dto.LeaderboardEntry
		composite float64
	}
	ranked := make([]scored, 0, len(in.Users))
	for _, user := range in.Users {
		scores := scoresByUser[user.ID]
		var sum float64
		passed := 0
		for _, score := range scores {
			sum += score
			if score >= passingScore {
				passed++
			}
		}
		var avg float64
		if len(scores) > 0 {
			avg = sum / float64(len(scores))
		}
		blogs := len(in.Index.Records(user.ID))

		// Weights and the bonus threshold apply to the unrounded mean.
		composite := avg*scoreWeightAverage + float64(blogs*scoreWeightBlog) + float64(passed*scoreWeightPassed)
		if avg >= highAchieverScore {
			composite += highAchieverBonus
		}

		ranked = append(ranked, scored{
			entry: dto.LeaderboardEntry{
				UserID:         user.ID,
				Name:           user.FullName(),
				Email:          user.Email,
				AvgScore:       round1(avg),
				BlogsCompleted: blogs,
				PassedQuizzes:  passed,
				Score:          round1(composite),
				DateJoined:     user.CreatedAt,
			},
			composite: composite,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].composite > ranked[j].composite })
	if len(ranked) > size {
		ranked = ranked[:size]
	}

	entries := make([]dto.LeaderboardEntry, len(ranked))
	rank := 0
	for i := range ranked {
		if i == 0 || ranked[i].composite != ranked[i-1].composite {
			rank++
		}
		entries[i] = ranked[i].entry
		entries[i].Rank = rank
	}
	return dto.LeaderboardResponse{Leaderboard: entries}
}

// DropOffBand is the inactivity classification of one user.
type DropOffBand int

const (
	BandActive DropOffBand = iota
	BandInactive14
	BandInactive30
)

// LastActivity is the later of the user's latest completion and the record's last update.
func LastActivity(user models.User, idx *CompletionIndex) *time.Time {
	latest := idx.LatestCompletion(user.ID)
	if user.UpdatedAt != nil && (latest == nil || user.UpdatedAt.After(*latest)) {
		latest = user.UpdatedAt
	}
	return latest
}

// ClassifyDropOff places a last-activity timestamp into an inactivity band.
func ClassifyDropOff(lastActivity *time.Time, now time.Time) DropOffBand {
	if lastActivity == nil {
		return BandInactive30
	}
	idle := now.Sub(*lastActivity)
	switch {
	case idle > inactiveLongWindow:
		return BandInactive30
	case idle > inactiveShortWindow:
		return BandInactive14
	default:
		return BandActive
	}
}

// DropOffInput is the population slice read by ComputeDropOff.
type DropOffInput struct {
	Users    []models.User
	Index    *CompletionIndex
	Now      time.Time
	Detailed bool
}

// ComputeDropOff counts users per inactivity band and optionally lists the inactive ones.
func ComputeDropOff(in DropOffInput) dto.DropOffReport {
	report := dto.DropOffReport{}
	if in.Detailed {
		report.Detailed = make([]dto.DropOffEntry, 0)
	}

	for _, user := range in.Users {
		last := LastActivity(user, in.Index)
		band := ClassifyDropOff(last, in.Now)

		var reason string
		switch band {
		case BandActive:
			report.ActiveCount++
			continue
		case BandInactive14:
			report.Inactive14Count++
			reason = ReasonInactive14
		case BandInactive30:
			report.Inactive30Count++
			reason = ReasonInactive30
			if last == nil {
				reason = ReasonNoActivity
			}
		}

		if in.Detailed {
			report.Detailed = append(report.Detailed, dto.DropOffEntry{
				UserID:       user.ID,
				Name:         user.FullName(),
				Email:        user.Email,
				Cohort:       strings.TrimSpace(user.CohortApplied),
				LastActivity: last,
				Reason:       reason,
			})
		}
	}
	return report
}
