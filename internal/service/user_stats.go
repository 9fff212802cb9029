package service

import (
	"sort"
	"time"

	"github.com/noah-isme/learning-analytics-api/internal/dto"
	"github.com/noah-isme/learning-analytics-api/internal/models"
)

const (
	BadgeConsistentLearner = "Consistent Learner"
	BadgeActiveParticipant = "Active Participant"
	BadgeGettingThere      = "Getting There"
	BadgeNeedsMotivation   = "Needs Motivation"

	activityChartDays  = 90
	timelineLength     = 6
	unknownCourseTitle = "Unknown"
)

// UserStatsInput is everything the per-user engine reads.
type UserStatsInput struct {
	User     models.User
	Snapshot *Snapshot
	Index    *CompletionIndex
	Now      time.Time
	Location *time.Location
}

// ComputeUserStats rolls a user's progress up the course hierarchy. Attempts in the snapshot
// must already be limited to the user's own attempts.
func ComputeUserStats(in UserStatsInput) dto.UserStatsResponse {
	snap := in.Snapshot
	h := BuildHierarchy(snap.Groups, snap.Chapters, snap.Classes, snap.Quizzes)

	existing := make(map[string]struct{}, len(snap.Classes))
	for _, class := range snap.Classes {
		existing[class.ID] = struct{}{}
	}
	completed := make(map[string]struct{})
	for classID := range in.Index.CompletedClasses(in.User.ID) {
		if _, ok := existing[classID]; ok {
			completed[classID] = struct{}{}
		}
	}
	resolved := h.Resolve(completed)

	perCourse := make([]dto.CourseStat, len(snap.Groups))
	position := make(map[string]int, len(snap.Groups))
	for i, group := range snap.Groups {
		perCourse[i] = dto.CourseStat{GroupID: group.ID, GroupTitle: group.Title}
		if _, dup := position[group.ID]; !dup {
			position[group.ID] = i
		}
	}
	course := func(groupID string) *dto.CourseStat {
		if i, ok := position[groupID]; ok {
			return &perCourse[i]
		}
		return nil
	}

	for _, class := range snap.Classes {
		groupID, ok := h.GroupOfClass(class.ID)
		if !ok {
			continue
		}
		if stat := course(groupID); stat != nil {
			stat.ClassesTotal++
		}
	}
	for classID := range completed {
		groupID, ok := h.GroupOfClass(classID)
		if !ok {
			continue
		}
		if stat := course(groupID); stat != nil {
			stat.ClassesCompleted++
		}
	}
	for _, chapter := range snap.Chapters {
		groupID, ok := h.ChapterToGroup[chapter.ID]
		if !ok {
			continue
		}
		if stat := course(groupID); stat != nil {
			stat.ChaptersTotal++
			if _, done := resolved.Chapters[chapter.ID]; done {
				stat.ChaptersCompleted++
			}
		}
	}
	for _, quiz := range snap.Quizzes {
		groupID, ok := h.GroupOfQuiz(quiz.ID)
		if !ok {
			continue
		}
		if stat := course(groupID); stat != nil {
			stat.QuizzesTotal++
		}
	}

	quizIDs := make(map[string]struct{}, len(snap.Quizzes))
	for _, quiz := range snap.Quizzes {
		quizIDs[quiz.ID] = struct{}{}
	}

	var scoreSum float64
	validAttempts := 0
	passed := 0
	for _, attempt := range snap.Attempts {
		if attempt.Score == nil {
			continue
		}
		validAttempts++
		scoreSum += *attempt.Score

		if _, ok := quizIDs[attempt.QuizID]; !ok {
			continue
		}
		if attempt.IsPassed {
			passed++
		}
		groupID, ok := h.GroupOfQuiz(attempt.QuizID)
		if !ok {
			continue
		}
		if stat := course(groupID); stat != nil {
			stat.QuizzesAttempted++
			if attempt.IsPassed {
				stat.QuizzesPassed++
			}
			stat.QuizzesScoreSum += *attempt.Score
		}
	}
	for i := range perCourse {
		if perCourse[i].QuizzesAttempted > 0 {
			perCourse[i].QuizAverage = round1(perCourse[i].QuizzesScoreSum / float64(perCourse[i].QuizzesAttempted))
		}
	}

	var quizAverage float64
	if validAttempts > 0 {
		quizAverage = round1(scoreSum / float64(validAttempts))
	}

	consistency, chart := computeConsistency(in.Index.Records(in.User.ID), in.Now, in.Location)

	return dto.UserStatsResponse{
		UserID:            in.User.ID,
		Name:              in.User.FullName(),
		TotalCourses:      len(snap.Groups),
		CoursesCompleted:  len(resolved.Groups),
		TotalChapters:     len(snap.Chapters),
		CompletedChapters: len(resolved.Chapters),
		TotalClasses:      len(snap.Classes),
		CompletedClasses:  len(completed),
		TotalQuizzes:      len(snap.Quizzes),
		QuizzesAttempted:  len(snap.Attempts),
		QuizzesPassed:     passed,
		QuizAverage:       quizAverage,
		PerCourseStats:    perCourse,
		Consistency:       consistency,
		ActivityChartData: chart,
	}
}

func computeConsistency(records []CompletionRecord, now time.Time, loc *time.Location) (dto.ConsistencySummary, []dto.ActivityChartItem) {
	if loc == nil {
		loc = time.UTC
	}
	activeDays := make(map[string]struct{})
	for _, record := range records {
		if record.CompletedAt == nil {
			continue
		}
		activeDays[record.CompletedAt.In(loc).Format("2006-01-02")] = struct{}{}
	}

	window := DailyWindow(now, activityChartDays, loc)
	chart := make([]dto.ActivityChartItem, len(window))
	for i, date := range window {
		chart[i] = dto.ActivityChartItem{Date: date}
		if _, ok := activeDays[date]; ok {
			chart[i].Completed = 1
		}
	}

	trailing := func(days int) float64 {
		active := 0
		for _, item := range chart[len(chart)-days:] {
			active += item.Completed
		}
		return percent(active, days)
	}

	summary := dto.ConsistencySummary{
		Last7Days:  trailing(7),
		Last30Days: trailing(30),
		Last90Days: trailing(90),
	}
	summary.Badge = consistencyBadge(summary.Last7Days)
	return summary, chart
}

func consistencyBadge(last7 float64) string {
	switch {
	case last7 >= 90:
		return BadgeConsistentLearner
	case last7 >= 70:
		return BadgeActiveParticipant
	case last7 >= 40:
		return BadgeGettingThere
	default:
		return BadgeNeedsMotivation
	}
}

// BuildTimeline lists the user's most recent completions, newest first. Entries whose class no
// longer exists are dropped; a missing timestamp falls back to the class's last update.
func BuildTimeline(records []CompletionRecord, snap *Snapshot) dto.TimelineResponse {
	classes := make(map[string]models.Class, len(snap.Classes))
	for _, class := range snap.Classes {
		classes[class.ID] = class
	}
	chapters := make(map[string]models.Chapter, len(snap.Chapters))
	for _, chapter := range snap.Chapters {
		chapters[chapter.ID] = chapter
	}
	groups := make(map[string]models.Group, len(snap.Groups))
	for _, group := range snap.Groups {
		groups[group.ID] = group
	}

	recent := records
	if len(recent) > timelineLength {
		recent = recent[len(recent)-timelineLength:]
	}

	timeline := make([]dto.TimelineEntry, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		record := recent[i]
		class, ok := classes[record.ClassID]
		if !ok {
			continue
		}
		chapter := chapters[class.ChapterID]
		courseTitle := unknownCourseTitle
		if group, ok := groups[chapter.GroupID]; ok && group.Title != "" {
			courseTitle = group.Title
		}
		completedAt := record.CompletedAt
		if completedAt == nil {
			completedAt = class.UpdatedAt
		}
		timeline = append(timeline, dto.TimelineEntry{
			BlogID:       class.ID,
			BlogTitle:    class.Title,
			ChapterTitle: chapter.Title,
			CourseTitle:  courseTitle,
			CompletedAt:  completedAt,
		})
	}
	return dto.TimelineResponse{Timeline: timeline}
}

// sortedKeys returns map keys in ascending order for deterministic iteration.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
