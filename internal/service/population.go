package service

import (
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/learning-analytics-api/internal/dto"
	"github.com/noah-isme/learning-analytics-api/internal/models"
)

const unknownLabel = "Unknown"

// Age ranges are inclusive on both ends; the last one is open.
var ageRanges = []struct {
	Label    string
	Min, Max int
}{
	{Label: "15–20", Min: 15, Max: 20},
	{Label: "21–25", Min: 21, Max: 25},
	{Label: "26–30", Min: 26, Max: 30},
	{Label: "31–35", Min: 31, Max: 35},
	{Label: "36+", Min: 36, Max: -1},
}

var activityLevels = []string{"High", "Moderate", "Low", "Inactive"}

var dateOfBirthLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "02/01/2006"}

// memberSet is the set of user ids in a population. A nil set admits everyone.
type memberSet map[string]struct{}

func newMemberSet(users []models.User) memberSet {
	set := make(memberSet, len(users))
	for _, user := range users {
		set[user.ID] = struct{}{}
	}
	return set
}

func (m memberSet) has(userID string) bool {
	if m == nil {
		return true
	}
	_, ok := m[userID]
	return ok
}

// FilterAttemptsByUsers keeps attempts submitted by users in the population.
func FilterAttemptsByUsers(attempts []models.QuizAttempt, users []models.User) []models.QuizAttempt {
	members := newMemberSet(users)
	filtered := make([]models.QuizAttempt, 0, len(attempts))
	for _, attempt := range attempts {
		if members.has(attempt.UserID) {
			filtered = append(filtered, attempt)
		}
	}
	return filtered
}

// ComputeGender counts users whose normalised gender is male or female.
func ComputeGender(users []models.User) dto.GenderDistribution {
	result := dto.GenderDistribution{Total: len(users)}
	for _, user := range users {
		switch normaliseGender(user.Gender) {
		case "male":
			result.Male++
		case "female":
			result.Female++
		}
	}
	return result
}

func normaliseGender(gender string) string {
	return strings.ToLower(strings.TrimSpace(gender))
}

// AgeOf returns the year difference between the date of birth and now. Birthdays later in the
// current year are not corrected for.
func AgeOf(dateOfBirth string, now time.Time, loc *time.Location) (int, bool) {
	value := strings.TrimSpace(dateOfBirth)
	if value == "" {
		return 0, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateOfBirthLayouts {
		if dob, err := time.ParseInLocation(layout, value, loc); err == nil {
			return now.In(loc).Year() - dob.In(loc).Year(), true
		}
	}
	return 0, false
}

func ageRangeOf(age int) (string, bool) {
	for _, r := range ageRanges {
		if age >= r.Min && (r.Max < 0 || age <= r.Max) {
			return r.Label, true
		}
	}
	return "", false
}

func emptyAgeGroups() map[string]int {
	groups := make(map[string]int, len(ageRanges))
	for _, r := range ageRanges {
		groups[r.Label] = 0
	}
	return groups
}

func completionRate(idx *CompletionIndex, userID string, classes []models.Class) float64 {
	if len(classes) == 0 {
		return 0
	}
	done := idx.CompletedClasses(userID)
	completed := 0
	for _, class := range classes {
		if _, ok := done[class.ID]; ok {
			completed++
		}
	}
	return float64(completed) / float64(len(classes)) * 100
}

// ComputeAgeSegments buckets users into the fixed age ranges. Users without a parseable date of
// birth, or younger than the first range, are left out of every segment but still count toward
// the population each percent is taken over.
func ComputeAgeSegments(users []models.User, classes []models.Class, idx *CompletionIndex, now time.Time, loc *time.Location) []dto.AgeSegment {
	type accumulator struct {
		count      int
		completion float64
		activity   map[string]int
	}
	acc := make(map[string]*accumulator, len(ageRanges))
	for _, r := range ageRanges {
		activity := make(map[string]int, len(activityLevels))
		for _, level := range activityLevels {
			activity[level] = 0
		}
		acc[r.Label] = &accumulator{activity: activity}
	}

	for _, user := range users {
		age, ok := AgeOf(user.DateOfBirth, now, loc)
		if !ok {
			continue
		}
		label, ok := ageRangeOf(age)
		if !ok {
			continue
		}
		bucket := acc[label]
		bucket.count++
		bucket.completion += completionRate(idx, user.ID, classes)
		for _, level := range activityLevels {
			if strings.EqualFold(strings.TrimSpace(user.ActivityLevel), level) {
				bucket.activity[level]++
				break
			}
		}
	}

	segments := make([]dto.AgeSegment, 0, len(ageRanges))
	for _, r := range ageRanges {
		bucket := acc[r.Label]
		segment := dto.AgeSegment{
			Range:             r.Label,
			Count:             bucket.count,
			Percent:           percent(bucket.count, len(users)),
			ActivityBreakdown: bucket.activity,
		}
		if bucket.count > 0 {
			segment.AvgCompletion = round1(bucket.completion / float64(bucket.count))
		}
		segments = append(segments, segment)
	}
	return segments
}

func labelOrUnknown(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return unknownLabel
	}
	return trimmed
}

// ComputeGeography counts users per country and, for the focus country only, per state and city.
func ComputeGeography(users []models.User, focusCountry string) dto.GeographicalDistribution {
	focus := strings.TrimSpace(focusCountry)
	result := dto.GeographicalDistribution{
		FocusCountry:   focus,
		ByCountry:      make(map[string]int),
		NigeriaByState: make(map[string]int),
		NigeriaByCity:  make(map[string]int),
	}
	for _, user := range users {
		country := labelOrUnknown(user.Country)
		result.ByCountry[country]++
		if focus == "" || !strings.EqualFold(strings.TrimSpace(user.Country), focus) {
			continue
		}
		result.NigeriaByState[labelOrUnknown(user.State)]++
		result.NigeriaByCity[labelOrUnknown(user.City)]++
	}
	return result
}

// EngagementInput is the population slice read by ComputeEngagement. Attempts must already be
// restricted to the population when a filter is in effect.
type EngagementInput struct {
	Users       []models.User
	Attempts    []models.QuizAttempt
	Index       *CompletionIndex
	Granularity models.Granularity
	Location    *time.Location
}

// ComputeEngagement builds the time-bucketed engagement series and the login-hour profile.
func ComputeEngagement(in EngagementInput) dto.EngagementAnalysis {
	granularity := in.Granularity
	if granularity == "" {
		granularity = models.GranularityMonthly
	}

	var registrations, logins, activeRegistrations, tasks []time.Time
	activeTotal := 0
	for _, user := range in.Users {
		if user.CreatedAt != nil {
			registrations = append(registrations, *user.CreatedAt)
		}
		if user.LastLogin != nil {
			logins = append(logins, *user.LastLogin)
		}
		if user.IsActive {
			activeTotal++
			if user.CreatedAt != nil {
				activeRegistrations = append(activeRegistrations, *user.CreatedAt)
			}
		}
		for _, record := range in.Index.Records(user.ID) {
			if record.CompletedAt != nil {
				tasks = append(tasks, *record.CompletedAt)
			}
		}
	}

	var attempted, passed []time.Time
	for _, attempt := range in.Attempts {
		if attempt.CompletedAt == nil {
			continue
		}
		attempted = append(attempted, *attempt.CompletedAt)
		if attempt.IsPassed {
			passed = append(passed, *attempt.CompletedAt)
		}
	}

	hours := HourHistogram(logins, in.Location)
	day, night, peak := ClassifyDayNight(hours)
	loginHours := make([]dto.HourCount, len(hours))
	for hour, count := range hours {
		loginHours[hour] = dto.HourCount{Hour: hour, Count: count}
	}

	loginBuckets := Bucketize(logins, granularity, in.Location)
	loginSeries := make([]dto.LoginBucket, len(loginBuckets))
	for i, bucket := range loginBuckets {
		loginSeries[i] = dto.LoginBucket{Label: bucket.Label, Logins: bucket.Count}
	}

	return dto.EngagementAnalysis{
		Range:            string(granularity),
		Registrations:    countSeries(Bucketize(registrations, granularity, in.Location)),
		Completions:      completionSeries(attempted, passed, tasks, granularity, in.Location),
		Logins:           loginSeries,
		ActiveUsersTrend: countSeries(Bucketize(activeRegistrations, granularity, in.Location)),
		ActiveUsersTotal: activeTotal,
		PeakLoginHour:    PeakHour(hours),
		PeakPeriod:       peak,
		DayLogins:        day,
		NightLogins:      night,
		LoginHours:       loginHours,
	}
}

func countSeries(buckets []Bucket) []dto.CountBucket {
	series := make([]dto.CountBucket, len(buckets))
	for i, bucket := range buckets {
		series[i] = dto.CountBucket{Label: bucket.Label, Count: bucket.Count}
	}
	return series
}

// completionSeries merges attempt, pass and task buckets over the union of their periods.
func completionSeries(attempted, passed, tasks []time.Time, granularity models.Granularity, loc *time.Location) []dto.CompletionBucket {
	type row struct {
		start  time.Time
		bucket dto.CompletionBucket
	}
	rows := make(map[string]*row)
	merge := func(buckets []Bucket, apply func(*dto.CompletionBucket, int)) {
		for _, b := range buckets {
			r, ok := rows[b.Label]
			if !ok {
				r = &row{start: b.Start, bucket: dto.CompletionBucket{Label: b.Label}}
				rows[b.Label] = r
			}
			apply(&r.bucket, b.Count)
		}
	}
	merge(Bucketize(attempted, granularity, loc), func(b *dto.CompletionBucket, n int) { b.Quizzes = n })
	merge(Bucketize(passed, granularity, loc), func(b *dto.CompletionBucket, n int) { b.Passed = n })
	merge(Bucketize(tasks, granularity, loc), func(b *dto.CompletionBucket, n int) { b.Tasks = n })

	ordered := make([]*row, 0, len(rows))
	for _, label := range sortedKeys(rows) {
		ordered = append(ordered, rows[label])
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].start.Before(ordered[j].start) })

	series := make([]dto.CompletionBucket, len(ordered))
	for i, r := range ordered {
		series[i] = r.bucket
	}
	return series
}

// PerformanceInput is the population slice read by ComputePerformance. Attempts must already be
// restricted to the population when a filter is in effect.
type PerformanceInput struct {
	Users    []models.User
	Snapshot *Snapshot
	Attempts []models.QuizAttempt
	Index    *CompletionIndex
	// Members limits completion counts to the population; nil counts every completer.
	Members memberSet
}

// ComputePerformance summarises platform outcomes. Selections keep the first entity encountered
// when counts tie, and report an empty title when nothing was counted.
func ComputePerformance(in PerformanceInput) dto.PerformanceMetrics {
	snap := in.Snapshot
	h := BuildHierarchy(snap.Groups, snap.Chapters, snap.Classes, snap.Quizzes)

	result := dto.PerformanceMetrics{}
	for _, user := range in.Users {
		result.CertificatesIssued += user.CertificatesEarned
	}

	var scoreSum float64
	scored := 0
	passed := 0
	chaptersWithAttempts := make(map[string]struct{})
	attemptsPerQuiz := make(map[string]int)
	for _, attempt := range in.Attempts {
		if attempt.Score != nil {
			scored++
			scoreSum += *attempt.Score
		}
		if attempt.IsPassed {
			passed++
		}
		attemptsPerQuiz[attempt.QuizID]++
		if chapterID, ok := h.ChapterOfQuiz(attempt.QuizID); ok {
			chaptersWithAttempts[chapterID] = struct{}{}
		}
	}
	if scored > 0 {
		result.AverageQuizScore = round1(scoreSum / float64(scored))
	}
	if len(chaptersWithAttempts) > 0 {
		result.AvgCompletionRate = round1(float64(passed) / float64(len(chaptersWithAttempts)))
	}

	completionsPerClass := make(map[string]int, len(snap.Classes))
	for _, class := range snap.Classes {
		for _, userID := range in.Index.Completers(class.ID) {
			if in.Members.has(userID) {
				completionsPerClass[class.ID]++
			}
		}
	}

	bestClass, bestClassCount := "", 0
	for _, class := range snap.Classes {
		if count := completionsPerClass[class.ID]; count > bestClassCount {
			bestClass, bestClassCount = class.Title, count
		}
	}
	result.MostCompletedClass = bestClass

	bestGroup, bestGroupCount := "", 0
	for _, group := range snap.Groups {
		count := 0
		for _, chapterID := range h.ChaptersByGroup[group.ID] {
			for _, classID := range h.ClassesByChapter[chapterID] {
				count += completionsPerClass[classID]
			}
		}
		if count > bestGroupCount {
			bestGroup, bestGroupCount = group.Title, count
		}
	}
	result.MostPopularCourse = bestGroup

	bestQuiz, bestQuizCount := "", 0
	for _, quiz := range snap.Quizzes {
		if count := attemptsPerQuiz[quiz.ID]; count > bestQuizCount {
			bestQuiz, bestQuizCount = quiz.Title, count
		}
	}
	result.MostCompletedQuiz = bestQuiz

	return result
}

// CohortInput is the population slice read by ComputeCohorts.
type CohortInput struct {
	Users    []models.User
	Classes  []models.Class
	Attempts []models.QuizAttempt
	Index    *CompletionIndex
	Now      time.Time
	Location *time.Location
}

// ComputeCohorts profiles each distinct cohort label in order of first appearance.
func ComputeCohorts(in CohortInput) dto.CohortInsights {
	order := make([]string, 0)
	members := make(map[string]memberSet)
	stats := make(map[string]*dto.CohortStat)
	cohortOf := make(map[string]string, len(in.Users))

	for _, user := range in.Users {
		label := strings.TrimSpace(user.CohortApplied)
		if label == "" {
			continue
		}
		stat, ok := stats[label]
		if !ok {
			stat = &dto.CohortStat{Cohort: label, AgeGroups: emptyAgeGroups()}
			stats[label] = stat
			members[label] = make(memberSet)
			order = append(order, label)
		}
		members[label][user.ID] = struct{}{}
		cohortOf[user.ID] = label

		stat.Total++
		switch normaliseGender(user.Gender) {
		case "male":
			stat.Male++
		case "female":
			stat.Female++
		}
		if age, ok := AgeOf(user.DateOfBirth, in.Now, in.Location); ok {
			if rangeLabel, ok := ageRangeOf(age); ok {
				stat.AgeGroups[rangeLabel]++
			}
		}
	}

	engaged := make(map[string]memberSet, len(order))
	quizEngaged := make(map[string]memberSet, len(order))
	for _, label := range order {
		engaged[label] = make(memberSet)
		quizEngaged[label] = make(memberSet)
	}

	for _, class := range in.Classes {
		for _, userID := range in.Index.Completers(class.ID) {
			label, ok := cohortOf[userID]
			if !ok {
				continue
			}
			stats[label].Completions++
			engaged[label][userID] = struct{}{}
		}
	}
	for _, attempt := range in.Attempts {
		label, ok := cohortOf[attempt.UserID]
		if !ok {
			continue
		}
		quizEngaged[label][attempt.UserID] = struct{}{}
		engaged[label][attempt.UserID] = struct{}{}
	}

	result := dto.CohortInsights{Cohorts: make([]dto.CohortStat, 0, len(order))}
	var bestEngaged, bestInactive *dto.CohortStat
	for _, label := range order {
		stat := stats[label]
		stat.QuizEngaged = len(quizEngaged[label])
		stat.Engaged = len(engaged[label])
		stat.Inactive = stat.Total - stat.Engaged
		stat.EngagementRate = percent(stat.Engaged, stat.Total)
		stat.InactivityRate = percent(stat.Inactive, stat.Total)

		if bestEngaged == nil || stat.EngagementRate > bestEngaged.EngagementRate {
			bestEngaged = stat
		}
		if bestInactive == nil || stat.InactivityRate > bestInactive.InactivityRate {
			bestInactive = stat
		}
		result.Cohorts = append(result.Cohorts, *stat)
	}
	if bestEngaged != nil {
		result.MostEngaged = bestEngaged.Cohort
	}
	if bestInactive != nil {
		result.MostInactive = bestInactive.Cohort
	}
	return result
}

// GroupSummaries lists courses in snapshot order.
func GroupSummaries(groups []models.Group) []dto.GroupSummary {
	summaries := make([]dto.GroupSummary, len(groups))
	for i, group := range groups {
		summaries[i] = dto.GroupSummary{ID: group.ID, Title: group.Title}
	}
	return summaries
}
