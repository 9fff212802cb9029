package dto

import "time"

// UserStatsResponse is the per-user progress payload rendered on the learner details page.
type UserStatsResponse struct {
	UserID            string              `json:"userId"`
	Name              string              `json:"name"`
	TotalCourses      int                 `json:"totalCourses"`
	CoursesCompleted  int                 `json:"coursesCompleted"`
	TotalChapters     int                 `json:"totalChapters"`
	CompletedChapters int                 `json:"completedChapters"`
	TotalClasses      int                 `json:"totalClasses"`
	CompletedClasses  int                 `json:"completedClasses"`
	TotalQuizzes      int                 `json:"totalQuizzes"`
	QuizzesAttempted  int                 `json:"quizzesAttempted"`
	QuizzesPassed     int                 `json:"quizzesPassed"`
	QuizAverage       float64             `json:"quizAverage"`
	PerCourseStats    []CourseStat        `json:"perCourseStats"`
	Consistency       ConsistencySummary  `json:"consistency"`
	ActivityChartData []ActivityChartItem `json:"activityChartData"`
}

// CourseStat rolls up one course for a single user.
type CourseStat struct {
	GroupID           string  `json:"groupId"`
	GroupTitle        string  `json:"groupTitle"`
	ClassesTotal      int     `json:"classesTotal"`
	ClassesCompleted  int     `json:"classesCompleted"`
	ChaptersTotal     int     `json:"chaptersTotal"`
	ChaptersCompleted int     `json:"chaptersCompleted"`
	QuizzesTotal      int     `json:"quizzesTotal"`
	QuizzesAttempted  int     `json:"quizzesAttempted"`
	QuizzesPassed     int     `json:"quizzesPassed"`
	QuizzesScoreSum   float64 `json:"quizzesScoreSum"`
	QuizAverage       float64 `json:"quizAverage"`
}

// ConsistencySummary holds trailing-window activity percentages and the derived badge.
type ConsistencySummary struct {
	Last7Days  float64 `json:"last7Days"`
	Last30Days float64 `json:"last30Days"`
	Last90Days float64 `json:"last90Days"`
	Badge      string  `json:"badge"`
}

// ActivityChartItem marks whether the user completed anything on a calendar day.
type ActivityChartItem struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
}

// TimelineResponse lists a user's most recent completions.
type TimelineResponse struct {
	Timeline []TimelineEntry `json:"timeline"`
}

// TimelineEntry describes one completed class with its position in the hierarchy.
type TimelineEntry struct {
	BlogID       string     `json:"blogId"`
	BlogTitle    string     `json:"blogTitle"`
	ChapterTitle string     `json:"chapterTitle"`
	CourseTitle  string     `json:"courseTitle"`
	CompletedAt  *time.Time `json:"completedAt"`
}

// GroupSummary is a course as listed for dashboard selectors.
type GroupSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// GenderDistribution counts users by normalised gender.
type GenderDistribution struct {
	Total  int `json:"total"`
	Male   int `json:"male"`
	Female int `json:"female"`
}

// AgeSegment describes one fixed age range.
type AgeSegment struct {
	Range             string         `json:"range"`
	Count             int            `json:"count"`
	Percent           float64        `json:"percent"`
	AvgCompletion     float64        `json:"avgCompletion"`
	ActivityBreakdown map[string]int `json:"activityBreakdown"`
}

// GeographicalDistribution groups users by location. The state and city maps cover the focus country only.
type GeographicalDistribution struct {
	FocusCountry   string         `json:"focusCountry"`
	ByCountry      map[string]int `json:"byCountry"`
	NigeriaByState map[string]int `json:"nigeriaByState"`
	NigeriaByCity  map[string]int `json:"nigeriaByCity"`
}

// CountBucket is a labelled count in a time series.
type CountBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CompletionBucket pairs quiz attempts with class completions in one period.
type CompletionBucket struct {
	Label   string `json:"label"`
	Quizzes int    `json:"quizzes"`
	Passed  int    `json:"passed"`
	Tasks   int    `json:"tasks"`
}

// LoginBucket counts last-login timestamps in one period.
type LoginBucket struct {
	Label  string `json:"label"`
	Logins int    `json:"logins"`
}

// HourCount is one hour-of-day bucket.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// EngagementAnalysis aggregates time-bucketed engagement series.
type EngagementAnalysis struct {
	Range            string             `json:"range"`
	Registrations    []CountBucket      `json:"registrations"`
	Completions      []CompletionBucket `json:"completions"`
	Logins           []LoginBucket      `json:"logins"`
	ActiveUsersTrend []CountBucket      `json:"activeUsersTrend"`
	ActiveUsersTotal int                `json:"activeUsersTotal"`
	PeakLoginHour    *int               `json:"peakLoginHour"`
	PeakPeriod       string             `json:"peakPeriod"`
	DayLogins        int                `json:"dayLogins"`
	NightLogins      int                `json:"nightLogins"`
	LoginHours       []HourCount        `json:"loginHours"`
}

// PerformanceMetrics summarises platform-wide learning outcomes.
type PerformanceMetrics struct {
	AverageQuizScore   float64 `json:"averageQuizScore"`
	AvgCompletionRate  float64 `json:"avgCompletionRate"`
	CertificatesIssued int     `json:"certificatesIssued"`
	MostPopularCourse  string  `json:"mostPopularCourse"`
	MostCompletedClass string  `json:"mostCompletedClass"`
	MostCompletedQuiz  string  `json:"mostCompletedQuiz"`
}

// CohortInsights compares engagement across cohorts.
type CohortInsights struct {
	Cohorts      []CohortStat `json:"cohorts"`
	MostEngaged  string       `json:"mostEngaged"`
	MostInactive string       `json:"mostInactive"`
}

// CohortStat is the engagement profile of one cohort.
type CohortStat struct {
	Cohort         string         `json:"cohort"`
	Total          int            `json:"total"`
	Male           int            `json:"male"`
	Female         int            `json:"female"`
	AgeGroups      map[string]int `json:"ageGroups"`
	Completions    int            `json:"completions"`
	QuizEngaged    int            `json:"quizEngaged"`
	Engaged        int            `json:"engaged"`
	Inactive       int            `json:"inactive"`
	EngagementRate float64        `json:"engagementRate"`
	InactivityRate float64        `json:"inactivityRate"`
}

// LeaderboardResponse wraps the ranked entries.
type LeaderboardResponse struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// LeaderboardEntry is one ranked learner.
type LeaderboardEntry struct {
	Rank           int        `json:"rank"`
	UserID         string     `json:"userId"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	AvgScore       float64    `json:"avgScore"`
	BlogsCompleted int        `json:"blogsCompleted"`
	PassedQuizzes  int        `json:"passedQuizzes"`
	Score          float64    `json:"score"`
	DateJoined     *time.Time `json:"dateJoined"`
}

// DropOffReport counts users per inactivity band.
type DropOffReport struct {
	ActiveCount     int            `json:"activeCount"`
	Inactive14Count int            `json:"inactive14Count"`
	Inactive30Count int            `json:"inactive30Count"`
	Detailed        []DropOffEntry `json:"detailed,omitempty"`
}

// DropOffEntry lists one inactive user.
type DropOffEntry struct {
	UserID       string     `json:"userId"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Cohort       string     `json:"cohort"`
	LastActivity *time.Time `json:"lastActivity"`
	Reason       string     `json:"reason"`
}

// PopulationQuery carries the shared query parameters of population endpoints.
type PopulationQuery struct {
	Cohort   string `form:"cohort" validate:"omitempty,max=64"`
	From     string `form:"from" validate:"omitempty,max=32"`
	To       string `form:"to" validate:"omitempty,max=32"`
	Active   string `form:"active" validate:"omitempty,oneof=true false"`
	Range    string `form:"range" validate:"omitempty,oneof=daily weekly monthly"`
	Detailed string `form:"detailed" validate:"omitempty,oneof=true false"`
}

// ExportQuery selects the report and format for downloads.
type ExportQuery struct {
	Report string `form:"report" validate:"required,oneof=leaderboard cohorts age geography performance dropoff"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// ExportFile is a rendered report ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
