package models

import "time"

// Group is a course, the top of the content hierarchy.
type Group struct {
	ID    string `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
}

// Chapter belongs to one Group. An empty GroupID marks an orphan.
type Chapter struct {
	ID      string `db:"id" json:"id"`
	Title   string `db:"title" json:"title"`
	GroupID string `db:"group_id" json:"group"`
}

// Class (stored as a "blog") is the leaf unit users complete.
type Class struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	ChapterID   string     `json:"chapter"`
	CompletedBy []string   `json:"completedBy"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Quiz is attached to one Class.
type Quiz struct {
	ID      string `db:"id" json:"id"`
	Title   string `db:"title" json:"title"`
	ClassID string `db:"blog_id" json:"blog"`
}

// QuizAttempt is one scored submission. Score is nil when the stored value is not numeric.
type QuizAttempt struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user"`
	QuizID      string     `db:"quiz_id" json:"quiz"`
	Score       *float64   `db:"score" json:"score,omitempty"`
	IsPassed    bool       `db:"is_passed" json:"isPassed"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
}
