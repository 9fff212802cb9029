package service

import (
	"time"

	"github.com/noah-isme/learning-analytics-api/internal/models"
)

var fixtureNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func at(value string) *time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return &t
}

func scoreOf(v float64) *float64 {
	return &v
}

func daysAgo(days int) *time.Time {
	t := fixtureNow.AddDate(0, 0, -days)
	return &t
}

// contentFixture builds a small catalogue:
//
//	G1 Frontend: H1 HTML {C1}, H2 CSS {C2, C3}
//	G2 Backend:  H3 Go {C4}
//	G3 Empty:    H4 (no classes)
//	H5 points at a missing group and holds C5.
func contentFixture() *Snapshot {
	return &Snapshot{
		Groups: []models.Group{
			{ID: "g1", Title: "Frontend"},
			{ID: "g2", Title: "Backend"},
			{ID: "g3", Title: "Empty"},
		},
		Chapters: []models.Chapter{
			{ID: "h1", Title: "HTML", GroupID: "g1"},
			{ID: "h2", Title: "CSS", GroupID: "g1"},
			{ID: "h3", Title: "Go", GroupID: "g2"},
			{ID: "h4", Title: "Drafts", GroupID: "g3"},
			{ID: "h5", Title: "Orphan", GroupID: "missing"},
		},
		Classes: []models.Class{
			{ID: "c1", Title: "Tags", ChapterID: "h1"},
			{ID: "c2", Title: "Selectors", ChapterID: "h2"},
			{ID: "c3", Title: "Flexbox", ChapterID: "h2"},
			{ID: "c4", Title: "Goroutines", ChapterID: "h3"},
			{ID: "c5", Title: "Lost", ChapterID: "h5"},
		},
		Quizzes: []models.Quiz{
			{ID: "q1", Title: "HTML quiz", ClassID: "c1"},
			{ID: "q2", Title: "Go quiz", ClassID: "c4"},
			{ID: "q3", Title: "Dangling quiz", ClassID: "gone"},
		},
	}
}
