package models

import (
	"strings"
	"time"
)

// User is a learner record. Only the fields used by analytics are mapped; the
// underlying documents may carry arbitrary extra fields.
type User struct {
	ID                 string          `json:"id"`
	FirstName          string          `json:"firstName"`
	LastName           string          `json:"lastName"`
	Email              string          `json:"email"`
	Gender             string          `json:"gender"`
	DateOfBirth        string          `json:"dateOfBirth"`
	Country            string          `json:"country"`
	State              string          `json:"state"`
	City               string          `json:"city"`
	CohortApplied      string          `json:"cohortApplied"`
	ActivityLevel      string          `json:"activityLevel"`
	IsActive           bool            `json:"isActive"`
	IsCertified        bool            `json:"isCertified"`
	CertificatesEarned int             `json:"certificatesEarned"`
	LastLogin          *time.Time      `json:"lastLogin,omitempty"`
	CreatedAt          *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt          *time.Time      `json:"updatedAt,omitempty"`
	CompletedBlogs     []CompletedBlog `json:"completedBlogs"`
	QuizAttemptIDs     []string        `json:"quizAttempts"`
}

// CompletedBlog records that a user finished a class. CompletedAt is absent on legacy entries.
type CompletedBlog struct {
	ClassID     string     `json:"blog"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// FullName joins first and last name, skipping blanks.
func (u User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
