package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/learning-analytics-api/internal/models"
	appErrors "github.com/noah-isme/learning-analytics-api/pkg/errors"
)

const userColumns = "id, first_name, last_name, email, gender, date_of_birth, country, state, city, cohort_applied, activity_level, COALESCE(is_active, FALSE) AS is_active, COALESCE(is_certified, FALSE) AS is_certified, COALESCE(certificates_earned, 0) AS certificates_earned, last_login, created_at, updated_at"

type userRow struct {
	ID                 string     `db:"id"`
	FirstName          *string    `db:"first_name"`
	LastName           *string    `db:"last_name"`
	Email              *string    `db:"email"`
	Gender             *string    `db:"gender"`
	DateOfBirth        *string    `db:"date_of_birth"`
	Country            *string    `db:"country"`
	State              *string    `db:"state"`
	City               *string    `db:"city"`
	CohortApplied      *string    `db:"cohort_applied"`
	ActivityLevel      *string    `db:"activity_level"`
	IsActive           bool       `db:"is_active"`
	IsCertified        bool       `db:"is_certified"`
	CertificatesEarned int        `db:"certificates_earned"`
	LastLogin          *time.Time `db:"last_login"`
	CreatedAt          *time.Time `db:"created_at"`
	UpdatedAt          *time.Time `db:"updated_at"`
}

type completedBlogRow struct {
	UserID      string     `db:"user_id"`
	BlogID      string     `db:"blog_id"`
	CompletedAt *time.Time `db:"completed_at"`
}

type attemptRefRow struct {
	UserID    string `db:"user_id"`
	AttemptID string `db:"id"`
}

// PostgresUserRepository reads learners from the reporting replica.
type PostgresUserRepository struct {
	db *sqlx.DB
}

// NewPostgresUserRepository constructs the repository.
func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// List returns users in replication order with their completions and attempt references.
func (r *PostgresUserRepository) List(ctx context.Context, filter models.UserListFilter) ([]models.User, error) {
	var builder strings.Builder
	builder.WriteString("SELECT " + userColumns + " FROM users WHERE 1=1")
	var args []interface{}
	if cohort := strings.TrimSpace(filter.Cohort); cohort != "" {
		args = append(args, cohort)
		builder.WriteString(fmt.Sprintf(" AND LOWER(TRIM(cohort_applied)) = LOWER($%d)", len(args)))
	}
	builder.WriteString(" ORDER BY seq")

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if len(rows) == 0 {
		return []models.User{}, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return r.hydrate(ctx, rows, ids)
}

// FindByID loads one user.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, "SELECT "+userColumns+" FROM users WHERE id = $1 LIMIT 1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	users, err := r.hydrate(ctx, []userRow{row}, []string{row.ID})
	if err != nil {
		return nil, err
	}
	return &users[0], nil
}

func (r *PostgresUserRepository) hydrate(ctx context.Context, rows []userRow, ids []string) ([]models.User, error) {
	var completed []completedBlogRow
	if err := r.db.SelectContext(ctx, &completed,
		"SELECT user_id, blog_id, completed_at FROM user_completed_blogs WHERE user_id = ANY($1) ORDER BY user_id, position",
		pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list completed blogs: %w", err)
	}

	var attempts []attemptRefRow
	if err := r.db.SelectContext(ctx, &attempts,
		"SELECT user_id, id FROM quiz_attempts WHERE user_id = ANY($1) ORDER BY seq",
		pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list attempt references: %w", err)
	}

	completedByUser := make(map[string][]models.CompletedBlog, len(rows))
	for _, c := range completed {
		completedByUser[c.UserID] = append(completedByUser[c.UserID], models.CompletedBlog{ClassID: c.BlogID, CompletedAt: c.CompletedAt})
	}
	attemptsByUser := make(map[string][]string, len(rows))
	for _, a := range attempts {
		attemptsByUser[a.UserID] = append(attemptsByUser[a.UserID], a.AttemptID)
	}

	users := make([]models.User, len(rows))
	for i, row := range rows {
		users[i] = models.User{
			ID:                 row.ID,
			FirstName:          deref(row.FirstName),
			LastName:           deref(row.LastName),
			Email:              deref(row.Email),
			Gender:             deref(row.Gender),
			DateOfBirth:        deref(row.DateOfBirth),
			Country:            deref(row.Country),
			State:              deref(row.State),
			City:               deref(row.City),
			CohortApplied:      deref(row.CohortApplied),
			ActivityLevel:      deref(row.ActivityLevel),
			IsActive:           row.IsActive,
			IsCertified:        row.IsCertified,
			CertificatesEarned: row.CertificatesEarned,
			LastLogin:          row.LastLogin,
			CreatedAt:          row.CreatedAt,
			UpdatedAt:          row.UpdatedAt,
			CompletedBlogs:     completedByUser[row.ID],
			QuizAttemptIDs:     attemptsByUser[row.ID],
		}
	}
	return users, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
