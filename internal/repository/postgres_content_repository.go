package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/learning-analytics-api/internal/models"
)

// PostgresGroupRepository reads courses from the reporting replica.
type PostgresGroupRepository struct {
	db *sqlx.DB
}

// NewPostgresGroupRepository constructs the repository.
func NewPostgresGroupRepository(db *sqlx.DB) *PostgresGroupRepository {
	return &PostgresGroupRepository{db: db}
}

// List returns every group in replication order.
func (r *PostgresGroupRepository) List(ctx context.Context) ([]models.Group, error) {
	groups := []models.Group{}
	if err := r.db.SelectContext(ctx, &groups, "SELECT id, COALESCE(title, '') AS title FROM groups ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// PostgresChapterRepository reads chapters.
type PostgresChapterRepository struct {
	db *sqlx.DB
}

// NewPostgresChapterRepository constructs the repository.
func NewPostgresChapterRepository(db *sqlx.DB) *PostgresChapterRepository {
	return &PostgresChapterRepository{db: db}
}

// List returns every chapter; a NULL group becomes an empty reference.
func (r *PostgresChapterRepository) List(ctx context.Context) ([]models.Chapter, error) {
	chapters := []models.Chapter{}
	if err := r.db.SelectContext(ctx, &chapters,
		"SELECT id, COALESCE(title, '') AS title, COALESCE(group_id, '') AS group_id FROM chapters ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return chapters, nil
}

type classRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	ChapterID   string         `db:"chapter_id"`
	UpdatedAt   *time.Time     `db:"updated_at"`
	CompletedBy pq.StringArray `db:"completed_by"`
}

// PostgresClassRepository reads classes with their completedBy back-references.
type PostgresClassRepository struct {
	db *sqlx.DB
}

// NewPostgresClassRepository constructs the repository.
func NewPostgresClassRepository(db *sqlx.DB) *PostgresClassRepository {
	return &PostgresClassRepository{db: db}
}

// List returns every class in replication order.
func (r *PostgresClassRepository) List(ctx context.Context) ([]models.Class, error) {
	var rows []classRow
	query := `SELECT b.id, COALESCE(b.title, '') AS title, COALESCE(b.chapter_id, '') AS chapter_id, b.updated_at,
        COALESCE(ARRAY(SELECT cb.user_id FROM blog_completed_by cb WHERE cb.blog_id = b.id ORDER BY cb.position), '{}') AS completed_by
        FROM blogs b ORDER BY b.seq`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	classes := make([]models.Class, len(rows))
	for i, row := range rows {
		classes[i] = models.Class{
			ID:          row.ID,
			Title:       row.Title,
			ChapterID:   row.ChapterID,
			UpdatedAt:   row.UpdatedAt,
			CompletedBy: []string(row.CompletedBy),
		}
	}
	return classes, nil
}

// PostgresQuizRepository reads quizzes.
type PostgresQuizRepository struct {
	db *sqlx.DB
}

// NewPostgresQuizRepository constructs the repository.
func NewPostgresQuizRepository(db *sqlx.DB) *PostgresQuizRepository {
	return &PostgresQuizRepository{db: db}
}

// List returns every quiz in replication order.
func (r *PostgresQuizRepository) List(ctx context.Context) ([]models.Quiz, error) {
	quizzes := []models.Quiz{}
	if err := r.db.SelectContext(ctx, &quizzes,
		"SELECT id, COALESCE(title, '') AS title, COALESCE(blog_id, '') AS blog_id FROM quizzes ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, nil
}

const quizAttemptColumns = "id, COALESCE(user_id, '') AS user_id, COALESCE(quiz_id, '') AS quiz_id, score, COALESCE(is_passed, FALSE) AS is_passed, completed_at"

// PostgresQuizAttemptRepository reads quiz attempts.
type PostgresQuizAttemptRepository struct {
	db *sqlx.DB
}

// NewPostgresQuizAttemptRepository constructs the repository.
func NewPostgresQuizAttemptRepository(db *sqlx.DB) *PostgresQuizAttemptRepository {
	return &PostgresQuizAttemptRepository{db: db}
}

// List returns every attempt in replication order.
func (r *PostgresQuizAttemptRepository) List(ctx context.Context) ([]models.QuizAttempt, error) {
	attempts := []models.QuizAttempt{}
	if err := r.db.SelectContext(ctx, &attempts, "SELECT "+quizAttemptColumns+" FROM quiz_attempts ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("list quiz attempts: %w", err)
	}
	return attempts, nil
}

// ListByIDs returns the attempts whose ids are given.
func (r *PostgresQuizAttemptRepository) ListByIDs(ctx context.Context, ids []string) ([]models.QuizAttempt, error) {
	attempts := []models.QuizAttempt{}
	if len(ids) == 0 {
		return attempts, nil
	}
	if err := r.db.SelectContext(ctx, &attempts,
		"SELECT "+quizAttemptColumns+" FROM quiz_attempts WHERE id = ANY($1) ORDER BY seq", pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list quiz attempts by id: %w", err)
	}
	return attempts, nil
}
