package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/learning-analytics-api/internal/models"
	appErrors "github.com/noah-isme/learning-analytics-api/pkg/errors"
)

// UserRepository reads learners.
type UserRepository interface {
	List(ctx context.Context, filter models.UserListFilter) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// GroupRepository reads courses.
type GroupRepository interface {
	List(ctx context.Context) ([]models.Group, error)
}

// ChapterRepository reads chapters.
type ChapterRepository interface {
	List(ctx context.Context) ([]models.Chapter, error)
}

// ClassRepository reads classes.
type ClassRepository interface {
	List(ctx context.Context) ([]models.Class, error)
}

// QuizRepository reads quizzes.
type QuizRepository interface {
	List(ctx context.Context) ([]models.Quiz, error)
}

// QuizAttemptRepository reads quiz attempts.
type QuizAttemptRepository interface {
	List(ctx context.Context) ([]models.QuizAttempt, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.QuizAttempt, error)
}

// EntityStore bundles the typed repositories for one backing store.
type EntityStore struct {
	Users        UserRepository
	Groups       GroupRepository
	Chapters     ChapterRepository
	Classes      ClassRepository
	Quizzes      QuizRepository
	QuizAttempts QuizAttemptRepository
}

// AttemptScope selects which quiz attempts a snapshot reads.
type AttemptScope int

const (
	AttemptsNone AttemptScope = iota
	AttemptsAll
	AttemptsByID
)

// SnapshotSpec names the collections one computation needs.
type SnapshotSpec struct {
	Users      bool
	UserFilter models.UserListFilter
	Content    bool
	Quizzes    bool
	Attempts   AttemptScope
	AttemptIDs []string
}

// Snapshot is the request-scoped view of the entity collections.
type Snapshot struct {
	Users    []models.User
	Groups   []models.Group
	Chapters []models.Chapter
	Classes  []models.Class
	Quizzes  []models.Quiz
	Attempts []models.QuizAttempt
}

// SnapshotLoader fetches independent collections concurrently under a bounded timeout.
type SnapshotLoader struct {
	store   EntityStore
	metrics *MetricsService
	timeout time.Duration
}

// NewSnapshotLoader constructs a loader. A non-positive timeout disables the deadline.
func NewSnapshotLoader(store EntityStore, metrics *MetricsService, timeout time.Duration) *SnapshotLoader {
	return &SnapshotLoader{store: store, metrics: metrics, timeout: timeout}
}

// FindUser resolves one user; a missing user surfaces as ErrNotFound.
func (l *SnapshotLoader) FindUser(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	user, err := l.store.Users.FindByID(ctx, id)
	l.metrics.ObserveStoreRead("users", time.Since(start))
	if err != nil {
		return nil, appErrors.AsComputationFailure(err, "failed to read user")
	}
	if user == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return user, nil
}

// Load reads every requested collection. Any failed read fails the whole snapshot.
func (l *SnapshotLoader) Load(ctx context.Context, spec SnapshotSpec) (*Snapshot, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	snap := &Snapshot{}
	g, gctx := errgroup.WithContext(ctx)

	if spec.Users {
		g.Go(func() (err error) {
			snap.Users, err = timedRead(gctx, l.metrics, "users", func(ctx context.Context) ([]models.User, error) {
				return l.store.Users.List(ctx, spec.UserFilter)
			})
			return err
		})
	}
	if spec.Content {
		g.Go(func() (err error) {
			snap.Groups, err = timedRead(gctx, l.metrics, "groups", l.store.Groups.List)
			return err
		})
		g.Go(func() (err error) {
			snap.Chapters, err = timedRead(gctx, l.metrics, "chapters", l.store.Chapters.List)
			return err
		})
		g.Go(func() (err error) {
			snap.Classes, err = timedRead(gctx, l.metrics, "blogs", l.store.Classes.List)
			return err
		})
	}
	if spec.Quizzes {
		g.Go(func() (err error) {
			snap.Quizzes, err = timedRead(gctx, l.metrics, "quizzes", l.store.Quizzes.List)
			return err
		})
	}
	switch spec.Attempts {
	case AttemptsAll:
		g.Go(func() (err error) {
			snap.Attempts, err = timedRead(gctx, l.metrics, "quizattempts", l.store.QuizAttempts.List)
			return err
		})
	case AttemptsByID:
		ids := spec.AttemptIDs
		g.Go(func() (err error) {
			snap.Attempts, err = timedRead(gctx, l.metrics, "quizattempts", func(ctx context.Context) ([]models.QuizAttempt, error) {
				return l.store.QuizAttempts.ListByIDs(ctx, ids)
			})
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, appErrors.AsComputationFailure(err, "failed to read analytics snapshot")
	}
	return snap, nil
}

func (l *SnapshotLoader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}

func timedRead[T any](ctx context.Context, metrics *MetricsService, collection string, read func(context.Context) ([]T, error)) ([]T, error) {
	start := time.Now()
	items, err := read(ctx)
	metrics.ObserveStoreRead(collection, time.Since(start))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
