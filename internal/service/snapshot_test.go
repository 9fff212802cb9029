package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learning-analytics-api/internal/models"
	appErrors "github.com/noah-isme/learning-analytics-api/pkg/errors"
)

type blockingGroups struct{}

func (blockingGroups) List(ctx context.Context) ([]models.Group, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSnapshotLoaderReadsOnlyRequestedCollections(t *testing.T) {
	fake := &fakeEntityStore{snap: &Snapshot{Groups: []models.Group{{ID: "g1", Title: "Frontend"}}}}
	metrics := NewMetricsService()
	loader := NewSnapshotLoader(fake.store(), metrics, time.Second)

	snap, err := loader.Load(context.Background(), SnapshotSpec{Content: true})

	require.NoError(t, err)
	assert.Equal(t, 0, fake.userCalls)
	require.Len(t, snap.Groups, 1)
	assert.NotNil(t, snap.Chapters)
	assert.NotNil(t, snap.Classes)
	assert.Nil(t, snap.Users)
	assert.Nil(t, snap.Attempts)
	assert.Equal(t, uint64(3), metrics.Snapshot().StoreReadCount)
}

func TestSnapshotLoaderAttemptsByID(t *testing.T) {
	fake := &fakeEntityStore{snap: &Snapshot{Attempts: []models.QuizAttempt{{ID: "a1"}, {ID: "a2"}}}}
	loader := NewSnapshotLoader(fake.store(), nil, 0)

	snap, err := loader.Load(context.Background(), SnapshotSpec{Attempts: AttemptsByID, AttemptIDs: []string{"a2"}})

	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, fake.lastIDs)
	require.Len(t, snap.Attempts, 1)
	assert.Equal(t, "a2", snap.Attempts[0].ID)
}

func TestSnapshotLoaderFailsWhole(t *testing.T) {
	fake := &fakeEntityStore{snap: &Snapshot{}, attemptErr: errors.New("connection reset")}
	loader := NewSnapshotLoader(fake.store(), nil, time.Second)

	snap, err := loader.Load(context.Background(), SnapshotSpec{Users: true, Content: true, Attempts: AttemptsAll})

	require.Error(t, err)
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, appErrors.ErrAnalyticsFailed)
}

func TestSnapshotLoaderTimeout(t *testing.T) {
	fake := &fakeEntityStore{snap: &Snapshot{}}
	store := fake.store()
	store.Groups = blockingGroups{}
	loader := NewSnapshotLoader(store, nil, 20*time.Millisecond)

	_, err := loader.Load(context.Background(), SnapshotSpec{Content: true})

	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrAnalyticsFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSnapshotLoaderFindUser(t *testing.T) {
	fake := &fakeEntityStore{snap: &Snapshot{Users: []models.User{{ID: "u1", FirstName: "Ada"}}}}
	loader := NewSnapshotLoader(fake.store(), nil, time.Second)

	user, err := loader.FindUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.FirstName)

	_, err = loader.FindUser(context.Background(), "nope")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
