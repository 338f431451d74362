package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"whereismypet/internal/cache"
	"whereismypet/internal/models"
	"whereismypet/internal/repository"
	"whereismypet/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingMaintenance struct{}

func (failingMaintenance) DeleteOrphans(context.Context) (map[string]int64, error) {
	return map[string]int64{}, errors.New("db down")
}

func TestNewScheduler_RejectsBadSchedule(t *testing.T) {
	t.Parallel()
	_, err := NewScheduler(failingMaintenance{}, "every now and then")
	assert.Error(t, err)

	s, err := NewScheduler(failingMaintenance{}, "")
	require.NoError(t, err)
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestScheduler_SweepOrphans(t *testing.T) {
	t.Parallel()
	db := testutil.NewSQLiteDB(t)
	posts := repository.NewPostRepository(db, cache.New(nil))
	ctx := context.Background()

	live := testutil.FakePost("owner")
	require.NoError(t, posts.Create(ctx, live))
	require.NoError(t, db.Create(&models.Comment{PostID: live.ID, UserID: "u", Content: "kept"}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: "deleted-post", UserID: "u", Content: "orphan"}).Error)
	require.NoError(t, db.Create(&models.Report{PostID: "deleted-post", ReasonCode: models.ReasonSpam}).Error)

	s, err := NewScheduler(repository.NewMaintenanceRepository(db), "@every 1h")
	require.NoError(t, err)

	deleted, err := s.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted["comments"])
	assert.Equal(t, int64(1), deleted["reports"])
	assert.Equal(t, int64(0), deleted["notifications"])

	again, err := s.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"comments": 0, "notifications": 0, "reports": 0}, again)
}

func TestScheduler_SweepErrorIsReturned(t *testing.T) {
	t.Parallel()
	s, err := NewScheduler(failingMaintenance{}, "@daily")
	require.NoError(t, err)
	_, err = s.SweepOrphans(context.Background())
	assert.EqualError(t, err, "db down")
}
