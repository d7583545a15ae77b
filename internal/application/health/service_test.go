package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"stocksim-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func() error

func (f pingFunc) Ping() error { return f() }

type feedPing struct{ err error }

func (f feedPing) Ping(context.Context) error { return f.err }

type runs []domain.SyncRun

func (r runs) Recent(context.Context, int) ([]domain.SyncRun, error) { return r, nil }

func TestCollectHealth_NoProbes(t *testing.T) {
	result := CollectHealth(context.Background(), Probes{})
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, "disconnected", result.Dependencies["database"].Status)
	assert.Equal(t, "disconnected", result.Dependencies["redis"].Status)
	_, hasFeed := result.Dependencies["feed"]
	assert.False(t, hasFeed)
	assert.Nil(t, result.LastSync)
	assert.Equal(t, 0, result.Traffic.TotalRequests)
}

func TestCollectHealth_WithMiniredis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	result := CollectHealth(ctx, Probes{Redis: rdb})
	assert.Equal(t, "connected", result.Dependencies["redis"].Status)
	assert.Equal(t, "100", result.Traffic.SuccessRate)
	assert.True(t, mr.Exists("health:global:start_time"))

	require.NoError(t, rdb.Set(ctx, "health:global:req_total", "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:req_errors", "2", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:res_time_total", "150.5", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:res_count", "10", 0).Err())

	result = CollectHealth(ctx, Probes{Redis: rdb, DB: pingFunc(func() error { return nil })})
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, 10, result.Traffic.TotalRequests)
	assert.Equal(t, 8, result.Traffic.SuccessCount)
	assert.Equal(t, "80.0", result.Traffic.SuccessRate)
	assert.Equal(t, "15.05", result.Traffic.AvgResponseTime)
}

func TestCollectHealth_DatabaseError(t *testing.T) {
	result := CollectHealth(context.Background(), Probes{DB: pingFunc(func() error { return errors.New("down") })})
	assert.Equal(t, "error", result.Dependencies["database"].Status)
	assert.Equal(t, "issue", result.Status)
}

func TestCollectHealth_FeedAndLastSync(t *testing.T) {
	last := domain.SyncRun{ID: 7, Outcome: "success", FinishedAt: time.Now()}
	db := pingFunc(func() error { return nil })

	result := CollectHealth(context.Background(), Probes{DB: db, Feed: feedPing{}, Syncs: runs{last}})
	assert.Equal(t, "reachable", result.Dependencies["feed"].Status)
	require.NotNil(t, result.LastSync)
	assert.Equal(t, uint(7), result.LastSync.ID)

	result = CollectHealth(context.Background(), Probes{DB: db, Feed: feedPing{err: errors.New("timeout")}})
	assert.Equal(t, "unreachable", result.Dependencies["feed"].Status)
}
