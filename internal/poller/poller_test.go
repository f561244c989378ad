package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/pkg/logger"
)

type fakeVideos struct {
	mu        sync.Mutex
	pending   []models.VideoHistoryItem
	outcomes  map[string]models.VideoStatus
	failing   map[string]bool
	refreshed []string
	limit     int
}

func (f *fakeVideos) PendingVideos(_ context.Context, limit int) ([]models.VideoHistoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = limit
	return f.pending, nil
}

func (f *fakeVideos) RefreshVideo(_ context.Context, operationID string) (*models.VideoHistoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, operationID)
	if f.failing[operationID] {
		return nil, errors.New("backend down")
	}
	status, ok := f.outcomes[operationID]
	if !ok {
		status = models.VideoPending
	}
	return &models.VideoHistoryItem{OperationID: operationID, Status: status}, nil
}

type fakeLease struct {
	mu       sync.Mutex
	held     bool
	released []string
}

func (l *fakeLease) TryLock(_ context.Context, _ string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return "", false, nil
	}
	l.held = true
	return "token-1", true, nil
}

func (l *fakeLease) Release(_ context.Context, _ string, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.released = append(l.released, token)
	return nil
}

func pendingItems(ids ...string) []models.VideoHistoryItem {
	out := make([]models.VideoHistoryItem, len(ids))
	for i, id := range ids {
		out[i] = models.VideoHistoryItem{OperationID: id, Status: models.VideoPending}
	}
	return out
}

func TestSweepRefreshesEveryPendingVideo(t *testing.T) {
	videos := &fakeVideos{
		pending:  pendingItems("op-1", "op-2", "op-3", "op-4"),
		outcomes: map[string]models.VideoStatus{"op-1": models.VideoCompleted, "op-3": models.VideoFailed},
		failing:  map[string]bool{"op-4": true},
	}
	p := New(videos, nil, Config{Workers: 3, Batch: 10}, logger.Nop())

	resolved, err := p.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resolved)
	assert.ElementsMatch(t, []string{"op-1", "op-2", "op-3", "op-4"}, videos.refreshed)
	assert.Equal(t, 10, videos.limit)
}

func TestSweepSkipsWhenLeaseIsHeld(t *testing.T) {
	videos := &fakeVideos{pending: pendingItems("op-1")}
	lease := &fakeLease{held: true}
	p := New(videos, lease, Config{Workers: 1}, logger.Nop())

	resolved, err := p.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.Empty(t, videos.refreshed)
}

func TestSweepReleasesLease(t *testing.T) {
	videos := &fakeVideos{pending: pendingItems("op-1"), outcomes: map[string]models.VideoStatus{"op-1": models.VideoCompleted}}
	lease := &fakeLease{}
	p := New(videos, lease, Config{Workers: 1}, logger.Nop())

	resolved, err := p.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, []string{"token-1"}, lease.released)
	assert.False(t, lease.held)
}

func TestRunRejectsBadSchedule(t *testing.T) {
	p := New(&fakeVideos{}, nil, Config{Schedule: "every now and then"}, logger.Nop())
	err := p.Run(context.Background())
	assert.Error(t, err)
}

func TestRunStopsWithContext(t *testing.T) {
	p := New(&fakeVideos{}, nil, Config{Schedule: "@every 1h"}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestWorkerPoolRunsAllTasks(t *testing.T) {
	pool := newWorkerPool(context.Background(), 4)
	var mu sync.Mutex
	count := 0
	for i := 0; i < 50; i++ {
		require.True(t, pool.Submit(func(context.Context) {
			mu.Lock()
			count++
			mu.Unlock()
		}))
	}
	pool.Close()
	assert.Equal(t, 50, count)
	assert.False(t, pool.Submit(func(context.Context) {}))
}

func TestRedisLeaseRequiresClient(t *testing.T) {
	assert.Nil(t, NewRedisLease(nil))

	var lease *RedisLease
	_, ok, err := lease.TryLock(context.Background(), "k", time.Second)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.NoError(t, lease.Release(context.Background(), "k", "t"))
}

func TestLeaseOutlivesSlowestSweep(t *testing.T) {
	p := New(&fakeVideos{}, nil, Config{Workers: 4, Batch: 50, TaskTimeout: time.Minute, LeaseTTL: time.Minute}, logger.Nop())
	assert.Equal(t, 14*time.Minute, p.cfg.LeaseTTL)

	p = New(&fakeVideos{}, nil, Config{Workers: 4, Batch: 8, TaskTimeout: time.Second, LeaseTTL: time.Hour}, logger.Nop())
	assert.Equal(t, time.Hour, p.cfg.LeaseTTL)

	p = New(&fakeVideos{}, nil, Config{}, logger.Nop())
	assert.Equal(t, 51*30*time.Second, p.cfg.LeaseTTL)
}
