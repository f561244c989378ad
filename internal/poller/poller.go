package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/digkill/genstudio/internal/models"
)

const leaseKey = "genstudio:video-poller"

// VideoRefresher is the slice of the generation service the poller drives.
type VideoRefresher interface {
	PendingVideos(ctx context.Context, limit int) ([]models.VideoHistoryItem, error)
	RefreshVideo(ctx context.Context, operationID string) (*models.VideoHistoryItem, error)
}

type Config struct {
	Schedule    string
	Workers     int
	Batch       int
	TaskTimeout time.Duration
	LeaseTTL    time.Duration
}

// Poller periodically resolves pending video operations. With a Lease
// configured only one replica sweeps at a time.
type Poller struct {
	videos   VideoRefresher
	lease    Lease
	cfg      Config
	log      *slog.Logger
	sweeping atomic.Bool
}

// New creates a poller. lease may be nil when a single replica runs.
func New(videos VideoRefresher, lease Lease, cfg Config, log *slog.Logger) *Poller {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Batch < 1 {
		cfg.Batch = 50
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Second
	}
	// the lease has to outlive the slowest sweep
	if bound := sweepBound(cfg); cfg.LeaseTTL < bound {
		cfg.LeaseTTL = bound
	}
	return &Poller{videos: videos, lease: lease, cfg: cfg, log: log}
}

// sweepBound is the longest a sweep can take: each worker runs its share of the
// batch back to back, plus one task of slack for releasing the lease.
func sweepBound(cfg Config) time.Duration {
	rounds := (cfg.Batch + cfg.Workers - 1) / cfg.Workers
	return time.Duration(rounds+1) * cfg.TaskTimeout
}

// Run sweeps on the configured schedule until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(p.cfg.Schedule, func() { p.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule video poller %q: %w", p.cfg.Schedule, err)
	}
	c.Start()
	p.log.Info("video poller started", "schedule", p.cfg.Schedule, "workers", p.cfg.Workers)

	<-ctx.Done()
	<-c.Stop().Done()
	p.log.Info("video poller stopped")
	return nil
}

// tick skips a run while the previous sweep is still going.
func (p *Poller) tick(ctx context.Context) {
	if !p.sweeping.CompareAndSwap(false, true) {
		return
	}
	defer p.sweeping.Store(false)

	if _, err := p.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.log.Error("video sweep failed", "err", err)
	}
}

// Sweep refreshes one batch of pending videos and returns how many reached a
// final state.
func (p *Poller) Sweep(ctx context.Context) (int, error) {
	if p.lease != nil {
		token, ok, err := p.lease.TryLock(ctx, leaseKey, p.cfg.LeaseTTL)
		if err != nil {
			return 0, fmt.Errorf("acquire poller lease: %w", err)
		}
		if !ok {
			return 0, nil
		}
		defer func() {
			if err := p.lease.Release(context.WithoutCancel(ctx), leaseKey, token); err != nil {
				p.log.Warn("release poller lease", "err", err)
			}
		}()
	}

	pending, err := p.videos.PendingVideos(ctx, p.cfg.Batch)
	if err != nil {
		return 0, fmt.Errorf("list pending videos: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var resolved atomic.Int64
	pool := newWorkerPool(ctx, p.cfg.Workers)
	for _, item := range pending {
		opID := item.OperationID
		submitted := pool.Submit(func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, p.cfg.TaskTimeout)
			defer cancel()

			updated, err := p.videos.RefreshVideo(ctx, opID)
			if err != nil {
				p.log.Warn("refresh video failed", "operation_id", opID, "err", err)
				return
			}
			if updated.Status != models.VideoPending {
				resolved.Add(1)
				p.log.Info("video resolved", "operation_id", opID, "status", updated.Status)
			}
		})
		if !submitted {
			break
		}
	}
	pool.Close()

	return int(resolved.Load()), ctx.Err()
}
