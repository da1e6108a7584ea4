package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/config"
	"github.com/stemsi/leave-assessment/internal/lock"
)

const (
	// lockWait is how long a replica waits for the sweep lock before
	// assuming another replica owns this tick.
	lockWait = 200 * time.Millisecond
	// maxBatchesPerTick bounds one sweep when a backlog has built up.
	maxBatchesPerTick = 10
)

// OverdueExpirer closes attempts whose time limit ran out.
type OverdueExpirer interface {
	ExpireOverdue(ctx context.Context, grace time.Duration, limit int) (int, error)
}

// ExpiryWorker periodically submits attempts left open past their deadline.
type ExpiryWorker struct {
	expirer   OverdueExpirer
	locker    lock.Locker
	interval  time.Duration
	grace     time.Duration
	batchSize int
	log       zerolog.Logger
}

// NewExpiryWorker creates an ExpiryWorker driven by the expiry settings in cfg.
func NewExpiryWorker(expirer OverdueExpirer, locker lock.Locker, cfg *config.Config, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		expirer:   expirer,
		locker:    locker,
		interval:  cfg.ExpiryInterval,
		grace:     cfg.ExpiryGrace,
		batchSize: cfg.ExpiryBatchSize,
		log:       log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Dur("grace", w.grace).Msg("ExpiryWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep expires overdue attempts under the cluster-wide sweep lock and
// returns how many were closed.
func (w *ExpiryWorker) sweep(ctx context.Context) int {
	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	release, err := w.locker.Acquire(lockCtx, config.WorkerKey.ExpirySweepLock, w.interval)
	cancel()
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			w.log.Debug().Msg("Sweep lock held elsewhere, skipping tick")
		} else {
			w.log.Error().Err(err).Msg("Failed to acquire sweep lock")
		}
		return 0
	}
	defer release()

	total := 0
	for i := 0; i < maxBatchesPerTick; i++ {
		n, err := w.expirer.ExpireOverdue(ctx, w.grace, w.batchSize)
		total += n
		if err != nil {
			if ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Expiry sweep failed")
			}
			break
		}
		if n < w.batchSize {
			break
		}
	}

	if total > 0 {
		w.log.Info().Int("expired", total).Msg("Expired overdue attempts")
	}
	return total
}
