// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/movex/movex/pkg/errutil"
)

// DefaultPruneInterval is how often expired revocations are removed.
const DefaultPruneInterval = time.Hour

// PruneWorker periodically deletes expired revocations.
type PruneWorker struct {
	pruner   RevocationPruner
	interval time.Duration
	logger   *slog.Logger
	clock    func() time.Time
	observe  func(n int64)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPruneWorker creates a PruneWorker. A non-positive interval selects
// DefaultPruneInterval.
func NewPruneWorker(pruner RevocationPruner, interval time.Duration, logger *slog.Logger) (*PruneWorker, error) {
	if pruner == nil {
		return nil, oops.Errorf("revocation pruner is required")
	}
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PruneWorker{
		pruner:   pruner,
		interval: interval,
		logger:   logger,
		clock:    time.Now,
	}, nil
}

// OnPrune registers fn to receive the count of each successful cycle. It
// must be called before Start.
func (w *PruneWorker) OnPrune(fn func(n int64)) {
	w.observe = fn
}

// RunOnce deletes every revocation whose token has expired.
func (w *PruneWorker) RunOnce(ctx context.Context) (int64, error) {
	n, err := w.pruner.DeleteExpired(ctx, w.clock())
	if err != nil {
		return 0, oops.Code("REVOCATION_PRUNE_FAILED").Wrap(err)
	}
	if n > 0 {
		w.logger.Info("pruned expired revocations", "count", n)
	}
	if w.observe != nil {
		w.observe(n)
	}
	return n, nil
}

// Start begins periodic pruning.
func (w *PruneWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the worker and waits for it to finish.
func (w *PruneWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *PruneWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			errutil.LogError(w.logger, "revocation prune cycle failed", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
