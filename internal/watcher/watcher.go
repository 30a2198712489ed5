// Package watcher runs the background staleness check: when enough new
// examples have accumulated past the watermark, it kicks off an
// incremental retrain. It lives for the whole process and outlives any
// error a tick can produce.
package watcher

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"categorizer/internal/orchestrator"
)

// Trainer is the slice of the orchestrator the watcher needs.
type Trainer interface {
	IsTraining() bool
	CountNewExamples(ctx context.Context) (int, error)
	IncrementalTrain(ctx context.Context) (bool, error)
}

// Watcher periodically checks the store for examples newer than the
// watermark.
type Watcher struct {
	trainer   Trainer
	interval  time.Duration
	threshold int
	logger    *zap.Logger
}

// New creates a watcher. The interval and threshold default to 30s and
// 5 when non-positive.
func New(trainer Trainer, interval time.Duration, threshold int, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if threshold <= 0 {
		threshold = 5
	}
	return &Watcher{
		trainer:   trainer,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled, checking for new data on every
// tick. A tick that finds a training run in flight is skipped, not
// queued. Errors are logged and never stop the loop.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("Staleness watcher started",
		zap.Duration("interval", w.interval),
		zap.Int("threshold", w.threshold))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Staleness watcher stopped.")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	if w.trainer.IsTraining() {
		w.logger.Debug("Training in progress, skipping staleness check")
		return
	}

	count, err := w.trainer.CountNewExamples(ctx)
	if err != nil {
		w.logger.Error("Failed to count new examples", zap.Error(err))
		return
	}
	if count <= w.threshold {
		return
	}

	w.logger.Info("New examples exceed threshold, starting incremental training", zap.Int("count", count))
	trained, err := w.trainer.IncrementalTrain(ctx)
	switch {
	case errors.Is(err, orchestrator.ErrTrainingBusy):
		w.logger.Debug("Another training run started first, skipping")
	case err != nil:
		w.logger.Error("Incremental training failed", zap.Error(err))
	case trained:
		w.logger.Info("Incremental training completed")
	}
}
