package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"categorizer/internal/orchestrator"
)

type fakeTrainer struct {
	mu       sync.Mutex
	training bool
	count    int
	countErr error
	incErr   error
	incCalls int
}

func (f *fakeTrainer) IsTraining() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.training
}

func (f *fakeTrainer) CountNewExamples(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, f.countErr
}

func (f *fakeTrainer) IncrementalTrain(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incCalls++
	if f.incErr != nil {
		return false, f.incErr
	}
	return true, nil
}

func (f *fakeTrainer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.incCalls
}

func TestTickTriggersAboveThreshold(t *testing.T) {
	trainer := &fakeTrainer{count: 6}
	w := New(trainer, time.Second, 5, zap.NewNop())

	w.tick(context.Background())
	assert.Equal(t, 1, trainer.calls())
}

func TestTickSkipsAtOrBelowThreshold(t *testing.T) {
	trainer := &fakeTrainer{count: 5}
	w := New(trainer, time.Second, 5, zap.NewNop())

	w.tick(context.Background())
	assert.Zero(t, trainer.calls())
}

func TestTickSkipsWhileTraining(t *testing.T) {
	trainer := &fakeTrainer{count: 100, training: true}
	w := New(trainer, time.Second, 5, zap.NewNop())

	w.tick(context.Background())
	assert.Zero(t, trainer.calls())
}

func TestTickSurvivesStoreError(t *testing.T) {
	trainer := &fakeTrainer{countErr: errors.New("connection refused")}
	w := New(trainer, time.Second, 5, zap.NewNop())

	w.tick(context.Background())
	assert.Zero(t, trainer.calls())
}

func TestTickSurvivesTrainingError(t *testing.T) {
	trainer := &fakeTrainer{count: 10, incErr: errors.New("training failed")}
	w := New(trainer, time.Second, 5, zap.NewNop())

	w.tick(context.Background())
	w.tick(context.Background())
	assert.Equal(t, 2, trainer.calls(), "a failed tick must not stop later ticks")
}

func TestTickToleratesLostRace(t *testing.T) {
	trainer := &fakeTrainer{count: 10, incErr: orchestrator.ErrTrainingBusy}
	w := New(trainer, time.Second, 5, zap.NewNop())

	w.tick(context.Background())
	assert.Equal(t, 1, trainer.calls())
}

func TestRunStopsOnCancel(t *testing.T) {
	trainer := &fakeTrainer{count: 10}
	w := New(trainer, 5*time.Millisecond, 5, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return trainer.calls() > 0 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}
}

func TestDefaultsApplied(t *testing.T) {
	w := New(&fakeTrainer{}, 0, 0, zap.NewNop())
	assert.Equal(t, 30*time.Second, w.interval)
	assert.Equal(t, 5, w.threshold)
}
