// Package orchestrator owns the classifier lifecycle: the single model
// instance, the category cache, the training-state machine and the
// staleness watermark. All training runs are mutually exclusive;
// predictions and status reads never block on a training run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"categorizer/internal/classifier"
	"categorizer/internal/corpus"
	"categorizer/internal/models"
	"categorizer/internal/normalizer"
	"categorizer/internal/repository"
	"categorizer/internal/storage"
)

// Predictions below this confidence are flagged for user confirmation.
// A compatibility constant, not a tunable.
const confidenceThreshold = 0.7

const predictTopK = 3

var (
	// ErrTrainingBusy signals that another training run holds the
	// lock. A no-op for the caller, not a failure.
	ErrTrainingBusy = errors.New("training already in progress")
	// ErrModelNotLoaded means no model has been trained or loaded yet.
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrInvalidInput means the text normalized to nothing.
	ErrInvalidInput = errors.New("text is empty after normalization")
	// ErrEmptyCorpus means the store holds no usable training examples.
	ErrEmptyCorpus = errors.New("no usable training examples in store")
	// ErrStoreUnavailable wraps failures of the external example store.
	// Store calls are not retried here; the triggering caller decides.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Notifier receives operational notifications about training runs.
type Notifier interface {
	Notify(text string)
}

type categorySnapshot struct {
	categories []models.Category
	byID       map[string]models.Category
}

func newSnapshot(categories []models.Category) *categorySnapshot {
	byID := make(map[string]models.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return &categorySnapshot{categories: categories, byID: byID}
}

// Orchestrator coordinates training and serving for one classifier
// instance.
type Orchestrator struct {
	store      repository.CategoryStore
	files      *storage.Store
	notifier   Notifier // may be nil
	logger     *zap.Logger
	fullParams classifier.Params
	incParams  classifier.Params

	// trainMu spans the whole of one training run. Predictions read
	// isTraining instead of taking the lock.
	trainMu    sync.Mutex
	isTraining atomic.Bool

	// model and cache are swapped atomically on successful training so
	// readers observe either the pre- or post-training state, never a
	// torn one.
	model     atomic.Pointer[classifier.Model]
	cache     atomic.Pointer[categorySnapshot]
	watermark atomic.Pointer[time.Time]
}

// New creates an orchestrator. Notifier may be nil.
func New(store repository.CategoryStore, files *storage.Store, fullParams, incParams classifier.Params, notifier Notifier, logger *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		files:      files,
		notifier:   notifier,
		logger:     logger,
		fullParams: fullParams,
		incParams:  incParams,
	}
	o.cache.Store(newSnapshot(nil))
	zero := time.Time{}
	o.watermark.Store(&zero)
	return o
}

// Initialize restores the orchestrator after a restart: load the model
// artifact if one exists (and catch up on examples that arrived during
// downtime), otherwise train from scratch. An empty store is logged
// and tolerated; the service then answers predict with ErrModelNotLoaded
// until a retrain succeeds.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	wm, err := o.files.LoadWatermark()
	if err != nil {
		return err
	}
	o.watermark.Store(&wm.LastTrainedAt)

	if !o.files.ModelExists() {
		o.logger.Info("No model artifact found, performing full training")
		if _, err := o.FullTrain(ctx); err != nil {
			if errors.Is(err, ErrEmptyCorpus) {
				o.logger.Warn("Store has no training examples yet, starting without a model")
				return nil
			}
			return err
		}
		return nil
	}

	model, err := classifier.Load(o.files.ModelPath())
	if err != nil {
		o.logger.Warn("Failed to load model artifact, retraining from scratch", zap.Error(err))
		_, err := o.FullTrain(ctx)
		return err
	}

	categories, err := o.store.FetchAllCategories(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	o.model.Store(model)
	o.cache.Store(newSnapshot(categories))
	o.logger.Info("Model loaded from disk",
		zap.String("path", o.files.ModelPath()),
		zap.Int("categories", len(categories)))

	// Close the gap between the persisted watermark and whatever
	// arrived in the store while the process was down.
	newCount, err := o.store.CountExamplesSince(ctx, wm.LastTrainedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if newCount > 0 {
		o.logger.Info("Found examples newer than the watermark",
			zap.Int("count", newCount),
			zap.Time("last_trained_at", wm.LastTrainedAt))
		if _, err := o.IncrementalTrain(ctx); err != nil {
			return err
		}
	}
	return nil
}

// FullTrain retrains from the entire store contents, replacing corpus
// and artifact wholesale. Returns (false, ErrTrainingBusy) without
// blocking when another training run is in flight.
func (o *Orchestrator) FullTrain(ctx context.Context) (bool, error) {
	if !o.trainMu.TryLock() {
		return false, ErrTrainingBusy
	}
	defer o.trainMu.Unlock()
	o.isTraining.Store(true)
	defer o.isTraining.Store(false)

	categories, err := o.store.FetchAllCategories(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(categories) == 0 {
		return false, ErrEmptyCorpus
	}

	corpusText, count := corpus.BuildFull(categories)
	if count == 0 {
		return false, ErrEmptyCorpus
	}
	o.logger.Info("Full training started", zap.Int("examples", count), zap.Int("categories", len(categories)))

	model, err := classifier.Train(corpusText, o.fullParams)
	if err != nil {
		o.notify(fmt.Sprintf("Full training failed: %v", err))
		return false, fmt.Errorf("training failed: %w", err)
	}

	if err := o.commit(model, categories, corpusText, count, "full", o.fullParams); err != nil {
		return false, err
	}
	o.notify(fmt.Sprintf("Full training completed: %d examples, %d categories", count, len(categories)))
	return true, nil
}

// IncrementalTrain retrains on the previously trained corpus plus the
// examples that arrived after the watermark. Returns (false, nil) when
// there is nothing new; the watermark and artifacts stay untouched.
func (o *Orchestrator) IncrementalTrain(ctx context.Context) (bool, error) {
	if !o.trainMu.TryLock() {
		return false, ErrTrainingBusy
	}
	defer o.trainMu.Unlock()
	o.isTraining.Store(true)
	defer o.isTraining.Store(false)

	since := *o.watermark.Load()
	newExamples, err := o.store.FetchExamplesSince(ctx, since)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(newExamples) == 0 {
		o.logger.Info("No new examples since last training", zap.Time("last_trained_at", since))
		return false, nil
	}

	incText, count := corpus.BuildIncrement(newExamples)
	oldCorpus, err := o.files.ReadCorpus()
	if err != nil {
		return false, err
	}
	merged := corpus.Merge(oldCorpus, incText)
	o.logger.Info("Incremental training started", zap.Int("new_examples", count))

	model, err := classifier.Train(merged, o.incParams)
	if err != nil {
		o.notify(fmt.Sprintf("Incremental training failed: %v", err))
		return false, fmt.Errorf("training failed: %w", err)
	}

	// Re-fetch all categories, not just the increment, so category
	// metadata edits land in the cache too.
	categories, err := o.store.FetchAllCategories(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := o.commit(model, categories, merged, count, "incremental", o.incParams); err != nil {
		return false, err
	}
	o.notify(fmt.Sprintf("Incremental training completed: %d new examples", count))
	return true, nil
}

// commit publishes a successful training run. Ordering matters for
// crash recovery: corpus replacement, then artifact save, then the
// in-memory swap, then watermark, then metadata. A crash between any
// two steps is recovered on the next Initialize by retraining from the
// stale watermark, which is safe because the corpus re-derives from
// the store of truth.
func (o *Orchestrator) commit(model *classifier.Model, categories []models.Category, corpusText string, exampleCount int, trainType string, params classifier.Params) error {
	if err := o.files.WriteCorpus(corpusText); err != nil {
		return err
	}
	if err := model.Save(o.files.ModelPath()); err != nil {
		return err
	}

	o.model.Store(model)
	o.cache.Store(newSnapshot(categories))

	now := time.Now()
	if err := o.files.SaveWatermark(now); err != nil {
		return err
	}
	o.watermark.Store(&now)

	meta := storage.Metadata{
		RunID:           uuid.NewString(),
		TrainedAt:       now,
		TrainType:       trainType,
		ExamplesCount:   exampleCount,
		CategoriesCount: len(categories),
		Params:          params,
	}
	if err := o.files.SaveMetadata(meta); err != nil {
		return err
	}

	o.logger.Info("Model saved", zap.String("train_type", trainType), zap.Int("examples", exampleCount))
	return nil
}

// Predict classifies a text against the current model. It fails fast
// with ErrTrainingBusy while a training run is in flight rather than
// making the caller wait out a run that can take minutes.
func (o *Orchestrator) Predict(text string) (*models.PredictResponse, error) {
	if o.isTraining.Load() {
		return nil, ErrTrainingBusy
	}
	model := o.model.Load()
	if model == nil {
		return nil, ErrModelNotLoaded
	}
	clean := normalizer.Normalize(text)
	if clean == "" {
		return nil, ErrInvalidInput
	}

	snapshot := o.cache.Load()
	ranked := model.Predict(clean, predictTopK)
	results := make([]models.PredictionResult, 0, len(ranked))
	for _, p := range ranked {
		results = append(results, o.resolveCategory(snapshot, p))
	}

	resp := &models.PredictResponse{
		Alternatives:      []models.PredictionResult{},
		NeedsConfirmation: true,
		Source:            "classifier",
	}
	if len(results) > 0 {
		resp.Primary = &results[0]
		resp.Alternatives = results[1:]
		resp.NeedsConfirmation = resp.Primary.Confidence < confidenceThreshold
	}
	return resp, nil
}

// resolveCategory maps a model label back to cached category metadata.
// A label can transiently miss the cache after a partial refresh; it
// then gets a fixed placeholder identity.
func (o *Orchestrator) resolveCategory(snapshot *categorySnapshot, p classifier.Prediction) models.PredictionResult {
	if cat, ok := snapshot.byID[p.Label]; ok {
		return models.PredictionResult{
			CategoryID:    cat.ID,
			CategoryName:  cat.Name,
			CategoryIcon:  cat.Icon,
			CategoryColor: cat.Color,
			Confidence:    p.Confidence,
		}
	}
	return models.PredictionResult{
		CategoryID:    p.Label,
		CategoryName:  p.Label,
		CategoryIcon:  "❓",
		CategoryColor: "#CCCCCC",
		Confidence:    p.Confidence,
	}
}

// IsTraining reports whether a training run is currently in flight.
func (o *Orchestrator) IsTraining() bool {
	return o.isTraining.Load()
}

// ModelLoaded reports whether a model is available for predictions.
func (o *Orchestrator) ModelLoaded() bool {
	return o.model.Load() != nil
}

// CategoriesCount returns the size of the cached category snapshot.
func (o *Orchestrator) CategoriesCount() int {
	return len(o.cache.Load().categories)
}

// Watermark returns the in-memory staleness watermark.
func (o *Orchestrator) Watermark() time.Time {
	return *o.watermark.Load()
}

// CountNewExamples returns how many store examples postdate the
// watermark.
func (o *Orchestrator) CountNewExamples(ctx context.Context) (int, error) {
	count, err := o.store.CountExamplesSince(ctx, o.Watermark())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

// Status is a pure read of orchestrator state; it never blocks on or
// triggers training.
func (o *Orchestrator) Status() models.StatusResponse {
	return models.StatusResponse{
		Success:         true,
		Message:         "service is running",
		CategoriesCount: o.CategoriesCount(),
		IsTraining:      o.IsTraining(),
	}
}

// ModelInfo reports the persisted model location and the metadata
// record of the last training run.
func (o *Orchestrator) ModelInfo() (models.ModelInfoResponse, error) {
	metadata, err := o.files.ReadMetadataJSON()
	if err != nil {
		return models.ModelInfoResponse{}, err
	}
	return models.ModelInfoResponse{
		ModelPath:       o.files.ModelPath(),
		CategoriesCount: o.CategoriesCount(),
		IsTraining:      o.IsTraining(),
		Metadata:        metadata,
	}, nil
}

func (o *Orchestrator) notify(text string) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(text)
}
