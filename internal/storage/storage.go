// Package storage owns the on-disk lifecycle state of the model: the
// canonical corpus file, the model artifact, the training metadata
// record and the watermark file. All writes go through a temp file and
// an atomic rename so an interrupted process never leaves a truncated
// file at a canonical path.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"categorizer/internal/classifier"
)

// Store resolves the fixed file layout under a single model directory.
type Store struct {
	dir string
}

// New creates the model directory if needed and returns a Store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// ModelPath is the canonical model artifact location.
func (s *Store) ModelPath() string { return filepath.Join(s.dir, "model.bin") }

// CorpusPath is the canonical training corpus location.
func (s *Store) CorpusPath() string { return filepath.Join(s.dir, "train.txt") }

func (s *Store) metadataPath() string { return filepath.Join(s.dir, "metadata.json") }

// The watermark lives in its own file so watermark recovery never
// depends on the metadata record format.
func (s *Store) watermarkPath() string { return filepath.Join(s.dir, "training_meta.json") }

// ModelExists reports whether a model artifact is present on disk.
func (s *Store) ModelExists() bool {
	_, err := os.Stat(s.ModelPath())
	return err == nil
}

// ReadCorpus returns the canonical corpus text, or "" when no corpus
// has been written yet.
func (s *Store) ReadCorpus() (string, error) {
	data, err := os.ReadFile(s.CorpusPath())
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read corpus file: %w", err)
	}
	return string(data), nil
}

// WriteCorpus atomically replaces the canonical corpus file.
func (s *Store) WriteCorpus(text string) error {
	return writeFileAtomic(s.CorpusPath(), []byte(text))
}

// Watermark marks the cutoff up to which store examples have been
// consumed by training. Persisted outside the process so it survives
// restarts.
type Watermark struct {
	LastTrainedAt time.Time `json:"last_trained_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LoadWatermark returns the persisted watermark, or a zero-value
// watermark when none has been written yet (which makes every example
// in the store "new").
func (s *Store) LoadWatermark() (Watermark, error) {
	data, err := os.ReadFile(s.watermarkPath())
	if errors.Is(err, os.ErrNotExist) {
		return Watermark{}, nil
	}
	if err != nil {
		return Watermark{}, fmt.Errorf("failed to read watermark file: %w", err)
	}
	var wm Watermark
	if err := json.Unmarshal(data, &wm); err != nil {
		return Watermark{}, fmt.Errorf("failed to decode watermark file: %w", err)
	}
	return wm, nil
}

// SaveWatermark persists a new watermark. Callers must only advance it
// after the corresponding model artifact has been durably saved.
func (s *Store) SaveWatermark(lastTrainedAt time.Time) error {
	wm := Watermark{LastTrainedAt: lastTrainedAt, UpdatedAt: time.Now()}
	data, err := json.MarshalIndent(wm, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode watermark: %w", err)
	}
	return writeFileAtomic(s.watermarkPath(), data)
}

// Metadata is the observational record of the last training run. It is
// reported by GetModelInfo and never relied on for correctness.
type Metadata struct {
	RunID           string            `json:"run_id"`
	TrainedAt       time.Time         `json:"trained_at"`
	TrainType       string            `json:"train_type"`
	ExamplesCount   int               `json:"examples_count"`
	CategoriesCount int               `json:"categories_count"`
	Params          classifier.Params `json:"params"`
}

// SaveMetadata persists the training metadata record.
func (s *Store) SaveMetadata(meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	return writeFileAtomic(s.metadataPath(), data)
}

// ReadMetadataJSON returns the raw metadata record, or "{}" when no
// training has completed yet.
func (s *Store) ReadMetadataJSON() (string, error) {
	data, err := os.ReadFile(s.metadataPath())
	if errors.Is(err, os.ErrNotExist) {
		return "{}", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read metadata file: %w", err)
	}
	return string(data), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
