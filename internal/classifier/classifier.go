// Package classifier implements the supervised text classifier behind
// the categorizer: averaged bag-of-ngram embeddings with a softmax
// output layer, trained by SGD with a linearly decayed learning rate.
// The model is an opaque artifact to the rest of the service; it is
// trained from a corpus, queried for ranked labels, and persisted to a
// single file.
package classifier

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const labelPrefix = "__label__"

// trainSeed makes repeated training runs over identical corpora
// produce identical artifacts, which keeps no-op retrains detectable
// by artifact checksum.
const trainSeed = 42

// Params are the training hyperparameters. The defaults below are a
// compatibility contract with the prediction consumers; expose them in
// configuration if needed but do not change the default values.
type Params struct {
	LR         float64 `json:"lr"`
	Epochs     int     `json:"epoch"`
	Dim        int     `json:"dim"`
	WordNGrams int     `json:"wordNgrams"`
	Buckets    int     `json:"buckets"`
}

// FullParams is the profile for training from scratch: a high epoch
// count buys accuracy at startup cost.
func FullParams() Params {
	return Params{LR: 0.5, Epochs: 100, Dim: 100, WordNGrams: 2, Buckets: 1 << 15}
}

// IncrementalParams is the profile for retraining on a merged corpus:
// far fewer epochs, cheaper per call, cumulative over repeated
// increments. A deliberate accuracy/latency trade-off.
func IncrementalParams() Params {
	p := FullParams()
	p.Epochs = 5
	return p
}

// Prediction is one ranked label candidate.
type Prediction struct {
	Label      string
	Confidence float64
}

// Model is a trained classifier. Immutable after Train or Load; safe
// for concurrent Predict calls.
type Model struct {
	params Params
	labels []string
	input  []float32 // buckets x dim embedding table
	output []float32 // labels x dim softmax layer
}

type sample struct {
	label    int
	features []uint32
}

// Train builds a fresh model from corpus text, one
// "__label__<label> <text>" entry per line. Blank lines are ignored.
// Returns an error when the corpus contains no usable lines.
func Train(corpusText string, params Params) (*Model, error) {
	labels, samples, err := parseCorpus(corpusText, params)
	if err != nil {
		return nil, err
	}

	m := &Model{
		params: params,
		labels: labels,
		input:  make([]float32, params.Buckets*params.Dim),
		output: make([]float32, len(labels)*params.Dim),
	}

	rng := rand.New(rand.NewSource(trainSeed))
	bound := 1.0 / float64(params.Dim)
	for i := range m.input {
		m.input[i] = float32((rng.Float64()*2 - 1) * bound)
	}

	dim := params.Dim
	hidden := make([]float32, dim)
	grad := make([]float32, dim)
	scores := make([]float64, len(labels))
	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}

	total := params.Epochs * len(samples)
	seen := 0
	for epoch := 0; epoch < params.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, idx := range order {
			s := samples[idx]
			lr := float32(params.LR * (1.0 - float64(seen)/float64(total)))
			seen++
			if len(s.features) == 0 {
				continue
			}

			m.averageFeatures(s.features, hidden)
			m.softmax(hidden, scores)

			for i := range grad {
				grad[i] = 0
			}
			for j := range labels {
				target := float32(0)
				if j == s.label {
					target = 1
				}
				g := lr * (float32(scores[j]) - target)
				row := m.output[j*dim : (j+1)*dim]
				for i := 0; i < dim; i++ {
					grad[i] += g * row[i]
					row[i] -= g * hidden[i]
				}
			}

			scale := 1 / float32(len(s.features))
			for _, f := range s.features {
				row := m.input[int(f)*dim : (int(f)+1)*dim]
				for i := 0; i < dim; i++ {
					row[i] -= grad[i] * scale
				}
			}
		}
	}

	return m, nil
}

// Predict returns the top-k labels for a normalized text, ranked by
// descending confidence. Confidences are softmax probabilities and sum
// to at most 1 across all labels.
func (m *Model) Predict(normalizedText string, k int) []Prediction {
	features := featurize(normalizedText, m.params)
	if len(features) == 0 {
		return nil
	}

	hidden := make([]float32, m.params.Dim)
	scores := make([]float64, len(m.labels))
	m.averageFeatures(features, hidden)
	m.softmax(hidden, scores)

	preds := make([]Prediction, len(m.labels))
	for i, label := range m.labels {
		preds[i] = Prediction{Label: label, Confidence: scores[i]}
	}
	sort.SliceStable(preds, func(i, j int) bool { return preds[i].Confidence > preds[j].Confidence })
	if k < len(preds) {
		preds = preds[:k]
	}
	return preds
}

// Labels returns the label set the model was trained on.
func (m *Model) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

func (m *Model) averageFeatures(features []uint32, hidden []float32) {
	dim := m.params.Dim
	for i := range hidden {
		hidden[i] = 0
	}
	for _, f := range features {
		row := m.input[int(f)*dim : (int(f)+1)*dim]
		for i := 0; i < dim; i++ {
			hidden[i] += row[i]
		}
	}
	scale := 1 / float32(len(features))
	for i := range hidden {
		hidden[i] *= scale
	}
}

func (m *Model) softmax(hidden []float32, scores []float64) {
	dim := m.params.Dim
	maxScore := math.Inf(-1)
	for j := range m.labels {
		row := m.output[j*dim : (j+1)*dim]
		var dot float64
		for i := 0; i < dim; i++ {
			dot += float64(row[i] * hidden[i])
		}
		scores[j] = dot
		if dot > maxScore {
			maxScore = dot
		}
	}
	var sum float64
	for j := range scores {
		scores[j] = math.Exp(scores[j] - maxScore)
		sum += scores[j]
	}
	for j := range scores {
		scores[j] /= sum
	}
}

func parseCorpus(corpusText string, params Params) ([]string, []sample, error) {
	var labels []string
	labelIndex := make(map[string]int)
	var samples []sample

	for _, line := range strings.Split(corpusText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, labelPrefix) {
			return nil, nil, fmt.Errorf("malformed corpus line %q", line)
		}
		rest := line[len(labelPrefix):]
		space := strings.IndexByte(rest, ' ')
		if space <= 0 {
			return nil, nil, fmt.Errorf("malformed corpus line %q", line)
		}
		label, text := rest[:space], rest[space+1:]

		idx, ok := labelIndex[label]
		if !ok {
			idx = len(labels)
			labelIndex[label] = idx
			labels = append(labels, label)
		}
		samples = append(samples, sample{label: idx, features: featurize(text, params)})
	}

	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("corpus contains no training lines")
	}
	return labels, samples, nil
}

// featurize hashes word n-grams (n = 1..WordNGrams) into the bucket
// space shared by the embedding table.
func featurize(text string, params Params) []uint32 {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	var features []uint32
	for n := 1; n <= params.WordNGrams; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			h := fnv.New32a()
			for j := i; j < i+n; j++ {
				h.Write([]byte(tokens[j]))
				h.Write([]byte{0x1f})
			}
			features = append(features, h.Sum32()%uint32(params.Buckets))
		}
	}
	return features
}

type modelFile struct {
	Params Params
	Labels []string
	Input  []float32
	Output []float32
}

// Save persists the model artifact via a temp file and an atomic
// rename, so an interrupted save never leaves a truncated artifact at
// the canonical path.
func (m *Model) Save(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(modelFile{
		Params: m.params,
		Labels: m.labels,
		Input:  m.input,
		Output: m.output,
	}); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close model file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace model file: %w", err)
	}
	return nil
}

// Load reads a previously saved model artifact.
func Load(path string) (*Model, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()

	var mf modelFile
	if err := gob.NewDecoder(f).Decode(&mf); err != nil {
		return nil, fmt.Errorf("failed to decode model file: %w", err)
	}
	return &Model{
		params: mf.Params,
		labels: mf.Labels,
		input:  mf.Input,
		output: mf.Output,
	}, nil
}
