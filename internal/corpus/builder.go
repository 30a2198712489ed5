// Package corpus converts labeled examples into the line-oriented
// training file format consumed by the classifier: one
// "__label__<categoryID> <normalized text>" line per usable example.
package corpus

import (
	"strings"

	"categorizer/internal/models"
	"categorizer/internal/normalizer"
)

const labelPrefix = "__label__"

// Line formats a single training line. The text is expected to be
// normalized already.
func Line(categoryID, normalizedText string) string {
	return labelPrefix + categoryID + " " + normalizedText
}

// BuildFull renders the whole training corpus from category snapshots.
// Examples that normalize to nothing are skipped. Returns the corpus
// text and the number of lines emitted.
func BuildFull(categories []models.Category) (string, int) {
	var lines []string
	for _, cat := range categories {
		for _, example := range cat.Examples {
			clean := normalizer.Normalize(example)
			if clean == "" {
				continue
			}
			lines = append(lines, Line(cat.ID, clean))
		}
	}
	return strings.Join(lines, "\n"), len(lines)
}

// BuildIncrement renders corpus lines for newly arrived examples only.
func BuildIncrement(examples []models.Example) (string, int) {
	var lines []string
	for _, ex := range examples {
		clean := normalizer.Normalize(ex.Text)
		if clean == "" {
			continue
		}
		lines = append(lines, Line(ex.CategoryID, clean))
	}
	return strings.Join(lines, "\n"), len(lines)
}

// Merge concatenates an existing corpus with an increment, inserting
// exactly one separating newline when both sides are non-empty. The
// result only becomes the canonical corpus after a training run
// succeeds against it.
func Merge(oldCorpus, increment string) string {
	if oldCorpus == "" {
		return increment
	}
	if increment == "" {
		return oldCorpus
	}
	return oldCorpus + "\n" + increment
}
