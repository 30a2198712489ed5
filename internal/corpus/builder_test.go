package corpus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"categorizer/internal/models"
)

func TestBuildFull(t *testing.T) {
	categories := []models.Category{
		{ID: "food", Examples: []string{"Coffee 250₽", "lunch at cafe"}},
		{ID: "transport", Examples: []string{"taxi", "123", "bus ticket"}},
	}

	text, count := BuildFull(categories)

	assert.Equal(t, 4, count, "the all-digits example must be skipped")
	assert.Equal(t,
		"__label__food coffee\n"+
			"__label__food lunch at cafe\n"+
			"__label__transport taxi\n"+
			"__label__transport bus ticket",
		text)
}

func TestBuildFullEmpty(t *testing.T) {
	text, count := BuildFull(nil)
	assert.Zero(t, count)
	assert.Empty(t, text)

	text, count = BuildFull([]models.Category{{ID: "food", Examples: []string{"!!!", "42"}}})
	assert.Zero(t, count)
	assert.Empty(t, text)
}

func TestBuildIncrement(t *testing.T) {
	now := time.Now()
	examples := []models.Example{
		{CategoryID: "food", Text: "Groceries 900₽", CreatedAt: now},
		{CategoryID: "transport", Text: "...", CreatedAt: now},
		{CategoryID: "transport", Text: "metro pass", CreatedAt: now},
	}

	text, count := BuildIncrement(examples)

	assert.Equal(t, 2, count)
	assert.Equal(t, "__label__food groceries\n__label__transport metro pass", text)
}

func TestMerge(t *testing.T) {
	assert.Equal(t, "a\nb", Merge("a", "b"))
	assert.Equal(t, "a", Merge("a", ""))
	assert.Equal(t, "b", Merge("", "b"))
	assert.Equal(t, "", Merge("", ""))
}

// Merging an increment onto an existing corpus must be byte-identical
// to building the full corpus over the union, as long as ordering is
// preserved.
func TestMergeMatchesFullBuild(t *testing.T) {
	old := []models.Category{
		{ID: "food", Examples: []string{"coffee", "lunch"}},
	}
	newExamples := []models.Example{
		{CategoryID: "food", Text: "groceries"},
		{CategoryID: "food", Text: "dinner out"},
	}
	union := []models.Category{
		{ID: "food", Examples: []string{"coffee", "lunch", "groceries", "dinner out"}},
	}

	oldText, _ := BuildFull(old)
	incText, _ := BuildIncrement(newExamples)
	wantText, _ := BuildFull(union)

	assert.Equal(t, wantText, Merge(oldText, incText))
}
