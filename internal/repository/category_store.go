package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"categorizer/internal/models"
)

// CategoryStore reads labeled training data from the external store.
// The store is owned by the main application; this service never
// mutates it.
type CategoryStore interface {
	FetchAllCategories(ctx context.Context) ([]models.Category, error)
	FetchExamplesSince(ctx context.Context, since time.Time) ([]models.Example, error)
	CountExamplesSince(ctx context.Context, since time.Time) (int, error)
}

type categoryStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewCategoryStore creates a PostgreSQL-backed category store.
func NewCategoryStore(db *sqlx.DB, logger *zap.Logger) CategoryStore {
	return &categoryStore{db: db, logger: logger}
}

// FetchAllCategories returns every category with its nested example
// texts.
func (s *categoryStore) FetchAllCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories, `
		SELECT id, name, icon, color
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}

	for i := range categories {
		err := s.db.SelectContext(ctx, &categories[i].Examples, `
			SELECT text FROM examples
			WHERE category_id = $1
			ORDER BY created_at
		`, categories[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch examples for category %s: %w", categories[i].ID, err)
		}
	}
	return categories, nil
}

// FetchExamplesSince returns examples created strictly after the given
// timestamp, in creation order.
func (s *categoryStore) FetchExamplesSince(ctx context.Context, since time.Time) ([]models.Example, error) {
	var examples []models.Example
	err := s.db.SelectContext(ctx, &examples, `
		SELECT category_id, text, created_at
		FROM examples
		WHERE created_at > $1
		ORDER BY created_at
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch new examples: %w", err)
	}
	return examples, nil
}

// CountExamplesSince returns how many examples were created strictly
// after the given timestamp.
func (s *categoryStore) CountExamplesSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM examples WHERE created_at > $1
	`, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count new examples: %w", err)
	}
	return count, nil
}
