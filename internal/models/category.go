package models

import "time"

// Category is a read-only snapshot of an expense category row. The
// categories table is owned by the main application; this service only
// reads it.
type Category struct {
	ID       string   `db:"id" json:"id"`
	Name     string   `db:"name" json:"name"`
	Icon     string   `db:"icon" json:"icon"`
	Color    string   `db:"color" json:"color"`
	Examples []string `json:"examples,omitempty"`
}

// Example is a single labeled training text. Examples are immutable
// once created; the service consumes them but never mutates them.
type Example struct {
	CategoryID string    `db:"category_id" json:"category_id"`
	Text       string    `db:"text" json:"text"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
