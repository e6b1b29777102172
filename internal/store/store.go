// Package store persists generated trigger expressions per host and item.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("trigger expression not found")

// Record is one stored trigger expression.
type Record struct {
	ID         int64  `json:"id"`
	Host       string `json:"host"`
	Key        string `json:"key"`
	Expression string `json:"expression"`
	// Where the expression came from: "api", "cli" or "rule:<name>".
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Store saves expressions. Saving the same host, key and expression again
// keeps the original record and returns its id.
type Store interface {
	Save(ctx context.Context, rec Record) (int64, error)
	Get(ctx context.Context, id int64) (Record, error)
	// List returns up to limit records, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Record, error)
}
