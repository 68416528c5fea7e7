package stores

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("item not found")

// Item is one row of the items table.
type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Item operations
	InsertItem(ctx context.Context, name, description string) (int64, error)
	GetItem(ctx context.Context, id int64) (*Item, error)
	ListItems(ctx context.Context) ([]*Item, error)
	UpdateItem(ctx context.Context, id int64, name, description string) (int64, error)
	DeleteItem(ctx context.Context, id int64) (int64, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
