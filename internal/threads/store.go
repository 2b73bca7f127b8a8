// Package threads provides conversation thread persistence.
// Handler and agent code depend on the Store interface, making it easy
// to swap between in-memory (local dev, tests) and PostgreSQL
// (production) implementations.
package threads

import (
	"context"

	"github.com/bottegalabs/bottega/pkg/models"
)

// Store persists conversation threads across requests.
type Store interface {
	// Get returns the thread with the given id.
	Get(ctx context.Context, id string) (*models.Thread, error)

	// Create persists a new thread.
	Create(ctx context.Context, thread *models.Thread) error

	// Update replaces the stored state of an existing thread.
	Update(ctx context.Context, thread *models.Thread) error

	// Delete removes a thread.
	Delete(ctx context.Context, id string) error

	// List returns thread ids, newest first, up to limit.
	List(ctx context.Context, limit int) ([]string, error)

	// Ping checks if the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// ErrNotFound is returned when a requested thread does not exist.
type ErrNotFound struct {
	ID string
}

func (e *ErrNotFound) Error() string {
	return "thread not found: " + e.ID
}
