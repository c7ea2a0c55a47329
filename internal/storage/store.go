// Package storage persists the identifiers of items that were already
// published so repeated runs never post the same item twice.
package storage

import (
	"context"
	"errors"
)

// DefaultCap is the number of identifiers kept across runs.
const DefaultCap = 100

var (
	// ErrCorrupt is returned by Load when the backing data cannot be decoded.
	// The returned set is empty and usable.
	ErrCorrupt = errors.New("posted store is corrupt")

	// ErrLocked is returned by Lock when another run holds the store.
	ErrLocked = errors.New("posted store is locked by another run")
)

// Store loads and saves a PostedSet. Load never returns a nil set: on error
// the set is empty and the error only reports a degraded state.
type Store interface {
	Lock(ctx context.Context) error
	Unlock() error
	Load(ctx context.Context) (*PostedSet, error)
	Save(ctx context.Context, set *PostedSet) error
	Close() error
}

// Open returns a Postgres-backed store for the named pipeline when
// databaseURL is set and a JSON file store at filePath otherwise.
func Open(ctx context.Context, databaseURL, filePath, pipeline string, capacity int) (Store, error) {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	if databaseURL != "" {
		return NewPostgresStore(ctx, databaseURL, pipeline, capacity)
	}
	return NewFileStore(filePath, capacity), nil
}
