package ports

import (
	"context"
	"errors"
)

// ErrSequenceNotFound is returned by SequenceStore.Load when the key has no sequences.
var ErrSequenceNotFound = errors.New("sequence not found")

// SequenceStore persists row ID sequences, keyed by a caller chosen name.
// A sequence set maps a CSV file name to the next ID to hand out.
type SequenceStore interface {
	// Load retrieves the sequences saved under key.
	// Returns ErrSequenceNotFound if nothing was saved.
	Load(ctx context.Context, key string) (map[string]int, error)

	// Save replaces the sequences saved under key.
	Save(ctx context.Context, key string, ids map[string]int) error

	// Delete removes the sequences saved under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every key with saved sequences.
	List(ctx context.Context) ([]string, error)
}
