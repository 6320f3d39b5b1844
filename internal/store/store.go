// Package store abstracts the keyed metrics table behind a small contract:
// point reads, partition prefix reads, two score-ordered index reads, and a
// single transactional Commit that applies a list of typed mutation intents
// all-or-nothing. Counter math always happens inside the store, never as
// read-modify-write in application code.
package store

import (
	"context"
	"errors"
	"io"
	"strconv"
)

// ErrNotFound is returned by Get when no item exists at the key.
var ErrNotFound = errors.New("item not found")

// Key addresses one item by partition and sort key.
type Key struct {
	PK string
	SK string
}

// Item is one stored row. Counter attributes are decimal strings.
type Item struct {
	Key   Key
	Attrs map[string]string
}

// Int reads a counter attribute, defaulting to 0 when absent or malformed.
func (it Item) Int(field string) int64 {
	v, ok := it.Attrs[field]
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Str reads a string attribute, empty when absent.
func (it Item) Str(field string) string { return it.Attrs[field] }

// Mutation is one write intent inside a Commit batch.
type Mutation interface{ mutation() }

// Add atomically increments a counter field, creating it at Delta if absent.
type Add struct {
	Key   Key
	Field string
	Delta int64
}

// Set unconditionally writes a string field.
type Set struct {
	Key   Key
	Field string
	Value string
}

// SetIfAbsent writes a string field only when the field does not exist yet.
// Used for first_active_timestamp, which must be set exactly once.
type SetIfAbsent struct {
	Key   Key
	Field string
	Value string
}

// PutIfAbsent inserts an immutable record. When the key already exists the
// intent is a no-op while the rest of the batch still applies, which is the
// required behavior for retried deliveries of the same event.
type PutIfAbsent struct {
	Key   Key
	Value []byte
}

// AddScore increments a member's score on a score-ordered index, creating the
// member at Delta if absent.
type AddScore struct {
	Index  string
	Member string
	Delta  int64
}

func (Add) mutation()         {}
func (Set) mutation()         {}
func (SetIfAbsent) mutation() {}
func (PutIfAbsent) mutation() {}
func (AddScore) mutation()    {}

// ScoreEntry is one row of a descending score-index read.
type ScoreEntry struct {
	Member string
	Score  int64
}

// Store is the keyed metrics table.
type Store interface {
	// Commit applies every mutation in one atomic batch. On error nothing
	// from the batch is observable.
	Commit(ctx context.Context, muts []Mutation) error

	// Get returns the item at key, or ErrNotFound.
	Get(ctx context.Context, key Key) (Item, error)

	// Has reports whether any item (including an immutable record) exists
	// at key.
	Has(ctx context.Context, key Key) (bool, error)

	// QueryPrefix returns all items in the partition whose sort key starts
	// with skPrefix, ordered by sort key.
	QueryPrefix(ctx context.Context, pk, skPrefix string) ([]Item, error)

	// TopScores reads an index in descending score order, truncated to limit.
	TopScores(ctx context.Context, index string, limit int64) ([]ScoreEntry, error)

	// Score returns a member's score on an index, 0 when absent.
	Score(ctx context.Context, index, member string) (int64, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error

	io.Closer
}
