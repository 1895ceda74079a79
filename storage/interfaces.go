package storage

import (
	"context"
	"time"

	"github.com/poiesic/chunkstore/core"
)

// Index names one of the two chunk index families. Every chunk write
// lands in both; reads address one at a time.
type Index int

const (
	// Lexical is the fulltext index family, scored by text similarity.
	Lexical Index = iota + 1
	// Vector is the embedding index family, scored by cosine similarity.
	Vector
)

// String returns the index family name.
func (ix Index) String() string {
	switch ix {
	case Lexical:
		return "lexical"
	case Vector:
		return "vector"
	}
	return "unknown"
}

// ChunkFilter selects candidate chunks for retrieval. Zero values
// impose no restriction.
type ChunkFilter struct {
	// CollectionID scopes the scan to one collection. Empty scans all.
	CollectionID string

	// Channels requires a non-empty intersection with the chunk's
	// channel set. Empty means no channel restriction.
	Channels []string

	// AsOf is the moment validity windows are evaluated against.
	// The zero time means the current time.
	AsOf time.Time

	// Substring is a coarse case-insensitive content pre-filter applied
	// before scoring. Empty means no content restriction.
	Substring string
}

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// CollectionRepository provides operations for managing collections.
type CollectionRepository interface {
	Repository

	// CreateCollection stores a new collection record. The existence
	// check and the write happen in one transaction; returns
	// ErrDuplicateKey if the ID is already taken.
	CreateCollection(ctx context.Context, col *core.Collection) error

	// PutCollection creates or replaces a collection record.
	PutCollection(ctx context.Context, col *core.Collection) error

	// GetCollection retrieves a collection by ID.
	// Returns ErrNotFound if the collection doesn't exist.
	GetCollection(ctx context.Context, collectionID string) (*core.Collection, error)

	// ListCollections retrieves all collections, ordered by ID.
	ListCollections(ctx context.Context) ([]*core.Collection, error)
}

// ChunkRepository provides operations for managing chunk rows across
// both index families.
type ChunkRepository interface {
	Repository

	// AddChunk writes one ingested chunk in a single transaction: the
	// lexical row always (without the embedding), the vector row only
	// when the chunk carries an embedding (nil vector result
	// otherwise). Storage assigns each row its RowID. On the
	// collection's first vector write the embedding dimension is
	// recorded; later writes must match it.
	AddChunk(ctx context.Context, chunk *core.Chunk) (lexical, vector *core.Chunk, err error)

	// FindCandidates scans one index family for chunks passing the
	// filter. Tombstoned chunks and chunks outside their validity
	// window are excluded within the same transaction as the scan, so
	// a deletion is never observed partially.
	FindCandidates(ctx context.Context, ix Index, filter ChunkFilter) ([]*core.Chunk, error)

	// GetByChunkID retrieves all live rows of one index family sharing
	// a chunk ID within a collection. Duplicate ingests mean more than
	// one row can come back.
	GetByChunkID(ctx context.Context, ix Index, collectionID, chunkID string) ([]*core.Chunk, error)

	// CountChunks reports the number of stored rows in one index
	// family, including tombstoned rows.
	CountChunks(ctx context.Context, ix Index) (int, error)
}

// TombstoneRepository provides operations for the append-only
// soft-delete journal.
type TombstoneRepository interface {
	Repository

	// AppendTombstone writes the tombstone to both index families in a
	// single transaction. Appending for an already-tombstoned chunk is
	// permitted and adds journal rows without changing visibility.
	AppendTombstone(ctx context.Context, ts *core.Tombstone) error

	// HasTombstone reports whether any tombstone exists for the chunk
	// in the given index family.
	HasTombstone(ctx context.Context, ix Index, collectionID, chunkID string) (bool, error)

	// ListTombstones retrieves the journal rows of one index family for
	// a collection, in append order.
	ListTombstones(ctx context.Context, ix Index, collectionID string) ([]*core.Tombstone, error)

	// CountTombstones reports the number of journal rows in one index
	// family.
	CountTombstones(ctx context.Context, ix Index) (int, error)
}
