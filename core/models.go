package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Defaults applied when an ingest request leaves a field empty.
// They mirror the server-side defaults of the persisted schema.
const (
	DefaultChannel  = "TWM"
	DefaultBuildID  = "build_0"
	DefaultSourceID = "default_source"
	DefaultActor    = "system"
)

// RowID is the storage-assigned identity of a persisted row.
// Chunk rows and tombstone rows each draw from their own sequence.
type RowID uint64

// ChunkIDFor derives the deterministic chunk identifier for a
// (collection, content) pair using a 128-bit BLAKE2b digest.
// Identical pairs always produce identical identifiers; the digest is
// wide enough that practical collisions do not occur. chunk_id is NOT
// a primary key: ingesting the same content twice produces two rows
// sharing one chunk_id.
func ChunkIDFor(collectionID, content string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(collectionID))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// Collection is a named partition of content. All chunks in a
// collection belong to one embedding space and one ownership scope.
type Collection struct {
	CollectionID     string
	CollectionName   string
	Description      string
	EmbeddingModelID string
	// EmbeddingDim is the dimension of the collection's vector space.
	// Zero until the first vector chunk is ingested, after which it is
	// fixed and later ingests must match.
	EmbeddingDim int
	GroupID      string
	Channels     []string
	Metadata     map[string]string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedBy    string
	UpdatedAt    time.Time
}

// Chunk is one unit of ingested text content. The same type backs both
// index records: the lexical row carries a nil Embedding, the vector
// row carries the embedding supplied at ingest. Both rows share the
// deterministic ChunkID.
type Chunk struct {
	RowID        RowID
	CollectionID string
	SourceID     string
	KnowledgeID  string
	ChunkID      string
	Channels     []string
	ActionCode   string
	BuildID      string
	Content      string
	Metadata     map[string]string
	Embedding    []float32 // vector index record only
	// Validity window, date granularity. nil = unbounded.
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedBy     string
	UpdatedAt     time.Time
}

// Tombstone records the logical deletion of a chunk. Tombstones are
// append-only; a second delete of the same chunk adds another row
// without changing visibility.
type Tombstone struct {
	RowID        RowID
	CollectionID string
	ChunkID      string
	DeletedBy    string
	DeletedAt    time.Time
}

// SearchType selects which index (or both) a search runs against.
type SearchType int

const (
	// SearchTypeFulltext scores candidates by lexical similarity.
	SearchTypeFulltext SearchType = iota + 1
	// SearchTypeVector scores candidates by vector similarity.
	SearchTypeVector
	// SearchTypeHybrid scores both index candidate sets independently
	// and merges them by chunk id.
	SearchTypeHybrid
)

// String returns the wire name of the search type.
func (t SearchType) String() string {
	switch t {
	case SearchTypeFulltext:
		return "fulltext"
	case SearchTypeVector:
		return "vector"
	case SearchTypeHybrid:
		return "hybrid"
	}
	return "unknown"
}

// ParseSearchType maps a wire name to a SearchType.
func ParseSearchType(s string) (SearchType, error) {
	switch s {
	case "fulltext":
		return SearchTypeFulltext, nil
	case "vector":
		return SearchTypeVector, nil
	case "hybrid":
		return SearchTypeHybrid, nil
	}
	return 0, ErrUnknownSearchType
}

// SearchQuery is one retrieval request.
type SearchQuery struct {
	QueryText      string
	QueryEmbedding []float32
	CollectionID   string   // optional scope
	Channels       []string // optional filter; empty = no restriction
	Type           SearchType
	Limit          int // 0 = DefaultLimit
}

// Result bounds applied by the retrieval engine.
const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// ScoredResult is one ranked search hit.
type ScoredResult struct {
	ChunkID  string
	Content  string
	Score    float64
	Metadata map[string]string
}
