// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"time"
)

// ParseDate parses an ISO calendar date ("2024-01-31") into a UTC
// midnight timestamp. Validity bounds are stored at this granularity.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	return d, nil
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WithinWindow reports whether a validity window covers the given
// moment. Comparison is at date granularity: a chunk effective through
// today is still valid today. nil bounds are unbounded.
func WithinWindow(from, to *time.Time, asOf time.Time) bool {
	day := DateOf(asOf)
	if from != nil && DateOf(*from).After(day) {
		return false
	}
	if to != nil && DateOf(*to).Before(day) {
		return false
	}
	return true
}

// ValidateWindow checks that a validity window is well ordered.
// Either bound may be nil.
func ValidateWindow(from, to *time.Time) error {
	if from != nil && to != nil && DateOf(*from).After(DateOf(*to)) {
		return ErrDateOrder
	}
	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - CollectionID must not be empty
//   - Content must not be empty
//   - ChunkID must not be empty
//   - the validity window must be well ordered
//
// NOT validated:
//   - RowID (0 is valid until storage assigns one)
//   - Embedding (nil for the lexical index record)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if chunk.CollectionID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyCollectionID)
	}
	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}
	if chunk.ChunkID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkID)
	}
	if err := ValidateWindow(chunk.EffectiveFrom, chunk.EffectiveTo); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}
	return nil
}

// ValidateCollection validates a Collection according to domain rules.
func ValidateCollection(col *Collection) error {
	if col == nil {
		return fmt.Errorf("%w: collection is nil", ErrInvalidCollection)
	}
	if col.CollectionID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCollection, ErrEmptyCollectionID)
	}
	if col.CollectionName == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollection)
	}
	if col.EmbeddingModelID == "" {
		return fmt.Errorf("%w: embedding model id cannot be empty", ErrInvalidCollection)
	}
	if col.GroupID == "" {
		return fmt.Errorf("%w: group id cannot be empty", ErrInvalidCollection)
	}
	return nil
}

// ValidateSearchQuery validates a SearchQuery according to domain rules.
//
// Validation rules:
//   - Type must be a known search type
//   - QueryText is required for fulltext and hybrid searches
//   - QueryEmbedding is required for vector and hybrid searches
//   - Limit must not be negative (0 means the engine default)
func ValidateSearchQuery(q *SearchQuery) error {
	if q == nil {
		return fmt.Errorf("%w: query is nil", ErrInvalidQuery)
	}
	switch q.Type {
	case SearchTypeFulltext, SearchTypeVector, SearchTypeHybrid:
	default:
		return fmt.Errorf("%w: %w: %d", ErrInvalidQuery, ErrUnknownSearchType, q.Type)
	}
	if (q.Type == SearchTypeFulltext || q.Type == SearchTypeHybrid) && q.QueryText == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrMissingQueryText)
	}
	if (q.Type == SearchTypeVector || q.Type == SearchTypeHybrid) && len(q.QueryEmbedding) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrMissingQueryEmbedding)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidQuery, ErrLimitOutOfRange, q.Limit)
	}
	return nil
}

// ValidateTombstone validates a delete request.
func ValidateTombstone(collectionID, chunkID, deletedBy string) error {
	if collectionID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTombstone, ErrEmptyCollectionID)
	}
	if chunkID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTombstone, ErrEmptyChunkID)
	}
	if deletedBy == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTombstone, ErrEmptyActor)
	}
	return nil
}
