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

import "errors"

// Domain validation errors. Callers match them with errors.Is; the
// sentinel is the stable machine-readable error kind, the wrapping
// message carries the human-readable detail.
var (
	// ErrInvalidChunk indicates a Chunk or ingest request failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidCollection indicates a Collection failed validation.
	ErrInvalidCollection = errors.New("invalid collection")

	// ErrInvalidQuery indicates a SearchQuery failed validation.
	ErrInvalidQuery = errors.New("invalid search query")

	// ErrInvalidTombstone indicates a delete request failed validation.
	ErrInvalidTombstone = errors.New("invalid tombstone")

	// ErrEmptyCollectionID indicates the CollectionID field is empty.
	ErrEmptyCollectionID = errors.New("collection id cannot be empty")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyChunkID indicates the ChunkID field is empty.
	ErrEmptyChunkID = errors.New("chunk id cannot be empty")

	// ErrEmptyActor indicates the actor of a mutation is empty.
	ErrEmptyActor = errors.New("actor cannot be empty")

	// ErrBadDate indicates a validity bound is not a calendar date.
	ErrBadDate = errors.New("not a calendar date")

	// ErrDateOrder indicates effective_from is after effective_to.
	ErrDateOrder = errors.New("effective_from must not be after effective_to")

	// ErrDimensionMismatch indicates an embedding does not fit the
	// collection's vector space.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnknownSearchType indicates an unrecognized search type value.
	ErrUnknownSearchType = errors.New("unknown search type")

	// ErrMissingQueryText indicates a fulltext or hybrid query without text.
	ErrMissingQueryText = errors.New("query text required")

	// ErrMissingQueryEmbedding indicates a vector or hybrid query without
	// a query embedding.
	ErrMissingQueryEmbedding = errors.New("query embedding required")

	// ErrLimitOutOfRange indicates a non-positive explicit result limit.
	ErrLimitOutOfRange = errors.New("limit must be positive")
)
