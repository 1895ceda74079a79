// Package ingestion provides pipeline orchestration for adding chunks.
//
// The Pipeline type manages the write path for content chunks:
//   - Validating requests and applying server-side defaults
//   - Deriving the deterministic chunk identifier from content
//   - Writing the lexical and vector rows in one transaction
//
// Batches are processed concurrently using a worker pool. A failed
// request fails only its own chunk; the rest of the batch proceeds.
package ingestion
