// Package similarity provides the scoring primitives used by search.
//
// Two function types are exposed: Lexical for text-against-text scoring
// and Vector for embedding-against-embedding scoring. The storage layer
// and retrieval engine consume these as pluggable values; Bigram and
// Cosine are the defaults.
//
// All scores are finite values in [0, 1]. Higher means more similar.
package similarity
