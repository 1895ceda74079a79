package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/chunkstore/core"
	"github.com/poiesic/chunkstore/similarity"
	"github.com/poiesic/chunkstore/storage"
)

// Default hybrid merge weights. Chunks scored by both indexes merge as
// lexWeight*lexical + vecWeight*vector; chunks scored by only one
// index keep that score unweighted.
const (
	DefaultLexicalWeight = 0.5
	DefaultVectorWeight  = 0.5
)

// Searcher provides lexical, vector and hybrid retrieval over chunks.
type Searcher struct {
	chunkRepository      storage.ChunkRepository
	collectionRepository storage.CollectionRepository
	lexical              similarity.Lexical
	vector               similarity.Vector
	lexWeight            float64
	vecWeight            float64
	clock                func() time.Time
	logger               *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithHybridWeights sets the lexical and vector merge weights.
// Defaults are DefaultLexicalWeight and DefaultVectorWeight.
func WithHybridWeights(lexical, vector float64) Option {
	return func(s *Searcher) error {
		if lexical < 0 || vector < 0 || lexical+vector == 0 {
			return fmt.Errorf("%w: %f/%f", ErrBadWeights, lexical, vector)
		}
		s.lexWeight = lexical
		s.vecWeight = vector
		return nil
	}
}

// WithSimilarity sets the scoring functions.
// Defaults are similarity.Bigram and similarity.Cosine.
func WithSimilarity(lexical similarity.Lexical, vector similarity.Vector) Option {
	return func(s *Searcher) error {
		if lexical == nil || vector == nil {
			return ErrSimilarityRequired
		}
		s.lexical = lexical
		s.vector = vector
		return nil
	}
}

// WithClock sets the time source used to evaluate validity windows.
// Default is time.Now. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Searcher) error {
		if clock != nil {
			s.clock = clock
		}
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	chunkRepository storage.ChunkRepository,
	collectionRepository storage.CollectionRepository,
	opts ...Option,
) (*Searcher, error) {
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if collectionRepository == nil {
		return nil, ErrCollectionRepositoryRequired
	}

	s := &Searcher{
		chunkRepository:      chunkRepository,
		collectionRepository: collectionRepository,
		lexical:              similarity.Bigram,
		vector:               similarity.Cosine,
		lexWeight:            DefaultLexicalWeight,
		vecWeight:            DefaultVectorWeight,
		clock:                time.Now,
		logger:               slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs one retrieval request and returns a ranked result set.
// Returns up to the query limit (default core.DefaultLimit, capped at
// core.MaxLimit) results ordered by score descending, chunk ID
// ascending.
func (s *Searcher) Search(ctx context.Context, query *core.SearchQuery) ([]*core.ScoredResult, error) {
	return s.SearchWithMonitor(ctx, query, nil)
}

// SearchWithMonitor runs one retrieval request with monitoring.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query *core.SearchQuery, monitor SearchMonitor) ([]*core.ScoredResult, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	if err := core.ValidateSearchQuery(query); err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit == 0 {
		limit = core.DefaultLimit
	}
	if limit > core.MaxLimit {
		limit = core.MaxLimit
	}

	if err := s.checkEmbeddingSpace(ctx, query); err != nil {
		return nil, err
	}

	asOf := s.clock().UTC()

	var lexHits, vecHits map[string]*scoredChunk
	var err error

	if query.Type == core.SearchTypeFulltext || query.Type == core.SearchTypeHybrid {
		lexHits, err = s.lexicalHits(ctx, query, asOf, monitor)
		if err != nil {
			s.logger.Error("lexical scan failed", "err", err)
			return nil, err
		}
	}
	if query.Type == core.SearchTypeVector || query.Type == core.SearchTypeHybrid {
		vecHits, err = s.vectorHits(ctx, query, asOf, monitor)
		if err != nil {
			s.logger.Error("vector scan failed", "err", err)
			return nil, err
		}
	}

	results := s.merge(query.Type, lexHits, vecHits, monitor)

	// Rank by score descending; chunk ID ascending breaks ties so the
	// ordering is deterministic across runs.
	slices.SortFunc(results, func(a, b *core.ScoredResult) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ChunkID, b.ChunkID)
	})

	if len(results) > limit {
		results = results[:limit]
	}

	monitor.Finish(results)
	return results, nil
}

// scoredChunk is one chunk's best score within a single index family.
type scoredChunk struct {
	chunk *core.Chunk
	score float64
}

// lexicalHits scans the fulltext index and scores candidates by text
// similarity. The query text doubles as the coarse substring
// pre-filter, so scoring only touches rows that contain it.
func (s *Searcher) lexicalHits(ctx context.Context, query *core.SearchQuery, asOf time.Time, monitor SearchMonitor) (map[string]*scoredChunk, error) {
	candidates, err := s.chunkRepository.FindCandidates(ctx, storage.Lexical, storage.ChunkFilter{
		CollectionID: query.CollectionID,
		Channels:     query.Channels,
		AsOf:         asOf,
		Substring:    query.QueryText,
	})
	if err != nil {
		return nil, err
	}
	monitor.AfterLexicalScan(candidates)

	hits := make(map[string]*scoredChunk)
	for _, chunk := range candidates {
		score := s.lexical(query.QueryText, chunk.Content)
		monitor.LexicalHit(chunk.ChunkID, score)
		record(hits, chunk, score)
	}
	return hits, nil
}

// vectorHits scans the vector index and scores candidates by cosine
// similarity against the query embedding.
func (s *Searcher) vectorHits(ctx context.Context, query *core.SearchQuery, asOf time.Time, monitor SearchMonitor) (map[string]*scoredChunk, error) {
	candidates, err := s.chunkRepository.FindCandidates(ctx, storage.Vector, storage.ChunkFilter{
		CollectionID: query.CollectionID,
		Channels:     query.Channels,
		AsOf:         asOf,
	})
	if err != nil {
		return nil, err
	}
	monitor.AfterVectorScan(candidates)

	hits := make(map[string]*scoredChunk)
	for _, chunk := range candidates {
		score := s.vector(query.QueryEmbedding, chunk.Embedding)
		monitor.VectorHit(chunk.ChunkID, score)
		record(hits, chunk, score)
	}
	return hits, nil
}

// record keeps the best-scoring row per chunk ID. Duplicate ingests
// produce several rows sharing one chunk ID; the result set carries
// each chunk ID once.
func record(hits map[string]*scoredChunk, chunk *core.Chunk, score float64) {
	if prev, ok := hits[chunk.ChunkID]; ok && prev.score >= score {
		return
	}
	hits[chunk.ChunkID] = &scoredChunk{chunk: chunk, score: score}
}

// merge combines the per-index hit sets into one result list.
func (s *Searcher) merge(searchType core.SearchType, lexHits, vecHits map[string]*scoredChunk, monitor SearchMonitor) []*core.ScoredResult {
	switch searchType {
	case core.SearchTypeFulltext:
		return resultsOf(lexHits)
	case core.SearchTypeVector:
		return resultsOf(vecHits)
	}

	results := make([]*core.ScoredResult, 0, len(lexHits)+len(vecHits))
	for chunkID, lex := range lexHits {
		vec, ok := vecHits[chunkID]
		if !ok {
			// Lexical-only hit keeps its score.
			results = append(results, toResult(lex))
			continue
		}
		merged := s.lexWeight*lex.score + s.vecWeight*vec.score
		monitor.HybridMerge(chunkID, lex.score, vec.score, merged)
		results = append(results, &core.ScoredResult{
			ChunkID:  chunkID,
			Content:  lex.chunk.Content,
			Score:    merged,
			Metadata: lex.chunk.Metadata,
		})
	}
	for chunkID, vec := range vecHits {
		if _, ok := lexHits[chunkID]; ok {
			continue
		}
		// Vector-only hit keeps its score.
		results = append(results, toResult(vec))
	}
	return results
}

func resultsOf(hits map[string]*scoredChunk) []*core.ScoredResult {
	results := make([]*core.ScoredResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, toResult(hit))
	}
	return results
}

func toResult(hit *scoredChunk) *core.ScoredResult {
	return &core.ScoredResult{
		ChunkID:  hit.chunk.ChunkID,
		Content:  hit.chunk.Content,
		Score:    hit.score,
		Metadata: hit.chunk.Metadata,
	}
}

// checkEmbeddingSpace rejects vector queries whose embedding does not
// fit the scoped collection's dimension. Unscoped queries and scopes
// with no collection row skip the check; rows from foreign spaces
// simply score 0. Orphaned chunks stay retrievable.
func (s *Searcher) checkEmbeddingSpace(ctx context.Context, query *core.SearchQuery) error {
	if query.CollectionID == "" || len(query.QueryEmbedding) == 0 {
		return nil
	}
	col, err := s.collectionRepository.GetCollection(ctx, query.CollectionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if col.EmbeddingDim != 0 && col.EmbeddingDim != len(query.QueryEmbedding) {
		return fmt.Errorf("%w: %w: collection %s expects %d, got %d",
			core.ErrInvalidQuery, core.ErrDimensionMismatch,
			col.CollectionID, col.EmbeddingDim, len(query.QueryEmbedding))
	}
	return nil
}
