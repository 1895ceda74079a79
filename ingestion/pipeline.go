package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/chunkstore/core"
	"github.com/poiesic/chunkstore/storage"
)

// Pipeline orchestrates the write path for content chunks. It applies
// server-side defaults, derives chunk identifiers and writes both
// index rows atomically.
type Pipeline struct {
	chunkRepository storage.ChunkRepository
	pool            *ants.Pool
	logger          *slog.Logger
	buildID         string
	maxRetries      int
	retryDelay      time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for batch ingestion.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithBuildID sets the build stamp applied to requests that carry none.
// Default is core.DefaultBuildID.
func WithBuildID(buildID string) Option {
	return func(p *Pipeline) error {
		if buildID != "" {
			p.buildID = buildID
		}
		return nil
	}
}

// WithMaxRetries sets the number of attempts made when a write loses a
// transaction conflict. Default is 3.
func WithMaxRetries(attempts int) Option {
	return func(p *Pipeline) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxRetries = attempts
		return nil
	}
}

// WithRetryDelay sets the base delay for conflict retries.
// Default is 5ms, doubling on each attempt.
func WithRetryDelay(delay time.Duration) Option {
	return func(p *Pipeline) error {
		if delay > 0 {
			p.retryDelay = delay
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(chunkRepository storage.ChunkRepository, opts ...Option) (*Pipeline, error) {
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		chunkRepository: chunkRepository,
		pool:            pool,
		logger:          slog.Default(),
		buildID:         core.DefaultBuildID,
		maxRetries:      3,
		retryDelay:      5 * time.Millisecond,
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Release shuts down the worker pool.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Request is one chunk to ingest. CollectionID and Content are
// required; everything else defaults server-side.
type Request struct {
	CollectionID  string
	Content       string
	Embedding     []float32
	Channels      []string
	Metadata      map[string]string
	SourceID      string
	KnowledgeID   string
	ActionCode    string
	BuildID       string
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
	CreatedBy     string
}

// Receipt reports one successful ingest. VectorRowID is zero when the
// request carried no embedding and only the lexical row was written.
type Receipt struct {
	ChunkID      string
	LexicalRowID core.RowID
	VectorRowID  core.RowID
}

// Ingest validates one request, applies defaults and writes the chunk
// to both index families in a single transaction.
func (p *Pipeline) Ingest(ctx context.Context, req *Request) (*Receipt, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is nil", core.ErrInvalidChunk)
	}

	chunk := p.buildChunk(req)
	if err := core.ValidateChunk(chunk); err != nil {
		return nil, err
	}

	// Concurrent writers can lose an optimistic transaction conflict
	// when they race on the collection row. Those writes are safe to
	// replay.
	var lex, vec *core.Chunk
	err := RetryWithBackoff(ctx, func() error {
		var addErr error
		lex, vec, addErr = p.chunkRepository.AddChunk(ctx, chunk)
		return addErr
	}, func(err error) bool {
		return errors.Is(err, storage.ErrTransactionFailed)
	}, p.maxRetries, p.retryDelay)
	if err != nil {
		p.logger.Error("failed to add chunk",
			"collection", chunk.CollectionID, "chunk", chunk.ChunkID, "err", err)
		return nil, err
	}

	receipt := &Receipt{
		ChunkID:      lex.ChunkID,
		LexicalRowID: lex.RowID,
	}
	if vec != nil {
		receipt.VectorRowID = vec.RowID
	}

	p.logger.Debug("chunk ingested",
		"collection", chunk.CollectionID, "chunk", chunk.ChunkID,
		"lexical_row", receipt.LexicalRowID, "vector_row", receipt.VectorRowID)

	return receipt, nil
}

// IngestBatch ingests requests concurrently over the worker pool.
// Receipts come back in request order; a failed request leaves a nil
// receipt at its position and its error joined into the returned
// error. One bad request does not stop the others.
func (p *Pipeline) IngestBatch(ctx context.Context, reqs []*Request) ([]*Receipt, error) {
	receipts := make([]*Receipt, len(reqs))
	errs := make([]error, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			receipts[i], errs[i] = p.Ingest(ctx, req)
		})
		if submitErr != nil {
			errs[i] = submitErr
			wg.Done()
		}
	}
	wg.Wait()

	return receipts, errors.Join(errs...)
}

// buildChunk maps a request onto a Chunk with defaults applied.
func (p *Pipeline) buildChunk(req *Request) *core.Chunk {
	chunk := &core.Chunk{
		CollectionID:  req.CollectionID,
		SourceID:      req.SourceID,
		KnowledgeID:   req.KnowledgeID,
		ChunkID:       core.ChunkIDFor(req.CollectionID, req.Content),
		Channels:      req.Channels,
		ActionCode:    req.ActionCode,
		BuildID:       req.BuildID,
		Content:       req.Content,
		Metadata:      req.Metadata,
		Embedding:     req.Embedding,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
		CreatedBy:     req.CreatedBy,
	}
	if len(chunk.Channels) == 0 {
		chunk.Channels = []string{core.DefaultChannel}
	}
	if chunk.SourceID == "" {
		chunk.SourceID = core.DefaultSourceID
	}
	if chunk.BuildID == "" {
		chunk.BuildID = p.buildID
	}
	if chunk.CreatedBy == "" {
		chunk.CreatedBy = core.DefaultActor
	}
	chunk.UpdatedBy = chunk.CreatedBy
	return chunk
}
