package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/chunkstore/core"
	"github.com/poiesic/chunkstore/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
	lexSeq  *badger.Sequence
	vecSeq  *badger.Sequence
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	lexSeq, err := backend.GetSequence(lexChunkSeq)
	if err != nil {
		return nil, err
	}
	vecSeq, err := backend.GetSequence(vecChunkSeq)
	if err != nil {
		lexSeq.Release()
		return nil, err
	}

	return &ChunkRepository{
		backend: backend,
		lexSeq:  lexSeq,
		vecSeq:  vecSeq,
	}, nil
}

// Close releases the row ID sequences.
func (r *ChunkRepository) Close() error {
	return errors.Join(r.lexSeq.Release(), r.vecSeq.Release())
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddChunk writes one ingested chunk in a single transaction: the
// lexical row always, the vector row only when the chunk carries an
// embedding. Either all rows become visible or none do. The vector
// result is nil for embedding-less chunks.
func (r *ChunkRepository) AddChunk(ctx context.Context, chunk *core.Chunk) (lexical, vector *core.Chunk, err error) {
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		col, err := readCollection(tx, chunk.CollectionID)
		if err != nil {
			return err
		}

		// The first vector write fixes the collection's embedding
		// dimension; later writes must match it.
		if len(chunk.Embedding) > 0 {
			if col.EmbeddingDim == 0 {
				col.EmbeddingDim = len(chunk.Embedding)
				key := makeCollectionKey(col.CollectionID)
				if err := tx.Set(key, storage.MarshalCollection(col)); err != nil {
					return err
				}
			} else if col.EmbeddingDim != len(chunk.Embedding) {
				return fmt.Errorf("%w: collection %s expects %d, got %d",
					core.ErrDimensionMismatch, col.CollectionID, col.EmbeddingDim, len(chunk.Embedding))
			}
		}

		now := time.Now().UTC()
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}
		chunk.UpdatedAt = chunk.CreatedAt

		lexRow := *chunk
		lexRow.Embedding = nil

		if lexical, err = r.writeRow(tx, families[storage.Lexical], r.lexSeq, &lexRow); err != nil {
			return err
		}
		if len(chunk.Embedding) > 0 {
			vecRow := *chunk
			if vector, err = r.writeRow(tx, families[storage.Vector], r.vecSeq, &vecRow); err != nil {
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			// Concurrent writers racing on the collection row surface
			// here. Callers can retry on ErrTransactionFailed.
			if errors.Is(err, badger.ErrConflict) {
				return fmt.Errorf("%w: %v", storage.ErrTransactionFailed, err)
			}
			return err
		}
		return nil
	}, true)

	if err != nil {
		return nil, nil, err
	}
	return lexical, vector, nil
}

// writeRow stores one chunk row and its collection index entry.
func (r *ChunkRepository) writeRow(tx *badger.Txn, fam family, seq *badger.Sequence, row *core.Chunk) (*core.Chunk, error) {
	nextID, err := seq.Next()
	if err != nil {
		return nil, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if nextID == 0 {
		nextID, err = seq.Next()
		if err != nil {
			return nil, err
		}
	}
	row.RowID = core.RowID(nextID)

	if err := tx.Set(makeChunkKey(fam, row.RowID), storage.MarshalChunk(row)); err != nil {
		return nil, err
	}
	colKey := makeChunkColKey(fam, row.CollectionID, row.RowID)
	if err := tx.Set(colKey, storage.MarshalRowID(row.RowID)); err != nil {
		return nil, err
	}
	return row, nil
}

// FindCandidates scans one index family for chunks passing the filter.
// Tombstone and validity checks happen inside the scan transaction, so
// a concurrent deletion is observed either fully or not at all.
func (r *ChunkRepository) FindCandidates(ctx context.Context, ix storage.Index, filter storage.ChunkFilter) ([]*core.Chunk, error) {
	fam, err := familyFor(ix)
	if err != nil {
		return nil, err
	}

	asOf := filter.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	substring := strings.ToLower(filter.Substring)

	var results []*core.Chunk
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		keep := func(chunk *core.Chunk) (bool, error) {
			if filter.CollectionID != "" && chunk.CollectionID != filter.CollectionID {
				return false, nil
			}
			if !channelsOverlap(filter.Channels, chunk.Channels) {
				return false, nil
			}
			if !core.WithinWindow(chunk.EffectiveFrom, chunk.EffectiveTo, asOf) {
				return false, nil
			}
			if substring != "" && !strings.Contains(strings.ToLower(chunk.Content), substring) {
				return false, nil
			}
			dead, err := hasMarker(tx, fam, chunk.CollectionID, chunk.ChunkID)
			if err != nil {
				return false, err
			}
			return !dead, nil
		}

		collect := func(chunk *core.Chunk) error {
			ok, err := keep(chunk)
			if err != nil {
				return err
			}
			if ok {
				results = append(results, chunk)
			}
			return nil
		}

		if filter.CollectionID != "" {
			return r.scanCollection(ctx, tx, fam, filter.CollectionID, collect)
		}
		return r.scanAll(ctx, tx, fam, collect)
	}, false)

	if err != nil {
		return nil, err
	}
	return results, nil
}

// scanCollection walks one collection's rows via the collection index.
func (r *ChunkRepository) scanCollection(ctx context.Context, tx *badger.Txn, fam family, collectionID string, fn func(*core.Chunk) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeChunkColPrefix(fam, collectionID)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var rowID core.RowID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			rowID, err = storage.UnmarshalRowID(val)
			return err
		}); err != nil {
			return err
		}

		chunk, err := readChunk(tx, fam, rowID)
		if err != nil {
			return err
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

// scanAll walks every row of one index family.
func (r *ChunkRepository) scanAll(ctx context.Context, tx *badger.Txn, fam family, fn func(*core.Chunk) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(fam.chunkPrefix + ":")
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var chunk *core.Chunk
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			chunk, err = storage.UnmarshalChunk(val)
			return err
		}); err != nil {
			return err
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

// GetByChunkID retrieves all live rows of one index family sharing a
// chunk ID within a collection.
func (r *ChunkRepository) GetByChunkID(ctx context.Context, ix storage.Index, collectionID, chunkID string) ([]*core.Chunk, error) {
	fam, err := familyFor(ix)
	if err != nil {
		return nil, err
	}

	var results []*core.Chunk
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		dead, err := hasMarker(tx, fam, collectionID, chunkID)
		if err != nil {
			return err
		}
		if dead {
			return nil
		}
		return r.scanCollection(ctx, tx, fam, collectionID, func(chunk *core.Chunk) error {
			if chunk.ChunkID == chunkID {
				results = append(results, chunk)
			}
			return nil
		})
	}, false)

	if err != nil {
		return nil, err
	}
	return results, nil
}

// CountChunks reports the number of stored rows in one index family,
// including tombstoned rows.
func (r *ChunkRepository) CountChunks(ctx context.Context, ix storage.Index) (int, error) {
	fam, err := familyFor(ix)
	if err != nil {
		return 0, err
	}

	var count int
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(fam.chunkPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// readChunk loads one chunk row by its primary key.
func readChunk(tx *badger.Txn, fam family, id core.RowID) (*core.Chunk, error) {
	item, err := tx.Get(makeChunkKey(fam, id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// channelsOverlap reports whether the requested channel set intersects
// the chunk's. An empty request imposes no restriction.
func channelsOverlap(requested, available []string) bool {
	if len(requested) == 0 {
		return true
	}
	for _, want := range requested {
		for _, have := range available {
			if want == have {
				return true
			}
		}
	}
	return false
}
