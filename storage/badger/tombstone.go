package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/chunkstore/core"
	"github.com/poiesic/chunkstore/storage"
)

// TombstoneRepository implements storage.TombstoneRepository for BadgerDB.
// Tombstones are append-only: journal rows accumulate and a marker key
// per (collection, chunk) hides the chunk from retrieval.
type TombstoneRepository struct {
	backend *Backend
	lexSeq  *badger.Sequence
	vecSeq  *badger.Sequence
}

var _ storage.TombstoneRepository = (*TombstoneRepository)(nil)

// NewTombstoneRepository creates a new TombstoneRepository.
func NewTombstoneRepository(backend *Backend) (*TombstoneRepository, error) {
	lexSeq, err := backend.GetSequence(lexTombstoneSeq)
	if err != nil {
		return nil, err
	}
	vecSeq, err := backend.GetSequence(vecTombstoneSeq)
	if err != nil {
		lexSeq.Release()
		return nil, err
	}

	return &TombstoneRepository{
		backend: backend,
		lexSeq:  lexSeq,
		vecSeq:  vecSeq,
	}, nil
}

// Close releases the journal sequences.
func (r *TombstoneRepository) Close() error {
	return errors.Join(r.lexSeq.Release(), r.vecSeq.Release())
}

// WithTransaction delegates to the backend.
func (r *TombstoneRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AppendTombstone writes the tombstone to both index families in a
// single transaction. Repeated deletes of the same chunk append more
// journal rows without changing visibility.
func (r *TombstoneRepository) AppendTombstone(ctx context.Context, ts *core.Tombstone) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if ts.DeletedAt.IsZero() {
			ts.DeletedAt = time.Now().UTC()
		}

		if err := r.appendRow(tx, families[storage.Lexical], r.lexSeq, ts); err != nil {
			return err
		}
		if err := r.appendRow(tx, families[storage.Vector], r.vecSeq, ts); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// appendRow stores one journal row and sets the marker key of its
// family.
func (r *TombstoneRepository) appendRow(tx *badger.Txn, fam family, seq *badger.Sequence, ts *core.Tombstone) error {
	nextID, err := seq.Next()
	if err != nil {
		return err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if nextID == 0 {
		nextID, err = seq.Next()
		if err != nil {
			return err
		}
	}

	row := *ts
	row.RowID = core.RowID(nextID)

	if err := tx.Set(makeJournalKey(fam, row.RowID), storage.MarshalTombstone(&row)); err != nil {
		return err
	}
	marker := makeMarkerKey(fam, row.CollectionID, row.ChunkID)
	return tx.Set(marker, storage.MarshalRowID(row.RowID))
}

// HasTombstone reports whether any tombstone exists for the chunk in
// the given index family.
func (r *TombstoneRepository) HasTombstone(ctx context.Context, ix storage.Index, collectionID, chunkID string) (bool, error) {
	fam, err := familyFor(ix)
	if err != nil {
		return false, err
	}

	var found bool
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		found, err = hasMarker(tx, fam, collectionID, chunkID)
		return err
	}, false)
	return found, err
}

// ListTombstones retrieves one index family's journal rows for a
// collection, in append order.
func (r *TombstoneRepository) ListTombstones(ctx context.Context, ix storage.Index, collectionID string) ([]*core.Tombstone, error) {
	fam, err := familyFor(ix)
	if err != nil {
		return nil, err
	}

	var results []*core.Tombstone
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(fam.journalPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var row *core.Tombstone
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				row, err = storage.UnmarshalTombstone(val)
				return err
			}); err != nil {
				return err
			}
			if row.CollectionID == collectionID {
				results = append(results, row)
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return results, nil
}

// CountTombstones reports the number of journal rows in one index
// family.
func (r *TombstoneRepository) CountTombstones(ctx context.Context, ix storage.Index) (int, error) {
	fam, err := familyFor(ix)
	if err != nil {
		return 0, err
	}

	var count int
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(fam.journalPrefix + ":")
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

// hasMarker checks the tombstone marker key inside an open transaction.
func hasMarker(tx *badger.Txn, fam family, collectionID, chunkID string) (bool, error) {
	_, err := tx.Get(makeMarkerKey(fam, collectionID, chunkID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
