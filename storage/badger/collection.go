package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/chunkstore/core"
	"github.com/poiesic/chunkstore/storage"
)

// CollectionRepository implements storage.CollectionRepository for BadgerDB.
type CollectionRepository struct {
	backend *Backend
}

var _ storage.CollectionRepository = (*CollectionRepository)(nil)

// NewCollectionRepository creates a new CollectionRepository.
func NewCollectionRepository(backend *Backend) *CollectionRepository {
	return &CollectionRepository{backend: backend}
}

// Close releases repository resources.
func (r *CollectionRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *CollectionRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// CreateCollection stores a new collection record. The existence check
// and the write share one transaction, so two racing creates of the
// same ID cannot both commit.
func (r *CollectionRepository) CreateCollection(ctx context.Context, col *core.Collection) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCollectionKey(col.CollectionID)
		_, err := tx.Get(key)
		if err == nil {
			return storage.ErrDuplicateKey
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		now := time.Now().UTC()
		if col.CreatedAt.IsZero() {
			col.CreatedAt = now
		}
		col.UpdatedAt = now

		if err := tx.Set(key, storage.MarshalCollection(col)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			// A racing create that committed first shows up here.
			if errors.Is(err, badger.ErrConflict) {
				return storage.ErrDuplicateKey
			}
			return err
		}
		return nil
	}, true)
}

// PutCollection creates or replaces a collection record.
func (r *CollectionRepository) PutCollection(ctx context.Context, col *core.Collection) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		if col.CreatedAt.IsZero() {
			col.CreatedAt = now
		}
		col.UpdatedAt = now

		key := makeCollectionKey(col.CollectionID)
		if err := tx.Set(key, storage.MarshalCollection(col)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetCollection retrieves a collection by ID.
func (r *CollectionRepository) GetCollection(ctx context.Context, collectionID string) (*core.Collection, error) {
	var result *core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readCollection(tx, collectionID)
		return err
	}, false)
	return result, err
}

// ListCollections retrieves all collections, ordered by ID.
func (r *CollectionRepository) ListCollections(ctx context.Context) ([]*core.Collection, error) {
	var results []*core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(collectionPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var col *core.Collection
			err := iter.Item().Value(func(val []byte) error {
				var err error
				col, err = storage.UnmarshalCollection(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, col)
		}
		return nil
	}, false)
	return results, err
}

// readCollection loads a collection inside an open transaction.
// Returns storage.ErrNotFound if it doesn't exist.
func readCollection(tx *badger.Txn, collectionID string) (*core.Collection, error) {
	item, err := tx.Get(makeCollectionKey(collectionID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var col *core.Collection
	err = item.Value(func(val []byte) error {
		var err error
		col, err = storage.UnmarshalCollection(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return col, nil
}
