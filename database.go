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


package chunkstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/chunkstore/core"
	"github.com/poiesic/chunkstore/ingestion"
	"github.com/poiesic/chunkstore/search"
	"github.com/poiesic/chunkstore/softdelete"
	"github.com/poiesic/chunkstore/storage"
	"github.com/poiesic/chunkstore/storage/badger"
)

// ErrDataPathRequired is returned when no storage path is provided.
var ErrDataPathRequired = errors.New("data path required")

// Database bundles the storage backend with the repositories and acts
// as the factory for pipelines, searchers and delete managers.
type Database struct {
	backend        *badger.Backend
	collectionRepo storage.CollectionRepository
	chunkRepo      storage.ChunkRepository
	tombstoneRepo  storage.TombstoneRepository
	logger         *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	inMemory bool
}

// WithInMemory opens the backend without touching disk. Intended for
// tests and experiments.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// NewDatabase opens (or creates) a database at the given path.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if filePath == "" && !options.inMemory {
		return nil, ErrDataPathRequired
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	collectionRepo := badger.NewCollectionRepository(backend)

	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	tombstoneRepo, err := badger.NewTombstoneRepository(backend)
	if err != nil {
		chunkRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:        backend,
		collectionRepo: collectionRepo,
		chunkRepo:      chunkRepo,
		tombstoneRepo:  tombstoneRepo,
		logger:         slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	if err := db.tombstoneRepo.Close(); err != nil {
		db.logger.Error("error closing tombstone repository", "err", err)
		return err
	}
	if err := db.chunkRepo.Close(); err != nil {
		db.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := db.collectionRepo.Close(); err != nil {
		db.logger.Error("error closing collection repository", "err", err)
		return err
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) CollectionRepository() storage.CollectionRepository {
	return db.collectionRepo
}

func (db *Database) ChunkRepository() storage.ChunkRepository {
	return db.chunkRepo
}

func (db *Database) TombstoneRepository() storage.TombstoneRepository {
	return db.tombstoneRepo
}

func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(db.chunkRepo, opts...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.chunkRepo, db.collectionRepo, opts...)
}

func (db *Database) NewDeleteManager(opts ...softdelete.Option) (*softdelete.Manager, error) {
	return softdelete.NewManager(db.tombstoneRepo, opts...)
}

// CreateCollection validates and stores a new collection.
func (db *Database) CreateCollection(ctx context.Context, col *core.Collection) error {
	if err := core.ValidateCollection(col); err != nil {
		return err
	}
	if col.CreatedBy == "" {
		col.CreatedBy = core.DefaultActor
	}
	if col.UpdatedBy == "" {
		col.UpdatedBy = col.CreatedBy
	}
	return db.collectionRepo.CreateCollection(ctx, col)
}

// UpdateCollection validates and replaces an existing collection,
// preserving its creation metadata and embedding dimension.
func (db *Database) UpdateCollection(ctx context.Context, col *core.Collection, updatedBy string) error {
	if err := core.ValidateCollection(col); err != nil {
		return err
	}
	existing, err := db.collectionRepo.GetCollection(ctx, col.CollectionID)
	if err != nil {
		return err
	}

	col.CreatedBy = existing.CreatedBy
	col.CreatedAt = existing.CreatedAt
	col.EmbeddingDim = existing.EmbeddingDim
	if updatedBy == "" {
		updatedBy = core.DefaultActor
	}
	col.UpdatedBy = updatedBy
	return db.collectionRepo.PutCollection(ctx, col)
}

// GetCollection retrieves a collection by ID.
func (db *Database) GetCollection(ctx context.Context, collectionID string) (*core.Collection, error) {
	return db.collectionRepo.GetCollection(ctx, collectionID)
}

// ListCollections retrieves all collections.
func (db *Database) ListCollections(ctx context.Context) ([]*core.Collection, error) {
	return db.collectionRepo.ListCollections(ctx)
}

// Stats summarizes the stored row counts.
type Stats struct {
	Collections       int
	LexicalChunks     int
	VectorChunks      int
	LexicalTombstones int
	VectorTombstones  int
	CollectedAt       time.Time
}

// Stats counts stored rows across both index families. Chunk counts
// include tombstoned rows; nothing is ever physically removed.
func (db *Database) Stats(ctx context.Context) (*Stats, error) {
	cols, err := db.collectionRepo.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Collections: len(cols),
		CollectedAt: time.Now().UTC(),
	}
	if stats.LexicalChunks, err = db.chunkRepo.CountChunks(ctx, storage.Lexical); err != nil {
		return nil, err
	}
	if stats.VectorChunks, err = db.chunkRepo.CountChunks(ctx, storage.Vector); err != nil {
		return nil, err
	}
	if stats.LexicalTombstones, err = db.tombstoneRepo.CountTombstones(ctx, storage.Lexical); err != nil {
		return nil, err
	}
	if stats.VectorTombstones, err = db.tombstoneRepo.CountTombstones(ctx, storage.Vector); err != nil {
		return nil, err
	}
	return stats, nil
}
