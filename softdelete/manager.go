package softdelete

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/chunkstore/core"
	"github.com/poiesic/chunkstore/storage"
)

// Manager performs logical deletion of chunks.
type Manager struct {
	tombstoneRepository storage.TombstoneRepository
	clock               func() time.Time
	logger              *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// WithClock sets the time source for deletion timestamps.
// Default is time.Now. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) error {
		if clock != nil {
			m.clock = clock
		}
		return nil
	}
}

// NewManager creates a new delete manager.
func NewManager(tombstoneRepository storage.TombstoneRepository, opts ...Option) (*Manager, error) {
	if tombstoneRepository == nil {
		return nil, ErrTombstoneRepositoryRequired
	}

	m := &Manager{
		tombstoneRepository: tombstoneRepository,
		clock:               time.Now,
		logger:              slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Delete tombstones a chunk in both index families. The operation is
// idempotent from the caller's point of view: deleting an
// already-deleted chunk, or one that never existed, succeeds and only
// grows the journal.
func (m *Manager) Delete(ctx context.Context, collectionID, chunkID, deletedBy string) (*core.Tombstone, error) {
	if deletedBy == "" {
		deletedBy = core.DefaultActor
	}
	if err := core.ValidateTombstone(collectionID, chunkID, deletedBy); err != nil {
		return nil, err
	}

	ts := &core.Tombstone{
		CollectionID: collectionID,
		ChunkID:      chunkID,
		DeletedBy:    deletedBy,
		DeletedAt:    m.clock().UTC(),
	}
	if err := m.tombstoneRepository.AppendTombstone(ctx, ts); err != nil {
		m.logger.Error("failed to append tombstone",
			"collection", collectionID, "chunk", chunkID, "err", err)
		return nil, err
	}

	m.logger.Debug("chunk tombstoned",
		"collection", collectionID, "chunk", chunkID, "deleted_by", deletedBy)
	return ts, nil
}

// IsDeleted reports whether the chunk carries a tombstone in the
// lexical index family. Both families are written together, so one
// probe answers for both.
func (m *Manager) IsDeleted(ctx context.Context, collectionID, chunkID string) (bool, error) {
	return m.tombstoneRepository.HasTombstone(ctx, storage.Lexical, collectionID, chunkID)
}

// History returns the journal rows recorded for a collection in the
// lexical index family, in append order.
func (m *Manager) History(ctx context.Context, collectionID string) ([]*core.Tombstone, error) {
	return m.tombstoneRepository.ListTombstones(ctx, storage.Lexical, collectionID)
}
