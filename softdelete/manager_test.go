package softdelete

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chunkstore/core"
	"github.com/poiesic/chunkstore/storage"
	"github.com/poiesic/chunkstore/storage/badger"
)

func setupManager(t *testing.T, opts ...Option) (*Manager, storage.TombstoneRepository) {
	t.Helper()

	colRepo, chunkRepo, tombRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		tombRepo.Close()
		chunkRepo.Close()
		colRepo.Close()
		backend.Close()
	})

	m, err := NewManager(tombRepo, opts...)
	require.NoError(t, err)
	return m, tombRepo
}

func TestNewManager_NilRepository(t *testing.T) {
	_, err := NewManager(nil)
	assert.Equal(t, ErrTombstoneRepositoryRequired, err)
}

func TestDelete(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	m, tombRepo := setupManager(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	ts, err := m.Delete(ctx, "policies", "abc123", "api_user")
	require.NoError(t, err)
	assert.Equal(t, "api_user", ts.DeletedBy)
	assert.Equal(t, now, ts.DeletedAt)

	for _, ix := range []storage.Index{storage.Lexical, storage.Vector} {
		found, err := tombRepo.HasTombstone(ctx, ix, "policies", "abc123")
		require.NoError(t, err)
		assert.True(t, found, "index %s", ix)
	}
}

func TestDelete_DefaultActor(t *testing.T) {
	m, _ := setupManager(t)

	ts, err := m.Delete(context.Background(), "policies", "abc123", "")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultActor, ts.DeletedBy)
}

func TestDelete_Validation(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	_, err := m.Delete(ctx, "", "abc123", "api_user")
	assert.ErrorIs(t, err, core.ErrEmptyCollectionID)

	_, err = m.Delete(ctx, "policies", "", "api_user")
	assert.ErrorIs(t, err, core.ErrEmptyChunkID)
}

func TestDelete_Idempotent(t *testing.T) {
	m, tombRepo := setupManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.Delete(ctx, "policies", "abc123", "api_user")
		require.NoError(t, err, "repeat delete %d must succeed", i)
	}

	deleted, err := m.IsDeleted(ctx, "policies", "abc123")
	require.NoError(t, err)
	assert.True(t, deleted)

	// Every delete appends a journal row.
	count, err := tombRepo.CountTombstones(ctx, storage.Lexical)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDelete_NonexistentChunk(t *testing.T) {
	m, _ := setupManager(t)

	// Deleting a chunk that was never ingested still succeeds.
	_, err := m.Delete(context.Background(), "policies", "never-existed", "api_user")
	assert.NoError(t, err)
}

func TestHistory(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	for _, id := range []string{"first", "second"} {
		_, err := m.Delete(ctx, "policies", id, "api_user")
		require.NoError(t, err)
	}
	_, err := m.Delete(ctx, "faq", "elsewhere", "api_user")
	require.NoError(t, err)

	rows, err := m.History(ctx, "policies")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "first", rows[0].ChunkID)
	assert.Equal(t, "second", rows[1].ChunkID)
}
