package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chunkstore/core"
	"github.com/poiesic/chunkstore/storage"
)

func TestAppendTombstone_BothFamilies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCollection(t, ctx, "policies")

	chunk, _, err := f.chunks.AddChunk(ctx, newChunk("policies", "old policy"))
	require.NoError(t, err)

	err = f.tombstones.AppendTombstone(ctx, &core.Tombstone{
		CollectionID: "policies",
		ChunkID:      chunk.ChunkID,
		DeletedBy:    "api_user",
	})
	require.NoError(t, err)

	for _, ix := range []storage.Index{storage.Lexical, storage.Vector} {
		found, err := f.tombstones.HasTombstone(ctx, ix, "policies", chunk.ChunkID)
		require.NoError(t, err)
		assert.True(t, found, "index %s", ix)

		count, err := f.tombstones.CountTombstones(ctx, ix)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "index %s", ix)
	}
}

func TestAppendTombstone_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCollection(t, ctx, "policies")

	chunk, _, err := f.chunks.AddChunk(ctx, newChunk("policies", "old policy"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		err = f.tombstones.AppendTombstone(ctx, &core.Tombstone{
			CollectionID: "policies",
			ChunkID:      chunk.ChunkID,
			DeletedBy:    "api_user",
		})
		require.NoError(t, err)
	}

	// Journal grows with every append.
	count, err := f.tombstones.CountTombstones(ctx, storage.Lexical)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Visibility is unchanged after the first append.
	found, err := f.tombstones.HasTombstone(ctx, storage.Lexical, "policies", chunk.ChunkID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestAppendTombstone_StampsDeletedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ts := &core.Tombstone{
		CollectionID: "policies",
		ChunkID:      "abc",
		DeletedBy:    "api_user",
	}
	require.NoError(t, f.tombstones.AppendTombstone(ctx, ts))
	assert.False(t, ts.DeletedAt.IsZero())
}

func TestListTombstones_AppendOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chunkIDs := []string{"first", "second", "third"}
	for _, id := range chunkIDs {
		err := f.tombstones.AppendTombstone(ctx, &core.Tombstone{
			CollectionID: "policies",
			ChunkID:      id,
			DeletedBy:    "api_user",
		})
		require.NoError(t, err)
	}

	// Another collection's rows must not leak in.
	err := f.tombstones.AppendTombstone(ctx, &core.Tombstone{
		CollectionID: "faq",
		ChunkID:      "other",
		DeletedBy:    "api_user",
	})
	require.NoError(t, err)

	rows, err := f.tombstones.ListTombstones(ctx, storage.Lexical, "policies")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, chunkIDs[i], row.ChunkID)
		assert.Equal(t, "policies", row.CollectionID)
	}
}

func TestHasTombstone_Missing(t *testing.T) {
	f := newFixture(t)

	found, err := f.tombstones.HasTombstone(context.Background(), storage.Vector, "policies", "never-deleted")
	require.NoError(t, err)
	assert.False(t, found)
}
