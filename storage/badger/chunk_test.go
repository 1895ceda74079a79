package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chunkstore/core"
	"github.com/poiesic/chunkstore/storage"
)

type repoFixture struct {
	collections storage.CollectionRepository
	chunks      storage.ChunkRepository
	tombstones  storage.TombstoneRepository
}

func newFixture(t *testing.T) *repoFixture {
	t.Helper()

	colRepo, chunkRepo, tombRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		tombRepo.Close()
		chunkRepo.Close()
		colRepo.Close()
		backend.Close()
	})

	return &repoFixture{
		collections: colRepo,
		chunks:      chunkRepo,
		tombstones:  tombRepo,
	}
}

func (f *repoFixture) seedCollection(t *testing.T, ctx context.Context, id string) {
	t.Helper()
	err := f.collections.PutCollection(ctx, &core.Collection{
		CollectionID:     id,
		CollectionName:   id,
		EmbeddingModelID: "text-embedding-3-small",
		GroupID:          "support",
		CreatedBy:        "system",
	})
	require.NoError(t, err)
}

func newChunk(collectionID, content string) *core.Chunk {
	return &core.Chunk{
		CollectionID: collectionID,
		ChunkID:      core.ChunkIDFor(collectionID, content),
		Content:      content,
		Channels:     []string{core.DefaultChannel},
		SourceID:     core.DefaultSourceID,
		BuildID:      core.DefaultBuildID,
		CreatedBy:    core.DefaultActor,
		UpdatedBy:    core.DefaultActor,
		Embedding:    []float32{0.1, 0.2, 0.3},
	}
}

func TestAddChunk_WritesBothFamilies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCollection(t, ctx, "policies")

	lex, vec, err := f.chunks.AddChunk(ctx, newChunk("policies", "Refunds take 5 days."))
	require.NoError(t, err)

	assert.NotZero(t, lex.RowID)
	assert.NotZero(t, vec.RowID)
	assert.Equal(t, lex.ChunkID, vec.ChunkID)
	assert.Nil(t, lex.Embedding, "lexical row must not carry an embedding")
	assert.NotEmpty(t, vec.Embedding)
	assert.False(t, lex.CreatedAt.IsZero())

	lexCount, err := f.chunks.CountChunks(ctx, storage.Lexical)
	require.NoError(t, err)
	vecCount, err := f.chunks.CountChunks(ctx, storage.Vector)
	require.NoError(t, err)
	assert.Equal(t, 1, lexCount)
	assert.Equal(t, 1, vecCount)
}

func TestAddChunk_NoEmbedding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCollection(t, ctx, "policies")

	chunk := newChunk("policies", "Refunds take 5 days.")
	chunk.Embedding = nil

	lex, vec, err := f.chunks.AddChunk(ctx, chunk)
	require.NoError(t, err)
	assert.NotZero(t, lex.RowID)
	assert.Nil(t, vec, "no embedding means no vector row")

	lexCount, err := f.chunks.CountChunks(ctx, storage.Lexical)
	require.NoError(t, err)
	vecCount, err := f.chunks.CountChunks(ctx, storage.Vector)
	require.NoError(t, err)
	assert.Equal(t, 1, lexCount)
	assert.Equal(t, 0, vecCount)

	// The vector index must not see the chunk at all.
	candidates, err := f.chunks.FindCandidates(ctx, storage.Vector, storage.ChunkFilter{
		CollectionID: "policies",
	})
	require.NoError(t, err)
	assert.Empty(t, candidates)

	// The collection's dimension stays unfixed.
	col, err := f.collections.GetCollection(ctx, "policies")
	require.NoError(t, err)
	assert.Equal(t, 0, col.EmbeddingDim)
}

func TestAddChunk_UnknownCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.chunks.AddChunk(ctx, newChunk("missing", "text"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAddChunk_DimensionBookkeeping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCollection(t, ctx, "policies")

	first := newChunk("policies", "first")
	first.Embedding = []float32{1, 2, 3}
	_, _, err := f.chunks.AddChunk(ctx, first)
	require.NoError(t, err)

	col, err := f.collections.GetCollection(ctx, "policies")
	require.NoError(t, err)
	assert.Equal(t, 3, col.EmbeddingDim, "first vector write fixes the dimension")

	second := newChunk("policies", "second")
	second.Embedding = []float32{1, 2}
	_, _, err = f.chunks.AddChunk(ctx, second)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	// The failed write must not leave a partial row behind.
	count, err := f.chunks.CountChunks(ctx, storage.Lexical)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddChunk_DuplicateContentAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCollection(t, ctx, "policies")

	a, _, err := f.chunks.AddChunk(ctx, newChunk("policies", "same text"))
	require.NoError(t, err)
	b, _, err := f.chunks.AddChunk(ctx, newChunk("policies", "same text"))
	require.NoError(t, err)

	assert.Equal(t, a.ChunkID, b.ChunkID)
	assert.NotEqual(t, a.RowID, b.RowID)

	rows, err := f.chunks.GetByChunkID(ctx, storage.Lexical, "policies", a.ChunkID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestFindCandidates_CollectionScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCollection(t, ctx, "policies")
	f.seedCollection(t, ctx, "faq")

	_, _, err := f.chunks.AddChunk(ctx, newChunk("policies", "refund policy"))
	require.NoError(t, err)
	_, _, err = f.chunks.AddChunk(ctx, newChunk("faq", "shipping times"))
	require.NoError(t, err)

	scoped, err := f.chunks.FindCandidates(ctx, storage.Lexical, storage.ChunkFilter{CollectionID: "policies"})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "refund policy", scoped[0].Content)

	all, err := f.chunks.FindCandidates(ctx, storage.Lexical, storage.ChunkFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFindCandidates_ChannelIntersection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCollection(t, ctx, "policies")

	twm := newChunk("policies", "twm only")
	twm.Channels = []string{"TWM"}
	_, _, err := f.chunks.AddChunk(ctx, twm)
	require.NoError(t, err)

	web := newChunk("policies", "web only")
	web.Channels = []string{"WEB"}
	_, _, err = f.chunks.AddChunk(ctx, web)
	require.NoError(t, err)

	both := newChunk("policies", "both channels")
	both.Channels = []string{"TWM", "WEB"}
	_, _, err = f.chunks.AddChunk(ctx, both)
	require.NoError(t, err)

	webOnly, err := f.chunks.FindCandidates(ctx, storage.Lexical, storage.ChunkFilter{
		CollectionID: "policies",
		Channels:     []string{"WEB"},
	})
	require.NoError(t, err)
	contents := contentsOf(webOnly)
	assert.ElementsMatch(t, []string{"web only", "both channels"}, contents)

	unfiltered, err := f.chunks.FindCandidates(ctx, storage.Lexical, storage.ChunkFilter{
		CollectionID: "policies",
	})
	require.NoError(t, err)
	assert.Len(t, unfiltered, 3, "empty channel filter imposes no restriction")
}

func TestFindCandidates_ValidityWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCollection(t, ctx, "policies")

	from, err := core.ParseDate("2024-06-01")
	require.NoError(t, err)
	to, err := core.ParseDate("2024-06-30")
	require.NoError(t, err)

	seasonal := newChunk("policies", "june promotion")
	seasonal.EffectiveFrom = &from
	seasonal.EffectiveTo = &to
	_, _, err = f.chunks.AddChunk(ctx, seasonal)
	require.NoError(t, err)

	evergreen := newChunk("policies", "evergreen policy")
	_, _, err = f.chunks.AddChunk(ctx, evergreen)
	require.NoError(t, err)

	during, err := f.chunks.FindCandidates(ctx, storage.Lexical, storage.ChunkFilter{
		CollectionID: "policies",
		AsOf:         time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"june promotion", "evergreen policy"}, contentsOf(during))

	// Last day of the window is still valid.
	lastDay, err := f.chunks.FindCandidates(ctx, storage.Lexical, storage.ChunkFilter{
		CollectionID: "policies",
		AsOf:         time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"june promotion", "evergreen policy"}, contentsOf(lastDay))

	after, err := f.chunks.FindCandidates(ctx, storage.Lexical, storage.ChunkFilter{
		CollectionID: "policies",
		AsOf:         time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"evergreen policy"}, contentsOf(after))

	before, err := f.chunks.FindCandidates(ctx, storage.Lexical, storage.ChunkFilter{
		CollectionID: "policies",
		AsOf:         time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"evergreen policy"}, contentsOf(before))
}

func TestFindCandidates_SubstringPreFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCollection(t, ctx, "policies")

	_, _, err := f.chunks.AddChunk(ctx, newChunk("policies", "Refund requests are handled in 5 days."))
	require.NoError(t, err)
	_, _, err = f.chunks.AddChunk(ctx, newChunk("policies", "Shipping takes two weeks."))
	require.NoError(t, err)

	hits, err := f.chunks.FindCandidates(ctx, storage.Lexical, storage.ChunkFilter{
		CollectionID: "policies",
		Substring:    "refund",
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Content, "Refund")
}

func TestFindCandidates_ExcludesTombstoned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCollection(t, ctx, "policies")

	doomed, _, err := f.chunks.AddChunk(ctx, newChunk("policies", "old policy"))
	require.NoError(t, err)
	_, _, err = f.chunks.AddChunk(ctx, newChunk("policies", "current policy"))
	require.NoError(t, err)

	err = f.tombstones.AppendTombstone(ctx, &core.Tombstone{
		CollectionID: "policies",
		ChunkID:      doomed.ChunkID,
		DeletedBy:    "api_user",
	})
	require.NoError(t, err)

	for _, ix := range []storage.Index{storage.Lexical, storage.Vector} {
		hits, err := f.chunks.FindCandidates(ctx, ix, storage.ChunkFilter{CollectionID: "policies"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"current policy"}, contentsOf(hits), "index %s", ix)
	}
}

func TestFindCandidates_UnknownIndex(t *testing.T) {
	f := newFixture(t)

	_, err := f.chunks.FindCandidates(context.Background(), storage.Index(9), storage.ChunkFilter{})
	assert.ErrorIs(t, err, storage.ErrUnknownIndex)
}

func contentsOf(chunks []*core.Chunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Content)
	}
	return out
}
