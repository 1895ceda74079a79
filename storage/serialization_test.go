package storage

import (
	"testing"
	"time"

	"github.com/poiesic/chunkstore/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRowID(t *testing.T) {
	tests := []struct {
		name string
		id   core.RowID
	}{
		{"zero row ID", core.RowID(0)},
		{"small row ID", core.RowID(42)},
		{"large row ID", core.RowID(18446744073709551615)}, // max uint64
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalRowID(tt.id)
			require.NotNil(t, data)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalRowID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalRowID_Invalid(t *testing.T) {
	_, err := UnmarshalRowID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalCollection(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	col := &core.Collection{
		CollectionID:     "policies",
		CollectionName:   "Support Policies",
		Description:      "Customer support policy documents",
		EmbeddingModelID: "text-embedding-3-small",
		EmbeddingDim:     1536,
		GroupID:          "support",
		Channels:         []string{"TWM", "WEB"},
		Metadata:         map[string]string{"owner": "support-team"},
		CreatedBy:        "system",
		CreatedAt:        now,
		UpdatedBy:        "api_user",
		UpdatedAt:        now,
	}

	data := MarshalCollection(col)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalCollection(data)
	require.NoError(t, err)
	assert.Equal(t, col, decoded)
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	from, err := core.ParseDate("2024-06-01")
	require.NoError(t, err)
	to, err := core.ParseDate("2024-08-31")
	require.NoError(t, err)

	tests := []struct {
		name  string
		chunk *core.Chunk
	}{
		{
			name: "vector row with validity window",
			chunk: &core.Chunk{
				RowID:         core.RowID(42),
				CollectionID:  "policies",
				SourceID:      "handbook.pdf",
				KnowledgeID:   "kn-7",
				ChunkID:       core.ChunkIDFor("policies", "Refunds take 5 days."),
				Channels:      []string{"TWM"},
				ActionCode:    "A1",
				BuildID:       "build_3",
				Content:       "Refunds take 5 days.",
				Metadata:      map[string]string{"page": "12"},
				Embedding:     []float32{0.1, -0.5, 0.25},
				EffectiveFrom: &from,
				EffectiveTo:   &to,
				CreatedBy:     "system",
				CreatedAt:     now,
				UpdatedBy:     "system",
				UpdatedAt:     now,
			},
		},
		{
			name: "lexical row without embedding",
			chunk: &core.Chunk{
				RowID:        core.RowID(7),
				CollectionID: "policies",
				SourceID:     "default_source",
				ChunkID:      core.ChunkIDFor("policies", "Plain text."),
				Channels:     []string{"TWM"},
				BuildID:      "build_0",
				Content:      "Plain text.",
				CreatedBy:    "system",
				CreatedAt:    now,
				UpdatedBy:    "system",
				UpdatedAt:    now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalChunk(tt.chunk)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalChunk(data)
			require.NoError(t, err)
			assert.Equal(t, tt.chunk, decoded)
		})
	}
}

func TestUnmarshalChunk_Truncated(t *testing.T) {
	chunk := &core.Chunk{
		RowID:        core.RowID(1),
		CollectionID: "policies",
		ChunkID:      "abc",
		Content:      "some content",
	}

	data := MarshalChunk(chunk)
	_, err := UnmarshalChunk(data[:len(data)/2])
	assert.Error(t, err)
}

func TestMarshalUnmarshalTombstone(t *testing.T) {
	ts := &core.Tombstone{
		RowID:        core.RowID(3),
		CollectionID: "policies",
		ChunkID:      core.ChunkIDFor("policies", "obsolete"),
		DeletedBy:    "api_user",
		DeletedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	data := MarshalTombstone(ts)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalTombstone(data)
	require.NoError(t, err)
	assert.Equal(t, ts, decoded)
}
