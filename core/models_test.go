package core

import (
	"errors"
	"testing"
)

func TestChunkIDFor(t *testing.T) {
	tests := []struct {
		name         string
		collectionID string
		content      string
	}{
		{
			name:         "basic content",
			collectionID: "policies",
			content:      "test content",
		},
		{
			name:         "empty content",
			collectionID: "policies",
			content:      "",
		},
		{
			name:         "long content",
			collectionID: "policies",
			content:      "This is a much longer piece of content that should still hash consistently across calls",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := ChunkIDFor(tt.collectionID, tt.content)
			id2 := ChunkIDFor(tt.collectionID, tt.content)

			if id1 != id2 {
				t.Errorf("ChunkIDFor() produced different IDs for same input: %s vs %s", id1, id2)
			}
			if len(id1) != 32 {
				t.Errorf("ChunkIDFor() = %q, want 32 hex characters", id1)
			}
		})
	}
}

func TestChunkIDFor_Different(t *testing.T) {
	if ChunkIDFor("policies", "content1") == ChunkIDFor("policies", "content2") {
		t.Errorf("ChunkIDFor() produced same ID for different content")
	}
	if ChunkIDFor("policies", "content") == ChunkIDFor("faq", "content") {
		t.Errorf("ChunkIDFor() produced same ID for different collections")
	}
}

func TestChunkIDFor_BoundaryUnambiguous(t *testing.T) {
	// The separator keeps (collection, content) pairs with the same
	// concatenation distinct.
	id1 := ChunkIDFor("ab", "c")
	id2 := ChunkIDFor("a", "bc")

	if id1 == id2 {
		t.Errorf("ChunkIDFor() collided across the collection/content boundary")
	}
}

func TestSearchTypeString(t *testing.T) {
	tests := []struct {
		st   SearchType
		want string
	}{
		{SearchTypeFulltext, "fulltext"},
		{SearchTypeVector, "vector"},
		{SearchTypeHybrid, "hybrid"},
		{SearchType(0), "unknown"},
		{SearchType(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.st.String(); got != tt.want {
			t.Errorf("SearchType(%d).String() = %q, want %q", tt.st, got, tt.want)
		}
	}
}

func TestParseSearchType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SearchType
		wantErr error
	}{
		{
			name:  "fulltext",
			input: "fulltext",
			want:  SearchTypeFulltext,
		},
		{
			name:  "vector",
			input: "vector",
			want:  SearchTypeVector,
		},
		{
			name:  "hybrid",
			input: "hybrid",
			want:  SearchTypeHybrid,
		},
		{
			name:    "unknown name",
			input:   "semantic",
			wantErr: ErrUnknownSearchType,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: ErrUnknownSearchType,
		},
		{
			name:    "case sensitive",
			input:   "Hybrid",
			wantErr: ErrUnknownSearchType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSearchType(tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseSearchType(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseSearchType(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSearchType(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
