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


package storage

import (
	"github.com/poiesic/chunkstore/core"
)

// MarshalRowID serializes a RowID to bytes.
func MarshalRowID(id core.RowID) []byte {
	buf := make([]byte, core.RowIDMUS.Size(id))
	core.RowIDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalRowID deserializes a RowID from bytes.
func UnmarshalRowID(data []byte) (core.RowID, error) {
	id, _, err := core.RowIDMUS.Unmarshal(data)
	return id, err
}

// MarshalCollection serializes a Collection to bytes.
func MarshalCollection(col *core.Collection) []byte {
	buf := make([]byte, core.CollectionMUS.Size(*col))
	core.CollectionMUS.Marshal(*col, buf)
	return buf
}

// UnmarshalCollection deserializes a Collection from bytes.
func UnmarshalCollection(data []byte) (*core.Collection, error) {
	col, _, err := core.CollectionMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &col, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(*chunk))
	core.ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalTombstone serializes a Tombstone to bytes.
func MarshalTombstone(ts *core.Tombstone) []byte {
	buf := make([]byte, core.TombstoneMUS.Size(*ts))
	core.TombstoneMUS.Marshal(*ts, buf)
	return buf
}

// UnmarshalTombstone deserializes a Tombstone from bytes.
func UnmarshalTombstone(data []byte) (*core.Tombstone, error) {
	ts, _, err := core.TombstoneMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
