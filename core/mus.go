package core

import (
	"errors"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-composed MUS serializers for the persisted domain types.
// Field order is part of the storage format; append new fields at the
// end only.
var (
	RowIDMUS      = rowIDMUS{}
	CollectionMUS = collectionMUS{}
	ChunkMUS      = chunkMUS{}
	TombstoneMUS  = tombstoneMUS{}
)

var (
	_ mus.Serializer[RowID]      = RowIDMUS
	_ mus.Serializer[Collection] = CollectionMUS
	_ mus.Serializer[Chunk]      = ChunkMUS
	_ mus.Serializer[Tombstone]  = TombstoneMUS
)

var errNegativeLength = errors.New("negative length")

// rowIDMUS serializes a RowID as a varint uint64.
type rowIDMUS struct{}

func (rowIDMUS) Marshal(id RowID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (rowIDMUS) Unmarshal(bs []byte) (RowID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return RowID(v), n, err
}

func (rowIDMUS) Size(id RowID) int {
	return varint.Uint64.Size(uint64(id))
}

func (rowIDMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

// timeMUS serializes a timestamp as Unix microseconds, matching the
// precision the store rounds to.
type timeMUS struct{}

func (timeMUS) Marshal(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func (timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func (timeMUS) Size(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

func (timeMUS) Skip(bs []byte) (int, error) {
	return varint.Int64.Skip(bs)
}

// optTimeMUS serializes a nullable timestamp as a presence flag plus
// the timestamp.
type optTimeMUS struct{}

func (optTimeMUS) Marshal(t *time.Time, bs []byte) (n int) {
	n = ord.Bool.Marshal(t != nil, bs)
	if t != nil {
		n += timeMUS{}.Marshal(*t, bs[n:])
	}
	return n
}

func (optTimeMUS) Unmarshal(bs []byte) (*time.Time, int, error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return nil, n, err
	}
	t, n1, err := timeMUS{}.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	return &t, n, nil
}

func (optTimeMUS) Size(t *time.Time) (size int) {
	size = ord.Bool.Size(t != nil)
	if t != nil {
		size += timeMUS{}.Size(*t)
	}
	return size
}

func (optTimeMUS) Skip(bs []byte) (n int, err error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return n, err
	}
	n1, err := timeMUS{}.Skip(bs[n:])
	return n + n1, err
}

// stringsMUS serializes a []string as a length followed by the elements.
type stringsMUS struct{}

func (stringsMUS) Marshal(ss []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(ss), bs)
	for _, s := range ss {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func (stringsMUS) Unmarshal(bs []byte) (ss []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, errNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	ss = make([]string, length)
	for i := range ss {
		var n1 int
		ss[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return ss, n, nil
}

func (stringsMUS) Size(ss []string) (size int) {
	size = varint.Int.Size(len(ss))
	for _, s := range ss {
		size += ord.String.Size(s)
	}
	return size
}

func (stringsMUS) Skip(bs []byte) (n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return n, err
	}
	if length < 0 {
		return n, errNegativeLength
	}
	for i := 0; i < length; i++ {
		n1, err := ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// metadataMUS serializes a map[string]string as a length followed by
// key/value pairs. Pair order is not significant.
type metadataMUS struct{}

func (metadataMUS) Marshal(m map[string]string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(m), bs)
	for k, v := range m {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(v, bs[n:])
	}
	return n
}

func (metadataMUS) Unmarshal(bs []byte) (m map[string]string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, errNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	m = make(map[string]string, length)
	for i := 0; i < length; i++ {
		var k, v string
		var n1 int
		k, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		v, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		m[k] = v
	}
	return m, n, nil
}

func (metadataMUS) Size(m map[string]string) (size int) {
	size = varint.Int.Size(len(m))
	for k, v := range m {
		size += ord.String.Size(k)
		size += ord.String.Size(v)
	}
	return size
}

func (metadataMUS) Skip(bs []byte) (n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return n, err
	}
	if length < 0 {
		return n, errNegativeLength
	}
	for i := 0; i < 2*length; i++ {
		n1, err := ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// vectorMUS serializes a []float32 as a length followed by the raw
// IEEE 754 bits of each element.
type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += varint.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, errNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]float32, length)
	for i := range v {
		var n1 int
		v[i], n1, err = varint.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (vectorMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += varint.Float32.Size(f)
	}
	return size
}

func (vectorMUS) Skip(bs []byte) (n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return n, err
	}
	if length < 0 {
		return n, errNegativeLength
	}
	for i := 0; i < length; i++ {
		n1, err := varint.Float32.Skip(bs[n:])
		n += n1
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// collectionMUS serializes a Collection.
type collectionMUS struct{}

func (collectionMUS) Marshal(c Collection, bs []byte) (n int) {
	n = ord.String.Marshal(c.CollectionID, bs)
	n += ord.String.Marshal(c.CollectionName, bs[n:])
	n += ord.String.Marshal(c.Description, bs[n:])
	n += ord.String.Marshal(c.EmbeddingModelID, bs[n:])
	n += varint.Int.Marshal(c.EmbeddingDim, bs[n:])
	n += ord.String.Marshal(c.GroupID, bs[n:])
	n += stringsMUS{}.Marshal(c.Channels, bs[n:])
	n += metadataMUS{}.Marshal(c.Metadata, bs[n:])
	n += ord.String.Marshal(c.CreatedBy, bs[n:])
	n += timeMUS{}.Marshal(c.CreatedAt, bs[n:])
	n += ord.String.Marshal(c.UpdatedBy, bs[n:])
	n += timeMUS{}.Marshal(c.UpdatedAt, bs[n:])
	return n
}

func (collectionMUS) Unmarshal(bs []byte) (c Collection, n int, err error) {
	var n1 int
	if c.CollectionID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if c.CollectionName, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Description, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.EmbeddingModelID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.EmbeddingDim, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.GroupID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Channels, n1, err = (stringsMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Metadata, n1, err = (metadataMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.CreatedBy, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.CreatedAt, n1, err = (timeMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.UpdatedBy, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.UpdatedAt, n1, err = (timeMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	return c, n, nil
}

func (collectionMUS) Size(c Collection) (size int) {
	size = ord.String.Size(c.CollectionID)
	size += ord.String.Size(c.CollectionName)
	size += ord.String.Size(c.Description)
	size += ord.String.Size(c.EmbeddingModelID)
	size += varint.Int.Size(c.EmbeddingDim)
	size += ord.String.Size(c.GroupID)
	size += stringsMUS{}.Size(c.Channels)
	size += metadataMUS{}.Size(c.Metadata)
	size += ord.String.Size(c.CreatedBy)
	size += timeMUS{}.Size(c.CreatedAt)
	size += ord.String.Size(c.UpdatedBy)
	size += timeMUS{}.Size(c.UpdatedAt)
	return size
}

func (s collectionMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

// chunkMUS serializes a Chunk.
type chunkMUS struct{}

func (chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = RowIDMUS.Marshal(c.RowID, bs)
	n += ord.String.Marshal(c.CollectionID, bs[n:])
	n += ord.String.Marshal(c.SourceID, bs[n:])
	n += ord.String.Marshal(c.KnowledgeID, bs[n:])
	n += ord.String.Marshal(c.ChunkID, bs[n:])
	n += stringsMUS{}.Marshal(c.Channels, bs[n:])
	n += ord.String.Marshal(c.ActionCode, bs[n:])
	n += ord.String.Marshal(c.BuildID, bs[n:])
	n += ord.String.Marshal(c.Content, bs[n:])
	n += metadataMUS{}.Marshal(c.Metadata, bs[n:])
	n += vectorMUS{}.Marshal(c.Embedding, bs[n:])
	n += optTimeMUS{}.Marshal(c.EffectiveFrom, bs[n:])
	n += optTimeMUS{}.Marshal(c.EffectiveTo, bs[n:])
	n += ord.String.Marshal(c.CreatedBy, bs[n:])
	n += timeMUS{}.Marshal(c.CreatedAt, bs[n:])
	n += ord.String.Marshal(c.UpdatedBy, bs[n:])
	n += timeMUS{}.Marshal(c.UpdatedAt, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var n1 int
	if c.RowID, n, err = RowIDMUS.Unmarshal(bs); err != nil {
		return
	}
	if c.CollectionID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.SourceID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.KnowledgeID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.ChunkID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Channels, n1, err = (stringsMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.ActionCode, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.BuildID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Metadata, n1, err = (metadataMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Embedding, n1, err = (vectorMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.EffectiveFrom, n1, err = (optTimeMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.EffectiveTo, n1, err = (optTimeMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.CreatedBy, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.CreatedAt, n1, err = (timeMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.UpdatedBy, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.UpdatedAt, n1, err = (timeMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	return c, n, nil
}

func (chunkMUS) Size(c Chunk) (size int) {
	size = RowIDMUS.Size(c.RowID)
	size += ord.String.Size(c.CollectionID)
	size += ord.String.Size(c.SourceID)
	size += ord.String.Size(c.KnowledgeID)
	size += ord.String.Size(c.ChunkID)
	size += stringsMUS{}.Size(c.Channels)
	size += ord.String.Size(c.ActionCode)
	size += ord.String.Size(c.BuildID)
	size += ord.String.Size(c.Content)
	size += metadataMUS{}.Size(c.Metadata)
	size += vectorMUS{}.Size(c.Embedding)
	size += optTimeMUS{}.Size(c.EffectiveFrom)
	size += optTimeMUS{}.Size(c.EffectiveTo)
	size += ord.String.Size(c.CreatedBy)
	size += timeMUS{}.Size(c.CreatedAt)
	size += ord.String.Size(c.UpdatedBy)
	size += timeMUS{}.Size(c.UpdatedAt)
	return size
}

func (s chunkMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

// tombstoneMUS serializes a Tombstone.
type tombstoneMUS struct{}

func (tombstoneMUS) Marshal(t Tombstone, bs []byte) (n int) {
	n = RowIDMUS.Marshal(t.RowID, bs)
	n += ord.String.Marshal(t.CollectionID, bs[n:])
	n += ord.String.Marshal(t.ChunkID, bs[n:])
	n += ord.String.Marshal(t.DeletedBy, bs[n:])
	n += timeMUS{}.Marshal(t.DeletedAt, bs[n:])
	return n
}

func (tombstoneMUS) Unmarshal(bs []byte) (t Tombstone, n int, err error) {
	var n1 int
	if t.RowID, n, err = RowIDMUS.Unmarshal(bs); err != nil {
		return
	}
	if t.CollectionID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.ChunkID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.DeletedBy, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.DeletedAt, n1, err = (timeMUS{}).Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	return t, n, nil
}

func (tombstoneMUS) Size(t Tombstone) (size int) {
	size = RowIDMUS.Size(t.RowID)
	size += ord.String.Size(t.CollectionID)
	size += ord.String.Size(t.ChunkID)
	size += ord.String.Size(t.DeletedBy)
	size += timeMUS{}.Size(t.DeletedAt)
	return size
}

func (s tombstoneMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}
