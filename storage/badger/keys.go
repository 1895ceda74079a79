package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/chunkstore/core"
	"github.com/poiesic/chunkstore/storage"
)

// Key prefixes for different data types. Each index family (lexical,
// vector) carries its own chunk rows, collection index, tombstone
// markers and tombstone journal.
const (
	collectionPrefix = "colrec"

	lexChunkPrefix    = "lexrec"
	lexChunkColPrefix = "lexcol"
	lexChunkSeq       = "lexrecseq"
	lexMarkerPrefix   = "lexdel"
	lexJournalPrefix  = "lexdelrec"
	lexTombstoneSeq   = "lexdelseq"
	vecChunkPrefix    = "vecrec"
	vecChunkColPrefix = "veccol"
	vecChunkSeq       = "vecrecseq"
	vecMarkerPrefix   = "vecdel"
	vecJournalPrefix  = "vecdelrec"
	vecTombstoneSeq   = "vecdelseq"
)

// family bundles the key prefixes and sequence names of one index
// family.
type family struct {
	chunkPrefix   string
	colPrefix     string
	chunkSeq      string
	markerPrefix  string
	journalPrefix string
	tombstoneSeq  string
}

var families = map[storage.Index]family{
	storage.Lexical: {
		chunkPrefix:   lexChunkPrefix,
		colPrefix:     lexChunkColPrefix,
		chunkSeq:      lexChunkSeq,
		markerPrefix:  lexMarkerPrefix,
		journalPrefix: lexJournalPrefix,
		tombstoneSeq:  lexTombstoneSeq,
	},
	storage.Vector: {
		chunkPrefix:   vecChunkPrefix,
		colPrefix:     vecChunkColPrefix,
		chunkSeq:      vecChunkSeq,
		markerPrefix:  vecMarkerPrefix,
		journalPrefix: vecJournalPrefix,
		tombstoneSeq:  vecTombstoneSeq,
	},
}

// familyFor resolves an index family, failing on unknown values.
func familyFor(ix storage.Index) (family, error) {
	fam, ok := families[ix]
	if !ok {
		return family{}, fmt.Errorf("%w: %d", storage.ErrUnknownIndex, ix)
	}
	return fam, nil
}

// makeCollectionKey generates a key for a collection record.
func makeCollectionKey(collectionID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", collectionPrefix, collectionID))
}

// makeChunkKey generates a primary key for a chunk row.
func makeChunkKey(fam family, id core.RowID) []byte {
	return []byte(fmt.Sprintf("%s:%d", fam.chunkPrefix, id))
}

// makeChunkColKey generates a composite key for the collection index.
// Format: prefix:collectionID:rowID
func makeChunkColKey(fam family, collectionID string, id core.RowID) []byte {
	prefix := fam.colPrefix + ":" + collectionID + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeChunkColPrefix generates the scan prefix for one collection's
// chunk rows.
func makeChunkColPrefix(fam family, collectionID string) []byte {
	return []byte(fam.colPrefix + ":" + collectionID + ":")
}

// makeMarkerKey generates the tombstone marker key for a chunk.
// Its existence is what hides a chunk from retrieval.
func makeMarkerKey(fam family, collectionID, chunkID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", fam.markerPrefix, collectionID, chunkID))
}

// makeJournalKey generates a key for a tombstone journal row.
// RowIDs are BigEndian so iteration order is append order.
func makeJournalKey(fam family, id core.RowID) []byte {
	prefix := fam.journalPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
