// Package softdelete provides logical deletion of chunks.
//
// Deletion never removes rows. The Manager appends tombstones to an
// append-only journal covering both index families in one transaction;
// retrieval excludes any chunk with a tombstone. Deleting a chunk
// again, or a chunk that never existed, appends more journal rows
// without changing visibility.
package softdelete
