package softdelete

import "errors"

var (
	// ErrTombstoneRepositoryRequired is returned when a tombstone repository is not provided.
	ErrTombstoneRepositoryRequired = errors.New("tombstone repository required")
)
