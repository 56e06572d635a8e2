package iarray

import "errors"

var (
	// ErrInvalidConfig signals an invalid array configuration.
	ErrInvalidConfig = errors.New("iarray: invalid configuration")
	// ErrNoMemory signals that a node could not be allocated. It is transient:
	// nothing has been modified and the operation may be retried.
	ErrNoMemory = errors.New("iarray: out of node memory")
	// ErrExists signals that an insert found an occupied index.
	ErrExists = errors.New("iarray: index occupied")
	// ErrInvalidOrder signals a multi-index order beyond MaxOrder.
	ErrInvalidOrder = errors.New("iarray: invalid order")
	// ErrInvalidEntry signals an attempt to store an internal entry.
	ErrInvalidEntry = errors.New("iarray: invalid entry")
	// ErrCorrupt is reported by Check for a violated structural invariant.
	ErrCorrupt = errors.New("iarray: corrupt structure")
)
