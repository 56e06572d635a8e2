package iarray

import (
	"context"
	"fmt"

	"github.com/npillmayer/iarray/arena"
)

// State is the position state of a Cursor.
type State uint8

// A cursor starts out in StateRestart. Walking the trie moves it to
// StateActive. StateBounds means the index lies beyond the current reach of
// the trie, or an iteration ran off its end. StateNomem and StateFailed are
// error states; see Cursor.Err.
const (
	StateRestart State = iota
	StateActive
	StateBounds
	StateNomem
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRestart:
		return "restart"
	case StateActive:
		return "active"
	case StateBounds:
		return "bounds"
	case StateNomem:
		return "nomem"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Cursor is a position in an Array, together with the order of the entries
// it operates on.
//
// Reading through a cursor must happen within Array.View or while holding
// the array lock. Modifying through a cursor requires the array lock, see
// Array.Lock. A cursor must not be shared between goroutines.
type Cursor struct {
	a       *Array
	index   uint64
	shift   uint8 // order rounded down to a multiple of ChunkShift
	sibs    uint8 // trailing sibling slots of a multi-index entry
	offset  int   // slot within node
	node    *node // nil while positioned at the head
	state   State
	err     error
	credit  int64 // node memory reserved by Nomem
	updater Observer
	// walks into nodes performed by tagged searches
	descents int
}

// NewCursor creates a cursor for single-index operations at index.
func (a *Array) NewCursor(index uint64) *Cursor {
	return &Cursor{a: a, index: index}
}

// NewCursorOrder creates a cursor for entries spanning 2^order indices.
// index is rounded down to a multiple of 2^order.
func (a *Array) NewCursorOrder(index uint64, order uint) *Cursor {
	c := &Cursor{a: a}
	c.SetOrder(index, order)
	return c
}

// Index returns the current index of the cursor.
func (c *Cursor) Index() uint64 {
	return c.index
}

// State returns the position state of the cursor.
func (c *Cursor) State() State {
	return c.state
}

// Err returns the error of a failed operation, or nil. ErrNoMemory is
// reported while the cursor is in StateNomem.
func (c *Cursor) Err() error {
	switch c.state {
	case StateNomem:
		if c.err != nil {
			return c.err
		}
		return ErrNoMemory
	case StateFailed:
		return c.err
	}
	return nil
}

// Valid is true if the cursor is positioned in the trie.
func (c *Cursor) Valid() bool {
	return c.state == StateActive
}

// Order returns the order of entries the cursor operates on.
func (c *Cursor) Order() uint {
	o := uint(c.shift)
	for s := c.sibs; s > 0; s >>= 1 {
		o++
	}
	return o
}

// Reset moves the cursor back to StateRestart, keeping index and order.
// Errors are cleared.
func (c *Cursor) Reset() {
	c.node = nil
	c.offset = 0
	c.state = StateRestart
	c.err = nil
}

// Set moves the cursor to index for single-index operations.
func (c *Cursor) Set(index uint64) {
	c.index = index
	c.shift = 0
	c.sibs = 0
	c.Reset()
}

// SetOrder moves the cursor to index for entries spanning 2^order indices.
// An order beyond MaxOrder puts the cursor into StateFailed.
func (c *Cursor) SetOrder(index uint64, order uint) {
	c.Reset()
	if order > MaxOrder {
		c.fail(fmt.Errorf("%w: %d", ErrInvalidOrder, order))
		return
	}
	if order < 64 {
		c.index = (index >> order) << order
	} else {
		c.index = 0
	}
	c.shift = uint8(order - order%ChunkShift)
	c.sibs = uint8(1<<(order%ChunkShift) - 1)
}

// SetUpdate installs an observer for modifications made through this
// cursor, overriding the array's observer. nil restores the default.
func (c *Cursor) SetUpdate(obs Observer) {
	c.updater = obs
}

// Start returns the first index of the entry the cursor is positioned on.
// For a cursor at the head of the trie this is 0.
func (c *Cursor) Start() uint64 {
	if c.state != StateActive || c.node == nil {
		return 0
	}
	width := uint64(ChunkSize)<<c.node.shift - 1
	return c.index&^width + uint64(c.offset)<<c.node.shift
}

func (c *Cursor) fail(err error) {
	c.node = nil
	c.state = StateFailed
	c.err = err
}

func (c *Cursor) setBounds() *Entry {
	c.node = nil
	c.state = StateBounds
	return nil
}

// at positions the cursor at the head.
func (c *Cursor) atHead() {
	c.node = nil
	c.state = StateActive
}

func (c *Cursor) isError() bool {
	return c.state == StateNomem || c.state == StateFailed
}

// isTop is true if the cursor has to start a walk from the head.
func (c *Cursor) isTop() bool {
	return c.state == StateRestart || c.state == StateBounds ||
		(c.state == StateActive && c.node == nil)
}

// notNode is true unless the cursor is positioned at a node.
func (c *Cursor) notNode() bool {
	return c.state != StateActive || c.node == nil
}

// frozen is true if stepping must not move the index.
func (c *Cursor) frozen() bool {
	return c.state == StateRestart || c.isError()
}

func (c *Cursor) mustBeLocked() {
	assert(c.a.locked.Load(), "iarray: cursor modification without holding the array lock")
}

// --- Node memory -----------------------------------------------------------

// alloc takes a node from the arena and links it below the cursor's node.
// On exhaustion the cursor enters StateNomem.
func (c *Cursor) alloc(shift uint8) *node {
	if c.state != StateActive && c.state != StateRestart {
		return nil
	}
	var h arena.Handle
	var n *node
	if c.credit > 0 {
		var err error
		if h, n, err = c.a.nodes.AllocReserved(); err != nil {
			c.state, c.err, c.node = StateNomem, nil, nil
			return nil
		}
		c.credit--
	} else {
		var ok bool
		if h, n, ok = c.a.nodes.TryAlloc(); !ok {
			c.state, c.err, c.node = StateNomem, nil, nil
			return nil
		}
	}
	parent := c.node
	var offset uint8
	if parent != nil {
		offset = uint8(c.offset)
		parent.count++
		c.update(parent)
	}
	n.reset(c.a, h, shift, offset, parent)
	c.a.nodeAdded(n)
	return n
}

// Nomem supplies node memory after an operation failed with StateNomem.
// It waits until the array's memory budget allows one more node, keeps
// that memory for the cursor and resets the cursor for a retry; it returns
// true if the caller should retry the operation. If the cursor is not in
// StateNomem, memory kept for the cursor is released and Nomem returns false.
//
// Nomem must be called without holding the array lock.
func (c *Cursor) Nomem(ctx context.Context) bool {
	if c.state != StateNomem {
		c.release()
		return false
	}
	if err := c.a.nodes.Reserve(ctx, 1); err != nil {
		c.err = fmt.Errorf("%w: %v", ErrNoMemory, err)
		c.release()
		return false
	}
	c.credit++
	c.state = StateRestart
	c.node = nil
	c.err = nil
	return true
}

func (c *Cursor) release() {
	if c.credit > 0 {
		c.a.nodes.Unreserve(c.credit)
		c.credit = 0
	}
}
