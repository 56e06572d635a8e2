package iarray

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/npillmayer/iarray/arena"
	"github.com/npillmayer/iarray/rcu"
)

// Array is an indexed array. Create one with New. All methods are safe for
// concurrent use.
type Array struct {
	mu       sync.Mutex
	locked   atomic.Bool
	head     atomic.Pointer[Entry]
	tagFlags atomic.Uint32
	nodes    *arena.Arena[node]
	grace    rcu.Domain
	retired  []arena.Handle
	events   *events
	cfg      Config
}

// New creates an empty indexed array.
func New(cfg Config) (*Array, error) {
	if err := cfg.validate(); err != nil {
		tracer().Errorf("iarray: %v", err)
		return nil, err
	}
	cfg = cfg.normalized()
	a := &Array{
		nodes: arena.New[node](cfg.MemoryLimit),
		cfg:   cfg,
	}
	if cfg.Events {
		a.events = newEvents(cfg.EventBuffer)
	}
	return a, nil
}

// Config returns the normalized configuration of the array.
func (a *Array) Config() Config {
	return a.cfg
}

// --- Locking and reclamation -----------------------------------------------

// Lock acquires the array's modification lock. It is needed for modifying
// through a Cursor.
func (a *Array) Lock() {
	a.mu.Lock()
	a.locked.Store(true)
}

// Unlock releases the modification lock. Nodes removed while the lock was
// held are recycled once all readers that might still see them are done;
// Unlock waits for that. Unlock must not be called from within View.
func (a *Array) Unlock() {
	retired := a.retired
	a.retired = nil
	if len(retired) > 0 {
		tracer().Debugf("iarray: reclaiming %d nodes", len(retired))
	}
	a.locked.Store(false)
	a.mu.Unlock()
	a.reclaim(retired)
}

// View runs fn inside a read-side section. Nodes seen by cursors within fn
// stay valid until fn returns. fn must not modify the array.
func (a *Array) View(fn func()) {
	a.grace.Read(fn)
}

func (a *Array) retire(n *node) {
	a.retired = append(a.retired, n.handle)
	a.nodeRemoved(n)
}

func (a *Array) reclaim(retired []arena.Handle) {
	if len(retired) == 0 {
		return
	}
	a.grace.Synchronize()
	for _, h := range retired {
		if err := a.nodes.Free(h); err != nil {
			tracer().Errorf("iarray: reclaim: %v", err)
		}
	}
}

// --- Simple API ------------------------------------------------------------

// Load returns the entry at index.
func (a *Array) Load(index uint64) Entry {
	var e *Entry
	a.View(func() {
		c := a.NewCursor(index)
		for {
			e = c.load()
			if !c.retry(e) {
				break
			}
		}
	})
	return deref(e)
}

// Store sets index to e and returns the previous entry. Storing Empty
// erases the index.
func (a *Array) Store(index uint64, e Entry) (Entry, error) {
	return a.StoreOrder(index, 0, e)
}

// StoreOrder sets the 2^order indices around index to e and returns the
// previous entry. index is rounded down to a multiple of 2^order. The
// returned error is ErrNoMemory if a node could not be allocated; in that
// case no entry has been modified.
func (a *Array) StoreOrder(index uint64, order uint, e Entry) (Entry, error) {
	c := a.NewCursorOrder(index, order)
	a.Lock()
	old := c.Store(e)
	a.Unlock()
	return old, c.Err()
}

// StoreWait is StoreOrder, but waits for node memory when the memory limit
// is reached, until ctx is done.
func (a *Array) StoreWait(ctx context.Context, index uint64, order uint, e Entry) (Entry, error) {
	c := a.NewCursorOrder(index, order)
	var old Entry
	for {
		a.Lock()
		old = c.Store(e)
		a.Unlock()
		if !c.Nomem(ctx) {
			break
		}
	}
	return old, c.Err()
}

// Insert stores e to the 2^order indices around index, provided all of
// them are empty. Otherwise it returns ErrExists and the array is not
// modified.
func (a *Array) Insert(index uint64, order uint, e Entry) error {
	if e.IsEmpty() {
		return fmt.Errorf("%w: inserting empty entry", ErrInvalidEntry)
	}
	c := a.NewCursorOrder(index, order)
	if err := c.Err(); err != nil {
		return err
	}
	a.Lock()
	defer a.Unlock()
	if curr := c.FindConflict(); !curr.IsEmpty() {
		return fmt.Errorf("%w: %d", ErrExists, c.Start())
	}
	c.Reset()
	c.Store(e)
	return c.Err()
}

// Erase empties index and returns the previous entry. If index is covered
// by a multi-index entry, the whole entry is erased.
func (a *Array) Erase(index uint64) Entry {
	c := a.NewCursor(index)
	a.Lock()
	defer a.Unlock()
	return c.Erase()
}

// CompareAndSwap stores new at index if the entry there equals old. It
// returns the entry found at index; the swap happened iff that entry
// equals old.
func (a *Array) CompareAndSwap(index uint64, old, new Entry) (Entry, error) {
	c := a.NewCursor(index)
	a.Lock()
	defer a.Unlock()
	curr := c.Load()
	if curr.Equal(old) {
		c.Store(new)
	}
	return curr, c.Err()
}

// SetTag sets tag t at index. Tags can only be set on occupied indices.
func (a *Array) SetTag(index uint64, t Tag) {
	t.mustBeValid()
	c := a.NewCursor(index)
	a.Lock()
	defer a.Unlock()
	if !c.Load().IsEmpty() {
		c.SetTag(t)
	}
}

// ClearTag clears tag t at index.
func (a *Array) ClearTag(index uint64, t Tag) {
	t.mustBeValid()
	c := a.NewCursor(index)
	a.Lock()
	defer a.Unlock()
	if !c.Load().IsEmpty() {
		c.ClearTag(t)
	}
}

// GetTag reports whether index carries tag t.
func (a *Array) GetTag(index uint64, t Tag) bool {
	t.mustBeValid()
	found := false
	a.View(func() {
		c := a.NewCursor(index)
		e := c.start()
		for c.GetTag(t) {
			if c.retry(e) {
				e = c.start()
				continue
			}
			if !isNode(e) {
				found = e != nil
				return
			}
			e = c.descend(a.nodeOf(e))
		}
	})
	return found
}

// CreateRange pre-allocates the nodes needed to store single entries at
// each of the 2^order indices around index. It fails with ErrNoMemory if
// the memory limit is hit; nodes created so far remain.
func (a *Array) CreateRange(index uint64, order uint) error {
	c := a.NewCursorOrder(index, order)
	if err := c.Err(); err != nil {
		return err
	}
	a.Lock()
	c.CreateRange()
	a.Unlock()
	return c.Err()
}

// IsEmpty is true if no index of the array is occupied.
func (a *Array) IsEmpty() bool {
	return a.head.Load() == nil
}

// Destroy erases all entries and releases all nodes. Subscriptions are
// closed. The array may be reused afterwards.
func (a *Array) Destroy() {
	a.Lock()
	c := a.NewCursor(0)
	if head := a.head.Load(); isNode(head) {
		c.freeNodes(a.nodeOf(head))
	}
	a.head.Store(nil)
	a.tagFlags.Store(0)
	ev := a.events
	if ev != nil {
		a.events = newEvents(a.cfg.EventBuffer)
	}
	tracer().Debugf("iarray: destroyed")
	a.Unlock()
	if ev != nil {
		ev.close()
	}
}

// Len returns the number of nodes currently allocated for the array,
// including nodes awaiting recycling.
func (a *Array) Len() int {
	return a.nodes.Len()
}

// Stats returns the occupancy of the array's node arena.
func (a *Array) Stats() arena.Stats {
	return a.nodes.Stats()
}
