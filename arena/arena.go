package arena

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/semaphore"
)

// Handle addresses an object within an arena. The zero handle is nil.
type Handle uint32

// Nil is the handle which never addresses an object.
const Nil Handle = 0

const (
	chunkShift = 6
	chunkSize  = 1 << chunkShift
	chunkMask  = chunkSize - 1
)

// maxHandles is the number of addressable objects, excluding Nil.
const maxHandles = math.MaxUint32

var (
	// ErrExhausted signals that the arena ran out of budget or handles.
	ErrExhausted = errors.New("arena: exhausted")
	// ErrInvalidHandle signals a handle which does not address a live object.
	ErrInvalidHandle = errors.New("arena: invalid handle")
)

// Arena is a slab of objects of type T. All methods are safe for concurrent
// use. At does not lock.
type Arena[T any] struct {
	mu       sync.Mutex
	chunks   atomic.Pointer[[]*[chunkSize]T]
	used     *bitset.BitSet // bit h-1 set iff handle h is live
	live     atomic.Int64
	reserved atomic.Int64
	budget   *semaphore.Weighted // nil if unlimited
	limit    int64
}

// Stats is a snapshot of arena occupancy.
type Stats struct {
	Live     int64 // objects handed out and not yet freed
	Reserved int64 // budget units reserved out of band
	Chunks   int   // allocated chunks of 64 objects
	Limit    int64 // budget; 0 means unlimited
}

// New creates an arena. If limit is greater than 0, at most limit objects
// will be live at the same time.
func New[T any](limit int64) *Arena[T] {
	a := &Arena[T]{
		used:  bitset.New(chunkSize),
		limit: limit,
	}
	if limit > 0 {
		a.budget = semaphore.NewWeighted(limit)
	}
	chunks := make([]*[chunkSize]T, 0, 4)
	a.chunks.Store(&chunks)
	return a
}

// TryAlloc returns a fresh object and its handle, or false if the budget is
// exhausted. It never blocks.
func (a *Arena[T]) TryAlloc() (Handle, *T, bool) {
	if a.budget != nil && !a.budget.TryAcquire(1) {
		tracer().Debugf("arena: budget of %d objects exhausted", a.limit)
		return Nil, nil, false
	}
	h, obj, err := a.take()
	if err != nil {
		if a.budget != nil {
			a.budget.Release(1)
		}
		return Nil, nil, false
	}
	return h, obj, true
}

// Reserve waits until n budget units are available and reserves them for
// later use by AllocReserved. It returns an error if ctx is done first.
// Reserve must not be called while holding a lock that Free depends on.
func (a *Arena[T]) Reserve(ctx context.Context, n int64) error {
	if n <= 0 {
		return nil
	}
	if a.budget != nil {
		if n > a.limit {
			return fmt.Errorf("%w: reservation of %d exceeds budget %d", ErrExhausted, n, a.limit)
		}
		if err := a.budget.Acquire(ctx, n); err != nil {
			return err
		}
	}
	a.reserved.Add(n)
	return nil
}

// Unreserve returns n unused reserved budget units.
func (a *Arena[T]) Unreserve(n int64) {
	if n <= 0 {
		return
	}
	if a.reserved.Add(-n) < 0 {
		panic("arena: more units returned than reserved")
	}
	if a.budget != nil {
		a.budget.Release(n)
	}
}

// AllocReserved returns a fresh object and consumes one reserved budget unit.
// The caller must hold a reservation made with Reserve.
func (a *Arena[T]) AllocReserved() (Handle, *T, error) {
	if a.reserved.Add(-1) < 0 {
		a.reserved.Add(1)
		return Nil, nil, fmt.Errorf("%w: no reservation", ErrExhausted)
	}
	h, obj, err := a.take()
	if err != nil {
		a.reserved.Add(1)
		return Nil, nil, err
	}
	return h, obj, nil
}

// take finds a free handle, growing the chunk table if needed. Budget is
// accounted for by the caller.
func (a *Arena[T]) take() (Handle, *T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i, ok := a.used.NextClear(0)
	if !ok {
		i = a.used.Len()
	}
	if i >= maxHandles {
		return Nil, nil, fmt.Errorf("%w: out of handles", ErrExhausted)
	}
	chunks := *a.chunks.Load()
	if int(i>>chunkShift) >= len(chunks) {
		grown := make([]*[chunkSize]T, len(chunks), len(chunks)*2+1)
		copy(grown, chunks)
		grown = append(grown, new([chunkSize]T))
		a.chunks.Store(&grown)
		chunks = grown
		tracer().Debugf("arena: grown to %d chunks", len(grown))
	}
	a.used.Set(i)
	a.live.Add(1)
	h := Handle(i + 1)
	return h, &chunks[i>>chunkShift][i&chunkMask], nil
}

// At returns the object addressed by h. It returns nil for Nil. At does not
// check whether h is live.
func (a *Arena[T]) At(h Handle) *T {
	if h == Nil {
		return nil
	}
	i := uint(h - 1)
	chunks := *a.chunks.Load()
	if int(i>>chunkShift) >= len(chunks) {
		return nil
	}
	return &chunks[i>>chunkShift][i&chunkMask]
}

// Live reports whether h addresses an object which has not been freed.
func (a *Arena[T]) Live(h Handle) bool {
	if h == Nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used.Test(uint(h - 1))
}

// Free returns the object addressed by h to the arena and releases its
// budget unit. The object must no longer be reachable by any reader.
func (a *Arena[T]) Free(h Handle) error {
	if h == Nil {
		return fmt.Errorf("%w: nil", ErrInvalidHandle)
	}
	a.mu.Lock()
	i := uint(h - 1)
	if !a.used.Test(i) {
		a.mu.Unlock()
		return fmt.Errorf("%w: %d is not live", ErrInvalidHandle, h)
	}
	a.used.Clear(i)
	a.mu.Unlock()
	a.live.Add(-1)
	if a.budget != nil {
		a.budget.Release(1)
	}
	return nil
}

// Len returns the number of live objects.
func (a *Arena[T]) Len() int {
	return int(a.live.Load())
}

// Each calls fn for every live object in handle order, until fn returns
// false. The arena is locked during the walk; fn must not call back into
// the arena.
func (a *Arena[T]) Each(fn func(Handle, *T) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	chunks := *a.chunks.Load()
	for i, ok := a.used.NextSet(0); ok; i, ok = a.used.NextSet(i + 1) {
		if !fn(Handle(i+1), &chunks[i>>chunkShift][i&chunkMask]) {
			return
		}
	}
}

// Stats returns a snapshot of the arena's occupancy.
func (a *Arena[T]) Stats() Stats {
	return Stats{
		Live:     a.live.Load(),
		Reserved: a.reserved.Load(),
		Chunks:   len(*a.chunks.Load()),
		Limit:    a.limit,
	}
}
