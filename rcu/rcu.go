/*
Package rcu implements grace periods for read-mostly data structures.

Readers bracket their accesses with ReadLock and ReadUnlock. A writer which
has unlinked an object calls Synchronize before it recycles the object;
Synchronize returns only after every read-side section that might still
observe the object has ended. Read-side sections never block and never
wait for writers.

Readers are counted in two phases. Synchronize flips the current phase and
waits for the counter of the previous phase to drain. A reader started
after the flip can only see state published before Synchronize was called.

A goroutine must not call Synchronize while it is inside a read-side
section of the same Domain; it would wait for itself.

_________________________________________________________________________

# BSD 3-Clause License

# Copyright (c) 2026, Norbert Pillmayer

Please refer to the LICENSE file for details.
*/
package rcu

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'iarray.rcu'
func tracer() tracing.Trace {
	return tracing.Select("iarray.rcu")
}

// Token identifies the phase a read-side section has been entered in.
type Token uint32

// Domain is a grace-period domain. The zero value is ready to use.
type Domain struct {
	mu      sync.Mutex // serializes Synchronize
	phase   atomic.Uint32
	readers [2]atomic.Int64
	periods atomic.Uint64
}

// ReadLock enters a read-side section. The token must be handed to the
// matching ReadUnlock. Sections may nest.
func (d *Domain) ReadLock() Token {
	for {
		p := d.phase.Load() & 1
		d.readers[p].Add(1)
		if d.phase.Load()&1 == p {
			return Token(p)
		}
		d.readers[p].Add(-1)
	}
}

// ReadUnlock leaves a read-side section.
func (d *Domain) ReadUnlock(t Token) {
	if d.readers[t&1].Add(-1) < 0 {
		panic("rcu: unbalanced ReadUnlock")
	}
}

// Read runs fn inside a read-side section.
func (d *Domain) Read(fn func()) {
	t := d.ReadLock()
	defer d.ReadUnlock(t)
	fn()
}

// Synchronize waits until all read-side sections which were active when
// Synchronize was called have ended.
func (d *Domain) Synchronize() {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := d.phase.Add(1) - 1
	counter := &d.readers[old&1]
	for spin := 0; counter.Load() != 0; spin++ {
		switch {
		case spin < 64:
			runtime.Gosched()
		case spin < 1024:
			time.Sleep(10 * time.Microsecond)
		default:
			if spin == 1024 {
				tracer().Debugf("rcu: grace period %d waits for %d readers", d.periods.Load(), counter.Load())
			}
			time.Sleep(time.Millisecond)
		}
	}
	d.periods.Add(1)
}

// Periods returns the number of completed grace periods.
func (d *Domain) Periods() uint64 {
	return d.periods.Load()
}

// Readers returns the number of currently active read-side sections.
// The value is a snapshot and may be stale on return.
func (d *Domain) Readers() int64 {
	return d.readers[0].Load() + d.readers[1].Load()
}
