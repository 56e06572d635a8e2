/*
Package arena provides a chunked slab of fixed-size objects addressed by small
integer handles.

An Arena hands out handles instead of pointers. Handle 0 is never used and
serves as the nil handle, which lets clients keep parent links in an atomic
32-bit word. Slots are organized in chunks of 64 objects; chunks never move,
so a pointer returned by At stays valid for the lifetime of the arena. The
chunk table itself is published atomically and may be read without locking.

An arena may carry a budget: a hard upper bound for the number of live
objects. Allocation against the budget never blocks. Clients which are
refused an object may reserve budget units out of band with Reserve, which
waits until other objects are freed, and later allocate against such a
reservation with AllocReserved.

Freeing an object does not clear it. Clients are expected to re-initialize
objects they get from TryAlloc or AllocReserved.

_________________________________________________________________________

# BSD 3-Clause License

# Copyright (c) 2026, Norbert Pillmayer

Please refer to the LICENSE file for details.
*/
package arena

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'iarray.arena'
func tracer() tracing.Trace {
	return tracing.Select("iarray.arena")
}
