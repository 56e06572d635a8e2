/*
Package iarray implements an indexed array: a sparse, concurrently readable
map from unsigned integer indices to entries.

Indexed Arrays

An indexed array behaves like a huge array of entries, almost all of which
are empty. Internally it is a trie of nodes with a fan-out of 64. Each level
consumes 6 bits of the index, the lowest level being the leaves. The trie
only grows as high as the largest stored index requires, and shrinks again
when entries are erased.

An index may hold an integer (Value), an opaque comparable reference
(Pointer), or nothing. Entries may span 2^k consecutive indices, aligned to
2^k ("multi-index entries"). Loading any index covered by such an entry
returns the entry itself.

Every index carries three independent boolean tags. Nodes aggregate the
tags of their children, which lets searches for tagged entries skip whole
subtrees.

Concurrency

Modifications are serialized by a lock per array. Readers never lock: nodes
are published with atomic stores, and nodes removed from the trie are
recycled only after a grace period, i.e. after every reader which might
still be looking at them has left its read-side section. Readers that
stumble upon a removed node find retry markers in its slots and restart
their walk from the top.

Most clients will use the methods of Array, which take care of locking and
read-side sections. Clients that need to combine several steps atomically
use a Cursor together with Array.Lock/Unlock (writers) or Array.View
(readers).

Memory

Nodes are taken from an arena with an optional budget. When a modification
needs a node and the budget is exhausted, the modification fails without
changing any entry and reports ErrNoMemory. Cursor.Nomem lets a caller wait
for memory out of band and retry.

_________________________________________________________________________

BSD 3-Clause License

Copyright (c) 2026, Norbert Pillmayer

All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are met:

1. Redistributions of source code must retain the above copyright notice, this
list of conditions and the following disclaimer.

2. Redistributions in binary form must reproduce the above copyright notice,
this list of conditions and the following disclaimer in the documentation
and/or other materials provided with the distribution.

3. Neither the name of the copyright holder nor the names of its
contributors may be used to endorse or promote products derived from
this software without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE LIABLE
FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL
DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER
CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY,
OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.

*/
package iarray

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'iarray'
func tracer() tracing.Trace {
	return tracing.Select("iarray")
}

const (
	// ChunkShift is the number of index bits consumed per trie level.
	ChunkShift = 6
	// ChunkSize is the fan-out of a node.
	ChunkSize = 1 << ChunkShift
	// ChunkMask masks the slot bits of an index.
	ChunkMask = ChunkSize - 1
	// MaxOrder is the largest order of a multi-index entry; an entry of
	// MaxOrder covers every index.
	MaxOrder = 64
	// maxShift is the shift of the highest possible node.
	maxShift = 60
)

func assert(condition bool, msg string) {
	if !condition {
		panic(msg)
	}
}
