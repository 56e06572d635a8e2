package iarray

import (
	"math/bits"
	"sync/atomic"

	"github.com/npillmayer/iarray/arena"
)

// node is an interior or leaf node of the trie. Nodes live in the array's
// arena and are addressed by handle.
//
// shift and offset are set when the node is allocated and do not change
// while the node is reachable. parent, tags and slots are read by lock-free
// readers and written atomically. count, nrValues and allValues are only
// touched by the writer holding the array lock.
type node struct {
	shift     uint8 // index bits below this node's slots
	offset    uint8 // slot in parent
	count     int   // non-empty slots, including siblings
	nrValues  int   // slots covered by value entries
	allValues bool  // last reported "only values" state
	handle    arena.Handle
	parent    atomic.Uint32 // arena.Handle
	array     *Array
	self      Entry // node entry linking to this node
	tags      [MaxTags]atomic.Uint64
	slots     [ChunkSize]atomic.Pointer[Entry]
}

// reset prepares a node taken from the arena. The node must not be
// reachable by any reader.
func (n *node) reset(a *Array, h arena.Handle, shift uint8, offset uint8, parent *node) {
	n.shift = shift
	n.offset = offset
	n.count = 0
	n.nrValues = 0
	n.allValues = false
	n.handle = h
	n.array = a
	n.self = Entry{kind: KindNode, val: uint64(h)}
	if parent != nil {
		n.parent.Store(uint32(parent.handle))
	} else {
		n.parent.Store(0)
	}
	for t := range n.tags {
		n.tags[t].Store(0)
	}
	for i := range n.slots {
		n.slots[i].Store(nil)
	}
}

func (n *node) entry() *Entry {
	return &n.self
}

func (n *node) slot(offset int) *Entry {
	return n.slots[offset].Load()
}

func (n *node) setSlot(offset int, e *Entry) {
	n.slots[offset].Store(e)
}

func (n *node) parentNode() *node {
	h := arena.Handle(n.parent.Load())
	if h == arena.Nil {
		return nil
	}
	return n.array.nodes.At(h)
}

func (n *node) isLeaf() bool {
	return n.shift == 0
}

// maxIndex returns the largest index addressable below an entry found at
// the top of the trie.
func maxIndex(a *Array, e *Entry) uint64 {
	if !isNode(e) {
		return 0
	}
	return (ChunkSize << a.nodeOf(e).shift) - 1
}

// getOffset returns the slot of n which covers index.
func getOffset(index uint64, n *node) int {
	return int((index >> n.shift) & ChunkMask)
}

// --- Tags ------------------------------------------------------------------

func (n *node) getTag(offset int, tag Tag) bool {
	return n.tags[tag].Load()&(1<<offset) != 0
}

// setTag sets a slot's tag bit and reports whether it had been set already.
func (n *node) setTag(offset int, tag Tag) bool {
	bit := uint64(1) << offset
	return n.tags[tag].Or(bit)&bit != 0
}

// clearTag clears a slot's tag bit and reports whether it had been set.
func (n *node) clearTag(offset int, tag Tag) bool {
	bit := uint64(1) << offset
	return n.tags[tag].And(^bit)&bit != 0
}

func (n *node) anyTag(tag Tag) bool {
	return n.tags[tag].Load() != 0
}

// findTag returns the first slot at or after offset with tag set, or
// ChunkSize.
func (n *node) findTag(offset int, tag Tag) int {
	if offset >= ChunkSize {
		return ChunkSize
	}
	data := n.tags[tag].Load() & (^uint64(0) << offset)
	if data == 0 {
		return ChunkSize
	}
	return bits.TrailingZeros64(data)
}

// squashTags moves the tags of sibling slots [offset+1, offset+sibs] onto
// the canonical slot.
func (n *node) squashTags(offset int, sibs int) {
	if sibs == 0 {
		return
	}
	var mask uint64
	if sibs+1 >= ChunkSize {
		mask = ^uint64(0)
	} else {
		mask = (uint64(1)<<(sibs+1) - 1) << offset
	}
	sibMask := mask &^ (uint64(1) << offset)
	for t := range n.tags {
		if n.tags[t].Load()&sibMask == 0 {
			continue
		}
		n.tags[t].Or(uint64(1) << offset)
		n.tags[t].And(^sibMask)
	}
}

// --- Node information for observers ----------------------------------------

func (n *node) info(removed bool) NodeInfo {
	return NodeInfo{
		ID:      uint32(n.handle),
		Shift:   n.shift,
		Offset:  n.offset,
		Count:   n.count,
		Values:  n.nrValues,
		Removed: removed,
	}
}
