package iarray

import "github.com/npillmayer/iarray/arena"

// Walking and reshaping the trie. Functions in this file operate on the
// cursor's position; those that modify nodes require the array lock.

func handleOf(e *Entry) arena.Handle {
	return arena.Handle(e.val)
}

func (a *Array) nodeOf(e *Entry) *node {
	return a.nodes.At(handleOf(e))
}

// start positions the cursor for a walk and returns the entry at the head.
// An index beyond the reach of the trie moves the cursor to StateBounds.
func (c *Cursor) start() *Entry {
	if c.state == StateActive {
		return c.reload()
	}
	if c.isError() {
		return nil
	}
	e := c.a.head.Load()
	if !isNode(e) {
		if c.index != 0 {
			return c.setBounds()
		}
	} else if c.index>>c.a.nodeOf(e).shift > ChunkMask {
		return c.setBounds()
	}
	c.atHead()
	return e
}

// descend moves the cursor into n and returns the entry covering the
// cursor's index. Sibling markers are followed to their canonical slot.
func (c *Cursor) descend(n *node) *Entry {
	offset := getOffset(c.index, n)
	e := n.slot(offset)
	c.node = n
	for isSibling(e) {
		offset = siblingOffset(e)
		e = n.slot(offset)
		if n.shift > 0 && isNode(e) {
			e = retryEntry
		}
	}
	c.offset = offset
	return e
}

// load walks down to the entry covering the cursor's index. The walk stops
// early at nodes whose slots are narrower than the cursor's order.
func (c *Cursor) load() *Entry {
	e := c.start()
	for isNode(e) {
		n := c.a.nodeOf(e)
		if c.shift > n.shift {
			break
		}
		e = c.descend(n)
		if n.isLeaf() {
			break
		}
	}
	return e
}

// reload re-reads the entry at the cursor's position.
func (c *Cursor) reload() *Entry {
	n := c.node
	if n == nil {
		return c.a.head.Load()
	}
	offset := getOffset(c.index, n)
	e := n.slot(offset)
	if !isSibling(e) {
		return e
	}
	return n.slot(siblingOffset(e))
}

// retry is true if e is a retry marker, in which case the cursor is reset
// for a new walk.
func (c *Cursor) retry(e *Entry) bool {
	if !isRetry(e) {
		return false
	}
	c.node = nil
	c.state = StateRestart
	return true
}

// max returns the last index the cursor's operation has to reach.
func (c *Cursor) max() uint64 {
	m := c.index
	if c.shift > 0 || c.sibs > 0 {
		mask := (uint64(c.sibs)+1)<<c.shift - 1
		m |= mask
		if mask == m && m != ^uint64(0) {
			m++
		}
	}
	return m
}

// expand stacks new top nodes onto the trie until the cursor's range is
// addressable, and returns the shift of the slot the walk has to continue
// from. A return of -1 signals allocation failure.
func (c *Cursor) expand(head *Entry) int {
	var n *node
	shift := 0
	max := c.max()
	if head == nil {
		if max == 0 {
			return 0
		}
		for shift < maxShift && max>>shift >= ChunkSize {
			shift += ChunkShift
		}
		return shift + ChunkShift
	} else if isNode(head) {
		n = c.a.nodeOf(head)
		shift = int(n.shift) + ChunkShift
	}
	c.node = nil
	for max > maxIndex(c.a, head) {
		assert(shift <= maxShift, "iarray: trie grown beyond index width")
		n = c.alloc(uint8(shift))
		if n == nil {
			return -1
		}
		n.count = 1
		if isValue(head) {
			n.nrValues = 1
		}
		n.setSlot(0, head)
		for t := Tag0; t < MaxTags; t++ {
			if c.a.tagged(t) {
				n.setTag(0, t)
			}
		}
		if isNode(head) {
			old := c.a.nodeOf(head)
			assert(old.offset == 0, "iarray: top node with non-zero offset")
			old.parent.Store(uint32(n.handle))
		}
		head = n.entry()
		c.a.head.Store(head)
		c.update(n)
		tracer().Debugf("iarray: grown to shift %d", shift)
		shift += ChunkShift
	}
	c.node = n
	return shift
}

// create walks down to the slot for the cursor's index and order, creating
// nodes as necessary, and returns the entry currently in that slot. An
// entry for index 0 alone may live directly in the head.
func (c *Cursor) create() *Entry {
	var e *Entry
	var slotOwner *node // nil for the head
	var shift int
	order := int(c.shift)
	if c.isTop() {
		head := c.a.head.Load()
		c.atHead()
		shift = c.expand(head)
		if shift < 0 {
			return nil
		}
		e = c.a.head.Load()
		c.node = nil
		slotOwner = nil
	} else if c.isError() {
		return nil
	} else {
		slotOwner = c.node
		shift = int(slotOwner.shift)
		e = slotOwner.slot(c.offset)
	}
	for shift > order {
		shift -= ChunkShift
		var n *node
		if e == nil {
			n = c.alloc(uint8(shift))
			if n == nil {
				break
			}
			if slotOwner == nil {
				c.a.head.Store(n.entry())
			} else {
				slotOwner.setSlot(c.offset, n.entry())
			}
		} else if isNode(e) {
			n = c.a.nodeOf(e)
		} else {
			break
		}
		e = c.descend(n)
		slotOwner = n
	}
	return e
}

// retire detaches n for good: its memory is handed back to the arena after
// the next grace period.
func (c *Cursor) retire(n *node) {
	c.updateRemoved(n)
	c.a.retire(n)
}

// freeNodes retires the subtree rooted at top. Every non-empty slot is
// overwritten with a retry marker first, so that readers still walking
// the subtree restart.
func (c *Cursor) freeNodes(top *node) {
	offset := 0
	n := top
	for {
		e := n.slot(offset)
		if n.shift > 0 && isNode(e) {
			n = c.a.nodeOf(e)
			offset = 0
			continue
		}
		if e != nil {
			n.setSlot(offset, retryEntry)
		}
		offset++
		for offset == ChunkSize {
			parent := n.parentNode()
			offset = int(n.offset) + 1
			n.count = 0
			n.nrValues = 0
			c.retire(n)
			if n == top {
				return
			}
			n = parent
		}
	}
}

// deleteNode unlinks the cursor's node and its ancestors as long as they
// are empty, then tries to shrink the trie.
func (c *Cursor) deleteNode() {
	n := c.node
	for {
		assert(n.count <= ChunkSize, "iarray: node count overflow")
		if n.count > 0 {
			break
		}
		parent := n.parentNode()
		c.node = parent
		c.offset = int(n.offset)
		c.retire(n)
		if parent == nil {
			c.a.head.Store(nil)
			c.setBounds()
			return
		}
		parent.setSlot(c.offset, nil)
		parent.count--
		n = parent
		c.update(n)
	}
	if n.parentNode() == nil {
		c.shrink()
	}
}

// shrink replaces the top node by its only child, for as long as the only
// occupied slot is slot 0.
func (c *Cursor) shrink() {
	n := c.node
	for {
		if n.count != 1 {
			break
		}
		e := n.slot(0)
		if e == nil {
			break
		}
		if !isNode(e) && n.shift > 0 {
			break
		}
		c.setBounds()
		c.a.head.Store(e)
		n.count = 0
		n.nrValues = 0
		if !isNode(e) {
			n.setSlot(0, retryEntry)
		}
		c.retire(n)
		tracer().Debugf("iarray: shrunk from shift %d", n.shift)
		if !isNode(e) {
			break
		}
		n = c.a.nodeOf(e)
		n.parent.Store(0)
	}
}
