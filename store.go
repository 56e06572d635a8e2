package iarray

import "fmt"

// Store writes e to the cursor's index range and returns the entry that was
// there before. A store overlapping an existing multi-index entry replaces
// the existing entry as a whole. Tags of replaced entries are kept and
// apply to e. Storing Empty erases.
//
// If a node cannot be allocated, no entry is modified and the cursor enters
// StateNomem; see Cursor.Nomem. Store requires the array lock.
func (c *Cursor) Store(e Entry) Entry {
	c.mustBeLocked()
	if e.IsInternal() {
		c.fail(fmt.Errorf("%w: %s", ErrInvalidEntry, e))
		return Empty
	}
	return deref(c.store(boxed(e)))
}

// Erase stores Empty to the cursor's index range and returns the entry
// that was there before. Erase requires the array lock.
func (c *Cursor) Erase() Entry {
	c.mustBeLocked()
	return deref(c.store(nil))
}

func (c *Cursor) store(entry *Entry) *Entry {
	var first *Entry
	if entry != nil {
		first = c.create()
	} else {
		first = c.load()
	}
	if c.state != StateActive {
		return first
	}
	n := c.node
	if n != nil && c.shift < n.shift {
		c.sibs = 0
	}
	if first == entry && c.sibs == 0 {
		return first
	}
	next := first
	offset := c.offset
	max := c.offset + int(c.sibs)
	if n != nil && entry != nil {
		// a replaced entry may extend beyond the new one
		for max < ChunkMask {
			s := n.slot(max + 1)
			if !isSibling(s) || siblingOffset(s) < c.offset {
				break
			}
			max++
		}
	}
	if n != nil && c.sibs > 0 {
		n.squashTags(c.offset, int(c.sibs))
	}
	if entry == nil {
		c.initTags()
	}
	value := isValue(entry)
	count, values := 0, 0
	for {
		if n == nil {
			c.a.head.Store(entry)
		} else {
			n.setSlot(offset, entry)
		}
		if isNode(next) && (n == nil || n.shift > 0) {
			c.freeNodes(c.a.nodeOf(next))
		}
		if n == nil {
			break
		}
		count += b2i(next == nil) - b2i(entry == nil)
		values += b2i(!isValue(first)) - b2i(!value)
		if entry != nil {
			if offset == max {
				break
			}
			if !isSibling(entry) {
				entry = mkSibling(c.offset)
			}
		} else if offset == ChunkMask {
			break
		}
		offset++
		next = n.slot(offset)
		if !isSibling(next) {
			if entry == nil && offset > max {
				break
			}
			first = next
		}
	}
	c.updateNode(n, count, values)
	return first
}

// updateNode applies occupancy deltas to n, and deletes n if it became
// empty.
func (c *Cursor) updateNode(n *node, count, values int) {
	if n == nil || (count == 0 && values == 0) {
		return
	}
	n.count += count
	n.nrValues += values
	assert(n.count >= 0 && n.count <= ChunkSize, "iarray: node count out of range")
	assert(n.nrValues >= 0 && n.nrValues <= ChunkSize, "iarray: node value count out of range")
	c.update(n)
	if count < 0 {
		c.deleteNode()
	}
}

// CreateRange makes sure all nodes exist which are needed to store single
// entries at every index of the cursor's range, without storing anything.
// On allocation failure the cursor enters StateNomem; nodes created so far
// remain. The cursor's index and order are unchanged. CreateRange requires
// the array lock.
func (c *Cursor) CreateRange() {
	c.mustBeLocked()
	if c.isError() {
		return
	}
	index, shift, sibs := c.index, c.shift, c.sibs
	last := index | ((uint64(sibs)+1)<<shift - 1)
	c.shift, c.sibs = 0, 0
	defer func() {
		c.index, c.shift, c.sibs = index, shift, sibs
		if c.state == StateActive {
			c.Reset()
		}
	}()
	for chunk := index &^ ChunkMask; ; chunk += ChunkSize {
		end := chunk | ChunkMask
		if end > last {
			end = last
		}
		c.index = end
		c.Reset()
		c.create()
		if c.isError() {
			return
		}
		if end == last {
			return
		}
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
