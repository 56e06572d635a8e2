package iarray

// Searching and stepping. Each public method returns a canonical entry:
// trailing slots of multi-index entries are never reported on their own.
// Retry markers are passed through; clients of the cursor API check them
// with Cursor.Retry.

// Load returns the entry covering the cursor's index, positioning the
// cursor on it.
func (c *Cursor) Load() Entry {
	return deref(c.load())
}

// Reload re-reads the entry at the cursor's current position without
// walking the trie again.
func (c *Cursor) Reload() Entry {
	if c.state != StateActive {
		return Empty
	}
	return deref(c.reload())
}

// Retry is true if e is a retry marker. The cursor is then reset and the
// caller should repeat its last operation.
func (c *Cursor) Retry(e Entry) bool {
	if !e.IsRetry() {
		return false
	}
	c.node = nil
	c.state = StateRestart
	return true
}

// moveIndex sets the index to the first index of slot offset in the
// cursor's node. Index bits below the slot are cleared.
func (c *Cursor) moveIndex(offset int) {
	shift := c.node.shift
	c.index &= ^uint64(ChunkMask) << shift
	c.index += uint64(offset) << shift
}

func (c *Cursor) nextOffset() {
	c.offset++
	c.moveIndex(c.offset)
}

// Find returns the next non-empty entry at or after the cursor's index
// and not beyond max. On the first call the entry covering the index
// itself qualifies. When there is no such entry, Find returns Empty and
// the cursor enters StateBounds (nothing beyond) or StateRestart (max
// exceeded).
func (c *Cursor) Find(max uint64) Entry {
	return deref(c.find(max))
}

func (c *Cursor) find(max uint64) *Entry {
	if c.isError() || c.state == StateBounds {
		return nil
	}
	if c.index > max {
		return c.setBounds()
	}
	if c.state == StateActive && c.node == nil {
		c.index = 1
		return c.setBounds()
	} else if c.state == StateRestart {
		e := c.load()
		if e != nil || c.notNode() {
			if e == nil && c.state == StateActive {
				c.setBounds()
			}
			return e
		}
	} else if c.node.isLeaf() && c.offset != int(c.index&ChunkMask) {
		c.offset = int((c.index-1)&ChunkMask) + 1
	}
	c.nextOffset()
	for c.node != nil && c.index <= max {
		if c.offset == ChunkSize {
			c.offset = int(c.node.offset) + 1
			c.node = c.node.parentNode()
			continue
		}
		e := c.node.slot(c.offset)
		if isNode(e) {
			c.node = c.a.nodeOf(e)
			c.offset = 0
			continue
		}
		if e != nil && !isSibling(e) {
			return e
		}
		c.nextOffset()
	}
	if c.node == nil {
		c.setBounds()
	}
	return nil
}

// FindTagged returns the next entry at or after the cursor's index and not
// beyond max which carries tag t. Subtrees without t are skipped.
func (c *Cursor) FindTagged(max uint64, t Tag) Entry {
	t.mustBeValid()
	return deref(c.findTagged(max, t))
}

func (c *Cursor) findTagged(max uint64, t Tag) *Entry {
	advance := true
	if c.isError() {
		return nil
	}
	if c.index > max {
		goto overMax
	}
	if c.state == StateActive && c.node == nil {
		c.index = 1
		goto out
	} else if c.isTop() {
		advance = false
		e := c.a.head.Load()
		c.node = nil
		c.state = StateActive
		if c.index > maxIndex(c.a, e) {
			goto out
		}
		if !isNode(e) {
			if c.a.tagged(t) && e != nil {
				return e
			}
			c.index = 1
			goto out
		}
		c.node = c.a.nodeOf(e)
		c.descents++
		c.offset = int(c.index >> c.node.shift)
	}
	for c.index <= max {
		if c.offset == ChunkSize {
			c.offset = int(c.node.offset) + 1
			c.node = c.node.parentNode()
			if c.node == nil {
				break
			}
			advance = false
			continue
		}
		if !advance {
			e := c.node.slot(c.offset)
			if isSibling(e) {
				c.offset = siblingOffset(e)
				c.moveIndex(c.offset)
			}
		}
		from := c.offset
		if advance {
			from++
		}
		offset := c.node.findTag(from, t)
		if offset > c.offset {
			advance = false
			c.moveIndex(offset)
			if c.index-1 >= max { // also catches wrap-around to 0
				goto overMax
			}
			c.offset = offset
			if offset == ChunkSize {
				continue
			}
		}
		e := c.node.slot(c.offset)
		if e == nil || isSibling(e) {
			advance = true
			continue
		}
		if !isNode(e) {
			return e
		}
		c.node = c.a.nodeOf(e)
		c.descents++
		c.offset = getOffset(c.index, c.node)
	}
out:
	if c.index > max {
		goto overMax
	}
	return c.setBounds()
overMax:
	c.node = nil
	c.state = StateRestart
	return nil
}

// FindConflict returns the next entry occupying any index of the cursor's
// range. When there is none, FindConflict returns Empty and leaves the
// cursor positioned for a subsequent Store.
func (c *Cursor) FindConflict() Entry {
	return deref(c.findConflict())
}

func (c *Cursor) findConflict() *Entry {
	if c.isError() {
		return nil
	}
	if c.state == StateActive && c.node == nil {
		return nil
	}
	if c.isTop() {
		curr := c.start()
		if curr == nil {
			return nil
		}
		for isNode(curr) {
			curr = c.descend(c.a.nodeOf(curr))
		}
		if curr != nil {
			return curr
		}
	}
	if c.node.shift > c.shift {
		return nil
	}
	for {
		if c.node.shift == c.shift {
			if c.offset&int(c.sibs) == int(c.sibs) {
				break
			}
		} else if c.offset == ChunkMask {
			c.offset = int(c.node.offset)
			c.node = c.node.parentNode()
			if c.node == nil {
				break
			}
			continue
		}
		c.offset++
		curr := c.node.slot(c.offset)
		if isSibling(curr) {
			continue
		}
		for isNode(curr) {
			c.node = c.a.nodeOf(curr)
			c.offset = 0
			curr = c.node.slot(0)
		}
		if curr != nil {
			return curr
		}
	}
	c.offset -= int(c.sibs)
	return nil
}

// Next moves the cursor to the following index and returns its entry. From
// StateBounds at the last index, Next wraps around to index 0.
func (c *Cursor) Next() Entry {
	return deref(c.next())
}

func (c *Cursor) next() *Entry {
	if !c.frozen() {
		c.index++
	}
	if c.state == StateActive && c.node == nil {
		return c.setBounds()
	}
	if c.notNode() {
		return c.load()
	}
	if c.offset != getOffset(c.index-1, c.node) {
		// the last step landed on a trailing slot of a multi-index entry
		c.offset = getOffset(c.index-1, c.node)
	}
	if c.offset != getOffset(c.index, c.node) {
		c.offset++
	}
	for c.offset == ChunkSize {
		c.offset = int(c.node.offset) + 1
		c.node = c.node.parentNode()
		if c.node == nil {
			return c.setBounds()
		}
	}
	return c.walkDown()
}

// Prev moves the cursor to the preceding index and returns its entry. From
// index 0, Prev wraps around to the last index in StateBounds.
func (c *Cursor) Prev() Entry {
	return deref(c.prev())
}

func (c *Cursor) prev() *Entry {
	if !c.frozen() {
		c.index--
	}
	if c.state == StateActive && c.node == nil {
		return c.setBounds()
	}
	if c.notNode() {
		return c.load()
	}
	if c.offset != getOffset(c.index+1, c.node) {
		c.offset = getOffset(c.index+1, c.node)
	}
	if c.offset != getOffset(c.index, c.node) {
		c.offset--
	}
	for c.offset == -1 {
		c.offset = int(c.node.offset) - 1
		c.node = c.node.parentNode()
		if c.node == nil {
			return c.setBounds()
		}
	}
	return c.walkDown()
}

// walkDown descends from the cursor's slot to the entry covering its index.
func (c *Cursor) walkDown() *Entry {
	for {
		e := c.node.slot(c.offset)
		if isSibling(e) {
			c.offset = siblingOffset(e)
			e = c.node.slot(c.offset)
			if c.node.shift > 0 && isNode(e) {
				return retryEntry
			}
		}
		if !isNode(e) {
			return e
		}
		c.node = c.a.nodeOf(e)
		c.offset = getOffset(c.index, c.node)
	}
}
