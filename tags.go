package iarray

import "fmt"

// Tag selects one of the boolean tag planes.
type Tag uint8

// Tag planes.
const (
	Tag0 Tag = iota
	Tag1
	Tag2
	// MaxTags is the number of tag planes.
	MaxTags
)

func (t Tag) String() string {
	return fmt.Sprintf("tag%d", uint8(t))
}

func (t Tag) mustBeValid() {
	assert(t < MaxTags, "iarray: invalid tag")
}

// tagged reports the array-level aggregate of tag t.
func (a *Array) tagged(t Tag) bool {
	return a.tagFlags.Load()&(1<<t) != 0
}

func (a *Array) setTagged(t Tag) {
	a.tagFlags.Or(1 << t)
}

func (a *Array) clearTagged(t Tag) {
	a.tagFlags.And(^uint32(1 << t))
}

// GetTag reports whether the entry at the cursor's position carries tag t.
// The cursor must have been positioned by a load or a step.
func (c *Cursor) GetTag(t Tag) bool {
	t.mustBeValid()
	if c.state != StateActive {
		return false
	}
	if c.node == nil {
		return c.a.tagged(t)
	}
	return c.node.getTag(c.offset, t)
}

// SetTag sets tag t on the entry at the cursor's position and on all of its
// ancestors. The cursor must have been positioned by a load or a step.
// SetTag requires the array lock.
func (c *Cursor) SetTag(t Tag) {
	c.mustBeLocked()
	t.mustBeValid()
	if c.state != StateActive {
		return
	}
	n, offset := c.node, c.offset
	for n != nil {
		if n.setTag(offset, t) {
			return
		}
		offset = int(n.offset)
		n = n.parentNode()
	}
	if !c.a.tagged(t) {
		c.a.setTagged(t)
	}
}

// ClearTag clears tag t from the entry at the cursor's position. Ancestors
// lose the tag when none of their other children carry it. ClearTag
// requires the array lock.
func (c *Cursor) ClearTag(t Tag) {
	c.mustBeLocked()
	t.mustBeValid()
	c.clearTag(t)
}

func (c *Cursor) clearTag(t Tag) {
	if c.state != StateActive {
		return
	}
	n, offset := c.node, c.offset
	for n != nil {
		if !n.clearTag(offset, t) {
			return
		}
		if n.anyTag(t) {
			return
		}
		offset = int(n.offset)
		n = n.parentNode()
	}
	if c.a.tagged(t) {
		c.a.clearTagged(t)
	}
}

// initTags clears all tags at the cursor's position.
func (c *Cursor) initTags() {
	for t := Tag0; t < MaxTags; t++ {
		c.clearTag(t)
	}
}
