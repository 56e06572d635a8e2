package iarray

import (
	"fmt"

	"github.com/npillmayer/iarray/arena"
)

// Check validates the structural invariants of the trie. It takes the array
// lock and should be used in tests.
func (a *Array) Check() error {
	if a == nil {
		return fmt.Errorf("%w: nil array", ErrCorrupt)
	}
	a.Lock()
	defer a.Unlock()
	head := a.head.Load()
	if head == nil {
		if a.tagFlags.Load() != 0 {
			return fmt.Errorf("%w: empty array with tags %03b", ErrCorrupt, a.tagFlags.Load())
		}
	}
	if isSibling(head) || isRetry(head) {
		return fmt.Errorf("%w: head holds %s", ErrCorrupt, head)
	}
	reachable := 0
	if isNode(head) {
		top := a.nodeOf(head)
		if top.parent.Load() != 0 {
			return fmt.Errorf("%w: top node #%d has a parent", ErrCorrupt, top.handle)
		}
		if top.offset != 0 {
			return fmt.Errorf("%w: top node #%d at offset %d", ErrCorrupt, top.handle, top.offset)
		}
		for t := Tag0; t < MaxTags; t++ {
			if top.anyTag(t) != a.tagged(t) {
				return fmt.Errorf("%w: array %s flag disagrees with top node", ErrCorrupt, t)
			}
		}
		if err := a.checkNode(top, &reachable); err != nil {
			return err
		}
	}
	if live := a.nodes.Len(); live != reachable {
		return fmt.Errorf("%w: %d live nodes, %d reachable", ErrCorrupt, live, reachable)
	}
	return nil
}

func (a *Array) checkNode(n *node, reachable *int) error {
	*reachable++
	if !a.nodes.Live(n.handle) {
		return fmt.Errorf("%w: node #%d is not live", ErrCorrupt, n.handle)
	}
	if n.shift > maxShift || n.shift%ChunkShift != 0 {
		return fmt.Errorf("%w: node #%d with shift %d", ErrCorrupt, n.handle, n.shift)
	}
	count, values := 0, 0
	var canonical *Entry
	for off := 0; off < ChunkSize; off++ {
		e := n.slot(off)
		switch {
		case e == nil:
			canonical = nil
		case isRetry(e):
			return fmt.Errorf("%w: retry marker in live node #%d", ErrCorrupt, n.handle)
		case isSibling(e):
			so := siblingOffset(e)
			if so >= off || canonical == nil || n.slot(so) != canonical {
				return fmt.Errorf("%w: node #%d slot %d: stray sibling of slot %d", ErrCorrupt, n.handle, off, so)
			}
			count++
			if isValue(canonical) {
				values++
			}
		case isNode(e):
			canonical = nil
			count++
			if n.isLeaf() {
				return fmt.Errorf("%w: leaf #%d links to a node", ErrCorrupt, n.handle)
			}
			child := a.nodeOf(e)
			if arena.Handle(child.parent.Load()) != n.handle || int(child.offset) != off {
				return fmt.Errorf("%w: node #%d is not linked back to #%d slot %d", ErrCorrupt, child.handle, n.handle, off)
			}
			if child.shift+ChunkShift != n.shift {
				return fmt.Errorf("%w: node #%d shift %d below shift %d", ErrCorrupt, child.handle, child.shift, n.shift)
			}
			for t := Tag0; t < MaxTags; t++ {
				if n.getTag(off, t) != child.anyTag(t) {
					return fmt.Errorf("%w: node #%d slot %d: %s does not aggregate child", ErrCorrupt, n.handle, off, t)
				}
			}
			if err := a.checkNode(child, reachable); err != nil {
				return err
			}
		default:
			canonical = e
			count++
			if isValue(e) {
				values++
			}
		}
		for t := Tag0; t < MaxTags; t++ {
			if n.getTag(off, t) && (e == nil || isSibling(e)) {
				return fmt.Errorf("%w: node #%d slot %d: %s on %s slot", ErrCorrupt, n.handle, off, t, deref(e).Kind())
			}
		}
	}
	if count != n.count {
		return fmt.Errorf("%w: node #%d counts %d, holds %d", ErrCorrupt, n.handle, n.count, count)
	}
	if values != n.nrValues {
		return fmt.Errorf("%w: node #%d counts %d values, holds %d", ErrCorrupt, n.handle, n.nrValues, values)
	}
	if n.allValues != (count > 0 && count == values) {
		return fmt.Errorf("%w: node #%d has stale value state", ErrCorrupt, n.handle)
	}
	return nil
}
