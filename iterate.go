package iarray

import (
	"iter"
	"math"
)

// Range iterates over the non-empty entries from the cursor's index up to
// max. Retry markers are handled internally. At each entry the cursor's
// Index is the first index of the entry's range, even if the search
// started inside it.
func (c *Cursor) Range(max uint64) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for e := c.find(max); e != nil; e = c.find(max) {
			if c.retry(e) {
				continue
			}
			c.index = c.Start()
			if !yield(*e) {
				return
			}
		}
	}
}

// RangeTagged iterates over the entries carrying tag t from the cursor's
// index up to max, positioned like Range.
func (c *Cursor) RangeTagged(max uint64, t Tag) iter.Seq[Entry] {
	t.mustBeValid()
	return func(yield func(Entry) bool) {
		for e := c.findTagged(max, t); e != nil; e = c.findTagged(max, t) {
			if c.retry(e) {
				continue
			}
			c.index = c.Start()
			if !yield(*e) {
				return
			}
		}
	}
}

// Conflicts iterates over the entries occupying any index of the cursor's
// range.
func (c *Cursor) Conflicts() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for e := c.findConflict(); e != nil; e = c.findConflict() {
			if !yield(*e) {
				return
			}
		}
	}
}

// span returns the first and last index of the entry the cursor is
// positioned on.
func (c *Cursor) span() (first, last uint64) {
	if c.node == nil {
		return 0, 0
	}
	n := c.node
	slots := 1
	for off := c.offset + 1; off < ChunkSize; off++ {
		e := n.slot(off)
		if !isSibling(e) || siblingOffset(e) != c.offset {
			break
		}
		slots++
	}
	first = c.Start()
	size := uint64(slots) << n.shift
	if size == 0 { // 64 slots of 2^60
		return first, math.MaxUint64
	}
	return first, first + size - 1
}

// --- Array level search ----------------------------------------------------

// Filter selects the entries a search reports.
type Filter struct {
	tag    Tag
	tagged bool
}

// AnyEntry selects every non-empty entry.
var AnyEntry = Filter{}

// WithTag selects entries carrying tag t.
func WithTag(t Tag) Filter {
	t.mustBeValid()
	return Filter{tag: t, tagged: true}
}

func (c *Cursor) search(max uint64, f Filter) *Entry {
	if f.tagged {
		return c.findTagged(max, f.tag)
	}
	return c.find(max)
}

// Find returns the first entry selected by f at an index in [from, last].
// The reported index is the first index of the entry's range, which lies
// before from if from is inside a multi-index entry.
func (a *Array) Find(from, last uint64, f Filter) (uint64, Entry, bool) {
	var e *Entry
	var index uint64
	a.View(func() {
		c := a.NewCursor(from)
		for {
			e = c.search(last, f)
			if !c.retry(e) {
				break
			}
		}
		index = c.Start()
	})
	if e == nil {
		return 0, Empty, false
	}
	return index, *e, true
}

// FindAfter returns the first entry selected by f which starts at an index
// in (index, last]. Iteration with Find followed by repeated FindAfter
// visits each entry once.
func (a *Array) FindAfter(index, last uint64, f Filter) (uint64, Entry, bool) {
	if index == math.MaxUint64 {
		return 0, Empty, false
	}
	var e *Entry
	var at uint64
	a.View(func() {
		c := a.NewCursor(index + 1)
		for {
			e = c.search(last, f)
			if c.state != StateActive {
				break
			}
			if c.retry(e) {
				continue
			}
			if e == nil || c.Start() > index {
				break
			}
			// started before the requested range
		}
		at = c.Start()
	})
	if e == nil {
		return 0, Empty, false
	}
	return at, *e, true
}

// All iterates over the entries at indices in [first, last], in ascending
// order, together with the first index of each entry's range. Each step is an
// independent read: the iteration sees modifications made concurrently,
// and may be combined with modifications made from within the loop.
func (a *Array) All(first, last uint64) iter.Seq2[uint64, Entry] {
	return a.iterate(first, last, AnyEntry)
}

// Tagged iterates over the entries carrying tag t at indices in
// [first, last].
func (a *Array) Tagged(t Tag, first, last uint64) iter.Seq2[uint64, Entry] {
	return a.iterate(first, last, WithTag(t))
}

func (a *Array) iterate(first, last uint64, f Filter) iter.Seq2[uint64, Entry] {
	return func(yield func(uint64, Entry) bool) {
		index, e, ok := a.Find(first, last, f)
		for ok {
			if !yield(index, e) {
				return
			}
			index, e, ok = a.FindAfter(index, last, f)
		}
	}
}

// Span returns the entry covering index together with the first and last
// index it covers. For an empty index, first and last equal index.
func (a *Array) Span(index uint64) (first, last uint64, e Entry) {
	first, last = index, index
	a.View(func() {
		c := a.NewCursor(index)
		var p *Entry
		for {
			p = c.load()
			if !c.retry(p) {
				break
			}
		}
		if p == nil {
			return
		}
		e = *p
		if c.node == nil {
			first, last = 0, 0
			return
		}
		first, last = c.span()
	})
	return first, last, e
}
