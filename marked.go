package iarray

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// TaggedSet returns the set of indices in [first, last] which carry tag t.
// Multi-index entries contribute every index they cover within the range.
func (a *Array) TaggedSet(t Tag, first, last uint64) *roaring64.Bitmap {
	t.mustBeValid()
	bm := roaring64.New()
	a.View(func() {
		c := a.NewCursor(first)
		for range c.RangeTagged(last, t) {
			from, to := c.span()
			addRange(bm, max(from, first), min(to, last))
		}
	})
	return bm
}

// OccupiedSet returns the set of occupied indices in [first, last].
func (a *Array) OccupiedSet(first, last uint64) *roaring64.Bitmap {
	bm := roaring64.New()
	a.View(func() {
		c := a.NewCursor(first)
		for range c.Range(last) {
			from, to := c.span()
			addRange(bm, max(from, first), min(to, last))
		}
	})
	return bm
}

// addRange adds the closed interval [from, to].
func addRange(bm *roaring64.Bitmap, from, to uint64) {
	if from > to {
		return
	}
	if to == math.MaxUint64 {
		bm.AddRange(from, to)
		bm.Add(to)
		return
	}
	bm.AddRange(from, to+1)
}
