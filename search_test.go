package iarray

import (
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func collectIndices(seq func(func(uint64, Entry) bool)) []uint64 {
	var indices []uint64
	for index := range seq {
		indices = append(indices, index)
	}
	return indices
}

func TestSearchFromUnalignedStart(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "iarray")
	defer teardown()

	a := newArray(t, Config{})
	mustStore(t, a, 3288, 0, Value(3288))
	if got := collectIndices(a.All(3197, 3297)); !slices.Equal(got, []uint64{3288}) {
		t.Fatalf("All(3197, 3297) = %v", got)
	}
	if i, e, ok := a.Find(3197, 3297, AnyEntry); !ok || i != 3288 || !e.Equal(Value(3288)) {
		t.Fatalf("Find(3197) = %d %s %v", i, e, ok)
	}
	mustStore(t, a, 3200, 0, Value(3200))
	a.SetTag(3200, Tag0)
	a.SetTag(3288, Tag0)
	if got := collectIndices(a.Tagged(Tag0, 3197, 5000)); !slices.Equal(got, []uint64{3200, 3288}) {
		t.Fatalf("Tagged(3197, 5000) = %v", got)
	}
	if n := a.TaggedSet(Tag0, 3197, 5000).GetCardinality(); n != 2 {
		t.Fatalf("tagged set has %d members, expected 2", n)
	}
	if n := a.OccupiedSet(3201, 1<<20).GetCardinality(); n != 1 {
		t.Fatalf("occupied set has %d members, expected 1", n)
	}
	a.View(func() {
		c := a.NewCursor(3197)
		var got []uint64
		for range c.Range(5000) {
			got = append(got, c.Index())
		}
		if !slices.Equal(got, []uint64{3200, 3288}) {
			t.Errorf("range from 3197 = %v", got)
		}
	})
}

func TestSearchReportsEntryStart(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "iarray")
	defer teardown()

	a := newArray(t, Config{})
	mustStore(t, a, 4, 2, Value(4))
	mustStore(t, a, 64, 0, Value(64))
	a.SetTag(4, Tag1)
	if i, e, ok := a.Find(5, 100, AnyEntry); !ok || i != 4 || !e.Equal(Value(4)) {
		t.Fatalf("Find(5) = %d %s %v", i, e, ok)
	}
	if got := collectIndices(a.All(6, 100)); !slices.Equal(got, []uint64{4, 64}) {
		t.Fatalf("All(6, 100) = %v", got)
	}
	if got := collectIndices(a.Tagged(Tag1, 7, 100)); !slices.Equal(got, []uint64{4}) {
		t.Fatalf("Tagged(7, 100) = %v", got)
	}
	if n := a.TaggedSet(Tag1, 5, 100).GetCardinality(); n != 3 {
		t.Fatalf("tagged set from 5 has %d members, expected 3", n)
	}
	a.View(func() {
		c := a.NewCursor(6)
		for e := range c.Range(100) {
			if !e.Equal(Value(4)) || c.Index() != 4 || c.Start() != 4 {
				t.Errorf("range from 6 yields %s at index %d, start %d", e, c.Index(), c.Start())
			}
			break
		}
		c = a.NewCursor(7)
		var got []uint64
		for range c.RangeTagged(100, Tag1) {
			got = append(got, c.Index())
		}
		if !slices.Equal(got, []uint64{4}) {
			t.Errorf("tagged range from 7 = %v", got)
		}
	})
}

// checkSearches compares the search operations for [from, last] against
// model, which maps occupied indices to their Tag0 bit. Every stored
// entry has its index as value.
func checkSearches(t *testing.T, a *Array, model map[uint64]bool, from, last uint64) {
	t.Helper()
	var all, tagged []uint64
	for _, index := range slices.Sorted(maps.Keys(model)) {
		if index >= from && index <= last {
			all = append(all, index)
			if model[index] {
				tagged = append(tagged, index)
			}
		}
	}
	var got []uint64
	for index, e := range a.All(from, last) {
		if !e.Equal(Value(index)) {
			t.Fatalf("All(%d, %d): %s at %d", from, last, e, index)
		}
		got = append(got, index)
	}
	if !slices.Equal(got, all) {
		t.Fatalf("All(%d, %d) = %v, expected %v", from, last, got, all)
	}
	if got = collectIndices(a.Tagged(Tag0, from, last)); !slices.Equal(got, tagged) {
		t.Fatalf("Tagged(%d, %d) = %v, expected %v", from, last, got, tagged)
	}
	index, e, ok := a.Find(from, last, AnyEntry)
	if ok != (len(all) > 0) || ok && (index != all[0] || !e.Equal(Value(index))) {
		t.Fatalf("Find(%d, %d) = %d %s %v, expected %v", from, last, index, e, ok, all)
	}
	set := a.TaggedSet(Tag0, from, last)
	if set.GetCardinality() != uint64(len(tagged)) {
		t.Fatalf("TaggedSet(%d, %d) has %d members, expected %v", from, last, set.GetCardinality(), tagged)
	}
	for _, index := range tagged {
		if !set.Contains(index) {
			t.Fatalf("TaggedSet(%d, %d) misses %d", from, last, index)
		}
	}
	if n := a.OccupiedSet(from, last).GetCardinality(); n != uint64(len(all)) {
		t.Fatalf("OccupiedSet(%d, %d) has %d members, expected %d", from, last, n, len(all))
	}
}

func TestSearchAgainstModel(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "iarray")
	defer teardown()

	rng := rand.New(rand.NewPCG(17, 4))
	randomIndex := func() uint64 {
		if rng.IntN(50) == 0 {
			return 1<<40 + uint64(rng.IntN(256))
		}
		return uint64(rng.IntN(1 << 16))
	}
	a := newArray(t, Config{})
	model := make(map[uint64]bool)
	for step := 0; step < 3000; step++ {
		index := randomIndex()
		switch rng.IntN(5) {
		case 0, 1, 2:
			if _, ok := model[index]; ok {
				break
			}
			mustStore(t, a, index, 0, Value(index))
			model[index] = rng.IntN(3) == 0
			if model[index] {
				a.SetTag(index, Tag0)
			}
		case 3:
			a.Erase(index)
			delete(model, index)
		case 4:
			a.ClearTag(index, Tag0)
			if _, ok := model[index]; ok {
				model[index] = false
			}
		}
		if step%25 != 0 {
			continue
		}
		for range 4 {
			from := randomIndex()
			last := from + uint64(rng.IntN(1<<13))
			if rng.IntN(8) == 0 {
				last = math.MaxUint64
			}
			checkSearches(t, a, model, from, last)
		}
		mustCheck(t, a)
	}
	checkSearches(t, a, model, 0, math.MaxUint64)
}
