package iarray

import (
	"math"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestTagSingleEntry(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "iarray")
	defer teardown()

	for _, index := range []uint64{0, 4, 64, 4096} {
		a := newArray(t, Config{})
		if a.GetTag(index, Tag0) {
			t.Fatalf("%d: tag on empty array", index)
		}
		a.SetTag(index, Tag0)
		if a.GetTag(index, Tag0) {
			t.Fatalf("%d: tag set on empty index", index)
		}
		mustStore(t, a, index, 0, Value(index))
		a.SetTag(index, Tag0)
		if !a.GetTag(index, Tag0) {
			t.Fatalf("%d: tag not set", index)
		}
		if a.GetTag(index, Tag1) || a.GetTag(index+1, Tag0) {
			t.Fatalf("%d: tag leaked", index)
		}
		mustCheck(t, a)
		a.ClearTag(index, Tag0)
		if a.GetTag(index, Tag0) || a.tagged(Tag0) {
			t.Fatalf("%d: tag not cleared", index)
		}
		mustCheck(t, a)
		a.SetTag(index, Tag2)
		a.Erase(index)
		if a.tagged(Tag2) {
			t.Fatalf("%d: erase left the array tagged", index)
		}
		mustStore(t, a, index, 0, Value(index))
		if a.GetTag(index, Tag2) {
			t.Fatalf("%d: tag survived erase", index)
		}
		mustCheck(t, a)
	}
}

func TestTagAggregation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "iarray")
	defer teardown()

	a := newArray(t, Config{})
	for _, i := range []uint64{100, 5000, 1 << 30} {
		mustStore(t, a, i, 0, Value(i))
		a.SetTag(i, Tag1)
	}
	mustCheck(t, a)
	a.ClearTag(100, Tag1)
	if !a.tagged(Tag1) {
		t.Fatalf("array lost tag while entries carry it")
	}
	mustCheck(t, a)
	a.ClearTag(5000, Tag1)
	mustCheck(t, a)
	a.ClearTag(1<<30, Tag1)
	if a.tagged(Tag1) {
		t.Fatalf("array tagged without tagged entries")
	}
	mustCheck(t, a)
}

func TestTagsSurviveGrowth(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "iarray")
	defer teardown()

	a := newArray(t, Config{})
	mustStore(t, a, 0, 0, Value(0))
	a.SetTag(0, Tag0)
	mustStore(t, a, 1<<40, 0, Value(1))
	if !a.GetTag(0, Tag0) {
		t.Fatalf("tag lost while growing")
	}
	mustCheck(t, a)
	a.Erase(1 << 40)
	if !a.GetTag(0, Tag0) {
		t.Fatalf("tag lost while shrinking")
	}
	mustCheck(t, a)
}

func TestTagsMergeIntoMultiIndexEntry(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "iarray")
	defer teardown()

	a := newArray(t, Config{})
	mustStore(t, a, 1, 0, Value(1))
	a.SetTag(1, Tag0)
	mustStore(t, a, 2, 0, Value(2))
	a.SetTag(2, Tag1)
	x := 0
	mustStore(t, a, 0, 2, Pointer(&x))
	for i := uint64(0); i < 4; i++ {
		if !a.GetTag(i, Tag0) || !a.GetTag(i, Tag1) {
			t.Fatalf("index %d lacks merged tags", i)
		}
		if a.GetTag(i, Tag2) {
			t.Fatalf("index %d carries a tag never set", i)
		}
	}
	if a.GetTag(4, Tag0) {
		t.Fatalf("merged tag leaked beyond entry")
	}
	mustCheck(t, a)
	set := a.TaggedSet(Tag0, 0, math.MaxUint64)
	if set.GetCardinality() != 4 || !set.Contains(3) {
		t.Fatalf("tagged set %v", set.ToArray())
	}
}

func TestTaggedAndOccupiedSets(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "iarray")
	defer teardown()

	a := newArray(t, Config{})
	mustStore(t, a, 10, 0, Value(10))
	mustStore(t, a, 64, 6, Value(64))
	mustStore(t, a, math.MaxUint64, 0, Value(0))
	a.SetTag(64, Tag2)
	a.SetTag(math.MaxUint64, Tag2)

	occupied := a.OccupiedSet(0, math.MaxUint64)
	if occupied.GetCardinality() != 66 {
		t.Fatalf("occupied set has %d members", occupied.GetCardinality())
	}
	if !occupied.Contains(127) || occupied.Contains(128) || !occupied.Contains(math.MaxUint64) {
		t.Fatalf("occupied set %v", occupied.ToArray())
	}
	window := a.OccupiedSet(100, 200)
	if window.GetCardinality() != 28 || window.Minimum() != 100 {
		t.Fatalf("window set %v", window.ToArray())
	}
	tagged := a.TaggedSet(Tag2, 0, math.MaxUint64)
	if tagged.GetCardinality() != 65 || tagged.Contains(10) {
		t.Fatalf("tagged set has %d members", tagged.GetCardinality())
	}
}
