package iarray

import (
	"fmt"
	"io"
	"math"
)

// Dump writes a line-oriented description of the trie to w, one line per
// node and per occupied slot (for debugging purposes). It takes the array
// lock.
//
// Each line starts with the index range the slot covers. An array holding
// a value at index 0 and a value of order 1 at index 4 is dumped as
//
//	iarray: head node #1 tags 0 0 0
//	0-63: node #1 max 0 shift 0 count 3 values 3 tags 0 0 0
//	0: value 0 (0x0)
//	4: value 5 (0x5)
//	5: sibling (slot 4)
func (a *Array) Dump(w io.Writer) error {
	a.Lock()
	defer a.Unlock()
	d := dumper{a: a, w: w}
	head := a.head.Load()
	d.printf("iarray: head %s tags %d %d %d\n", headLabel(head),
		b2i(a.tagged(Tag0)), b2i(a.tagged(Tag1)), b2i(a.tagged(Tag2)))
	shift := 0
	if isNode(head) {
		shift = int(a.nodeOf(head).shift) + ChunkShift
	}
	d.entry(head, 0, shift)
	return d.err
}

func headLabel(e *Entry) string {
	if e == nil {
		return "empty"
	}
	return deref(e).String()
}

type dumper struct {
	a   *Array
	w   io.Writer
	err error
}

func (d *dumper) printf(format string, args ...interface{}) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}

func (d *dumper) index(index uint64, shift int) {
	switch {
	case shift == 0:
		d.printf("%d: ", index)
	case shift >= 64:
		d.printf("0-%d: ", uint64(math.MaxUint64))
	default:
		d.printf("%d-%d: ", index, index|(uint64(1)<<shift-1))
	}
}

func (d *dumper) entry(e *Entry, index uint64, shift int) {
	if e == nil {
		return
	}
	d.index(index, shift)
	switch e.kind {
	case KindNode:
		n := d.a.nodeOf(e)
		d.node(n)
		for i := 0; i < ChunkSize; i++ {
			d.entry(n.slot(i), index+uint64(i)<<n.shift, int(n.shift))
		}
	case KindValue:
		d.printf("value %d (%#x)\n", e.val, e.val)
	case KindPointer:
		d.printf("pointer %v\n", e.ptr)
	case KindSibling:
		d.printf("sibling (slot %d)\n", e.val)
	case KindRetry:
		d.printf("retry\n")
	default:
		d.printf("unknown entry %v\n", *e)
	}
}

func (d *dumper) node(n *node) {
	if p := n.parentNode(); p != nil {
		d.printf("node #%d offset %d parent #%d", n.handle, n.offset, p.handle)
	} else {
		d.printf("node #%d max %d", n.handle, n.offset)
	}
	d.printf(" shift %d count %d values %d tags", n.shift, n.count, n.nrValues)
	for t := range n.tags {
		d.printf(" %x", n.tags[t].Load())
	}
	d.printf("\n")
}
