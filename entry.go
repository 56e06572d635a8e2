package iarray

import (
	"fmt"
	"reflect"
)

// Kind discriminates the variants of an Entry.
type Kind uint8

// Entries are either user entries (empty, value, pointer) or internal entries
// which only appear in slots of the trie and are visible to clients of the
// advanced cursor API.
const (
	KindEmpty Kind = iota
	KindValue
	KindPointer
	KindNode
	KindSibling
	KindRetry
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindValue:
		return "value"
	case KindPointer:
		return "pointer"
	case KindNode:
		return "node"
	case KindSibling:
		return "sibling"
	case KindRetry:
		return "retry"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Entry is the content of an index. The zero Entry is empty.
//
// Clients create entries with Value or Pointer. Entries are compared with
// Equal, which compares values by number and pointers by identity.
type Entry struct {
	kind Kind
	val  uint64 // value, sibling offset or node handle
	ptr  any
}

// Empty is the empty entry.
var Empty = Entry{}

// Value creates an entry holding an unsigned integer.
func Value(v uint64) Entry {
	return Entry{kind: KindValue, val: v}
}

// Pointer creates an entry holding an opaque reference. p must not be nil
// and its dynamic type must be comparable; Pointer panics otherwise.
func Pointer(p any) Entry {
	if p == nil {
		panic("iarray: nil pointer entry")
	}
	if !reflect.TypeOf(p).Comparable() {
		panic(fmt.Sprintf("iarray: pointer entry of incomparable type %T", p))
	}
	return Entry{kind: KindPointer, ptr: p}
}

// Kind returns the variant of e.
func (e Entry) Kind() Kind { return e.kind }

// IsEmpty is true for the empty entry.
func (e Entry) IsEmpty() bool { return e.kind == KindEmpty }

// IsValue is true for integer entries.
func (e Entry) IsValue() bool { return e.kind == KindValue }

// IsPointer is true for reference entries.
func (e Entry) IsPointer() bool { return e.kind == KindPointer }

// IsRetry is true for the marker found in slots of detached nodes.
func (e Entry) IsRetry() bool { return e.kind == KindRetry }

// IsNode is true for entries linking to a child node.
func (e Entry) IsNode() bool { return e.kind == KindNode }

// IsSibling is true for the markers in the trailing slots of a multi-index
// entry.
func (e Entry) IsSibling() bool { return e.kind == KindSibling }

// IsInternal is true for entries which are never stored by clients.
func (e Entry) IsInternal() bool { return e.kind >= KindNode }

// Uint returns the integer of a value entry, and 0 for all other entries.
func (e Entry) Uint() uint64 {
	if e.kind != KindValue {
		return 0
	}
	return e.val
}

// Ref returns the reference of a pointer entry, and nil for all other
// entries.
func (e Entry) Ref() any {
	if e.kind != KindPointer {
		return nil
	}
	return e.ptr
}

// Equal is true if e and other are of the same kind and hold the same
// content.
func (e Entry) Equal(other Entry) bool {
	return e.kind == other.kind && e.val == other.val && e.ptr == other.ptr
}

func (e Entry) String() string {
	switch e.kind {
	case KindEmpty:
		return "empty"
	case KindValue:
		return fmt.Sprintf("value %d", e.val)
	case KindPointer:
		return fmt.Sprintf("pointer %v", e.ptr)
	case KindNode:
		return fmt.Sprintf("node #%d", e.val)
	case KindSibling:
		return fmt.Sprintf("sibling (slot %d)", e.val)
	case KindRetry:
		return "retry"
	}
	return "unknown entry"
}

// --- Slot contents ---------------------------------------------------------

// Slots hold *Entry; nil is the empty slot. Internal markers are shared
// instances.

var retryEntry = &Entry{kind: KindRetry}

var siblingEntries = func() (sibs [ChunkSize]Entry) {
	for i := range sibs {
		sibs[i] = Entry{kind: KindSibling, val: uint64(i)}
	}
	return
}()

func mkSibling(offset int) *Entry {
	return &siblingEntries[offset]
}

func deref(e *Entry) Entry {
	if e == nil {
		return Empty
	}
	return *e
}

// boxed returns the slot representation of a client entry.
func boxed(e Entry) *Entry {
	if e.kind == KindEmpty {
		return nil
	}
	b := new(Entry)
	*b = e
	return b
}

func isNode(e *Entry) bool    { return e != nil && e.kind == KindNode }
func isSibling(e *Entry) bool { return e != nil && e.kind == KindSibling }
func isRetry(e *Entry) bool   { return e != nil && e.kind == KindRetry }
func isValue(e *Entry) bool   { return e != nil && e.kind == KindValue }

func siblingOffset(e *Entry) int { return int(e.val) }
