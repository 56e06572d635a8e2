package iarray

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/guiguan/caster"
)

// NodeEventKind tells what happened to a node.
type NodeEventKind uint8

// Structural events.
const (
	NodeAdded NodeEventKind = iota
	NodeRemoved
)

func (k NodeEventKind) String() string {
	if k == NodeAdded {
		return "added"
	}
	return "removed"
}

// NodeEvent is broadcast to subscribers whenever a node is added to or
// removed from the trie.
type NodeEvent struct {
	Kind  NodeEventKind
	ID    uint32
	Shift uint8
}

func (ev NodeEvent) String() string {
	return fmt.Sprintf("node #%d (shift %d) %s", ev.ID, ev.Shift, ev.Kind)
}

// events decouples writers from subscribers: writers put events into a
// bounded queue without blocking, a forwarder publishes them.
type events struct {
	cast    *caster.Caster
	queue   chan NodeEvent
	dropped atomic.Uint64
	once    sync.Once
	active  atomic.Bool
	done    chan struct{}
}

func newEvents(capacity int) *events {
	return &events{
		cast:  caster.New(nil),
		queue: make(chan NodeEvent, capacity),
		done:  make(chan struct{}),
	}
}

func (ev *events) emit(e NodeEvent) {
	if !ev.active.Load() {
		return
	}
	select {
	case ev.queue <- e:
	default:
		ev.dropped.Add(1)
	}
}

func (ev *events) subscribe(ctx context.Context, capacity uint) (<-chan interface{}, bool) {
	ev.once.Do(func() {
		ev.active.Store(true)
		go func() {
			defer close(ev.done)
			for e := range ev.queue {
				ev.cast.Pub(e)
			}
		}()
	})
	return ev.cast.Sub(ctx, capacity)
}

// close must not race with emit; callers serialize through the array lock.
func (ev *events) close() {
	ev.once.Do(func() {}) // no forwarder from now on
	close(ev.queue)
	ev.cast.Close()
	if ev.active.Load() {
		<-ev.done
	}
}

// Subscribe returns a channel receiving NodeEvent values until ctx is done
// or the array is destroyed. It returns false if the array has not been
// configured for events. Events are queued from the first subscription on;
// events which cannot be delivered in time are dropped, see DroppedEvents.
func (a *Array) Subscribe(ctx context.Context, capacity uint) (<-chan interface{}, bool) {
	a.mu.Lock()
	ev := a.events
	a.mu.Unlock()
	if ev == nil {
		return nil, false
	}
	return ev.subscribe(ctx, capacity)
}

// DroppedEvents returns the number of structural events dropped because
// subscribers did not keep up.
func (a *Array) DroppedEvents() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.events == nil {
		return 0
	}
	return a.events.dropped.Load()
}

func (a *Array) nodeAdded(n *node) {
	tracer().Debugf("iarray: node #%d added at shift %d", n.handle, n.shift)
	if a.events != nil {
		a.events.emit(NodeEvent{Kind: NodeAdded, ID: uint32(n.handle), Shift: n.shift})
	}
}

func (a *Array) nodeRemoved(n *node) {
	tracer().Debugf("iarray: node #%d removed from shift %d", n.handle, n.shift)
	if a.events != nil {
		a.events.emit(NodeEvent{Kind: NodeRemoved, ID: uint32(n.handle), Shift: n.shift})
	}
}
