package iarray

// NodeInfo describes a node at the time an Observer is called.
type NodeInfo struct {
	ID      uint32 // arena handle, unique among live nodes
	Shift   uint8  // index bits below the node's slots
	Offset  uint8  // slot in the parent
	Count   int    // occupied slots
	Values  int    // slots occupied by integer entries
	Removed bool   // the node has been detached from the trie
}

// OnlyValues is true if every occupied slot of the node holds an integer
// entry.
func (ni NodeInfo) OnlyValues() bool {
	return !ni.Removed && ni.Count > 0 && ni.Count == ni.Values
}

// Observer is told whenever a node starts or stops holding integer entries
// exclusively, and when such a node is removed. Observers are called with
// the array lock held and must not call back into the array.
type Observer interface {
	NodeChanged(NodeInfo)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(NodeInfo)

// NodeChanged calls f.
func (f ObserverFunc) NodeChanged(ni NodeInfo) {
	f(ni)
}

// update is called after every change of a node's occupancy.
func (c *Cursor) update(n *node) {
	obs := c.observer()
	only := n.count > 0 && n.count == n.nrValues
	if only == n.allValues {
		return
	}
	n.allValues = only
	if obs != nil {
		obs.NodeChanged(n.info(false))
	}
}

// updateRemoved is called for a node about to be released.
func (c *Cursor) updateRemoved(n *node) {
	if !n.allValues {
		return
	}
	n.allValues = false
	if obs := c.observer(); obs != nil {
		obs.NodeChanged(n.info(true))
	}
}

func (c *Cursor) observer() Observer {
	if c.updater != nil {
		return c.updater
	}
	return c.a.cfg.Observer
}
