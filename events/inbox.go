package events

import "github.com/krotik/nodeengine/ids"

/*
Inbox is a per-node ordered buffer of events pending delivery to that
node's behavior.
*/
type Inbox struct {
	events []Event
}

/*
Push appends e to the inbox, preserving insertion order.
*/
func (ib *Inbox) Push(e Event) {
	ib.events = append(ib.events, e)
}

/*
Drain returns the buffered events and resets the inbox to empty. This is
the "swap out the inbox to a local vector" step of §4.5 step 4.
*/
func (ib *Inbox) Drain() []Event {
	if len(ib.events) == 0 {
		return nil
	}
	drained := ib.events
	ib.events = nil
	return drained
}

/*
Empty reports whether the inbox currently holds no events.
*/
func (ib *Inbox) Empty() bool {
	return len(ib.events) == 0
}

/*
InboxSet owns one Inbox per node id.
*/
type InboxSet struct {
	inboxes map[ids.NodeId]*Inbox
}

/*
NewInboxSet creates an empty InboxSet.
*/
func NewInboxSet() *InboxSet {
	return &InboxSet{inboxes: map[ids.NodeId]*Inbox{}}
}

/*
Push appends e to the inbox of node id, creating the inbox on first use.
*/
func (is *InboxSet) Push(id ids.NodeId, e Event) {
	ib, ok := is.inboxes[id]
	if !ok {
		ib = &Inbox{}
		is.inboxes[id] = ib
	}
	ib.Push(e)
}

/*
NonEmptyIds returns the ids of all nodes whose inbox currently holds at
least one event, in ascending-index order for determinism.
*/
func (is *InboxSet) NonEmptyIds() []ids.NodeId {
	var out []ids.NodeId
	for id, ib := range is.inboxes {
		if !ib.Empty() {
			out = append(out, id)
		}
	}
	sortNodeIds(out)
	return out
}

/*
Drain drains and returns the inbox contents for id, leaving it empty.
*/
func (is *InboxSet) Drain(id ids.NodeId) []Event {
	ib, ok := is.inboxes[id]
	if !ok {
		return nil
	}
	return ib.Drain()
}

/*
Forget discards a node's inbox entirely, used when a node is deleted.
*/
func (is *InboxSet) Forget(id ids.NodeId) {
	delete(is.inboxes, id)
}

func sortNodeIds(ids_ []ids.NodeId) {
	// simple insertion sort: inbox fan-out sizes are small per tick
	for i := 1; i < len(ids_); i++ {
		for j := i; j > 0 && less(ids_[j], ids_[j-1]); j-- {
			ids_[j], ids_[j-1] = ids_[j-1], ids_[j]
		}
	}
}

func less(a, b ids.NodeId) bool {
	if a.Index != b.Index {
		return a.Index < b.Index
	}
	return a.Generation < b.Generation
}
