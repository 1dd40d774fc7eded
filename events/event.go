/*
 * nodeengine
 *
 * Package events implements the event bus: ordered events tagged with a
 * logical (tick, micro, seq) time, delivered to their own targets, bubbled
 * one hop to the parent chain, and fanned out to filter-matched
 * subscribers. The bounded event log is built directly on
 * devt.de/krotik/common/datautil.RingBuffer, the same structure the
 * teacher uses for its own bounded print/log buffers.
 */
package events

import (
	"github.com/krotik/nodeengine/ids"
)

/*
EventTime is a lexicographic (tick, micro, seq) triple. It orders strictly
by tick, then micro, then seq (invariant 6).
*/
type EventTime struct {
	Tick  uint64
	Micro uint64
	Seq   uint64
}

/*
Less reports whether t orders strictly before o.
*/
func (t EventTime) Less(o EventTime) bool {
	if t.Tick != o.Tick {
		return t.Tick < o.Tick
	}
	if t.Micro != o.Micro {
		return t.Micro < o.Micro
	}
	return t.Seq < o.Seq
}

func (t EventTime) String() string {
	return itoa(t.Tick) + "." + itoa(t.Micro) + "." + itoa(t.Seq)
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

/*
Kind discriminates an Event's payload.
*/
type Kind int

const (
	ParamChanged Kind = iota
	ChildAdded
	ChildRemoved
	ChildReplaced
	ChildMoved
	ChildReordered
	NodeCreated
	NodeDeleted
	MetaChanged
)

func (k Kind) String() string {
	switch k {
	case ParamChanged:
		return "ParamChanged"
	case ChildAdded:
		return "ChildAdded"
	case ChildRemoved:
		return "ChildRemoved"
	case ChildReplaced:
		return "ChildReplaced"
	case ChildMoved:
		return "ChildMoved"
	case ChildReordered:
		return "ChildReordered"
	case NodeCreated:
		return "NodeCreated"
	case NodeDeleted:
		return "NodeDeleted"
	case MetaChanged:
		return "MetaChanged"
	}
	return "Unknown"
}

/*
Payload carries the kind-specific fields of an Event. Only the fields
relevant to Kind are populated; see OwnTargets and BubbleSource.
*/
type Payload struct {
	// ParamChanged
	Param ids.NodeId
	Value interface{} // values.Value, held as interface{}

	// ChildAdded / ChildRemoved / ChildReordered
	ParentNode ids.NodeId
	Child      ids.NodeId

	// ChildReplaced
	Old ids.NodeId
	New ids.NodeId

	// ChildMoved
	OldParent ids.NodeId
	NewParent ids.NodeId

	// NodeCreated / NodeDeleted / MetaChanged
	Node ids.NodeId

	// MetaChanged
	MetaPatch interface{} // edits.MetaPatch, held as interface{}
}

/*
Event is one logged occurrence: a logical time and a typed payload.
*/
type Event struct {
	Time EventTime
	Kind Kind
	Data Payload
}

/*
OwnTargets returns the node ids directly associated with this event, used
for "own target" delivery (own → subscriber → bubble ordering, §4.4).
*/
func (e Event) OwnTargets() []ids.NodeId {
	switch e.Kind {
	case ParamChanged:
		return []ids.NodeId{e.Data.Param}
	case ChildAdded, ChildRemoved:
		return []ids.NodeId{e.Data.ParentNode, e.Data.Child}
	case ChildReplaced:
		return []ids.NodeId{e.Data.ParentNode, e.Data.Old, e.Data.New}
	case ChildMoved:
		return []ids.NodeId{e.Data.Child, e.Data.OldParent, e.Data.NewParent}
	case ChildReordered:
		return []ids.NodeId{e.Data.ParentNode, e.Data.Child}
	case NodeCreated, NodeDeleted:
		return []ids.NodeId{e.Data.Node}
	case MetaChanged:
		return []ids.NodeId{e.Data.Node}
	}
	return nil
}

/*
BubbleSource returns the single node most semantically associated with this
event - the node whose parent's inbox receives the one-hop bubbled copy.
*/
func (e Event) BubbleSource() (ids.NodeId, bool) {
	switch e.Kind {
	case ParamChanged:
		return e.Data.Param, true
	case MetaChanged:
		return e.Data.Node, true
	case ChildAdded, ChildRemoved, ChildReordered:
		return e.Data.Child, true
	case ChildMoved:
		return e.Data.Child, true
	case ChildReplaced:
		return e.Data.New, true
	case NodeCreated, NodeDeleted:
		return e.Data.Node, true
	}
	return ids.NodeId{}, false
}

// Constructors for each event kind, keeping call sites terse and typo-free.

func NewParamChanged(param ids.NodeId, value interface{}) Payload {
	return Payload{Param: param, Value: value}
}

func NewChildAdded(parent, child ids.NodeId) Payload {
	return Payload{ParentNode: parent, Child: child}
}

func NewChildRemoved(parent, child ids.NodeId) Payload {
	return Payload{ParentNode: parent, Child: child}
}

func NewChildReplaced(parent, old, new_ ids.NodeId) Payload {
	return Payload{ParentNode: parent, Old: old, New: new_}
}

func NewChildMoved(child, oldParent, newParent ids.NodeId) Payload {
	return Payload{Child: child, OldParent: oldParent, NewParent: newParent}
}

func NewChildReordered(parent, child ids.NodeId) Payload {
	return Payload{ParentNode: parent, Child: child}
}

func NewNodeCreated(n ids.NodeId) Payload {
	return Payload{Node: n}
}

func NewNodeDeleted(n ids.NodeId) Payload {
	return Payload{Node: n}
}

func NewMetaChanged(n ids.NodeId, patch interface{}) Payload {
	return Payload{Node: n, MetaPatch: patch}
}
