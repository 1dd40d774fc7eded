package events

import "github.com/krotik/nodeengine/ids"

/*
DeliveryMode controls whether a subscriber receives raw events or a future
summarized form. Summarized is reserved for hosts that coalesce bursts of
ParamChanged for the same param; the bus itself always delivers Raw today,
the same way the teacher's GraphQL subscription push always ships the full
query result rather than a diff.
*/
type DeliveryMode int

const (
	Raw DeliveryMode = iota
	Summarized
)

/*
Filter is the predicate language for subscriptions (§4.4). A nil
*ids.NodeId field inside the kind-specific filters below matches any id;
a non-nil field requires equality.
*/
type Filter interface {
	Match(e Event) bool
}

/*
NodeFilter matches any event whose own-targets contain id.
*/
type NodeFilter struct{ Id ids.NodeId }

func (f NodeFilter) Match(e Event) bool {
	for _, t := range e.OwnTargets() {
		if t == f.Id {
			return true
		}
	}
	return false
}

/*
ParamFilter matches ParamChanged{param=id}. A zero Id (InvalidNodeId)
matches any param.
*/
type ParamFilter struct{ Param ids.NodeId }

func (f ParamFilter) Match(e Event) bool {
	if e.Kind != ParamChanged {
		return false
	}
	if !f.Param.IsValid() {
		return true
	}
	return e.Data.Param == f.Param
}

/*
SubtreeFilter matches any event whose own-targets lie in the subtree
rooted at Root. Resolver answers "is candidate in the subtree rooted at
root" and is supplied by the engine (backed by the tree), since package
events has no tree of its own to walk. Per the design notes, callers that
memoize this must invalidate on ChildMoved - the Bus's own Subtree
convenience (see Bus.Subscribe) does exactly that.
*/
type SubtreeFilter struct {
	Root     ids.NodeId
	Resolver func(candidate, root ids.NodeId) bool
}

func (f SubtreeFilter) Match(e Event) bool {
	if f.Resolver == nil {
		return false
	}
	for _, t := range e.OwnTargets() {
		if f.Resolver(t, f.Root) {
			return true
		}
	}
	return false
}

/*
KindFilter matches any event whose Kind equals K.
*/
type KindFilter struct{ K Kind }

func (f KindFilter) Match(e Event) bool { return e.Kind == f.K }

/*
ParamChangedFilter is the kind-specific filter for ParamChanged with an
optional param id.
*/
type ParamChangedFilter struct{ Param *ids.NodeId }

func (f ParamChangedFilter) Match(e Event) bool {
	if e.Kind != ParamChanged {
		return false
	}
	return f.Param == nil || *f.Param == e.Data.Param
}

/*
ChildAddedFilter is the kind-specific filter for ChildAdded with optional
parent/child ids.
*/
type ChildAddedFilter struct{ Parent, Child *ids.NodeId }

func (f ChildAddedFilter) Match(e Event) bool {
	if e.Kind != ChildAdded {
		return false
	}
	return (f.Parent == nil || *f.Parent == e.Data.ParentNode) &&
		(f.Child == nil || *f.Child == e.Data.Child)
}

/*
ChildRemovedFilter is the kind-specific filter for ChildRemoved with
optional parent/child ids.
*/
type ChildRemovedFilter struct{ Parent, Child *ids.NodeId }

func (f ChildRemovedFilter) Match(e Event) bool {
	if e.Kind != ChildRemoved {
		return false
	}
	return (f.Parent == nil || *f.Parent == e.Data.ParentNode) &&
		(f.Child == nil || *f.Child == e.Data.Child)
}

/*
NodeCreatedFilter is the kind-specific filter for NodeCreated with an
optional node id.
*/
type NodeCreatedFilter struct{ Node *ids.NodeId }

func (f NodeCreatedFilter) Match(e Event) bool {
	if e.Kind != NodeCreated {
		return false
	}
	return f.Node == nil || *f.Node == e.Data.Node
}

/*
NodeDeletedFilter is the kind-specific filter for NodeDeleted with an
optional node id.
*/
type NodeDeletedFilter struct{ Node *ids.NodeId }

func (f NodeDeletedFilter) Match(e Event) bool {
	if e.Kind != NodeDeleted {
		return false
	}
	return f.Node == nil || *f.Node == e.Data.Node
}

/*
MetaChangedFilter is the kind-specific filter for MetaChanged with an
optional node id.
*/
type MetaChangedFilter struct{ Node *ids.NodeId }

func (f MetaChangedFilter) Match(e Event) bool {
	if e.Kind != MetaChanged {
		return false
	}
	return f.Node == nil || *f.Node == e.Data.Node
}

/*
Any is the logical OR of its subfilters.
*/
type Any []Filter

func (a Any) Match(e Event) bool {
	for _, f := range a {
		if f.Match(e) {
			return true
		}
	}
	return false
}

/*
All is the logical AND of its subfilters.
*/
type All []Filter

func (a All) Match(e Event) bool {
	for _, f := range a {
		if !f.Match(e) {
			return false
		}
	}
	return true
}

/*
ListenerSpec binds a subscriber to a Filter and a delivery mode.
*/
type ListenerSpec struct {
	Subscriber ids.NodeId
	Filter     Filter
	Delivery   DeliveryMode
}
