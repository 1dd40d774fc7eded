package events

import (
	"testing"

	"github.com/krotik/nodeengine/ids"
)

func TestEventTimeOrdering(t *testing.T) {
	a := EventTime{Tick: 1, Micro: 0, Seq: 0}
	b := EventTime{Tick: 1, Micro: 0, Seq: 1}
	c := EventTime{Tick: 1, Micro: 1, Seq: 0}
	d := EventTime{Tick: 2, Micro: 0, Seq: 0}

	if !a.Less(b) || !b.Less(c) || !c.Less(d) {
		t.Error("expected strict lexicographic (tick, micro, seq) ordering")
	}
	if d.Less(a) {
		t.Error("ordering must not be symmetric for distinct times")
	}
}

func TestOwnTargetsAndBubbleSource(t *testing.T) {
	parent := ids.NodeId{Index: 1, Generation: 1}
	child := ids.NodeId{Index: 2, Generation: 1}

	e := Event{Kind: ChildAdded, Data: NewChildAdded(parent, child)}

	targets := e.OwnTargets()
	if len(targets) != 2 || targets[0] != parent || targets[1] != child {
		t.Error("unexpected own targets for ChildAdded:", targets)
	}

	src, ok := e.BubbleSource()
	if !ok || src != child {
		t.Error("expected ChildAdded to bubble from the child")
	}
}

func TestBusEmitDeliversOwnTargetsAndBubbles(t *testing.T) {
	bus := New(16)

	parent := ids.NodeId{Index: 1, Generation: 1}
	param := ids.NodeId{Index: 2, Generation: 1}

	bus.SetParentResolver(func(id ids.NodeId) (ids.NodeId, bool) {
		if id == param {
			return parent, true
		}
		return ids.NodeId{}, false
	})

	bus.Emit(1, 0, ParamChanged, NewParamChanged(param, 42))

	paramInbox := bus.Inbox().Drain(param)
	if len(paramInbox) != 1 {
		t.Fatal("expected the param's own inbox to receive the event")
	}

	parentInbox := bus.Inbox().Drain(parent)
	if len(parentInbox) != 1 {
		t.Fatal("expected the event to bubble once to the parent's inbox")
	}
}

func TestBusSubscriberFanOut(t *testing.T) {
	bus := New(16)

	param := ids.NodeId{Index: 5, Generation: 1}
	subscriber := ids.NodeId{Index: 9, Generation: 1}
	other := ids.NodeId{Index: 3, Generation: 1}

	bus.Subscribe(ListenerSpec{Subscriber: subscriber, Filter: ParamChangedFilter{Param: &param}})

	bus.Emit(1, 0, ParamChanged, NewParamChanged(param, true))

	if len(bus.Inbox().Drain(subscriber)) != 1 {
		t.Error("expected subscriber inbox to receive exactly one matching event")
	}
	if len(bus.Inbox().Drain(other)) != 0 {
		t.Error("expected an unrelated node's inbox to remain empty")
	}
}

func TestEventsSinceOverflow(t *testing.T) {
	bus := New(2)

	a := ids.NodeId{Index: 1, Generation: 1}

	bus.Emit(1, 0, NodeCreated, NewNodeCreated(a))
	first := EventTime{Tick: 1, Micro: 0, Seq: 0}

	bus.Emit(1, 0, NodeCreated, NewNodeCreated(a))
	bus.Emit(1, 0, NodeCreated, NewNodeCreated(a))
	bus.Emit(1, 0, NodeCreated, NewNodeCreated(a))

	if _, ok := bus.EventsSince(first); ok {
		t.Error("expected overflow once the requested watermark precedes the oldest retained event")
	}

	if _, ok := bus.EventsSince(EventTime{}); !ok {
		t.Error("the zero EventTime must never count as overflow")
	}
}

func TestSubtreeFilterInvalidatesOnChildMoved(t *testing.T) {
	bus := New(16)

	root := ids.NodeId{Index: 1, Generation: 1}
	child := ids.NodeId{Index: 2, Generation: 1}
	subscriber := ids.NodeId{Index: 3, Generation: 1}

	calls := 0
	bus.SetSubtreeResolver(func(candidate, r ids.NodeId) bool {
		calls++
		return candidate == child && r == root
	})

	bus.Subscribe(ListenerSpec{Subscriber: subscriber, Filter: SubtreeFilter{Root: root}})

	bus.Emit(1, 0, ChildMoved, NewChildMoved(child, ids.NodeId{}, root))
	firstCalls := calls

	bus.Emit(1, 1, ChildMoved, NewChildMoved(child, root, ids.NodeId{}))

	if calls <= firstCalls {
		t.Error("expected the memoized subtree resolver to be re-consulted after a ChildMoved invalidation")
	}
}
