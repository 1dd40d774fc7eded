package tree

import (
	"testing"

	"github.com/krotik/nodeengine/events"
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/store"
)

type fakeClock struct{ tick, micro uint64 }

func (c *fakeClock) Current() (uint64, uint64) { return c.tick, c.micro }

func newTestTree() (*Tree, *store.NodeStore, *events.Bus) {
	s := store.New()
	bus := events.New(64)
	tr := New(s, bus, &fakeClock{})
	return tr, s, bus
}

func TestAddRemoveChildRestoresLinks(t *testing.T) {
	tr, s, _ := newTestTree()

	root := s.Insert(node.Node{NodeType: "Root"})
	a := s.Insert(node.Node{NodeType: "A"})
	b := s.Insert(node.Node{NodeType: "B"})

	if err := tr.AddChild(root, a); err != nil {
		t.Fatal(err)
	}
	if err := tr.AddChild(root, b); err != nil {
		t.Fatal(err)
	}

	rootBefore, _ := s.Get(root)

	if err := tr.RemoveChild(root, b); err != nil {
		t.Fatal(err)
	}
	if err := tr.AddChild(root, b); err != nil {
		t.Fatal(err)
	}

	rootAfter, _ := s.Get(root)
	if rootBefore.FirstChild != rootAfter.FirstChild || rootBefore.LastChild != rootAfter.LastChild {
		t.Error("add/remove/add-back should restore first_child/last_child")
	}

	children := tr.Children(root)
	if len(children) != 2 || children[0] != a || children[1] != b {
		t.Error("unexpected children order:", children)
	}
}

func TestAddChildRejectsCycle(t *testing.T) {
	tr, s, _ := newTestTree()

	a := s.Insert(node.Node{NodeType: "A"})
	b := s.Insert(node.Node{NodeType: "B"})

	if err := tr.AddChild(a, b); err != nil {
		t.Fatal(err)
	}
	if err := tr.AddChild(b, a); err != ErrWouldCreateCycle {
		t.Error("expected ErrWouldCreateCycle, got", err)
	}
}

func TestMoveChildRejectsCycle(t *testing.T) {
	tr, s, _ := newTestTree()

	a := s.Insert(node.Node{NodeType: "A"})
	b := s.Insert(node.Node{NodeType: "B"})
	tr.AddChild(a, b)

	if err := tr.MoveChild(a, b, 0); err != ErrWouldCreateCycle {
		t.Error("expected ErrWouldCreateCycle moving an ancestor under its own descendant, got", err)
	}
	if err := tr.MoveChild(a, a, 0); err != ErrWouldCreateCycle {
		t.Error("expected ErrWouldCreateCycle moving a node under itself, got", err)
	}
}

func TestChildAddedEmittedOnce(t *testing.T) {
	tr, s, bus := newTestTree()

	root := s.Insert(node.Node{NodeType: "Root"})
	child := s.Insert(node.Node{NodeType: "Child"})

	tr.AddChild(root, child)

	evs, ok := bus.EventsSince(events.EventTime{})
	if !ok {
		t.Fatal("expected events_since to succeed")
	}

	count := 0
	for _, e := range evs {
		if e.Kind == events.ChildAdded {
			count++
		}
	}
	if count != 1 {
		t.Error("expected exactly one ChildAdded event, got", count)
	}
}

func TestFindDescendantByDecl(t *testing.T) {
	tr, s, _ := newTestTree()

	root := s.Insert(node.Node{NodeType: "Root"})
	child := s.Insert(node.Node{NodeType: "Child", Meta: node.Metadata{DeclId: "target"}})
	tr.AddChild(root, child)

	found, ok := tr.FindDescendantByDecl(root, "target")
	if !ok || found != child {
		t.Error("expected to find the declared child:", found, ok)
	}

	if _, ok := tr.FindDescendantByDecl(root, "missing"); ok {
		t.Error("expected no match for an absent decl-id")
	}
}

func TestReorderChild(t *testing.T) {
	tr, s, _ := newTestTree()

	root := s.Insert(node.Node{NodeType: "Root"})
	a := s.Insert(node.Node{NodeType: "A"})
	b := s.Insert(node.Node{NodeType: "B"})
	c := s.Insert(node.Node{NodeType: "C"})
	tr.AddChild(root, a)
	tr.AddChild(root, b)
	tr.AddChild(root, c)

	if err := tr.ReorderChild(root, c, 0); err != nil {
		t.Fatal(err)
	}

	children := tr.Children(root)
	expect := []ids.NodeId{c, a, b}
	for i, e := range expect {
		if children[i] != e {
			t.Error("unexpected order after reorder:", children)
			break
		}
	}
}
