package store

import (
	"testing"

	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
)

func TestInsertGetRemove(t *testing.T) {
	s := New()

	id := s.Insert(node.Node{NodeType: "Thing"})
	if !s.Exists(id) {
		t.Error("inserted node should exist")
	}

	n, ok := s.Get(id)
	if !ok || n.NodeType != "Thing" {
		t.Error("unexpected get result:", n, ok)
	}

	if !s.Remove(id) {
		t.Error("remove should succeed for a live id")
	}
	if s.Exists(id) {
		t.Error("removed node should no longer exist")
	}
	if s.Remove(id) {
		t.Error("removing an already-removed id should report false")
	}
}

func TestGenerationPreventsStaleAlias(t *testing.T) {
	s := New()

	a := s.Insert(node.Node{NodeType: "A"})
	s.Remove(a)

	b := s.Insert(node.Node{NodeType: "B"})

	if a.Index != b.Index {
		t.Fatalf("expected slot reuse (same index), got %v vs %v", a, b)
	}
	if a.Generation == b.Generation {
		t.Error("reused slot must bump generation so the stale id cannot alias the new node")
	}
	if s.Exists(a) {
		t.Error("the stale id must not resolve to the new node")
	}
	if !s.Exists(b) {
		t.Error("the fresh id must resolve")
	}
}

func TestMutate(t *testing.T) {
	s := New()
	id := s.Insert(node.Node{NodeType: "Thing"})

	ok := s.Mutate(id, func(n *node.Node) { n.Meta.Label = "hello" })
	if !ok {
		t.Error("mutate should succeed for a live id")
	}

	n, _ := s.Get(id)
	if n.Meta.Label != "hello" {
		t.Error("mutation did not apply")
	}

	s.Remove(id)
	if s.Mutate(id, func(n *node.Node) { n.Meta.Label = "late" }) {
		t.Error("mutate on a removed id should report false and not call fn")
	}
}

func TestIterIdsAscendingOrder(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.Insert(node.Node{NodeType: "Thing"})
	}

	var seen []uint32
	s.IterIds(func(id ids.NodeId) {
		seen = append(seen, id.Index)
	})

	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Error("IterIds must visit live nodes in ascending index order:", seen)
			break
		}
	}
	if len(seen) != 5 {
		t.Error("expected 5 live nodes, got", len(seen))
	}
}
