package edits

import (
	"testing"

	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/values"
)

func TestQueueFIFO(t *testing.T) {
	var q Queue

	target := ids.NodeId{Index: 1, Generation: 1}

	q.Push(Enqueued{Edit: SetParam(target, values.Int(1)), Propagation: Immediate, Origin: FromUI})
	q.Push(Enqueued{Edit: SetParam(target, values.Int(2)), Propagation: EndOfTick, Origin: FromScript})

	if q.Len() != 2 {
		t.Fatalf("expected 2 queued edits, got %d", q.Len())
	}

	drained := q.Drain()
	if len(drained) != 2 {
		t.Fatalf("expected to drain 2 edits, got %d", len(drained))
	}
	if drained[0].Edit.Value.Int != 1 || drained[1].Edit.Value.Int != 2 {
		t.Error("drain must preserve FIFO order:", drained)
	}

	if q.Len() != 0 {
		t.Error("queue should be empty after draining")
	}
	if q.Drain() != nil {
		t.Error("draining an empty queue should return nil")
	}
}

func TestEditConstructors(t *testing.T) {
	n := ids.NodeId{Index: 3, Generation: 2}

	e := SetParam(n, values.Bool(true))
	if e.Kind != KindSetParam || e.Node != n || e.Value.Bool != true {
		t.Error("unexpected SetParam edit:", e)
	}

	label := "new label"
	patch := MetaPatch{Label: &label}
	e2 := PatchMeta(n, patch)
	if e2.Kind != KindPatchMeta || e2.Patch.Label == nil || *e2.Patch.Label != label {
		t.Error("unexpected PatchMeta edit:", e2)
	}

	mgr := ids.NodeId{Index: 7, Generation: 1}
	e3 := InstantiateChildFromManager(mgr, "OscOutput", "out", 0)
	if e3.Kind != KindInstantiateChildFromManager || e3.Manager != mgr || e3.NodeType != "OscOutput" {
		t.Error("unexpected InstantiateChildFromManager edit:", e3)
	}
}

func TestPropagationAndOriginStrings(t *testing.T) {
	cases := []struct {
		p    Propagation
		want string
	}{
		{Immediate, "Immediate"},
		{EndOfTick, "EndOfTick"},
		{NextTick, "NextTick"},
		{Propagation(99), "Unknown"},
	}
	for _, c := range cases {
		if got := c.p.String(); got != c.want {
			t.Errorf("Propagation(%d).String() = %q, want %q", c.p, got, c.want)
		}
	}

	origins := []struct {
		o    Origin
		want string
	}{
		{FromUI, "UI"},
		{FromNetwork, "Network"},
		{FromScript, "Script"},
		{FromInternal, "Internal"},
		{Origin(99), "Unknown"},
	}
	for _, c := range origins {
		if got := c.o.String(); got != c.want {
			t.Errorf("Origin(%d).String() = %q, want %q", c.o, got, c.want)
		}
	}
}
