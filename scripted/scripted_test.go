package scripted

import (
	"testing"

	"github.com/krotik/nodeengine/edits"
	"github.com/krotik/nodeengine/events"
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/values"
)

func TestBuildStateParamChanged(t *testing.T) {
	p := ids.NodeId{Index: 1, Generation: 1}
	ev := events.Event{
		Time: events.EventTime{Tick: 3, Micro: 1, Seq: 2},
		Kind: events.ParamChanged,
		Data: events.NewParamChanged(p, values.Float(0.8)),
	}

	state := buildState(ev)

	if state["tick"] != uint64(3) {
		t.Error("expected tick to be carried into state:", state["tick"])
	}
	if state["param"] != p.String() {
		t.Error("expected param to be the node id's string form:", state["param"])
	}
	if state["value"] != 0.8 {
		t.Error("expected the float value to be unwrapped directly:", state["value"])
	}
}

func TestBuildStateChildAdded(t *testing.T) {
	parent := ids.NodeId{Index: 1, Generation: 1}
	child := ids.NodeId{Index: 2, Generation: 1}
	ev := events.Event{Kind: events.ChildAdded, Data: events.NewChildAdded(parent, child)}

	state := buildState(ev)
	if state["parent"] != parent.String() || state["child"] != child.String() {
		t.Error("unexpected ChildAdded state:", state)
	}
}

func TestToECALValueKinds(t *testing.T) {
	if toECALValue(values.Bool(true)) != true {
		t.Error("expected bool to pass through unwrapped")
	}
	if toECALValue(values.Int(7)) != int64(7) {
		t.Error("expected int to pass through unwrapped")
	}
	if toECALValue(values.String("x")) != "x" {
		t.Error("expected string to pass through unwrapped")
	}
	if toECALValue(values.Trigger()) != true {
		t.Error("expected a trigger value to convert to true")
	}
}

func TestMetaPatchToJSON(t *testing.T) {
	label := "renamed"
	desc := "a description"
	patch := edits.MetaPatch{
		Label:          &label,
		DescriptionSet: true,
		Description:    &desc,
	}

	out := metaPatchToJSON(patch)
	if out["label"] != label {
		t.Error("expected label to be carried over:", out)
	}
	if out["description"] != desc {
		t.Error("expected description to be carried over:", out)
	}

	cleared := edits.MetaPatch{DescriptionSet: true, Description: nil}
	out2 := metaPatchToJSON(cleared)
	if v, ok := out2["description"]; !ok || v != nil {
		t.Error("expected a cleared description to serialize as an explicit nil, got:", out2)
	}
}
