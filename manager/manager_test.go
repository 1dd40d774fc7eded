package manager

import (
	"testing"

	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/schema"
)

type fakeBehavior struct{ boundTo NodeBinding }

func TestNewDataLookupRoundTrip(t *testing.T) {
	s := &schema.NodeSchema{NodeType: "OscOutput"}

	factory := func(b NodeBinding) interface{} { return fakeBehavior{boundTo: b} }

	table := Table{
		"OscOutput": {NodeType: "OscOutput", Schema: s, Factory: factory},
	}

	data := NewData(table)
	if data.Kind != node.DataManager {
		t.Fatal("expected manager payload kind")
	}

	got, ok := Lookup(data, "OscOutput")
	if !ok {
		t.Fatal("expected to find the registered node type")
	}
	if got.Schema != s {
		t.Error("expected the looked-up schema to be the exact registered pointer")
	}
}

func TestLookupMissingNodeType(t *testing.T) {
	data := NewData(Table{})
	if _, ok := Lookup(data, "Unknown"); ok {
		t.Error("expected no registration for an unregistered node type")
	}
}

func TestLookupNonManagerPayloadIsNotFound(t *testing.T) {
	data := node.NodeData{Kind: node.DataNone}
	if _, ok := Lookup(data, "OscOutput"); ok {
		t.Error("expected Lookup on a non-manager payload to report not-found, not panic")
	}
}

func TestLookupCorruptRegistrationIsNotFound(t *testing.T) {
	data := node.NodeData{
		Kind: node.DataManager,
		Manager: node.ManagerData{
			Registrations: map[string]node.Registration{
				"Bogus": {NodeType: "Bogus", Schema: "not-a-schema", BehaviorFactory: "not-a-factory"},
			},
		},
	}

	if _, ok := Lookup(data, "Bogus"); ok {
		t.Error("a corrupt/foreign registration must be treated as not-found, not panic")
	}
}

func TestRegisterAddsToExistingManager(t *testing.T) {
	data := NewData(Table{})

	s := &schema.NodeSchema{NodeType: "Fixture"}
	factory := func(b NodeBinding) interface{} { return fakeBehavior{boundTo: b} }

	data = Register(data, Registration{NodeType: "Fixture", Schema: s, Factory: factory})

	got, ok := Lookup(data, "Fixture")
	if !ok || got.Schema != s {
		t.Error("expected the newly registered type to be found:", got, ok)
	}
}

func TestRegisterOnNonManagerIsNoOp(t *testing.T) {
	data := node.NodeData{Kind: node.DataNone}
	out := Register(data, Registration{NodeType: "X"})
	if out.Kind != node.DataNone {
		t.Error("Register on a non-manager payload must leave it unchanged")
	}
}
