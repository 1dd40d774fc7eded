package persistence_test

import (
	"encoding/json"
	"testing"

	"github.com/krotik/nodeengine/engine"
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/persistence"
	"github.com/krotik/nodeengine/schema"
	"github.com/krotik/nodeengine/values"
)

func findFullChild(rec persistence.NodeRecord, nodeType string) (persistence.NodeRecord, bool) {
	if rec.Full == nil {
		return persistence.NodeRecord{}, false
	}
	for _, c := range rec.Full.Children {
		if c.Full != nil && c.Full.Type == nodeType {
			return c, true
		}
	}
	return persistence.NodeRecord{}, false
}

func TestExportProjectDynamicChildIsFull(t *testing.T) {
	e := engine.New(engine.DefaultConfig())

	childId := e.CreateNode("Widget", node.Passive, node.NoneData(), node.Metadata{ShortName: "w", Enabled: true, Label: "My Widget"}, nil)
	if err := e.AddChild(e.RootId(), childId); err != nil {
		t.Fatal(err)
	}

	pf := persistence.ExportProject(e, e.RootId(), "1")
	if pf.Root.Full == nil {
		t.Fatal("expected root to export as a Full record")
	}
	if len(pf.Root.Full.Children) != 1 {
		t.Fatalf("expected exactly one child, got %d", len(pf.Root.Full.Children))
	}

	child := pf.Root.Full.Children[0]
	if child.Full == nil {
		t.Fatal("expected a dynamically-added child to export as Full")
	}
	if child.Full.Type != "Widget" {
		t.Error("unexpected node type:", child.Full.Type)
	}
	if child.Full.DeclId != "" {
		t.Error("expected no decl-id on a dynamically-added node")
	}
	if child.Full.Meta.Label != "My Widget" {
		t.Error("expected full metadata to be carried over:", child.Full.Meta)
	}
}

func TestExportProjectDeclaredParamElidedUnlessChanged(t *testing.T) {
	e := engine.New(engine.DefaultConfig())

	s := &schema.NodeSchema{
		Parameters: []schema.ParamDecl{
			{DeclId: "intensity", Default: values.Float(1.0)},
		},
	}
	if err := e.RegisterSchema("Lamp", s); err != nil {
		t.Fatal(err)
	}

	lampId := e.CreateNode("Lamp", node.Passive, node.NoneData(), node.Metadata{ShortName: "lamp", Enabled: true}, nil)
	if err := e.AddChild(e.RootId(), lampId); err != nil {
		t.Fatal(err)
	}

	pf := persistence.ExportProject(e, e.RootId(), "1")
	lampRec, ok := findFullChild(pf.Root, "Lamp")
	if !ok {
		t.Fatal("expected lamp to export as Full under root")
	}
	if len(lampRec.Full.Children) != 0 {
		t.Fatalf("expected the declared parameter at its default value to be elided, got %d children", len(lampRec.Full.Children))
	}

	paramId, ok := e.FindDescendantByDecl(lampId, "intensity")
	if !ok {
		t.Fatal("expected the intensity parameter to be materialized")
	}
	e.Store.Mutate(paramId, func(n *node.Node) {
		n.Data.Parameter.Value = values.Float(0.5)
	})

	pf2 := persistence.ExportProject(e, e.RootId(), "1")
	lampRec2, _ := findFullChild(pf2.Root, "Lamp")
	if len(lampRec2.Full.Children) != 1 {
		t.Fatalf("expected one delta record once the value differs from default, got %d", len(lampRec2.Full.Children))
	}

	deltaChild := lampRec2.Full.Children[0]
	if deltaChild.Delta == nil {
		t.Fatal("expected a Delta record")
	}
	if deltaChild.Delta.DeclId != "intensity" {
		t.Error("unexpected decl-id:", deltaChild.Delta.DeclId)
	}
	if deltaChild.Delta.Value == nil || !values.Equal(*deltaChild.Delta.Value, values.Float(0.5)) {
		t.Error("expected the changed value to be carried in the delta:", deltaChild.Delta.Value)
	}
}

func TestReferenceClosureInsertsDeltaStub(t *testing.T) {
	e := engine.New(engine.DefaultConfig())

	s := &schema.NodeSchema{
		DeclaredChildren: []schema.ChildDecl{
			{DeclId: "target", NodeType: "Marker", DefaultEnabled: true},
		},
		Parameters: []schema.ParamDecl{
			{DeclId: "ref", Default: values.Ref(ids.NodeUuid{})},
		},
	}
	if err := e.RegisterSchema("Container1", s); err != nil {
		t.Fatal(err)
	}

	containerId := e.CreateNode("Container1", node.Passive, node.NewContainerData(node.AnyChildType, nil, node.FoldersAllowed, nil), node.Metadata{ShortName: "c1", Enabled: true}, nil)
	if err := e.AddChild(e.RootId(), containerId); err != nil {
		t.Fatal(err)
	}

	targetId, ok := e.FindDescendantByDecl(containerId, "target")
	if !ok {
		t.Fatal("expected the target declared child to be materialized")
	}
	targetNode, ok := e.Store.Get(targetId)
	if !ok {
		t.Fatal("expected target node to exist in the store")
	}

	refParamId, ok := e.FindDescendantByDecl(containerId, "ref")
	if !ok {
		t.Fatal("expected the ref parameter to be materialized")
	}
	e.Store.Mutate(refParamId, func(n *node.Node) {
		n.Data.Parameter.Value = values.Ref(targetNode.Meta.Uuid)
	})

	pf := persistence.ExportProject(e, e.RootId(), "1")

	containerRec, ok := findFullChild(pf.Root, "Container1")
	if !ok {
		t.Fatal("expected Container1 to export as Full under root")
	}

	var foundTarget bool
	for _, child := range containerRec.Full.Children {
		if child.Delta != nil && child.Delta.DeclId == "target" {
			foundTarget = true
			if child.Delta.Uuid == nil || *child.Delta.Uuid != targetNode.Meta.Uuid {
				t.Error("expected the stub's uuid to match the target's uuid")
			}
			if child.Delta.Value != nil || child.Delta.Meta != nil || len(child.Delta.Children) != 0 {
				t.Error("expected a minimal stub with no value/meta/children")
			}
		}
	}
	if !foundTarget {
		t.Error("expected reference closure to insert a Delta stub for the referenced-but-unemitted target")
	}
}

func TestNodeRecordMarshalUnmarshalDiscriminatesByTypeKey(t *testing.T) {
	full := persistence.NodeRecord{Full: &persistence.FullRecord{
		Type: "Widget",
		Uuid: ids.NewNodeUuid(),
		Meta: persistence.MetaDto{ShortName: "w", Enabled: true},
		Data: persistence.NodeDataDto{Kind: "None"},
	}}

	data, err := json.Marshal(full)
	if err != nil {
		t.Fatal(err)
	}
	var rtFull persistence.NodeRecord
	if err := json.Unmarshal(data, &rtFull); err != nil {
		t.Fatal(err)
	}
	if rtFull.Full == nil || rtFull.Delta != nil {
		t.Error("expected a record with a type key to round-trip as Full")
	}

	delta := persistence.NodeRecord{Delta: &persistence.DeltaRecord{DeclId: "x"}}

	data2, err := json.Marshal(delta)
	if err != nil {
		t.Fatal(err)
	}
	var rtDelta persistence.NodeRecord
	if err := json.Unmarshal(data2, &rtDelta); err != nil {
		t.Fatal(err)
	}
	if rtDelta.Delta == nil || rtDelta.Full != nil {
		t.Error("expected a record with no type key to round-trip as Delta")
	}
}

func TestExportSnapshotFlatRoundTrip(t *testing.T) {
	e := engine.New(engine.DefaultConfig())

	paramData := node.NewParameterData(node.ParameterData{Value: values.Int(7)})
	paramId := e.CreateNode("Parameter", node.Passive, paramData, node.Metadata{ShortName: "count", Enabled: true}, nil)
	if err := e.AddChild(e.RootId(), paramId); err != nil {
		t.Fatal(err)
	}

	snap := persistence.ExportSnapshot(e, e.RootId(), false)

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	var decoded persistence.Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if len(decoded.Nodes) != len(snap.Nodes) {
		t.Fatalf("expected %d nodes, got %d", len(snap.Nodes), len(decoded.Nodes))
	}
	if len(decoded.Params) != 1 {
		t.Fatalf("expected exactly one param, got %d", len(decoded.Params))
	}
	if !values.Equal(decoded.Params[0].Value, values.Int(7)) {
		t.Error("expected the round-tripped param value to match:", decoded.Params[0].Value)
	}
	if decoded.NodeTypes != nil || decoded.Enums != nil {
		t.Error("expected no schema catalog without include_schema")
	}
}

func TestExportSnapshotIncludesSchemaCatalog(t *testing.T) {
	e := engine.New(engine.DefaultConfig())

	s := &schema.NodeSchema{
		Parameters: []schema.ParamDecl{
			{
				DeclId:  "mode",
				Default: values.Enum("ModeKind", "A"),
				Constraints: values.ValueConstraints{
					Kind:          values.ConstraintEnum,
					EnumId:        "ModeKind",
					AllowedValues: []string{"A", "B"},
				},
			},
		},
	}
	if err := e.RegisterSchema("Thing", s); err != nil {
		t.Fatal(err)
	}

	snap := persistence.ExportSnapshot(e, e.RootId(), true)

	var found bool
	for _, nt := range snap.NodeTypes {
		if nt == "Thing" {
			found = true
		}
	}
	if !found {
		t.Error("expected Thing to be listed in node_types:", snap.NodeTypes)
	}

	if variants, ok := snap.Enums["ModeKind"]; !ok || len(variants) != 2 {
		t.Errorf("expected ModeKind's variants to be collected, got %v", snap.Enums)
	}
}

func TestSaveLoadProjectRoundTrip(t *testing.T) {
	e := engine.New(engine.DefaultConfig())

	childId := e.CreateNode("Widget", node.Passive, node.NoneData(), node.Metadata{ShortName: "w", Enabled: true}, nil)
	if err := e.AddChild(e.RootId(), childId); err != nil {
		t.Fatal(err)
	}

	pf := persistence.ExportProject(e, e.RootId(), "1")

	out, err := persistence.SaveProject(pf)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := persistence.LoadProject([]byte(out))
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Version != "1" {
		t.Error("unexpected version:", loaded.Version)
	}
	if loaded.Root.Full == nil {
		t.Fatal("expected root to load as Full")
	}
	if len(loaded.Root.Full.Children) != 1 {
		t.Fatalf("expected one child to round-trip, got %d", len(loaded.Root.Full.Children))
	}
}
