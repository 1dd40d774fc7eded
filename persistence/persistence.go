/*
 * nodeengine
 *
 * Package persistence implements §4.8: the flat Snapshot DTO exchanged
 * with UI/network clients, and the hierarchical Full/Delta project file
 * format used by save_project / load_project. The export algorithm is a
 * direct port of golden_core's persistence::save walk (ExportContext /
 * ExportNode, slot classification, reference closure) onto this engine's
 * node store and tree.
 */
package persistence

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/krotik/nodeengine/engine"
	"github.com/krotik/nodeengine/events"
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/schema"
	"github.com/krotik/nodeengine/values"
)

// -- Flat snapshot DTOs (§4.8 "Flat snapshot") -----------------------------

/*
MetaDto is the full, self-contained serialization of node.Metadata.
*/
type MetaDto struct {
	ShortName    string                `json:"short_name"`
	Enabled      bool                  `json:"enabled"`
	Label        string                `json:"label"`
	Description  *string               `json:"description,omitempty"`
	Tags         []string              `json:"tags,omitempty"`
	Semantics    node.SemanticsHint    `json:"semantics"`
	Presentation node.PresentationHint `json:"presentation"`
}

func metaToDto(m node.Metadata) MetaDto {
	return MetaDto{
		ShortName:    m.ShortName,
		Enabled:      m.Enabled,
		Label:        m.Label,
		Description:  m.Description,
		Tags:         m.Tags,
		Semantics:    m.Semantics,
		Presentation: m.Presentation,
	}
}

/*
ContainerDataDto mirrors node.ContainerData for the wire.
*/
type ContainerDataDto struct {
	AllowedTypes   []string `json:"allowed_types,omitempty"`
	FoldersAllowed bool     `json:"folders_allowed"`
	MaxChildren    *int     `json:"max_children,omitempty"`
}

/*
ParameterDataDto mirrors node.ParameterData for the wire. Constraints are
not serialized: a client never needs to reconstruct them, only schema
lookups (covered by the node_types catalog) do.
*/
type ParameterDataDto struct {
	Value    values.Value  `json:"value"`
	Default  *values.Value `json:"default,omitempty"`
	ReadOnly bool          `json:"read_only"`
}

/*
NodeDataDto is the tagged union of a node's payload, discriminated by Kind
("None", "Container", "Parameter", "Custom", "Manager").
*/
type NodeDataDto struct {
	Kind      string            `json:"kind"`
	Container *ContainerDataDto `json:"container,omitempty"`
	Parameter *ParameterDataDto `json:"parameter,omitempty"`
}

func nodeDataToDto(d node.NodeData) NodeDataDto {
	switch d.Kind {
	case node.DataContainer:
		return NodeDataDto{Kind: "Container", Container: containerToDto(d.Container)}
	case node.DataParameter:
		p := d.Parameter
		dto := &ParameterDataDto{Value: p.Value, ReadOnly: p.ReadOnly}
		if p.Default != nil {
			def := *p.Default
			dto.Default = &def
		}
		return NodeDataDto{Kind: "Parameter", Parameter: dto}
	case node.DataCustom:
		return NodeDataDto{Kind: "Custom"}
	case node.DataManager:
		return NodeDataDto{Kind: "Manager"}
	}
	return NodeDataDto{Kind: "None"}
}

func containerToDto(c node.ContainerData) *ContainerDataDto {
	var allowed []string
	if c.ChildPolicy == node.OnlyChildTypes {
		for t := range c.AllowedTypes {
			allowed = append(allowed, t)
		}
		sort.Strings(allowed)
	}
	return &ContainerDataDto{
		AllowedTypes:   allowed,
		FoldersAllowed: c.FolderPolicy == node.FoldersAllowed,
		MaxChildren:    c.MaxChildren,
	}
}

/*
NodeDto is one entry of a flat Snapshot's node list.
*/
type NodeDto struct {
	NodeId   ids.NodeId   `json:"node_id"`
	Uuid     ids.NodeUuid `json:"uuid"`
	NodeType string       `json:"node_type"`
	DeclId   ids.DeclId   `json:"decl_id,omitempty"`
	Meta     MetaDto      `json:"meta"`
	Data     NodeDataDto  `json:"data"`
	Children []ids.NodeId `json:"children"`
}

/*
ParamDto is one entry of a flat Snapshot's params list: a convenience
projection so a UI can read every current parameter value without
re-walking the node list.
*/
type ParamDto struct {
	NodeId  ids.NodeId    `json:"node_id"`
	Value   values.Value  `json:"value"`
	Default *values.Value `json:"default,omitempty"`
}

/*
Snapshot is the flat DTO §4.8 specifies for UI/network consumption.
Enums and NodeTypes are populated only when the caller asked for schema
information (the wire GetSnapshot envelope's include_schema flag).
*/
type Snapshot struct {
	AsOf      events.EventTime    `json:"as_of"`
	Nodes     []NodeDto           `json:"nodes"`
	Params    []ParamDto          `json:"params"`
	Enums     map[string][]string `json:"enums,omitempty"`
	NodeTypes []string            `json:"node_types,omitempty"`
}

/*
ExportSnapshot walks the subtree under root and builds the flat Snapshot
clients read §4.8 describes. includeSchema additionally populates
NodeTypes (every registered node type) and Enums (every enum id declared
by a parameter constraint, mapped to its allowed variants).
*/
func ExportSnapshot(e *engine.Engine, root ids.NodeId, includeSchema bool) Snapshot {
	snap := Snapshot{AsOf: e.Now()}

	e.Tree.Walk(root, func(id ids.NodeId) bool {
		n, ok := e.Store.Get(id)
		if !ok {
			return true
		}
		snap.Nodes = append(snap.Nodes, NodeDto{
			NodeId:   n.Id,
			Uuid:     n.Meta.Uuid,
			NodeType: n.NodeType,
			DeclId:   n.Meta.DeclId,
			Meta:     metaToDto(n.Meta),
			Data:     nodeDataToDto(n.Data),
			Children: e.Tree.Children(id),
		})
		if n.Data.Kind == node.DataParameter {
			p := n.Data.Parameter
			dto := ParamDto{NodeId: n.Id, Value: p.Value}
			if p.Default != nil {
				def := *p.Default
				dto.Default = &def
			}
			snap.Params = append(snap.Params, dto)
		}
		return true
	})

	if includeSchema {
		snap.NodeTypes = e.Schemas.NodeTypes()
		snap.Enums = collectEnums(e.Schemas)
	}

	return snap
}

func collectEnums(reg *schema.Registry) map[string][]string {
	out := map[string][]string{}
	for _, s := range reg.All() {
		for _, p := range s.Parameters {
			if p.Constraints.Kind != values.ConstraintEnum || p.Constraints.EnumId == "" {
				continue
			}
			id := string(p.Constraints.EnumId)
			if _, ok := out[id]; !ok {
				out[id] = append([]string(nil), p.Constraints.AllowedValues...)
			}
		}
	}
	return out
}

// -- Hierarchical project export (§4.8 "Project export") ------------------

/*
MetaPatchDto is a partial metadata update computed against schema
defaults. Description uses the same option-of-option trick as
edits.MetaPatch: a nil outer pointer means "no delta"; a non-nil outer
pointing at the node's actual (always non-nil, by construction here)
description means "this is the description".
*/
type MetaPatchDto struct {
	Enabled      *bool                  `json:"enabled,omitempty"`
	Label        *string                `json:"label,omitempty"`
	Description  **string               `json:"description,omitempty"`
	Tags         []string               `json:"tags,omitempty"`
	Semantics    *node.SemanticsHint    `json:"semantics,omitempty"`
	Presentation *node.PresentationHint `json:"presentation,omitempty"`
}

/*
FullRecord is used for dynamically-added nodes and the root: full
metadata, full data, UUID, and an optional decl-id (present when the
node occupies a potential slot).
*/
type FullRecord struct {
	Type     string       `json:"type"`
	DeclId   ids.DeclId   `json:"decl_id,omitempty"`
	Uuid     ids.NodeUuid `json:"uuid"`
	Meta     MetaDto      `json:"meta"`
	Data     NodeDataDto  `json:"data"`
	Children []NodeRecord `json:"children,omitempty"`
}

/*
DeltaRecord is used for schema-declared children: only what differs from
the schema's defaults is carried.
*/
type DeltaRecord struct {
	DeclId   ids.DeclId    `json:"decl_id"`
	Uuid     *ids.NodeUuid `json:"uuid,omitempty"`
	Meta     *MetaPatchDto `json:"meta,omitempty"`
	Value    *values.Value `json:"value,omitempty"`
	Children []NodeRecord  `json:"children,omitempty"`
}

/*
NodeRecord is the untagged Full/Delta union §6 describes: readers
discriminate by presence of the "type" key.
*/
type NodeRecord struct {
	Full  *FullRecord
	Delta *DeltaRecord
}

func (r NodeRecord) MarshalJSON() ([]byte, error) {
	if r.Full != nil {
		return json.Marshal(r.Full)
	}
	if r.Delta != nil {
		return json.Marshal(r.Delta)
	}
	return nil, fmt.Errorf("persistence: empty node record")
}

func (r *NodeRecord) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if probe.Type != nil {
		var full FullRecord
		if err := json.Unmarshal(data, &full); err != nil {
			return err
		}
		r.Full = &full
		return nil
	}

	var delta DeltaRecord
	if err := json.Unmarshal(data, &delta); err != nil {
		return err
	}
	r.Delta = &delta
	return nil
}

/*
ProjectFile is the top-level on-disk/on-wire project format.
*/
type ProjectFile struct {
	Version string     `json:"version"`
	Root    NodeRecord `json:"root"`
}

// -- Export walk (ported from golden_core persistence::save) --------------

type slotClass int

const (
	slotDynamic slotClass = iota
	slotPotential
	slotDeclared
)

/*
exportContext tracks cross-cutting state for one export_project call: the
engine being walked, every Reference target seen so far, every node
already emitted into the record tree, and a uuid->id index used to
resolve reference targets during the closure pass.
*/
type exportContext struct {
	e          *engine.Engine
	referenced map[ids.NodeUuid]bool
	emitted    map[ids.NodeUuid]bool
	uuidToId   map[ids.NodeUuid]ids.NodeId
}

func newExportContext(e *engine.Engine) *exportContext {
	ctx := &exportContext{
		e:          e,
		referenced: map[ids.NodeUuid]bool{},
		emitted:    map[ids.NodeUuid]bool{},
		uuidToId:   map[ids.NodeUuid]ids.NodeId{},
	}
	e.Store.Iter(func(n node.Node) {
		ctx.uuidToId[n.Meta.Uuid] = n.Id
	})
	return ctx
}

/*
exportNode is the in-progress record tree built by the export walk,
mirroring golden_core's own ExportNode: the record shape is decided
before children are known, then children are attached by toRecord.
*/
type exportNode struct {
	nodeId   ids.NodeId
	full     *FullRecord
	delta    *DeltaRecord
	children []*exportNode
}

func (n *exportNode) toRecord() NodeRecord {
	children := make([]NodeRecord, 0, len(n.children))
	for _, c := range n.children {
		children = append(children, c.toRecord())
	}
	if n.full != nil {
		full := *n.full
		full.Children = children
		return NodeRecord{Full: &full}
	}
	delta := *n.delta
	delta.Children = children
	return NodeRecord{Delta: &delta}
}

func (n *exportNode) declId() ids.DeclId {
	if n.full != nil {
		return n.full.DeclId
	}
	if n.delta != nil {
		return n.delta.DeclId
	}
	return ""
}

/*
ExportProject walks the subtree under root and builds the hierarchical
project record §4.8 describes, including the reference-closure pass.
*/
func ExportProject(e *engine.Engine, root ids.NodeId, version string) ProjectFile {
	ctx := newExportContext(e)
	rootNode := exportRootNode(ctx, root)
	applyReferenceClosure(ctx, rootNode)
	return ProjectFile{Version: version, Root: rootNode.toRecord()}
}

/*
SaveProject renders a ProjectFile as indented JSON. Per §7, serialization
errors are surfaced to the caller rather than producing partial output.
*/
func SaveProject(p ProjectFile) (string, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

/*
LoadProject parses a project file previously produced by SaveProject.
*/
func LoadProject(data []byte) (ProjectFile, error) {
	var p ProjectFile
	if err := json.Unmarshal(data, &p); err != nil {
		return ProjectFile{}, err
	}
	return p, nil
}

func exportRootNode(ctx *exportContext, id ids.NodeId) *exportNode {
	if n := exportFullRecord(ctx, id, ""); n != nil {
		return n
	}
	return missingRecord()
}

/*
exportChild classifies id against parentType's schema and dispatches to
the matching record builder (§4.8's child classification rule).
*/
func exportChild(ctx *exportContext, id ids.NodeId, parentType string) *exportNode {
	n, ok := ctx.e.Store.Get(id)
	if !ok {
		return nil
	}

	switch slotKind(ctx.e, parentType, n) {
	case slotPotential:
		return exportFullRecord(ctx, id, n.Meta.DeclId)
	case slotDeclared:
		return exportDeltaRecord(ctx, id, parentType)
	default:
		return exportFullRecord(ctx, id, "")
	}
}

func slotKind(e *engine.Engine, parentType string, n node.Node) slotClass {
	if parentType == "" {
		return slotDynamic
	}
	s, ok := e.Schemas.Get(parentType)
	if !ok {
		return slotDynamic
	}
	if _, ok := s.PotentialSlotFor(n.Meta.DeclId, n.NodeType); ok {
		return slotPotential
	}
	if isDeclaredChild(s, n.Meta.DeclId, n.NodeType) {
		return slotDeclared
	}
	return slotDynamic
}

func isDeclaredChild(s *schema.NodeSchema, declId ids.DeclId, nodeType string) bool {
	if c, ok := s.DeclaredChild(declId); ok && c.NodeType == nodeType {
		return true
	}
	if nodeType == engine.TypeParameter {
		for _, p := range s.Parameters {
			if p.DeclId == declId && p.Folder == "" {
				return true
			}
		}
	}
	return false
}

func exportFullRecord(ctx *exportContext, id ids.NodeId, declId ids.DeclId) *exportNode {
	n, ok := ctx.e.Store.Get(id)
	if !ok {
		return nil
	}

	children := collectChildren(ctx, n)
	collectReferences(ctx, n)
	ctx.emitted[n.Meta.Uuid] = true

	return &exportNode{
		nodeId: id,
		full: &FullRecord{
			Type:   n.NodeType,
			DeclId: declId,
			Uuid:   n.Meta.Uuid,
			Meta:   metaToDto(n.Meta),
			Data:   nodeDataToDto(n.Data),
		},
		children: children,
	}
}

func exportDeltaRecord(ctx *exportContext, id ids.NodeId, parentType string) *exportNode {
	n, ok := ctx.e.Store.Get(id)
	if !ok {
		return nil
	}

	var value *values.Value
	if n.Data.Kind == node.DataParameter {
		p := n.Data.Parameter
		if p.Default == nil || !values.Equal(*p.Default, p.Value) {
			v := p.Value
			value = &v
		}
	}

	var declared *schema.ChildDecl
	if s, ok := ctx.e.Schemas.Get(parentType); ok {
		if c, ok := s.DeclaredChild(n.Meta.DeclId); ok && c.NodeType == n.NodeType {
			declared = &c
		}
	}

	meta := metaPatchFromNode(n, declared)
	children := collectChildren(ctx, n)

	if value == nil && meta == nil && len(children) == 0 {
		return nil
	}

	collectReferences(ctx, n)
	ctx.emitted[n.Meta.Uuid] = true

	uuid := n.Meta.Uuid
	return &exportNode{
		nodeId: id,
		delta: &DeltaRecord{
			DeclId: n.Meta.DeclId,
			Uuid:   &uuid,
			Meta:   meta,
			Value:  value,
		},
		children: children,
	}
}

func collectChildren(ctx *exportContext, n node.Node) []*exportNode {
	var out []*exportNode
	for _, childId := range ctx.e.Tree.Children(n.Id) {
		if c := exportChild(ctx, childId, n.NodeType); c != nil {
			out = append(out, c)
		}
	}
	return out
}

/*
metaPatchFromNode diffs n's metadata against the defaults implied by its
declared-child registration (or the engine-wide defaults, if n was not
schema-declared), returning nil if every field matches its default.
*/
func metaPatchFromNode(n node.Node, declared *schema.ChildDecl) *MetaPatchDto {
	// Mirrors what instantiateSchema itself leaves a freshly materialized
	// node's Label/Enabled as when the schema gives no explicit default:
	// Label "" (only ShortName is decl-id-derived), Enabled true.
	defaultLabel := ""
	defaultEnabled := true
	if declared != nil {
		if declared.HasDefaultLabel {
			defaultLabel = declared.DefaultLabel
		}
		defaultEnabled = declared.DefaultEnabled
	}

	patch := &MetaPatchDto{}
	dirty := false

	if n.Meta.Enabled != defaultEnabled {
		enabled := n.Meta.Enabled
		patch.Enabled = &enabled
		dirty = true
	}
	if n.Meta.Label != defaultLabel {
		label := n.Meta.Label
		patch.Label = &label
		dirty = true
	}
	if n.Meta.Description != nil {
		patch.Description = &n.Meta.Description
		dirty = true
	}
	if len(n.Meta.Tags) > 0 {
		patch.Tags = append([]string(nil), n.Meta.Tags...)
		dirty = true
	}
	if n.Meta.Semantics != (node.SemanticsHint{}) {
		s := n.Meta.Semantics
		patch.Semantics = &s
		dirty = true
	}
	if n.Meta.Presentation != (node.PresentationHint{}) {
		p := n.Meta.Presentation
		patch.Presentation = &p
		dirty = true
	}

	if !dirty {
		return nil
	}
	return patch
}

func collectReferences(ctx *exportContext, n node.Node) {
	if n.Data.Kind != node.DataParameter {
		return
	}
	v := n.Data.Parameter.Value
	if v.Kind == values.KindReference {
		ctx.referenced[v.Reference.Uuid] = true
	}
}

/*
applyReferenceClosure inserts a minimal Delta stub for every referenced
but not-yet-emitted declared child, so a loader can resolve the
reference even though the target was never otherwise exported.
*/
func applyReferenceClosure(ctx *exportContext, root *exportNode) {
	uuids := make([]ids.NodeUuid, 0, len(ctx.referenced))
	for u := range ctx.referenced {
		uuids = append(uuids, u)
	}
	sort.Slice(uuids, func(i, j int) bool { return uuids[i].String() < uuids[j].String() })

	for _, uuid := range uuids {
		if ctx.emitted[uuid] {
			continue
		}
		nodeId, ok := ctx.uuidToId[uuid]
		if !ok {
			continue
		}
		n, ok := ctx.e.Store.Get(nodeId)
		if !ok {
			continue
		}
		parentId, ok := ctx.e.Tree.ParentOf(nodeId)
		if !ok {
			continue
		}
		parent, ok := ctx.e.Store.Get(parentId)
		if !ok {
			continue
		}
		s, ok := ctx.e.Schemas.Get(parent.NodeType)
		if !ok {
			continue
		}
		if !isDeclaredChild(s, n.Meta.DeclId, n.NodeType) {
			continue
		}

		uuidCopy := uuid
		binding := &exportNode{
			delta: &DeltaRecord{DeclId: n.Meta.DeclId, Uuid: &uuidCopy},
		}

		insertBindingRecord(root, parentId, binding)
	}
}

func insertBindingRecord(root *exportNode, parentId ids.NodeId, binding *exportNode) bool {
	if root.nodeId == parentId {
		if !childHasDeclId(root.children, binding.declId()) {
			root.children = append(root.children, binding)
		}
		return true
	}

	for _, child := range root.children {
		if insertBindingRecord(child, parentId, binding) {
			return true
		}
	}

	return false
}

func childHasDeclId(children []*exportNode, declId ids.DeclId) bool {
	if declId == "" {
		return false
	}
	for _, c := range children {
		if c.declId() == declId {
			return true
		}
	}
	return false
}

func missingRecord() *exportNode {
	return &exportNode{
		full: &FullRecord{
			Type: "Missing",
			Uuid: ids.NewNodeUuid(),
			Meta: MetaDto{ShortName: "missing", Enabled: true, Label: "missing"},
			Data: NodeDataDto{Kind: "None"},
		},
	}
}
