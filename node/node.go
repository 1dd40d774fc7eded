/*
 * nodeengine
 *
 * Package node defines the Node type, its Metadata, and the NodeData sum
 * (None, Container, Parameter, Custom, Manager).
 */
package node

import (
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/values"
)

/*
ExecutionClass classifies how a node participates in the tick loop.
*/
type ExecutionClass int

const (
	Passive ExecutionClass = iota
	Reactive
	Continuous
)

/*
SemanticsHint carries intent/unit metadata for UI presentation and tooling,
not consumed by the engine itself.
*/
type SemanticsHint struct {
	Intent string
	Unit   string
}

/*
PresentationHint names the widget a UI should use to render a parameter.
*/
type PresentationHint struct {
	Widget string
}

/*
Metadata carries the identity and descriptive information every node has,
independent of its payload.
*/
type Metadata struct {
	Uuid        ids.NodeUuid
	DeclId      ids.DeclId
	ShortName   string
	Enabled     bool
	Label       string
	Description *string
	Tags        []string
	Semantics   SemanticsHint
	Presentation PresentationHint
}

/*
Clone returns a deep-enough copy of Metadata suitable for handing to a
behavior as a read-only view (slices and the optional Description pointer
are copied so later in-place edits cannot be observed by a held view).
*/
func (m Metadata) Clone() Metadata {
	c := m
	if m.Description != nil {
		d := *m.Description
		c.Description = &d
	}
	if m.Tags != nil {
		c.Tags = append([]string(nil), m.Tags...)
	}
	return c
}

/*
DataKind discriminates a NodeData variant.
*/
type DataKind int

const (
	DataNone DataKind = iota
	DataContainer
	DataParameter
	DataCustom
	DataManager
)

/*
ChildPolicy restricts which node types a Container may parent.
*/
type ChildPolicy int

const (
	AnyChildType ChildPolicy = iota
	OnlyChildTypes
)

/*
FolderPolicy governs whether folder containers may be created under a
Container node by schema auto-instantiation.
*/
type FolderPolicy int

const (
	FoldersAllowed FolderPolicy = iota
	FoldersForbidden
)

/*
ContainerData is the payload of a Container node.
*/
type ContainerData struct {
	ChildPolicy   ChildPolicy
	AllowedTypes  map[string]bool // only meaningful when ChildPolicy == OnlyChildTypes
	FolderPolicy  FolderPolicy
	MaxChildren   *int
}

/*
UpdatePolicy controls when a SetParam edit targeting this parameter is
allowed to apply relative to the tick loop.
*/
type UpdatePolicy int

const (
	UpdateImmediate UpdatePolicy = iota
	UpdateEndOfTick
	UpdateNextTick
)

/*
SavePolicy controls whether a parameter's value is persisted.
*/
type SavePolicy int

const (
	SaveNone SavePolicy = iota
	SaveDelta
	SaveFull
)

/*
ChangePolicy controls whether a ParamChanged event fires unconditionally or
only on an actual value change.
*/
type ChangePolicy int

const (
	ChangeAlways ChangePolicy = iota
	ChangeValueChange
)

/*
ParameterData is the payload of a Parameter node.
*/
type ParameterData struct {
	Value       values.Value
	Default     *values.Value
	ReadOnly    bool
	Update      UpdatePolicy
	Save        SavePolicy
	Change      ChangePolicy
	Constraints values.ValueConstraints
}

/*
CustomData is an opaque payload owned entirely by the node type that
declared it; the engine never interprets its contents.
*/
type CustomData struct {
	Payload interface{}
}

/*
Registration pairs a schema with a behavior factory for one node type,
keyed by node type inside a Manager node's table.
*/
type Registration struct {
	NodeType        string
	Schema          interface{} // *schema.NodeSchema; interface{} avoids an import cycle
	BehaviorFactory interface{} // func(NodeBinding) Behavior; see package manager
}

/*
ManagerData is the payload of a Manager node: a table of node-type ->
registration, consulted by InstantiateChildFromManager.
*/
type ManagerData struct {
	Registrations map[string]Registration
}

/*
NodeData is the tagged sum of a node's typed payload.
*/
type NodeData struct {
	Kind      DataKind
	Container ContainerData
	Parameter ParameterData
	Custom    CustomData
	Manager   ManagerData
}

func NoneData() NodeData { return NodeData{Kind: DataNone} }

func NewContainerData(policy ChildPolicy, allowed []string, folders FolderPolicy, max *int) NodeData {
	var set map[string]bool
	if policy == OnlyChildTypes {
		set = make(map[string]bool, len(allowed))
		for _, t := range allowed {
			set[t] = true
		}
	}
	return NodeData{Kind: DataContainer, Container: ContainerData{
		ChildPolicy: policy, AllowedTypes: set, FolderPolicy: folders, MaxChildren: max,
	}}
}

func NewParameterData(p ParameterData) NodeData {
	return NodeData{Kind: DataParameter, Parameter: p}
}

func NewCustomData(payload interface{}) NodeData {
	return NodeData{Kind: DataCustom, Custom: CustomData{Payload: payload}}
}

func NewManagerData() NodeData {
	return NodeData{Kind: DataManager, Manager: ManagerData{Registrations: map[string]Registration{}}}
}

/*
Node is one element of the tree: a typed payload plus intrusive tree links.
Tree link fields are "optional" via ids.NodeId.IsValid() / InvalidNodeId
rather than pointers, so a Node can live in a flat arena (package store)
without per-link heap allocations.

Behavior is an opaque handle (interface{} to avoid an import cycle onto
package behavior); the engine type-asserts it to behavior.Processor /
behavior.Updater at the point of invocation.
*/
type Node struct {
	Id        ids.NodeId
	NodeType  string
	Execution ExecutionClass
	Meta      Metadata
	Data      NodeData
	Behavior  interface{}

	Parent      ids.NodeId // InvalidNodeId if this is the root
	FirstChild  ids.NodeId
	LastChild   ids.NodeId
	PrevSibling ids.NodeId
	NextSibling ids.NodeId
}
