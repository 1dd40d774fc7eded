/*
 * nodeengine
 *
 * Package engine ties the node store, tree, schema registry, edit queue
 * and event bus together behind the public contract of §6: a single
 * owner that creates nodes, accepts edits, and drives the tick loop.
 */
package engine

import (
	"devt.de/krotik/common/logutil"

	"github.com/krotik/nodeengine/edits"
	"github.com/krotik/nodeengine/events"
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/schema"
	"github.com/krotik/nodeengine/store"
	"github.com/krotik/nodeengine/tree"
)

var log = logutil.GetLogger("nodeengine.engine")

/*
Config carries the engine's tunables. A host typically builds one of
these from package config rather than populating it by hand.
*/
type Config struct {
	EventLogCapacity       int
	MaxStabilizationRounds int
}

/*
DefaultConfig returns the recommended tunables from §3 invariant 8 and
§4.5 ("MAX_STABILIZATION_ROUNDS = 8").
*/
func DefaultConfig() Config {
	return Config{
		EventLogCapacity:       events.DefaultLogCapacity,
		MaxStabilizationRounds: 8,
	}
}

const (
	// TypeFolder is the built-in node type auto-instantiation uses for
	// folder segments (§4.2 step 1).
	TypeFolder = "Folder"
	// TypeParameter is the built-in node type auto-instantiation uses
	// for declared parameters (§4.2 step 2).
	TypeParameter = "Parameter"
	// TypeRoot is the node type of the engine's own root node.
	TypeRoot = "Root"
)

/*
Engine is the single cooperative owner of the node store, tree, schema
registry, event bus and edit queues. It is not safe for concurrent use;
per §5 all mutation happens under one logical owner.
*/
type Engine struct {
	config Config

	Store   *store.NodeStore
	Tree    *tree.Tree
	Schemas *schema.Registry
	Bus     *events.Bus

	root ids.NodeId

	tickNum  uint64
	microNum uint64

	queue         edits.Queue // Immediate/EndOfTick edits due this tick's step 2
	deferredQueue edits.Queue // NextTick edits due at the *next* tick's step 2
}

/*
New constructs an engine with the given configuration and creates its
root node (type Root, a Container accepting any child type with folders
allowed).
*/
func New(cfg Config) *Engine {
	e := &Engine{
		config:  cfg,
		Store:   store.New(),
		Schemas: schema.NewRegistry(),
	}
	e.Bus = events.New(cfg.EventLogCapacity)
	e.Tree = tree.New(e.Store, e.Bus, e)

	e.root = e.CreateNode(
		TypeRoot,
		node.Passive,
		node.NewContainerData(node.AnyChildType, nil, node.FoldersAllowed, nil),
		node.Metadata{ShortName: "root", Enabled: true},
		nil,
	)

	return e
}

/*
Current implements tree.TimeSource, giving the tree the engine's current
logical time for stamping the events tree operations emit.
*/
func (e *Engine) Current() (tick, micro uint64) {
	return e.tickNum, e.microNum
}

/*
RootId returns the identifier of the engine's root node.
*/
func (e *Engine) RootId() ids.NodeId {
	return e.root
}

/*
CurrentTick returns the current tick number (0 before the first Tick).
*/
func (e *Engine) CurrentTick() uint64 {
	return e.tickNum
}

/*
Now returns the engine's current logical EventTime. The Seq component is
always reported as 0: Seq is an emission-order tiebreaker owned by the
bus, not a clock a caller can read ahead of an actual Emit.
*/
func (e *Engine) Now() events.EventTime {
	return events.EventTime{Tick: e.tickNum, Micro: e.microNum}
}

func (e *Engine) emit(kind events.Kind, data events.Payload) events.Event {
	return e.Bus.Emit(e.tickNum, e.microNum, kind, data)
}

/*
insertNode assigns a fresh UUID if meta carries none, inserts the node
into the store and emits NodeCreated exactly once. It does not link the
node into the tree and does not auto-instantiate its schema; callers
decide both.
*/
func (e *Engine) insertNode(nodeType string, execution node.ExecutionClass, data node.NodeData, meta node.Metadata, beh interface{}) ids.NodeId {
	if meta.Uuid == (ids.NodeUuid{}) {
		meta.Uuid = ids.NewNodeUuid()
	}

	id := e.Store.Insert(node.Node{
		NodeType:  nodeType,
		Execution: execution,
		Meta:      meta,
		Data:      data,
		Behavior:  beh,
	})

	e.emit(events.NodeCreated, events.NewNodeCreated(id))

	return id
}

/*
CreateNode inserts a new node and, if nodeType has a registered schema,
auto-instantiates its declared sub-tree (§4.2). The caller is
responsible for linking the returned id into the tree with AddChild.
*/
func (e *Engine) CreateNode(nodeType string, execution node.ExecutionClass, data node.NodeData, meta node.Metadata, behavior interface{}) ids.NodeId {
	id := e.insertNode(nodeType, execution, data, meta, behavior)

	if s, ok := e.Schemas.Get(nodeType); ok {
		e.instantiateSchema(id, s)
	}

	return id
}

/*
AddChild links child as the new last child of parent.
*/
func (e *Engine) AddChild(parent, child ids.NodeId) error {
	return e.Tree.AddChild(parent, child)
}

/*
RegisterSchema binds a schema to a node-type string.
*/
func (e *Engine) RegisterSchema(nodeType string, s *schema.NodeSchema) error {
	return e.Schemas.Register(nodeType, s)
}

/*
FindDescendantByDecl performs a pre-order depth-first search under root
for the first node whose decl-id equals declId.
*/
func (e *Engine) FindDescendantByDecl(root ids.NodeId, declId ids.DeclId) (ids.NodeId, bool) {
	return e.Tree.FindDescendantByDecl(root, declId)
}

/*
EventsSince returns every logged event with time strictly greater than
t. ok is false if t precedes the oldest retained event.
*/
func (e *Engine) EventsSince(t events.EventTime) ([]events.Event, bool) {
	return e.Bus.EventsSince(t)
}

/*
Subscribe registers a listener on the event bus.
*/
func (e *Engine) Subscribe(spec events.ListenerSpec) {
	e.Bus.Subscribe(spec)
}
