/*
 * nodeengine
 *
 * Package manager implements the manager pattern (§4.7): a Manager node's
 * payload carries a table of node-type -> {schema, behavior factory}
 * registrations. A NodeBinding maps every decl-id a schema declared to
 * the concrete NodeId auto-instantiation produced for one specific
 * instance, so a factory can wire a freshly materialized sub-tree to a
 * behavior without re-discovering its own shape.
 */
package manager

import (
	"github.com/krotik/nodeengine/behavior"
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/schema"
)

/*
NodeBinding maps every decl-id an instance's schema declared (folders,
parameters, declared children) to the concrete NodeId materialized for
that specific instance, plus the instance's own node id.
*/
type NodeBinding struct {
	NodeId ids.NodeId
	ByDecl map[ids.DeclId]ids.NodeId
}

/*
Resolve looks up the concrete NodeId for a decl-id within this binding.
*/
func (b NodeBinding) Resolve(declId ids.DeclId) (ids.NodeId, bool) {
	id, ok := b.ByDecl[declId]
	return id, ok
}

/*
Factory builds a Behavior for a freshly instantiated sub-tree.
*/
type Factory func(NodeBinding) behavior.Behavior

/*
Registration pairs a schema with a behavior factory for one node type.
*/
type Registration struct {
	NodeType string
	Schema   *schema.NodeSchema
	Factory  Factory
}

/*
Table is a node-type -> Registration map, the Go-level counterpart of a
Manager node's raw node.ManagerData.Registrations.
*/
type Table map[string]Registration

/*
NewData builds the node.NodeData payload for a Manager node from a typed
Table, boxing Schema/Factory as interface{} so package node (a low-level
data-model package) never needs to import schema or manager.
*/
func NewData(table Table) node.NodeData {
	regs := make(map[string]node.Registration, len(table))
	for nodeType, reg := range table {
		regs[nodeType] = node.Registration{
			NodeType:        nodeType,
			Schema:          reg.Schema,
			BehaviorFactory: reg.Factory,
		}
	}
	return node.NodeData{Kind: node.DataManager, Manager: node.ManagerData{Registrations: regs}}
}

/*
Lookup finds the Registration for nodeType inside a Manager node's raw
payload, unboxing the interface{} fields back to their concrete types.
Returns false if the node does not carry Manager data, or has no
registration for nodeType, or the registration's boxed fields are not the
expected concrete types (a corrupt/foreign registration - treated as "not
found" rather than panicking).
*/
func Lookup(d node.NodeData, nodeType string) (Registration, bool) {
	if d.Kind != node.DataManager {
		return Registration{}, false
	}

	raw, ok := d.Manager.Registrations[nodeType]
	if !ok {
		return Registration{}, false
	}

	s, ok := raw.Schema.(*schema.NodeSchema)
	if !ok {
		return Registration{}, false
	}
	f, ok := raw.BehaviorFactory.(Factory)
	if !ok {
		return Registration{}, false
	}

	return Registration{NodeType: nodeType, Schema: s, Factory: f}, true
}

/*
Register adds or replaces a registration inside an existing Manager
node's payload, returning the updated NodeData. Returns the input
unchanged if d does not carry Manager data.
*/
func Register(d node.NodeData, reg Registration) node.NodeData {
	if d.Kind != node.DataManager {
		return d
	}
	if d.Manager.Registrations == nil {
		d.Manager.Registrations = map[string]node.Registration{}
	}
	d.Manager.Registrations[reg.NodeType] = node.Registration{
		NodeType:        reg.NodeType,
		Schema:          reg.Schema,
		BehaviorFactory: reg.Factory,
	}
	return d
}
