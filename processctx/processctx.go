/*
 * nodeengine
 *
 * Package processctx defines ProcessCtx, the per-invocation context the
 * scheduler hands to a node's behavior (§4.6). It carries read-only
 * snapshots of parameter values and metadata, the inbox for this
 * invocation, and a fresh outgoing edit queue; behaviors never mutate the
 * engine directly, they only enqueue edits through this context and
 * return.
 */
package processctx

import (
	"github.com/krotik/nodeengine/edits"
	"github.com/krotik/nodeengine/events"
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/values"
)

/*
Phase identifies which part of the tick loop is invoking a behavior.
*/
type Phase int

const (
	EngineTick Phase = iota
	EndOfTickStabilization
	FlushImmediate
)

func (p Phase) String() string {
	switch p {
	case EngineTick:
		return "EngineTick"
	case EndOfTickStabilization:
		return "EndOfTickStabilization"
	case FlushImmediate:
		return "FlushImmediate"
	}
	return "Unknown"
}

/*
ParamView is a read-only snapshot of parameter values keyed by node id,
taken at the start of the current drain round or update pass so in-round
mutations are never observed (§5, §4.6).
*/
type ParamView map[ids.NodeId]values.Value

/*
MetaView is a read-only snapshot of metadata keyed by node id, taken at
the same moment as the accompanying ParamView.
*/
type MetaView map[ids.NodeId]node.Metadata

/*
ProcessCtx is handed to a behavior's Process/Update hook for one
invocation.
*/
type ProcessCtx struct {
	Phase   Phase
	Time    events.EventTime
	Inbox   []events.Event
	Params  ParamView
	Meta    MetaView
	Outgoing edits.Queue
}

/*
ReadParam returns the snapshot value of a parameter node, or false if id
has no snapshotted parameter value.
*/
func (c *ProcessCtx) ReadParam(id ids.NodeId) (values.Value, bool) {
	v, ok := c.Params[id]
	return v, ok
}

/*
ReadMeta returns the snapshot metadata of a node, or false if id has no
snapshotted metadata.
*/
func (c *ProcessCtx) ReadMeta(id ids.NodeId) (node.Metadata, bool) {
	m, ok := c.Meta[id]
	return m, ok
}

/*
SetParamWith enqueues a SetParam edit with an explicit propagation class.
*/
func (c *ProcessCtx) SetParamWith(id ids.NodeId, v values.Value, prop edits.Propagation) {
	c.Outgoing.Push(edits.Enqueued{Edit: edits.SetParam(id, v), Propagation: prop, Origin: edits.FromInternal})
}

/*
SetParam enqueues a SetParam edit with the default EndOfTick propagation.
*/
func (c *ProcessCtx) SetParam(id ids.NodeId, v values.Value) {
	c.SetParamWith(id, v, edits.EndOfTick)
}

/*
SetParamImmediate enqueues a SetParam edit with Immediate propagation.
*/
func (c *ProcessCtx) SetParamImmediate(id ids.NodeId, v values.Value) {
	c.SetParamWith(id, v, edits.Immediate)
}

/*
SetParamNextTick enqueues a SetParam edit with NextTick propagation.
*/
func (c *ProcessCtx) SetParamNextTick(id ids.NodeId, v values.Value) {
	c.SetParamWith(id, v, edits.NextTick)
}

/*
PatchMeta enqueues a PatchMeta edit with the default EndOfTick propagation.
*/
func (c *ProcessCtx) PatchMeta(id ids.NodeId, patch edits.MetaPatch) {
	c.Outgoing.Push(edits.Enqueued{Edit: edits.PatchMeta(id, patch), Propagation: edits.EndOfTick, Origin: edits.FromInternal})
}

/*
InstantiateChildFromManager enqueues an InstantiateChildFromManager edit.
execution defaults to node.Reactive and propagation to EndOfTick when the
variadic arguments are omitted, matching the engine API's
`instantiate_child_from_manager(manager, node_type, label[, execution[, propagation]])`.
*/
func (c *ProcessCtx) InstantiateChildFromManager(manager ids.NodeId, nodeType, label string, rest ...interface{}) {
	execution := node.Reactive
	prop := edits.EndOfTick

	if len(rest) > 0 {
		if e, ok := rest[0].(node.ExecutionClass); ok {
			execution = e
		}
	}
	if len(rest) > 1 {
		if p, ok := rest[1].(edits.Propagation); ok {
			prop = p
		}
	}

	c.Outgoing.Push(edits.Enqueued{
		Edit:        edits.InstantiateChildFromManager(manager, nodeType, label, execution),
		Propagation: prop,
		Origin:      edits.FromInternal,
	})
}
