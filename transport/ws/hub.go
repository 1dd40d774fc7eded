package ws

import (
	"sync"

	"github.com/krotik/nodeengine/edits"
	"github.com/krotik/nodeengine/engine"
	"github.com/krotik/nodeengine/events"
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/persistence"
	"github.com/krotik/nodeengine/wire"
)

/*
ProtocolVersion is the protocol_version this transport speaks, echoed
back in HelloAck.
*/
const ProtocolVersion = "1"

/*
subscription tracks one connection's Subscribe state: the scope it
asked to follow and the EventTime cursor broadcastEvents last pushed up
to.
*/
type subscription struct {
	scope  wire.Scope
	cursor events.EventTime
}

/*
Hub is the single cooperative owner of an engine.Engine that every
connected client's requests are serialized through, mirroring §5's "one
logical owner" invariant across a transport with many concurrent
connections. Handle holds Hub's mutex for its whole duration, so
requests from different connections reach the engine one at a time; the
same mutex guards the connection/subscription bookkeeping against
concurrent Register/Unregister calls.
*/
type Hub struct {
	mu     sync.Mutex
	Engine *engine.Engine

	subs map[*Connection]*subscription
}

/*
NewHub creates a Hub driving e.
*/
func NewHub(e *engine.Engine) *Hub {
	return &Hub{Engine: e, subs: make(map[*Connection]*subscription)}
}

/*
Register adds conn to the hub with no active subscription.
*/
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[conn] = nil
}

/*
Unregister removes conn from the hub.
*/
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, conn)
}

func (h *Hub) sendAck(conn *Connection, reqId string, ok bool, errMsg string) {
	env, err := wire.Encode(wire.MsgAck, reqId, wire.AckPayload{Ok: ok, Error: errMsg})
	if err != nil {
		return
	}
	conn.Send(env)
}

/*
resolveUuid finds the NodeId currently backing uuid, scanning the store
the same way persistence.newExportContext builds its own uuid index -
here done lazily per lookup since a live connection's scope lookups are
infrequent compared to a bulk export.
*/
func (h *Hub) resolveUuid(uuid ids.NodeUuid) (ids.NodeId, bool) {
	var found ids.NodeId
	var ok bool
	h.Engine.Store.Iter(func(n node.Node) {
		if !ok && n.Meta.Uuid == uuid {
			found, ok = n.Id, true
		}
	})
	return found, ok
}

func (h *Hub) scopeRoot(s wire.Scope) (ids.NodeId, bool) {
	if s.Mode == wire.ScopeSubtree && s.RootUuid != nil {
		return h.resolveUuid(*s.RootUuid)
	}
	return h.Engine.RootId(), true
}

/*
Handle processes one inbound envelope from conn and, for any message
that may have produced engine events, broadcasts them to every
subscribed connection before returning.
*/
func (h *Hub) Handle(conn *Connection, env wire.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch env.Msg {

	case wire.MsgHello:
		var p wire.HelloPayload
		env.Decode(&p)
		ack, err := wire.Encode(wire.MsgHelloAck, env.ReqId, wire.HelloAckPayload{
			ProtocolVersion: ProtocolVersion,
			ServerVersion:   ProtocolVersion,
		})
		if err == nil {
			conn.Send(ack)
		}

	case wire.MsgGetSnapshot:
		var p wire.GetSnapshotPayload
		if err := env.Decode(&p); err != nil {
			h.sendAck(conn, env.ReqId, false, err.Error())
			return
		}
		root, ok := h.scopeRoot(p.Scope)
		if !ok {
			h.sendAck(conn, env.ReqId, false, "unknown scope root")
			return
		}
		snap := persistence.ExportSnapshot(h.Engine, root, p.IncludeSchema)
		out, err := wire.Encode(wire.MsgSnapshot, env.ReqId, snap)
		if err == nil {
			conn.Send(out)
		}

	case wire.MsgSubscribe:
		var p wire.SubscribePayload
		if err := env.Decode(&p); err != nil {
			h.sendAck(conn, env.ReqId, false, err.Error())
			return
		}
		h.subs[conn] = &subscription{scope: p.Scope, cursor: p.From}
		h.sendAck(conn, env.ReqId, true, "")

	case wire.MsgSetParam:
		var p wire.SetParamPayload
		if err := env.Decode(&p); err != nil {
			h.sendAck(conn, env.ReqId, false, err.Error())
			return
		}
		h.Engine.EnqueueEdit(edits.SetParam(p.ParamNodeId, p.Value), p.Propagation, edits.FromNetwork)
		h.Engine.Tick()
		h.sendAck(conn, env.ReqId, true, "")

	case wire.MsgPatchMeta:
		var p wire.PatchMetaPayload
		if err := env.Decode(&p); err != nil {
			h.sendAck(conn, env.ReqId, false, err.Error())
			return
		}
		h.Engine.EnqueueEdit(edits.PatchMeta(p.Node, p.Patch.ToEdits()), edits.Immediate, edits.FromNetwork)
		h.Engine.Tick()
		h.sendAck(conn, env.ReqId, true, "")

	case wire.MsgCreateNode:
		var p wire.CreateNodePayload
		if err := env.Decode(&p); err != nil {
			h.sendAck(conn, env.ReqId, false, err.Error())
			return
		}
		h.createNode(conn, env.ReqId, p)

	case wire.MsgMoveNode:
		var p wire.MoveNodePayload
		if err := env.Decode(&p); err != nil {
			h.sendAck(conn, env.ReqId, false, err.Error())
			return
		}
		if err := h.Engine.Tree.MoveChild(p.Child, p.NewParent, p.Index); err != nil {
			h.sendAck(conn, env.ReqId, false, err.Error())
			return
		}
		h.sendAck(conn, env.ReqId, true, "")

	case wire.MsgDeleteNode:
		var p wire.DeleteNodePayload
		if err := env.Decode(&p); err != nil {
			h.sendAck(conn, env.ReqId, false, err.Error())
			return
		}
		if err := h.Engine.DeleteNode(p.Node); err != nil {
			h.sendAck(conn, env.ReqId, false, err.Error())
			return
		}
		h.sendAck(conn, env.ReqId, true, "")

	case wire.MsgBeginEdit, wire.MsgEndEdit:
		// UI-level edit-session bracketing only; the engine itself has no
		// notion of a session, so these are acknowledged without touching it.
		h.sendAck(conn, env.ReqId, true, "")

	default:
		h.sendAck(conn, env.ReqId, false, "unknown message: "+env.Msg)
	}

	h.broadcastLocked()
}

/*
createNode routes to InstantiateChildFromManager when parent is a
Manager node (§4.7), otherwise creates a plain opaque node directly and
links it under parent.
*/
func (h *Hub) createNode(conn *Connection, reqId string, p wire.CreateNodePayload) {
	if n, ok := h.Engine.Store.Get(p.Parent); ok && n.Data.Kind == node.DataManager {
		h.Engine.EnqueueEdit(
			edits.InstantiateChildFromManager(p.Parent, p.NodeType, p.Label, p.Execution.ToNode()),
			edits.Immediate, edits.FromNetwork,
		)
		h.Engine.Tick()
		h.sendAck(conn, reqId, true, "")
		return
	}

	id := h.Engine.CreateNode(p.NodeType, p.Execution.ToNode(), node.NoneData(),
		node.Metadata{Label: p.Label, Enabled: true}, nil)
	if err := h.Engine.AddChild(p.Parent, id); err != nil {
		h.sendAck(conn, reqId, false, err.Error())
		return
	}
	h.sendAck(conn, reqId, true, "")
}

/*
broadcastLocked pushes an EventBatch to every subscribed connection
whose scope matches at least one event produced since its cursor. Must
be called with h.mu held.
*/
func (h *Hub) broadcastLocked() {
	for conn, sub := range h.subs {
		if sub == nil {
			continue
		}

		evs, ok := h.Engine.EventsSince(sub.cursor)
		if !ok {
			// the subscriber's cursor has rolled off the bounded log; it
			// must re-request a snapshot rather than trust a partial replay.
			continue
		}
		if len(evs) == 0 {
			continue
		}

		// Advance past every event seen this round, matched or not, so a
		// scope that filters everything out doesn't reprocess it forever.
		sub.cursor = evs[len(evs)-1].Time

		filtered := h.filterByScope(evs, sub.scope)
		if len(filtered) == 0 {
			continue
		}

		batch, err := wire.Encode(wire.MsgEventBatch, "", wire.EventBatchFrom(filtered))
		if err == nil {
			conn.Send(batch)
		}
	}
}

func (h *Hub) filterByScope(evs []events.Event, scope wire.Scope) []events.Event {
	if scope.Mode != wire.ScopeSubtree || scope.RootUuid == nil {
		return evs
	}

	root, ok := h.resolveUuid(*scope.RootUuid)
	if !ok {
		return nil
	}

	out := make([]events.Event, 0, len(evs))
	for _, e := range evs {
		src, hasSrc := e.BubbleSource()
		if !hasSrc {
			out = append(out, e)
			continue
		}
		if src == root || h.Engine.Tree.IsDescendant(src, root) {
			out = append(out, e)
		}
	}
	return out
}
