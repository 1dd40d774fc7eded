/*
 * nodeengine
 *
 * Package wire defines the JSON envelope and per-message payload types
 * §6 specifies for the UI/network protocol: every message is
 * {"msg": <string>, "req_id"?: <string>, "payload": <object>}. This
 * package only shapes messages; a transport (package transport/ws)
 * decodes them and drives the engine.
 */
package wire

import (
	"encoding/json"

	"github.com/krotik/nodeengine/edits"
	"github.com/krotik/nodeengine/events"
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/persistence"
	"github.com/krotik/nodeengine/values"
)

// Message names, used as Envelope.Msg.
const (
	MsgGetSnapshot = "GetSnapshot"
	MsgSubscribe   = "Subscribe"
	MsgSetParam    = "SetParam"
	MsgPatchMeta   = "PatchMeta"
	MsgCreateNode  = "CreateNode"
	MsgMoveNode    = "MoveNode"
	MsgDeleteNode  = "DeleteNode"
	MsgBeginEdit   = "BeginEdit"
	MsgEndEdit     = "EndEdit"
	MsgHello       = "Hello"

	MsgHelloAck   = "HelloAck"
	MsgSnapshot   = "Snapshot"
	MsgEventBatch = "EventBatch"
	MsgAck        = "Ack"
)

/*
Envelope is the outer shape every wire message shares.
*/
type Envelope struct {
	Msg     string          `json:"msg"`
	ReqId   string          `json:"req_id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

/*
Encode marshals payload and wraps it in an Envelope addressed to msg,
optionally tagged with reqId (pass "" to omit it).
*/
func Encode(msg, reqId string, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Msg: msg, ReqId: reqId, Payload: raw}, nil
}

/*
Decode unmarshals env's payload into out.
*/
func (env Envelope) Decode(out interface{}) error {
	return json.Unmarshal(env.Payload, out)
}

/*
ScopeMode selects whether a GetSnapshot/Subscribe request covers the
whole tree or a single subtree.
*/
type ScopeMode string

const (
	ScopeRoot    ScopeMode = "Root"
	ScopeSubtree ScopeMode = "Subtree"
)

/*
Scope narrows a GetSnapshot/Subscribe request to a subtree, identified by
the root node's UUID (stable across a session, unlike a NodeId which is
only valid within one store).
*/
type Scope struct {
	Mode     ScopeMode     `json:"mode"`
	RootUuid *ids.NodeUuid `json:"root_uuid,omitempty"`
}

/*
GetSnapshotPayload is GetSnapshot's payload.
*/
type GetSnapshotPayload struct {
	Scope         Scope `json:"scope"`
	IncludeSchema bool  `json:"include_schema"`
}

/*
SubscribePayload is Subscribe's payload: From lets a reconnecting client
resume exactly where its last EventsSince call left off.
*/
type SubscribePayload struct {
	Scope Scope            `json:"scope"`
	From  events.EventTime `json:"from"`
}

/*
SetParamPayload is SetParam's payload.
*/
type SetParamPayload struct {
	EditSessionId *string           `json:"edit_session_id,omitempty"`
	ParamNodeId   ids.NodeId        `json:"param_node_id"`
	Value         values.Value      `json:"value"`
	Propagation   edits.Propagation `json:"propagation"`
}

/*
MetaPatch is the wire shape of a metadata patch: absent fields are
omitted; Description uses option-of-option semantics (outer nil ==
field absent, outer non-nil pointing at nil == explicit null, outer
non-nil pointing at a string == the new description) so "clear the
description" and "leave it alone" are distinguishable on the wire.
*/
type MetaPatch struct {
	Enabled      *bool                  `json:"enabled,omitempty"`
	Label        *string                `json:"label,omitempty"`
	Description  **string               `json:"description,omitempty"`
	Tags         *[]string              `json:"tags,omitempty"`
	Semantics    *node.SemanticsHint    `json:"semantics,omitempty"`
	Presentation *node.PresentationHint `json:"presentation,omitempty"`
}

/*
UnmarshalJSON decodes a wire MetaPatch, turning an explicit
"description": null into an outer non-nil Description pointing at nil.
*/
func (p *MetaPatch) UnmarshalJSON(data []byte) error {
	type plain MetaPatch
	if err := json.Unmarshal(data, (*plain)(p)); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["description"]; ok && string(raw) == "null" {
		var cleared *string
		p.Description = &cleared
	}
	return nil
}

/*
ToEdits converts a wire MetaPatch into the edits.MetaPatch the engine's
dispatcher consumes.
*/
func (p MetaPatch) ToEdits() edits.MetaPatch {
	out := edits.MetaPatch{
		Enabled:      p.Enabled,
		Label:        p.Label,
		Tags:         p.Tags,
		Semantics:    p.Semantics,
		Presentation: p.Presentation,
	}
	if p.Description != nil {
		out.DescriptionSet = true
		out.Description = *p.Description
	}
	return out
}

/*
FromEditsMetaPatch converts an edits.MetaPatch (as carried by a
MetaChanged event) into its wire shape.
*/
func FromEditsMetaPatch(p edits.MetaPatch) MetaPatch {
	out := MetaPatch{
		Enabled:      p.Enabled,
		Label:        p.Label,
		Tags:         p.Tags,
		Semantics:    p.Semantics,
		Presentation: p.Presentation,
	}
	if p.DescriptionSet {
		d := p.Description
		out.Description = &d
	}
	return out
}

/*
PatchMetaPayload is PatchMeta's payload.
*/
type PatchMetaPayload struct {
	EditSessionId *string    `json:"edit_session_id,omitempty"`
	Node          ids.NodeId `json:"node"`
	Patch         MetaPatch  `json:"patch"`
}

/*
ExecutionWire is the wire string form of node.ExecutionClass.
*/
type ExecutionWire string

const (
	ExecPassive    ExecutionWire = "Passive"
	ExecReactive   ExecutionWire = "Reactive"
	ExecContinuous ExecutionWire = "Continuous"
)

/*
ToNode converts a wire execution class string into node.ExecutionClass,
defaulting to Passive for an empty or unrecognized value.
*/
func (e ExecutionWire) ToNode() node.ExecutionClass {
	switch e {
	case ExecReactive:
		return node.Reactive
	case ExecContinuous:
		return node.Continuous
	}
	return node.Passive
}

/*
FromNodeExecution converts a node.ExecutionClass into its wire string form.
*/
func FromNodeExecution(e node.ExecutionClass) ExecutionWire {
	switch e {
	case node.Reactive:
		return ExecReactive
	case node.Continuous:
		return ExecContinuous
	}
	return ExecPassive
}

/*
CreateNodePayload is CreateNode's payload: a request to materialize a new
node of NodeType under Parent (typically routed to
enqueue_edit(InstantiateChildFromManager) by the transport if Parent is
a Manager node, or straight to create_node/add_child otherwise).
*/
type CreateNodePayload struct {
	Parent    ids.NodeId    `json:"parent"`
	NodeType  string        `json:"node_type"`
	Label     string        `json:"label,omitempty"`
	Execution ExecutionWire `json:"execution"`
}

/*
MoveNodePayload is MoveNode's payload.
*/
type MoveNodePayload struct {
	Child     ids.NodeId `json:"child"`
	NewParent ids.NodeId `json:"new_parent"`
	Index     int        `json:"index"`
}

/*
DeleteNodePayload is DeleteNode's payload.
*/
type DeleteNodePayload struct {
	Node ids.NodeId `json:"node"`
}

/*
BeginEditPayload/EndEditPayload bracket a logical multi-step edit (e.g. a
UI drag gesture), so a transport can coalesce intermediate Immediate
SetParam edits into one undo step without the engine needing to know
about UI-level grouping.
*/
type BeginEditPayload struct {
	EditSessionId string `json:"edit_session_id"`
}

type EndEditPayload struct {
	EditSessionId string `json:"edit_session_id"`
}

/*
HelloPayload/HelloAckPayload are the connection handshake.
*/
type HelloPayload struct {
	ProtocolVersion string `json:"protocol_version"`
}

type HelloAckPayload struct {
	ProtocolVersion string `json:"protocol_version"`
	ServerVersion   string `json:"server_version,omitempty"`
}

/*
EventDto is the wire shape of one events.Event: Kind is its string form
and only the fields relevant to Kind are populated, mirroring
events.Payload itself.
*/
type EventDto struct {
	Time events.EventTime `json:"time"`
	Kind string           `json:"kind"`

	Param      *ids.NodeId   `json:"param,omitempty"`
	Value      *values.Value `json:"value,omitempty"`
	ParentNode *ids.NodeId   `json:"parent_node,omitempty"`
	Child      *ids.NodeId   `json:"child,omitempty"`
	Old        *ids.NodeId   `json:"old,omitempty"`
	New        *ids.NodeId   `json:"new,omitempty"`
	OldParent  *ids.NodeId   `json:"old_parent,omitempty"`
	NewParent  *ids.NodeId   `json:"new_parent,omitempty"`
	Node       *ids.NodeId   `json:"node,omitempty"`
	MetaPatch  *MetaPatch    `json:"meta_patch,omitempty"`
}

/*
EventToDto converts an engine event into its wire shape.
*/
func EventToDto(e events.Event) EventDto {
	dto := EventDto{Time: e.Time, Kind: e.Kind.String()}

	switch e.Kind {
	case events.ParamChanged:
		p := e.Data.Param
		dto.Param = &p
		if v, ok := e.Data.Value.(values.Value); ok {
			dto.Value = &v
		}

	case events.ChildAdded, events.ChildRemoved, events.ChildReordered:
		pn := e.Data.ParentNode
		dto.ParentNode = &pn
		c := e.Data.Child
		dto.Child = &c

	case events.ChildReplaced:
		pn := e.Data.ParentNode
		dto.ParentNode = &pn
		o := e.Data.Old
		dto.Old = &o
		n := e.Data.New
		dto.New = &n

	case events.ChildMoved:
		c := e.Data.Child
		dto.Child = &c
		op := e.Data.OldParent
		dto.OldParent = &op
		np := e.Data.NewParent
		dto.NewParent = &np

	case events.NodeCreated, events.NodeDeleted:
		n := e.Data.Node
		dto.Node = &n

	case events.MetaChanged:
		n := e.Data.Node
		dto.Node = &n
		if patch, ok := e.Data.MetaPatch.(edits.MetaPatch); ok {
			mp := FromEditsMetaPatch(patch)
			dto.MetaPatch = &mp
		}
	}

	return dto
}

/*
EventBatchPayload is the server-pushed EventBatch message's payload.
*/
type EventBatchPayload struct {
	Events []EventDto `json:"events"`
}

/*
EventBatchFrom converts a slice of engine events into an EventBatchPayload.
*/
func EventBatchFrom(evs []events.Event) EventBatchPayload {
	out := make([]EventDto, len(evs))
	for i, e := range evs {
		out[i] = EventToDto(e)
	}
	return EventBatchPayload{Events: out}
}

/*
AckPayload is the server-pushed Ack message's payload, confirming or
rejecting a client request named by the originating Envelope's ReqId.
*/
type AckPayload struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

/*
SnapshotPayload is the server-pushed Snapshot message's payload: the same
flat DTO persistence.ExportSnapshot builds, so GetSnapshot's reply and
the project file's flat-export view share one definition.
*/
type SnapshotPayload = persistence.Snapshot
