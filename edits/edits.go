/*
 * nodeengine
 *
 * Package edits defines the typed Edit variants accepted by the engine's
 * dispatcher, their propagation class and origin, and the FIFO queue they
 * travel through before being applied.
 */
package edits

import (
	"encoding/json"
	"fmt"

	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/values"
)

/*
Propagation controls when an enqueued edit is applied relative to the tick
loop.
*/
type Propagation int

const (
	Immediate Propagation = iota
	EndOfTick
	NextTick
)

func (p Propagation) String() string {
	switch p {
	case Immediate:
		return "Immediate"
	case EndOfTick:
		return "EndOfTick"
	case NextTick:
		return "NextTick"
	}
	return "Unknown"
}

/*
MarshalJSON encodes a Propagation as its string form, the representation
the wire protocol's "propagation" field uses.
*/
func (p Propagation) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

/*
UnmarshalJSON parses the string form produced by MarshalJSON.
*/
func (p *Propagation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Immediate":
		*p = Immediate
	case "EndOfTick":
		*p = EndOfTick
	case "NextTick":
		*p = NextTick
	default:
		return fmt.Errorf("edits: unknown propagation %q", s)
	}
	return nil
}

/*
Origin identifies who produced an edit.
*/
type Origin int

const (
	FromUI Origin = iota
	FromNetwork
	FromScript
	FromInternal
)

func (o Origin) String() string {
	switch o {
	case FromUI:
		return "UI"
	case FromNetwork:
		return "Network"
	case FromScript:
		return "Script"
	case FromInternal:
		return "Internal"
	}
	return "Unknown"
}

/*
Kind discriminates an Edit's variant.
*/
type Kind int

const (
	KindSetParam Kind = iota
	KindPatchMeta
	KindInstantiateChildFromManager
)

/*
MetaPatch describes a partial Metadata update: absent fields (nil pointer)
mean "leave unchanged"; present fields mean "assign". Description is
option-of-option (DescriptionSet tells whether Description itself was
provided at all; a provided-but-nil Description means "clear it").
*/
type MetaPatch struct {
	ShortName      *string
	Enabled        *bool
	Label          *string
	DescriptionSet bool
	Description    *string // meaningful only if DescriptionSet
	Tags           *[]string
	Semantics      *node.SemanticsHint
	Presentation   *node.PresentationHint
}

/*
Edit is the tagged sum of operations the dispatcher can apply. Only the
fields relevant to Kind are populated.
*/
type Edit struct {
	Kind Kind

	// SetParam
	Node  ids.NodeId
	Value values.Value

	// PatchMeta (reuses Node above for the target)
	Patch MetaPatch

	// InstantiateChildFromManager
	Manager   ids.NodeId
	NodeType  string
	Label     string
	Execution node.ExecutionClass
}

func SetParam(n ids.NodeId, v values.Value) Edit {
	return Edit{Kind: KindSetParam, Node: n, Value: v}
}

func PatchMeta(n ids.NodeId, patch MetaPatch) Edit {
	return Edit{Kind: KindPatchMeta, Node: n, Patch: patch}
}

func InstantiateChildFromManager(manager ids.NodeId, nodeType, label string, execution node.ExecutionClass) Edit {
	return Edit{Kind: KindInstantiateChildFromManager, Manager: manager, NodeType: nodeType, Label: label, Execution: execution}
}

/*
Enqueued pairs an Edit with the Propagation/Origin it was submitted with.
*/
type Enqueued struct {
	Edit        Edit
	Propagation Propagation
	Origin      Origin
}

/*
Queue is a simple FIFO of enqueued edits. Per §5, edits entering a queue
from a single origin are delivered FIFO; the engine keeps one external
queue (fed by enqueue_edit) and one outgoing queue per behavior
invocation (fed by ProcessCtx).
*/
type Queue struct {
	items []Enqueued
}

/*
Push appends e to the back of the queue.
*/
func (q *Queue) Push(e Enqueued) {
	q.items = append(q.items, e)
}

/*
Drain returns all queued edits in FIFO order and empties the queue.
*/
func (q *Queue) Drain() []Enqueued {
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

/*
Len reports how many edits are currently queued.
*/
func (q *Queue) Len() int { return len(q.items) }
