/*
 * nodeengine
 *
 * Package scripted bridges engine events to an ECAL rule base, the same
 * way devt.de/eliasdb/ecal.EventBridge bridges graph events: every inbox
 * event is translated into a namespaced ECAL event, injected via
 * Processor.AddEventAndWait, and any sink errors are logged rather than
 * surfaced back into the tick loop.
 */
package scripted

import (
	"fmt"
	"strings"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/ecal/engine"
	"devt.de/krotik/ecal/scope"
	"devt.de/krotik/ecal/util"

	"github.com/krotik/nodeengine/behavior"
	"github.com/krotik/nodeengine/edits"
	"github.com/krotik/nodeengine/events"
	"github.com/krotik/nodeengine/processctx"
	"github.com/krotik/nodeengine/values"
)

/*
EventMapping names the ECAL event a given engine event.Kind is bridged
to. Dotted the same way db.node.created etc. are, so ECAL rule KindMatch
patterns can filter on a prefix ("node.child.*") exactly like EliasDB's
own ECAL rules filter on "db.node.*".
*/
var EventMapping = map[events.Kind]string{
	events.ParamChanged:   "node.param.changed",
	events.ChildAdded:     "node.child.added",
	events.ChildRemoved:   "node.child.removed",
	events.ChildReplaced:  "node.child.replaced",
	events.ChildMoved:     "node.child.moved",
	events.ChildReordered: "node.child.reordered",
	events.NodeCreated:    "node.created",
	events.NodeDeleted:    "node.deleted",
	events.MetaChanged:    "node.meta.changed",
}

/*
Behavior runs an ECAL rule base in place of Go process/update hooks: its
Process forwards every drained inbox event to Processor as an ECAL
event, and its Update (when TickEvent is non-empty) injects a periodic
tick event so rules can run logic independent of any specific inbox
event.
*/
type Behavior struct {
	Processor engine.Processor
	Logger    util.Logger

	// TickEvent, if non-empty, is injected once per Update invocation
	// (the Continuous execution class's per-tick hook).
	TickEvent string
}

var _ behavior.Processor = (*Behavior)(nil)
var _ behavior.Updater = (*Behavior)(nil)

/*
NewBehavior builds a scripted Behavior bound to an already-running ECAL
processor and logger, as produced by the teacher's own
tool.CLIInterpreter.RuntimeProvider.
*/
func NewBehavior(processor engine.Processor, logger util.Logger) *Behavior {
	return &Behavior{Processor: processor, Logger: logger}
}

/*
Process implements behavior.Processor by forwarding every event in
ctx.Inbox to the ECAL rule base in order.
*/
func (b *Behavior) Process(ctx *processctx.ProcessCtx) {
	for _, ev := range ctx.Inbox {
		b.forward(ev)
	}
}

/*
Update implements behavior.Updater by injecting TickEvent, if set, once
per Continuous-class invocation.
*/
func (b *Behavior) Update(ctx *processctx.ProcessCtx) {
	if b.TickEvent == "" {
		return
	}

	kindParts := strings.Split(b.TickEvent, ".")
	check := engine.NewEvent(b.TickEvent, kindParts, nil)
	if !b.Processor.IsTriggering(check) {
		return
	}

	state := map[interface{}]interface{}{
		"tick":  ctx.Time.Tick,
		"micro": ctx.Time.Micro,
	}

	b.inject(b.TickEvent, kindParts, state)
}

func (b *Behavior) forward(ev events.Event) {
	name, ok := EventMapping[ev.Kind]
	if !ok {
		return
	}

	kindParts := strings.Split(name, ".")

	check := engine.NewEvent(name, kindParts, nil)
	if !b.Processor.IsTriggering(check) {
		// No rule can fire on this event; skip the relatively costly
		// state construction below, same short-circuit eventbridge.go
		// uses before building its own state map.
		return
	}

	state := buildState(ev)

	b.inject(name, kindParts, state)
}

func (b *Behavior) inject(name string, kindParts []string, state map[interface{}]interface{}) {
	event := engine.NewEvent(name, kindParts, state)

	m, err := b.Processor.AddEventAndWait(event, nil)

	if err == nil {
		if errs := m.(*engine.RootMonitor).AllErrors(); len(errs) > 0 {
			var errList []error
			for _, e := range errs {
				errList = append(errList, e)
			}
			err = &errorutil.CompositeError{Errors: errList}
		}
	}

	if err != nil {
		b.Logger.LogDebug(fmt.Sprintf("event %v was handled by ECAL and returned: %v", name, err))
	}
}

func buildState(ev events.Event) map[interface{}]interface{} {
	state := map[interface{}]interface{}{
		"tick":  ev.Time.Tick,
		"micro": ev.Time.Micro,
		"seq":   ev.Time.Seq,
	}

	switch ev.Kind {
	case events.ParamChanged:
		state["param"] = ev.Data.Param.String()
		if v, ok := ev.Data.Value.(values.Value); ok {
			state["value"] = toECALValue(v)
		}

	case events.ChildAdded, events.ChildRemoved, events.ChildReordered:
		state["parent"] = ev.Data.ParentNode.String()
		state["child"] = ev.Data.Child.String()

	case events.ChildReplaced:
		state["parent"] = ev.Data.ParentNode.String()
		state["old"] = ev.Data.Old.String()
		state["new"] = ev.Data.New.String()

	case events.ChildMoved:
		state["child"] = ev.Data.Child.String()
		state["old_parent"] = ev.Data.OldParent.String()
		state["new_parent"] = ev.Data.NewParent.String()

	case events.NodeCreated, events.NodeDeleted:
		state["node"] = ev.Data.Node.String()

	case events.MetaChanged:
		state["node"] = ev.Data.Node.String()
		if patch, ok := ev.Data.MetaPatch.(edits.MetaPatch); ok {
			state["meta"] = scope.ConvertJSONToECALObject(metaPatchToJSON(patch))
		}
	}

	return state
}

/*
toECALValue converts a values.Value into an ECAL value: bool, int,
float and string kinds pass through unwrapped, a trigger becomes true, a
reference becomes its uuid string, and vector, color and enum kinds
become ECAL maps via scope.ConvertJSONToECALObject. The result carries no
kind tag.
*/
func toECALValue(v values.Value) interface{} {
	switch v.Kind {
	case values.KindBool:
		return v.Bool
	case values.KindInt:
		return v.Int
	case values.KindFloat:
		return v.Float
	case values.KindString:
		return v.Str
	case values.KindVec2:
		return scope.ConvertJSONToECALObject(map[string]interface{}{"x": v.Vec2.X, "y": v.Vec2.Y})
	case values.KindVec3:
		return scope.ConvertJSONToECALObject(map[string]interface{}{"x": v.Vec3.X, "y": v.Vec3.Y, "z": v.Vec3.Z})
	case values.KindColor:
		return scope.ConvertJSONToECALObject(map[string]interface{}{"r": v.Color.R, "g": v.Color.G, "b": v.Color.B, "a": v.Color.A})
	case values.KindTrigger:
		return true
	case values.KindEnum:
		return scope.ConvertJSONToECALObject(map[string]interface{}{"enum": string(v.Enum.EnumId), "variant": v.Enum.Variant})
	case values.KindReference:
		return v.Reference.Uuid.String()
	}
	return nil
}

func metaPatchToJSON(p edits.MetaPatch) map[string]interface{} {
	out := map[string]interface{}{}
	if p.ShortName != nil {
		out["short_name"] = *p.ShortName
	}
	if p.Enabled != nil {
		out["enabled"] = *p.Enabled
	}
	if p.Label != nil {
		out["label"] = *p.Label
	}
	if p.DescriptionSet {
		if p.Description != nil {
			out["description"] = *p.Description
		} else {
			out["description"] = nil
		}
	}
	if p.Tags != nil {
		tags := make([]interface{}, len(*p.Tags))
		for i, t := range *p.Tags {
			tags[i] = t
		}
		out["tags"] = tags
	}
	return out
}
