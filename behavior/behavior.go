/*
 * nodeengine
 *
 * Package behavior defines the capability-set contract a node's behavior
 * implements. Per the design notes, "process"/"update" are independent
 * capabilities: a behavior may implement either or both. NodeReactive is
 * the derived convenience helper that dispatches inbox events to
 * kind-specific hooks; it is not part of the engine's own contract.
 */
package behavior

import (
	"github.com/krotik/nodeengine/events"
	"github.com/krotik/nodeengine/processctx"
)

/*
Processor is implemented by behaviors that react to inbox events during
the reactive drain and stabilization passes.
*/
type Processor interface {
	Process(ctx *processctx.ProcessCtx)
}

/*
Updater is implemented by behaviors that run once per tick during the
Continuous update pass, independent of their inbox.
*/
type Updater interface {
	Update(ctx *processctx.ProcessCtx)
}

/*
Behavior is the opaque capability set a node may carry. It is intentionally
just `interface{}` - the engine type-asserts a concrete behavior to
Processor and/or Updater at the point of invocation rather than requiring
every behavior to implement both.
*/
type Behavior = interface{}

/*
NodeReactive is an optional embeddable helper implementing Processor by
dispatching each inbox event to a kind-specific hook method, if the
embedding type defines one. This mirrors the hook-table style the teacher
uses for its own rule dispatch (graph.Rule.Handle switching on event kind)
but is deliberately NOT required by the engine - plain Processor
implementations that inspect ctx.Inbox directly are equally valid.
*/
type NodeReactive struct {
	OnParamChanged   func(ctx *processctx.ProcessCtx, e events.Event)
	OnChildAdded     func(ctx *processctx.ProcessCtx, e events.Event)
	OnChildRemoved   func(ctx *processctx.ProcessCtx, e events.Event)
	OnChildReplaced  func(ctx *processctx.ProcessCtx, e events.Event)
	OnChildMoved     func(ctx *processctx.ProcessCtx, e events.Event)
	OnChildReordered func(ctx *processctx.ProcessCtx, e events.Event)
	OnNodeCreated    func(ctx *processctx.ProcessCtx, e events.Event)
	OnNodeDeleted    func(ctx *processctx.ProcessCtx, e events.Event)
	OnMetaChanged    func(ctx *processctx.ProcessCtx, e events.Event)
	OnOther          func(ctx *processctx.ProcessCtx, e events.Event)
}

/*
Process implements Processor by dispatching every event in ctx.Inbox to
the matching hook, in inbox order.
*/
func (r *NodeReactive) Process(ctx *processctx.ProcessCtx) {
	for _, e := range ctx.Inbox {
		r.dispatch(ctx, e)
	}
}

func (r *NodeReactive) dispatch(ctx *processctx.ProcessCtx, e events.Event) {
	var hook func(ctx *processctx.ProcessCtx, e events.Event)

	switch e.Kind {
	case events.ParamChanged:
		hook = r.OnParamChanged
	case events.ChildAdded:
		hook = r.OnChildAdded
	case events.ChildRemoved:
		hook = r.OnChildRemoved
	case events.ChildReplaced:
		hook = r.OnChildReplaced
	case events.ChildMoved:
		hook = r.OnChildMoved
	case events.ChildReordered:
		hook = r.OnChildReordered
	case events.NodeCreated:
		hook = r.OnNodeCreated
	case events.NodeDeleted:
		hook = r.OnNodeDeleted
	case events.MetaChanged:
		hook = r.OnMetaChanged
	}

	if hook == nil {
		hook = r.OnOther
	}
	if hook != nil {
		hook(ctx, e)
	}
}
