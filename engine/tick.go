package engine

import (
	"github.com/krotik/nodeengine/behavior"
	"github.com/krotik/nodeengine/edits"
	"github.com/krotik/nodeengine/events"
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/processctx"
)

/*
EnqueueEdit submits an edit for application under the given propagation
and origin (§4.3). NextTick edits are held until the next call to Tick;
every other propagation is applied during the current/next Tick's
external-edit step.
*/
func (e *Engine) EnqueueEdit(ed edits.Edit, prop edits.Propagation, origin edits.Origin) {
	entry := edits.Enqueued{Edit: ed, Propagation: prop, Origin: origin}
	if prop == edits.NextTick {
		e.deferredQueue.Push(entry)
	} else {
		e.queue.Push(entry)
	}
}

/*
Tick executes one full scheduler step per §4.5: advance time, drain
external edits (including any held over from a prior NextTick), run the
Continuous update pass, then reactive-drain and stabilize.
*/
func (e *Engine) Tick() {
	e.tickNum++
	e.microNum = 0
	e.Bus.Advance()

	due := e.deferredQueue.Drain()
	cur := e.queue.Drain()

	for _, it := range due {
		e.applyAndMaybeFlush(it)
	}
	for _, it := range cur {
		e.applyAndMaybeFlush(it)
	}

	e.updatePass()

	e.reactiveDrainAndStabilize()
}

func (e *Engine) applyAndMaybeFlush(it edits.Enqueued) {
	e.applyEdit(it.Edit)
	if it.Propagation == edits.Immediate {
		e.flushImmediate()
	}
}

/*
applyProduced applies the edits a behavior invocation enqueued onto its
ProcessCtx.Outgoing, in FIFO order. NextTick edits are carried over to
the next Tick; Immediate edits trigger a nested flush; EndOfTick edits
apply immediately at the point encountered, since by the time a
behavior runs the tick's own "end of tick" batching point has already
passed.
*/
func (e *Engine) applyProduced(q edits.Queue) {
	for _, it := range q.Drain() {
		if it.Propagation == edits.NextTick {
			e.deferredQueue.Push(it)
			continue
		}
		e.applyEdit(it.Edit)
		if it.Propagation == edits.Immediate {
			e.flushImmediate()
		}
	}
}

/*
flushImmediate implements the "Immediate flush" rule: bump micro, reset
seq, then run one reactive drain pass. Recursion into another immediate
flush is allowed (via Immediate edits produced during that pass); the
nesting depth is not limited, and MaxStabilizationRounds does not apply
to it.
*/
func (e *Engine) flushImmediate() {
	e.microNum++
	e.Bus.Advance()
	e.reactiveDrainRound(processctx.FlushImmediate)
}

func (e *Engine) currentEventTime() events.EventTime {
	return events.EventTime{Tick: e.tickNum, Micro: e.microNum}
}

/*
snapshot takes a read-only copy of every parameter's current value and
every node's metadata, for handing to behaviors as ProcessCtx.Params/
Meta. Taken once per drain round/update pass so in-round mutations are
never observed (§4.6, §5).
*/
func (e *Engine) snapshot() (processctx.ParamView, processctx.MetaView) {
	params := processctx.ParamView{}
	meta := processctx.MetaView{}

	e.Store.Iter(func(n node.Node) {
		meta[n.Id] = n.Meta.Clone()
		if n.Data.Kind == node.DataParameter {
			params[n.Id] = n.Data.Parameter.Value
		}
	})

	return params, meta
}

/*
updatePass runs the Continuous update pass (§4.5 step 3): every node
whose execution class is Continuous, in ascending identifier order,
gets its Updater hook invoked (if its behavior implements one) with a
fresh ProcessCtx, and its produced edits applied.
*/
func (e *Engine) updatePass() {
	params, meta := e.snapshot()

	var continuous []ids.NodeId
	e.Store.IterIds(func(id ids.NodeId) {
		if n, ok := e.Store.Get(id); ok && n.Execution == node.Continuous {
			continuous = append(continuous, id)
		}
	})

	for _, id := range continuous {
		n, ok := e.Store.Get(id)
		if !ok {
			continue
		}
		upd, ok := n.Behavior.(behavior.Updater)
		if !ok {
			continue
		}

		ctx := &processctx.ProcessCtx{
			Phase:  processctx.EngineTick,
			Time:   e.currentEventTime(),
			Params: params,
			Meta:   meta,
		}
		upd.Update(ctx)
		e.applyProduced(ctx.Outgoing)
	}
}

/*
reactiveDrainRound drains every node with a non-empty inbox, runs its
Processor hook (if its behavior implements one) with the swapped-out
events, and applies the edits it produces. Returns whether there was
anything to drain.
*/
func (e *Engine) reactiveDrainRound(phase processctx.Phase) bool {
	pending := e.Bus.Inbox().NonEmptyIds()
	if len(pending) == 0 {
		return false
	}

	params, meta := e.snapshot()

	for _, id := range pending {
		evs := e.Bus.Inbox().Drain(id)

		n, ok := e.Store.Get(id)
		if !ok || n.Behavior == nil {
			continue
		}
		proc, ok := n.Behavior.(behavior.Processor)
		if !ok {
			continue
		}

		ctx := &processctx.ProcessCtx{
			Phase:  phase,
			Time:   e.currentEventTime(),
			Inbox:  evs,
			Params: params,
			Meta:   meta,
		}
		proc.Process(ctx)
		e.applyProduced(ctx.Outgoing)
	}

	return true
}

/*
reactiveDrainAndStabilize runs the initial reactive drain (§4.5 step 4)
then repeats it up to MaxStabilizationRounds times while inboxes keep
becoming non-empty (§4.5 step 5), bumping micro and resetting seq before
each repeat. If inboxes are still non-empty after the last round, the
residue persists to the next tick.
*/
func (e *Engine) reactiveDrainAndStabilize() {
	e.reactiveDrainRound(processctx.EngineTick)

	for round := 0; round < e.config.MaxStabilizationRounds; round++ {
		e.microNum++
		e.Bus.Advance()
		if !e.reactiveDrainRound(processctx.EndOfTickStabilization) {
			break
		}
	}
}
