package events

import (
	"sync"

	"devt.de/krotik/common/datautil"
	"devt.de/krotik/common/logutil"

	"github.com/krotik/nodeengine/ids"
)

var log = logutil.GetLogger("nodeengine.events")

/*
DefaultLogCapacity is the recommended bound from invariant 8.
*/
const DefaultLogCapacity = 4096

/*
ParentResolver answers "what is id's parent", used to bubble an event one
hop up from its BubbleSource. Supplied by the engine (backed by the tree).
*/
type ParentResolver func(id ids.NodeId) (ids.NodeId, bool)

/*
SubtreeResolver answers "is candidate inside the subtree rooted at root",
used by SubtreeFilter. Supplied by the engine (backed by the tree).
*/
type SubtreeResolver func(candidate, root ids.NodeId) bool

/*
Bus is the event bus: it stamps, logs, and delivers events per §4.4. The
bounded log is a devt.de/krotik/common/datautil.RingBuffer, the same
structure the teacher uses for its own bounded log buffers - this is what
makes invariant 8 (at most N most-recent events retained) hold without a
hand-rolled ring.

Bus is not safe for concurrent use by multiple goroutines; per §5 the
engine is single-threaded and cooperative, and Bus is only ever touched by
the engine's owner.
*/
type Bus struct {
	mu sync.Mutex

	log      *datautil.RingBuffer
	logCap   int
	oldest   EventTime
	hasOld   bool
	totalSeq uint64

	nextSeq uint64

	inbox InboxSet

	listeners []ListenerSpec

	parentOf ParentResolver
	subtree  SubtreeResolver

	subtreeMemo *datautil.MapCache
}

/*
New creates an event bus with the given bounded-log capacity.
*/
func New(logCapacity int) *Bus {
	if logCapacity <= 0 {
		logCapacity = DefaultLogCapacity
	}
	return &Bus{
		log:         datautil.NewRingBuffer(logCapacity),
		logCap:      logCapacity,
		inbox:       *NewInboxSet(),
		subtreeMemo: datautil.NewMapCache(4096, 0),
	}
}

/*
SetParentResolver wires the function the bus uses to find a node's parent
for bubbling. Must be called once by the engine during construction.
*/
func (b *Bus) SetParentResolver(fn ParentResolver) { b.parentOf = fn }

/*
SetSubtreeResolver wires the function the bus uses to answer subtree
membership for SubtreeFilter. Must be called once by the engine during
construction.
*/
func (b *Bus) SetSubtreeResolver(fn SubtreeResolver) { b.subtree = fn }

/*
Inbox exposes the inbox set so the scheduler can inspect/drain it during
the reactive drain pass.
*/
func (b *Bus) Inbox() *InboxSet { return &b.inbox }

/*
Subscribe registers a listener. Returns nothing to unsubscribe by (the
engine contract has no unsubscribe operation; a host wishing to stop
listening simply stops consuming events_since for that subscriber, or the
engine can expose Unsubscribe if a host package needs it).
*/
func (b *Bus) Subscribe(spec ListenerSpec) {
	if sf, ok := spec.Filter.(SubtreeFilter); ok && sf.Resolver == nil {
		sf.Resolver = b.subtreeResolverMemoized
		spec.Filter = sf
	}
	b.listeners = append(b.listeners, spec)
}

/*
Unsubscribe removes every listener registered for the given subscriber.
*/
func (b *Bus) Unsubscribe(subscriber ids.NodeId) {
	out := b.listeners[:0]
	for _, l := range b.listeners {
		if l.Subscriber != subscriber {
			out = append(out, l)
		}
	}
	b.listeners = out
}

func (b *Bus) subtreeResolverMemoized(candidate, root ids.NodeId) bool {
	if b.subtree == nil {
		return false
	}
	key := candidate.String() + "/" + root.String()
	if v := b.subtreeMemo.Get(key); v != nil {
		return v.(bool)
	}
	res := b.subtree(candidate, root)
	b.subtreeMemo.Put(key, res)
	return res
}

/*
InvalidateSubtreeMemo drops the subtree-membership cache. Must be called
whenever a ChildMoved event is about to be delivered, per the design note
that Subtree memoization "must invalidate on ChildMoved".
*/
func (b *Bus) InvalidateSubtreeMemo() {
	b.subtreeMemo = datautil.NewMapCache(4096, 0)
}

/*
Advance resets the per-(tick,micro) seq counter. Called by the scheduler
at the start of each tick and at the start of every stabilization round /
immediate flush, per §4.5's "micro ← ...; seq ← 0".
*/
func (b *Bus) Advance() {
	b.nextSeq = 0
}

/*
Emit stamps data as an event at (tick, micro, nextSeq), appends it to the
bounded log, and delivers it: own targets, then filter-matched
subscribers, then the one-hop bubble. Returns the stamped event.
*/
func (b *Bus) Emit(tick, micro uint64, kind Kind, data Payload) Event {
	seq := b.nextSeq
	b.nextSeq++

	e := Event{Time: EventTime{Tick: tick, Micro: micro, Seq: seq}, Kind: kind, Data: data}

	if kind == ChildMoved {
		b.InvalidateSubtreeMemo()
	}

	b.append(e)
	b.deliver(e)

	return e
}

func (b *Bus) append(e Event) {
	if b.log.Size() == b.logCap {
		// the buffer is about to evict its current oldest entry
		if head := b.log.Get(0); head != nil {
			b.oldest = head.(Event).Time
			b.hasOld = true
		}
	} else if !b.hasOld {
		b.oldest = e.Time
		b.hasOld = true
	}
	b.log.Add(e)
	b.totalSeq++
}

func (b *Bus) deliver(e Event) {
	// own targets
	for _, t := range e.OwnTargets() {
		if t.IsValid() {
			b.inbox.Push(t, e)
		}
	}

	// subscriber fan-out
	for _, l := range b.listeners {
		if l.Filter != nil && l.Filter.Match(e) {
			b.inbox.Push(l.Subscriber, e)
		}
	}

	// single-hop bubble
	if src, ok := e.BubbleSource(); ok && b.parentOf != nil {
		if parent, hasParent := b.parentOf(src); hasParent && parent.IsValid() {
			b.inbox.Push(parent, e)
		}
	}
}

/*
EventsSince returns every logged event with time strictly greater than t,
in order. ok is false if t precedes the oldest retained event - the
catch-up window has rolled off the bounded log and the caller must
re-request a snapshot instead of trusting a partial replay.
*/
func (b *Bus) EventsSince(t EventTime) (out []Event, ok bool) {
	n := b.log.Size()
	if n == 0 {
		return nil, true
	}

	// t == zero value means "since the beginning"; it never counts as
	// overflow even though it is "before" the oldest retained entry.
	if b.hasOld && t.Less(b.oldest) && t != (EventTime{}) {
		return nil, false
	}

	for i := 0; i < n; i++ {
		e := b.log.Get(i).(Event)
		if t.Less(e.Time) {
			out = append(out, e)
		}
	}

	return out, true
}

/*
Len returns the number of events currently retained in the bounded log.
*/
func (b *Bus) Len() int { return b.log.Size() }
