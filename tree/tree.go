/*
 * nodeengine
 *
 * Package tree implements the intrusive parent/first-child/last-child/
 * prev-sibling/next-sibling operations over a store.NodeStore, keeping
 * invariants 1-3 (every linked id exists, children form a consistent
 * doubly-linked sequence, every non-root parent chain terminates at the
 * root) and emitting the tree-shape events through an events.Bus.
 */
package tree

import (
	"errors"

	"devt.de/krotik/common/logutil"

	"github.com/krotik/nodeengine/events"
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/store"
)

var log = logutil.GetLogger("nodeengine.tree")

/*
Errors returned by tree operations. Per §7 these are all "rejected; no
mutation; no event" invariant-violation outcomes, or "no-op" missing-node
outcomes - never panics.
*/
var (
	ErrNodeNotFound    = errors.New("node not found")
	ErrWouldCreateCycle = errors.New("operation would create a cycle")
)

/*
TimeSource supplies the scheduler's current logical time so tree
operations can stamp the events they emit.
*/
type TimeSource interface {
	Current() (tick, micro uint64)
}

/*
Tree operates tree-shape mutations over a shared NodeStore and reports
them on a shared event Bus.
*/
type Tree struct {
	Store *store.NodeStore
	Bus   *events.Bus
	Time  TimeSource
}

/*
New creates a Tree over the given store, bus and time source, and wires
the bus's bubbling/subtree resolvers to this tree.
*/
func New(s *store.NodeStore, bus *events.Bus, ts TimeSource) *Tree {
	t := &Tree{Store: s, Bus: bus, Time: ts}
	bus.SetParentResolver(t.ParentOf)
	bus.SetSubtreeResolver(t.IsDescendant)
	return t
}

func (t *Tree) emit(kind events.Kind, data events.Payload) {
	tick, micro := t.Time.Current()
	t.Bus.Emit(tick, micro, kind, data)
}

/*
ParentOf returns id's parent, or false if id is the root or does not
exist.
*/
func (t *Tree) ParentOf(id ids.NodeId) (ids.NodeId, bool) {
	n, ok := t.Store.Get(id)
	if !ok || !n.Parent.IsValid() {
		return ids.NodeId{}, false
	}
	return n.Parent, true
}

/*
IsDescendant reports whether candidate lies within the subtree rooted at
root (root itself counts as within its own subtree).
*/
func (t *Tree) IsDescendant(candidate, root ids.NodeId) bool {
	cur := candidate
	for {
		if cur == root {
			return true
		}
		n, ok := t.Store.Get(cur)
		if !ok || !n.Parent.IsValid() {
			return false
		}
		cur = n.Parent
	}
}

/*
Children returns the ordered children of parent by walking first_child /
next_sibling links.
*/
func (t *Tree) Children(parent ids.NodeId) []ids.NodeId {
	n, ok := t.Store.Get(parent)
	if !ok {
		return nil
	}

	var out []ids.NodeId
	cur := n.FirstChild
	for cur.IsValid() {
		out = append(out, cur)
		cn, ok := t.Store.Get(cur)
		if !ok {
			break
		}
		cur = cn.NextSibling
	}
	return out
}

/*
AddChild appends child as the new last child of parent, linking siblings
and emitting ChildAdded exactly once. A no-op (no event) if either id is
absent. Rejected (no mutation, no event) if child is an ancestor of
parent, which would create a cycle.
*/
func (t *Tree) AddChild(parent, child ids.NodeId) error {
	if !t.Store.Exists(parent) || !t.Store.Exists(child) {
		return ErrNodeNotFound
	}
	if t.IsDescendant(parent, child) {
		return ErrWouldCreateCycle
	}

	pn, _ := t.Store.Get(parent)

	t.Store.Mutate(child, func(c *node.Node) {
		c.Parent = parent
		c.PrevSibling = pn.LastChild
		c.NextSibling = ids.NodeId{}
	})

	if pn.LastChild.IsValid() {
		t.Store.Mutate(pn.LastChild, func(n *node.Node) { n.NextSibling = child })
	} else {
		t.Store.Mutate(parent, func(n *node.Node) { n.FirstChild = child })
	}
	t.Store.Mutate(parent, func(n *node.Node) { n.LastChild = child })

	t.emit(events.ChildAdded, events.NewChildAdded(parent, child))

	return nil
}

/*
RemoveChild unlinks child from parent's sibling chain and clears child's
own tree links, emitting ChildRemoved exactly once. A no-op (no event) if
either id is absent or child is not actually a child of parent.
*/
func (t *Tree) RemoveChild(parent, child ids.NodeId) error {
	if !t.Store.Exists(parent) {
		return ErrNodeNotFound
	}
	cn, ok := t.Store.Get(child)
	if !ok || cn.Parent != parent {
		return ErrNodeNotFound
	}

	if cn.PrevSibling.IsValid() {
		t.Store.Mutate(cn.PrevSibling, func(n *node.Node) { n.NextSibling = cn.NextSibling })
	} else {
		t.Store.Mutate(parent, func(n *node.Node) { n.FirstChild = cn.NextSibling })
	}

	if cn.NextSibling.IsValid() {
		t.Store.Mutate(cn.NextSibling, func(n *node.Node) { n.PrevSibling = cn.PrevSibling })
	} else {
		t.Store.Mutate(parent, func(n *node.Node) { n.LastChild = cn.PrevSibling })
	}

	t.Store.Mutate(child, func(n *node.Node) {
		n.Parent = ids.NodeId{}
		n.PrevSibling = ids.NodeId{}
		n.NextSibling = ids.NodeId{}
	})

	t.emit(events.ChildRemoved, events.NewChildRemoved(parent, child))

	return nil
}

/*
ReplaceChild swaps old for new_ in parent's sibling chain, preserving
position, and emits ChildReplaced exactly once. A no-op if parent/old/new_
is absent or old is not a child of parent.
*/
func (t *Tree) ReplaceChild(parent, old, new_ ids.NodeId) error {
	if !t.Store.Exists(parent) {
		return ErrNodeNotFound
	}
	on, ok := t.Store.Get(old)
	if !ok || on.Parent != parent {
		return ErrNodeNotFound
	}
	if !t.Store.Exists(new_) {
		return ErrNodeNotFound
	}
	if t.IsDescendant(parent, new_) {
		return ErrWouldCreateCycle
	}

	prev, next := on.PrevSibling, on.NextSibling

	t.Store.Mutate(new_, func(n *node.Node) {
		n.Parent = parent
		n.PrevSibling = prev
		n.NextSibling = next
	})

	if prev.IsValid() {
		t.Store.Mutate(prev, func(n *node.Node) { n.NextSibling = new_ })
	} else {
		t.Store.Mutate(parent, func(n *node.Node) { n.FirstChild = new_ })
	}
	if next.IsValid() {
		t.Store.Mutate(next, func(n *node.Node) { n.PrevSibling = new_ })
	} else {
		t.Store.Mutate(parent, func(n *node.Node) { n.LastChild = new_ })
	}

	t.Store.Mutate(old, func(n *node.Node) {
		n.Parent = ids.NodeId{}
		n.PrevSibling = ids.NodeId{}
		n.NextSibling = ids.NodeId{}
	})

	t.emit(events.ChildReplaced, events.NewChildReplaced(parent, old, new_))

	return nil
}

/*
MoveChild detaches child from its current parent and re-inserts it as
the index'th child (0-based) of newParent, emitting ChildMoved exactly
once. Rejected if newParent is child or a descendant of child (cycle).
*/
func (t *Tree) MoveChild(child, newParent ids.NodeId, index int) error {
	cn, ok := t.Store.Get(child)
	if !ok {
		return ErrNodeNotFound
	}
	if !t.Store.Exists(newParent) {
		return ErrNodeNotFound
	}
	if newParent == child || t.IsDescendant(newParent, child) {
		return ErrWouldCreateCycle
	}

	oldParent := cn.Parent

	if oldParent.IsValid() {
		if err := t.detach(oldParent, child); err != nil {
			return err
		}
	}

	t.insertAt(newParent, child, index)

	t.emit(events.ChildMoved, events.NewChildMoved(child, oldParent, newParent))

	return nil
}

// detach unlinks child from parent without emitting an event; used as a
// step inside MoveChild, which emits its own single ChildMoved event.
func (t *Tree) detach(parent, child ids.NodeId) error {
	cn, ok := t.Store.Get(child)
	if !ok || cn.Parent != parent {
		return ErrNodeNotFound
	}

	if cn.PrevSibling.IsValid() {
		t.Store.Mutate(cn.PrevSibling, func(n *node.Node) { n.NextSibling = cn.NextSibling })
	} else {
		t.Store.Mutate(parent, func(n *node.Node) { n.FirstChild = cn.NextSibling })
	}
	if cn.NextSibling.IsValid() {
		t.Store.Mutate(cn.NextSibling, func(n *node.Node) { n.PrevSibling = cn.PrevSibling })
	} else {
		t.Store.Mutate(parent, func(n *node.Node) { n.LastChild = cn.PrevSibling })
	}

	t.Store.Mutate(child, func(n *node.Node) {
		n.Parent = ids.NodeId{}
		n.PrevSibling = ids.NodeId{}
		n.NextSibling = ids.NodeId{}
	})

	return nil
}

// insertAt inserts child as the index'th child of parent (clamped to the
// current number of children), without emitting an event.
func (t *Tree) insertAt(parent, child ids.NodeId, index int) {
	siblings := t.Children(parent)
	if index < 0 {
		index = 0
	}
	if index > len(siblings) {
		index = len(siblings)
	}

	var prev, next ids.NodeId
	if index > 0 {
		prev = siblings[index-1]
	}
	if index < len(siblings) {
		next = siblings[index]
	}

	t.Store.Mutate(child, func(n *node.Node) {
		n.Parent = parent
		n.PrevSibling = prev
		n.NextSibling = next
	})

	if prev.IsValid() {
		t.Store.Mutate(prev, func(n *node.Node) { n.NextSibling = child })
	} else {
		t.Store.Mutate(parent, func(n *node.Node) { n.FirstChild = child })
	}
	if next.IsValid() {
		t.Store.Mutate(next, func(n *node.Node) { n.PrevSibling = child })
	} else {
		t.Store.Mutate(parent, func(n *node.Node) { n.LastChild = child })
	}
}

/*
ReorderChild moves child to newIndex (0-based) among its current
siblings under parent, emitting ChildReordered exactly once.
*/
func (t *Tree) ReorderChild(parent, child ids.NodeId, newIndex int) error {
	cn, ok := t.Store.Get(child)
	if !ok || cn.Parent != parent {
		return ErrNodeNotFound
	}

	if err := t.detach(parent, child); err != nil {
		return err
	}
	t.insertAt(parent, child, newIndex)

	t.emit(events.ChildReordered, events.NewChildReordered(parent, child))

	return nil
}

/*
FindDescendantByDecl performs a pre-order depth-first search under root
(root itself included) and returns the first node whose Meta.DeclId
equals declId.
*/
func (t *Tree) FindDescendantByDecl(root ids.NodeId, declId ids.DeclId) (ids.NodeId, bool) {
	n, ok := t.Store.Get(root)
	if !ok {
		return ids.NodeId{}, false
	}
	if n.Meta.DeclId == declId {
		return root, true
	}

	cur := n.FirstChild
	for cur.IsValid() {
		if found, ok := t.FindDescendantByDecl(cur, declId); ok {
			return found, true
		}
		cn, ok := t.Store.Get(cur)
		if !ok {
			break
		}
		cur = cn.NextSibling
	}

	return ids.NodeId{}, false
}

/*
Walk performs a pre-order depth-first traversal under root (root itself
included), calling fn for every node. Traversal stops early if fn returns
false.
*/
func (t *Tree) Walk(root ids.NodeId, fn func(ids.NodeId) bool) {
	if !fn(root) {
		return
	}
	for _, c := range t.Children(root) {
		t.Walk(c, fn)
	}
}
