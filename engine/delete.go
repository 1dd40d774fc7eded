package engine

import (
	"github.com/krotik/nodeengine/events"
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/tree"
)

/*
DeleteNode destroys id and its entire subtree: detaches id from its
parent (a no-op if id is already a root with no parent, i.e. the
engine's own root), then removes every node in the subtree from the
store in post-order, emitting NodeDeleted once per destroyed node per
§3's lifecycle invariant. Returns an error if id does not exist.
*/
func (e *Engine) DeleteNode(id ids.NodeId) error {
	if !e.Store.Exists(id) {
		return tree.ErrNodeNotFound
	}

	if parent, ok := e.Tree.ParentOf(id); ok {
		if err := e.Tree.RemoveChild(parent, id); err != nil {
			return err
		}
	}

	var subtree []ids.NodeId
	e.Tree.Walk(id, func(n ids.NodeId) bool {
		subtree = append(subtree, n)
		return true
	})

	for i := len(subtree) - 1; i >= 0; i-- {
		n := subtree[i]
		e.Store.Remove(n)
		e.emit(events.NodeDeleted, events.NewNodeDeleted(n))
		e.Bus.Inbox().Forget(n)
	}

	return nil
}
