/*
 * nodeengine
 *
 * Package store holds the arena-style NodeStore: a generational, O(1)
 * get/insert container of node.Node values indexed by ids.NodeId.
 */
package store

import (
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
)

type slot struct {
	generation uint32
	occupied   bool
	n          node.Node
}

/*
NodeStore is an arena of nodes. Deleted slots are recycled by Insert, with
Generation bumped so a NodeId captured before the delete can never alias
the node that reuses the slot (invariant 4: a NodeId is never reused after
destruction, enforced here via the generation tag rather than by never
reusing the index).
*/
type NodeStore struct {
	slots     []slot
	freeList  []uint32
}

/*
New creates an empty NodeStore.
*/
func New() *NodeStore {
	return &NodeStore{}
}

/*
Insert adds n to the store and returns its freshly assigned NodeId. The
caller-supplied n.Id is overwritten.
*/
func (s *NodeStore) Insert(n node.Node) ids.NodeId {
	var idx uint32

	if l := len(s.freeList); l > 0 {
		idx = s.freeList[l-1]
		s.freeList = s.freeList[:l-1]
		s.slots[idx].generation++
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, slot{generation: 1})
	}

	id := ids.NodeId{Index: idx, Generation: s.slots[idx].generation}
	n.Id = id
	s.slots[idx].occupied = true
	s.slots[idx].n = n

	return id
}

/*
Get returns a copy of the node at id, or false if id does not resolve to a
live node (invariant 1 failure mode).
*/
func (s *NodeStore) Get(id ids.NodeId) (node.Node, bool) {
	if !s.valid(id) {
		return node.Node{}, false
	}
	return s.slots[id.Index].n, true
}

/*
Mutate applies fn to the live node at id in place. Returns false if id does
not resolve to a live node; fn is not called in that case.
*/
func (s *NodeStore) Mutate(id ids.NodeId, fn func(*node.Node)) bool {
	if !s.valid(id) {
		return false
	}
	fn(&s.slots[id.Index].n)
	return true
}

/*
Remove deletes the node at id and puts its slot on the free list; Insert
bumps the slot's generation when it reuses it, so the id can never alias
a future insertion into the same slot. Returns false if id was already
stale or invalid.
*/
func (s *NodeStore) Remove(id ids.NodeId) bool {
	if !s.valid(id) {
		return false
	}
	s.slots[id.Index].occupied = false
	s.slots[id.Index].n = node.Node{}
	s.freeList = append(s.freeList, id.Index)
	return true
}

/*
Exists reports whether id resolves to a live node.
*/
func (s *NodeStore) Exists(id ids.NodeId) bool {
	return s.valid(id)
}

func (s *NodeStore) valid(id ids.NodeId) bool {
	if !id.IsValid() || int(id.Index) >= len(s.slots) {
		return false
	}
	sl := &s.slots[id.Index]
	return sl.occupied && sl.generation == id.Generation
}

/*
Iter calls fn for every live node in unspecified order. fn must not mutate
the store.
*/
func (s *NodeStore) Iter(fn func(node.Node)) {
	for i := range s.slots {
		if s.slots[i].occupied {
			fn(s.slots[i].n)
		}
	}
}

/*
IterIds calls fn with the NodeId of every live node, in ascending index
order (ascending identifier order, as required by the Continuous update
pass in §4.5).
*/
func (s *NodeStore) IterIds(fn func(ids.NodeId)) {
	for i := range s.slots {
		if s.slots[i].occupied {
			fn(ids.NodeId{Index: uint32(i), Generation: s.slots[i].generation})
		}
	}
}

/*
Len returns the number of live nodes.
*/
func (s *NodeStore) Len() int {
	n := 0
	for i := range s.slots {
		if s.slots[i].occupied {
			n++
		}
	}
	return n
}
