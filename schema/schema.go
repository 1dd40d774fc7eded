/*
 * nodeengine
 *
 * Package schema declares, per node type, the parameters, folder paths,
 * declared children, potential slots and container policy that drive
 * auto-instantiation (§4.2). Registry only holds declarations; the
 * engine performs the actual materialization, since that requires
 * creating nodes (a Registry has no store of its own).
 */
package schema

import (
	"fmt"
	"sort"

	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/values"
)

/*
ChildBehavior controls how re-registering/re-instantiating a declared
parameter interacts with an existing one of the same decl-id: Coalesce
reuses it in place, Append always creates a new sibling.
*/
type ChildBehavior int

const (
	Coalesce ChildBehavior = iota
	Append
)

/*
ParamDecl declares one parameter a node type materializes on creation.
*/
type ParamDecl struct {
	DeclId       ids.DeclId
	Default      values.Value
	Constraints  values.ValueConstraints
	ReadOnly     bool
	Update       node.UpdatePolicy
	Change       node.ChangePolicy
	Save         node.SavePolicy
	Semantics    node.SemanticsHint
	Presentation node.PresentationHint
	// Folder is the dotted folder path this parameter is attached under,
	// or "" to attach directly under the new node.
	Folder   ids.DeclId
	Behavior ChildBehavior
	// Alias, if non-empty, is an additional short name the host may use
	// to look the parameter up (e.g. for renamed-but-compatible fields).
	Alias string
}

/*
ChildDecl declares one non-parameter, non-folder child a node type
materializes on creation.
*/
type ChildDecl struct {
	DeclId         ids.DeclId
	NodeType       string
	DefaultLabel   string
	HasDefaultLabel bool
	DefaultEnabled bool
}

/*
FolderDecl declares one folder path that must exist (possibly as a chain
of nested folders) before parameters attached to it are created.
*/
type FolderDecl struct {
	DeclId ids.DeclId // dotted path, e.g. "connection.advanced"
}

/*
PotentialSlot names an optional child identity: if a child with this
decl-id and an allowed type is present it is recognized (e.g. for export
classification), but it is never auto-created.
*/
type PotentialSlot struct {
	DeclId       ids.DeclId
	AllowedTypes []string
}

/*
ContainerDecl declares that nodes of this type hold Container payload
data by default (vs. None) when materialized by the schema system.
*/
type ContainerDecl struct {
	ChildPolicy  node.ChildPolicy
	AllowedTypes []string
	FolderPolicy node.FolderPolicy
	MaxChildren  *int
}

/*
NodeSchema is everything registered for one node type.
*/
type NodeSchema struct {
	NodeType        string
	DeclaredChildren []ChildDecl
	PotentialSlots  []PotentialSlot
	Parameters      []ParamDecl
	Folders         []FolderDecl
	Container       *ContainerDecl
}

/*
DeclaredChild looks up a declared child by decl-id.
*/
func (s *NodeSchema) DeclaredChild(declId ids.DeclId) (ChildDecl, bool) {
	for _, c := range s.DeclaredChildren {
		if c.DeclId == declId {
			return c, true
		}
	}
	return ChildDecl{}, false
}

/*
PotentialSlotFor looks up a potential slot by decl-id, and reports whether
nodeType is among its allowed types.
*/
func (s *NodeSchema) PotentialSlotFor(declId ids.DeclId, nodeType string) (PotentialSlot, bool) {
	for _, p := range s.PotentialSlots {
		if p.DeclId == declId {
			if len(p.AllowedTypes) == 0 {
				return p, true
			}
			for _, t := range p.AllowedTypes {
				if t == nodeType {
					return p, true
				}
			}
			return p, false
		}
	}
	return PotentialSlot{}, false
}

/*
validate rejects a schema whose top-level decl-ids collide - an input
error caught at registration time rather than leaving it to surface as
confusing duplicate nodes during auto-instantiation.
*/
func (s *NodeSchema) validate() error {
	seen := map[ids.DeclId]string{}

	note := func(id ids.DeclId, what string) error {
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("schema %q: decl-id %q declared twice (%s and %s)", s.NodeType, id, prev, what)
		}
		seen[id] = what
		return nil
	}

	for _, f := range s.Folders {
		if err := note(f.DeclId, "folder"); err != nil {
			return err
		}
	}
	for _, p := range s.Parameters {
		if err := note(p.DeclId, "parameter"); err != nil {
			return err
		}
	}
	for _, c := range s.DeclaredChildren {
		if err := note(c.DeclId, "child"); err != nil {
			return err
		}
	}

	return nil
}

/*
Registry binds schemas to node-type strings.
*/
type Registry struct {
	schemas map[string]*NodeSchema
}

/*
NewRegistry creates an empty schema registry.
*/
func NewRegistry() *Registry {
	return &Registry{schemas: map[string]*NodeSchema{}}
}

/*
Register binds schema to node_type. Returns an error (input error, per
§7: logged and dropped by the caller) if the schema's own declarations
collide on decl-id.
*/
func (r *Registry) Register(nodeType string, s *NodeSchema) error {
	s.NodeType = nodeType
	if err := s.validate(); err != nil {
		return err
	}
	r.schemas[nodeType] = s
	return nil
}

/*
Get looks up the schema registered for nodeType.
*/
func (r *Registry) Get(nodeType string) (*NodeSchema, bool) {
	s, ok := r.schemas[nodeType]
	return s, ok
}

/*
All returns every registered schema keyed by node type. The map is a
fresh copy; mutating it does not affect the registry.
*/
func (r *Registry) All() map[string]*NodeSchema {
	out := make(map[string]*NodeSchema, len(r.schemas))
	for k, v := range r.schemas {
		out[k] = v
	}
	return out
}

/*
NodeTypes returns the registered node-type names in sorted order, used by
the flat snapshot's node_types catalog.
*/
func (r *Registry) NodeTypes() []string {
	out := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
