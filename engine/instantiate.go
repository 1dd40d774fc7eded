package engine

import (
	"strings"

	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/schema"
)

/*
materializeChild inserts a structural child under parent, links it via
the tree (emitting ChildAdded), and recursively auto-instantiates its
own schema if one is registered for its node type.
*/
func (e *Engine) materializeChild(parent ids.NodeId, nodeType string, execution node.ExecutionClass, data node.NodeData, meta node.Metadata) ids.NodeId {
	id := e.insertNode(nodeType, execution, data, meta, nil)

	// parent was just created or validated by the caller; only a
	// concurrent deletion (impossible under the single-owner model)
	// could make this fail.
	_ = e.Tree.AddChild(parent, id)

	if s, ok := e.Schemas.Get(nodeType); ok {
		e.instantiateSchema(id, s)
	}

	return id
}

/*
findDirectChildByDecl looks up parent's direct child whose decl-id
equals declId, used for folder idempotence and Coalesce parameters.
*/
func (e *Engine) findDirectChildByDecl(parent ids.NodeId, declId ids.DeclId) (ids.NodeId, bool) {
	for _, c := range e.Tree.Children(parent) {
		if n, ok := e.Store.Get(c); ok && n.Meta.DeclId == declId {
			return c, true
		}
	}
	return ids.NodeId{}, false
}

/*
instantiateSchema performs declared-child materialization under parent
per §4.2: folders first, parameters second, other declared children
third.
*/
func (e *Engine) instantiateSchema(parent ids.NodeId, s *schema.NodeSchema) {
	folders := map[ids.DeclId]ids.NodeId{}

	for _, f := range s.Folders {
		e.ensureFolderChain(parent, f.DeclId, folders)
	}

	for _, p := range s.Parameters {
		attach := parent
		if p.Folder != "" {
			attach = e.ensureFolderChain(parent, p.Folder, folders)
		}

		if p.Behavior == schema.Coalesce {
			if _, exists := e.findDirectChildByDecl(attach, p.DeclId); exists {
				continue
			}
		}

		meta := node.Metadata{
			DeclId:       p.DeclId,
			ShortName:    string(p.DeclId),
			Enabled:      true,
			Semantics:    p.Semantics,
			Presentation: p.Presentation,
		}

		defaultCopy := p.Default
		data := node.NewParameterData(node.ParameterData{
			Value:       p.Default,
			Default:     &defaultCopy,
			ReadOnly:    p.ReadOnly,
			Update:      p.Update,
			Save:        p.Save,
			Change:      p.Change,
			Constraints: p.Constraints,
		})

		e.materializeChild(attach, TypeParameter, node.Passive, data, meta)
	}

	for _, c := range s.DeclaredChildren {
		meta := node.Metadata{
			DeclId:  c.DeclId,
			Enabled: c.DefaultEnabled,
		}
		if c.HasDefaultLabel {
			meta.Label = c.DefaultLabel
			meta.ShortName = c.DefaultLabel
		} else {
			meta.ShortName = string(c.DeclId)
		}

		data := node.NoneData()
		if childSchema, ok := e.Schemas.Get(c.NodeType); ok && childSchema.Container != nil {
			data = node.NewContainerData(childSchema.Container.ChildPolicy, allowedTypesSlice(childSchema.Container.AllowedTypes), childSchema.Container.FolderPolicy, childSchema.Container.MaxChildren)
		}

		e.materializeChild(parent, c.NodeType, node.Reactive, data, meta)
	}
}

func allowedTypesSlice(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}

/*
ensureFolderChain ensures every segment of a (possibly dotted) folder
decl-id exists as a nested chain of Folder containers under parent,
reusing any already-present direct child with a matching decl-id at each
level (§4.2 step 1: "folders are idempotent"). Returns the id of the
final (leaf) folder in the chain.
*/
func (e *Engine) ensureFolderChain(parent ids.NodeId, dotted ids.DeclId, cache map[ids.DeclId]ids.NodeId) ids.NodeId {
	if id, ok := cache[dotted]; ok {
		return id
	}

	segments := strings.Split(string(dotted), ".")
	cur := parent
	prefix := ""

	for i, seg := range segments {
		if i > 0 {
			prefix += "."
		}
		prefix += seg
		declId := ids.DeclId(prefix)

		if id, ok := cache[declId]; ok {
			cur = id
			continue
		}
		if existing, ok := e.findDirectChildByDecl(cur, declId); ok {
			cache[declId] = existing
			cur = existing
			continue
		}

		meta := node.Metadata{DeclId: declId, ShortName: seg, Enabled: true}
		data := node.NewContainerData(node.AnyChildType, nil, node.FoldersAllowed, nil)
		id := e.materializeChild(cur, TypeFolder, node.Passive, data, meta)

		cache[declId] = id
		cur = id
	}

	cache[dotted] = cur
	return cur
}
