package engine

import (
	"github.com/krotik/nodeengine/edits"
	"github.com/krotik/nodeengine/events"
	"github.com/krotik/nodeengine/ids"
	"github.com/krotik/nodeengine/manager"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/values"
)

/*
applyEdit performs the Apply semantics of §4.3 for one edit. Input
errors (absent node, wrong node kind, unknown node type) are logged and
dropped per §7; no event is emitted for a dropped edit.
*/
func (e *Engine) applyEdit(ed edits.Edit) {
	switch ed.Kind {
	case edits.KindSetParam:
		e.applySetParam(ed.Node, ed.Value)
	case edits.KindPatchMeta:
		e.applyPatchMeta(ed.Node, ed.Patch)
	case edits.KindInstantiateChildFromManager:
		e.applyInstantiateChildFromManager(ed.Manager, ed.NodeType, ed.Label, ed.Execution)
	}
}

func (e *Engine) applySetParam(target ids.NodeId, v values.Value) {
	n, ok := e.Store.Get(target)
	if !ok || n.Data.Kind != node.DataParameter {
		log.Debug("dropping SetParam: ", target, " is not a parameter node")
		return
	}

	res := n.Data.Parameter.Constraints.Check(v)
	if !res.Accepted {
		log.Debug("dropping SetParam on ", target, ": value rejected by constraints")
		return
	}

	changed := !values.Equal(n.Data.Parameter.Value, res.Value)

	e.Store.Mutate(target, func(nd *node.Node) {
		nd.Data.Parameter.Value = res.Value
	})

	if n.Data.Parameter.Change == node.ChangeAlways || changed {
		e.emit(events.ParamChanged, events.NewParamChanged(target, res.Value))
	}
}

func (e *Engine) applyPatchMeta(target ids.NodeId, patch edits.MetaPatch) {
	if !e.Store.Exists(target) {
		log.Debug("dropping PatchMeta: ", target, " does not exist")
		return
	}

	e.Store.Mutate(target, func(nd *node.Node) {
		mergeMetaPatch(&nd.Meta, patch)
	})

	e.emit(events.MetaChanged, events.NewMetaChanged(target, patch))
}

func mergeMetaPatch(m *node.Metadata, patch edits.MetaPatch) {
	if patch.ShortName != nil {
		m.ShortName = *patch.ShortName
	}
	if patch.Enabled != nil {
		m.Enabled = *patch.Enabled
	}
	if patch.Label != nil {
		m.Label = *patch.Label
	}
	if patch.DescriptionSet {
		m.Description = patch.Description
	}
	if patch.Tags != nil {
		m.Tags = *patch.Tags
	}
	if patch.Semantics != nil {
		m.Semantics = *patch.Semantics
	}
	if patch.Presentation != nil {
		m.Presentation = *patch.Presentation
	}
}

func (e *Engine) applyInstantiateChildFromManager(managerId ids.NodeId, nodeType, label string, execution node.ExecutionClass) {
	n, ok := e.Store.Get(managerId)
	if !ok || n.Data.Kind != node.DataManager {
		log.Debug("dropping InstantiateChildFromManager: ", managerId, " is not a manager node")
		return
	}

	reg, ok := manager.Lookup(n.Data, nodeType)
	if !ok {
		log.Debug("dropping InstantiateChildFromManager: ", managerId, " has no registration for ", nodeType)
		return
	}

	data := node.NoneData()
	if reg.Schema != nil && reg.Schema.Container != nil {
		data = node.NewContainerData(reg.Schema.Container.ChildPolicy, allowedTypesSlice(reg.Schema.Container.AllowedTypes), reg.Schema.Container.FolderPolicy, reg.Schema.Container.MaxChildren)
	}

	meta := node.Metadata{ShortName: label, Label: label, Enabled: true}

	childId := e.insertNode(nodeType, execution, data, meta, nil)
	_ = e.Tree.AddChild(managerId, childId)

	if reg.Schema != nil {
		e.instantiateSchema(childId, reg.Schema)
	}

	byDecl := map[ids.DeclId]ids.NodeId{}
	e.Tree.Walk(childId, func(id ids.NodeId) bool {
		if dn, ok := e.Store.Get(id); ok && dn.Meta.DeclId != "" {
			if _, exists := byDecl[dn.Meta.DeclId]; !exists {
				byDecl[dn.Meta.DeclId] = id
			}
		}
		return true
	})

	binding := manager.NodeBinding{NodeId: childId, ByDecl: byDecl}
	beh := reg.Factory(binding)

	e.Store.Mutate(childId, func(nd *node.Node) {
		nd.Behavior = beh
	})
}
