// Package diff turns a semantic diff between two model.Model snapshots
// into an ordered, fully-reversible changelog.Changelog: six statement
// buckets (REMOVE_NODE, ADD_NODE, REMOVE_PROPERTY, ADD_PROPERTY,
// REMOVE_RELATIONSHIP, ADD_RELATIONSHIP) emitted in that fixed order,
// built by walking the diff's entities in terms -> props -> edges -> nodes
// order.
package diff

import "github.com/bentomdb/graphchangelog/engine/model"

// AttrChange is one changed attribute's before/after values. Added is nil
// for a pure removal, Removed is nil for a pure addition; both set means
// an update (value A replaced by value B).
type AttrChange struct {
	Added   any
	Removed any
}

// IsAdd reports whether this change introduces a value with nothing
// removed (a pure addition, not an update).
func (c AttrChange) IsAdd() bool { return c.Added != nil && c.Removed == nil }

// IsRemove reports whether this change removes a value with nothing added
// (a pure removal).
func (c AttrChange) IsRemove() bool { return c.Added == nil && c.Removed != nil }

// NodeDiff is the node section of a Diff.
type NodeDiff struct {
	Added   map[string]*model.Node
	Removed map[string]*model.Node
	Changed map[string]map[string]AttrChange
}

// EdgeDiff is the edge section of a Diff.
type EdgeDiff struct {
	Added   map[model.EdgeKey]*model.Edge
	Removed map[model.EdgeKey]*model.Edge
	Changed map[model.EdgeKey]map[string]AttrChange
}

// PropDiff is the property section of a Diff.
type PropDiff struct {
	Added   map[model.PropKey]*model.Property
	Removed map[model.PropKey]*model.Property
	Changed map[model.PropKey]map[string]AttrChange
}

// TermDiff is the term section of a Diff.
type TermDiff struct {
	Added   map[model.TermKey]*model.Term
	Removed map[model.TermKey]*model.Term
}

// Diff is the semantic diff between two model snapshots, produced
// upstream by a model-comparison routine this package does not implement.
type Diff struct {
	Model   string // target model handle, the model property in every changed entity's MATCH pattern
	Nodes   NodeDiff
	Edges   EdgeDiff
	Props   PropDiff
	Terms   TermDiff
}
