// Package model defines the MDF metamodel entities converted into graph
// changelogs elsewhere in this repository: Model, Node, Relationship,
// Property, Term, ValueSet, Concept, Tag and Origin.
package model

import "github.com/bentomdb/graphchangelog/engine/cypher"

// AttrSource is satisfied by every metamodel entity: it can describe its
// own Cypher label and the ordered property list a Match/Create pattern
// needs. AttrDict returns an ordered list, not a map, so the rendered
// property order matches the order each method lists its fields in,
// rather than being randomized by Go map iteration.
type AttrSource interface {
	Label() string
	AttrDict() []cypher.Attr
}

// Model is the top-level container read from MDF: its handle scopes every
// node/relationship/property's "model" property, and it owns the
// collections the mapper and diff splitter traverse.
type Model struct {
	Handle  string
	Commit  string
	Nodes   map[string]*Node
	Edges   map[EdgeKey]*Edge
	Props   map[PropKey]*Property
	Terms   map[TermKey]*Term
}

// EdgeKey identifies a Relationship by (handle, dst handle, src handle),
// matching the 3-tuple key used throughout the diff object and the
// original key-reconstruction rules.
type EdgeKey struct {
	Handle string
	Dst    string
	Src    string
}

// PropKey identifies a Property by (handle, parent handle).
type PropKey struct {
	Handle       string
	ParentHandle string
}

// TermKey identifies a Term by (value, origin name).
type TermKey struct {
	Value  string
	Origin string
}

// Node is a model entity type (e.g. "case", "diagnosis").
type Node struct {
	Handle  string
	Model   string
	Nanoid  string
	Commit  string
	Concept *Concept
	Tags    []*Tag
}

// Label returns the Cypher label for a Node pattern.
func (Node) Label() string { return "node" }

// AttrDict returns the property list for a Node Match/Create pattern.
func (n *Node) AttrDict() []cypher.Attr {
	return []cypher.Attr{{Key: "handle", Value: n.Handle}, {Key: "model", Value: n.Model}}
}

// Edge is a model relationship type, always identified together with its
// source and destination node handles.
type Edge struct {
	Handle    string
	Model     string
	Nanoid    string
	Commit    string
	Src       *Node
	Dst       *Node
	Props     []*Property
	Concept   *Concept
	Tags      []*Tag
}

// Label returns the Cypher label for an Edge pattern.
func (Edge) Label() string { return "relationship" }

// AttrDict returns the property list for an Edge Match/Create pattern.
func (e *Edge) AttrDict() []cypher.Attr {
	return []cypher.Attr{{Key: "handle", Value: e.Handle}, {Key: "model", Value: e.Model}}
}

// Key returns e's diff/changelog key.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{Handle: e.Handle, Dst: e.Dst.Handle, Src: e.Src.Handle}
}

// Property is a node or edge attribute.
type Property struct {
	Handle       string
	ParentHandle string
	Model        string
	Nanoid       string
	Commit       string
	ValueSet     *ValueSet
	Concept      *Concept
	Tags         []*Tag
}

// Label returns the Cypher label for a Property pattern.
func (Property) Label() string { return "property" }

// AttrDict returns the property list for a Property Match/Create pattern.
// ParentHandle is intentionally excluded: it identifies which entity the
// property belongs to, and is used to build the MATCH path to the
// property rather than rendered as a property of the node itself.
func (p *Property) AttrDict() []cypher.Attr {
	return []cypher.Attr{{Key: "handle", Value: p.Handle}, {Key: "model", Value: p.Model}}
}

// Key returns p's diff/changelog key.
func (p *Property) Key() PropKey {
	return PropKey{Handle: p.Handle, ParentHandle: p.ParentHandle}
}

// Term is a controlled-vocabulary value.
type Term struct {
	Value  string
	Origin string
	Code   string
	Commit string
}

// Label returns the Cypher label for a Term pattern.
func (Term) Label() string { return "term" }

// AttrDict returns the property list for a Term Match/Merge pattern, value
// first then origin_name, matching the original's rendered property order.
func (t *Term) AttrDict() []cypher.Attr {
	return []cypher.Attr{{Key: "value", Value: t.Value}, {Key: "origin_name", Value: t.Origin}}
}

// Key returns t's diff/changelog key.
func (t *Term) Key() TermKey {
	return TermKey{Value: t.Value, Origin: t.Origin}
}

// ValueSet is the set of Terms valid for a Property.
type ValueSet struct {
	Handle string
	Commit string
	Terms  map[string]*Term
}

// Label returns the Cypher label for a ValueSet pattern.
func (ValueSet) Label() string { return "value_set" }

// AttrDict returns the property list for a ValueSet Match/Merge pattern.
func (v *ValueSet) AttrDict() []cypher.Attr {
	return []cypher.Attr{{Key: "handle", Value: v.Handle}}
}

// Concept links synonymous entities across models. Tags holds the tags
// read from the source model; the mapper emits an extra "mapping_source"
// tag for every concept at emission time (see
// mapper.conceptTagsWithMappingSource) without adding it to Tags.
type Concept struct {
	Nanoid string
	Commit string
	Terms  map[string]*Term
	Tags   []*Tag
}

// Label returns the Cypher label for a Concept pattern.
func (Concept) Label() string { return "concept" }

// AttrDict returns the property list for a Concept Match/Create pattern.
func (c *Concept) AttrDict() []cypher.Attr {
	return []cypher.Attr{{Key: "nanoid", Value: c.Nanoid}}
}

// Tag is a free-form key/value annotation attached to a parent entity.
type Tag struct {
	Key    string
	Value  string
	Commit string
	Parent AttrSource
}

// Label returns the Cypher label for a Tag pattern.
func (Tag) Label() string { return "tag" }

// AttrDict returns the property list for a Tag Match/Create pattern.
func (t *Tag) AttrDict() []cypher.Attr {
	return []cypher.Attr{{Key: "key", Value: t.Key}, {Key: "value", Value: t.Value}}
}

// Origin names the authority a Term's code is drawn from (e.g. NCIt).
type Origin struct {
	Name   string
	URL    string
	Commit string
}

// Label returns the Cypher label for an Origin pattern.
func (Origin) Label() string { return "origin" }

// AttrDict returns the property list for an Origin Match/Create pattern.
func (o *Origin) AttrDict() []cypher.Attr {
	return []cypher.Attr{{Key: "name", Value: o.Name}}
}
