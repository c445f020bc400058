// Package cypher implements a small AST for building Neo4j Cypher text:
// node and relationship patterns, triples, paths, clauses, and statements
// that capture their own parameters in clause-walk order.
package cypher

import (
	"fmt"
	"strconv"
	"strings"
)

// Builder assigns deterministic variable names (n0, n1, ... / r0, r1, ...)
// to nodes and relationships the first time each is seen. A Builder is the
// explicit, per-run replacement for the package-global counters the
// original implementation used: create one per model/diff/mapping
// conversion and thread it through instead of resetting shared state.
type Builder struct {
	nodeSeq int
	relSeq  int
}

// NewBuilder returns a Builder with fresh counters.
func NewBuilder() *Builder {
	return &Builder{}
}

// Var returns n's variable name, assigning the next n-sequence value the
// first time n is seen. Repeated calls with the same node return the same
// name, matching the original's "variables are assigned once per entity
// object" behavior.
func (b *Builder) Var(n *GNode) string {
	if n.varName == "" {
		n.varName = fmt.Sprintf("n%d", b.nodeSeq)
		b.nodeSeq++
	}
	return n.varName
}

// VarRel returns r's variable name, assigning the next r-sequence value the
// first time r is seen.
func (b *Builder) VarRel(r *GRel) string {
	if r.varName == "" {
		r.varName = fmt.Sprintf("r%d", b.relSeq)
		b.relSeq++
	}
	return r.varName
}

// Reset zeroes both sequences. Names already memoized on entities by
// Var/VarRel are kept; only names handed out afterwards restart at 0.
func (b *Builder) Reset() {
	b.nodeSeq = 0
	b.relSeq = 0
}

// Attr is one property key/value pair, in the order it should render.
// NewNode/NewRel take a slice of these instead of a Go map because map
// iteration order is randomized per run, and this package's callers rely
// on property order matching the order their AttrDict() methods list it
// in, not an alphabetized one.
type Attr struct {
	Key   string
	Value any
}

// GProp is a single property key/value pair attached to a node or
// relationship pattern.
type GProp struct {
	Key       string
	Value     any
	paramName string
}

func (p *GProp) literal() string {
	switch v := p.Value.(type) {
	case string:
		return "'" + escapeQuotes(v) + "'"
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// escapeQuotes unescapes any previously-escaped quote characters and
// re-escapes them, so repeated passes over the same value are idempotent.
func escapeQuotes(s string) string {
	unescaped := strings.NewReplacer(`\'`, `'`, `\"`, `"`).Replace(s)
	return strings.NewReplacer(`'`, `\'`, `"`, `\"`).Replace(unescaped)
}

// renderProps renders props in their given order - the insertion order of
// the Attr slice they were built from, not a sorted one.
func renderProps(props []*GProp) string {
	if len(props) == 0 {
		return ""
	}
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, p.Key+":"+p.literal())
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func renderParamProps(props []*GProp, params *ParamSet) string {
	if len(props) == 0 {
		return ""
	}
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, p.Key+":$"+params.Name(p))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// GNode is a node pattern, e.g. (n0:node {handle:'subject'}).
type GNode struct {
	Label   string
	Props   []*GProp
	varName string
}

// NewNode builds a node pattern from a label and an ordered attribute list.
func NewNode(label string, attrs []Attr) *GNode {
	return &GNode{Label: label, Props: toProps(attrs)}
}

func toProps(attrs []Attr) []*GProp {
	out := make([]*GProp, 0, len(attrs))
	for _, a := range attrs {
		if a.Value == nil {
			continue
		}
		out = append(out, &GProp{Key: a.Key, Value: a.Value})
	}
	return out
}

// render writes the node pattern using b to resolve (and assign) its
// variable name. If params is non-nil, property values render as $pN
// placeholders and are recorded into params instead of inlined literals.
func (n *GNode) render(b *Builder, params *ParamSet) string {
	v := b.Var(n)
	var label string
	if n.Label != "" {
		label = ":" + n.Label
	}
	var props string
	if params != nil {
		props = renderParamProps(n.Props, params)
	} else {
		props = renderProps(n.Props)
	}
	if props != "" {
		props = " " + props
	}
	return "(" + v + label + props + ")"
}

// PlainVar renders the node as a bare variable reference, e.g. (n0), with
// no label or properties - used when re-referencing an already-matched
// node later in the same statement.
func (n *GNode) PlainVar(b *Builder) string {
	return "(" + b.Var(n) + ")"
}

// Var returns the node's variable name (assigning one if needed).
func (n *GNode) Var(b *Builder) string {
	return b.Var(n)
}

// Attrs returns n's properties as an ordered Attr list, suitable for
// constructing a fresh GNode with the same label/attributes (e.g. for a
// rollback statement's independent Match pattern), preserving the order
// they were originally given in.
func (n *GNode) Attrs() []Attr {
	out := make([]Attr, 0, len(n.Props))
	for _, p := range n.Props {
		out = append(out, Attr{Key: p.Key, Value: p.Value})
	}
	return out
}

// GRel is a relationship pattern, e.g. [r0:has_src].
type GRel struct {
	Type    string
	Props   []*GProp
	varName string
	anon    bool
}

// NewRel builds a relationship pattern with the given type and attributes.
func NewRel(relType string, attrs []Attr) *GRel {
	return &GRel{Type: relType, Props: toProps(attrs)}
}

// Anon returns a copy of r with no variable ever assigned, rendering as
// [:type] with no leading identifier - used where the relationship itself
// is never re-referenced.
func (r *GRel) Anon() *GRel {
	return &GRel{Type: r.Type, Props: r.Props, anon: true}
}

func (r *GRel) render(b *Builder, params *ParamSet) string {
	var v string
	if !r.anon {
		v = b.VarRel(r)
	}
	var typ string
	if r.Type != "" {
		typ = ":" + r.Type
	}
	var props string
	if params != nil {
		props = renderParamProps(r.Props, params)
	} else {
		props = renderProps(r.Props)
	}
	if props != "" {
		props = " " + props
	}
	return "[" + v + typ + props + "]"
}

// Var returns the relationship's variable name (assigning one if needed).
func (r *GRel) Var(b *Builder) string {
	if r.anon {
		return ""
	}
	return b.VarRel(r)
}

// NodeRef is anything that can stand in for a node pattern's position in a
// Triple: a full GNode (rendering its label/props) or a PlainVarArg-wrapped
// GNode (rendering just its already-assigned variable).
type NodeRef interface {
	render(b *Builder, params *ParamSet) string
}

// Triple is a directed (src)-[rel]->(dst) pattern. Reversed flips the arrow
// to (dst)<-[rel]-(src) at render time without changing which side is
// logically src/dst, for matches that read more naturally the other way
// round (e.g. an edge entity's has_dst relationship).
type Triple struct {
	Src      NodeRef
	Rel      *GRel
	Dst      NodeRef
	Reversed bool
}

// NewTriple builds a forward (src)-[rel]->(dst) triple.
func NewTriple(src NodeRef, rel *GRel, dst NodeRef) *Triple {
	return &Triple{Src: src, Rel: rel, Dst: dst}
}

func (t *Triple) render(b *Builder, params *ParamSet) string {
	src := t.Src.render(b, params)
	rel := t.Rel.render(b, params)
	dst := t.Dst.render(b, params)
	if t.Reversed {
		return dst + "<-" + rel + "-" + src
	}
	return src + "-" + rel + "->" + dst
}

// Path is an ordered sequence of triples rendered as one joined pattern,
// comma-separated between triples.
type Path struct {
	Triples []*Triple
}

// NewPath builds a Path from one or more triples.
func NewPath(triples ...*Triple) *Path {
	return &Path{Triples: triples}
}

func (p *Path) render(b *Builder, params *ParamSet) string {
	parts := make([]string, 0, len(p.Triples))
	for _, t := range p.Triples {
		parts = append(parts, t.render(b, params))
	}
	return strings.Join(parts, " , ")
}

// ParamSet accumulates $p1, $p2, ... parameter names for GProp values in
// the order they're first encountered while rendering a statement.
type ParamSet struct {
	values map[string]any
	seq    int
}

// NewParamSet returns an empty ParamSet.
func NewParamSet() *ParamSet {
	return &ParamSet{values: map[string]any{}}
}

// Name returns the placeholder name for p, assigning the next $pN the first
// time this exact property is seen.
func (ps *ParamSet) Name(p *GProp) string {
	if p.paramName == "" {
		ps.seq++
		p.paramName = "p" + strconv.Itoa(ps.seq)
	}
	if _, ok := ps.values[p.paramName]; !ok {
		ps.values[p.paramName] = p.Value
	}
	return p.paramName
}

// Values returns the accumulated parameter map, keyed by placeholder name.
func (ps *ParamSet) Values() map[string]any {
	return ps.values
}

// nodeVarArg renders a node as its bare variable (no label/props) at clause
// render time, sharing whatever Builder the enclosing Statement uses - so
// the same node referenced elsewhere in the same statement keeps one
// variable name instead of risking a second, independent assignment.
type nodeVarArg struct{ node *GNode }

func (a *nodeVarArg) render(b *Builder, _ *ParamSet) string { return a.node.PlainVar(b) }

// PlainVarArg wraps n so it renders as a bare (varName) reference wherever
// it's used as a clause argument.
func PlainVarArg(n *GNode) *nodeVarArg { return &nodeVarArg{node: n} }

// relVarArg renders a relationship as its bare variable name (no brackets)
// at clause render time, e.g. for a DELETE clause's argument.
type relVarArg struct{ rel *GRel }

func (a *relVarArg) render(b *Builder, _ *ParamSet) string { return a.rel.Var(b) }

// RelVarArg wraps r so it renders as its bare variable name wherever it's
// used as a clause argument.
func RelVarArg(r *GRel) *relVarArg { return &relVarArg{rel: r} }
