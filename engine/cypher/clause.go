package cypher

import "strings"

// renderable is anything that can render itself into Cypher text given a
// Builder for variable assignment and an optional ParamSet for
// parameterized literals.
type renderable interface {
	render(b *Builder, params *ParamSet) string
}

// arg wraps a plain string fragment so it satisfies renderable alongside
// GNode/GRel/Triple/Path/Clause values, letting callers mix literal text
// into a clause's argument list (e.g. the Tag match's folded-in parent
// pattern text).
type arg string

func (a arg) render(*Builder, *ParamSet) string { return string(a) }

// Clause is one keyword-prefixed fragment of a Statement (MATCH, MERGE,
// CREATE, SET, ...). Clauses hold their arguments unevaluated until
// render time so a Statement can assign variables and capture parameters
// in a single left-to-right walk.
type Clause struct {
	keyword string
	args    []renderable
	sep     string // joiner between rendered args, defaults to " , "
}

func newClause(keyword string, sep string, args ...renderable) *Clause {
	if sep == "" {
		sep = " , "
	}
	return &Clause{keyword: keyword, args: args, sep: sep}
}

func wrap(items []any) []renderable {
	out := make([]renderable, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case renderable:
			out = append(out, v)
		case string:
			out = append(out, arg(v))
		}
	}
	return out
}

// Render renders the clause to text using b for variable assignment, with
// literal (non-parameterized) values. Exported for callers that need to
// splice one clause's text into a hand-built fragment (e.g. a FOREACH
// body), rather than listing it as a top-level Statement clause.
func (c *Clause) Render(b *Builder) string {
	return c.render(b, nil)
}

func (c *Clause) render(b *Builder, params *ParamSet) string {
	parts := make([]string, 0, len(c.args))
	for _, a := range c.args {
		parts = append(parts, a.render(b, params))
	}
	body := strings.Join(parts, c.sep)
	if c.keyword == "" {
		return body
	}
	return c.keyword + " " + body
}

// Match builds a MATCH clause over one or more patterns.
func Match(args ...any) *Clause { return newClause("MATCH", " , ", wrap(args)...) }

// OptionalMatch builds an OPTIONAL MATCH clause.
func OptionalMatch(args ...any) *Clause { return newClause("OPTIONAL MATCH", " , ", wrap(args)...) }

// Merge builds a MERGE clause.
func Merge(args ...any) *Clause { return newClause("MERGE", " , ", wrap(args)...) }

// Create builds a CREATE clause.
func Create(args ...any) *Clause { return newClause("CREATE", " , ", wrap(args)...) }

// Set builds a SET clause, joining multiple assignments with commas.
func Set(args ...any) *Clause { return newClause("SET", ", ", wrap(args)...) }

// Remove builds a REMOVE clause.
func Remove(args ...any) *Clause { return newClause("REMOVE", ", ", wrap(args)...) }

// Delete builds a DELETE clause.
func Delete(args ...any) *Clause { return newClause("DELETE", ", ", wrap(args)...) }

// DetachDelete builds a DETACH DELETE clause.
func DetachDelete(args ...any) *Clause { return newClause("DETACH DELETE", ", ", wrap(args)...) }

// With builds a WITH clause.
func With(args ...any) *Clause { return newClause("WITH", ", ", wrap(args)...) }

// ForEach builds a FOREACH clause; its single argument is normally a
// pre-rendered string built from Case/When plus an inline UPDATE clause,
// since FOREACH's body isn't itself a pattern.
func ForEach(args ...any) *Clause { return newClause("FOREACH", "", wrap(args)...) }

// CaseKeyword returns the bare "CASE" keyword, for splicing into a
// hand-built FOREACH body alongside When.
func CaseKeyword() string { return "CASE" }

// When builds a WHEN condition joining its args with op (default AND).
func When(op string, args ...string) string {
	if op == "" {
		op = "AND"
	}
	return "WHEN " + strings.Join(args, " "+op+" ")
}

// Raw wraps a pre-formatted string fragment as a Clause-compatible arg, for
// splicing literal text (THEN [...] ELSE [] END, closing parens, ...) into
// a Statement alongside real clauses.
func Raw(s string) *Clause { return newClause("", "", arg(s)) }

// attrAssign renders "var.attr = literal" for a SET clause.
type attrAssign struct {
	node  *GNode
	attr  string
	value any
}

func (a attrAssign) render(b *Builder, params *ParamSet) string {
	prop := &GProp{Key: a.attr, Value: a.value}
	var val string
	if params != nil {
		val = "$" + params.Name(prop)
	} else {
		val = prop.literal()
	}
	return b.Var(a.node) + "." + a.attr + " = " + val
}

// SetAttr builds a SET clause assigning node.attr = value.
func SetAttr(node *GNode, attr string, value any) *Clause {
	return newClause("SET", ", ", attrAssign{node: node, attr: attr, value: value})
}

// attrRef renders "var.attr" for a REMOVE clause.
type attrRef struct {
	node *GNode
	attr string
}

func (a attrRef) render(b *Builder, _ *ParamSet) string {
	return b.Var(a.node) + "." + a.attr
}

// RemoveAttr builds a REMOVE clause dropping node.attr.
func RemoveAttr(node *GNode, attr string) *Clause {
	return newClause("REMOVE", ", ", attrRef{node: node, attr: attr})
}
