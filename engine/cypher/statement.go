package cypher

import "strings"

// Statement is an ordered list of clauses (and raw text fragments) that
// together form one Cypher query, plus a Builder that assigns variable
// names the first time each entity is rendered.
//
// Text() renders with literal values inlined; ParameterizedText() renders
// with $pN placeholders and returns the accompanying parameter map. The
// original implementation toggled a single package-global flag to choose
// between these two renderings; here they're two explicit methods instead.
// Rendering still records each entity's variable name and parameter name
// on the GNode/GRel/GProp itself, so statements that share entities share
// those names.
type Statement struct {
	Builder *Builder
	Clauses []*Clause
}

// NewStatement builds a Statement from clauses, using a fresh Builder.
func NewStatement(clauses ...*Clause) *Statement {
	return &Statement{Builder: NewBuilder(), Clauses: clauses}
}

// NewStatementWithBuilder builds a Statement that shares b with other
// statements, so entities already assigned a variable by an earlier
// statement keep the same name here.
func NewStatementWithBuilder(b *Builder, clauses ...*Clause) *Statement {
	return &Statement{Builder: b, Clauses: clauses}
}

// Text renders the statement with literal values inlined.
func (s *Statement) Text() string {
	parts := make([]string, 0, len(s.Clauses))
	for _, c := range s.Clauses {
		parts = append(parts, c.render(s.Builder, nil))
	}
	return strings.Join(parts, " ")
}

// String implements fmt.Stringer as Text(), matching the original
// __str__-as-default-rendering behavior relied on throughout the
// converters and their tests.
func (s *Statement) String() string { return s.Text() }

// ParameterizedText renders the statement with $pN placeholders for every
// property literal, returning the rendered text and the parameter values
// to bind alongside it.
func (s *Statement) ParameterizedText() (string, map[string]any) {
	params := NewParamSet()
	parts := make([]string, 0, len(s.Clauses))
	for _, c := range s.Clauses {
		parts = append(parts, c.render(s.Builder, params))
	}
	return strings.Join(parts, " "), params.Values()
}

// Empty returns a Statement whose text is the literal "empty", used as the
// rollback for entities for which no undo is meaningful (e.g. a Term,
// which is never safe to unconditionally delete since other entities may
// still reference it).
func Empty() *Statement {
	return NewStatement(Raw("empty"))
}
