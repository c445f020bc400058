// Package mapping synthesizes concept-linking Cypher from a cross-model
// Mapping MDF document: for each declared property-to-property mapping, it
// matches the synonymous properties (via their parent-path triples) and
// links them through a shared Concept, tagged with the mapping's source
// model, creating a new Concept+Tag only when neither property already has
// one from that source.
package mapping

import (
	"fmt"
	"os"
	"sort"

	"github.com/bentomdb/graphchangelog/engine/changelog"
	"github.com/bentomdb/graphchangelog/engine/cypher"
	"gopkg.in/yaml.v3"
)

// Doc is the parsed Mapping MDF document (§6.3): a source model handle and
// a nested Props map from source-parent -> source-prop -> dest-model ->
// list of {dest-prop: {Parents: ...}}.
type Doc struct {
	Source string                                       `yaml:"Source"`
	Props  map[string]map[string]map[string][]map[string]DestProp `yaml:"Props"`
}

// DestProp is one destination property entry's metadata.
type DestProp struct {
	Parents any `yaml:"Parents"`
}

// LoadDoc reads and parses a Mapping MDF YAML file.
func LoadDoc(path string) (*Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: read %s: %w", path, err)
	}
	var doc Doc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("mapping: parse %s: %w", path, err)
	}
	return &doc, nil
}

// ParentsAsList parses a Parents field per the three accepted forms: a
// bracketed list literal ("[a, b]"), a dotted path ("a.b.c"), or a bare
// string - returning its elements in order. Callers use the last element
// as the immediate parent handle.
func ParentsAsList(v any) ([]string, error) {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("mapping: Parents list element not a string: %v", e)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		if t == "" {
			return nil, fmt.Errorf("mapping: Parents must be a non-empty string")
		}
		return splitDotted(t), nil
	default:
		return nil, fmt.Errorf("mapping: unsupported Parents value %v", v)
	}
}

func splitDotted(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// lastParent returns the final segment of a Parents value, the immediate
// parent handle a Match pattern needs.
func lastParent(v any) (string, error) {
	parts, err := ParentsAsList(v)
	if err != nil {
		return "", err
	}
	return parts[len(parts)-1], nil
}

// GenerateMappingCypher builds the three-armed FOREACH/CASE/WHEN Cypher
// statement linking srcEnt and dstEnt (matched via their respective parent
// triples) through a shared Concept tagged with mappingSource: if either
// side already has a concept tagged by this mapping source, the other side
// is linked to it; otherwise a new Concept+Tag is created and both sides
// linked to it.
func GenerateMappingCypher(srcEnt, dstEnt, srcParent, dstParent *cypher.GNode, parentChildRel string, mappingSource, commit string) *cypher.Statement {
	srcTriple := cypher.NewTriple(srcParent, cypher.NewRel(parentChildRel, nil).Anon(), srcEnt)
	dstTriple := cypher.NewTriple(dstParent, cypher.NewRel(parentChildRel, nil).Anon(), dstEnt)

	srcConcept := cypher.NewNode("concept", nil)
	dstConcept := cypher.NewNode("concept", nil)
	tagAttrs := []cypher.Attr{{Key: "key", Value: "mapping_source"}, {Key: "value", Value: mappingSource}}

	srcConceptPath := cypher.NewPath(
		cypher.NewTriple(cypher.PlainVarArg(srcEnt), cypher.NewRel("has_concept", nil), srcConcept),
		cypher.NewTriple(cypher.PlainVarArg(srcConcept), cypher.NewRel("has_tag", nil), cypher.NewNode("tag", tagAttrs)),
	)
	dstConceptPath := cypher.NewPath(
		cypher.NewTriple(cypher.PlainVarArg(dstEnt), cypher.NewRel("has_concept", nil), dstConcept),
		cypher.NewTriple(cypher.PlainVarArg(dstConcept), cypher.NewRel("has_tag", nil), cypher.NewNode("tag", tagAttrs)),
	)

	newConcept := cypher.NewNode("concept", []cypher.Attr{{Key: "_commit", Value: commit}})
	newTag := cypher.NewNode("tag", []cypher.Attr{{Key: "key", Value: "mapping_source"}, {Key: "value", Value: mappingSource}, {Key: "_commit", Value: commit}})

	b := cypher.NewBuilder()
	srcVar := b.Var(srcEnt)
	dstVar := b.Var(dstEnt)

	clauses := []*cypher.Clause{
		cypher.Match(srcTriple, dstTriple),
		cypher.OptionalMatch(srcConceptPath),
		cypher.OptionalMatch(dstConceptPath),
	}

	stmt := cypher.NewStatementWithBuilder(b, clauses...)
	srcHasConcept := b.Var(srcConcept)
	dstHasConcept := b.Var(dstConcept)
	// the WITH clause's variable list must match whatever the optional
	// matches above actually assigned the concept nodes, so it's built
	// from the same Builder rather than a separately-rendered clause.
	stmt.Clauses = append(stmt.Clauses, cypher.Raw(
		"WITH "+srcVar+", "+dstVar+", "+srcHasConcept+", "+dstHasConcept,
	))

	stmt.Clauses = append(stmt.Clauses,
		cypher.ForEach(cypher.Raw(fmt.Sprintf(
			"(_ IN %s %s THEN [1] ELSE [] END | %s)",
			cypher.CaseKeyword(),
			cypher.When("AND", srcHasConcept+" IS NOT NULL", dstHasConcept+" IS NULL"),
			cypher.Merge(cypher.NewTriple(cypher.PlainVarArg(dstEnt), cypher.NewRel("has_concept", nil), cypher.PlainVarArg(srcConcept))).Render(b),
		))),
		cypher.ForEach(cypher.Raw(fmt.Sprintf(
			"(_ IN %s %s THEN [1] ELSE [] END | %s)",
			cypher.CaseKeyword(),
			cypher.When("AND", srcHasConcept+" IS NULL", dstHasConcept+" IS NOT NULL"),
			cypher.Merge(cypher.NewTriple(cypher.PlainVarArg(srcEnt), cypher.NewRel("has_concept", nil), cypher.PlainVarArg(dstConcept))).Render(b),
		))),
		cypher.ForEach(cypher.Raw(fmt.Sprintf(
			"(_ IN %s %s THEN [1] ELSE [] END | %s %s %s)",
			cypher.CaseKeyword(),
			cypher.When("AND", srcHasConcept+" IS NULL", dstHasConcept+" IS NULL"),
			cypher.Create(cypher.NewTriple(newConcept, cypher.NewRel("has_tag", nil), newTag)).Render(b),
			cypher.Create(cypher.NewTriple(cypher.PlainVarArg(srcEnt), cypher.NewRel("has_concept", []cypher.Attr{{Key: "_commit", Value: commit}}), cypher.PlainVarArg(newConcept))).Render(b),
			cypher.Create(cypher.NewTriple(cypher.PlainVarArg(dstEnt), cypher.NewRel("has_concept", []cypher.Attr{{Key: "_commit", Value: commit}}), cypher.PlainVarArg(newConcept))).Render(b),
		))),
	)

	return stmt
}

// ProcessProps walks the Mapping MDF's Props traversal (src parent -> src
// prop -> dst model -> dst prop list) and returns one GenerateMappingCypher
// statement per declared property mapping. Every map level is visited in
// sorted-key order, so the returned statement order never depends on Go's
// randomized map iteration.
func ProcessProps(doc *Doc, commit string) ([]*cypher.Statement, error) {
	if doc.Props == nil {
		return nil, fmt.Errorf("mapping: Mapping MDF must contain a Props key")
	}
	var stmts []*cypher.Statement
	for _, srcParent := range sortedStringKeys(doc.Props) {
		srcPropDict := doc.Props[srcParent]
		for _, srcProp := range sortedStringKeys(srcPropDict) {
			dstModelDict := srcPropDict[srcProp]
			for _, dstModel := range sortedStringKeys(dstModelDict) {
				dstPropList := dstModelDict[dstModel]
				for _, dstPropDict := range dstPropList {
					for _, dstProp := range sortedDestPropKeys(dstPropDict) {
						meta := dstPropDict[dstProp]
						srcParentHandle, err := lastParent(srcParent)
						if err != nil {
							return nil, err
						}
						dstParents := meta.Parents
						if dstParents == nil {
							dstParents = "CONST"
						}
						dstParentHandle, err := lastParent(dstParents)
						if err != nil {
							return nil, err
						}
						srcEnt := cypher.NewNode("property", []cypher.Attr{{Key: "handle", Value: srcProp}, {Key: "model", Value: doc.Source}})
						dstEnt := cypher.NewNode("property", []cypher.Attr{{Key: "handle", Value: dstProp}, {Key: "model", Value: dstModel}})
						srcParentNode := cypher.NewNode("", []cypher.Attr{{Key: "handle", Value: srcParentHandle}, {Key: "model", Value: doc.Source}})
						dstParentNode := cypher.NewNode("", []cypher.Attr{{Key: "handle", Value: dstParentHandle}, {Key: "model", Value: dstModel}})
						stmts = append(stmts, GenerateMappingCypher(srcEnt, dstEnt, srcParentNode, dstParentNode, "has_property", doc.Source, commit))
					}
				}
			}
		}
	}
	return stmts, nil
}

// sortedStringKeys returns m's keys in lexical order.
func sortedStringKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedDestPropKeys returns a dst-prop entry's keys in lexical order -
// normally a single key, but the MDF schema allows more than one per list
// element.
func sortedDestPropKeys(m map[string]DestProp) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ConvertMappingsToChangelog loads a Mapping MDF document and emits one
// run-always changeset per property mapping, with no rollback - mapping
// changesets link pre-existing data and are never meant to be undone.
func ConvertMappingsToChangelog(mappingMDFPath, author, commit string, seq *changelog.ChangesetIDSequence) (*changelog.Changelog, error) {
	doc, err := LoadDoc(mappingMDFPath)
	if err != nil {
		return nil, err
	}
	stmts, err := ProcessProps(doc, commit)
	if err != nil {
		return nil, err
	}
	cl := &changelog.Changelog{}
	for _, stmt := range stmts {
		cl.Add(changelog.Changeset{
			ID:        fmt.Sprintf("%d", seq.Next()),
			Author:    author,
			RunAlways: true,
			Change:    changelog.CypherChange{Text: stmt.Text()},
		})
	}
	if err := seq.Flush(); err != nil {
		return nil, err
	}
	return cl, nil
}
