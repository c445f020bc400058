// Package mapper converts a full model.Model into a changelog.Changelog of
// CREATE/MERGE statements (with DETACH DELETE/empty rollbacks), in the
// traversal order terms -> props -> edges -> nodes, emitted as two
// changeset buckets: entity creation first, then relationship creation.
package mapper

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bentomdb/graphchangelog/engine/changelog"
	"github.com/bentomdb/graphchangelog/engine/cypher"
	"github.com/bentomdb/graphchangelog/engine/model"
)

// mappingSourceTagKey is the Tag.Key the mapper injects onto every Concept
// it emits, so engine/mapping's synthesizer can OPTIONAL MATCH an existing
// concept by (key, value) instead of always creating a new one.
const mappingSourceTagKey = "mapping_source"

// Converter drives one full-model-to-changelog conversion. Create a fresh
// Converter per conversion; it is not safe for concurrent use.
type Converter struct {
	Model       *model.Model
	Author      string
	Commit      string
	added       map[string]bool
	addEnts     []changelog.CypherChange
	addRels     []changelog.CypherChange
}

// NewConverter returns a Converter for m.
func NewConverter(m *model.Model, author, commit string) *Converter {
	return &Converter{Model: m, Author: author, Commit: commit, added: map[string]bool{}}
}

// Convert runs the full traversal and returns the resulting changelog. seq
// supplies changeset IDs and is flushed back to its config file exactly
// once, after every changeset has been assigned an ID - matching the
// original's single end-of-run config write.
func (c *Converter) Convert(seq *changelog.ChangesetIDSequence) (*changelog.Changelog, error) {
	if err := c.traverse(); err != nil {
		return nil, err
	}
	cl := &changelog.Changelog{}
	for _, bucket := range [][]changelog.CypherChange{c.addEnts, c.addRels} {
		for _, change := range bucket {
			cl.Add(changelog.Changeset{
				ID:     fmt.Sprintf("%d", seq.Next()),
				Author: c.Author,
				Change: change,
			})
		}
	}
	if err := seq.Flush(); err != nil {
		return nil, err
	}
	return cl, nil
}

// ConvertTermsOnly emits only the Term MERGE/rollback statements for the
// model, for callers that want to seed a shared terminology graph ahead of
// a full model load (supplemented from the original's terms_only mode).
func (c *Converter) ConvertTermsOnly(seq *changelog.ChangesetIDSequence) (*changelog.Changelog, error) {
	for _, t := range sortedTerms(c.Model.Terms) {
		if err := c.addTerm(t); err != nil {
			return nil, err
		}
	}
	cl := &changelog.Changelog{}
	for _, change := range c.addEnts {
		cl.Add(changelog.Changeset{ID: fmt.Sprintf("%d", seq.Next()), Author: c.Author, Change: change})
	}
	if err := seq.Flush(); err != nil {
		return nil, err
	}
	return cl, nil
}

func (c *Converter) traverse() error {
	for _, t := range sortedTerms(c.Model.Terms) {
		if err := c.addTerm(t); err != nil {
			return err
		}
	}
	for _, p := range sortedProps(c.Model.Props) {
		if err := c.addProperty(p); err != nil {
			return err
		}
	}
	for _, e := range sortedEdges(c.Model.Edges) {
		if err := c.addEdge(e); err != nil {
			return err
		}
	}
	for _, n := range sortedNodes(c.Model.Nodes) {
		if err := c.addNode(n); err != nil {
			return err
		}
	}
	return nil
}

// sortedTerms returns m's values ordered by (value, origin), so
// map-iteration order never leaks into the rendered changelog.
func sortedTerms(m map[model.TermKey]*model.Term) []*model.Term {
	out := make([]*model.Term, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value < out[j].Value
		}
		return out[i].Origin < out[j].Origin
	})
	return out
}

// sortedProps returns m's values ordered by (handle, parent handle).
func sortedProps(m map[model.PropKey]*model.Property) []*model.Property {
	out := make([]*model.Property, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Handle != out[j].Handle {
			return out[i].Handle < out[j].Handle
		}
		return out[i].ParentHandle < out[j].ParentHandle
	})
	return out
}

// sortedEdges returns m's values ordered by (handle, src handle, dst handle).
func sortedEdges(m map[model.EdgeKey]*model.Edge) []*model.Edge {
	out := make([]*model.Edge, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Handle != out[j].Handle {
			return out[i].Handle < out[j].Handle
		}
		if out[i].Src.Handle != out[j].Src.Handle {
			return out[i].Src.Handle < out[j].Src.Handle
		}
		return out[i].Dst.Handle < out[j].Dst.Handle
	})
	return out
}

// sortedNodes returns m's values ordered by handle.
func sortedNodes(m map[string]*model.Node) []*model.Node {
	out := make([]*model.Node, 0, len(m))
	for _, n := range m {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// sortedTermSet returns a ValueSet/Concept's Terms map values ordered by
// (value, origin), the same key every Term already sorts by elsewhere.
func sortedTermSet(m map[string]*model.Term) []*model.Term {
	out := make([]*model.Term, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value < out[j].Value
		}
		return out[i].Origin < out[j].Origin
	})
	return out
}

func attrsWithCommit(attrs []cypher.Attr, commit string) []cypher.Attr {
	out := make([]cypher.Attr, len(attrs), len(attrs)+1)
	copy(out, attrs)
	if commit != "" {
		out = append(out, cypher.Attr{Key: "_commit", Value: commit})
	}
	return out
}

// mergeEntity emits an idempotent MERGE statement for entities that may
// legitimately already exist (Term, ValueSet). Its rollback is the literal
// "empty" statement: merged entities may still be referenced elsewhere in
// the graph, so no unconditional delete is safe.
func (c *Converter) mergeEntity(key, label string, attrs []cypher.Attr) error {
	if c.added[key] {
		return nil
	}
	c.added[key] = true
	entC := cypher.NewNode(label, attrsWithCommit(attrs, c.Commit))
	stmt := cypher.NewStatement(cypher.Merge(entC))
	c.addEnts = append(c.addEnts, changelog.CypherChange{
		Text:         stmt.Text(),
		RollbackText: cypher.Empty().Text(),
	})
	return nil
}

// createEntity emits a CREATE statement with a MATCH+DETACH DELETE
// rollback, used for every entity kind except Term and ValueSet.
func (c *Converter) createEntity(key, label string, attrs []cypher.Attr) error {
	if c.added[key] {
		return nil
	}
	c.added[key] = true
	entC := cypher.NewNode(label, attrsWithCommit(attrs, c.Commit))
	stmt := cypher.NewStatement(cypher.Create(entC))

	rbEnt := cypher.NewNode(label, attrs)
	rb := cypher.NewStatement(cypher.Match(rbEnt), cypher.DetachDelete(cypher.PlainVarArg(rbEnt)))
	c.addEnts = append(c.addEnts, changelog.CypherChange{
		Text:         stmt.Text(),
		RollbackText: rb.Text(),
	})
	return nil
}

func (c *Converter) addTerm(t *model.Term) error {
	k := t.Key()
	return c.mergeEntity(fmt.Sprintf("term:%s:%s", k.Value, k.Origin), "term", t.AttrDict())
}

func (c *Converter) addValueSet(vs *model.ValueSet) error {
	if err := c.mergeEntity("value_set:"+vs.Handle, "value_set", vs.AttrDict()); err != nil {
		return err
	}
	for _, t := range sortedTermSet(vs.Terms) {
		if err := c.addTerm(t); err != nil {
			return err
		}
		if err := c.linkValueSetTerm(vs, t); err != nil {
			return err
		}
	}
	return nil
}

func (c *Converter) addProperty(p *model.Property) error {
	k := p.Key()
	key := fmt.Sprintf("property:%s:%s", k.Handle, k.ParentHandle)
	if err := c.createEntity(key, "property", p.AttrDict()); err != nil {
		return err
	}
	if p.ValueSet != nil {
		if err := c.addValueSet(p.ValueSet); err != nil {
			return err
		}
		c.addRelLink(
			cypher.NewNode("property", p.AttrDict()),
			cypher.NewNode("value_set", p.ValueSet.AttrDict()),
			"has_value_set",
		)
	}
	return c.addConceptAndTags(cypher.NewNode("property", p.AttrDict()), p.Concept, p.Tags)
}

func (c *Converter) addEdge(e *model.Edge) error {
	key := fmt.Sprintf("edge:%s:%s:%s", e.Handle, e.Src.Handle, e.Dst.Handle)
	if err := c.createEntity(key, "relationship", e.AttrDict()); err != nil {
		return err
	}
	entC := cypher.NewNode("relationship", e.AttrDict())
	srcC := cypher.NewNode("node", e.Src.AttrDict())
	dstC := cypher.NewNode("node", e.Dst.AttrDict())
	c.addRelLink(entC, srcC, "has_src")
	c.addRelLink(entC, dstC, "has_dst")
	for _, p := range e.Props {
		c.addRelLink(entC, cypher.NewNode("property", p.AttrDict()), "has_property")
	}
	return c.addConceptAndTags(entC, e.Concept, e.Tags)
}

func (c *Converter) addNode(n *model.Node) error {
	key := "node:" + n.Handle
	if err := c.createEntity(key, "node", n.AttrDict()); err != nil {
		return err
	}
	return c.addConceptAndTags(cypher.NewNode("node", n.AttrDict()), n.Concept, n.Tags)
}

func (c *Converter) addConceptAndTags(entC *cypher.GNode, concept *model.Concept, tags []*model.Tag) error {
	if concept != nil {
		conceptC := cypher.NewNode("concept", concept.AttrDict())
		if err := c.createEntity("concept:"+concept.Nanoid, "concept", concept.AttrDict()); err != nil {
			return err
		}
		c.addRelLink(entC, conceptC, "has_concept")
		for _, t := range sortedTermSet(concept.Terms) {
			if err := c.addTerm(t); err != nil {
				return err
			}
			c.addRelLinkReversed(
				cypher.NewNode("term", t.AttrDict()),
				cypher.NewNode("concept", concept.AttrDict()),
				"represents",
			)
		}
		if err := c.addTags(conceptC, conceptTagsWithMappingSource(concept, c.Model.Handle)); err != nil {
			return err
		}
	}
	return c.addTags(entC, tags)
}

// addTags emits entC's CREATE+has_tag statements for each of tags, in the
// order given.
func (c *Converter) addTags(entC *cypher.GNode, tags []*model.Tag) error {
	for _, tag := range tags {
		if err := c.createEntity("tag:"+entityKey(entC)+":"+tag.Key+":"+tag.Value, "tag", tag.AttrDict()); err != nil {
			return err
		}
		c.addRelLink(entC, cypher.NewNode("tag", tag.AttrDict()), "has_tag")
	}
	return nil
}

// conceptTagsWithMappingSource returns concept's own tags plus a synthetic
// mapping_source tag naming modelHandle, unless one is already present.
// engine/mapping's synthesizer (ConvertMappingsToChangelog) looks concepts
// up by this exact (key, value) pair, so every full-model-emitted concept
// needs one to be findable there.
func conceptTagsWithMappingSource(concept *model.Concept, modelHandle string) []*model.Tag {
	for _, t := range concept.Tags {
		if t.Key == mappingSourceTagKey && t.Value == modelHandle {
			return concept.Tags
		}
	}
	out := make([]*model.Tag, len(concept.Tags), len(concept.Tags)+1)
	copy(out, concept.Tags)
	return append(out, &model.Tag{Key: mappingSourceTagKey, Value: modelHandle})
}

func entityKey(n *cypher.GNode) string {
	var b strings.Builder
	b.WriteString(n.Label)
	for _, p := range n.Props {
		fmt.Fprintf(&b, ":%s=%v", p.Key, p.Value)
	}
	return b.String()
}

// addRelLink emits a MATCH of both endpoints and a CREATE for the
// (entity)-[rel]->(value) relationship itself, with a matching
// MATCH + DELETE rollback that removes only the relationship.
func (c *Converter) addRelLink(entC, valC *cypher.GNode, relType string) {
	fwdEntC := cypher.NewNode(entC.Label, entC.Attrs())
	fwdValC := cypher.NewNode(valC.Label, valC.Attrs())
	stmt := cypher.NewStatement(
		cypher.Match(fwdEntC, fwdValC),
		cypher.Create(cypher.NewTriple(cypher.PlainVarArg(fwdEntC), cypher.NewRel(relType, attrsWithCommit(nil, c.Commit)), cypher.PlainVarArg(fwdValC))),
	)
	rbEntC := cypher.NewNode(entC.Label, entC.Attrs())
	rbValC := cypher.NewNode(valC.Label, valC.Attrs())
	rbRel := cypher.NewRel(relType, nil)
	rb := cypher.NewStatement(cypher.Match(cypher.NewTriple(rbEntC, rbRel, rbValC)), cypher.Delete(cypher.RelVarArg(rbRel)))
	c.addRels = append(c.addRels, changelog.CypherChange{Text: stmt.Text(), RollbackText: rb.Text()})
}

// addRelLinkReversed is addRelLink for DirIn attributes (e.g. Term
// represents Concept), where the relationship points from value to entity.
func (c *Converter) addRelLinkReversed(valC, entC *cypher.GNode, relType string) {
	c.addRelLink(valC, entC, relType)
}

func (c *Converter) linkValueSetTerm(vs *model.ValueSet, t *model.Term) error {
	entC := cypher.NewNode("value_set", vs.AttrDict())
	valC := cypher.NewNode("term", t.AttrDict())
	c.addRelLink(entC, valC, "has_term")
	return nil
}
