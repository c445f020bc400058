package diff

import (
	"fmt"
	"sort"

	"github.com/bentomdb/graphchangelog/engine/changelog"
	"github.com/bentomdb/graphchangelog/engine/cypher"
	"github.com/bentomdb/graphchangelog/engine/model"
)

// bucket names the six fixed-order statement groups a diff is split into.
// Emission order (RemoveNode first, AddRelationship last) is independent of
// the terms -> props -> edges -> nodes order the diff is walked in.
type bucket int

const (
	removeNode bucket = iota
	addNode
	removeProperty
	addProperty
	removeRelationship
	addRelationship
	bucketCount
)

// pair is one forward/rollback statement pair.
type pair struct {
	stmt     *cypher.Statement
	rollback *cypher.Statement
}

// Splitter walks a Diff and produces ordered forward/rollback statement
// pairs. Create a fresh Splitter per diff; it is not safe for concurrent
// use.
type Splitter struct {
	diff    Diff
	buckets [bucketCount][]pair
}

// NewSplitter returns a Splitter for diff.
func NewSplitter(d Diff) *Splitter {
	return &Splitter{diff: d}
}

// GetDiffStatements walks the diff (terms, props, edges, nodes order) and
// returns every resulting statement pair in the six-bucket emission order:
// REMOVE_NODE, ADD_NODE, REMOVE_PROPERTY, ADD_PROPERTY,
// REMOVE_RELATIONSHIP, ADD_RELATIONSHIP.
func (s *Splitter) GetDiffStatements() ([][2]*cypher.Statement, error) {
	if err := s.processTerms(); err != nil {
		return nil, err
	}
	if err := s.processProps(); err != nil {
		return nil, err
	}
	if err := s.processEdges(); err != nil {
		return nil, err
	}
	if err := s.processNodes(); err != nil {
		return nil, err
	}

	out := make([][2]*cypher.Statement, 0)
	for b := bucket(0); b < bucketCount; b++ {
		for _, p := range s.buckets[b] {
			out = append(out, [2]*cypher.Statement{p.stmt, p.rollback})
		}
	}
	return out, nil
}

// ConvertDiffToChangelog runs GetDiffStatements and packages every pair as
// a changeset with an unconditional rollback - unlike the model mapper,
// every diff-derived change is reversible.
func (s *Splitter) ConvertDiffToChangelog(author string, seq *changelog.ChangesetIDSequence) (*changelog.Changelog, error) {
	pairs, err := s.GetDiffStatements()
	if err != nil {
		return nil, err
	}
	cl := &changelog.Changelog{}
	for _, p := range pairs {
		cl.Add(changelog.Changeset{
			ID:     fmt.Sprintf("%d", seq.Next()),
			Author: author,
			Change: changelog.CypherChange{
				Text:         p[0].Text(),
				RollbackText: p[1].Text(),
			},
		})
	}
	if err := seq.Flush(); err != nil {
		return nil, err
	}
	return cl, nil
}

func (s *Splitter) push(b bucket, stmt, rollback *cypher.Statement) {
	s.buckets[b] = append(s.buckets[b], pair{stmt: stmt, rollback: rollback})
}

// --- terms ---

func (s *Splitter) processTerms() error {
	for _, k := range sortedKeys(s.diff.Terms.Added, termKeyLess) {
		t := s.diff.Terms.Added[k]
		entC := cypher.NewNode("term", t.AttrDict())
		rbC := cypher.NewNode("term", t.AttrDict())
		s.push(addNode,
			cypher.NewStatement(cypher.Merge(entC)),
			cypher.NewStatement(cypher.Match(rbC), cypher.DetachDelete(cypher.PlainVarArg(rbC))),
		)
	}
	for _, k := range sortedKeys(s.diff.Terms.Removed, termKeyLess) {
		t := s.diff.Terms.Removed[k]
		entC := cypher.NewNode("term", t.AttrDict())
		rbC := cypher.NewNode("term", t.AttrDict())
		s.push(removeNode,
			cypher.NewStatement(cypher.Match(entC), cypher.DetachDelete(cypher.PlainVarArg(entC))),
			cypher.NewStatement(cypher.Merge(rbC)),
		)
	}
	return nil
}

// --- props ---

func (s *Splitter) processProps() error {
	for _, k := range sortedKeys(s.diff.Props.Added, propKeyLess) {
		p := s.diff.Props.Added[k]
		if p.ParentHandle == "" {
			return changelog.NewConversionError("add_property", k.Handle, changelog.ErrMissingParent)
		}
		if err := s.addPropertyStatement(p); err != nil {
			return err
		}
	}
	for _, k := range sortedKeys(s.diff.Props.Removed, propKeyLess) {
		p := s.diff.Props.Removed[k]
		if p.ParentHandle == "" {
			return changelog.NewConversionError("remove_property", k.Handle, changelog.ErrMissingParent)
		}
		if err := s.removePropertyStatement(p); err != nil {
			return err
		}
	}
	for _, k := range sortedKeys(s.diff.Props.Changed, propKeyLess) {
		attrs := s.diff.Props.Changed[k]
		matchAttrs := []cypher.Attr{{Key: "handle", Value: k.Handle}, {Key: "model", Value: s.diff.Model}}
		if err := s.changedAttrs(k.Handle, "property", matchAttrs, attrs); err != nil {
			return err
		}
	}
	return nil
}

func (s *Splitter) addPropertyStatement(p *model.Property) error {
	parentC := cypher.NewNode("", []cypher.Attr{{Key: "handle", Value: p.ParentHandle}})
	propC := cypher.NewNode("property", p.AttrDict())
	stmt := cypher.NewStatement(
		cypher.Match(parentC),
		cypher.Create(cypher.NewTriple(cypher.PlainVarArg(parentC), cypher.NewRel("has_property", nil), propC)),
	)
	rbParentC := cypher.NewNode("", []cypher.Attr{{Key: "handle", Value: p.ParentHandle}})
	rbPropC := cypher.NewNode("property", p.AttrDict())
	rb := cypher.NewStatement(
		cypher.Match(cypher.NewTriple(rbParentC, cypher.NewRel("has_property", nil), rbPropC)),
		cypher.DetachDelete(cypher.PlainVarArg(rbPropC)),
	)
	s.push(addProperty, stmt, rb)
	return nil
}

func (s *Splitter) removePropertyStatement(p *model.Property) error {
	parentC := cypher.NewNode("", []cypher.Attr{{Key: "handle", Value: p.ParentHandle}})
	propC := cypher.NewNode("property", p.AttrDict())
	stmt := cypher.NewStatement(
		cypher.Match(cypher.NewTriple(parentC, cypher.NewRel("has_property", nil), propC)),
		cypher.DetachDelete(cypher.PlainVarArg(propC)),
	)
	rbParentC := cypher.NewNode("", []cypher.Attr{{Key: "handle", Value: p.ParentHandle}})
	rbPropC := cypher.NewNode("property", p.AttrDict())
	rb := cypher.NewStatement(
		cypher.Match(rbParentC),
		cypher.Create(cypher.NewTriple(cypher.PlainVarArg(rbParentC), cypher.NewRel("has_property", nil), rbPropC)),
	)
	s.push(removeProperty, stmt, rb)
	return nil
}

// --- edges ---

func (s *Splitter) processEdges() error {
	for _, k := range sortedKeys(s.diff.Edges.Added, edgeKeyLess) {
		s.addEdgeStatement(s.diff.Edges.Added[k])
	}
	for _, k := range sortedKeys(s.diff.Edges.Removed, edgeKeyLess) {
		s.removeEdgeStatement(s.diff.Edges.Removed[k])
	}
	for _, k := range sortedKeys(s.diff.Edges.Changed, edgeKeyLess) {
		attrs := s.diff.Edges.Changed[k]
		matchAttrs := []cypher.Attr{{Key: "handle", Value: k.Handle}, {Key: "model", Value: s.diff.Model}}
		if err := s.changedAttrs(k.Handle, "relationship", matchAttrs, attrs); err != nil {
			return err
		}
	}
	return nil
}

func (s *Splitter) addEdgeStatement(e *model.Edge) {
	entC := cypher.NewNode("relationship", e.AttrDict())
	srcC := cypher.NewNode("node", e.Src.AttrDict())
	dstC := cypher.NewNode("node", e.Dst.AttrDict())
	stmt := cypher.NewStatement(
		cypher.Match(srcC, dstC),
		cypher.Create(
			cypher.NewTriple(entC, cypher.NewRel("has_src", nil), cypher.PlainVarArg(srcC)),
		),
		cypher.Create(
			cypher.NewTriple(cypher.PlainVarArg(entC), cypher.NewRel("has_dst", nil), cypher.PlainVarArg(dstC)),
		),
	)
	rbEntC := cypher.NewNode("relationship", e.AttrDict())
	rb := cypher.NewStatement(cypher.Match(rbEntC), cypher.DetachDelete(cypher.PlainVarArg(rbEntC)))
	s.push(addRelationship, stmt, rb)
}

func (s *Splitter) removeEdgeStatement(e *model.Edge) {
	entC := cypher.NewNode("relationship", e.AttrDict())
	rb := cypher.NewStatement(cypher.Match(entC), cypher.DetachDelete(cypher.PlainVarArg(entC)))

	rbEntC := cypher.NewNode("relationship", e.AttrDict())
	rbSrcC := cypher.NewNode("node", e.Src.AttrDict())
	rbDstC := cypher.NewNode("node", e.Dst.AttrDict())
	stmt := cypher.NewStatement(
		cypher.Match(rbSrcC, rbDstC),
		cypher.Create(
			cypher.NewTriple(rbEntC, cypher.NewRel("has_src", nil), cypher.PlainVarArg(rbSrcC)),
		),
		cypher.Create(
			cypher.NewTriple(cypher.PlainVarArg(rbEntC), cypher.NewRel("has_dst", nil), cypher.PlainVarArg(rbDstC)),
		),
	)
	s.push(removeRelationship, rb, stmt)
}

// --- nodes ---

func (s *Splitter) processNodes() error {
	for _, handle := range sortedKeys(s.diff.Nodes.Added, stringLess) {
		n := s.diff.Nodes.Added[handle]
		entC := cypher.NewNode("node", n.AttrDict())
		stmt := cypher.NewStatement(cypher.Create(entC))
		rbC := cypher.NewNode("node", n.AttrDict())
		rb := cypher.NewStatement(cypher.Match(rbC), cypher.DetachDelete(cypher.PlainVarArg(rbC)))
		s.push(addNode, stmt, rb)
	}
	for _, handle := range sortedKeys(s.diff.Nodes.Removed, stringLess) {
		n := s.diff.Nodes.Removed[handle]
		entC := cypher.NewNode("node", n.AttrDict())
		stmt := cypher.NewStatement(cypher.Match(entC), cypher.DetachDelete(cypher.PlainVarArg(entC)))
		rbC := cypher.NewNode("node", n.AttrDict())
		rb := cypher.NewStatement(cypher.Create(rbC))
		s.push(removeNode, stmt, rb)
	}
	for _, handle := range sortedKeys(s.diff.Nodes.Changed, stringLess) {
		attrs := s.diff.Nodes.Changed[handle]
		matchAttrs := []cypher.Attr{{Key: "handle", Value: handle}, {Key: "model", Value: s.diff.Model}}
		if err := s.changedAttrs(handle, "node", matchAttrs, attrs); err != nil {
			return err
		}
	}
	return nil
}

// changedAttrs dispatches every changed attribute of one entity (of the
// given label) to the simple/object/collection handler its AttrSpec names,
// visiting attribute names in sorted order so the emitted statement order
// never depends on Go's map iteration.
func (s *Splitter) changedAttrs(key, label string, matchAttrs []cypher.Attr, attrs map[string]AttrChange) error {
	for _, attr := range sortedKeys(attrs, stringLess) {
		change := attrs[attr]
		spec, known := model.AttrSpecFor(label, attr)
		if !known {
			if err := s.simpleAttrChange(label, matchAttrs, attr, change); err != nil {
				return err
			}
			continue
		}
		switch spec.Class {
		case model.ObjectAttr, model.CollectionAttr:
			if err := s.relAttrChange(label, matchAttrs, spec, change); err != nil {
				return err
			}
		default:
			return changelog.NewConversionError("changed_attr", key, changelog.ErrUnknownAttribute)
		}
	}
	return nil
}

// simpleAttrChange handles a scalar field: SET the new value if one was
// added (an add or an update), REMOVE it if the change is a pure removal.
func (s *Splitter) simpleAttrChange(label string, matchAttrs []cypher.Attr, attr string, change AttrChange) error {
	entC := cypher.NewNode(label, matchAttrs)
	rbEntC := cypher.NewNode(label, matchAttrs)
	switch {
	case change.IsRemove():
		stmt := cypher.NewStatement(cypher.Match(entC), cypher.RemoveAttr(entC, attr))
		rb := cypher.NewStatement(cypher.Match(rbEntC), cypher.SetAttr(rbEntC, attr, change.Removed))
		s.push(removeProperty, stmt, rb)
	default: // add-only, or update (both added and removed set)
		stmt := cypher.NewStatement(cypher.Match(entC), cypher.SetAttr(entC, attr, change.Added))
		var rb *cypher.Statement
		if change.Removed != nil {
			rb = cypher.NewStatement(cypher.Match(rbEntC), cypher.SetAttr(rbEntC, attr, change.Removed))
		} else {
			rb = cypher.NewStatement(cypher.Match(rbEntC), cypher.RemoveAttr(rbEntC, attr))
		}
		s.push(addProperty, stmt, rb)
	}
	return nil
}

// relAttrChange handles an object/collection-valued attribute: linking or
// unlinking entC and the changed value via spec's relationship type. Tag
// members dispatch to addTagMember/removeTagMember since a Tag is never
// shared - its own node is created/destroyed alongside the relationship,
// not just the relationship. ValueSet/Concept members additionally get
// their own Terms long-form linked via addRelMember/removeRelMember.
func (s *Splitter) relAttrChange(label string, matchAttrs []cypher.Attr, spec model.AttrSpec, change AttrChange) error {
	if change.Added != nil {
		if tag, ok := change.Added.(*model.Tag); ok {
			s.addTagMember(label, matchAttrs, spec, tag)
		} else if err := s.addRelMember(label, matchAttrs, spec, change.Added); err != nil {
			return err
		}
	}
	if change.Removed != nil {
		if tag, ok := change.Removed.(*model.Tag); ok {
			s.removeTagMember(label, matchAttrs, spec, tag)
		} else if err := s.removeRelMember(label, matchAttrs, spec, change.Removed); err != nil {
			return err
		}
	}
	return nil
}

// addTagMember emits a CREATE for the tag's own node plus its link to
// entC, with a MATCH+DETACH DELETE rollback that removes both - a Tag has
// no natural key of its own and is never referenced outside its parent, so
// "removing" it means deleting the node, not just unlinking it.
func (s *Splitter) addTagMember(label string, matchAttrs []cypher.Attr, spec model.AttrSpec, tag *model.Tag) {
	entC := cypher.NewNode(label, matchAttrs)
	tagC := cypher.NewNode("tag", tag.AttrDict())
	var triple *cypher.Triple
	if spec.Dir == model.DirIn {
		triple = cypher.NewTriple(tagC, cypher.NewRel(spec.Rel, nil), cypher.PlainVarArg(entC))
	} else {
		triple = cypher.NewTriple(cypher.PlainVarArg(entC), cypher.NewRel(spec.Rel, nil), tagC)
	}
	stmt := cypher.NewStatement(cypher.Match(entC), cypher.Create(triple))

	rbTagC := cypher.NewNode("tag", tag.AttrDict())
	rb := cypher.NewStatement(cypher.Match(rbTagC), cypher.DetachDelete(cypher.PlainVarArg(rbTagC)))
	s.push(addRelationship, stmt, rb)
}

// removeTagMember is addTagMember's inverse: MATCH the tag node through
// its link to entC and DETACH DELETE it; rollback re-creates both.
func (s *Splitter) removeTagMember(label string, matchAttrs []cypher.Attr, spec model.AttrSpec, tag *model.Tag) {
	entC := cypher.NewNode(label, matchAttrs)
	tagC := cypher.NewNode("tag", tag.AttrDict())
	var triple *cypher.Triple
	if spec.Dir == model.DirIn {
		triple = cypher.NewTriple(tagC, cypher.NewRel(spec.Rel, nil), entC)
	} else {
		triple = cypher.NewTriple(entC, cypher.NewRel(spec.Rel, nil), tagC)
	}
	stmt := cypher.NewStatement(cypher.Match(triple), cypher.DetachDelete(cypher.PlainVarArg(tagC)))

	rbEntC := cypher.NewNode(label, matchAttrs)
	rbTagC := cypher.NewNode("tag", tag.AttrDict())
	var rbTriple *cypher.Triple
	if spec.Dir == model.DirIn {
		rbTriple = cypher.NewTriple(rbTagC, cypher.NewRel(spec.Rel, nil), cypher.PlainVarArg(rbEntC))
	} else {
		rbTriple = cypher.NewTriple(cypher.PlainVarArg(rbEntC), cypher.NewRel(spec.Rel, nil), rbTagC)
	}
	rb := cypher.NewStatement(cypher.Match(rbEntC), cypher.Create(rbTriple))
	s.push(removeRelationship, stmt, rb)
}

// addRelMember links entC to a newly-added Concept/ValueSet via MERGE,
// then emits one has_term/represents statement pair for each of its own
// Terms. Those term-link statements match the Concept/ValueSet by its own
// attributes only; their patterns do not include the
// (parent)-[rel]->(object_attr) triple.
func (s *Splitter) addRelMember(label string, matchAttrs []cypher.Attr, spec model.AttrSpec, added any) error {
	entC := cypher.NewNode(label, matchAttrs)
	valC, err := valueNode(added)
	if err != nil {
		return err
	}
	var stmt *cypher.Statement
	if spec.Dir == model.DirIn {
		stmt = cypher.NewStatement(cypher.Match(entC, valC), cypher.Merge(cypher.NewTriple(cypher.PlainVarArg(valC), cypher.NewRel(spec.Rel, nil), cypher.PlainVarArg(entC))))
	} else {
		stmt = cypher.NewStatement(cypher.Match(entC, valC), cypher.Merge(cypher.NewTriple(cypher.PlainVarArg(entC), cypher.NewRel(spec.Rel, nil), cypher.PlainVarArg(valC))))
	}
	rbEntC := cypher.NewNode(label, matchAttrs)
	rbValC, _ := valueNode(added)
	rbRel := cypher.NewRel(spec.Rel, nil)
	var rb *cypher.Statement
	if spec.Dir == model.DirIn {
		rb = cypher.NewStatement(cypher.Match(cypher.NewTriple(rbValC, rbRel, rbEntC)), cypher.Delete(cypher.RelVarArg(rbRel)))
	} else {
		rb = cypher.NewStatement(cypher.Match(cypher.NewTriple(rbEntC, rbRel, rbValC)), cypher.Delete(cypher.RelVarArg(rbRel)))
	}
	s.push(addRelationship, stmt, rb)
	s.emitTermLinks(valC, added, true)
	return nil
}

// removeRelMember is addRelMember's inverse.
func (s *Splitter) removeRelMember(label string, matchAttrs []cypher.Attr, spec model.AttrSpec, removed any) error {
	entC := cypher.NewNode(label, matchAttrs)
	valC, err := valueNode(removed)
	if err != nil {
		return err
	}
	rel := cypher.NewRel(spec.Rel, nil)
	var stmt *cypher.Statement
	if spec.Dir == model.DirIn {
		stmt = cypher.NewStatement(cypher.Match(cypher.NewTriple(valC, rel, entC)), cypher.Delete(cypher.RelVarArg(rel)))
	} else {
		stmt = cypher.NewStatement(cypher.Match(cypher.NewTriple(entC, rel, valC)), cypher.Delete(cypher.RelVarArg(rel)))
	}
	rbEntC := cypher.NewNode(label, matchAttrs)
	rbValC, _ := valueNode(removed)
	var rb *cypher.Statement
	if spec.Dir == model.DirIn {
		rb = cypher.NewStatement(cypher.Match(rbEntC, rbValC), cypher.Merge(cypher.NewTriple(cypher.PlainVarArg(rbValC), cypher.NewRel(spec.Rel, nil), cypher.PlainVarArg(rbEntC))))
	} else {
		rb = cypher.NewStatement(cypher.Match(rbEntC, rbValC), cypher.Merge(cypher.NewTriple(cypher.PlainVarArg(rbEntC), cypher.NewRel(spec.Rel, nil), cypher.PlainVarArg(rbValC))))
	}
	s.push(removeRelationship, stmt, rb)
	s.emitTermLinks(valC, removed, false)
	return nil
}

// emitTermLinks emits one long-form has_term/represents pair per Term
// owned by a ValueSet/Concept member, so adding or removing a Property's
// ValueSet (for example) also links or unlinks every Term it already
// carries instead of leaving them stranded. adding selects which half of
// each pair is the forward statement.
func (s *Splitter) emitTermLinks(containerC *cypher.GNode, v any, adding bool) {
	terms, rel, dir := containerTerms(v)
	for _, t := range sortedTermValues(terms) {
		merge, del := termLinkStatements(containerC, t, rel, dir)
		if adding {
			s.push(addRelationship, merge, del)
		} else {
			s.push(removeRelationship, del, merge)
		}
	}
}

func containerTerms(v any) (terms map[string]*model.Term, rel string, dir model.Direction) {
	switch e := v.(type) {
	case *model.ValueSet:
		return e.Terms, "has_term", model.DirOut
	case *model.Concept:
		return e.Terms, "represents", model.DirIn
	default:
		return nil, "", model.DirOut
	}
}

// sortedTermValues orders a Term map's values by (value, origin), the same
// order every other Term walk in this module uses.
func sortedTermValues(m map[string]*model.Term) []*model.Term {
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

func termLinkStatements(containerC *cypher.GNode, t *model.Term, rel string, dir model.Direction) (merge, del *cypher.Statement) {
	fwdContainerC := cypher.NewNode(containerC.Label, containerC.Attrs())
	termC := cypher.NewNode("term", t.AttrDict())
	var triple *cypher.Triple
	if dir == model.DirIn {
		triple = cypher.NewTriple(cypher.PlainVarArg(termC), cypher.NewRel(rel, nil), cypher.PlainVarArg(fwdContainerC))
	} else {
		triple = cypher.NewTriple(cypher.PlainVarArg(fwdContainerC), cypher.NewRel(rel, nil), cypher.PlainVarArg(termC))
	}
	merge = cypher.NewStatement(cypher.Match(fwdContainerC, termC), cypher.Merge(triple))

	rbContainerC := cypher.NewNode(containerC.Label, containerC.Attrs())
	rbTermC := cypher.NewNode("term", t.AttrDict())
	rbRel := cypher.NewRel(rel, nil)
	var rbTriple *cypher.Triple
	if dir == model.DirIn {
		rbTriple = cypher.NewTriple(rbTermC, rbRel, rbContainerC)
	} else {
		rbTriple = cypher.NewTriple(rbContainerC, rbRel, rbTermC)
	}
	del = cypher.NewStatement(cypher.Match(rbTriple), cypher.Delete(cypher.RelVarArg(rbRel)))
	return merge, del
}

// valueNode builds the GNode pattern for an object/collection attribute's
// value, dispatching on its concrete metamodel type.
func valueNode(v any) (*cypher.GNode, error) {
	switch e := v.(type) {
	case *model.Concept:
		return cypher.NewNode("concept", e.AttrDict()), nil
	case *model.ValueSet:
		return cypher.NewNode("value_set", e.AttrDict()), nil
	case *model.Term:
		return cypher.NewNode("term", e.AttrDict()), nil
	case *model.Tag:
		return cypher.NewNode("tag", e.AttrDict()), nil
	default:
		return nil, changelog.NewConversionError("value_node", fmt.Sprintf("%T", v), changelog.ErrUnknownEntityType)
	}
}
