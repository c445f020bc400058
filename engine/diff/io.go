package diff

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bentomdb/graphchangelog/engine/model"
)

// Doc is the JSON wire format a Diff is read from on disk. It covers
// additions and removals of every entity kind; attribute-level changes
// (Diff's Changed maps) reference arbitrary typed values - Term, Concept,
// ValueSet, Tag, or a bare scalar - that don't round-trip through JSON
// without a schema, so a Doc only ever produces add/remove sections. Build
// a Diff with Changed entries by hand when that's needed.
type Doc struct {
	Model string           `json:"model"`
	Nodes DiffSectionNodes `json:"nodes"`
	Edges DiffSectionEdges `json:"edges"`
	Props DiffSectionProps `json:"props"`
	Terms DiffSectionTerms `json:"terms"`
}

// DiffSectionNodes is the added/removed node handles of a Doc's node
// section.
type DiffSectionNodes struct {
	Added   []model.NodeDoc `json:"added,omitempty"`
	Removed []model.NodeDoc `json:"removed,omitempty"`
}

// DiffSectionEdges is the added/removed edges of a Doc's edge section.
type DiffSectionEdges struct {
	Added   []model.EdgeDoc `json:"added,omitempty"`
	Removed []model.EdgeDoc `json:"removed,omitempty"`
}

// DiffSectionProps is the added/removed properties of a Doc's property
// section.
type DiffSectionProps struct {
	Added   []model.PropDoc `json:"added,omitempty"`
	Removed []model.PropDoc `json:"removed,omitempty"`
}

// DiffSectionTerms is the added/removed terms of a Doc's term section.
type DiffSectionTerms struct {
	Added   []model.TermDoc `json:"added,omitempty"`
	Removed []model.TermDoc `json:"removed,omitempty"`
}

// LoadDoc reads and parses a Doc from path.
func LoadDoc(path string) (*Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("diff: read doc: %w", err)
	}
	var d Doc
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("diff: parse doc: %w", err)
	}
	return &d, nil
}

// ToDiff resolves d into a Diff. Nodes referenced by an edge must appear in
// nodes (in either added or removed) or ToDiff returns an error.
func (d *Doc) ToDiff() (Diff, error) {
	nodesByHandle := make(map[string]*model.Node)

	diff := Diff{
		Model: d.Model,
		Nodes: NodeDiff{Added: map[string]*model.Node{}, Removed: map[string]*model.Node{}},
		Edges: EdgeDiff{Added: map[model.EdgeKey]*model.Edge{}, Removed: map[model.EdgeKey]*model.Edge{}},
		Props: PropDiff{Added: map[model.PropKey]*model.Property{}, Removed: map[model.PropKey]*model.Property{}},
		Terms: TermDiff{Added: map[model.TermKey]*model.Term{}, Removed: map[model.TermKey]*model.Term{}},
	}

	for _, nd := range d.Nodes.Added {
		n := nodeFromDoc(nd, d.Model)
		diff.Nodes.Added[n.Handle] = n
		nodesByHandle[n.Handle] = n
	}
	for _, nd := range d.Nodes.Removed {
		n := nodeFromDoc(nd, d.Model)
		diff.Nodes.Removed[n.Handle] = n
		nodesByHandle[n.Handle] = n
	}

	for _, td := range d.Terms.Added {
		t := &model.Term{Value: td.Value, Origin: td.Origin, Code: td.Code}
		diff.Terms.Added[t.Key()] = t
	}
	for _, td := range d.Terms.Removed {
		t := &model.Term{Value: td.Value, Origin: td.Origin, Code: td.Code}
		diff.Terms.Removed[t.Key()] = t
	}

	for _, pd := range d.Props.Added {
		p := &model.Property{Handle: pd.Handle, ParentHandle: pd.ParentHandle, Model: d.Model, Nanoid: pd.Nanoid}
		diff.Props.Added[p.Key()] = p
	}
	for _, pd := range d.Props.Removed {
		p := &model.Property{Handle: pd.Handle, ParentHandle: pd.ParentHandle, Model: d.Model, Nanoid: pd.Nanoid}
		diff.Props.Removed[p.Key()] = p
	}

	resolveEdge := func(ed model.EdgeDoc) (*model.Edge, error) {
		src, ok := nodesByHandle[ed.Src]
		if !ok {
			return nil, fmt.Errorf("diff: edge %s references unknown src node %q", ed.Handle, ed.Src)
		}
		dst, ok := nodesByHandle[ed.Dst]
		if !ok {
			return nil, fmt.Errorf("diff: edge %s references unknown dst node %q", ed.Handle, ed.Dst)
		}
		return &model.Edge{Handle: ed.Handle, Model: d.Model, Nanoid: ed.Nanoid, Src: src, Dst: dst}, nil
	}
	for _, ed := range d.Edges.Added {
		e, err := resolveEdge(ed)
		if err != nil {
			return Diff{}, err
		}
		diff.Edges.Added[e.Key()] = e
	}
	for _, ed := range d.Edges.Removed {
		e, err := resolveEdge(ed)
		if err != nil {
			return Diff{}, err
		}
		diff.Edges.Removed[e.Key()] = e
	}

	return diff, nil
}

func nodeFromDoc(nd model.NodeDoc, modelHandle string) *model.Node {
	return &model.Node{Handle: nd.Handle, Model: modelHandle, Nanoid: nd.Nanoid}
}
