package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Doc is the JSON wire format a Model is read from on disk: flat slices
// referencing each other by handle, instead of the in-memory Model's keyed
// maps and pointer graph. cmd/changelog-gen reads a Doc and resolves it
// into a Model before handing it to the mapper.
type Doc struct {
	Handle string       `json:"handle"`
	Commit string       `json:"commit,omitempty"`
	Nodes  []NodeDoc    `json:"nodes"`
	Props  []PropDoc    `json:"props"`
	Edges  []EdgeDoc    `json:"edges"`
	Terms  []TermDoc    `json:"terms"`
}

// NodeDoc is one node entry in a Doc.
type NodeDoc struct {
	Handle string `json:"handle"`
	Nanoid string `json:"nanoid,omitempty"`
}

// PropDoc is one property entry in a Doc. ParentHandle names the node or
// edge handle the property belongs to. ValueSetHandle, if set, gives the
// property a value set with that handle; ValueSetTerms names the terms (by
// value, each of which must appear in the Doc's Terms) belonging to it.
type PropDoc struct {
	Handle          string   `json:"handle"`
	ParentHandle    string   `json:"parent_handle"`
	Nanoid          string   `json:"nanoid,omitempty"`
	ValueSetHandle  string   `json:"value_set_handle,omitempty"`
	ValueSetTerms   []string `json:"value_set_terms,omitempty"`
}

// EdgeDoc is one relationship entry in a Doc, naming its endpoints by node
// handle.
type EdgeDoc struct {
	Handle string `json:"handle"`
	Src    string `json:"src"`
	Dst    string `json:"dst"`
	Nanoid string `json:"nanoid,omitempty"`
}

// TermDoc is one term entry in a Doc.
type TermDoc struct {
	Value  string `json:"value"`
	Origin string `json:"origin"`
	Code   string `json:"code,omitempty"`
}

// LoadDoc reads and parses a Doc from path.
func LoadDoc(path string) (*Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model: read doc: %w", err)
	}
	var d Doc
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("model: parse doc: %w", err)
	}
	return &d, nil
}

// ToModel resolves d's flat, handle-referencing entries into a Model with
// the keyed maps and pointer links the mapper and diff splitter expect.
// Concept/Tag linkage and value-set term membership beyond ValueSetTerms are
// out of scope for this wire format; build a Model by hand for those.
func (d *Doc) ToModel() (*Model, error) {
	m := &Model{
		Handle: d.Handle,
		Commit: d.Commit,
		Nodes:  make(map[string]*Node, len(d.Nodes)),
		Edges:  make(map[EdgeKey]*Edge, len(d.Edges)),
		Props:  make(map[PropKey]*Property, len(d.Props)),
		Terms:  make(map[TermKey]*Term, len(d.Terms)),
	}

	terms := make(map[string]*Term, len(d.Terms))
	for _, td := range d.Terms {
		t := &Term{Value: td.Value, Origin: td.Origin, Code: td.Code, Commit: d.Commit}
		terms[t.Value] = t
		m.Terms[t.Key()] = t
	}

	for _, nd := range d.Nodes {
		m.Nodes[nd.Handle] = &Node{Handle: nd.Handle, Model: d.Handle, Nanoid: nd.Nanoid, Commit: d.Commit}
	}

	for _, pd := range d.Props {
		p := &Property{Handle: pd.Handle, ParentHandle: pd.ParentHandle, Model: d.Handle, Nanoid: pd.Nanoid, Commit: d.Commit}
		if pd.ValueSetHandle != "" {
			vs := &ValueSet{Handle: pd.ValueSetHandle, Commit: d.Commit, Terms: make(map[string]*Term, len(pd.ValueSetTerms))}
			for _, v := range pd.ValueSetTerms {
				t, ok := terms[v]
				if !ok {
					return nil, fmt.Errorf("model: property %s references unknown term %q", pd.Handle, v)
				}
				vs.Terms[v] = t
			}
			p.ValueSet = vs
		}
		m.Props[p.Key()] = p
	}

	for _, ed := range d.Edges {
		src, ok := m.Nodes[ed.Src]
		if !ok {
			return nil, fmt.Errorf("model: edge %s references unknown src node %q", ed.Handle, ed.Src)
		}
		dst, ok := m.Nodes[ed.Dst]
		if !ok {
			return nil, fmt.Errorf("model: edge %s references unknown dst node %q", ed.Handle, ed.Dst)
		}
		e := &Edge{Handle: ed.Handle, Model: d.Handle, Nanoid: ed.Nanoid, Commit: d.Commit, Src: src, Dst: dst}
		m.Edges[e.Key()] = e
	}

	return m, nil
}
