package store

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/bentomdb/graphchangelog/engine/model"
	"github.com/bentomdb/graphchangelog/pkg/fn"
)

// ModelSource reads an existing model's node/property/edge/term subgraph
// back out of Neo4j into a model.Model, the mirror of what Applier writes.
// It follows the same driver/session-per-call idiom as Applier.
type ModelSource struct {
	driver neo4j.DriverWithContext
}

// NewModelSource returns a ModelSource bound to driver.
func NewModelSource(driver neo4j.DriverWithContext) *ModelSource {
	return &ModelSource{driver: driver}
}

// LoadModel reads every node, property and edge stamped with the given
// model handle, plus every term in the graph (terms carry no model
// handle), into a model.Model. Nodes, terms and properties have
// no read-side dependency on one another, so they run as three concurrent
// sessions via fn.FanOutResult; edges reference the node map by handle and
// so wait for it, running last on its own session.
func (s *ModelSource) LoadModel(ctx context.Context, handle string) (*model.Model, error) {
	m := &model.Model{
		Handle: handle,
		Nodes:  make(map[string]*model.Node),
		Edges:  make(map[model.EdgeKey]*model.Edge),
		Props:  make(map[model.PropKey]*model.Property),
		Terms:  make(map[model.TermKey]*model.Term),
	}

	loadVia := func(load func(context.Context, neo4j.SessionWithContext) error) func() fn.Result[any] {
		return func() fn.Result[any] {
			sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
			defer sess.Close(ctx)
			return fn.FromPair[any](nil, load(ctx, sess))
		}
	}

	result := fn.FanOutResult(
		loadVia(func(ctx context.Context, sess neo4j.SessionWithContext) error { return s.loadNodes(ctx, sess, handle, m) }),
		loadVia(func(ctx context.Context, sess neo4j.SessionWithContext) error { return s.loadTerms(ctx, sess, m) }),
		loadVia(func(ctx context.Context, sess neo4j.SessionWithContext) error { return s.loadProps(ctx, sess, handle, m) }),
	)
	if _, err := result.Unwrap(); err != nil {
		return nil, err
	}

	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)
	if err := s.loadEdges(ctx, sess, handle, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ModelSource) loadNodes(ctx context.Context, sess neo4j.SessionWithContext, handle string, m *model.Model) error {
	result, err := sess.Run(ctx, `MATCH (n:node {model: $model}) RETURN n`, map[string]any{"model": handle})
	if err != nil {
		return fmt.Errorf("store: load nodes: %w", err)
	}
	for result.Next(ctx) {
		n, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "n")
		if err != nil {
			return fmt.Errorf("store: read node record: %w", err)
		}
		node := &model.Node{
			Handle: strProp(n.Props, "handle"),
			Model:  handle,
			Nanoid: strProp(n.Props, "nanoid"),
		}
		m.Nodes[node.Handle] = node
	}
	return result.Err()
}

func (s *ModelSource) loadTerms(ctx context.Context, sess neo4j.SessionWithContext, m *model.Model) error {
	result, err := sess.Run(ctx, `MATCH (t:term) RETURN t`, nil)
	if err != nil {
		return fmt.Errorf("store: load terms: %w", err)
	}
	for result.Next(ctx) {
		t, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "t")
		if err != nil {
			return fmt.Errorf("store: read term record: %w", err)
		}
		term := &model.Term{
			Value:  strProp(t.Props, "value"),
			Origin: strProp(t.Props, "origin_name"),
		}
		m.Terms[term.Key()] = term
	}
	return result.Err()
}

func (s *ModelSource) loadProps(ctx context.Context, sess neo4j.SessionWithContext, handle string, m *model.Model) error {
	result, err := sess.Run(ctx, `
		MATCH (parent {model: $model})-[:has_property]->(p:property {model: $model})
		RETURN p, parent.handle AS parent_handle`, map[string]any{"model": handle})
	if err != nil {
		return fmt.Errorf("store: load properties: %w", err)
	}
	for result.Next(ctx) {
		rec := result.Record()
		p, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "p")
		if err != nil {
			return fmt.Errorf("store: read property record: %w", err)
		}
		parentHandle, _, err := neo4j.GetRecordValue[string](rec, "parent_handle")
		if err != nil {
			return fmt.Errorf("store: read property parent handle: %w", err)
		}
		prop := &model.Property{
			Handle:       strProp(p.Props, "handle"),
			ParentHandle: parentHandle,
			Model:        handle,
			Nanoid:       strProp(p.Props, "nanoid"),
		}
		m.Props[prop.Key()] = prop
	}
	return result.Err()
}

func (s *ModelSource) loadEdges(ctx context.Context, sess neo4j.SessionWithContext, handle string, m *model.Model) error {
	result, err := sess.Run(ctx, `
		MATCH (e:relationship {model: $model})-[:has_src]->(src:node),
		      (e)-[:has_dst]->(dst:node)
		RETURN e, src.handle AS src_handle, dst.handle AS dst_handle`, map[string]any{"model": handle})
	if err != nil {
		return fmt.Errorf("store: load edges: %w", err)
	}
	for result.Next(ctx) {
		rec := result.Record()
		e, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "e")
		if err != nil {
			return fmt.Errorf("store: read edge record: %w", err)
		}
		srcHandle, _, err := neo4j.GetRecordValue[string](rec, "src_handle")
		if err != nil {
			return fmt.Errorf("store: read edge src handle: %w", err)
		}
		dstHandle, _, err := neo4j.GetRecordValue[string](rec, "dst_handle")
		if err != nil {
			return fmt.Errorf("store: read edge dst handle: %w", err)
		}
		src, ok := m.Nodes[srcHandle]
		if !ok {
			return fmt.Errorf("store: edge references unknown src node %q", srcHandle)
		}
		dst, ok := m.Nodes[dstHandle]
		if !ok {
			return fmt.Errorf("store: edge references unknown dst node %q", dstHandle)
		}
		edge := &model.Edge{
			Handle: strProp(e.Props, "handle"),
			Model:  handle,
			Nanoid: strProp(e.Props, "nanoid"),
			Src:    src,
			Dst:    dst,
		}
		m.Edges[edge.Key()] = edge
	}
	return result.Err()
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
