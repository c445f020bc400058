package model

// AttrClass categorizes how a changed attribute must be translated into
// Cypher: a plain SET/REMOVE on a scalar property, a single related entity
// reached by one relationship, or a keyed collection of related entities.
type AttrClass int

const (
	// SimpleAttr is a scalar node/edge/property field (nanoid, commit, ...).
	SimpleAttr AttrClass = iota
	// ObjectAttr is a single related entity (concept, value_set).
	ObjectAttr
	// CollectionAttr is a keyed collection of related entities (tags, props, terms).
	CollectionAttr
)

// Direction records which side of a relationship owns the pointer: Out
// means (entity)-[rel]->(value), In means (value)-[rel]->(entity). This
// mirrors the original mapspec()[attr].rel string's leading '<' or '>'.
type Direction int

const (
	// DirOut renders (entity)-[rel]->(value), the default.
	DirOut Direction = iota
	// DirIn renders (value)-[rel]->(entity), used for Term.represents-style back-references.
	DirIn
)

// AttrSpec describes one object/collection-valued attribute of an entity
// kind: its class, the relationship type connecting entity to value, and
// its direction.
type AttrSpec struct {
	Name  string
	Class AttrClass
	Rel   string
	Dir   Direction
}

// mapSpecs holds the AttrSpec table per entity kind, keyed by the kind's
// Cypher label. Simple attributes (nanoid, commit, url, code, ...) are not
// listed: any attribute absent from this table is treated as SimpleAttr.
var mapSpecs = map[string][]AttrSpec{
	"node": {
		{Name: "concept", Class: ObjectAttr, Rel: "has_concept", Dir: DirOut},
		{Name: "tags", Class: CollectionAttr, Rel: "has_tag", Dir: DirOut},
	},
	"relationship": {
		{Name: "concept", Class: ObjectAttr, Rel: "has_concept", Dir: DirOut},
		{Name: "props", Class: CollectionAttr, Rel: "has_property", Dir: DirOut},
		{Name: "tags", Class: CollectionAttr, Rel: "has_tag", Dir: DirOut},
	},
	"property": {
		{Name: "value_set", Class: ObjectAttr, Rel: "has_value_set", Dir: DirOut},
		{Name: "concept", Class: ObjectAttr, Rel: "has_concept", Dir: DirOut},
		{Name: "tags", Class: CollectionAttr, Rel: "has_tag", Dir: DirOut},
	},
	"value_set": {
		{Name: "terms", Class: CollectionAttr, Rel: "has_term", Dir: DirOut},
	},
	"concept": {
		{Name: "terms", Class: CollectionAttr, Rel: "represents", Dir: DirIn},
	},
}

// MapSpecFor returns the AttrSpec table for the given Cypher label.
func MapSpecFor(label string) []AttrSpec {
	return mapSpecs[label]
}

// AttrSpecFor looks up a single attribute's spec by entity label and
// attribute name, reporting whether it's object/collection-valued at all.
func AttrSpecFor(label, attr string) (AttrSpec, bool) {
	for _, spec := range mapSpecs[label] {
		if spec.Name == attr {
			return spec, true
		}
	}
	return AttrSpec{}, false
}
