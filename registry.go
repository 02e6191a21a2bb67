package neoframe

import (
	"fmt"
)

// NodeType declares a category of graph vertex projected from a table.
type NodeType struct {
	Label            string
	IdentityColumn   string
	AttributeColumns []string
}

// KeySchema is the ordered column list the store merges a node with:
// the identity column first, then the attribute columns.
func (n NodeType) KeySchema() []string {
	return append([]string{n.IdentityColumn}, n.AttributeColumns...)
}

// NodeRecord is one projected node: the identity value followed by one value
// per attribute column, aligned to the node type's key schema.
type NodeRecord []Value

// Identity returns the identity value of the record.
func (r NodeRecord) Identity() Value {
	if len(r) == 0 {
		return Null()
	}
	return r[0]
}

// RelationshipKey identifies a declared relationship.
type RelationshipKey struct {
	Source string
	Target string
	Name   string
}

// String renders k as (source)-[name]->(target).
func (k RelationshipKey) String() string {
	return fmt.Sprintf("(%s)-[%s]->(%s)", k.Source, k.Name, k.Target)
}

// RelationshipType declares a directed connection between two node types.
type RelationshipType struct {
	SourceLabel      string
	TargetLabel      string
	Name             string
	AttributeColumns []string
}

// Key returns the registry key of r.
func (r RelationshipType) Key() RelationshipKey {
	return RelationshipKey{Source: r.SourceLabel, Target: r.TargetLabel, Name: r.Name}
}

// NodeKey is a (label, property) pair the store matches an endpoint node by.
type NodeKey struct {
	Label  string `json:"label" yaml:"label"`
	Column string `json:"column" yaml:"column"`
}

// EdgeRecord is one projected relationship row.
type EdgeRecord struct {
	Source     Value
	Properties map[string]Value
	Target     Value
}

// registry holds everything declared for one projection run. It is mutated
// only by the declare operations and read by the merge coordinator.
type registry struct {
	nodeOrder []string
	nodes     map[string]*nodeEntry

	relOrder []RelationshipKey
	rels     map[RelationshipKey]*relEntry
}

type nodeEntry struct {
	typ NodeType
	// identities is the unfiltered identity column, row-aligned with the
	// source, kept for edge projection.
	identities []Value
	keySchema  []string
	batch      []NodeRecord
}

type relEntry struct {
	typ   RelationshipType
	start NodeKey
	end   NodeKey
	batch []EdgeRecord
}

func newRegistry() *registry {
	return &registry{
		nodes: make(map[string]*nodeEntry),
		rels:  make(map[RelationshipKey]*relEntry),
	}
}

// putNode stores e, keeping the original declaration position on replace.
func (r *registry) putNode(e *nodeEntry) {
	if _, ok := r.nodes[e.typ.Label]; !ok {
		r.nodeOrder = append(r.nodeOrder, e.typ.Label)
	}
	r.nodes[e.typ.Label] = e
}

func (r *registry) putRel(e *relEntry) {
	k := e.typ.Key()
	if _, ok := r.rels[k]; !ok {
		r.relOrder = append(r.relOrder, k)
	}
	r.rels[k] = e
}
