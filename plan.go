package neoframe

// Plan is the ordered list of store statements a Merge would issue.
type Plan struct {
	Constraints   []PlannedConstraint   `json:"constraints" yaml:"constraints"`
	Nodes         []PlannedNodeMerge    `json:"nodes" yaml:"nodes"`
	Relationships []PlannedRelationship `json:"relationships" yaml:"relationships"`
}

// PlannedConstraint is one uniqueness constraint statement.
type PlannedConstraint struct {
	Label  string `json:"label" yaml:"label"`
	Column string `json:"column" yaml:"column"`
	Cypher string `json:"cypher" yaml:"cypher"`
}

// PlannedNodeMerge is the merge of one node type. Records counts the
// projected records, sent in batches of the store's batch size.
type PlannedNodeMerge struct {
	Label     string   `json:"label" yaml:"label"`
	KeySchema []string `json:"key_schema" yaml:"key_schema"`
	Records   int      `json:"records" yaml:"records"`
	Cypher    string   `json:"cypher" yaml:"cypher"`
}

// PlannedRelationship is the merge of one relationship between the nodes
// matched by Start and End.
type PlannedRelationship struct {
	Name    string  `json:"name" yaml:"name"`
	Start   NodeKey `json:"start" yaml:"start"`
	End     NodeKey `json:"end" yaml:"end"`
	Records int     `json:"records" yaml:"records"`
	Cypher  string  `json:"cypher" yaml:"cypher"`
}

// Plan describes the run Merge would perform, without contacting the store.
func (e *Engine) Plan() Plan {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var p Plan
	for _, d := range e.constraintsLocked() {
		p.Constraints = append(p.Constraints, PlannedConstraint{Label: d.Label, Column: d.Column, Cypher: d.Cypher()})
	}
	for _, l := range e.reg.nodeOrder {
		n := e.reg.nodes[l]
		p.Nodes = append(p.Nodes, PlannedNodeMerge{
			Label:     l,
			KeySchema: append([]string(nil), n.keySchema...),
			Records:   len(n.batch),
			Cypher:    MergeNodesCypher(l, n.keySchema),
		})
	}
	for _, k := range e.reg.relOrder {
		r := e.reg.rels[k]
		p.Relationships = append(p.Relationships, PlannedRelationship{
			Name:    r.typ.Name,
			Start:   r.start,
			End:     r.end,
			Records: len(r.batch),
			Cypher:  MergeRelationshipsCypher(r.typ.Name, r.start, r.end),
		})
	}
	return p
}
