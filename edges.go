package neoframe

import (
	"fmt"

	"go.uber.org/zap"
)

// DeclareRelationship projects a relationship between two declared node
// types.
//
// Rows are joined positionally: for every row i of the table the source
// identity, the attribute payload and the target identity of row i form one
// candidate record. Candidates with a null in any of the three parts are then
// dropped. The unfiltered identity columns of both endpoints are used, never
// their node batches, so row alignment with the attribute columns holds.
// Surviving records keep the table's row order.
//
// It fails with ErrUnknownNodeType when either label is undeclared and, under
// RedeclareError, with ErrDuplicateRelationship when the same
// (source, target, name) triple was already declared. On error the registry
// is left unchanged.
func (e *Engine) DeclareRelationship(sourceLabel, targetLabel, name string, attributeColumns ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	typ := RelationshipType{
		SourceLabel:      sourceLabel,
		TargetLabel:      targetLabel,
		Name:             name,
		AttributeColumns: append([]string(nil), attributeColumns...),
	}
	if _, exists := e.reg.rels[typ.Key()]; exists && e.redeclare == RedeclareError {
		return fmt.Errorf("%w: %s", ErrDuplicateRelationship, typ.Key())
	}
	entry, err := e.projectRelationship(typ, e.reg.nodes)
	if err != nil {
		return err
	}

	_, existed := e.reg.rels[typ.Key()]
	e.reg.putRel(entry)

	e.logger.Debug("declared relationship",
		zap.Stringer("relationship", typ.Key()),
		zap.Int("records", len(entry.batch)),
		zap.Bool("replaced", existed))
	return nil
}

// projectRelationship builds the registry entry of typ against the node
// entries in nodes without touching the registry.
func (e *Engine) projectRelationship(typ RelationshipType, nodes map[string]*nodeEntry) (*relEntry, error) {
	if typ.Name == "" || typ.SourceLabel == "" || typ.TargetLabel == "" {
		return nil, fmt.Errorf("%w: relationship needs source, target and name", ErrInvalidDeclaration)
	}
	src, ok := nodes[typ.SourceLabel]
	if !ok {
		return nil, fmt.Errorf("%w: %s (source of %s)", ErrUnknownNodeType, typ.SourceLabel, typ.Name)
	}
	dst, ok := nodes[typ.TargetLabel]
	if !ok {
		return nil, fmt.Errorf("%w: %s (target of %s)", ErrUnknownNodeType, typ.TargetLabel, typ.Name)
	}
	if err := checkColumnList("", typ.AttributeColumns); err != nil {
		return nil, fmt.Errorf("relationship %s: %w", typ.Key(), err)
	}

	payloads, err := e.edgePayloads(typ.AttributeColumns)
	if err != nil {
		return nil, fmt.Errorf("relationship %s: %w", typ.Key(), err)
	}
	if len(src.identities) != len(payloads) || len(dst.identities) != len(payloads) {
		return nil, fmt.Errorf("%w: relationship %s joins %d source, %d payload and %d target rows",
			ErrAlignment, typ.Key(), len(src.identities), len(payloads), len(dst.identities))
	}

	batch := make([]EdgeRecord, 0, len(payloads))
	for i := range payloads {
		rec := EdgeRecord{Source: src.identities[i], Properties: payloads[i], Target: dst.identities[i]}
		if !rec.complete() {
			continue
		}
		batch = append(batch, rec)
	}

	return &relEntry{
		typ:   typ,
		start: NodeKey{Label: src.typ.Label, Column: src.typ.IdentityColumn},
		end:   NodeKey{Label: dst.typ.Label, Column: dst.typ.IdentityColumn},
		batch: batch,
	}, nil
}

// edgePayloads materialises one attribute map per table row.
func (e *Engine) edgePayloads(columns []string) ([]map[string]Value, error) {
	cols := make([][]Value, len(columns))
	for i, c := range columns {
		var err error
		if cols[i], err = e.table.Column(c); err != nil {
			return nil, err
		}
	}

	rows := e.table.RowCount()
	payloads := make([]map[string]Value, rows)
	for row := 0; row < rows; row++ {
		p := make(map[string]Value, len(columns))
		for i, c := range columns {
			p[c] = cols[i][row]
		}
		if len(p) != len(columns) {
			return nil, fmt.Errorf("%w: payload for row %d has %d of %d attributes",
				ErrAlignment, row, len(p), len(columns))
		}
		payloads[row] = p
	}
	return payloads, nil
}

func (r EdgeRecord) complete() bool {
	if r.Source.IsNull() || r.Target.IsNull() {
		return false
	}
	for _, v := range r.Properties {
		if v.IsNull() {
			return false
		}
	}
	return true
}
