package neoframe

import (
	"fmt"

	"go.uber.org/zap"
)

// DeclareNode projects a node type from the table.
//
// The full identity column is retained unfiltered for later relationship
// projection. The node batch holds one record per row with a non-null
// identity; null attribute values inside surviving rows are kept as null and
// left to the store to persist.
//
// Redeclaring a label replaces the previous declaration (batch and key
// schema) under RedeclareReplace, and fails with ErrDuplicateNodeType under
// RedeclareError. On replace, every relationship already declared with the
// label as an endpoint is projected again against the new identity column.
// On error the registry is left unchanged.
//
// Parameters:
//   - label: The node label, e.g. "Person".
//   - identityColumn: The column holding the node identity.
//   - attributeColumns: Columns copied onto the node as properties, in order.
func (e *Engine) DeclareNode(label, identityColumn string, attributeColumns ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	typ := NodeType{
		Label:            label,
		IdentityColumn:   identityColumn,
		AttributeColumns: append([]string(nil), attributeColumns...),
	}
	entry, err := e.projectNode(typ)
	if err != nil {
		return err
	}

	_, existed := e.reg.nodes[label]
	var dependents []*relEntry
	if existed {
		if dependents, err = e.reprojectDependents(entry); err != nil {
			return err
		}
	}
	e.reg.putNode(entry)
	for _, r := range dependents {
		e.reg.putRel(r)
	}

	e.logger.Debug("declared node type",
		zap.String("label", label),
		zap.Strings("key_schema", entry.keySchema),
		zap.Int("records", len(entry.batch)),
		zap.Bool("replaced", existed),
		zap.Int("relationships_reprojected", len(dependents)))
	return nil
}

// reprojectDependents rebuilds every declared relationship that has
// replacement's label as an endpoint, as if replacement were registered.
func (e *Engine) reprojectDependents(replacement *nodeEntry) ([]*relEntry, error) {
	label := replacement.typ.Label
	nodes := make(map[string]*nodeEntry, len(e.reg.nodes))
	for l, n := range e.reg.nodes {
		nodes[l] = n
	}
	nodes[label] = replacement

	var out []*relEntry
	for _, k := range e.reg.relOrder {
		r := e.reg.rels[k]
		if r.typ.SourceLabel != label && r.typ.TargetLabel != label {
			continue
		}
		entry, err := e.projectRelationship(r.typ, nodes)
		if err != nil {
			return nil, fmt.Errorf("node %s: reproject %s: %w", label, k, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// projectNode validates typ and builds its registry entry without touching
// the registry.
func (e *Engine) projectNode(typ NodeType) (*nodeEntry, error) {
	if typ.Label == "" || typ.IdentityColumn == "" {
		return nil, fmt.Errorf("%w: node type needs a label and an identity column", ErrInvalidDeclaration)
	}
	if err := checkColumnList(typ.IdentityColumn, typ.AttributeColumns); err != nil {
		return nil, fmt.Errorf("node %s: %w", typ.Label, err)
	}
	if _, exists := e.reg.nodes[typ.Label]; exists && e.redeclare == RedeclareError {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNodeType, typ.Label)
	}

	identities, err := e.table.Column(typ.IdentityColumn)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", typ.Label, err)
	}
	attrs := make([][]Value, len(typ.AttributeColumns))
	for i, c := range typ.AttributeColumns {
		if attrs[i], err = e.table.Column(c); err != nil {
			return nil, fmt.Errorf("node %s: %w", typ.Label, err)
		}
	}

	keySchema := typ.KeySchema()
	batch := make([]NodeRecord, 0, len(identities))
	for row, id := range identities {
		if id.IsNull() {
			continue
		}
		rec := make(NodeRecord, 0, len(keySchema))
		rec = append(rec, id)
		for _, col := range attrs {
			rec = append(rec, col[row])
		}
		if len(rec) != len(keySchema) {
			return nil, fmt.Errorf("%w: node %s row %d has %d values for key schema of %d",
				ErrAlignment, typ.Label, row, len(rec), len(keySchema))
		}
		batch = append(batch, rec)
	}

	return &nodeEntry{
		typ:        typ,
		identities: identities,
		keySchema:  keySchema,
		batch:      batch,
	}, nil
}

// checkColumnList rejects empty, repeated or identity-shadowing attribute columns.
func checkColumnList(identity string, attrs []string) error {
	seen := make(map[string]bool, len(attrs)+1)
	if identity != "" {
		seen[identity] = true
	}
	for _, c := range attrs {
		if c == "" {
			return fmt.Errorf("%w: empty attribute column", ErrInvalidDeclaration)
		}
		if seen[c] {
			return fmt.Errorf("%w: column %q listed twice", ErrInvalidDeclaration, c)
		}
		seen[c] = true
	}
	return nil
}
