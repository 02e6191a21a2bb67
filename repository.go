package neoframe

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

// DefaultBatchSize is the number of records sent per UNWIND statement.
const DefaultBatchSize = 1000

// Neo4jStore implements Store on top of a DBRunner. Every write is a MERGE
// keyed on the node identity, so resubmitting a run is idempotent.
type Neo4jStore struct {
	runner    DBRunner
	batchSize int
}

// NewNeo4jStore creates a store that sends at most batchSize records per
// statement. A batchSize below 1 selects DefaultBatchSize.
func NewNeo4jStore(runner DBRunner, batchSize int) *Neo4jStore {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Neo4jStore{runner: runner, batchSize: batchSize}
}

// ApplyConstraint creates the uniqueness constraint on label(column) if it
// does not exist yet.
func (s *Neo4jStore) ApplyConstraint(ctx context.Context, label, column string) error {
	q := ConstraintDirective{Label: label, Column: column}.Cypher()
	if _, err := s.runner.Run(ctx, q, nil); err != nil {
		return err
	}
	return nil
}

// MergeNodes merges records into label nodes in chunks of the configured
// batch size.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - label: The node label.
//   - records: Node records aligned to keySchema.
//   - mergeKey: The property the MERGE matches on; it must be keySchema[0].
//   - keySchema: The identity column followed by the attribute columns.
//
// Returns:
//
//	The number of nodes the store reported as merged, or the first error. Chunks
//	sent before a failure stay merged.
func (s *Neo4jStore) MergeNodes(ctx context.Context, label string, records []NodeRecord, mergeKey NodeKey, keySchema []string) (int64, error) {
	if len(keySchema) == 0 || keySchema[0] != mergeKey.Column {
		return 0, fmt.Errorf("%w: merge key %q is not the first key schema column", ErrInvalidDeclaration, mergeKey.Column)
	}
	for i, rec := range records {
		if len(rec) != len(keySchema) {
			return 0, fmt.Errorf("%w: record %d has %d values for key schema of %d",
				ErrAlignment, i, len(rec), len(keySchema))
		}
	}

	query := MergeNodesCypher(label, keySchema)
	var total int64
	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))
		n, err := s.runMerge(ctx, query, nodeRows(records[start:end]))
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// MergeRelationships merges records into name relationships in chunks of the
// configured batch size. Endpoints are matched by start and end; rows whose
// endpoints do not exist are not created.
func (s *Neo4jStore) MergeRelationships(ctx context.Context, name string, records []EdgeRecord, start, end NodeKey) (int64, error) {
	query := MergeRelationshipsCypher(name, start, end)
	var total int64
	for from := 0; from < len(records); from += s.batchSize {
		to := min(from+s.batchSize, len(records))
		n, err := s.runMerge(ctx, query, edgeRows(records[from:to]))
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *Neo4jStore) runMerge(ctx context.Context, query string, rows []any) (int64, error) {
	result, err := s.runner.Run(ctx, query, map[string]any{"rows": rows})
	if err != nil {
		return 0, err
	}
	return singleCount(result, "merged")
}

// CountNodes returns how many nodes carry label.
func (s *Neo4jStore) CountNodes(ctx context.Context, label string) (int64, error) {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", label)).
		Return("count(n) AS total").
		Build()
	if err != nil {
		return 0, fmt.Errorf("could not build query: %w", err)
	}
	result, err := s.runner.Run(ctx, query, params)
	if err != nil {
		return 0, err
	}
	return singleCount(result, "total")
}

// CountRelationships returns how many relationships of type name exist
// between start and end nodes.
func (s *Neo4jStore) CountRelationships(ctx context.Context, name string, start, end NodeKey) (int64, error) {
	query := fmt.Sprintf("MATCH (:%s)-[r:%s]->(:%s) RETURN count(r) AS total",
		QuoteIdentifier(start.Label), QuoteIdentifier(name), QuoteIdentifier(end.Label))
	result, err := s.runner.Run(ctx, query, nil)
	if err != nil {
		return 0, err
	}
	return singleCount(result, "total")
}

// singleCount reads an integer column from a one-row result.
func singleCount(result *neo4j.EagerResult, key string) (int64, error) {
	if result == nil || len(result.Records) == 0 {
		return 0, ErrNotFound
	}
	if len(result.Records) > 1 {
		return 0, fmt.Errorf("expected 1 record but found %d", len(result.Records))
	}

	v, ok := result.Records[0].Get(key)
	if !ok {
		return 0, fmt.Errorf("could not find return value '%s' in query result", key)
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("return value '%s' is %T, not an integer", key, v)
	}
	return n, nil
}

var _ Store = (*Neo4jStore)(nil)
