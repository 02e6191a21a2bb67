package neoframe

import "context"

// Store is the property-graph store the engine loads into. Every method must
// have upsert semantics so that a whole run can be resubmitted safely.
// Timeouts and retries are the store's concern.
type Store interface {
	// ApplyConstraint ensures a uniqueness constraint on label(column)
	// exists. It must succeed when the constraint is already present.
	ApplyConstraint(ctx context.Context, label, column string) error

	// MergeNodes merges records into nodes of label, matching on mergeKey
	// and setting every column of keySchema. Record values are aligned to
	// keySchema. It returns the number of records merged.
	MergeNodes(ctx context.Context, label string, records []NodeRecord, mergeKey NodeKey, keySchema []string) (int64, error)

	// MergeRelationships merges records into relationships named name
	// between the nodes matched by start and end. It returns the number of
	// records merged.
	MergeRelationships(ctx context.Context, name string, records []EdgeRecord, start, end NodeKey) (int64, error)
}
