package neoframe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// frameOf builds a Frame from column-major test data. Go nil becomes null.
func frameOf(t *testing.T, names []string, cols ...[]any) *Frame {
	t.Helper()

	vals := make([][]Value, len(cols))
	for i, c := range cols {
		vals[i] = make([]Value, len(c))
		for j, x := range c {
			vals[i][j] = ValueOf(x)
		}
	}
	f, err := NewFrameFromColumns(names, vals)
	require.NoError(t, err)
	return f
}

// peopleCities is the three-row scenario: Person ids [1, null, 3] and
// City ids [10, 20, null].
func peopleCities(t *testing.T) *Frame {
	t.Helper()
	return frameOf(t, []string{"person", "city"},
		[]any{1, nil, 3},
		[]any{10, 20, nil},
	)
}

var errStoreDown = errors.New("store down")

// memStore is an in-memory Store with upsert semantics that records every
// call it receives.
type memStore struct {
	mu    sync.Mutex
	calls []string

	// failOn maps "op entity" to the error that call returns.
	failOn map[string]error

	nodes map[string]map[string]map[string]any // label -> identity -> props
	rels  map[string]map[string]any            // "name|src|dst" -> props
	cons  map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		failOn: make(map[string]error),
		nodes:  make(map[string]map[string]map[string]any),
		rels:   make(map[string]map[string]any),
		cons:   make(map[string]bool),
	}
}

func (s *memStore) record(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return s.failOn[call]
}

func (s *memStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *memStore) ApplyConstraint(_ context.Context, label, column string) error {
	if err := s.record("constraint " + label); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cons[label+"."+column] = true
	return nil
}

func (s *memStore) MergeNodes(_ context.Context, label string, records []NodeRecord, mergeKey NodeKey, keySchema []string) (int64, error) {
	if err := s.record("nodes " + label); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.nodes[label]
	if !ok {
		byID = make(map[string]map[string]any)
		s.nodes[label] = byID
	}
	for _, rec := range records {
		props := make(map[string]any, len(keySchema))
		for i, col := range keySchema {
			props[col] = rec[i].Any()
		}
		byID[rec.Identity().String()] = props
	}
	return int64(len(records)), nil
}

func (s *memStore) MergeRelationships(_ context.Context, name string, records []EdgeRecord, start, end NodeKey) (int64, error) {
	if err := s.record("relationships " + name); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var merged int64
	for _, rec := range records {
		if _, ok := s.nodes[start.Label][rec.Source.String()]; !ok {
			continue
		}
		if _, ok := s.nodes[end.Label][rec.Target.String()]; !ok {
			continue
		}
		props := make(map[string]any, len(rec.Properties))
		for k, v := range rec.Properties {
			props[k] = v.Any()
		}
		s.rels[fmt.Sprintf("%s|%s|%s", name, rec.Source, rec.Target)] = props
		merged++
	}
	return merged, nil
}

func (s *memStore) nodeCount(label string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes[label])
}

func (s *memStore) relCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rels)
}
