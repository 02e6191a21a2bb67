package neoframe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// declaredEngine declares Person, City and LIVES_IN over the scenario frame.
func declaredEngine(t *testing.T, store Store, opts ...Option) *Engine {
	t.Helper()

	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	e := New(peopleCities(t), store, opts...)
	require.NoError(t, e.DeclareNode("Person", "person"))
	require.NoError(t, e.DeclareNode("City", "city"))
	require.NoError(t, e.DeclareRelationship("Person", "City", "LIVES_IN"))
	return e
}

func TestMerge_PhaseOrder(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	e := declaredEngine(t, store)

	res, err := e.Merge(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"constraint Person",
		"constraint City",
		"nodes Person",
		"nodes City",
		"relationships LIVES_IN",
	}, store.Calls())

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 2, res.NodeTypesMerged())
	assert.Equal(t, 1, res.RelationshipsMerged())
	assert.Equal(t, map[string]int64{"Person": 2, "City": 2}, res.NodeCounts)
	assert.Equal(t, int64(1), res.RelationshipCounts[RelationshipKey{Source: "Person", Target: "City", Name: "LIVES_IN"}])
	assert.Nil(t, res.Failure)
	assert.NotEmpty(t, res.RunID)
}

func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	e := declaredEngine(t, store)

	_, err := e.Merge(t.Context())
	require.NoError(t, err)
	people, cities, rels := store.nodeCount("Person"), store.nodeCount("City"), store.relCount()

	_, err = e.Merge(t.Context())
	require.NoError(t, err)
	assert.Equal(t, people, store.nodeCount("Person"))
	assert.Equal(t, cities, store.nodeCount("City"))
	assert.Equal(t, rels, store.relCount())
	assert.Equal(t, 2, people)
	assert.Equal(t, 1, rels)
}

func TestMerge_ConstraintFailureIsWarning(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.failOn["constraint City"] = errStoreDown
	e := declaredEngine(t, store)

	res, err := e.Merge(t.Context())
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "City", res.Warnings[0].Directive.Label)
	assert.ErrorIs(t, res.Warnings[0], errStoreDown)
}

func TestMerge_StrictConstraints(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.failOn["constraint City"] = errStoreDown
	e := declaredEngine(t, store, WithStrictConstraints(true))

	res, err := e.Merge(t.Context())
	require.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, PhaseConstraints, res.Failure.Phase)
	assert.NotContains(t, store.Calls(), "nodes Person", "no node merge after a failed phase")
}

func TestMerge_WithoutConstraints(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	e := declaredEngine(t, store, WithConstraints(false))

	_, err := e.Merge(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"nodes Person", "nodes City", "relationships LIVES_IN"}, store.Calls())
}

func TestMerge_NodeFailureStopsRun(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.failOn["nodes Person"] = errStoreDown
	e := declaredEngine(t, store)

	res, err := e.Merge(t.Context())
	require.ErrorIs(t, err, errStoreDown)

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "merge nodes", storeErr.Op)
	assert.Equal(t, "Person", storeErr.Entity)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, PhaseNodes, res.Failure.Phase)
	assert.Equal(t, "Person", res.Failure.Entity)
	assert.Equal(t, 0, res.RelationshipsMerged())
	assert.NotContains(t, store.Calls(), "nodes City", "sequential fail-fast skips the rest of the phase")
	assert.NotContains(t, store.Calls(), "relationships LIVES_IN")
	assert.Contains(t, res.String(), "first failure at phase nodes entity Person")
}

func TestMerge_ContinueOnError(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.failOn["nodes Person"] = errStoreDown
	e := declaredEngine(t, store, WithContinueOnError(true))

	res, err := e.Merge(t.Context())
	require.ErrorIs(t, err, errStoreDown)
	assert.Contains(t, store.Calls(), "nodes City", "every node type is attempted")
	assert.NotContains(t, store.Calls(), "relationships LIVES_IN")
	assert.Equal(t, map[string]int64{"City": 2}, res.NodeCounts)
	require.Len(t, res.Failures, 1)
}

func TestMerge_RelationshipFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.failOn["relationships LIVES_IN"] = errStoreDown
	e := declaredEngine(t, store)

	res, err := e.Merge(t.Context())
	require.Error(t, err)
	assert.Equal(t, PhaseRelationships, res.Failure.Phase)
	assert.Equal(t, "(Person)-[LIVES_IN]->(City)", res.Failure.Entity)
	assert.Equal(t, 2, res.NodeTypesMerged(), "merged node types are not rolled back")
}

func TestMerge_NoStore(t *testing.T) {
	t.Parallel()

	e := New(peopleCities(t), nil)
	_, err := e.Merge(t.Context())
	require.Error(t, err)
}

func TestMerge_CanceledContext(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	e := declaredEngine(t, store)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	res, err := e.Merge(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, res.State)
	assert.Empty(t, store.Calls())
}

// gateStore blocks node merges until all of them have started, proving they
// run concurrently, and records whether an edge merge started early.
type gateStore struct {
	*memStore
	wantNodes  int32
	started    atomic.Int32
	release    chan struct{}
	once       sync.Once
	nodesDone  atomic.Int32
	edgesEarly atomic.Bool
}

func (g *gateStore) MergeNodes(ctx context.Context, label string, records []NodeRecord, key NodeKey, schema []string) (int64, error) {
	if g.started.Add(1) == g.wantNodes {
		g.once.Do(func() { close(g.release) })
	}
	select {
	case <-g.release:
	case <-time.After(5 * time.Second):
		return 0, errors.New("node merges did not run concurrently")
	}
	defer g.nodesDone.Add(1)
	return g.memStore.MergeNodes(ctx, label, records, key, schema)
}

func (g *gateStore) MergeRelationships(ctx context.Context, name string, records []EdgeRecord, start, end NodeKey) (int64, error) {
	if g.nodesDone.Load() != g.wantNodes {
		g.edgesEarly.Store(true)
	}
	return g.memStore.MergeRelationships(ctx, name, records, start, end)
}

func TestMerge_ParallelWorkersJoinAtPhaseBoundary(t *testing.T) {
	t.Parallel()

	store := &gateStore{memStore: newMemStore(), wantNodes: 2, release: make(chan struct{})}
	e := declaredEngine(t, store, WithWorkers(4))

	res, err := e.Merge(t.Context())
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.False(t, store.edgesEarly.Load(), "edges must wait for every node merge")
}

func TestMerge_SerialisedAgainstDeclarations(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	e := declaredEngine(t, store, WithWorkers(2))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = e.Merge(t.Context())
		}()
		go func() {
			defer wg.Done()
			_ = e.DeclareNode("City", "city")
		}()
	}
	wg.Wait()

	assert.Len(t, e.NodeTypes(), 2)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "constraints applied", StateConstraintsApplied.String())
	assert.Equal(t, "failed", StateFailed.String())
}

// slowStore blocks the merge of one label until its context is canceled.
type slowStore struct {
	*memStore
	slow string
}

func (s *slowStore) MergeNodes(ctx context.Context, label string, records []NodeRecord, key NodeKey, schema []string) (int64, error) {
	if label == s.slow {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
	return s.memStore.MergeNodes(ctx, label, records, key, schema)
}

func TestMerge_ParallelFailureReportsCause(t *testing.T) {
	t.Parallel()

	store := &slowStore{memStore: newMemStore(), slow: "Person"}
	store.failOn["nodes City"] = errStoreDown
	e := declaredEngine(t, store, WithWorkers(2))

	res, err := e.Merge(t.Context())
	require.ErrorIs(t, err, errStoreDown)
	require.NotNil(t, res.Failure)
	assert.Equal(t, "City", res.Failure.Entity)
	assert.Len(t, res.Failures, 1, "siblings interrupted by the failure are not failures")
	assert.Equal(t, StateFailed, res.State)
}
