package neoframe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is the position of a merge run in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateConstraintsApplied
	StateNodesMerged
	StateEdgesMerged
	StateDone
	StateFailed
)

// String returns the state name used in logs and summaries.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConstraintsApplied:
		return "constraints applied"
	case StateNodesMerged:
		return "nodes merged"
	case StateEdgesMerged:
		return "edges merged"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Phase names one step of a merge run.
type Phase string

const (
	PhaseConstraints   Phase = "constraints"
	PhaseNodes         Phase = "nodes"
	PhaseRelationships Phase = "relationships"
)

// Failure describes a store call that failed during a run.
type Failure struct {
	Phase  Phase
	Entity string
	Err    error
}

// Result summarises a merge run.
type Result struct {
	RunID string
	State State

	// NodeCounts and RelationshipCounts hold the store-reported merge counts
	// of every entity that completed.
	NodeCounts         map[string]int64
	RelationshipCounts map[RelationshipKey]int64

	Warnings []ConstraintWarning

	// Failure is the first failure in declaration order, nil on success.
	// Failures lists all of them when continue-on-error is enabled.
	Failure  *Failure
	Failures []Failure

	Duration time.Duration
}

// NodeTypesMerged returns how many node types were merged.
func (r *Result) NodeTypesMerged() int { return len(r.NodeCounts) }

// RelationshipsMerged returns how many relationships were merged.
func (r *Result) RelationshipsMerged() int { return len(r.RelationshipCounts) }

// String summarises the run in one line, including the first failure.
func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d node types merged, %d relationships merged",
		r.NodeTypesMerged(), r.RelationshipsMerged())
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, ", %d constraint warnings", len(r.Warnings))
	}
	if r.Failure != nil {
		fmt.Fprintf(&b, ", first failure at phase %s entity %s: %v",
			r.Failure.Phase, r.Failure.Entity, r.Failure.Err)
	}
	return b.String()
}

// mergeTask is one store call of a phase.
type mergeTask struct {
	entity string
	run    func(ctx context.Context) error
}

// Merge loads everything declared so far into the store: constraints first,
// then every node type, then every relationship, each phase in declaration
// order and finished before the next begins.
//
// A failure stops the run before the next phase and leaves already merged
// entities in place; since every call is an upsert, the whole run can simply
// be resubmitted. The returned error is the first failure, also reported in
// the Result.
func (e *Engine) Merge(ctx context.Context) (*Result, error) {
	if e.store == nil {
		return nil, errors.New("neoframe: merge without a store")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	start := time.Now()
	res := &Result{
		RunID:              uuid.NewString(),
		State:              StateIdle,
		NodeCounts:         make(map[string]int64),
		RelationshipCounts: make(map[RelationshipKey]int64),
	}
	log := e.logger.With(zap.String("run_id", res.RunID))
	log.Info("merge started",
		zap.Int("node_types", len(e.reg.nodeOrder)),
		zap.Int("relationships", len(e.reg.relOrder)),
		zap.Int("workers", e.workers))

	var mu sync.Mutex

	phases := []struct {
		phase Phase
		next  State
		tasks []mergeTask
	}{
		{PhaseConstraints, StateConstraintsApplied, e.constraintTasks(log, res, &mu)},
		{PhaseNodes, StateNodesMerged, e.nodeTasks(log, res, &mu)},
		{PhaseRelationships, StateEdgesMerged, e.relationshipTasks(log, res, &mu)},
	}
	for _, p := range phases {
		failures := e.runPhase(ctx, p.phase, p.tasks)
		if len(failures) > 0 {
			res.State = StateFailed
			res.Failures = failures
			res.Failure = &failures[0]
			res.Duration = time.Since(start)
			log.Error("merge failed",
				zap.String("phase", string(p.phase)),
				zap.String("entity", res.Failure.Entity),
				zap.Int("failures", len(failures)),
				zap.Error(res.Failure.Err))
			return res, res.Failure.Err
		}
		res.State = p.next
		log.Debug("phase complete", zap.String("phase", string(p.phase)), zap.Stringer("state", res.State))
	}

	res.State = StateDone
	res.Duration = time.Since(start)
	log.Info("merge done",
		zap.Int("node_types", res.NodeTypesMerged()),
		zap.Int("relationships", res.RelationshipsMerged()),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("elapsed", res.Duration))
	return res, nil
}

// runPhase executes tasks on a bounded pool and returns their failures in
// task order. Unless continueOnError is set, the first failure cancels the
// other tasks; those it interrupts or skips are not reported.
func (e *Engine) runPhase(ctx context.Context, phase Phase, tasks []mergeTask) []Failure {
	var (
		g    *errgroup.Group
		gctx = ctx
	)
	if e.continueOnError {
		g = new(errgroup.Group)
	} else {
		g, gctx = errgroup.WithContext(ctx)
	}
	g.SetLimit(e.workers)

	errs := make([]error, len(tasks))
	for i, t := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return err
			}
			if gctx.Err() != nil {
				// A sibling failed; this task never started.
				return nil
			}
			if err := t.run(gctx); err != nil {
				if ctx.Err() == nil && gctx.Err() != nil && errors.Is(err, context.Canceled) {
					// Interrupted by a failing sibling; that failure is the one reported.
					return nil
				}
				errs[i] = err
				return err
			}
			return nil
		})
	}
	_ = g.Wait()

	var failures []Failure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, Failure{Phase: phase, Entity: tasks[i].entity, Err: err})
		}
	}
	return failures
}

func (e *Engine) constraintTasks(log *zap.Logger, res *Result, mu *sync.Mutex) []mergeTask {
	directives := e.constraintsLocked()
	tasks := make([]mergeTask, 0, len(directives))
	for _, d := range directives {
		tasks = append(tasks, mergeTask{
			entity: d.Label,
			run: func(ctx context.Context) error {
				err := e.store.ApplyConstraint(ctx, d.Label, d.Column)
				if err == nil {
					log.Debug("constraint applied", zap.String("label", d.Label), zap.String("column", d.Column))
					return nil
				}
				if e.strictConstraints {
					return &StoreError{Op: "constraint", Entity: d.Label, Err: err}
				}
				log.Warn("constraint not applied, merges may be slow",
					zap.String("label", d.Label), zap.String("column", d.Column), zap.Error(err))
				mu.Lock()
				res.Warnings = append(res.Warnings, ConstraintWarning{Directive: d, Err: err})
				mu.Unlock()
				return nil
			},
		})
	}
	return tasks
}

func (e *Engine) nodeTasks(log *zap.Logger, res *Result, mu *sync.Mutex) []mergeTask {
	tasks := make([]mergeTask, 0, len(e.reg.nodeOrder))
	for _, label := range e.reg.nodeOrder {
		n := e.reg.nodes[label]
		tasks = append(tasks, mergeTask{
			entity: label,
			run: func(ctx context.Context) error {
				key := NodeKey{Label: label, Column: n.typ.IdentityColumn}
				count, err := e.store.MergeNodes(ctx, label, n.batch, key, n.keySchema)
				if err != nil {
					return &StoreError{Op: "merge nodes", Entity: label, Err: err}
				}
				log.Info("nodes merged",
					zap.String("label", label),
					zap.Int("records", len(n.batch)),
					zap.Int64("merged", count))
				mu.Lock()
				res.NodeCounts[label] = count
				mu.Unlock()
				return nil
			},
		})
	}
	return tasks
}

func (e *Engine) relationshipTasks(log *zap.Logger, res *Result, mu *sync.Mutex) []mergeTask {
	tasks := make([]mergeTask, 0, len(e.reg.relOrder))
	for _, k := range e.reg.relOrder {
		r := e.reg.rels[k]
		tasks = append(tasks, mergeTask{
			entity: k.String(),
			run: func(ctx context.Context) error {
				count, err := e.store.MergeRelationships(ctx, r.typ.Name, r.batch, r.start, r.end)
				if err != nil {
					return &StoreError{Op: "merge relationships", Entity: k.String(), Err: err}
				}
				log.Info("relationships merged",
					zap.Stringer("relationship", k),
					zap.Int("records", len(r.batch)),
					zap.Int64("merged", count))
				mu.Lock()
				res.RelationshipCounts[k] = count
				mu.Unlock()
				return nil
			},
		})
	}
	return tasks
}
