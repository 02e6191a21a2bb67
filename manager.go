package neoframe

import (
	"sync"

	"go.uber.org/zap"
)

// RedeclarePolicy decides what happens when a node label or relationship is
// declared a second time.
type RedeclarePolicy int

const (
	// RedeclareReplace replaces the earlier declaration entirely: batch,
	// key schema and attribute columns. The entry keeps its original
	// position in the merge order.
	RedeclareReplace RedeclarePolicy = iota
	// RedeclareError rejects the second declaration and keeps the first.
	RedeclareError
)

// Engine projects a table into node and relationship batches and merges them
// into a graph Store.
//
// Declarations mutate the engine's registry and are serialised against
// merges: a Merge sees either all or none of a concurrent declaration.
type Engine struct {
	table Accessor
	store Store

	redeclare         RedeclarePolicy
	constraints       bool
	strictConstraints bool
	continueOnError   bool
	workers           int
	logger            *zap.Logger

	mu  sync.RWMutex
	reg *registry
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRedeclarePolicy sets how repeated declarations are handled.
func WithRedeclarePolicy(p RedeclarePolicy) Option {
	return func(e *Engine) {
		e.redeclare = p
	}
}

// WithConstraints enables or disables the uniqueness constraint phase.
// It is enabled by default.
func WithConstraints(enabled bool) Option {
	return func(e *Engine) {
		e.constraints = enabled
	}
}

// WithStrictConstraints makes a failed constraint fail the run instead of
// producing a warning.
func WithStrictConstraints(enabled bool) Option {
	return func(e *Engine) {
		e.strictConstraints = enabled
	}
}

// WithContinueOnError makes a phase attempt every entity even after one has
// failed. The run still stops before the next phase.
func WithContinueOnError(enabled bool) Option {
	return func(e *Engine) {
		e.continueOnError = enabled
	}
}

// WithWorkers bounds how many store calls of one phase run concurrently.
// Values below 1 mean sequential.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// New creates an Engine reading from table and writing to store. The store
// may be nil for engines used only to project or plan.
func New(table Table, store Store, opts ...Option) *Engine {
	e := &Engine{
		table:       NewAccessor(table),
		store:       store,
		constraints: true,
		workers:     1,
		logger:      zap.NewNop(),
		reg:         newRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Declare applies a whole mapping: every node type, then every relationship.
// It stops at the first failing declaration; earlier ones stay declared.
func (e *Engine) Declare(m Mapping) error {
	for _, n := range m.Nodes {
		if err := e.DeclareNode(n.Label, n.Identity, n.Attributes...); err != nil {
			return err
		}
	}
	for _, r := range m.Relationships {
		if err := e.DeclareRelationship(r.Source, r.Target, r.Name, r.Attributes...); err != nil {
			return err
		}
	}
	return nil
}

// NodeTypes returns the declared node types in declaration order.
func (e *Engine) NodeTypes() []NodeType {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]NodeType, 0, len(e.reg.nodeOrder))
	for _, l := range e.reg.nodeOrder {
		out = append(out, e.reg.nodes[l].typ)
	}
	return out
}

// Relationships returns the declared relationships in declaration order.
func (e *Engine) Relationships() []RelationshipType {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]RelationshipType, 0, len(e.reg.relOrder))
	for _, k := range e.reg.relOrder {
		out = append(out, e.reg.rels[k].typ)
	}
	return out
}

// NodeBatch returns the projected records of label.
func (e *Engine) NodeBatch(label string) ([]NodeRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n, ok := e.reg.nodes[label]
	if !ok {
		return nil, false
	}
	return n.batch, true
}

// KeySchema returns the merge key schema of label.
func (e *Engine) KeySchema(label string) ([]string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n, ok := e.reg.nodes[label]
	if !ok {
		return nil, false
	}
	return append([]string(nil), n.keySchema...), true
}

// EdgeBatch returns the projected records of a relationship.
func (e *Engine) EdgeBatch(key RelationshipKey) ([]EdgeRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	r, ok := e.reg.rels[key]
	if !ok {
		return nil, false
	}
	return r.batch, true
}

// EndpointKeys returns the start and end node keys of a relationship.
func (e *Engine) EndpointKeys(key RelationshipKey) (start, end NodeKey, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	r, ok := e.reg.rels[key]
	if !ok {
		return NodeKey{}, NodeKey{}, false
	}
	return r.start, r.end, true
}
