package neoframe

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrColumnNotFound is returned when a declaration references a column the
	// tabular source does not have.
	ErrColumnNotFound = errors.New("neoframe: column not found")

	// ErrUnknownNodeType is returned when a relationship references a node
	// label that was never declared.
	ErrUnknownNodeType = errors.New("neoframe: unknown node type")

	// ErrAlignment signals that column or record lengths disagree. It points
	// at a bug in a source or projector and is never expected in correct use.
	ErrAlignment = errors.New("neoframe: alignment error")

	// ErrDuplicateNodeType is returned on redeclaration under RedeclareError.
	ErrDuplicateNodeType = errors.New("neoframe: node type already declared")

	// ErrDuplicateRelationship is returned on redeclaration under RedeclareError.
	ErrDuplicateRelationship = errors.New("neoframe: relationship already declared")

	// ErrInvalidDeclaration is returned for empty labels or malformed column lists.
	ErrInvalidDeclaration = errors.New("neoframe: invalid declaration")

	// ErrNotFound is returned by verification queries that yield no rows.
	ErrNotFound = errors.New("neoframe: record not found")
)

// StoreError wraps a failure reported by the graph store for one operation.
type StoreError struct {
	// Op is the store operation: "constraint", "merge nodes" or "merge relationships".
	Op string
	// Entity is the node label or relationship key the operation was issued for.
	Entity string
	Err    error
}

// Error implements error.
func (e *StoreError) Error() string {
	return fmt.Sprintf("neoframe: store %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the store error.
func (e *StoreError) Unwrap() error { return e.Err }

// ConstraintWarning records a constraint that could not be applied. It does
// not fail a run unless strict constraints are enabled.
type ConstraintWarning struct {
	Directive ConstraintDirective
	Err       error
}

// Error implements error.
func (w ConstraintWarning) Error() string {
	return fmt.Sprintf("neoframe: constraint on %s(%s) not applied: %v",
		w.Directive.Label, w.Directive.Column, w.Err)
}

// Unwrap returns the store error.
func (w ConstraintWarning) Unwrap() error { return w.Err }
