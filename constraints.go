package neoframe

import "fmt"

// ConstraintDirective asks the store to ensure label(column) is unique.
type ConstraintDirective struct {
	Label  string
	Column string
}

// Cypher renders the directive as an idempotent Neo4j statement.
func (d ConstraintDirective) Cypher() string {
	return fmt.Sprintf("CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
		QuoteIdentifier(d.Label), QuoteIdentifier(d.Column))
}

// Constraints returns one directive per declared node type, keyed on its
// identity column, in declaration order. It returns nil when the constraint
// phase is disabled.
func (e *Engine) Constraints() []ConstraintDirective {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.constraintsLocked()
}

func (e *Engine) constraintsLocked() []ConstraintDirective {
	if !e.constraints {
		return nil
	}
	out := make([]ConstraintDirective, 0, len(e.reg.nodeOrder))
	for _, l := range e.reg.nodeOrder {
		n := e.reg.nodes[l]
		out = append(out, ConstraintDirective{Label: n.typ.Label, Column: n.typ.IdentityColumn})
	}
	return out
}
