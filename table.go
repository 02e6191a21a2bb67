package neoframe

import (
	"fmt"
)

// Table is the read-only columnar view the engine consumes. Implementations
// must return columns of exactly RowCount values, in row order. Callers must
// not modify the slices returned by Column.
type Table interface {
	// Columns lists the column names in source order.
	Columns() []string
	// Column returns the named column, or false if it does not exist.
	Column(name string) ([]Value, bool)
	// RowCount returns the number of rows.
	RowCount() int
	// IsNull reports whether the cell at (column, row) is null. Missing
	// columns and out-of-range rows count as null.
	IsNull(column string, row int) bool
}

// Frame is an in-memory columnar Table.
type Frame struct {
	names []string
	index map[string]int
	cols  [][]Value
	rows  int
}

// NewFrame returns an empty Frame with the given column names.
// Duplicate names panic, as they indicate a programming error.
func NewFrame(names ...string) *Frame {
	f := &Frame{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
		cols:  make([][]Value, len(names)),
	}
	for i, n := range names {
		if _, dup := f.index[n]; dup {
			panic(fmt.Sprintf("neoframe: duplicate column %q", n))
		}
		f.index[n] = i
	}
	return f
}

// NewFrameFromColumns builds a Frame from whole columns. Every column must
// have the same length.
func NewFrameFromColumns(names []string, cols [][]Value) (*Frame, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("%w: %d names for %d columns", ErrAlignment, len(names), len(cols))
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidDeclaration, n)
		}
		seen[n] = true
	}
	f := NewFrame(names...)
	for i, c := range cols {
		if i > 0 && len(c) != len(cols[0]) {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d",
				ErrAlignment, names[i], len(c), len(cols[0]))
		}
		f.cols[i] = c
	}
	if len(cols) > 0 {
		f.rows = len(cols[0])
	}
	return f, nil
}

// AppendRow appends one row. It must carry exactly one value per column.
func (f *Frame) AppendRow(values ...Value) error {
	if len(values) != len(f.names) {
		return fmt.Errorf("%w: row has %d values, frame has %d columns",
			ErrAlignment, len(values), len(f.names))
	}
	for i, v := range values {
		f.cols[i] = append(f.cols[i], v)
	}
	f.rows++
	return nil
}

// Columns returns a copy of the column names in order.
func (f *Frame) Columns() []string { return append([]string(nil), f.names...) }

// Column returns the named column. The slice is shared with the frame.
func (f *Frame) Column(name string) ([]Value, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// RowCount returns the number of rows appended so far.
func (f *Frame) RowCount() int { return f.rows }

// IsNull reports whether the cell is null. Missing columns and rows count
// as null.
func (f *Frame) IsNull(column string, row int) bool {
	c, ok := f.Column(column)
	if !ok || row < 0 || row >= len(c) {
		return true
	}
	return c[row].IsNull()
}

// Accessor narrows a Table to what the projectors need and turns missing
// columns into ErrColumnNotFound.
type Accessor struct {
	t Table
}

// NewAccessor wraps t.
func NewAccessor(t Table) Accessor { return Accessor{t: t} }

// Column returns the named column in row order.
func (a Accessor) Column(name string) ([]Value, error) {
	c, ok := a.t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	if len(c) != a.t.RowCount() {
		return nil, fmt.Errorf("%w: column %q has %d values for %d rows",
			ErrAlignment, name, len(c), a.t.RowCount())
	}
	return c, nil
}

// RowCount returns the number of rows of the underlying table.
func (a Accessor) RowCount() int { return a.t.RowCount() }

// RowIsComplete reports whether none of columns is null at row.
func (a Accessor) RowIsComplete(row int, columns []string) bool {
	for _, c := range columns {
		if a.t.IsNull(c, row) {
			return false
		}
	}
	return true
}
