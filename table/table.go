// Package table - Column-ordered in-memory tables used to pass stage results around.
package table

import (
	"github.com/pkg/errors"
)

// Table is an ordered set of named columns and rows of cells.
//
// A nil cell is a missing value. Cells are expected to be one of string, int,
// float64 or time.Time.
type Table struct {
	// Columns holds the column names in output order.
	Columns []string
	// Rows holds one slice per row, aligned with Columns.
	Rows [][]any
}

// New creates an empty table with the given columns.
//
// Arguments:
//   - columns: The column names in order.
//
// Returns:
//   - *Table: The empty table.
func New(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

// Index returns the position of a column or -1 if it does not exist.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(column string) bool {
	return t.Index(column) >= 0
}

// AddColumn appends a column, filling existing rows with missing values.
// Adding a column that already exists is a no-op.
func (t *Table) AddColumn(column string) {
	if t.HasColumn(column) {
		return
	}
	t.Columns = append(t.Columns, column)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], nil)
	}
}

// Append adds a row given as a column to value mapping.
//
// Columns not yet present are added in the iteration order of keys, so callers
// that care about column order should pass an ordered key list.
//
// Arguments:
//   - keys: The column names of the values, in the order new columns are added.
//   - values: The values keyed by column.
func (t *Table) Append(keys []string, values map[string]any) {
	for _, k := range keys {
		t.AddColumn(k)
	}
	row := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		if v, ok := values[c]; ok {
			row[i] = v
		}
	}
	t.Rows = append(t.Rows, row)
}

// Get returns a single cell, or nil if the column does not exist.
func (t *Table) Get(row int, column string) any {
	idx := t.Index(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return nil
	}
	return t.Rows[row][idx]
}

// Row returns a row as a column to value mapping.
func (t *Table) Row(row int) map[string]any {
	out := make(map[string]any, len(t.Columns))
	for i, c := range t.Columns {
		out[c] = t.Rows[row][i]
	}
	return out
}

// Column returns every cell of a column in row order.
func (t *Table) Column(column string) []any {
	idx := t.Index(column)
	if idx < 0 {
		return nil
	}
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out
}

// InnerJoin joins two tables on a key column.
//
// The result contains the left columns followed by the right columns except the
// key. Rows are emitted in left order, and for each left row, in right order of
// matches. Keys that only appear on one side are dropped.
//
// Arguments:
//   - left: The left table.
//   - right: The right table.
//   - key: The column both tables are joined on.
//
// Returns:
//   - *Table: The joined table.
//   - error: An error if the key is missing or a non-key column name collides.
func InnerJoin(left, right *Table, key string) (*Table, error) {
	li := left.Index(key)
	if li < 0 {
		return nil, errors.Errorf("left table has no column %q", key)
	}
	ri := right.Index(key)
	if ri < 0 {
		return nil, errors.Errorf("right table has no column %q", key)
	}

	out := New(left.Columns...)
	rightCols := make([]int, 0, len(right.Columns))
	for i, c := range right.Columns {
		if i == ri {
			continue
		}
		if left.HasColumn(c) {
			return nil, errors.Errorf("column %q present in both tables", c)
		}
		out.Columns = append(out.Columns, c)
		rightCols = append(rightCols, i)
	}

	matches := make(map[any][]int, len(right.Rows))
	for i, r := range right.Rows {
		matches[r[ri]] = append(matches[r[ri]], i)
	}

	for _, lr := range left.Rows {
		for _, m := range matches[lr[li]] {
			row := make([]any, 0, len(out.Columns))
			row = append(row, lr...)
			for _, c := range rightCols {
				row = append(row, right.Rows[m][c])
			}
			out.Rows = append(out.Rows, row)
		}
	}

	return out, nil
}
