package result

import (
	"errors"
	"fmt"
	"strings"
)

// Common construction errors.
var (
	ErrNoColumns       = errors.New("table requires at least one column")
	ErrDuplicateColumn = errors.New("duplicate column key")
	ErrRowShape        = errors.New("row shape does not match table indices")
)

// Row is one row of a table: one Key per row-index level and one Value
// per column.
type Row struct {
	Keys  []Key
	Cells []Value
}

// Table is an immutable-in-shape labeled result table. The row index has
// one level per dimension (level 0 is the grouping dimension when there
// is more than one); the column index is metric × optional reference.
//
// Transformations never mutate a Table in place: Sort and Paginate style
// operations build a new Table sharing the same dimension and column
// labels, so a pre-pagination table can be shared across concurrent
// requests.
type Table struct {
	dims []string
	cols []Column
	rows []Row
}

// Group is one top-level row group: the level-0 key and the rows sharing
// it, in table order.
type Group struct {
	Key  Key
	Rows []Row
}

// NewTable builds a table and validates its shape: at least one column,
// unique column keys, and every row carrying exactly one key per
// dimension level and one cell per column.
func NewTable(dims []string, cols []Column, rows []Row) (*Table, error) {
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}
	seen := make(map[Column]struct{}, len(cols))
	for _, c := range cols {
		if _, ok := seen[c]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c)
		}
		seen[c] = struct{}{}
	}
	for i, r := range rows {
		if len(r.Keys) != len(dims) || len(r.Cells) != len(cols) {
			return nil, fmt.Errorf("%w: row %d has %d keys and %d cells, want %d and %d",
				ErrRowShape, i, len(r.Keys), len(r.Cells), len(dims), len(cols))
		}
	}
	return &Table{
		dims: append([]string(nil), dims...),
		cols: append([]Column(nil), cols...),
		rows: append([]Row(nil), rows...),
	}, nil
}

// Dimensions returns the row-index level names in order.
func (t *Table) Dimensions() []string {
	return append([]string(nil), t.dims...)
}

// Columns returns the column index in order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.cols...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns the i-th row. The returned Row shares backing arrays with
// the table; callers must treat it as read-only.
func (t *Table) Row(i int) Row { return t.rows[i] }

// Rows returns a copy of the row sequence. Row contents are shared.
func (t *Table) Rows() []Row {
	return append([]Row(nil), t.rows...)
}

// WithRows returns a new table with the same dimension and column labels
// and the given rows. This is the building block for sorting and slicing.
func (t *Table) WithRows(rows []Row) *Table {
	return &Table{dims: t.dims, cols: t.cols, rows: rows}
}

// DimensionIndex returns the row-index level for a dimension key.
func (t *Table) DimensionIndex(key string) (int, bool) {
	for i, d := range t.dims {
		if d == key {
			return i, true
		}
	}
	return 0, false
}

// ColumnIndex returns the position of the reference-qualified metric
// column.
func (t *Table) ColumnIndex(metric, reference string) (int, bool) {
	want := Column{Metric: metric, Reference: reference}
	for i, c := range t.cols {
		if c == want {
			return i, true
		}
	}
	return 0, false
}

// Grouped reports whether the table has a multi-level row index, which
// is what group-mode sorting and pagination require.
func (t *Table) Grouped() bool { return len(t.dims) > 1 }

// Groups splits the rows by their level-0 key, in order of first
// appearance. Rows sharing a level-0 value are collected together even
// when they are not contiguous, so group operations see each group
// exactly once.
func (t *Table) Groups() []Group {
	if len(t.dims) == 0 {
		return nil
	}
	var groups []Group
	index := make(map[string]int)
	for _, r := range t.rows {
		gk := r.Keys[0].String()
		i, ok := index[gk]
		if !ok {
			i = len(groups)
			index[gk] = i
			groups = append(groups, Group{Key: r.Keys[0]})
		}
		groups[i].Rows = append(groups[i].Rows, r)
	}
	return groups
}

// RowKey renders a row's full index tuple, used for joining reference
// query results onto base rows.
func RowKey(keys []Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, "\x1f")
}
