package report

import (
	"github.com/emberbi/ember/internal/result"
)

// Paginate sorts and slices a result table for a set of consuming
// widgets. If any widget declares group pagination and the table has a
// multi-level row index, sorting and slicing are scoped to each
// top-level group; otherwise one flat sort and slice is applied.
//
// The column index is never changed; only the row set and row order
// are. The input table is not modified, so callers may share it across
// concurrent Paginate calls with different widget sets.
func Paginate(t *result.Table, widgets []Widget, req Request) (*result.Table, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if groupMode(widgets) && t.Grouped() {
		return groupPaginate(t, req)
	}
	return simplePaginate(t, req)
}

// groupMode reports whether any consuming widget requires group-local
// pagination. One such widget switches the whole result to group mode.
func groupMode(widgets []Widget) bool {
	for _, w := range widgets {
		if w.GroupPaginated() {
			return true
		}
	}
	return false
}

// simplePaginate applies a flat sort followed by a single
// [offset : offset+limit] slice over the whole row sequence.
func simplePaginate(t *result.Table, req Request) (*result.Table, error) {
	sorted, err := Sort(t, req.Orders)
	if err != nil {
		return nil, err
	}
	return sorted.WithRows(sliceRows(sorted.Rows(), req.Offset, req.Limit)), nil
}

// groupPaginate applies group-mode sorting, then slices each top-level
// group's own row subsequence independently and concatenates the
// slices in group order. Groups left empty by the slice contribute no
// rows and are dropped rather than kept as placeholders; rows absent
// from the data are never materialized as all-null fillers.
func groupPaginate(t *result.Table, req Request) (*result.Table, error) {
	sorted, err := SortGrouped(t, req.Orders)
	if err != nil {
		return nil, err
	}
	var rows []result.Row
	for _, g := range sorted.Groups() {
		rows = append(rows, sliceRows(g.Rows, req.Offset, req.Limit)...)
	}
	return sorted.WithRows(rows), nil
}

// sliceRows takes rows[offset : offset+limit], clamped to the available
// rows. limit 0 means no upper bound.
func sliceRows(rows []result.Row, offset, limit int) []result.Row {
	if offset >= len(rows) {
		return nil
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}
