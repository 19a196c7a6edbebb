package report

import (
	"sort"

	"github.com/emberbi/ember/internal/result"
)

// sortKey is an Order resolved against a concrete table: either a row
// index level or a column position.
type sortKey struct {
	dimLevel int
	column   int
	isDim    bool
	desc     bool
}

// resolveOrders maps each Order onto the table's indices. A field is
// looked up as a dimension first, then as a (reference-qualified)
// metric column. Unknown fields fail with UnresolvedSortKeyError naming
// the offending key.
func resolveOrders(t *result.Table, orders []Order) ([]sortKey, error) {
	keys := make([]sortKey, 0, len(orders))
	for _, o := range orders {
		desc := o.Direction == Descending
		if o.Reference == "" {
			if level, ok := t.DimensionIndex(o.Field); ok {
				keys = append(keys, sortKey{dimLevel: level, isDim: true, desc: desc})
				continue
			}
		}
		if col, ok := t.ColumnIndex(o.Field, o.Reference); ok {
			keys = append(keys, sortKey{column: col, desc: desc})
			continue
		}
		name := o.Field
		if o.Reference != "" {
			name = o.Reference + "." + o.Field
		}
		return nil, &UnresolvedSortKeyError{Key: name}
	}
	return keys, nil
}

// directed applies the sort direction to a raw ascending comparison.
// Comparisons involving a missing value are never inverted, so nulls
// sort last under both directions.
func directed(cmp int, anyNull, desc bool) int {
	if desc && !anyNull {
		return -cmp
	}
	return cmp
}

// compareRows compares two rows lexicographically under the resolved
// keys.
func compareRows(a, b result.Row, keys []sortKey) int {
	for _, k := range keys {
		var cmp int
		var anyNull bool
		if k.isDim {
			ka, kb := a.Keys[k.dimLevel], b.Keys[k.dimLevel]
			cmp = ka.Compare(kb)
			anyNull = ka.IsNull() || kb.IsNull()
		} else {
			va, vb := a.Cells[k.column], b.Cells[k.column]
			cmp = va.Compare(vb)
			anyNull = va.IsNull() || vb.IsNull()
		}
		if c := directed(cmp, anyNull, k.desc); c != 0 {
			return c
		}
	}
	return 0
}

// Sort reorders the table's rows by the given sort keys, treating the
// row sequence as one flat range. The sort is stable: rows comparing
// equal under every key keep their input order. The input table is not
// modified.
func Sort(t *result.Table, orders []Order) (*result.Table, error) {
	keys, err := resolveOrders(t, orders)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return t, nil
	}
	rows := t.Rows()
	sort.SliceStable(rows, func(i, j int) bool {
		return compareRows(rows[i], rows[j], keys) < 0
	})
	return t.WithRows(rows), nil
}

// groupComparable is the per-group value a sort key contributes to
// ordering whole groups: the group key itself for the level-0
// dimension, the group's metric sum for a metric, and neutral for any
// finer dimension (finer dimensions cannot rank whole groups).
type groupComparable struct {
	key     result.Key
	value   result.Value
	useKey  bool
	neutral bool
}

// groupAggregates computes one comparable per sort key per group.
// Metric sums skip missing cells; a group with no present cell for the
// metric aggregates to null and therefore sorts last.
func groupAggregates(g result.Group, keys []sortKey) []groupComparable {
	out := make([]groupComparable, len(keys))
	for i, k := range keys {
		switch {
		case k.isDim && k.dimLevel == 0:
			out[i] = groupComparable{key: g.Key, useKey: true}
		case k.isDim:
			out[i] = groupComparable{neutral: true}
		default:
			var sum float64
			var any bool
			for _, r := range g.Rows {
				if c := r.Cells[k.column]; !c.IsNull() {
					sum += c.Float
					any = true
				}
			}
			if any {
				out[i].value = result.Number(sum)
			} else {
				out[i].value = result.Null()
			}
		}
	}
	return out
}

// compareGroups compares two groups by their per-key aggregates.
func compareGroups(a, b []groupComparable, keys []sortKey) int {
	for i, k := range keys {
		if a[i].neutral {
			continue
		}
		var cmp int
		var anyNull bool
		if a[i].useKey {
			cmp = a[i].key.Compare(b[i].key)
			anyNull = a[i].key.IsNull() || b[i].key.IsNull()
		} else {
			cmp = a[i].value.Compare(b[i].value)
			anyNull = a[i].value.IsNull() || b[i].value.IsNull()
		}
		if c := directed(cmp, anyNull, k.desc); c != 0 {
			return c
		}
	}
	return 0
}

// SortGrouped reorders a hierarchically-indexed table in two explicit
// passes. First whole groups are ranked: sorting by a metric ranks them
// by the group's metric sum, sorting by the level-0 dimension ranks
// them by the group key, and finer dimensions leave the group order
// untouched. Then rows inside each group are sorted independently by
// the same keys. Rows never cross group boundaries except when a whole
// group is repositioned.
//
// Tables with a single-level row index fall back to the flat Sort.
func SortGrouped(t *result.Table, orders []Order) (*result.Table, error) {
	if !t.Grouped() {
		return Sort(t, orders)
	}
	keys, err := resolveOrders(t, orders)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return t, nil
	}

	groups := t.Groups()
	aggs := make([][]groupComparable, len(groups))
	for i, g := range groups {
		aggs[i] = groupAggregates(g, keys)
	}
	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return compareGroups(aggs[order[i]], aggs[order[j]], keys) < 0
	})

	rows := make([]result.Row, 0, t.Len())
	for _, gi := range order {
		inner := append([]result.Row(nil), groups[gi].Rows...)
		sort.SliceStable(inner, func(i, j int) bool {
			return compareRows(inner[i], inner[j], keys) < 0
		})
		rows = append(rows, inner...)
	}
	return t.WithRows(rows), nil
}
