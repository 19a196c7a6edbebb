// Package report implements the result-shaping core of the reporting
// layer: multi-key sorting and offset/limit pagination over tabular
// query results, globally or scoped to each top-level dimension group.
package report

import (
	"errors"
	"fmt"
)

// Common validation errors.
var (
	ErrInvalidLimit  = errors.New("limit cannot be negative")
	ErrInvalidOffset = errors.New("offset cannot be negative")
)

// UnresolvedSortKeyError reports a sort key that matches neither a
// dimension in the row index nor a metric column.
type UnresolvedSortKeyError struct {
	Key string
}

func (e *UnresolvedSortKeyError) Error() string {
	return fmt.Sprintf("sort key %q matches no dimension or metric in the result", e.Key)
}

// Direction is a sort direction.
type Direction int

const (
	// Ascending sorts smallest first.
	Ascending Direction = iota
	// Descending sorts largest first. Missing values still sort last.
	Descending
)

// String returns "asc" or "desc".
func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Order is a single sort key: a dimension or metric field, an optional
// reference variant qualifying a metric, and a direction. An ordered
// slice of Orders forms a lexicographic sort: the first Order is the
// primary key and later Orders break ties.
type Order struct {
	Field     string
	Reference string
	Direction Direction
}

// Request carries the pagination parameters for one paginate call.
// Limit 0 means unbounded; Offset 0 means from the start. Negative
// values are rejected before any sorting or slicing happens.
type Request struct {
	Limit  int
	Offset int
	Orders []Order
}

// Validate rejects negative limit or offset.
func (r Request) Validate() error {
	if r.Limit < 0 {
		return ErrInvalidLimit
	}
	if r.Offset < 0 {
		return ErrInvalidOffset
	}
	return nil
}

// Widget is the paginator's view of a consuming widget: only the
// group-pagination capability matters here.
type Widget interface {
	// GroupPaginated reports whether the widget needs pagination scoped
	// to each top-level dimension group.
	GroupPaginated() bool
}
