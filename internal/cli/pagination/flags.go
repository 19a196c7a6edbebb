// Package pagination parses and validates the CLI's pagination and
// sorting flags and converts them into report requests.
package pagination

import (
	"errors"
	"fmt"
	"strings"

	"github.com/emberbi/ember/internal/report"
)

// Defaults and sort tokens.
const (
	DefaultLimit  = 0 // unbounded
	DefaultOffset = 0
	MinPage       = 1
	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"
)

// Common validation errors.
var (
	ErrInvalidLimit         = errors.New("limit cannot be negative")
	ErrInvalidOffset        = errors.New("offset cannot be negative")
	ErrInvalidPage          = errors.New("page must be >= 1")
	ErrInvalidPageSize      = errors.New("page-size must be > 0")
	ErrMixedPaginationModes = errors.New("cannot use both offset-based (--offset) and page-based (--page) pagination")
	ErrInvalidSortFormat    = errors.New("invalid sort format: use 'field' or 'field:order' (e.g., 'votes:desc')")
	ErrEmptySortField       = errors.New("sort field cannot be empty")
	ErrInvalidSortOrder     = errors.New("sort order must be 'asc' or 'desc'")
)

// Params holds CLI pagination flags. Two mutually exclusive modes are
// supported: offset-based (--limit/--offset) and page-based
// (--page/--page-size), the latter converting to offset/limit.
type Params struct {
	Limit    int
	Offset   int
	Page     int
	PageSize int
	// Sorts are raw --sort values, e.g. "votes:desc" or "wow.votes".
	Sorts []string
}

// Validate checks bounds and mode consistency.
func (p Params) Validate() error {
	if p.Limit < 0 {
		return ErrInvalidLimit
	}
	if p.Offset < 0 {
		return ErrInvalidOffset
	}
	if p.Page < 0 {
		return ErrInvalidPage
	}
	if p.PageSize < 0 {
		return ErrInvalidPageSize
	}
	if p.Page > 0 && p.Offset > 0 {
		return ErrMixedPaginationModes
	}
	if p.Page > 0 && p.PageSize == 0 {
		return fmt.Errorf("%w: page-size must be set when page is used", ErrInvalidPageSize)
	}
	if p.PageSize > 0 && p.Page == 0 {
		return fmt.Errorf("%w: page must be set when page-size is used", ErrInvalidPage)
	}
	return nil
}

// IsPageBased reports whether page-based mode is active.
func (p Params) IsPageBased() bool { return p.Page > 0 }

// EffectiveOffsetLimit resolves the active mode to offset/limit.
func (p Params) EffectiveOffsetLimit() (int, int) {
	if p.IsPageBased() {
		return (p.Page - MinPage) * p.PageSize, p.PageSize
	}
	return p.Offset, p.Limit
}

// ToRequest validates the params, parses the sort expressions and
// builds the report request.
func (p Params) ToRequest() (report.Request, error) {
	if err := p.Validate(); err != nil {
		return report.Request{}, err
	}
	orders := make([]report.Order, 0, len(p.Sorts))
	for _, s := range p.Sorts {
		o, err := ParseSort(s)
		if err != nil {
			return report.Request{}, err
		}
		orders = append(orders, o)
	}
	offset, limit := p.EffectiveOffsetLimit()
	return report.Request{Limit: limit, Offset: offset, Orders: orders}, nil
}

// sortPartsMax is the maximum number of parts in a sort expression.
const sortPartsMax = 2

// ParseSort parses "field", "field:order" or "reference.field:order"
// into a sort key. The field resolves against the result's dimensions
// and metrics later, at sort time.
func ParseSort(expr string) (report.Order, error) {
	if strings.TrimSpace(expr) == "" {
		return report.Order{}, ErrEmptySortField
	}
	parts := strings.Split(expr, ":")
	if len(parts) > sortPartsMax {
		return report.Order{}, fmt.Errorf("%w: %q", ErrInvalidSortFormat, expr)
	}

	field := strings.TrimSpace(parts[0])
	if field == "" {
		return report.Order{}, ErrEmptySortField
	}
	order := SortOrderAsc
	if len(parts) == sortPartsMax {
		order = strings.ToLower(strings.TrimSpace(parts[1]))
	}

	direction := report.Ascending
	switch order {
	case SortOrderAsc:
	case SortOrderDesc:
		direction = report.Descending
	default:
		return report.Order{}, fmt.Errorf("%w: got %q", ErrInvalidSortOrder, order)
	}

	reference, base, found := strings.Cut(field, ".")
	if !found {
		return report.Order{Field: field, Direction: direction}, nil
	}
	return report.Order{Field: base, Reference: reference, Direction: direction}, nil
}
