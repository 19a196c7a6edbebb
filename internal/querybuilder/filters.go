package querybuilder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/emberbi/ember/internal/schema"
)

// FilterOp is a filter operator.
type FilterOp string

// Supported filter operators.
const (
	OpEq      FilterOp = "eq"
	OpNe      FilterOp = "ne"
	OpIn      FilterOp = "in"
	OpGt      FilterOp = "gt"
	OpGte     FilterOp = "gte"
	OpLt      FilterOp = "lt"
	OpLte     FilterOp = "lte"
	OpBetween FilterOp = "between"
	OpLike    FilterOp = "like"
)

// Filter restricts a query by a dimension or metric value. Dimension
// filters render into the WHERE clause; metric filters apply to the
// aggregate expression and render into HAVING.
type Filter struct {
	Field  string
	Op     FilterOp
	Values []any
}

// Filter errors.
var (
	ErrBadFilter          = errors.New("invalid filter")
	ErrUnknownFilterOp    = errors.New("unknown filter operator")
	ErrUnknownFilterField = errors.New("filter field matches no dimension or metric")
)

// comparisonOps maps single-value operators to their SQL form.
var comparisonOps = map[FilterOp]string{
	OpEq: "=", OpNe: "<>", OpGt: ">", OpGte: ">=", OpLt: "<", OpLte: "<=",
	OpLike: "LIKE",
}

// buildFilters renders the WHERE and HAVING clauses. Dimension filters
// target the raw column (not the bucketed expression) so indexes stay
// usable; for reference queries, time-typed arguments on datetime
// dimensions are shifted back one reference interval. Metric filters
// target the aggregate expression.
func (b *Builder) buildFilters(spec Spec, ref *schema.Reference) (where string, whereArgs []any, having string, havingArgs []any, err error) {
	var whereParts, havingParts []string
	for _, f := range spec.Filters {
		if d, ok := b.slicer.Dimension(f.Field); ok {
			// Only the reference's own time axis shifts.
			fieldRef := ref
			if d.Kind != schema.KindDatetime {
				fieldRef = nil
			}
			part, args, err := renderCondition(d.Column, f, fieldRef)
			if err != nil {
				return "", nil, "", nil, err
			}
			whereParts = append(whereParts, part)
			whereArgs = append(whereArgs, args...)
			continue
		}
		if m, ok := b.slicer.Metric(f.Field); ok {
			part, args, err := renderCondition(metricExpr(m), f, nil)
			if err != nil {
				return "", nil, "", nil, err
			}
			havingParts = append(havingParts, part)
			havingArgs = append(havingArgs, args...)
			continue
		}
		return "", nil, "", nil, fmt.Errorf("%w: %q", ErrUnknownFilterField, f.Field)
	}
	return strings.Join(whereParts, " AND "), whereArgs,
		strings.Join(havingParts, " AND "), havingArgs, nil
}

// renderCondition renders one filter against the given SQL expression.
func renderCondition(expr string, f Filter, ref *schema.Reference) (string, []any, error) {
	switch f.Op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike:
		if len(f.Values) != 1 {
			return "", nil, fmt.Errorf("%w: %s on %q needs exactly one value", ErrBadFilter, f.Op, f.Field)
		}
		return fmt.Sprintf("%s %s ?", expr, comparisonOps[f.Op]),
			[]any{shiftTimeArg(f.Values[0], ref)}, nil
	case OpIn:
		if len(f.Values) == 0 {
			return "", nil, fmt.Errorf("%w: in on %q needs at least one value", ErrBadFilter, f.Field)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.Values)), ", ")
		args := make([]any, len(f.Values))
		for i, v := range f.Values {
			args[i] = shiftTimeArg(v, ref)
		}
		return fmt.Sprintf("%s IN (%s)", expr, placeholders), args, nil
	case OpBetween:
		if len(f.Values) != 2 {
			return "", nil, fmt.Errorf("%w: between on %q needs exactly two values", ErrBadFilter, f.Field)
		}
		return fmt.Sprintf("%s BETWEEN ? AND ?", expr),
			[]any{shiftTimeArg(f.Values[0], ref), shiftTimeArg(f.Values[1], ref)}, nil
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownFilterOp, f.Op)
	}
}
