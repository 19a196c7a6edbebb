// Package querybuilder turns a slicer schema plus a query spec into
// executable SQL. It produces one base query and, when reference
// comparisons are requested, one additional query per reference with
// its time window shifted back and its datetime dimension re-aligned so
// the executor can join the results on the row index.
package querybuilder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emberbi/ember/internal/report"
	"github.com/emberbi/ember/internal/schema"
)

// Build errors.
var (
	ErrUnknownMetric    = errors.New("unknown metric")
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrNoMetrics        = errors.New("query requires at least one metric")
	ErrNoDatetime       = errors.New("reference queries require a datetime dimension")
	ErrNoDimensions     = errors.New("latest query requires at least one dimension")
)

// Spec describes one query to build.
type Spec struct {
	Metrics    []string
	Dimensions []string
	Filters    []Filter
	References []schema.Reference
	Orders     []report.Order
	Limit      int
	Offset     int
}

// Query is a built SQL statement with its bind arguments.
type Query struct {
	SQL  string
	Args []any
}

// Builder builds queries for one slicer.
type Builder struct {
	slicer *schema.Slicer
}

// New returns a Builder for the slicer.
func New(s *schema.Slicer) *Builder {
	return &Builder{slicer: s}
}

// Build produces the base query: dimension expressions and metric
// aggregates over the fact table, grouped by the dimensions, filtered,
// ordered and bounded per the spec.
func (b *Builder) Build(spec Spec) (Query, error) {
	return b.build(spec, nil)
}

// BuildReference produces the query for one reference comparison. The
// spec's time-range filters over the reference's datetime dimension are
// shifted back one interval, and the selected datetime expression is
// shifted forward again so result rows align with the base query's row
// index.
func (b *Builder) BuildReference(spec Spec, ref schema.Reference) (Query, error) {
	return b.build(spec, &ref)
}

// BuildLatest produces the query that fetches the most recent value of
// each named dimension: one MAX over the raw column per dimension, with
// the dimensions' joins applied and no filtering or grouping.
func (b *Builder) BuildLatest(dims ...string) (Query, error) {
	if len(dims) == 0 {
		return Query{}, ErrNoDimensions
	}
	var (
		selects []string
		joins   []string
	)
	joinSeen := make(map[string]struct{})
	for _, dk := range dims {
		d, ok := b.slicer.Dimension(dk)
		if !ok {
			return Query{}, fmt.Errorf("%w: %q", ErrUnknownDimension, dk)
		}
		if d.Join != "" {
			if _, seen := joinSeen[d.Join]; !seen {
				j, ok := b.slicer.Join(d.Join)
				if !ok {
					return Query{}, fmt.Errorf("%w: %q", schema.ErrUnknownJoin, d.Join)
				}
				joinSeen[d.Join] = struct{}{}
				joins = append(joins, fmt.Sprintf("JOIN %s ON %s", j.Table, j.On))
			}
		}
		selects = append(selects, fmt.Sprintf("MAX(%s) AS %s", d.Column, quoteIdent(d.Key)))
	}
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selects, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.slicer.Table)
	for _, j := range joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	return Query{SQL: sb.String()}, nil
}

func (b *Builder) build(spec Spec, ref *schema.Reference) (Query, error) {
	if len(spec.Metrics) == 0 {
		return Query{}, ErrNoMetrics
	}
	if ref != nil && b.datetimeDimension(spec) == nil {
		return Query{}, ErrNoDatetime
	}

	var (
		selects  []string
		groupBys []string
		joins    []string
		args     []any
	)
	joinSeen := make(map[string]struct{})
	addJoin := func(key string) error {
		if key == "" {
			return nil
		}
		if _, ok := joinSeen[key]; ok {
			return nil
		}
		j, ok := b.slicer.Join(key)
		if !ok {
			return fmt.Errorf("%w: %q", schema.ErrUnknownJoin, key)
		}
		joinSeen[key] = struct{}{}
		joins = append(joins, fmt.Sprintf("JOIN %s ON %s", j.Table, j.On))
		return nil
	}

	for _, dk := range spec.Dimensions {
		d, ok := b.slicer.Dimension(dk)
		if !ok {
			return Query{}, fmt.Errorf("%w: %q", ErrUnknownDimension, dk)
		}
		if err := addJoin(d.Join); err != nil {
			return Query{}, err
		}
		expr := b.dimensionExpr(d, ref)
		selects = append(selects, fmt.Sprintf("%s AS %s", expr, quoteIdent(d.Key)))
		groupBys = append(groupBys, expr)
		// Unique dimensions select their display column alongside the id.
		if d.Kind == schema.KindUnique && d.DisplayColumn != "" {
			selects = append(selects, fmt.Sprintf("%s AS %s", d.DisplayColumn, quoteIdent(d.Key+"_display")))
			groupBys = append(groupBys, d.DisplayColumn)
		}
	}
	for _, mk := range spec.Metrics {
		m, ok := b.slicer.Metric(mk)
		if !ok {
			return Query{}, fmt.Errorf("%w: %q", ErrUnknownMetric, mk)
		}
		if err := addJoin(m.Join); err != nil {
			return Query{}, err
		}
		selects = append(selects, fmt.Sprintf("%s AS %s", metricExpr(m), quoteIdent(m.Key)))
	}

	where, whereArgs, having, havingArgs, err := b.buildFilters(spec, ref)
	if err != nil {
		return Query{}, err
	}
	args = append(args, whereArgs...)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selects, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.slicer.Table)
	for _, j := range joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if len(groupBys) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(groupBys, ", "))
	}
	if having != "" {
		sb.WriteString(" HAVING ")
		sb.WriteString(having)
		args = append(args, havingArgs...)
	}
	orderBy, err := b.buildOrderBy(spec)
	if err != nil {
		return Query{}, err
	}
	if orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(orderBy)
	}
	if spec.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", spec.Limit)
	}
	if spec.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", spec.Offset)
	}
	return Query{SQL: sb.String(), Args: args}, nil
}

// dimensionExpr renders the SELECT/GROUP BY expression for a dimension.
// For reference queries the datetime expression is shifted forward one
// interval so the shifted window's rows land on the base query's keys.
func (b *Builder) dimensionExpr(d schema.Dimension, ref *schema.Reference) string {
	switch d.Kind {
	case schema.KindDatetime:
		interval := d.Interval
		if interval == "" {
			interval = schema.IntervalDay
		}
		col := d.Column
		if ref != nil {
			col = fmt.Sprintf("%s + %s", col, ref.SQLInterval())
		}
		return fmt.Sprintf("DATE_TRUNC('%s', %s)", interval, col)
	case schema.KindContinuous:
		step := d.Step
		if step <= 0 {
			step = 1
		}
		return fmt.Sprintf("FLOOR(%s / %s) * %s", d.Column, formatStep(step), formatStep(step))
	default:
		return d.Column
	}
}

// metricExpr renders the aggregate expression for a metric, defaulting
// to a SUM over the key column.
func metricExpr(m schema.Metric) string {
	if m.Definition != "" {
		return m.Definition
	}
	return fmt.Sprintf("SUM(%s)", m.Key)
}

// buildOrderBy renders the ORDER BY clause from the spec's orders.
// Reference-qualified orders are meaningless at the SQL level (reference
// columns only exist after the executor merge) and are skipped; the
// in-memory sort engine applies them later.
func (b *Builder) buildOrderBy(spec Spec) (string, error) {
	var parts []string
	for _, o := range spec.Orders {
		if o.Reference != "" {
			continue
		}
		if _, ok := b.slicer.Dimension(o.Field); !ok {
			if _, ok := b.slicer.Metric(o.Field); !ok {
				return "", fmt.Errorf("%w: order field %q", ErrUnknownDimension, o.Field)
			}
		}
		parts = append(parts, fmt.Sprintf("%s %s", quoteIdent(o.Field), strings.ToUpper(o.Direction.String())))
	}
	return strings.Join(parts, ", "), nil
}

// datetimeDimension returns the first datetime dimension selected by the
// spec, or nil.
func (b *Builder) datetimeDimension(spec Spec) *schema.Dimension {
	for _, dk := range spec.Dimensions {
		if d, ok := b.slicer.Dimension(dk); ok && d.Kind == schema.KindDatetime {
			return &d
		}
	}
	return nil
}

// quoteIdent double-quotes a result alias.
func quoteIdent(s string) string {
	return `"` + s + `"`
}

// formatStep renders a continuous step without a trailing .0 for whole
// numbers.
func formatStep(step float64) string {
	if step == float64(int64(step)) {
		return fmt.Sprintf("%d", int64(step))
	}
	return strings.TrimRight(fmt.Sprintf("%f", step), "0")
}

// shiftTimeArg shifts time-typed filter arguments for reference queries.
func shiftTimeArg(v any, ref *schema.Reference) any {
	if ref == nil {
		return v
	}
	if t, ok := v.(time.Time); ok {
		return ref.Shift(t)
	}
	return v
}
