// Package schema models a slicer: the dimensional schema a report is
// built against. A slicer names a fact table plus its joins, metrics
// (numeric measures with SQL definitions), dimensions (datetime,
// continuous, categorical, unique) and the widgets that consume query
// results.
package schema

import (
	"errors"
	"fmt"
)

// DimensionKind classifies a dimension.
type DimensionKind string

const (
	// KindDatetime is a continuous time dimension bucketed by an interval.
	KindDatetime DimensionKind = "datetime"
	// KindContinuous is a numeric dimension bucketed by a step size.
	KindContinuous DimensionKind = "continuous"
	// KindCategorical is a discrete dimension with optional display options.
	KindCategorical DimensionKind = "categorical"
	// KindUnique is an identity dimension with a separate display column.
	KindUnique DimensionKind = "unique"
)

// Interval is a datetime bucketing granularity.
type Interval string

// Supported datetime intervals.
const (
	IntervalHour    Interval = "hour"
	IntervalDay     Interval = "day"
	IntervalWeek    Interval = "week"
	IntervalMonth   Interval = "month"
	IntervalQuarter Interval = "quarter"
	IntervalYear    Interval = "year"
)

// validIntervals is the set of accepted datetime intervals.
var validIntervals = map[Interval]struct{}{
	IntervalHour: {}, IntervalDay: {}, IntervalWeek: {},
	IntervalMonth: {}, IntervalQuarter: {}, IntervalYear: {},
}

// Dimension describes one dimension of the slicer.
type Dimension struct {
	Key    string        `yaml:"key"`
	Label  string        `yaml:"label,omitempty"`
	Kind   DimensionKind `yaml:"kind"`
	Column string        `yaml:"column"`

	// Interval applies to datetime dimensions only.
	Interval Interval `yaml:"interval,omitempty"`
	// Step applies to continuous dimensions only.
	Step float64 `yaml:"step,omitempty"`
	// Options maps raw categorical values to display labels.
	Options map[string]string `yaml:"options,omitempty"`
	// DisplayColumn applies to unique dimensions only.
	DisplayColumn string `yaml:"display_column,omitempty"`
	// Join names a join required to select this dimension.
	Join string `yaml:"join,omitempty"`
}

// DisplayLabel returns the label shown for a dimension value, mapping
// through Options for categorical dimensions.
func (d Dimension) DisplayLabel(value string) string {
	if label, ok := d.Options[value]; ok {
		return label
	}
	return value
}

// Title returns the dimension's label, falling back to its key.
func (d Dimension) Title() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Key
}

// Metric describes one numeric measure.
type Metric struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label,omitempty"`
	// Definition is the SQL expression for the measure, e.g. "SUM(votes)".
	// When empty the builder defaults to SUM of the key column.
	Definition string `yaml:"definition,omitempty"`
	// Join names a join required to select this metric.
	Join string `yaml:"join,omitempty"`
}

// Title returns the metric's label, falling back to its key.
func (m Metric) Title() string {
	if m.Label != "" {
		return m.Label
	}
	return m.Key
}

// Join describes an auxiliary table joined to the fact table.
type Join struct {
	Key   string `yaml:"key"`
	Table string `yaml:"table"`
	On    string `yaml:"on"`
}

// WidgetType identifies a consuming widget.
type WidgetType string

// Supported widget types.
const (
	WidgetLineChart     WidgetType = "line_chart"
	WidgetAreaChart     WidgetType = "area_chart"
	WidgetColumnChart   WidgetType = "column_chart"
	WidgetBarChart      WidgetType = "bar_chart"
	WidgetPieChart      WidgetType = "pie_chart"
	WidgetRowIndexTable WidgetType = "row_index_table"
	WidgetCSV           WidgetType = "csv"
)

// validWidgets is the set of accepted widget types.
var validWidgets = map[WidgetType]struct{}{
	WidgetLineChart: {}, WidgetAreaChart: {}, WidgetColumnChart: {},
	WidgetBarChart: {}, WidgetPieChart: {}, WidgetRowIndexTable: {},
	WidgetCSV: {},
}

// Widget is a consumer of a paginated result. Chart widgets paginate
// within each top-level group so every series keeps the same x-axis
// domain; tabular widgets page across the whole row sequence.
type Widget struct {
	Type WidgetType `yaml:"type"`
	// GroupPagination overrides the widget type's default when set.
	GroupPagination *bool `yaml:"group_pagination,omitempty"`
}

// GroupPaginated reports whether the widget needs group-local
// pagination. Charts default to true, tables and CSV to false.
func (w Widget) GroupPaginated() bool {
	if w.GroupPagination != nil {
		return *w.GroupPagination
	}
	switch w.Type {
	case WidgetLineChart, WidgetAreaChart, WidgetColumnChart, WidgetBarChart, WidgetPieChart:
		return true
	default:
		return false
	}
}

// Report is a named query preset: which metrics and dimensions to
// select, which reference comparisons to include, and which widgets
// consume the result.
type Report struct {
	Key        string   `yaml:"key"`
	Label      string   `yaml:"label,omitempty"`
	Metrics    []string `yaml:"metrics"`
	Dimensions []string `yaml:"dimensions,omitempty"`
	References []string `yaml:"references,omitempty"`
	Widgets    []Widget `yaml:"widgets"`
}

// Slicer is the root schema object.
type Slicer struct {
	Version    string      `yaml:"version"`
	Key        string      `yaml:"key"`
	Label      string      `yaml:"label,omitempty"`
	Table      string      `yaml:"table"`
	Joins      []Join      `yaml:"joins,omitempty"`
	Metrics    []Metric    `yaml:"metrics"`
	Dimensions []Dimension `yaml:"dimensions,omitempty"`
	Reports    []Report    `yaml:"reports,omitempty"`
}

// Metric returns the metric with the given key.
func (s *Slicer) Metric(key string) (Metric, bool) {
	for _, m := range s.Metrics {
		if m.Key == key {
			return m, true
		}
	}
	return Metric{}, false
}

// Dimension returns the dimension with the given key.
func (s *Slicer) Dimension(key string) (Dimension, bool) {
	for _, d := range s.Dimensions {
		if d.Key == key {
			return d, true
		}
	}
	return Dimension{}, false
}

// Join returns the join with the given key.
func (s *Slicer) Join(key string) (Join, bool) {
	for _, j := range s.Joins {
		if j.Key == key {
			return j, true
		}
	}
	return Join{}, false
}

// Report returns the report with the given key.
func (s *Slicer) Report(key string) (Report, bool) {
	for _, r := range s.Reports {
		if r.Key == key {
			return r, true
		}
	}
	return Report{}, false
}

// Validation errors.
var (
	ErrMissingTable   = errors.New("slicer table is required")
	ErrNoMetrics      = errors.New("slicer requires at least one metric")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrUnknownKind    = errors.New("unknown dimension kind")
	ErrUnknownJoin    = errors.New("unknown join")
	ErrBadInterval    = errors.New("invalid datetime interval")
	ErrUnknownField   = errors.New("unknown field")
	ErrUnknownWidget  = errors.New("unknown widget type")
	ErrReportNoWidget = errors.New("report requires at least one widget")
)

// Validate checks structural consistency: unique keys for metrics and
// dimensions (which share the sort-key namespace) and separately for
// joins, known dimension kinds and intervals, join references that
// resolve, and reports whose fields exist.
func (s *Slicer) Validate() error {
	if s.Table == "" {
		return ErrMissingTable
	}
	if len(s.Metrics) == 0 {
		return ErrNoMetrics
	}

	keys := make(map[string]struct{})
	claim := func(key string) error {
		if _, ok := keys[key]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
		keys[key] = struct{}{}
		return nil
	}

	// Joins are addressed through their own accessor namespace, so a
	// join may share a key with the dimension it backs.
	joins := make(map[string]struct{}, len(s.Joins))
	for _, j := range s.Joins {
		if _, ok := joins[j.Key]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, j.Key)
		}
		joins[j.Key] = struct{}{}
	}
	for _, m := range s.Metrics {
		if err := claim(m.Key); err != nil {
			return err
		}
		if m.Join != "" {
			if _, ok := joins[m.Join]; !ok {
				return fmt.Errorf("%w: %q (metric %q)", ErrUnknownJoin, m.Join, m.Key)
			}
		}
	}
	for _, d := range s.Dimensions {
		if err := claim(d.Key); err != nil {
			return err
		}
		switch d.Kind {
		case KindDatetime:
			if d.Interval != "" {
				if _, ok := validIntervals[d.Interval]; !ok {
					return fmt.Errorf("%w: %q (dimension %q)", ErrBadInterval, d.Interval, d.Key)
				}
			}
		case KindContinuous, KindCategorical, KindUnique:
		default:
			return fmt.Errorf("%w: %q (dimension %q)", ErrUnknownKind, d.Kind, d.Key)
		}
		if d.Join != "" {
			if _, ok := joins[d.Join]; !ok {
				return fmt.Errorf("%w: %q (dimension %q)", ErrUnknownJoin, d.Join, d.Key)
			}
		}
	}

	for _, r := range s.Reports {
		if err := s.validateReport(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Slicer) validateReport(r Report) error {
	if len(r.Widgets) == 0 {
		return fmt.Errorf("%w: report %q", ErrReportNoWidget, r.Key)
	}
	for _, w := range r.Widgets {
		if _, ok := validWidgets[w.Type]; !ok {
			return fmt.Errorf("%w: %q (report %q)", ErrUnknownWidget, w.Type, r.Key)
		}
	}
	for _, mk := range r.Metrics {
		if _, ok := s.Metric(mk); !ok {
			return fmt.Errorf("%w: metric %q (report %q)", ErrUnknownField, mk, r.Key)
		}
	}
	for _, dk := range r.Dimensions {
		if _, ok := s.Dimension(dk); !ok {
			return fmt.Errorf("%w: dimension %q (report %q)", ErrUnknownField, dk, r.Key)
		}
	}
	for _, rk := range r.References {
		if _, err := ParseReference(rk); err != nil {
			return fmt.Errorf("report %q: %w", r.Key, err)
		}
	}
	return nil
}
