package transformers

import (
	"strings"

	"github.com/emberbi/ember/internal/result"
	"github.com/emberbi/ember/internal/schema"
)

// Point is one chart data point. X is an epoch-millisecond timestamp
// for datetime axes, a number for continuous axes, and a category
// index for categorical axes. Y is nil for skipped/missing values only
// in pie payloads; elsewhere missing cells are omitted entirely.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Series is one rendered chart series.
type Series struct {
	Name      string  `json:"name"`
	Data      []Point `json:"data"`
	YAxis     int     `json:"yAxis"`
	DashStyle string  `json:"dashStyle,omitempty"`
}

// Axis describes a chart axis.
type Axis struct {
	Type       string   `json:"type,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Title      string   `json:"title,omitempty"`
}

// Chart is a highcharts-style payload.
type Chart struct {
	Type   string   `json:"type"`
	Title  string   `json:"title,omitempty"`
	XAxis  Axis     `json:"xAxis"`
	YAxis  []Axis   `json:"yAxis"`
	Series []Series `json:"series"`
}

// PieSlice is one wedge of a pie payload.
type PieSlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"y"`
}

// Pie is a pie chart payload.
type Pie struct {
	Type   string     `json:"type"`
	Title  string     `json:"title,omitempty"`
	Slices []PieSlice `json:"series"`
}

// ChartTransformer renders line, area, column and bar charts. The
// level-0 dimension spans the x axis; finer dimensions split series;
// each metric × reference column becomes its own series with reference
// variants drawn dotted.
type ChartTransformer struct {
	Widget schema.WidgetType
}

// chartTypeNames maps widget types to highcharts type strings.
var chartTypeNames = map[schema.WidgetType]string{
	schema.WidgetLineChart:   "line",
	schema.WidgetAreaChart:   "area",
	schema.WidgetColumnChart: "column",
	schema.WidgetBarChart:    "bar",
}

// Transform renders the table into a chart payload.
func (c ChartTransformer) Transform(t *result.Table, display Display) (*Chart, error) {
	if err := c.validate(t, display); err != nil {
		return nil, err
	}

	xAxis, xical := xAxisFor(t, display)
	metricPos := make(map[string]int, len(display.Metrics))
	for i, m := range display.Metrics {
		metricPos[m.Key] = i
	}

	type seriesKey struct {
		column int
		subKey string
	}
	var orderedKeys []seriesKey
	built := make(map[seriesKey]*Series)

	cols := t.Columns()
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		sub := subKeyLabel(row.Keys)
		x, ok := xical(row.Keys[0])
		if !ok {
			continue
		}
		for ci, col := range cols {
			cell := row.Cells[ci]
			if cell.IsNull() {
				continue
			}
			sk := seriesKey{column: ci, subKey: sub}
			s, seen := built[sk]
			if !seen {
				s = &Series{
					Name:  seriesName(display, col, sub),
					YAxis: metricPos[col.Metric],
				}
				if col.Reference != "" {
					s.DashStyle = "Dot"
				}
				built[sk] = s
				orderedKeys = append(orderedKeys, sk)
			}
			s.Data = append(s.Data, Point{X: x, Y: cell.Float})
		}
	}

	series := make([]Series, len(orderedKeys))
	for i, sk := range orderedKeys {
		series[i] = *built[sk]
	}
	yAxes := make([]Axis, len(display.Metrics))
	for i, m := range display.Metrics {
		yAxes[i] = Axis{Title: m.Title()}
	}
	return &Chart{
		Type:   chartTypeNames[c.Widget],
		XAxis:  xAxis,
		YAxis:  yAxes,
		Series: series,
	}, nil
}

// validate enforces the chart's shape preconditions: every chart needs
// at least one dimension, and column/bar charts cannot combine multiple
// dimensions with multiple metrics.
func (c ChartTransformer) validate(t *result.Table, display Display) error {
	if len(display.Dimensions) == 0 {
		return &TransformError{Widget: c.Widget, Reason: "at least one dimension is required"}
	}
	if c.Widget == schema.WidgetColumnChart || c.Widget == schema.WidgetBarChart {
		if len(display.Dimensions) > 1 && len(display.Metrics) > 1 {
			return &TransformError{
				Widget: c.Widget,
				Reason: "no more than 1 dimension or 2 dimensions with 1 metric are allowed",
			}
		}
	}
	if len(t.Dimensions()) != len(display.Dimensions) {
		return &TransformError{Widget: c.Widget, Reason: "result shape does not match display schema"}
	}
	return nil
}

// xAxisFor picks the axis type from the level-0 dimension and returns a
// converter from index key to x value. Categorical axes accumulate a
// category list and convert keys to category positions.
func xAxisFor(t *result.Table, display Display) (Axis, func(result.Key) (float64, bool)) {
	dim := display.Dimensions[0]
	switch dim.Kind {
	case schema.KindDatetime:
		return Axis{Type: "datetime"}, func(k result.Key) (float64, bool) {
			if k.IsNull() {
				return 0, false
			}
			return float64(k.Time.UnixMilli()), true
		}
	case schema.KindContinuous:
		return Axis{Type: "linear"}, func(k result.Key) (float64, bool) {
			if k.IsNull() {
				return 0, false
			}
			return k.Num, true
		}
	default:
		var categories []string
		positions := make(map[string]int)
		for _, g := range t.Groups() {
			positions[g.Key.String()] = len(categories)
			categories = append(categories, dimensionLabel(dim, g.Key))
		}
		return Axis{Type: "category", Categories: categories}, func(k result.Key) (float64, bool) {
			pos, ok := positions[k.String()]
			return float64(pos), ok
		}
	}
}

// subKeyLabel joins the non-level-0 key values into a series suffix.
func subKeyLabel(keys []result.Key) string {
	if len(keys) <= 1 {
		return ""
	}
	parts := make([]string, 0, len(keys)-1)
	for _, k := range keys[1:] {
		if k.IsNull() {
			continue
		}
		parts = append(parts, k.Display())
	}
	return strings.Join(parts, ", ")
}

// seriesName builds "Metric Ref (sub dimensions)".
func seriesName(display Display, col result.Column, sub string) string {
	name := display.ColumnTitle(col.Metric, col.Reference)
	if sub != "" {
		name += " (" + sub + ")"
	}
	return name
}

// PieTransformer renders pie charts: one slice per row, labeled by the
// row's dimension values, valued by the first metric.
type PieTransformer struct{}

// Transform renders the table into a pie payload.
func (PieTransformer) Transform(t *result.Table, display Display) (*Pie, error) {
	if len(display.Dimensions) == 0 {
		return nil, &TransformError{Widget: schema.WidgetPieChart, Reason: "at least one dimension is required"}
	}
	if len(display.Metrics) != 1 {
		return nil, &TransformError{Widget: schema.WidgetPieChart, Reason: "exactly one metric is required"}
	}
	col, ok := t.ColumnIndex(display.Metrics[0].Key, "")
	if !ok {
		return nil, &TransformError{Widget: schema.WidgetPieChart, Reason: "metric column missing from result"}
	}

	pie := &Pie{Type: "pie"}
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		cell := row.Cells[col]
		if cell.IsNull() {
			continue
		}
		parts := make([]string, 0, len(row.Keys))
		for li, k := range row.Keys {
			if k.IsNull() {
				continue
			}
			parts = append(parts, dimensionLabel(display.Dimensions[li], k))
		}
		pie.Slices = append(pie.Slices, PieSlice{
			Name:  strings.Join(parts, ", "),
			Value: cell.Float,
		})
	}
	return pie, nil
}
