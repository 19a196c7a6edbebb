// Package transformers turns paginated result tables into the payloads
// widgets consume: highcharts-style chart configs, row-index tables and
// CSV exports.
package transformers

import (
	"fmt"

	"github.com/emberbi/ember/internal/result"
	"github.com/emberbi/ember/internal/schema"
)

// TransformError reports a table that cannot be rendered by a widget,
// e.g. a chart missing its required dimensions. Transform preconditions
// are validated eagerly so a wrong shape fails fast instead of
// degrading to a wrong chart.
type TransformError struct {
	Widget schema.WidgetType
	Reason string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("cannot transform %s: %s", e.Widget, e.Reason)
}

// Display carries the labels used to render a result: the slicer
// objects behind the selected dimension and metric keys, in selection
// order, plus the requested references.
type Display struct {
	Dimensions []schema.Dimension
	Metrics    []schema.Metric
	References []schema.Reference
}

// NewDisplay resolves the selected keys against the slicer.
func NewDisplay(s *schema.Slicer, metrics, dimensions, references []string) (Display, error) {
	var d Display
	for _, dk := range dimensions {
		dim, ok := s.Dimension(dk)
		if !ok {
			return Display{}, fmt.Errorf("%w: dimension %q", schema.ErrUnknownField, dk)
		}
		d.Dimensions = append(d.Dimensions, dim)
	}
	for _, mk := range metrics {
		m, ok := s.Metric(mk)
		if !ok {
			return Display{}, fmt.Errorf("%w: metric %q", schema.ErrUnknownField, mk)
		}
		d.Metrics = append(d.Metrics, m)
	}
	for _, rk := range references {
		ref, err := schema.ParseReference(rk)
		if err != nil {
			return Display{}, err
		}
		d.References = append(d.References, ref)
	}
	return d, nil
}

// MetricTitle returns the display label for a metric key.
func (d Display) MetricTitle(key string) string {
	for _, m := range d.Metrics {
		if m.Key == key {
			return m.Title()
		}
	}
	return key
}

// ReferenceTitle returns the display label for a reference key, or ""
// for the base variant.
func (d Display) ReferenceTitle(key string) string {
	if key == "" {
		return ""
	}
	for _, r := range d.References {
		if r.Key() == key {
			return r.Label()
		}
	}
	return key
}

// dimensionLabel renders a dimension value for display: the label the
// query selected for it (unique dimensions), the schema's display
// option (categorical dimensions), or the raw value.
func dimensionLabel(d schema.Dimension, k result.Key) string {
	if k.Label != "" {
		return k.Label
	}
	return d.DisplayLabel(k.String())
}

// ColumnTitle combines metric and reference labels, e.g. "Votes WoW Δ".
func (d Display) ColumnTitle(metric, reference string) string {
	title := d.MetricTitle(metric)
	if ref := d.ReferenceTitle(reference); ref != "" {
		title += " " + ref
	}
	return title
}
