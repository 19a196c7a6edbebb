package executor

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/emberbi/ember/internal/querybuilder"
	"github.com/emberbi/ember/internal/result"
	"github.com/emberbi/ember/internal/schema"
)

// ErrScan is returned when a database value cannot be decoded into the
// expected dimension or metric type.
var ErrScan = errors.New("cannot decode database value")

// timeLayouts are tried in order for drivers that return datetimes as
// text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// merge decodes the base rows into a table and folds the reference
// rows onto it. Reference rows whose index tuple has no base row are
// dropped: the base query defines the row index, and reference data
// without a current-period counterpart has nothing to compare against.
// Delta and delta-percent references are computed here against the
// base cell.
func (e *Executor) merge(spec querybuilder.Spec, base rawRows, refs []rawRows) (*result.Table, error) {
	dims := make([]schema.Dimension, len(spec.Dimensions))
	width := len(spec.Metrics)
	for i, dk := range spec.Dimensions {
		d, ok := e.slicer.Dimension(dk)
		if !ok {
			return nil, fmt.Errorf("%w: %q", querybuilder.ErrUnknownDimension, dk)
		}
		dims[i] = d
		width++
		if hasDisplay(d) {
			width++
		}
	}

	cols := make([]result.Column, 0, len(spec.Metrics)*(1+len(spec.References)))
	for _, mk := range spec.Metrics {
		cols = append(cols, result.Column{Metric: mk})
	}
	for _, ref := range spec.References {
		for _, mk := range spec.Metrics {
			cols = append(cols, result.Column{Metric: mk, Reference: ref.Key()})
		}
	}

	rows := make([]result.Row, 0, len(base.rows))
	index := make(map[string]int, len(base.rows))
	for _, raw := range base.rows {
		if len(raw) != width {
			return nil, fmt.Errorf("%w: row has %d columns, want %d", ErrScan, len(raw), width)
		}
		keys, next, err := decodeKeys(raw, dims)
		if err != nil {
			return nil, err
		}
		row := result.Row{
			Keys:  keys,
			Cells: make([]result.Value, len(cols)),
		}
		for i := range spec.Metrics {
			v, err := decodeValue(raw[next+i])
			if err != nil {
				return nil, err
			}
			row.Cells[i] = v
		}
		index[result.RowKey(row.Keys)] = len(rows)
		rows = append(rows, row)
	}

	for ri, ref := range spec.References {
		colBase := len(spec.Metrics) * (1 + ri)
		for _, raw := range refs[ri].rows {
			if len(raw) != width {
				return nil, fmt.Errorf("%w: reference row has %d columns, want %d",
					ErrScan, len(raw), width)
			}
			keys, next, err := decodeKeys(raw, dims)
			if err != nil {
				return nil, err
			}
			rowIdx, ok := index[result.RowKey(keys)]
			if !ok {
				continue
			}
			for i := range spec.Metrics {
				v, err := decodeValue(raw[next+i])
				if err != nil {
					return nil, err
				}
				rows[rowIdx].Cells[colBase+i] = applyModifier(ref, rows[rowIdx].Cells[i], v)
			}
		}
	}

	return result.NewTable(dimensionKeys(dims), cols, rows)
}

// hasDisplay reports whether a dimension selects a display column
// alongside its value.
func hasDisplay(d schema.Dimension) bool {
	return d.Kind == schema.KindUnique && d.DisplayColumn != ""
}

// decodeKeys decodes one raw row's leading columns into index keys,
// consuming the display column after each unique dimension's id, and
// returns the position of the first metric column.
func decodeKeys(raw []any, dims []schema.Dimension) ([]result.Key, int, error) {
	keys := make([]result.Key, len(dims))
	pos := 0
	for i, d := range dims {
		k, err := decodeKey(raw[pos], d)
		if err != nil {
			return nil, 0, err
		}
		pos++
		if hasDisplay(d) {
			if raw[pos] != nil {
				k.Label = decodeString(raw[pos])
			}
			pos++
		}
		keys[i] = k
	}
	return keys, pos, nil
}

func decodeString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}

// applyModifier presents a reference value per the reference modifier:
// the prior value itself, the delta against the base, or the delta as a
// percentage of the prior value.
func applyModifier(ref schema.Reference, base, prior result.Value) result.Value {
	switch ref.Modifier {
	case schema.RefDelta:
		if base.IsNull() || prior.IsNull() {
			return result.Null()
		}
		return result.Number(base.Float - prior.Float)
	case schema.RefDeltaPercent:
		if base.IsNull() || prior.IsNull() || prior.Float == 0 {
			return result.Null()
		}
		return result.Number((base.Float - prior.Float) / prior.Float * 100)
	default:
		return prior
	}
}

func dimensionKeys(dims []schema.Dimension) []string {
	keys := make([]string, len(dims))
	for i, d := range dims {
		keys[i] = d.Key
	}
	return keys
}

// decodeKey converts a scanned dimension value into a typed index key.
func decodeKey(v any, d schema.Dimension) (result.Key, error) {
	if v == nil {
		return result.NullKey(), nil
	}
	switch d.Kind {
	case schema.KindDatetime:
		switch t := v.(type) {
		case time.Time:
			return result.TimeKey(t), nil
		case string:
			return parseTimeKey(t)
		case []byte:
			return parseTimeKey(string(t))
		}
	case schema.KindContinuous:
		f, err := toFloat(v)
		if err != nil {
			return result.Key{}, fmt.Errorf("dimension %q: %w", d.Key, err)
		}
		return result.NumberKey(f), nil
	default:
		switch s := v.(type) {
		case string:
			return result.StringKey(s), nil
		case []byte:
			return result.StringKey(string(s)), nil
		default:
			return result.StringKey(fmt.Sprint(v)), nil
		}
	}
	return result.Key{}, fmt.Errorf("%w: %T for dimension %q", ErrScan, v, d.Key)
}

func parseTimeKey(s string) (result.Key, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return result.TimeKey(t), nil
		}
	}
	return result.Key{}, fmt.Errorf("%w: %q is not a datetime", ErrScan, s)
}

// decodeValue converts a scanned metric value into a cell.
func decodeValue(v any) (result.Value, error) {
	if v == nil {
		return result.Null(), nil
	}
	f, err := toFloat(v)
	if err != nil {
		return result.Value{}, err
	}
	return result.Number(f), nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case []byte:
		return strconv.ParseFloat(string(n), 64)
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("%w: %T is not numeric", ErrScan, v)
	}
}
