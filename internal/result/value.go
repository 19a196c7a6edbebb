package result

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// KeyKind identifies the underlying type of a dimension key value.
type KeyKind int

const (
	// KindNull marks a missing dimension value (e.g. a rolled-up totals row).
	KindNull KeyKind = iota
	// KindString holds categorical and unique dimension values.
	KindString
	// KindNumber holds continuous dimension values.
	KindNumber
	// KindTime holds datetime dimension values.
	KindTime
)

// Key is a single dimension value in a row index level.
// Keys of one index level share a kind; mixed kinds compare by kind first
// so ordering stays total either way.
type Key struct {
	Kind KeyKind
	Str  string
	Num  float64
	Time time.Time
	// Label carries a display label selected alongside the value, e.g.
	// the display column of a unique dimension. It never participates
	// in comparison or row-key identity.
	Label string
}

// StringKey returns a categorical key.
func StringKey(s string) Key { return Key{Kind: KindString, Str: s} }

// NumberKey returns a continuous key.
func NumberKey(f float64) Key { return Key{Kind: KindNumber, Num: f} }

// TimeKey returns a datetime key.
func TimeKey(t time.Time) Key { return Key{Kind: KindTime, Time: t} }

// NullKey returns the missing-value key.
func NullKey() Key { return Key{Kind: KindNull} }

// IsNull reports whether the key carries no value. A NaN continuous key
// counts as null so it sorts with the other missing values.
func (k Key) IsNull() bool {
	return k.Kind == KindNull || (k.Kind == KindNumber && math.IsNaN(k.Num))
}

// Compare orders keys ascending with nulls strictly last, returning
// -1, 0 or +1. Callers implementing descending order must not invert
// comparisons involving a null operand.
func (k Key) Compare(o Key) int {
	switch {
	case k.IsNull() && o.IsNull():
		return 0
	case k.IsNull():
		return 1
	case o.IsNull():
		return -1
	}
	if k.Kind != o.Kind {
		if k.Kind < o.Kind {
			return -1
		}
		return 1
	}
	switch k.Kind {
	case KindString:
		switch {
		case k.Str < o.Str:
			return -1
		case k.Str > o.Str:
			return 1
		}
	case KindNumber:
		switch {
		case k.Num < o.Num:
			return -1
		case k.Num > o.Num:
			return 1
		}
	case KindTime:
		switch {
		case k.Time.Before(o.Time):
			return -1
		case k.Time.After(o.Time):
			return 1
		}
	case KindNull:
	}
	return 0
}

// String renders the key for display and for composite lookup keys.
func (k Key) String() string {
	switch k.Kind {
	case KindString:
		return k.Str
	case KindNumber:
		return strconv.FormatFloat(k.Num, 'g', -1, 64)
	case KindTime:
		return k.Time.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// Display returns the key's display label when one was selected,
// falling back to the rendered value.
func (k Key) Display() string {
	if k.Label != "" {
		return k.Label
	}
	return k.String()
}

// Value is a single metric cell: a float64 plus validity. Invalid or NaN
// values represent missing data and always sort after present values.
type Value struct {
	Float float64
	Valid bool
}

// Number returns a present metric value.
func Number(f float64) Value { return Value{Float: f, Valid: true} }

// Null returns the missing metric value.
func Null() Value { return Value{} }

// IsNull reports whether the cell holds no usable number.
func (v Value) IsNull() bool {
	return !v.Valid || math.IsNaN(v.Float)
}

// Compare orders values ascending with nulls strictly last.
func (v Value) Compare(o Value) int {
	switch {
	case v.IsNull() && o.IsNull():
		return 0
	case v.IsNull():
		return 1
	case o.IsNull():
		return -1
	case v.Float < o.Float:
		return -1
	case v.Float > o.Float:
		return 1
	}
	return 0
}

// String renders the value for display; missing cells render empty.
func (v Value) String() string {
	if v.IsNull() {
		return ""
	}
	return strconv.FormatFloat(v.Float, 'g', -1, 64)
}

// Column identifies one column of a table: a metric key, optionally
// qualified by a reference variant (e.g. week-over-week).
type Column struct {
	Metric    string
	Reference string
}

// String returns "metric" for base columns and "reference.metric" for
// reference-qualified columns.
func (c Column) String() string {
	if c.Reference == "" {
		return c.Metric
	}
	return fmt.Sprintf("%s.%s", c.Reference, c.Metric)
}
