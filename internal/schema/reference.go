package schema

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ReferenceInterval is the period a reference comparison looks back over.
type ReferenceInterval string

// Supported reference intervals.
const (
	RefWeekOverWeek       ReferenceInterval = "wow"
	RefMonthOverMonth     ReferenceInterval = "mom"
	RefQuarterOverQuarter ReferenceInterval = "qoq"
	RefYearOverYear       ReferenceInterval = "yoy"
)

// ReferenceModifier changes how the compared value is presented.
type ReferenceModifier string

// Supported reference modifiers.
const (
	// RefValue presents the prior-period value as-is.
	RefValue ReferenceModifier = ""
	// RefDelta presents current minus prior.
	RefDelta ReferenceModifier = "d"
	// RefDeltaPercent presents the delta as a percentage of prior.
	RefDeltaPercent ReferenceModifier = "p"
)

// ErrUnknownReference is returned for reference keys that do not parse.
var ErrUnknownReference = errors.New("unknown reference")

// Reference is a comparison variant of the selected metrics: the same
// query shifted back one interval over the datetime dimension,
// optionally presented as a delta or delta-percent.
type Reference struct {
	Interval ReferenceInterval
	Modifier ReferenceModifier
}

// referenceLabels maps intervals to display labels.
var referenceLabels = map[ReferenceInterval]string{
	RefWeekOverWeek:       "WoW",
	RefMonthOverMonth:     "MoM",
	RefQuarterOverQuarter: "QoQ",
	RefYearOverYear:       "YoY",
}

// ParseReference parses keys like "wow", "mom_d" or "yoy_p".
func ParseReference(key string) (Reference, error) {
	base, mod, _ := strings.Cut(key, "_")
	interval := ReferenceInterval(base)
	if _, ok := referenceLabels[interval]; !ok {
		return Reference{}, fmt.Errorf("%w: %q", ErrUnknownReference, key)
	}
	switch ReferenceModifier(mod) {
	case RefValue, RefDelta, RefDeltaPercent:
		return Reference{Interval: interval, Modifier: ReferenceModifier(mod)}, nil
	default:
		return Reference{}, fmt.Errorf("%w: %q", ErrUnknownReference, key)
	}
}

// Key returns the canonical key, e.g. "wow" or "yoy_p".
func (r Reference) Key() string {
	if r.Modifier == RefValue {
		return string(r.Interval)
	}
	return fmt.Sprintf("%s_%s", r.Interval, r.Modifier)
}

// Label returns the display label, e.g. "WoW Δ%".
func (r Reference) Label() string {
	label := referenceLabels[r.Interval]
	switch r.Modifier {
	case RefDelta:
		return label + " Δ"
	case RefDeltaPercent:
		return label + " Δ%"
	default:
		return label
	}
}

// Shift moves a time back one reference interval. Months, quarters and
// years shift by calendar arithmetic; weeks by seven days.
func (r Reference) Shift(t time.Time) time.Time {
	switch r.Interval {
	case RefWeekOverWeek:
		return t.AddDate(0, 0, -7)
	case RefMonthOverMonth:
		return t.AddDate(0, -1, 0)
	case RefQuarterOverQuarter:
		return t.AddDate(0, -3, 0)
	case RefYearOverYear:
		return t.AddDate(-1, 0, 0)
	default:
		return t
	}
}

// SQLInterval returns the interval expression used to align the
// reference query's datetime dimension with the base query.
func (r Reference) SQLInterval() string {
	switch r.Interval {
	case RefWeekOverWeek:
		return "INTERVAL '1 WEEK'"
	case RefMonthOverMonth:
		return "INTERVAL '1 MONTH'"
	case RefQuarterOverQuarter:
		return "INTERVAL '3 MONTH'"
	case RefYearOverYear:
		return "INTERVAL '1 YEAR'"
	default:
		return ""
	}
}
