package agent

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/alfredjeanlab/gridq/internal/model"
)

// valueKind classifies a field value for comparison.
type valueKind int

const (
	kindMissing valueKind = iota
	kindNumber
	kindTime
	kindString
)

func classify(v any) valueKind {
	switch x := v.(type) {
	case nil:
		return kindMissing
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return kindNumber
	case time.Time:
		return kindTime
	case *time.Time:
		if x == nil {
			return kindMissing
		}
		return kindTime
	}
	return kindString
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case json.Number:
		f, _ := x.Float64()
		return f
	}
	return cast.ToFloat64(v)
}

func toTime(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case *time.Time:
		return *x
	}
	return time.Time{}
}

// Stringify renders a field value the way filtering and string comparison
// see it. nil renders as the empty string.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.UTC().Format(time.RFC3339Nano)
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

// compareValues orders two field values. Two numbers compare numerically, two
// times compare by instant, and every other pairing (mixed kinds, missing
// values) falls back to collating the stringified values.
func compareValues(c *collate.Collator, a, b any) int {
	ka, kb := classify(a), classify(b)
	switch {
	case ka == kindNumber && kb == kindNumber:
		return cmp.Compare(toFloat(a), toFloat(b))
	case ka == kindTime && kb == kindTime:
		return toTime(a).Compare(toTime(b))
	}
	return c.CompareString(Stringify(a), Stringify(b))
}

// sortRows stably sorts rows in place by field. Descending flips the sign of
// the comparison, so rows with equal keys keep their relative order in both
// directions.
func sortRows[T ~map[string]any](rows []T, field string, dir model.SortDirection, locale language.Tag) {
	// Collators keep internal buffers; one per sort keeps concurrent queries apart.
	c := collate.New(locale)
	sign := dir.Sign()
	slices.SortStableFunc(rows, func(a, b T) int {
		return compareValues(c, a[field], b[field]) * sign
	})
}
