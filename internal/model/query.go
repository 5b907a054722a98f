package model

import (
	"encoding/json"
	"strings"
)

// DefaultPageSize is used when a query leaves PageSize unset (or sets it to zero).
const DefaultPageSize = 10

// SortDirection orders sorted results. The zero value is Ascending.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// String returns "asc" or "desc".
func (d SortDirection) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Sign returns the comparator multiplier for the direction: +1 or -1.
func (d SortDirection) Sign() int {
	if d == Descending {
		return -1
	}
	return 1
}

// ParseSortDirection maps "desc", "descending", "-" and "1" (any case,
// surrounding space ignored) to Descending.
// Anything else, including the empty string, is Ascending.
func ParseSortDirection(s string) SortDirection {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending", "-", "1":
		return Descending
	}
	return Ascending
}

// MarshalJSON encodes the direction as "asc" or "desc".
func (d SortDirection) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "asc"/"desc" strings or the numbers 0/1. Unknown
// values decode as Ascending rather than failing.
func (d *SortDirection) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = ParseSortDirection(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil && n == 1 {
		*d = Descending
		return nil
	}
	*d = Ascending
	return nil
}

// Query describes which page of a dataset to return. Every field is optional;
// the zero value is the empty query: no filter, no sort, page 1, 10 rows.
type Query struct {
	Filter        string        `json:"filter,omitempty"`
	Page          int           `json:"page,omitempty"`      // 1-based
	PageSize      int           `json:"page_size,omitempty"` // 0 = DefaultPageSize
	SortBy        string        `json:"sort_by,omitempty"`
	SortDirection SortDirection `json:"sort_direction,omitempty"`
}

// EffectivePage returns the 1-based page to serve. Values below 1 are clamped to 1.
func (q Query) EffectivePage() int {
	if q.Page < 1 {
		return 1
	}
	return q.Page
}

// EffectivePageSize returns PageSize, or DefaultPageSize when it is zero or negative.
func (q Query) EffectivePageSize() int {
	if q.PageSize <= 0 {
		return DefaultPageSize
	}
	return q.PageSize
}

// Window returns the half-open [start, end) slice bounds of the page within a
// sequence of n rows. Bounds are clipped to [0, n].
func (q Query) Window(n int) (start, end int) {
	size := q.EffectivePageSize()
	skip := q.EffectivePage() - 1
	if skip > n/size {
		return n, n
	}
	start = skip * size
	if start > n {
		start = n
	}
	end = start + size
	if end > n {
		end = n
	}
	return start, end
}

// WithSort sets SortBy and SortDirection from a "-field" style sort key, where
// a leading "-" means descending. An empty key clears sorting.
func (q Query) WithSort(key string) Query {
	key = strings.TrimSpace(key)
	q.SortDirection = Ascending
	if strings.HasPrefix(key, "-") {
		q.SortDirection = Descending
		key = strings.TrimPrefix(key, "-")
	}
	q.SortBy = key
	return q
}
