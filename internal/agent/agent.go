// Package agent implements the in-memory query engine behind paginated data
// grids: filter, then sort, then paginate a fixed snapshot of records.
package agent

import (
	"context"
	"reflect"
	"slices"
	"strings"

	"golang.org/x/text/language"

	"github.com/alfredjeanlab/gridq/internal/model"
)

// DataAgent answers queries with one page of records. The returned channel
// delivers exactly one page and is then closed.
type DataAgent[T any] interface {
	Fetch(ctx context.Context, q model.Query) <-chan []T
}

// Option configures a StaticAgent.
type Option func(*options)

type options struct {
	locale language.Tag
}

// WithLocale sets the collation locale used when sorting by string values.
func WithLocale(tag language.Tag) Option {
	return func(o *options) {
		o.locale = tag
	}
}

// StaticAgent serves queries over a dataset supplied once at construction.
// The dataset is treated as read-only; each query works on its own copy.
type StaticAgent[T ~map[string]any] struct {
	data   []T
	locale language.Tag
}

var _ DataAgent[model.Record] = (*StaticAgent[model.Record])(nil)

// NewStatic returns an agent over data. Anything that is not a sequence of
// records (nil, a number, a string, a single map) is treated as an empty
// dataset; construction never fails.
func NewStatic[T ~map[string]any](data any, opts ...Option) *StaticAgent[T] {
	o := options{locale: language.English}
	for _, opt := range opts {
		opt(&o)
	}
	return &StaticAgent[T]{data: asRecords[T](data), locale: o.locale}
}

// asRecords accepts any slice of a map[string]any type, or of an interface
// type holding such maps. Elements that are not records become empty records.
func asRecords[T ~map[string]any](data any) []T {
	switch v := data.(type) {
	case []T:
		return v
	case []map[string]any:
		out := make([]T, len(v))
		for i, m := range v {
			out[i] = T(m)
		}
		return out
	case []any:
		out := make([]T, len(v))
		for i, e := range v {
			out[i] = asRecord[T](e)
		}
		return out
	}

	rv := reflect.ValueOf(data)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	if et := rv.Type().Elem(); et.Kind() != reflect.Interface && !et.ConvertibleTo(reflect.TypeFor[T]()) {
		return nil
	}
	out := make([]T, rv.Len())
	for i := range out {
		out[i] = asRecord[T](rv.Index(i).Interface())
	}
	return out
}

// asRecord converts e to T when its type is convertible, for example another
// named map[string]any type.
func asRecord[T ~map[string]any](e any) T {
	switch m := e.(type) {
	case T:
		return m
	case map[string]any:
		return T(m)
	}
	rv := reflect.ValueOf(e)
	if rt := reflect.TypeFor[T](); rv.IsValid() && rv.Type().ConvertibleTo(rt) {
		return rv.Convert(rt).Interface().(T)
	}
	var zero T
	return zero
}

// Len returns the number of records in the dataset.
func (a *StaticAgent[T]) Len() int {
	return len(a.data)
}

// Fetch runs q and delivers the page on a buffered channel that is closed
// after the single value. It never blocks and never fails.
func (a *StaticAgent[T]) Fetch(_ context.Context, q model.Query) <-chan []T {
	ch := make(chan []T, 1)
	page, _ := a.Query(q)
	ch <- page
	close(ch)
	return ch
}

// Query runs q synchronously and returns the page together with the number of
// records that matched the filter.
func (a *StaticAgent[T]) Query(q model.Query) (page []T, total int) {
	rows := a.filter(q.Filter)
	if q.SortBy != "" {
		sortRows(rows, q.SortBy, q.SortDirection, a.locale)
	}
	start, end := q.Window(len(rows))
	page = make([]T, end-start)
	copy(page, rows[start:end])
	return page, len(rows)
}

// filter returns a fresh slice holding the records that match text. The
// agent's own slice is never handed to the sort.
func (a *StaticAgent[T]) filter(text string) []T {
	if text == "" {
		return slices.Clone(a.data)
	}
	needle := strings.ToLower(text)
	rows := make([]T, 0, len(a.data))
	for _, rec := range a.data {
		if matches(rec, needle) {
			rows = append(rows, rec)
		}
	}
	return rows
}

// matches reports whether any field of rec contains needle, which must
// already be lower-cased. A nil record has no fields.
func matches[T ~map[string]any](rec T, needle string) bool {
	for _, v := range rec {
		if strings.Contains(strings.ToLower(Stringify(v)), needle) {
			return true
		}
	}
	return false
}
