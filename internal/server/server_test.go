package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/alfredjeanlab/gridq/internal/catalog"
	"github.com/alfredjeanlab/gridq/internal/dataset"
	"github.com/alfredjeanlab/gridq/internal/model"
)

// peopleFixture is the 90-row dataset shared with the engine tests.
var peopleFixture = filepath.Join("..", "agent", "testdata", "people.json")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer returns a QueryServer with "people" loaded from the fixture
// and "pending" registered but never loaded.
func newTestServer(t *testing.T) *QueryServer {
	t.Helper()
	c := catalog.New(catalog.WithLogger(quietLogger()), catalog.WithLoadHook(ObserveDataset))
	if err := c.Register("people", &dataset.FileSource{Path: peopleFixture, DateFields: []string{"birth_date"}}); err != nil {
		t.Fatal(err)
	}
	if err := c.Register("pending", &dataset.FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Load(context.Background(), "people"); err != nil {
		t.Fatalf("loading fixture: %v", err)
	}
	return NewQueryServer(c, quietLogger())
}

// datasetsByName indexes infos by name; listings are sorted by name, not
// registration order.
func datasetsByName(infos []model.DatasetInfo) map[string]model.DatasetInfo {
	out := make(map[string]model.DatasetInfo, len(infos))
	for _, di := range infos {
		out[di.Name] = di
	}
	return out
}

func TestQueryServer_Query(t *testing.T) {
	qs := newTestServer(t)

	res, err := qs.Query(context.Background(), TransportHTTP, "people", model.Query{SortBy: "first_name"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Total != 90 || len(res.Rows) != 10 || res.Page != 1 || res.PageSize != 10 {
		t.Fatalf("unexpected envelope: total=%d rows=%d page=%d size=%d", res.Total, len(res.Rows), res.Page, res.PageSize)
	}
	if res.Rows[0]["first_name"] != "Adena" {
		t.Errorf("first row = %v, want Adena", res.Rows[0]["first_name"])
	}

	if _, err := qs.Query(context.Background(), TransportHTTP, "nope", model.Query{}); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := qs.Query(context.Background(), TransportHTTP, "pending", model.Query{}); !errors.Is(err, catalog.ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
}

func TestQueryServer_Metrics(t *testing.T) {
	qs := newTestServer(t)

	before := testutil.ToFloat64(QueriesTotal.WithLabelValues(TransportMCP, "people", "ok"))
	if _, err := qs.Query(context.Background(), TransportMCP, "people", model.Query{}); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(QueriesTotal.WithLabelValues(TransportMCP, "people", "ok")); got != before+1 {
		t.Errorf("ok counter = %v, want %v", got, before+1)
	}

	beforeUnknown := testutil.ToFloat64(QueriesTotal.WithLabelValues(TransportMCP, "unknown", "not_found"))
	_, _ = qs.Query(context.Background(), TransportMCP, "does-not-exist", model.Query{})
	if got := testutil.ToFloat64(QueriesTotal.WithLabelValues(TransportMCP, "unknown", "not_found")); got != beforeUnknown+1 {
		t.Errorf("not_found counter = %v, want %v", got, beforeUnknown+1)
	}

	if got := testutil.ToFloat64(DatasetRows.WithLabelValues("people")); got != 90 {
		t.Errorf("dataset rows gauge = %v, want 90", got)
	}
}

func TestErrorStatus(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{catalog.ErrNotFound, "not_found"},
		{catalog.ErrNotLoaded, "not_loaded"},
		{inputError("bad"), "invalid"},
		{context.Canceled, "canceled"},
		{errors.New("other"), "error"},
	} {
		if got := errorStatus(tc.err); got != tc.want {
			t.Errorf("errorStatus(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
