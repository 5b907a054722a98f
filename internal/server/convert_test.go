package server

import (
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/gridq/internal/model"
)

func TestWireValue(t *testing.T) {
	when := time.Date(1990, 4, 3, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	var nilTime *time.Time
	for _, tc := range []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"string", "x", "x"},
		{"int64", int64(7), int64(7)},
		{"int16 widens", int16(7), int64(7)},
		{"float", 2.5, 2.5},
		{"bool", true, true},
		{"time in UTC", when, "1990-04-03T09:00:00Z"},
		{"time pointer", &when, "1990-04-03T09:00:00Z"},
		{"nil time pointer", nilTime, nil},
		{"stringer fallback", []string{"a"}, "[a]"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := wireValue(tc.in)
			if got != tc.want {
				t.Errorf("wireValue(%#v) = %#v, want %#v", tc.in, got, tc.want)
			}
			if _, err := structpb.NewValue(got); err != nil {
				t.Errorf("structpb rejects %#v: %v", got, err)
			}
		})
	}
}

func TestQueryProtoRoundTrip(t *testing.T) {
	in := model.Query{Filter: "ann", Page: 3, PageSize: 25, SortBy: "last_name", SortDirection: model.Descending}
	s, err := QueryToProto("people", in)
	if err != nil {
		t.Fatal(err)
	}
	dataset, out, err := queryFromProto(s)
	if err != nil {
		t.Fatal(err)
	}
	if dataset != "people" || out != in {
		t.Errorf("round trip = %q %+v, want people %+v", dataset, out, in)
	}
}

func TestQueryFromProto_Direction(t *testing.T) {
	for _, tc := range []struct {
		val  any
		want model.SortDirection
	}{
		{"desc", model.Descending},
		{"asc", model.Ascending},
		{1, model.Descending},
		{0, model.Ascending},
		{"sideways", model.Ascending},
	} {
		s, _ := structpb.NewStruct(map[string]any{"dataset": "d", "sort_by": "x", "sort_direction": tc.val})
		_, q, err := queryFromProto(s)
		if err != nil {
			t.Fatal(err)
		}
		if q.SortDirection != tc.want {
			t.Errorf("sort_direction %v = %v, want %v", tc.val, q.SortDirection, tc.want)
		}
	}
}

func TestResultProtoRoundTrip(t *testing.T) {
	res := model.Result{
		Rows:     []model.Record{{"id": int64(1), "name": "Ann"}},
		Total:    40,
		Page:     4,
		PageSize: 10,
	}
	s, err := resultToProto(res)
	if err != nil {
		t.Fatal(err)
	}
	out := ResultFromProto(s)
	if out.Total != 40 || out.Page != 4 || out.PageSize != 10 || len(out.Rows) != 1 {
		t.Fatalf("envelope = %+v", out)
	}
	if out.Rows[0]["id"] != float64(1) || out.Rows[0]["name"] != "Ann" {
		t.Errorf("row = %v", out.Rows[0])
	}
}

func TestResultToProto_EmptyRows(t *testing.T) {
	s, err := resultToProto(model.Result{Rows: []model.Record{}, Page: 9, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	out := ResultFromProto(s)
	if out.Rows == nil || len(out.Rows) != 0 {
		t.Errorf("rows = %#v, want empty non-nil", out.Rows)
	}
}
