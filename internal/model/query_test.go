package model

import (
	"encoding/json"
	"testing"
)

func TestQueryWindow(t *testing.T) {
	tests := []struct {
		name      string
		q         Query
		n         int
		wantStart int
		wantEnd   int
	}{
		{"empty query", Query{}, 90, 0, 10},
		{"page size 3", Query{PageSize: 3}, 90, 0, 3},
		{"page size zero defaults", Query{PageSize: 0}, 90, 0, 10},
		{"page 3", Query{Page: 3}, 90, 20, 30},
		{"last partial page", Query{Page: 10}, 95, 90, 95},
		{"past the end", Query{Page: 20}, 90, 90, 90},
		{"page zero is page one", Query{Page: 0}, 90, 0, 10},
		{"negative page clamps", Query{Page: -2}, 90, 0, 10},
		{"negative page size defaults", Query{PageSize: -5}, 90, 0, 10},
		{"empty dataset", Query{Page: 2}, 0, 0, 0},
		{"huge page does not overflow", Query{Page: 1 << 62, PageSize: 1 << 20}, 90, 90, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.q.Window(tt.n)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("Window(%d) = [%d, %d), want [%d, %d)", tt.n, start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestQueryWithSort(t *testing.T) {
	tests := []struct {
		key       string
		wantField string
		wantDir   SortDirection
	}{
		{"first_name", "first_name", Ascending},
		{"-first_name", "first_name", Descending},
		{" -id ", "id", Descending},
		{"", "", Ascending},
	}
	for _, tt := range tests {
		q := Query{SortDirection: Descending}.WithSort(tt.key)
		if q.SortBy != tt.wantField || q.SortDirection != tt.wantDir {
			t.Errorf("WithSort(%q) = (%q, %v), want (%q, %v)", tt.key, q.SortBy, q.SortDirection, tt.wantField, tt.wantDir)
		}
	}
}

func TestParseSortDirection(t *testing.T) {
	for in, want := range map[string]SortDirection{
		"":           Ascending,
		"asc":        Ascending,
		"ASC":        Ascending,
		"desc":       Descending,
		"Descending": Descending,
		"-":          Descending,
		"1":          Descending,
		" DESC ":     Descending,
		"sideways":   Ascending,
	} {
		if got := ParseSortDirection(in); got != want {
			t.Errorf("ParseSortDirection(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestQueryJSON(t *testing.T) {
	var q Query
	if err := json.Unmarshal([]byte(`{"filter":"ann","page":2,"page_size":5,"sort_by":"id","sort_direction":"desc"}`), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := Query{Filter: "ann", Page: 2, PageSize: 5, SortBy: "id", SortDirection: Descending}
	if q != want {
		t.Errorf("got %+v, want %+v", q, want)
	}

	// Numeric and unknown directions never fail decoding.
	for body, want := range map[string]SortDirection{
		`{"sort_direction":1}`:    Descending,
		`{"sort_direction":0}`:    Ascending,
		`{"sort_direction":true}`: Ascending,
		`{"sort_direction":"up"}`: Ascending,
		`{"sort_direction":null}`: Ascending,
	} {
		var q Query
		if err := json.Unmarshal([]byte(body), &q); err != nil {
			t.Errorf("unmarshal %s: %v", body, err)
			continue
		}
		if q.SortDirection != want {
			t.Errorf("%s: direction = %v, want %v", body, q.SortDirection, want)
		}
	}

	data, err := json.Marshal(Query{SortBy: "id", SortDirection: Descending})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"sort_by":"id","sort_direction":"desc"}` {
		t.Errorf("marshal = %s", data)
	}
}
