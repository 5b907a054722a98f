package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/alfredjeanlab/gridq/internal/agent"
	"github.com/alfredjeanlab/gridq/internal/model"
	"github.com/alfredjeanlab/gridq/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// resultColumns returns the union of field names across rows, sorted, with
// "id" first when present.
func resultColumns(rows []model.Record) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	slices.SortFunc(cols, func(a, b string) int {
		switch {
		case a == b:
			return 0
		case a == "id":
			return -1
		case b == "id":
			return 1
		case a < b:
			return -1
		}
		return 1
	})
	return cols
}

func cellText(v any) string {
	if t, ok := v.(time.Time); ok && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return agent.Stringify(v)
}

func printResultTable(w io.Writer, res model.Result, columns []string) error {
	if len(columns) == 0 {
		columns = resultColumns(res.Rows)
	}
	rows := make([][]string, len(res.Rows))
	for i, r := range res.Rows {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = cellText(r[c])
		}
		rows[i] = row
	}
	if len(columns) > 0 {
		if err := ui.WriteTable(w, columns, rows); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%s\n", ui.RenderMuted(pageSummary(res)))
	return err
}

// pageSummary describes which slice of the filtered rows is shown.
func pageSummary(res model.Result) string {
	if len(res.Rows) == 0 {
		return fmt.Sprintf("no rows on page %d (%d matching)", res.Page, res.Total)
	}
	first := (res.Page-1)*res.PageSize + 1
	last := first + len(res.Rows) - 1
	return fmt.Sprintf("rows %d-%d of %d (page %d)", first, last, res.Total, res.Page)
}

func printDatasetsTable(w io.Writer, infos []model.DatasetInfo) error {
	rows := make([][]string, len(infos))
	for i, di := range infos {
		status := "not loaded"
		if di.Loaded {
			status = "loaded"
		}
		loadedAt := ""
		if di.LoadedAt != nil {
			loadedAt = di.LoadedAt.Local().Format(time.DateTime)
		}
		rows[i] = []string{di.Name, status, fmt.Sprint(di.Rows), loadedAt, di.Source, di.LastError}
	}
	if err := ui.WriteTable(w, []string{"NAME", "STATUS", "ROWS", "LOADED", "SOURCE", "ERROR"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d datasets\n", len(infos))
	return err
}
