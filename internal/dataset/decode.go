package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alfredjeanlab/gridq/internal/model"
)

// Decode reads records from r. The input is either a JSON array of objects
// or JSON Lines (one object per line). Empty input yields no records.
func Decode(r io.Reader) ([]model.Record, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return []model.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()

	if first == '[' {
		var rows []model.Record
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode json array: %w", err)
		}
		if rows == nil {
			rows = []model.Record{}
		}
		return rows, nil
	}

	rows := []model.Record{}
	for line := 1; ; line++ {
		var rec model.Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", line, err)
		}
		rows = append(rows, rec)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// timeLayouts are tried in order when a date field holds a string.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize rewrites rows in place so the query engine sees native values:
// JSON numbers become int64 or float64, raw bytes become strings, and string
// values of the named date fields become time.Time when they parse.
func Normalize(rows []model.Record, dateFields []string) {
	for _, rec := range rows {
		for k, v := range rec {
			rec[k] = normalizeValue(v)
		}
		for _, f := range dateFields {
			s, ok := rec[f].(string)
			if !ok {
				continue
			}
			if t, ok := parseTime(s); ok {
				rec[f] = t
			}
		}
	}
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []byte:
		return string(x)
	}
	return v
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
