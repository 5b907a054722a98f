package server

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/gridq/internal/agent"
	"github.com/alfredjeanlab/gridq/internal/model"
)

// wireValue converts a record value into something structpb accepts. Times
// are sent as RFC 3339 strings, matching the JSON encoding.
func wireValue(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int, int32, int64, uint, uint32, uint64, float32, float64:
		return x
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC().Format(time.RFC3339Nano)
	case model.Record:
		return wireMap(x)
	case map[string]any:
		return wireMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = wireValue(e)
		}
		return out
	}
	return agent.Stringify(v)
}

func wireMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = wireValue(v)
	}
	return out
}

// resultToProto encodes a Result as {"rows": [...], "total", "page", "page_size"}.
func resultToProto(res model.Result) (*structpb.Struct, error) {
	rows := make([]any, len(res.Rows))
	for i, rec := range res.Rows {
		rows[i] = wireMap(rec)
	}
	s, err := structpb.NewStruct(map[string]any{
		"rows":      rows,
		"total":     res.Total,
		"page":      res.Page,
		"page_size": res.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return s, nil
}

// ResultFromProto decodes the struct produced by resultToProto.
func ResultFromProto(s *structpb.Struct) model.Result {
	fields := s.GetFields()
	res := model.Result{
		Total:    int(fields["total"].GetNumberValue()),
		Page:     int(fields["page"].GetNumberValue()),
		PageSize: int(fields["page_size"].GetNumberValue()),
		Rows:     []model.Record{},
	}
	for _, v := range fields["rows"].GetListValue().GetValues() {
		res.Rows = append(res.Rows, model.Record(v.GetStructValue().AsMap()))
	}
	return res
}

// QueryToProto encodes a dataset query as a request struct.
func QueryToProto(dataset string, q model.Query) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"dataset":        dataset,
		"filter":         q.Filter,
		"page":           q.Page,
		"page_size":      q.PageSize,
		"sort_by":        q.SortBy,
		"sort_direction": q.SortDirection.String(),
	})
}

// queryFromProto decodes a request struct. sort_direction may be a string
// ("asc", "desc") or a number (1 = descending); a "sort" field accepts the
// "-field" shorthand.
func queryFromProto(s *structpb.Struct) (string, model.Query, error) {
	fields := s.GetFields()
	q := model.Query{
		Filter: fields["filter"].GetStringValue(),
		SortBy: fields["sort_by"].GetStringValue(),
	}

	var err error
	if q.Page, err = intField(fields, "page"); err != nil {
		return "", q, err
	}
	if q.PageSize, err = intField(fields, "page_size"); err != nil {
		return "", q, err
	}

	switch d := fields["sort_direction"].GetKind().(type) {
	case *structpb.Value_StringValue:
		q.SortDirection = model.ParseSortDirection(d.StringValue)
	case *structpb.Value_NumberValue:
		if d.NumberValue == 1 {
			q.SortDirection = model.Descending
		}
	}
	if sort := fields["sort"].GetStringValue(); sort != "" {
		q = q.WithSort(sort)
	}
	return fields["dataset"].GetStringValue(), q, nil
}

func intField(fields map[string]*structpb.Value, name string) (int, error) {
	v, ok := fields[name]
	if !ok {
		return 0, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, nil
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, inputError(name + " must be an integer")
		}
		if n > math.MaxInt32 {
			n = math.MaxInt32
		}
		if n < math.MinInt32 {
			n = math.MinInt32
		}
		return int(n), nil
	}
	return 0, inputError(name + " must be a number")
}

// datasetsToProto encodes dataset descriptions as {"datasets": [...]}.
func datasetsToProto(infos []model.DatasetInfo) (*structpb.Struct, error) {
	list := make([]any, len(infos))
	for i, di := range infos {
		m := map[string]any{
			"name":   di.Name,
			"source": di.Source,
			"loaded": di.Loaded,
			"rows":   di.Rows,
		}
		if di.SnapshotID != "" {
			m["snapshot_id"] = di.SnapshotID
		}
		if di.LoadedAt != nil {
			m["loaded_at"] = di.LoadedAt.UTC().Format(time.RFC3339Nano)
		}
		if di.LastError != "" {
			m["last_error"] = di.LastError
		}
		list[i] = m
	}
	return structpb.NewStruct(map[string]any{"datasets": list})
}

// DatasetsFromProto decodes the struct produced by datasetsToProto.
func DatasetsFromProto(s *structpb.Struct) []model.DatasetInfo {
	values := s.GetFields()["datasets"].GetListValue().GetValues()
	out := make([]model.DatasetInfo, 0, len(values))
	for _, v := range values {
		f := v.GetStructValue().GetFields()
		di := model.DatasetInfo{
			Name:       f["name"].GetStringValue(),
			Source:     f["source"].GetStringValue(),
			Loaded:     f["loaded"].GetBoolValue(),
			Rows:       int(f["rows"].GetNumberValue()),
			SnapshotID: f["snapshot_id"].GetStringValue(),
			LastError:  f["last_error"].GetStringValue(),
		}
		if ts := f["loaded_at"].GetStringValue(); ts != "" {
			if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				di.LoadedAt = &t
			}
		}
		out = append(out, di)
	}
	return out
}
