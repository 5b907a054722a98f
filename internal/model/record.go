package model

import (
	"time"
)

// Record is one row of a dataset: a flat mapping from field name to a
// primitive value (string, number, time.Time) or nil.
type Record map[string]any

// Result is the envelope transports return for a query: the page of rows plus
// enough context for a pager.
type Result struct {
	Rows     []Record `json:"rows"`
	Total    int      `json:"total"` // rows matching the filter, before pagination
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}

// DatasetInfo describes a registered dataset and its current snapshot.
type DatasetInfo struct {
	Name       string     `json:"name"`
	Source     string     `json:"source"`
	Loaded     bool       `json:"loaded"`
	SnapshotID string     `json:"snapshot_id,omitempty"`
	Rows       int        `json:"rows"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}
