package dataset

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/alfredjeanlab/gridq/internal/model"
)

// SQLSource snapshots the result of a SELECT. Every load opens a fresh
// connection pool and closes it afterwards unless DB is set.
type SQLSource struct {
	Driver     string // database/sql driver name: postgres, mysql or sqlite
	DSN        string
	Query      string
	DateFields []string

	// DB, when set, is used instead of opening Driver/DSN and is left open.
	DB *sql.DB
}

func (s *SQLSource) Load(ctx context.Context) ([]model.Record, error) {
	db := s.DB
	if db == nil {
		var err error
		db, err = sql.Open(s.Driver, s.DSN)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", s.Driver, err)
		}
		defer db.Close()
	}

	rows, err := db.QueryContext(ctx, s.Query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Driver, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	Normalize(records, s.DateFields)
	return records, nil
}

func (s *SQLSource) String() string {
	return s.Driver + ": " + s.Query
}

// scanRecords reads every remaining row into a Record keyed by column name.
func scanRecords(rows *sql.Rows) ([]model.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	records := []model.Record{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(records)+1, err)
		}
		rec := make(model.Record, len(cols))
		for i, col := range cols {
			rec[col] = values[i]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}
