// Package dataset loads record snapshots from files, S3 objects, SQL
// databases and MongoDB collections.
package dataset

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/alfredjeanlab/gridq/internal/model"
)

// Source kinds.
const (
	KindFile  = "file"
	KindS3    = "s3"
	KindSQL   = "sql"
	KindMongo = "mongo"
)

// Source produces a complete snapshot of a dataset.
type Source interface {
	Load(ctx context.Context) ([]model.Record, error)
	String() string
}

// Spec describes where a dataset comes from. It is decoded from the
// [datasets.<name>] tables of the datasets file.
type Spec struct {
	Name string `toml:"-"`
	Kind string `toml:"kind"`

	// file
	Path string `toml:"path"`

	// s3
	Bucket   string `toml:"bucket"`
	Key      string `toml:"key"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"`

	// sql
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
	Query  string `toml:"query"`
	Table  string `toml:"table"`

	// mongo
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`

	// Fields whose string values are parsed as timestamps.
	DateFields []string `toml:"date_fields"`
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Validate checks that the fields required by the spec's kind are present.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindFile:
		if s.Path == "" {
			return fmt.Errorf("dataset %q: path is required", s.Name)
		}
	case KindS3:
		if s.Bucket == "" || s.Key == "" {
			return fmt.Errorf("dataset %q: bucket and key are required", s.Name)
		}
	case KindSQL:
		if _, err := driverName(s.Driver); err != nil {
			return fmt.Errorf("dataset %q: %w", s.Name, err)
		}
		if s.DSN == "" {
			return fmt.Errorf("dataset %q: dsn is required", s.Name)
		}
		if s.Query == "" && s.Table == "" {
			return fmt.Errorf("dataset %q: query or table is required", s.Name)
		}
		if s.Query == "" && !identPattern.MatchString(s.Table) {
			return fmt.Errorf("dataset %q: invalid table name %q", s.Name, s.Table)
		}
	case KindMongo:
		if s.URI == "" || s.Database == "" || s.Collection == "" {
			return fmt.Errorf("dataset %q: uri, database and collection are required", s.Name)
		}
	case "":
		return fmt.Errorf("dataset %q: kind is required", s.Name)
	default:
		return fmt.Errorf("dataset %q: unknown kind %q", s.Name, s.Kind)
	}
	return nil
}

// Open validates spec and returns the matching Source.
func Open(ctx context.Context, spec Spec) (Source, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Kind {
	case KindFile:
		return &FileSource{Path: spec.Path, DateFields: spec.DateFields}, nil
	case KindS3:
		return NewS3Source(ctx, spec.Bucket, spec.Key, spec.Region, spec.Endpoint, spec.DateFields)
	case KindSQL:
		driver, _ := driverName(spec.Driver)
		query := spec.Query
		if query == "" {
			query = "SELECT * FROM " + spec.Table
		}
		return &SQLSource{Driver: driver, DSN: spec.DSN, Query: query, DateFields: spec.DateFields}, nil
	default:
		return &MongoSource{
			URI:        spec.URI,
			Database:   spec.Database,
			Collection: spec.Collection,
			DateFields: spec.DateFields,
		}, nil
	}
}

// driverName maps the configured driver to its database/sql registration name.
func driverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pg":
		return "postgres", nil
	case "mysql", "mariadb":
		return "mysql", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "":
		return "", fmt.Errorf("driver is required")
	}
	return "", fmt.Errorf("unsupported driver %q", driver)
}
