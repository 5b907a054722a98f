package dataset

import (
	"context"
	"fmt"
	"os"

	"github.com/alfredjeanlab/gridq/internal/model"
)

// FileSource reads a JSON array or JSON Lines file from disk.
type FileSource struct {
	Path       string
	DateFields []string
}

func (f *FileSource) Load(_ context.Context) ([]model.Record, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer fh.Close()

	rows, err := Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	Normalize(rows, f.DateFields)
	return rows, nil
}

func (f *FileSource) String() string {
	return "file://" + f.Path
}
