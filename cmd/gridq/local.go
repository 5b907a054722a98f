package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/alfredjeanlab/gridq/internal/catalog"
	"github.com/alfredjeanlab/gridq/internal/config"
	"github.com/alfredjeanlab/gridq/internal/dataset"
	"github.com/alfredjeanlab/gridq/internal/model"
)

// openCatalog registers the datasets from the datasets file. When only is
// non-empty, just those datasets are registered.
func openCatalog(ctx context.Context, path string, only []string, opts ...catalog.Option) (*catalog.Catalog, error) {
	specs, err := config.LoadDatasets(path)
	if err != nil {
		return nil, err
	}
	cat := catalog.New(append([]catalog.Option{catalog.WithLogger(logger)}, opts...)...)
	found := 0
	for _, spec := range specs {
		if len(only) > 0 && !slices.Contains(only, spec.Name) {
			continue
		}
		src, err := dataset.Open(ctx, spec)
		if err != nil {
			return nil, err
		}
		if err := cat.Register(spec.Name, src); err != nil {
			return nil, err
		}
		found++
	}
	if len(only) > 0 && found < len(only) {
		for _, name := range only {
			if _, err := cat.Info(name); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	return cat, nil
}

// localQuerier runs queries in-process against a catalog.
type localQuerier struct {
	cat *catalog.Catalog
}

func (l *localQuerier) Query(ctx context.Context, name string, q model.Query) (model.Result, error) {
	return l.cat.Fetch(ctx, name, q)
}

func (l *localQuerier) Close() error { return nil }
