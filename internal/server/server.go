package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/gridq/internal/catalog"
	"github.com/alfredjeanlab/gridq/internal/model"
)

// Transport names used as metric labels.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
	TransportNATS = "nats"
	TransportMCP  = "mcp"
)

// QueryServer answers dataset queries for every transport. It owns no data;
// the catalog holds the snapshots.
type QueryServer struct {
	catalog *catalog.Catalog
	hub     *EventHub
	logger  *slog.Logger
}

// NewQueryServer returns a QueryServer backed by the given catalog.
func NewQueryServer(c *catalog.Catalog, logger *slog.Logger) *QueryServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryServer{catalog: c, logger: logger}
}

// SetEventHub enables GET /v1/events/stream backed by hub. The hub must
// also be the catalog's publisher for load events to reach it.
func (s *QueryServer) SetEventHub(hub *EventHub) {
	s.hub = hub
}

// Catalog returns the underlying catalog.
func (s *QueryServer) Catalog() *catalog.Catalog {
	return s.catalog
}

// Query runs q against dataset and records metrics under transport.
func (s *QueryServer) Query(ctx context.Context, transport, dataset string, q model.Query) (model.Result, error) {
	start := time.Now()
	res, err := s.catalog.Fetch(ctx, dataset, q)
	observeQuery(transport, dataset, err, time.Since(start))
	if err != nil {
		s.logger.Debug("query failed",
			"transport", transport,
			"dataset", dataset,
			"request_id", RequestIDFromContext(ctx),
			"err", err,
		)
		return model.Result{}, err
	}
	return res, nil
}

// Datasets describes every registered dataset.
func (s *QueryServer) Datasets() []model.DatasetInfo {
	return s.catalog.List()
}

// Reload reloads one dataset from its source.
func (s *QueryServer) Reload(ctx context.Context, dataset string) (model.DatasetInfo, error) {
	return s.catalog.Load(ctx, dataset)
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// errorStatus classifies err for metrics labels.
func errorStatus(err error) string {
	var ie inputError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, catalog.ErrNotFound):
		return "not_found"
	case errors.Is(err, catalog.ErrNotLoaded):
		return "not_loaded"
	case errors.As(err, &ie):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}
