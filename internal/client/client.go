// Package client provides transport-specific clients for a running gridq
// server: HTTP/JSON, gRPC and NATS request/reply.
package client

import (
	"context"

	"github.com/alfredjeanlab/gridq/internal/model"
)

// Querier runs a query against a named dataset on a remote server.
type Querier interface {
	Query(ctx context.Context, dataset string, q model.Query) (model.Result, error)
	Close() error
}

// GridClient is the full remote API used by the CLI. It is implemented by
// HTTPClient and GRPCClient; NATSClient only implements Querier.
type GridClient interface {
	Querier
	ListDatasets(ctx context.Context) ([]model.DatasetInfo, error)
	Health(ctx context.Context) (string, error)
}

var (
	_ GridClient = (*HTTPClient)(nil)
	_ GridClient = (*GRPCClient)(nil)
	_ Querier    = (*NATSClient)(nil)
)
