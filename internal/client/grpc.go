package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/alfredjeanlab/gridq/internal/model"
	"github.com/alfredjeanlab/gridq/internal/server"
)

// GRPCClient implements GridClient using the gRPC transport.
type GRPCClient struct {
	conn   *grpc.ClientConn
	client *server.GridServiceClient
}

// NewGRPCClient connects to the given gRPC address and returns a client.
// When token is non-empty it is sent as a Bearer token on every call.
func NewGRPCClient(addr, token string, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if token != "" {
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(bearerTokenInterceptor(token)))
	}
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{
		conn:   conn,
		client: server.NewGridServiceClient(conn),
	}, nil
}

func bearerTokenInterceptor(token string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) Query(ctx context.Context, dataset string, q model.Query) (model.Result, error) {
	req, err := server.QueryToProto(dataset, q)
	if err != nil {
		return model.Result{}, fmt.Errorf("encode query: %w", err)
	}
	resp, err := c.client.Fetch(ctx, req)
	if err != nil {
		return model.Result{}, err
	}
	return server.ResultFromProto(resp), nil
}

func (c *GRPCClient) ListDatasets(ctx context.Context) ([]model.DatasetInfo, error) {
	resp, err := c.client.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}
	return server.DatasetsFromProto(resp), nil
}

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp, err := c.client.Health(ctx)
	if err != nil {
		return "", err
	}
	return resp.GetFields()["status"].GetStringValue(), nil
}
