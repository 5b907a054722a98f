package server

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/gridq/internal/catalog"
)

// Full method names of gridq.v1.GridService.
const (
	GridService_Fetch_FullMethodName        = "/gridq.v1.GridService/Fetch"
	GridService_ListDatasets_FullMethodName = "/gridq.v1.GridService/ListDatasets"
	GridService_Health_FullMethodName       = "/gridq.v1.GridService/Health"
)

// GridServiceServer is the server API for gridq.v1.GridService. Requests and
// responses are google.protobuf.Struct documents so records keep their
// free-form shape on the wire.
type GridServiceServer interface {
	Fetch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDatasets(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Health(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// GridService_ServiceDesc is the grpc.ServiceDesc for gridq.v1.GridService.
var GridService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "gridq.v1.GridService",
	HandlerType: (*GridServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Fetch", Handler: _GridService_Fetch_Handler},
		{MethodName: "ListDatasets", Handler: _GridService_ListDatasets_Handler},
		{MethodName: "Health", Handler: _GridService_Health_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gridq/v1/grid.proto",
}

func _GridService_Fetch_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GridServiceServer).Fetch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GridService_Fetch_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GridServiceServer).Fetch(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _GridService_ListDatasets_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GridServiceServer).ListDatasets(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GridService_ListDatasets_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GridServiceServer).ListDatasets(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _GridService_Health_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GridServiceServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GridService_Health_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GridServiceServer).Health(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// NewGRPCServer creates a gRPC server with standard interceptors,
// registers the GridService, and returns the server ready to serve.
func NewGRPCServer(qs *QueryServer, authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			RequestIDInterceptor,
			LoggingInterceptor,
			AuthInterceptor(authToken),
		),
	)
	srv.RegisterService(&GridService_ServiceDesc, &grpcService{qs: qs})
	return srv
}

// grpcService adapts QueryServer to GridServiceServer.
type grpcService struct {
	qs *QueryServer
}

var _ GridServiceServer = (*grpcService)(nil)

func (g *grpcService) Fetch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	dataset, q, err := queryFromProto(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if dataset == "" {
		return nil, status.Error(codes.InvalidArgument, "dataset is required")
	}

	res, err := g.qs.Query(ctx, TransportGRPC, dataset, q)
	if err != nil {
		return nil, grpcError(err)
	}
	out, err := resultToProto(res)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return out, nil
}

func (g *grpcService) ListDatasets(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := datasetsToProto(g.qs.Datasets())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode datasets: %v", err)
	}
	return out, nil
}

// Health returns the service health status.
func (g *grpcService) Health(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "ok"})
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, catalog.ErrNotLoaded):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Errorf(codes.Internal, "query failed: %v", err)
}

// GridServiceClient calls gridq.v1.GridService over an existing connection.
type GridServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewGridServiceClient returns a client using cc.
func NewGridServiceClient(cc grpc.ClientConnInterface) *GridServiceClient {
	return &GridServiceClient{cc: cc}
}

func (c *GridServiceClient) Fetch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GridService_Fetch_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GridServiceClient) ListDatasets(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GridService_ListDatasets_FullMethodName, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GridServiceClient) Health(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GridService_Health_FullMethodName, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
