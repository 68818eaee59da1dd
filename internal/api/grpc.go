package api

import (
	"context"
	"net"

	"github.com/go-logr/logr"
	"github.com/heysubinoy/kvgate/pkg/kv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	kvServiceName = "kvgate.v1.KVService"

	getMethod  = "/" + kvServiceName + "/Get"
	setMethod  = "/" + kvServiceName + "/Set"
	testMethod = "/" + kvServiceName + "/Test"
)

// KVServiceServer is the server API for the KV service. Messages are
// protobuf well-known types: keys and values travel as StringValue and
// writes as a Struct with string fields "key" and "value".
type KVServiceServer interface {
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Set(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	Test(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// KVServiceDesc describes the KV service for registration with a
// grpc.Server.
var KVServiceDesc = grpc.ServiceDesc{
	ServiceName: kvServiceName,
	HandlerType: (*KVServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: kvGetHandler},
		{MethodName: "Set", Handler: kvSetHandler},
		{MethodName: "Test", Handler: kvTestHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kvgate/v1/kv.proto",
}

func kvGetHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVServiceServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(KVServiceServer).Get(ctx, req.(*wrapperspb.StringValue))
	})
}

func kvSetHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVServiceServer).Set(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: setMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(KVServiceServer).Set(ctx, req.(*structpb.Struct))
	})
}

func kvTestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVServiceServer).Test(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: testMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(KVServiceServer).Test(ctx, req.(*emptypb.Empty))
	})
}

// GRPCServer implements KVServiceServer.
// It wraps a kv.Store and exposes it over gRPC.
type GRPCServer struct {
	Store kv.Store
}

var _ KVServiceServer = (*GRPCServer)(nil)

// NewGRPCServer creates a new gRPC service with the given store.
func NewGRPCServer(store kv.Store) *GRPCServer {
	return &GRPCServer{
		Store: store,
	}
}

// Get retrieves a value by key. A missing key yields an empty value.
func (s *GRPCServer) Get(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}

	value, _, err := s.Store.Get(ctx, req.GetValue())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get key: %v", err)
	}
	return wrapperspb.String(value), nil
}

// Set stores a key-value pair.
func (s *GRPCServer) Set(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	key, ok := stringField(req, "key")
	if !ok || key == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}
	value, ok := stringField(req, "value")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "value is required")
	}

	if err := s.Store.Set(ctx, key, value); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to set key: %v", err)
	}
	return wrapperspb.String(CreatedMessage), nil
}

// Test writes the self-test pair and returns the value read back.
func (s *GRPCServer) Test(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	if err := s.Store.Set(ctx, SelfTestKey, SelfTestValue); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to set key: %v", err)
	}
	value, _, err := s.Store.Get(ctx, SelfTestKey)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get key: %v", err)
	}
	return wrapperspb.String(value), nil
}

func stringField(s *structpb.Struct, name string) (string, bool) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", false
	}
	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}
	return str.StringValue, true
}

// NewGRPCTransport constructs a grpc.Server with the KV service
// registered and failed calls logged.
func NewGRPCTransport(logger logr.Logger, svc KVServiceServer) *grpc.Server {
	srv := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(logger)))
	srv.RegisterService(&KVServiceDesc, svc)
	return srv
}

func loggingInterceptor(logger logr.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Error(err, "grpc call", "method", info.FullMethod, "code", status.Code(err).String())
		} else {
			logger.V(1).Info("grpc call", "method", info.FullMethod)
		}
		return resp, err
	}
}

// ServeGRPC serves srv on ln until the context is cancelled, then stops
// gracefully.
func ServeGRPC(ctx context.Context, logger logr.Logger, srv *grpc.Server, ln net.Listener) error {
	errch := make(chan error, 1)
	go func() {
		errch <- srv.Serve(ln)
	}()

	logger.Info("started grpc server", "address", ln.Addr().String())

	select {
	case err := <-errch:
		return err
	case <-ctx.Done():
		logger.Info("gracefully shutting down grpc server...")
		srv.GracefulStop()
		return nil
	}
}
