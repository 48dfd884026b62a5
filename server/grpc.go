package server

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// compilerServer is the interface the gRPC service descriptor dispatches to.
type compilerServer interface {
	Compile(context.Context, *CompileRequest) (*CompileResponse, error)
	Run(context.Context, *RunRequest) (*RunResponse, error)
}

var grpcServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*compilerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Compile", Handler: compileHandler},
		{MethodName: "Run", Handler: runHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ember/v1/compiler",
}

// adapter translates service errors into gRPC statuses.
type adapter struct{ svc *Service }

func (a adapter) Compile(ctx context.Context, req *CompileRequest) (*CompileResponse, error) {
	res, err := a.svc.Compile(ctx, req)
	return res, grpcError(err)
}

func (a adapter) Run(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	res, err := a.svc.Run(ctx, req)
	return res, grpcError(err)
}

func grpcError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.FromContextError(err).Err()
}

func compileHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CompileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(compilerServer).Compile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CompileProcedure}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(compilerServer).Compile(ctx, req.(*CompileRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func runHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RunRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(compilerServer).Run(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RunProcedure}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(compilerServer).Run(ctx, req.(*RunRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterGRPC registers svc with s. The server must be created with
// GRPCServerOptions so that requests are decoded as CBOR.
func RegisterGRPC(s *grpc.Server, svc *Service) {
	s.RegisterService(&grpcServiceDesc, adapter{svc: svc})
}

// GRPCServerOptions returns the options a gRPC server needs to serve this
// service.
func GRPCServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{grpc.ForceServerCodec(cborCodec{})}
}

// GRPCClient calls the service over gRPC.
type GRPCClient struct {
	cc grpc.ClientConnInterface
}

// NewGRPCClient wraps cc.
func NewGRPCClient(cc grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{cc: cc}
}

// GRPCDialOptions returns the dial options a client connection needs.
func GRPCDialOptions() []grpc.DialOption {
	return []grpc.DialOption{grpc.WithDefaultCallOptions(grpc.ForceCodec(cborCodec{}))}
}

// Compile calls the Compile method.
func (c *GRPCClient) Compile(ctx context.Context, req *CompileRequest, opts ...grpc.CallOption) (*CompileResponse, error) {
	out := new(CompileResponse)
	if err := c.cc.Invoke(ctx, CompileProcedure, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Run calls the Run method.
func (c *GRPCClient) Run(ctx context.Context, req *RunRequest, opts ...grpc.CallOption) (*RunResponse, error) {
	out := new(RunResponse)
	if err := c.cc.Invoke(ctx, RunProcedure, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
