package server

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
)

const (
	// ServiceName is the fully qualified name both transports register.
	ServiceName = "ember.v1.CompilerService"

	CompileProcedure = "/" + ServiceName + "/Compile"
	RunProcedure     = "/" + ServiceName + "/Run"
)

// NewConnectHandler mounts svc's procedures on a new mux.
func NewConnectHandler(svc *Service) http.Handler {
	mux := http.NewServeMux()

	handlerOpts := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithCodec(cborCodec{}),
	}

	mux.Handle(CompileProcedure, connect.NewUnaryHandler(
		CompileProcedure,
		func(ctx context.Context, req *connect.Request[CompileRequest]) (*connect.Response[CompileResponse], error) {
			res, err := svc.Compile(ctx, req.Msg)
			if err != nil {
				return nil, connectError(err)
			}
			return connect.NewResponse(res), nil
		},
		handlerOpts...,
	))
	mux.Handle(RunProcedure, connect.NewUnaryHandler(
		RunProcedure,
		func(ctx context.Context, req *connect.Request[RunRequest]) (*connect.Response[RunResponse], error) {
			res, err := svc.Run(ctx, req.Msg)
			if err != nil {
				return nil, connectError(err)
			}
			return connect.NewResponse(res), nil
		},
		handlerOpts...,
	))
	return mux
}

func connectError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// ConnectClient calls the service over Connect with the JSON codec.
type ConnectClient struct {
	compile *connect.Client[CompileRequest, CompileResponse]
	run     *connect.Client[RunRequest, RunResponse]
}

// NewConnectClient creates a client for the service at baseURL.
func NewConnectClient(httpClient connect.HTTPClient, baseURL string) *ConnectClient {
	return &ConnectClient{
		compile: connect.NewClient[CompileRequest, CompileResponse](
			httpClient, baseURL+CompileProcedure, connect.WithCodec(jsonCodec{})),
		run: connect.NewClient[RunRequest, RunResponse](
			httpClient, baseURL+RunProcedure, connect.WithCodec(jsonCodec{})),
	}
}

// Compile calls the Compile procedure.
func (c *ConnectClient) Compile(ctx context.Context, req *CompileRequest) (*CompileResponse, error) {
	res, err := c.compile.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// Run calls the Run procedure.
func (c *ConnectClient) Run(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	res, err := c.run.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}
