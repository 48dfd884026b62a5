// Package server exposes compilation and interpretation of instruction
// streams over Connect (HTTP/JSON) and gRPC (CBOR).
package server

import (
	"net"
	"net/http"
	"time"

	"github.com/chazu/ember/cache"
	"github.com/chazu/ember/codegen"
	"github.com/tliron/commonlog"
	"google.golang.org/grpc"
)

var log = commonlog.GetLogger("ember.server")

// Server wraps a Service with both transports.
type Server struct {
	service *Service
	worker  *Worker
	units   *UnitStore
	handler http.Handler
	grpc    *grpc.Server

	stopSweeper func()
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	cache     *cache.Cache
	options   codegen.Options
	maxFrames int
	unitTTL   time.Duration
}

// WithCache compiles through c.
func WithCache(c *cache.Cache) ServerOption {
	return func(cfg *serverConfig) { cfg.cache = c }
}

// WithCompileOptions sets the default compiler options.
func WithCompileOptions(opts codegen.Options) ServerOption {
	return func(cfg *serverConfig) { cfg.options = opts }
}

// WithMaxFrames bounds the call depth of interpreted runs.
func WithMaxFrames(n int) ServerOption {
	return func(cfg *serverConfig) { cfg.maxFrames = n }
}

// WithUnitTTL sets how long an unused compiled unit stays runnable by ID.
func WithUnitTTL(ttl time.Duration) ServerOption {
	return func(cfg *serverConfig) { cfg.unitTTL = ttl }
}

// New creates a Server.
func New(opts ...ServerOption) *Server {
	cfg := &serverConfig{
		options: codegen.DefaultOptions(),
		unitTTL: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.unitTTL <= 0 {
		cfg.unitTTL = 30 * time.Minute
	}

	worker := NewWorker()
	units := NewUnitStore()
	svc := NewService(worker, units, cfg.cache, cfg.options, cfg.maxFrames)

	s := &Server{
		service: svc,
		worker:  worker,
		units:   units,
		handler: NewConnectHandler(svc),
		grpc:    grpc.NewServer(GRPCServerOptions()...),
	}
	RegisterGRPC(s.grpc, svc)

	s.stopSweeper = units.StartSweeper(cfg.unitTTL/6, cfg.unitTTL)
	return s
}

// Service returns the transport-independent service.
func (s *Server) Service() *Service { return s.service }

// Handler returns the Connect handler.
func (s *Server) Handler() http.Handler { return s.handler }

// GRPC returns the gRPC server.
func (s *Server) GRPC() *grpc.Server { return s.grpc }

// ListenAndServe serves Connect on addr, "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	log.Noticef("listening on %s", addr)
	log.Noticef("  Connect (HTTP/JSON): http://%s%s", addr, CompileProcedure)
	return http.ListenAndServe(addr, s.handler)
}

// ServeGRPC serves gRPC on lis until Stop.
func (s *Server) ServeGRPC(lis net.Listener) error {
	log.Noticef("gRPC (CBOR) listening on %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// Stop shuts down the server.
func (s *Server) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	s.grpc.Stop()
	s.worker.Stop()
}
