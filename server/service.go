package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/chazu/ember/cache"
	"github.com/chazu/ember/codegen"
	"github.com/chazu/ember/ir"
	"github.com/chazu/ember/vm"
)

// ErrInvalidArgument marks requests the service refuses before doing any
// work. Transports map it to their invalid-argument status.
var ErrInvalidArgument = errors.New("invalid argument")

// identifier matches names that may be spliced into generated C++.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// checkIdentifier accepts an empty override or a C++ identifier.
func checkIdentifier(field, v string) error {
	if v == "" || identifier.MatchString(v) {
		return nil
	}
	return fmt.Errorf("%w: %s %q is not an identifier", ErrInvalidArgument, field, v)
}

// CompileRequest asks for the C++ translation of a stream.
type CompileRequest struct {
	Format string `json:"format" cbor:"1,keyasint"` // "yaml" or "cbor"
	Stream []byte `json:"stream" cbor:"2,keyasint"`

	// Per-request overrides of the server's compiler options.
	VarPrefix string `json:"varPrefix,omitempty" cbor:"3,keyasint,omitempty"`
	Entry     string `json:"entry,omitempty" cbor:"4,keyasint,omitempty"`
}

// CompileResponse carries either the translation unit or the error that
// stopped it.
type CompileResponse struct {
	Success      bool   `json:"success" cbor:"1,keyasint"`
	Unit         string `json:"unit,omitempty" cbor:"2,keyasint,omitempty"`
	Source       string `json:"source,omitempty" cbor:"3,keyasint,omitempty"`
	Cached       bool   `json:"cached,omitempty" cbor:"4,keyasint,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty" cbor:"5,keyasint,omitempty"`
}

// RunRequest asks for a stream to be interpreted. Either Stream or the Unit
// of an earlier successful compile must be set.
type RunRequest struct {
	Format string `json:"format,omitempty" cbor:"1,keyasint,omitempty"`
	Stream []byte `json:"stream,omitempty" cbor:"2,keyasint,omitempty"`
	Unit   string `json:"unit,omitempty" cbor:"3,keyasint,omitempty"`
}

// RunResponse carries the inspected result and everything the program
// printed.
type RunResponse struct {
	Success      bool   `json:"success" cbor:"1,keyasint"`
	Result       string `json:"result,omitempty" cbor:"2,keyasint,omitempty"`
	Output       string `json:"output,omitempty" cbor:"3,keyasint,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty" cbor:"4,keyasint,omitempty"`
}

// Service implements compilation and interpretation of streams.
type Service struct {
	worker    *Worker
	units     *UnitStore
	cache     *cache.Cache
	options   codegen.Options
	maxFrames int
}

// NewService creates a Service. A nil cache compiles every request.
func NewService(worker *Worker, units *UnitStore, c *cache.Cache, opts codegen.Options, maxFrames int) *Service {
	return &Service{
		worker:    worker,
		units:     units,
		cache:     c,
		options:   opts.WithDefaults(),
		maxFrames: maxFrames,
	}
}

// Compile translates the request's stream. Compile failures are reported in
// the response; only malformed requests return an error.
func (s *Service) Compile(ctx context.Context, req *CompileRequest) (*CompileResponse, error) {
	seq, err := decodeStream(req.Format, req.Stream)
	if err != nil {
		return nil, err
	}

	opts := s.options
	if err := checkIdentifier("varPrefix", req.VarPrefix); err != nil {
		return nil, err
	}
	if err := checkIdentifier("entry", req.Entry); err != nil {
		return nil, err
	}
	if req.VarPrefix != "" {
		opts.VarPrefix = req.VarPrefix
	}
	if req.Entry != "" {
		opts.Entry = req.Entry
	}

	prog, hit, err := s.cache.Compile(seq, opts)
	if err != nil {
		log.Infof("compile failed: %s", err)
		return &CompileResponse{Success: false, ErrorMessage: err.Error()}, nil
	}

	id := prog.Unit.String()
	s.units.Put(id, seq)
	return &CompileResponse{
		Success: true,
		Unit:    id,
		Source:  prog.Source(),
		Cached:  hit,
	}, nil
}

// Run interprets the request's stream on the worker goroutine.
func (s *Service) Run(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	var seq ir.Sequence
	switch {
	case req.Unit != "":
		var ok bool
		if seq, ok = s.units.Lookup(req.Unit); !ok {
			return nil, fmt.Errorf("%w: unit %q not found", ErrInvalidArgument, req.Unit)
		}
	default:
		var err error
		if seq, err = decodeStream(req.Format, req.Stream); err != nil {
			return nil, err
		}
	}

	v, err := s.worker.Do(ctx, func() any {
		return s.run(seq)
	})
	if err != nil {
		return &RunResponse{Success: false, ErrorMessage: err.Error()}, nil
	}
	return v.(*RunResponse), nil
}

func (s *Service) run(seq ir.Sequence) *RunResponse {
	var out bytes.Buffer
	m := vm.New(seq, vm.WithOutput(&out), vm.WithMaxFrames(s.maxFrames))
	v, err := m.Run()
	if err != nil {
		log.Infof("run failed: %s", err)
		return &RunResponse{Success: false, Output: out.String(), ErrorMessage: err.Error()}
	}
	return &RunResponse{Success: true, Result: v.Inspect(), Output: out.String()}
}

func decodeStream(format string, data []byte) (ir.Sequence, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: stream is required", ErrInvalidArgument)
	}
	if format == "" {
		format = string(ir.FormatYAML)
	}
	seq, err := ir.Decode(ir.Format(format), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return seq, nil
}
