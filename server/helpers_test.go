package server

import (
	"context"
	"testing"

	"github.com/chazu/ember/cache"
	"github.com/chazu/ember/codegen"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

const addStream = `
- push_int: 1
- push_int: 2
- add
- return
`

const putsStream = `
- push_self
- push_string: hello
- send: {message: puts, argc: 1}
- pop
- push_int: 7
`

const divideByZeroStream = `
- push_int: 1
- push_int: 0
- div
`

func bg() context.Context { return context.Background() }

// newTestService creates a Service backed by an in-memory cache. The worker
// is stopped when the test ends.
func newTestService(t *testing.T) *Service {
	t.Helper()
	c, err := cache.Open(":memory:")
	require.NoError(t, err)
	w := NewWorker()
	t.Cleanup(func() {
		w.Stop()
		c.Close()
	})
	return NewService(w, NewUnitStore(), c, codegen.Options{}, 100)
}

func yamlCompile(stream string) *CompileRequest {
	return &CompileRequest{Format: "yaml", Stream: []byte(stream)}
}

func yamlRun(stream string) *RunRequest {
	return &RunRequest{Format: "yaml", Stream: []byte(stream)}
}
