package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chazu/ember/codegen"
	"github.com/stretchr/testify/require"
)

func TestServer_ServesConfiguredOptions(t *testing.T) {
	s := New(
		WithCompileOptions(codegen.Options{VarPrefix: "srv_"}),
		WithMaxFrames(10),
		WithUnitTTL(time.Minute),
	)
	defer s.Stop()

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	client := NewConnectClient(srv.Client(), srv.URL)

	compiled, err := client.Compile(bg(), yamlCompile(addStream))
	require.NoError(t, err)
	require.True(t, compiled.Success, compiled.ErrorMessage)
	require.Contains(t, compiled.Source, "return srv_add1;")
	require.Contains(t, compiled.Source, "Value EVAL(", "unset options keep their defaults")
	require.Equal(t, 1, s.units.Len())
}

func TestServer_MaxFrames(t *testing.T) {
	s := New(WithMaxFrames(5))
	defer s.Stop()

	// def f; f; end; f
	resp, err := s.Service().Run(bg(), yamlRun(`
- define_method: {name: f, arity: 0}
- send: {message: f, argc: 0, self: true}
- end: define_method
- pop
- send: {message: f, argc: 0, self: true}
`))
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Contains(t, resp.ErrorMessage, "SystemStackError")
}
