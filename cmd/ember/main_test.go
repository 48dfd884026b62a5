package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const addStream = `
- push_int: 1
- push_int: 2
- add
- return
`

// project creates a project directory with an ember.toml and the given
// stream files.
func project(t *testing.T, toml string, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ember.toml"), []byte(toml), 0644))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--dir", dir, "--log-file", filepath.Join(dir, "ember.log")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

const noCache = "[cache]\nenabled = false\n"

func TestCompile_Stdout(t *testing.T) {
	dir := project(t, noCache, map[string]string{"add.yaml": addStream})

	out, err := execute(t, dir, "compile", filepath.Join(dir, "add.yaml"))
	require.NoError(t, err)
	require.Contains(t, out, "#include \"natalie.hpp\"")
	require.Contains(t, out, "return ember_add1;")
}

func TestCompile_OutputFile(t *testing.T) {
	dir := project(t, "[compiler]\nvar_prefix = \"p_\"\n"+noCache, map[string]string{"add.yaml": addStream})
	target := filepath.Join(dir, "add.cpp")

	out, err := execute(t, dir, "compile", "-o", target, filepath.Join(dir, "add.yaml"))
	require.NoError(t, err)
	require.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Contains(t, string(data), "return p_add1;")
}

func TestCompile_OutputNeedsOneFile(t *testing.T) {
	dir := project(t, noCache, map[string]string{"a.yaml": addStream, "b.yaml": addStream})

	_, err := execute(t, dir, "compile", "-o", filepath.Join(dir, "x.cpp"),
		filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yaml"))
	require.ErrorContains(t, err, "exactly one input")
}

func TestCompile_ReportsEveryFailure(t *testing.T) {
	dir := project(t, noCache, map[string]string{
		"good.yaml":   addStream,
		"stray.yaml":  "- end: if\n",
		"unknown.txt": "nothing",
	})

	out, err := execute(t, dir, "compile",
		filepath.Join(dir, "stray.yaml"), filepath.Join(dir, "good.yaml"), filepath.Join(dir, "unknown.txt"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "2 files failed")
	require.Contains(t, err.Error(), "stray.yaml")
	require.Contains(t, err.Error(), "unknown.txt")
	require.Contains(t, out, "return ember_add1;", "good files still compile")
}

func TestCompile_UsesCache(t *testing.T) {
	dir := project(t, "[cache]\npath = \"build/cache.db\"\n", map[string]string{"add.yaml": addStream})

	first, err := execute(t, dir, "compile", filepath.Join(dir, "add.yaml"))
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "build", "cache.db"))

	second, err := execute(t, dir, "compile", filepath.Join(dir, "add.yaml"))
	require.NoError(t, err)
	require.Equal(t, first, second, "a cached unit keeps its unit ID")
}

func TestRun(t *testing.T) {
	dir := project(t, noCache, map[string]string{
		"add.yaml": addStream,
		"puts.yaml": `
- push_self
- push_string: hi
- send: {message: puts, argc: 1}
`,
	})

	out, err := execute(t, dir, "run", filepath.Join(dir, "add.yaml"))
	require.NoError(t, err)
	require.Equal(t, "3\n", out)

	out, err = execute(t, dir, "run", filepath.Join(dir, "puts.yaml"))
	require.NoError(t, err)
	require.Equal(t, "hi\nnil\n", out)
}

func TestRun_UncaughtException(t *testing.T) {
	dir := project(t, noCache, map[string]string{"div.yaml": "- push_int: 1\n- push_int: 0\n- div\n"})

	_, err := execute(t, dir, "run", filepath.Join(dir, "div.yaml"))
	require.ErrorContains(t, err, "ZeroDivisionError: divided by 0")
}

func TestDis(t *testing.T) {
	dir := project(t, noCache, map[string]string{"add.yaml": addStream})

	out, err := execute(t, dir, "dis", filepath.Join(dir, "add.yaml"))
	require.NoError(t, err)
	require.Contains(t, out, "; === add.yaml ===")
	require.Contains(t, out, "0002  add")
}

func TestVersion(t *testing.T) {
	dir := project(t, noCache, nil)

	out, err := execute(t, dir, "version")
	require.NoError(t, err)
	require.Contains(t, out, "ember dev")
}

func TestInvalidManifest(t *testing.T) {
	dir := project(t, "[vm]\nmax_frames = -1\n", nil)

	_, err := execute(t, dir, "version")
	require.ErrorContains(t, err, "max_frames")
}
