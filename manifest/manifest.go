// Package manifest handles ember.toml project configuration.
package manifest

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "ember.toml"

// Manifest represents an ember.toml project configuration.
type Manifest struct {
	Project  Project  `toml:"project" json:"project"`
	Compiler Compiler `toml:"compiler" json:"compiler"`
	VM       VMConfig `toml:"vm" json:"vm"`
	Cache    Cache    `toml:"cache" json:"cache"`
	Log      Log      `toml:"log" json:"log"`
	Server   Server   `toml:"server" json:"server"`

	// Dir is the directory containing the ember.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name" json:"name"`
	Version string `toml:"version" json:"version"`
}

// Compiler configures C++ generation.
type Compiler struct {
	VarPrefix string `toml:"var_prefix" json:"var_prefix"`
	Header    string `toml:"header" json:"header"`
	Entry     string `toml:"entry" json:"entry"`
}

// VMConfig configures the interpreter.
type VMConfig struct {
	MaxFrames int `toml:"max_frames" json:"max_frames"`
}

// Cache configures the compiled-unit cache.
type Cache struct {
	Enabled *bool  `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// Log configures logging. Verbosity follows commonlog: 0 logs notices and
// above, each step up adds a level, negative values log less.
type Log struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	File      string `toml:"file" json:"file"`
}

// Server configures the compile service.
type Server struct {
	Address string `toml:"address" json:"address"`
}

//go:embed schema.cue
var schemaSource string

// Default returns the configuration used when no ember.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Compiler.VarPrefix == "" {
		m.Compiler.VarPrefix = "ember_"
	}
	if m.Compiler.Header == "" {
		m.Compiler.Header = "natalie.hpp"
	}
	if m.Compiler.Entry == "" {
		m.Compiler.Entry = "EVAL"
	}
	if m.VM.MaxFrames == 0 {
		m.VM.MaxFrames = 10000
	}
	if m.Cache.Enabled == nil {
		enabled := true
		m.Cache.Enabled = &enabled
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".ember", "cache.db")
	}
	if m.Server.Address == "" {
		m.Server.Address = "localhost:4567"
	}
}

// Load parses an ember.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes and validates ember.toml contents.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find an ember.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks the configuration against the embedded CUE schema.
func (m *Manifest) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}

	config := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(m))
	if err := config.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid configuration: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// CacheEnabled reports whether compiled units are cached.
func (m *Manifest) CacheEnabled() bool {
	return m.Cache.Enabled != nil && *m.Cache.Enabled
}

// CachePath returns the cache database path, resolved against Dir.
func (m *Manifest) CachePath() string {
	if filepath.IsAbs(m.Cache.Path) || m.Dir == "" {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}

// LogFile returns the log file path, or nil to log to stderr.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.Log.File
	if !filepath.IsAbs(path) && m.Dir != "" {
		path = filepath.Join(m.Dir, path)
	}
	return &path
}
