// Package cache stores compiled units in SQLite, keyed by the content hash
// of the instruction stream and the compiler options.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chazu/ember/codegen"
	"github.com/chazu/ember/ir"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("ember.cache")

// ErrNotFound indicates the requested unit is not cached.
var ErrNotFound = errors.New("unit not cached")

// Cache is a SQLite-backed store of compiled programs. It is safe for
// concurrent use.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// record is the stored form of a codegen.Program.
type record struct {
	Unit   string   `cbor:"u"`
	Top    []string `cbor:"t"`
	Body   string   `cbor:"b"`
	Header string   `cbor:"h"`
	Entry  string   `cbor:"e"`
}

// Open opens or creates the cache database at path. The special path
// ":memory:" keeps the cache in memory.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS compiled (
		hash TEXT PRIMARY KEY,
		unit TEXT NOT NULL,
		program BLOB NOT NULL,
		source TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened %s", path)
	return &Cache{db: db, path: path}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the database path.
func (c *Cache) Path() string { return c.path }

// Key derives the cache key of seq compiled with opts.
func Key(seq ir.Sequence, opts codegen.Options) (string, error) {
	digest, err := ir.Hash(seq)
	if err != nil {
		return "", err
	}
	opts = opts.WithDefaults()
	h := sha256.New()
	h.Write(digest[:])
	fmt.Fprintf(h, "\x00%s\x00%s\x00%s", opts.VarPrefix, opts.Header, opts.Entry)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns the cached program stored under key.
func (c *Cache) Get(key string) (*codegen.Program, error) {
	var blob []byte
	err := c.db.QueryRow("SELECT program FROM compiled WHERE hash = ?", key).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying unit: %w", err)
	}

	var r record
	if err := cbor.Unmarshal(blob, &r); err != nil {
		return nil, fmt.Errorf("decoding unit %s: %w", key, err)
	}
	unit, err := uuid.Parse(r.Unit)
	if err != nil {
		return nil, fmt.Errorf("decoding unit %s: %w", key, err)
	}
	return &codegen.Program{
		Unit:   unit,
		Top:    r.Top,
		Body:   r.Body,
		Header: r.Header,
		Entry:  r.Entry,
	}, nil
}

// Put stores prog under key, replacing any previous entry.
func (c *Cache) Put(key string, prog *codegen.Program) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	blob, err := cbor.Marshal(record{
		Unit:   prog.Unit.String(),
		Top:    prog.Top,
		Body:   prog.Body,
		Header: prog.Header,
		Entry:  prog.Entry,
	})
	if err != nil {
		return fmt.Errorf("encoding unit: %w", err)
	}

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO compiled (hash, unit, program, source, created_at) VALUES (?, ?, ?, ?, ?)",
		key, prog.Unit.String(), blob, prog.Source(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving unit: %w", err)
	}
	return nil
}

// Len returns the number of cached units.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM compiled").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting units: %w", err)
	}
	return n, nil
}

// Compile returns the cached translation of seq, compiling and storing it
// on a miss. hit reports whether the cache answered. A nil Cache compiles
// without caching.
func (c *Cache) Compile(seq ir.Sequence, opts codegen.Options) (prog *codegen.Program, hit bool, err error) {
	if c == nil {
		prog, err = codegen.Compile(seq, opts)
		return prog, false, err
	}

	key, err := Key(seq, opts)
	if err != nil {
		return nil, false, err
	}
	prog, err = c.Get(key)
	switch {
	case err == nil:
		log.Debugf("hit %s (unit %s)", key[:12], prog.Unit)
		return prog, true, nil
	case !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	prog, err = codegen.Compile(seq, opts)
	if err != nil {
		return nil, false, err
	}
	if err := c.Put(key, prog); err != nil {
		return nil, false, err
	}
	log.Debugf("stored %s (unit %s)", key[:12], prog.Unit)
	return prog, false, nil
}
