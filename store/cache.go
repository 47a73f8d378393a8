package store

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/brainfck/compiler"
)

var log = commonlog.GetLogger("bfc.store")

// ErrCacheMiss indicates no cached program exists for a source hash.
var ErrCacheMiss = errors.New("store: cache miss")

// Cache stores tokenized programs in SQLite, keyed by source hash.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// OpenCache opens (creating if needed) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		hash TEXT PRIMARY KEY,
		image BLOB NOT NULL,
		tokens INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened token cache %s", path)
	return &Cache{db: db, path: path}, nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get retrieves the program cached under hash.
func (c *Cache) Get(hash [32]byte) (compiler.Program, error) {
	var data []byte
	err := c.db.QueryRow("SELECT image FROM programs WHERE hash = ?", hex.EncodeToString(hash[:])).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}

	prog, stored, err := UnmarshalProgram(data)
	if err != nil {
		return nil, err
	}
	if stored != hash {
		return nil, fmt.Errorf("%w: hash mismatch", ErrBadImage)
	}
	return prog, nil
}

// Put stores prog under hash, replacing any previous entry.
func (c *Cache) Put(hash [32]byte, prog compiler.Program) error {
	data, err := MarshalProgram(prog, hash)
	if err != nil {
		return fmt.Errorf("encoding program: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO programs (hash, image, tokens, created_at) VALUES (?, ?, ?, ?)",
		hex.EncodeToString(hash[:]), data, len(prog), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving program: %w", err)
	}
	return nil
}

// Len returns the number of cached programs.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM programs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting programs: %w", err)
	}
	return n, nil
}

// Tokenize returns the cached program for src, tokenizing and storing it on
// a miss. Lex errors are never cached. A damaged entry is logged and
// overwritten.
func (c *Cache) Tokenize(src string) (compiler.Program, error) {
	hash := HashSource(src)
	prog, err := c.Get(hash)
	switch {
	case err == nil:
		log.Debugf("cache hit %x", hash[:6])
		return prog, nil
	case errors.Is(err, ErrCacheMiss):
	default:
		log.Warningf("ignoring cache entry %x: %s", hash[:6], err.Error())
	}

	prog, err = compiler.Tokenize(src)
	if err != nil {
		return nil, err
	}
	if err := c.Put(hash, prog); err != nil {
		log.Warningf("cannot cache program: %s", err.Error())
	}
	return prog, nil
}
