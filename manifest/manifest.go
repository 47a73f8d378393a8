// Package manifest handles bfc.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/brainfck/compiler"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "bfc.toml"

// Manifest represents a bfc.toml configuration.
type Manifest struct {
	Run   RunConfig   `toml:"run" json:"run"`
	Emit  EmitConfig  `toml:"emit" json:"emit"`
	Cache CacheConfig `toml:"cache" json:"cache"`
	Log   LogConfig   `toml:"log" json:"log"`

	// Dir is the directory containing the bfc.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// RunConfig configures the interpreter.
type RunConfig struct {
	EOF string `toml:"eof" json:"eof"`
}

// EmitConfig configures the code generators.
type EmitConfig struct {
	Backend string `toml:"backend" json:"backend"`
	Compact bool   `toml:"compact" json:"compact"`
	Output  string `toml:"output" json:"output"`
}

// CacheConfig configures the token cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	File      string `toml:"file" json:"file"`
}

// Default returns the configuration used when no bfc.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Run.EOF == "" {
		m.Run.EOF = compiler.EOFMinusOne.String()
	}
	if m.Emit.Backend == "" {
		m.Emit.Backend = "c"
	}
}

// Load parses a bfc.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses and validates the configuration file at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	m.applyDefaults()
	if err := Validate(&m); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a bfc.toml file, then loads and
// returns the manifest. Returns nil if no manifest is found.
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

// EOFPolicy returns the configured end-of-input policy.
func (m *Manifest) EOFPolicy() (compiler.EOFPolicy, error) {
	return compiler.ParseEOFPolicy(m.Run.EOF)
}

// CachePath returns the token cache database path. Relative paths resolve
// against the manifest directory; an empty path uses the user cache dir.
func (m *Manifest) CachePath() (string, error) {
	if m.Cache.Path != "" {
		if filepath.IsAbs(m.Cache.Path) || m.Dir == "" {
			return m.Cache.Path, nil
		}
		return filepath.Join(m.Dir, m.Cache.Path), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache dir: %w", err)
	}
	return filepath.Join(base, "bfc", "tokens.db"), nil
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
