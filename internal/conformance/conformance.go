// Package conformance loads the shared program fixtures used to check that
// the interpreter and every code generator agree.
package conformance

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/chazu/brainfck/compiler"
)

// Case is one program with its input and expected output.
type Case struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Input  string `yaml:"input"`
	EOF    string `yaml:"eof"`
	Output string `yaml:"output"`
	Fault  string `yaml:"fault"` // expected runtime fault kind, empty if none
}

// Policy returns the case's EOF policy, defaulting to minus-one.
func (c Case) Policy() (compiler.EOFPolicy, error) {
	if c.EOF == "" {
		return compiler.EOFMinusOne, nil
	}
	return compiler.ParseEOFPolicy(c.EOF)
}

type file struct {
	Programs []Case `yaml:"programs"`
}

// Load reads fixtures from path.
func Load(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	for i, c := range f.Programs {
		if c.Name == "" {
			return nil, fmt.Errorf("%s: program %d has no name", path, i)
		}
		if _, err := c.Policy(); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", path, c.Name, err)
		}
	}
	return f.Programs, nil
}

// DefaultPath is the repository's testdata/programs.yaml.
func DefaultPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "testdata", "programs.yaml")
}

// LoadDefault loads DefaultPath.
func LoadDefault() ([]Case, error) {
	return Load(DefaultPath())
}
