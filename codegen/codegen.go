// Package codegen translates tokenized programs into source for other
// toolchains. Every backend reproduces the interpreter's observable
// behaviour: the same bytes written for the same bytes read, with cells
// wrapping modulo 256.
//
// Backends assume a program produced by compiler.Tokenize (or one that
// passed Program.Validate); they do not re-check loop matching.
package codegen

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/chazu/brainfck/compiler"
)

// Options controls code generation.
type Options struct {
	// EOF selects what a read stores once input is exhausted.
	EOF compiler.EOFPolicy

	// Compact drops indentation and line breaks inside the program body.
	// Only the C backend honours it.
	Compact bool
}

// Backend emits a program in one target language.
type Backend interface {
	Name() string
	Generate(w io.Writer, prog compiler.Program, opts Options) error
}

var backends = map[string]Backend{}

func register(b Backend) {
	backends[b.Name()] = b
}

func init() {
	register(C{})
	register(SSA{})
	register(Go{})
}

// Lookup returns the backend registered under name.
func Lookup(name string) (Backend, error) {
	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (have %v)", name, Names())
	}
	return b, nil
}

// Names lists the registered backends in sorted order.
func Names() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// emitter buffers generated text. bufio.Writer keeps the first write error,
// so callers check it once in finish.
type emitter struct {
	w *bufio.Writer
}

func newEmitter(w io.Writer) *emitter {
	return &emitter{w: bufio.NewWriter(w)}
}

func (e *emitter) printf(format string, args ...any) {
	fmt.Fprintf(e.w, format, args...)
}

func (e *emitter) finish() error {
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("codegen: write: %w", err)
	}
	return nil
}
