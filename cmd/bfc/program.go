package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/brainfck/codegen"
	"github.com/chazu/brainfck/compiler"
	"github.com/chazu/brainfck/server"
	"github.com/chazu/brainfck/store"
	"github.com/chazu/brainfck/vm"
)

const stdinName = "<stdin>"

var errNotFound = errors.New("file not found")

// source is a loaded input: Brainfuck text or a decoded program image.
type source struct {
	name string // base name for diagnostics
	path string
	text string // empty for images
	hash [32]byte
	prog compiler.Program
}

// loader reads inputs, consulting the token cache when one is open.
type loader struct {
	stdin io.Reader
	cache *store.Cache
}

// load reads path ("-" for stdin) and tokenizes it. The returned source is
// non-nil even on error so diagnostics can be positioned.
func (l *loader) load(path string) (*source, error) {
	src := &source{path: path, name: stdinName}
	if path != "-" {
		src.name = filepath.Base(path)
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(l.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return src, fmt.Errorf("%s: %w", path, errNotFound)
	}
	if err != nil {
		return src, fmt.Errorf("cannot read %s: %w", path, err)
	}

	if store.IsImage(data) {
		log.Debugf("loading program image %s", src.name)
		src.prog, src.hash, err = store.UnmarshalProgram(data)
		return src, err
	}

	src.text = string(data)
	src.hash = store.HashSource(src.text)
	if l.cache != nil {
		src.prog, err = l.cache.Tokenize(src.text)
	} else {
		src.prog, err = compiler.Tokenize(src.text)
	}
	return src, err
}

// describeError renders err as the single stderr message for the user.
func describeError(src *source, err error) string {
	var lexErr *compiler.LexError
	switch {
	case errors.As(err, &lexErr):
		pos := compiler.Locate(src.text, lexErr.Offset)
		return fmt.Sprintf("error: %s:%d:%d: %s", src.name, pos.Line, pos.Column, lexErr.Error())
	case errors.Is(err, vm.ErrOutOfBounds):
		log.Debugf("%s: %s", src.name, err.Error())
		return "\nruntime error: " + vm.ErrOutOfBounds.Error()
	}
	return "error: " + err.Error()
}

func runProgram(prog compiler.Program, stdin io.Reader, stdout io.Writer, eof compiler.EOFPolicy) error {
	return vm.Run(prog, stdin, stdout, eof)
}

func generate(w io.Writer, backend string, prog compiler.Program, compact bool, eof compiler.EOFPolicy) error {
	b, err := codegen.Lookup(backend)
	if err != nil {
		return err
	}
	return b.Generate(w, prog, codegen.Options{EOF: eof, Compact: compact})
}

func writeImage(w io.Writer, src *source) error {
	data, err := store.MarshalProgram(src.prog, src.hash)
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// buildOutput picks the image path: the configured output, stdout for
// stdin input, else the input path with a .bfi extension.
func buildOutput(path, configured string) string {
	if configured != "" {
		return configured
	}
	if path == "-" {
		return ""
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".bfi"
}

func openCache(path string) (*store.Cache, error) {
	return store.OpenCache(path)
}

func serveLSP() error {
	return server.NewLSP(version).Run()
}
