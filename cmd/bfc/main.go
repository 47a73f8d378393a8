// bfc - Brainfuck interpreter and compiler
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/brainfck/manifest"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

var log = commonlog.GetLogger("bfc")

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	opts := registerFlags(flag.CommandLine)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bfc [options] <mode> <file|->\n\n")
		fmt.Fprintf(os.Stderr, "Modes:\n")
		fmt.Fprintf(os.Stderr, "  run     Interpret the program\n")
		fmt.Fprintf(os.Stderr, "  c       Generate C source\n")
		fmt.Fprintf(os.Stderr, "  ssa     Generate QBE intermediate language\n")
		fmt.Fprintf(os.Stderr, "  go      Generate Go source\n")
		fmt.Fprintf(os.Stderr, "  emit    Generate code with the backend named in bfc.toml\n")
		fmt.Fprintf(os.Stderr, "  dump    Print the token listing\n")
		fmt.Fprintf(os.Stderr, "  build   Write a program image (.bfi)\n")
		fmt.Fprintf(os.Stderr, "  lsp     Start the language server on stdio (no file)\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  bfc run hello.b            # Interpret hello.b\n")
		fmt.Fprintf(os.Stderr, "  bfc -o hello.c c hello.b   # Compile to C\n")
		fmt.Fprintf(os.Stderr, "  bfc build hello.b          # Write hello.bfi\n")
		fmt.Fprintf(os.Stderr, "  bfc run hello.bfi          # Run a program image\n")
	}
	flag.Parse()

	m, err := loadManifest(opts.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitError)
	}

	if err := opts.apply(flag.CommandLine, m); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitUsage)
	}

	commonlog.Configure(m.Log.Verbosity, m.LogFile())

	mode, path, err := parseArgs(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n\n", err)
		flag.Usage()
		os.Exit(exitUsage)
	}

	os.Exit(execute(mode, path, m, os.Stdin, os.Stdout, os.Stderr))
}

// options holds the command-line flags that override bfc.toml.
type options struct {
	output    string
	eof       string
	compact   bool
	cache     bool
	config    string
	verbosity int
}

func registerFlags(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVar(&o.output, "o", "", "Output file (default: manifest emit.output, else stdout)")
	fs.StringVar(&o.eof, "eof", "", "End-of-input policy: minus-one, zero, unchanged")
	fs.BoolVar(&o.compact, "compact", false, "Emit C without indentation or newlines")
	fs.BoolVar(&o.cache, "cache", false, "Cache tokenized programs in the sqlite token cache")
	fs.StringVar(&o.config, "config", "", "Path to bfc.toml (default: search upward from the working directory)")
	fs.IntVar(&o.verbosity, "v", 0, "Log verbosity (0-5)")
	return o
}

// apply copies the flags set on fs into m and checks the result against
// the manifest schema.
func (o *options) apply(fs *flag.FlagSet, m *manifest.Manifest) error {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			m.Emit.Output = o.output
		case "eof":
			m.Run.EOF = o.eof
		case "compact":
			m.Emit.Compact = o.compact
		case "cache":
			m.Cache.Enabled = o.cache
		case "v":
			m.Log.Verbosity = o.verbosity
		}
	})
	if err := manifest.Validate(m); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// loadManifest reads an explicit config file, or searches upward from the
// working directory, falling back to defaults.
func loadManifest(path string) (*manifest.Manifest, error) {
	if path != "" {
		return manifest.LoadFile(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return manifest.Default(), nil
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	log.Debugf("using %s/%s", m.Dir, manifest.FileName)
	return m, nil
}

// execute runs one mode to completion and returns the process exit code.
func execute(mode Mode, path string, m *manifest.Manifest, stdin io.Reader, stdout, stderr io.Writer) int {
	if mode == ModeLSP {
		if err := serveLSP(); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitError
		}
		return exitOK
	}

	policy, err := m.EOFPolicy()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	loader := &loader{stdin: stdin}
	if m.Cache.Enabled {
		cachePath, err := m.CachePath()
		if err == nil {
			loader.cache, err = openCache(cachePath)
		}
		if err != nil {
			log.Warningf("token cache disabled: %s", err.Error())
		} else {
			log.Debugf("token cache %s", loader.cache.Path())
			defer loader.cache.Close()
		}
	}

	src, err := loader.load(path)
	if err != nil {
		fmt.Fprintln(stderr, describeError(src, err))
		return exitError
	}

	switch mode {
	case ModeRun:
		err = runProgram(src.prog, stdin, stdout, policy)
	case ModeBuild:
		err = writeOutput(buildOutput(path, m.Emit.Output), stdout, func(w io.Writer) error {
			return writeImage(w, src)
		})
	case ModeDump:
		err = writeOutput(m.Emit.Output, stdout, func(w io.Writer) error {
			_, err := io.WriteString(w, src.prog.DisassembleWithName(src.name))
			return err
		})
	default:
		backend := string(mode)
		if mode == ModeEmit {
			backend = m.Emit.Backend
		}
		err = writeOutput(m.Emit.Output, stdout, func(w io.Writer) error {
			return generate(w, backend, src.prog, m.Emit.Compact, policy)
		})
	}
	if err != nil {
		fmt.Fprintln(stderr, describeError(src, err))
		return exitError
	}
	return exitOK
}

// writeOutput sends generated output to path, or to stdout when path is
// empty or "-".
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
