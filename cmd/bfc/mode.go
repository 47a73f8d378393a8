package main

import (
	"fmt"
	"strings"
)

// Mode selects what bfc does with its input.
type Mode string

const (
	ModeRun   Mode = "run"
	ModeC     Mode = "c"
	ModeSSA   Mode = "ssa"
	ModeGo    Mode = "go"
	ModeEmit  Mode = "emit"
	ModeDump  Mode = "dump"
	ModeBuild Mode = "build"
	ModeLSP   Mode = "lsp"
)

var modes = []Mode{ModeRun, ModeC, ModeSSA, ModeGo, ModeEmit, ModeDump, ModeBuild, ModeLSP}

// parseArgs splits positional arguments into a mode and an input path.
func parseArgs(args []string) (Mode, string, error) {
	if len(args) == 0 {
		return "", "", fmt.Errorf("missing mode")
	}

	mode := Mode(args[0])
	known := false
	for _, m := range modes {
		if m == mode {
			known = true
			break
		}
	}
	if !known {
		names := make([]string, len(modes))
		for i, m := range modes {
			names[i] = string(m)
		}
		return "", "", fmt.Errorf("unknown mode %q (want one of %s)", args[0], strings.Join(names, ", "))
	}

	if mode == ModeLSP {
		if len(args) != 1 {
			return "", "", fmt.Errorf("lsp takes no file argument")
		}
		return mode, "", nil
	}

	switch len(args) {
	case 1:
		return "", "", fmt.Errorf("%s: missing input file", mode)
	case 2:
		return mode, args[1], nil
	}
	return "", "", fmt.Errorf("%s: expected one input file, got %d", mode, len(args)-1)
}
