package compiler

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable token listing for the program.
func (p Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a token listing with a name header.
func (p Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	ops := 0
	for _, tok := range p {
		if tok.Kind.IsJump() {
			ops++
		} else {
			ops += tok.Operand
		}
	}
	sb.WriteString(fmt.Sprintf("; %d tokens, %d operators, loop depth %d\n\n", len(p), ops, p.Depth()))

	width := len(fmt.Sprint(len(p)))
	depth := 0
	for i, tok := range p {
		if tok.Kind == LoopEnd {
			depth--
		}
		indent := strings.Repeat("  ", depth)
		switch tok.Kind {
		case LoopStart, LoopEnd:
			sb.WriteString(fmt.Sprintf("%0*d  %s%-5s -> %d\n", width, i, indent, tok.Kind.Name(), tok.Operand))
		default:
			sb.WriteString(fmt.Sprintf("%0*d  %s%-5s %d\n", width, i, indent, tok.Kind.Name(), tok.Operand))
		}
		if tok.Kind == LoopStart {
			depth++
		}
	}
	return sb.String()
}
