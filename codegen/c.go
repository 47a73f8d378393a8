package codegen

import (
	"io"
	"strconv"
	"strings"

	"github.com/chazu/brainfck/compiler"
)

// C emits portable C operating on an unsigned char array and a size_t index.
type C struct{}

// Name implements Backend.
func (C) Name() string { return "c" }

// Generate implements Backend.
func (C) Generate(w io.Writer, prog compiler.Program, opts Options) error {
	g := &cgen{e: newEmitter(w), opts: opts}

	g.e.printf("#include <stdio.h>\n")
	g.e.printf("#include <stddef.h>\n\n")
	g.e.printf("unsigned char mem[%d] = {0};\n", compiler.TapeSize)
	g.e.printf("size_t head = 0;\n\n")
	if opts.Compact {
		g.e.printf("int main(void) {")
	} else {
		g.e.printf("int main(void) {\n")
	}

	g.block(prog, 0, len(prog), 1)
	g.line(1, "return 0;")

	g.e.printf("}\n")
	return g.e.finish()
}

type cgen struct {
	e    *emitter
	opts Options
}

// line writes one statement at the given nesting depth.
func (g *cgen) line(depth int, stmt string) {
	if g.opts.Compact {
		g.e.printf("%s", stmt)
		return
	}
	g.e.printf("%s%s\n", strings.Repeat("\t", depth), stmt)
}

// block emits prog[start:end] at depth. Loop bodies recurse one level
// deeper; the loop's own operand marks where the body ends.
func (g *cgen) block(prog compiler.Program, start, end, depth int) {
	for i := start; i < end; i++ {
		tok := prog[i]
		switch tok.Kind {
		case compiler.Increment:
			g.line(depth, "mem[head] += "+strconv.Itoa(tok.Operand)+";")
		case compiler.Decrement:
			g.line(depth, "mem[head] -= "+strconv.Itoa(tok.Operand)+";")
		case compiler.ShiftLeft:
			g.line(depth, "head -= "+strconv.Itoa(tok.Operand)+";")
		case compiler.ShiftRight:
			g.line(depth, "head += "+strconv.Itoa(tok.Operand)+";")
		case compiler.Write:
			for n := 0; n < tok.Operand; n++ {
				g.line(depth, "putchar(mem[head]);")
			}
		case compiler.Read:
			for n := 0; n < tok.Operand; n++ {
				g.line(depth, g.readStmt())
			}
		case compiler.LoopStart:
			g.line(depth, "while (mem[head]) {")
			g.block(prog, i+1, tok.Operand, depth+1)
			g.line(depth, "}")
			i = tok.Operand
		}
	}
}

func (g *cgen) readStmt() string {
	switch g.opts.EOF {
	case compiler.EOFZero:
		return "{ int c = getchar(); mem[head] = c == EOF ? 0 : c; }"
	case compiler.EOFUnchanged:
		return "{ int c = getchar(); if (c != EOF) mem[head] = c; }"
	}
	// EOF (-1) converts to 255.
	return "mem[head] = getchar();"
}
