package codegen

import (
	"io"
	"strconv"

	"github.com/chazu/brainfck/compiler"
)

// SSA emits QBE intermediate language. Every operand is first produced into
// a fresh temporary (%.N, N counting up from 1) and every loop gets three
// blocks named after the LoopStart's index:
//
//	@loop_cond.I  reload the cell and branch
//	@loop_body.I  loop body
//	@loop_join.I  first block after the loop
//
// The LoopEnd token derives the same names from its operand, so the two
// emission sites agree without a lookup table.
type SSA struct{}

// Name implements Backend.
func (SSA) Name() string { return "ssa" }

// Generate implements Backend.
func (SSA) Generate(w io.Writer, prog compiler.Program, opts Options) error {
	g := &ssagen{e: newEmitter(w), eof: opts.EOF}

	g.e.printf("data $memory = align 1 { z %d }\n", compiler.TapeSize)
	g.e.printf("data $head = align 8 { l 0 }\n\n")
	g.e.printf("export function w $main() {\n")
	g.label("start")

	for i, tok := range prog {
		switch tok.Kind {
		case compiler.Increment:
			g.updateCell("add", tok.Operand)
		case compiler.Decrement:
			g.updateCell("sub", tok.Operand)
		case compiler.ShiftLeft:
			g.updateHead("sub", tok.Operand)
		case compiler.ShiftRight:
			g.updateHead("add", tok.Operand)
		case compiler.Write:
			for n := 0; n < tok.Operand; n++ {
				_, val := g.loadCell()
				g.inst("%s =w call $putchar(w %s)", g.reg(), val)
			}
		case compiler.Read:
			for n := 0; n < tok.Operand; n++ {
				g.read()
			}
		case compiler.LoopStart:
			g.label("loop_cond.%d", i)
			_, val := g.loadCell()
			g.inst("jnz %s, @loop_body.%d, @loop_join.%d", val, i, i)
			g.label("loop_body.%d", i)
		case compiler.LoopEnd:
			g.inst("jmp @loop_cond.%d", tok.Operand)
			g.label("loop_join.%d", tok.Operand)
		}
	}

	g.inst("ret 0")
	g.e.printf("}\n")
	return g.e.finish()
}

type ssagen struct {
	e   *emitter
	eof compiler.EOFPolicy
	n   int // last temporary handed out
}

// reg returns a fresh temporary name.
func (g *ssagen) reg() string {
	g.n++
	return "%." + strconv.Itoa(g.n)
}

func (g *ssagen) inst(format string, args ...any) {
	g.e.printf("\t"+format+"\n", args...)
}

func (g *ssagen) label(format string, args ...any) {
	g.e.printf("@"+format+"\n", args...)
}

// cellAddr loads the head and returns the address of the current cell.
func (g *ssagen) cellAddr() string {
	head, addr := g.reg(), g.reg()
	g.inst("%s =l loadl $head", head)
	g.inst("%s =l add $memory, %s", addr, head)
	return addr
}

// loadCell returns the current cell's address and its zero-extended value.
func (g *ssagen) loadCell() (addr, val string) {
	addr = g.cellAddr()
	val = g.reg()
	g.inst("%s =w loadub %s", val, addr)
	return addr, val
}

// updateCell applies op with an immediate to the current cell. storeb keeps
// the low byte, which is the modulo-256 wrap.
func (g *ssagen) updateCell(op string, n int) {
	addr, val := g.loadCell()
	res := g.reg()
	g.inst("%s =w %s %s, %d", res, op, val, n)
	g.inst("storeb %s, %s", res, addr)
}

func (g *ssagen) updateHead(op string, n int) {
	head, res := g.reg(), g.reg()
	g.inst("%s =l loadl $head", head)
	g.inst("%s =l %s %s, %d", res, op, head, n)
	g.inst("storel %s, $head", res)
}

// read stores one getchar result into the current cell. The EOF policies
// are branch-free: mask is all ones exactly when getchar returned -1.
func (g *ssagen) read() {
	c := g.reg()
	g.inst("%s =w call $getchar()", c)

	switch g.eof {
	case compiler.EOFZero:
		mask, keep, val := g.reg(), g.reg(), g.reg()
		g.inst("%s =w sar %s, 31", mask, c)
		g.inst("%s =w xor %s, -1", keep, mask)
		g.inst("%s =w and %s, %s", val, c, keep)
		addr := g.cellAddr()
		g.inst("storeb %s, %s", val, addr)

	case compiler.EOFUnchanged:
		mask, keep, fresh := g.reg(), g.reg(), g.reg()
		g.inst("%s =w sar %s, 31", mask, c)
		g.inst("%s =w xor %s, -1", keep, mask)
		g.inst("%s =w and %s, %s", fresh, c, keep)
		addr, old := g.loadCell()
		kept, val := g.reg(), g.reg()
		g.inst("%s =w and %s, %s", kept, old, mask)
		g.inst("%s =w or %s, %s", val, fresh, kept)
		g.inst("storeb %s, %s", val, addr)

	default:
		// storeb of -1 leaves 255 in the cell.
		addr := g.cellAddr()
		g.inst("storeb %s, %s", c, addr)
	}
}
