package codegen

import (
	"fmt"
	"io"

	"github.com/dave/jennifer/jen"

	"github.com/chazu/brainfck/compiler"
)

// Go emits a self-contained Go main package. Cell arithmetic is byte
// arithmetic, so wrapping comes for free; increments are reduced modulo 256
// so constants fit in a byte.
type Go struct{}

// Name implements Backend.
func (Go) Name() string { return "go" }

// Generate implements Backend.
func (Go) Generate(w io.Writer, prog compiler.Program, opts Options) error {
	f := jen.NewFile("main")
	f.HeaderComment("Code generated by bfc. DO NOT EDIT.")

	f.Var().Defs(
		jen.Id("mem").Index(jen.Lit(compiler.TapeSize)).Byte(),
		jen.Id("head").Int(),
		jen.Id("out").Op("=").Qual("bufio", "NewWriter").Call(jen.Qual("os", "Stdout")),
	)

	reads := false
	for _, tok := range prog {
		if tok.Kind == compiler.Read {
			reads = true
			break
		}
	}
	if reads {
		f.Var().Id("in").Op("=").Qual("bufio", "NewReader").Call(jen.Qual("os", "Stdin"))
		f.Line()
		f.Comment("read returns the next input byte, or the end-of-input value.")
		f.Func().Id("read").Params(jen.Id("cur").Byte()).Byte().Block(
			jen.Id("out").Dot("Flush").Call(),
			jen.List(jen.Id("c"), jen.Err()).Op(":=").Id("in").Dot("ReadByte").Call(),
			jen.If(jen.Err().Op("!=").Nil()).Block(
				jen.Return(eofValue(opts.EOF)),
			),
			jen.Return(jen.Id("c")),
		)
	}

	body := []jen.Code{jen.Defer().Id("out").Dot("Flush").Call()}
	body = append(body, goBlock(prog, 0, len(prog))...)
	f.Func().Id("main").Params().Block(body...)

	if err := f.Render(w); err != nil {
		return fmt.Errorf("codegen: render go: %w", err)
	}
	return nil
}

func eofValue(p compiler.EOFPolicy) jen.Code {
	switch p {
	case compiler.EOFZero:
		return jen.Lit(0)
	case compiler.EOFUnchanged:
		return jen.Id("cur")
	}
	return jen.Lit(255)
}

// goBlock converts prog[start:end]; loop bodies become nested for blocks.
func goBlock(prog compiler.Program, start, end int) []jen.Code {
	cell := func() *jen.Statement { return jen.Id("mem").Index(jen.Id("head")) }

	var stmts []jen.Code
	for i := start; i < end; i++ {
		tok := prog[i]
		switch tok.Kind {
		case compiler.Increment:
			stmts = append(stmts, cell().Op("+=").Lit(tok.Operand%256))
		case compiler.Decrement:
			stmts = append(stmts, cell().Op("-=").Lit(tok.Operand%256))
		case compiler.ShiftLeft:
			stmts = append(stmts, jen.Id("head").Op("-=").Lit(tok.Operand))
		case compiler.ShiftRight:
			stmts = append(stmts, jen.Id("head").Op("+=").Lit(tok.Operand))
		case compiler.Write:
			for n := 0; n < tok.Operand; n++ {
				stmts = append(stmts, jen.Id("out").Dot("WriteByte").Call(cell()))
			}
		case compiler.Read:
			for n := 0; n < tok.Operand; n++ {
				stmts = append(stmts, cell().Op("=").Id("read").Call(cell()))
			}
		case compiler.LoopStart:
			stmts = append(stmts, jen.For(cell().Op("!=").Lit(0)).Block(goBlock(prog, i+1, tok.Operand)...))
			i = tok.Operand
		}
	}
	return stmts
}
