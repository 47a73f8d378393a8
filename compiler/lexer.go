package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Lexer: run-length tokenizer with loop resolution
// ---------------------------------------------------------------------------

// ErrorKind classifies tokenizer failures.
type ErrorKind int

const (
	// UnmatchedLoop covers both a stray ']' and a '[' never closed.
	UnmatchedLoop ErrorKind = iota
)

func (k ErrorKind) String() string {
	switch k {
	case UnmatchedLoop:
		return "unmatched-loop"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// LexError reports a structural error in the source.
type LexError struct {
	Kind   ErrorKind
	Offset int // offending character, or len(source) when Unclosed

	// Unclosed is set when input ended with loops still open. Open is the
	// offset of the innermost unclosed '['.
	Unclosed bool
	Open     int
}

func (e *LexError) Error() string {
	if e.Unclosed {
		return "unclosed loop start ('[')"
	}
	return "unmatched loop end (']')"
}

// Lexer scans Brainfuck source. Any byte outside "+-<>.,[]" is ignored.
type Lexer struct {
	input string
	pos   int // offset of the next unread byte
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// next returns the next operator character and its offset, skipping
// everything else. ok is false at end of input.
func (l *Lexer) next() (ch byte, offset int, ok bool) {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		l.pos++
		if _, valid := kindOf(c); valid {
			return c, l.pos - 1, true
		}
	}
	return 0, l.pos, false
}

// Tokenize converts the whole input into a Program.
func (l *Lexer) Tokenize() (Program, error) {
	var (
		prog  Program
		stack []int // indices of unresolved LoopStart tokens
	)

	ch, off, ok := l.next()
	for ok {
		kind, _ := kindOf(ch)
		switch kind {
		case LoopStart:
			stack = append(stack, len(prog))
			prog = append(prog, Token{Kind: LoopStart, Offset: off})
			ch, off, ok = l.next()

		case LoopEnd:
			if len(stack) == 0 {
				return nil, &LexError{Kind: UnmatchedLoop, Offset: off}
			}
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			prog = append(prog, Token{Kind: LoopEnd, Operand: start, Offset: off})
			prog[start].Operand = len(prog) - 1
			ch, off, ok = l.next()

		default:
			count := 1
			nch, noff, nok := l.next()
			for nok && nch == ch {
				count++
				nch, noff, nok = l.next()
			}
			prog = append(prog, Token{Kind: kind, Operand: count, Offset: off})
			ch, off, ok = nch, noff, nok
		}
	}

	if len(stack) > 0 {
		return nil, &LexError{
			Kind:     UnmatchedLoop,
			Offset:   len(l.input),
			Unclosed: true,
			Open:     prog[stack[len(stack)-1]].Offset,
		}
	}
	return prog, nil
}

// Tokenize is shorthand for NewLexer(src).Tokenize().
func Tokenize(src string) (Program, error) {
	return NewLexer(src).Tokenize()
}

// ---------------------------------------------------------------------------
// Source positions
// ---------------------------------------------------------------------------

// Position is a location in source text.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Locate converts a byte offset in src into a line and column. Offsets past
// the end of src resolve to the position just after the last byte.
func Locate(src string, offset int) Position {
	if offset > len(src) {
		offset = len(src)
	}
	if offset < 0 {
		offset = 0
	}
	line, col := 1, 1
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return Position{Offset: offset, Line: line, Column: col}
}
