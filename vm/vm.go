// Package vm executes tokenized Brainfuck programs against a byte tape.
package vm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/brainfck/compiler"
)

// TapeSize is the number of cells on the tape.
const TapeSize = compiler.TapeSize

var log = commonlog.GetLogger("bfc.vm")

// ErrOutOfBounds is returned when a shift would move the pointer off the tape.
var ErrOutOfBounds = errors.New("out of bounds memory tape access")

// RuntimeError records where execution faulted.
type RuntimeError struct {
	Err     error
	PC      int // index of the faulting token
	Pointer int // tape pointer before the faulting shift
	Shift   int // signed distance the token tried to move
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%v (token %d, pointer %d, shift %+d)", e.Err, e.PC, e.Pointer, e.Shift)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Option configures a Machine.
type Option func(*Machine)

// WithInput sets the reader consumed by ',' tokens. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(m *Machine) { m.in = bufio.NewReader(r) }
}

// WithOutput sets the writer fed by '.' tokens. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(m *Machine) { m.out = bufio.NewWriter(w) }
}

// WithEOF sets the end-of-input policy.
func WithEOF(p compiler.EOFPolicy) Option {
	return func(m *Machine) { m.eof = p }
}

// Machine is a tape interpreter for one program run.
type Machine struct {
	prog compiler.Program
	tape [TapeSize]byte
	ptr  int
	pc   int

	in  *bufio.Reader
	out *bufio.Writer
	eof compiler.EOFPolicy

	steps    int
	inputEOF bool
}

// New creates a machine for prog with a zeroed tape.
func New(prog compiler.Program, opts ...Option) *Machine {
	m := &Machine{prog: prog}
	for _, opt := range opts {
		opt(m)
	}
	if m.in == nil {
		m.in = bufio.NewReader(os.Stdin)
	}
	if m.out == nil {
		m.out = bufio.NewWriter(os.Stdout)
	}
	return m
}

// Run executes the program until it falls off the end or faults. Output
// written before a fault is flushed and stays written.
func (m *Machine) Run() (err error) {
	defer func() {
		if ferr := m.out.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("flush output: %w", ferr)
		}
		log.Debugf("run finished: %d steps, pc %d, pointer %d", m.steps, m.pc, m.ptr)
	}()

	prog := m.prog
	for m.pc < len(prog) {
		tok := prog[m.pc]
		m.steps++
		switch tok.Kind {
		case compiler.Increment:
			m.tape[m.ptr] += byte(tok.Operand)
			m.pc++

		case compiler.Decrement:
			m.tape[m.ptr] -= byte(tok.Operand)
			m.pc++

		case compiler.ShiftLeft:
			if err := m.shift(-tok.Operand); err != nil {
				return err
			}
			m.pc++

		case compiler.ShiftRight:
			if err := m.shift(tok.Operand); err != nil {
				return err
			}
			m.pc++

		case compiler.Write:
			for i := 0; i < tok.Operand; i++ {
				if err := m.out.WriteByte(m.tape[m.ptr]); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
			}
			m.pc++

		case compiler.Read:
			for i := 0; i < tok.Operand; i++ {
				if err := m.read(); err != nil {
					return err
				}
			}
			m.pc++

		case compiler.LoopStart:
			if m.tape[m.ptr] == 0 {
				m.pc = tok.Operand
			} else {
				m.pc++
			}

		case compiler.LoopEnd:
			if m.tape[m.ptr] != 0 {
				m.pc = tok.Operand
			} else {
				m.pc++
			}

		default:
			return fmt.Errorf("unknown token kind %d at %d", tok.Kind, m.pc)
		}
	}
	return nil
}

// shift moves the pointer by delta, refusing to leave the tape.
func (m *Machine) shift(delta int) error {
	next := m.ptr + delta
	if next < 0 || next >= TapeSize {
		log.Debugf("pointer %d cannot move %+d", m.ptr, delta)
		return &RuntimeError{Err: ErrOutOfBounds, PC: m.pc, Pointer: m.ptr, Shift: delta}
	}
	m.ptr = next
	return nil
}

// read stores one input byte into the current cell.
func (m *Machine) read() error {
	// Prompts written so far must be visible before blocking on input.
	if err := m.out.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	b, err := m.in.ReadByte()
	if err == nil {
		m.tape[m.ptr] = b
		return nil
	}
	if !errors.Is(err, io.EOF) {
		return fmt.Errorf("read input: %w", err)
	}
	if !m.inputEOF {
		m.inputEOF = true
		log.Debugf("input exhausted at token %d, policy %s", m.pc, m.eof)
	}
	switch m.eof {
	case compiler.EOFMinusOne:
		m.tape[m.ptr] = 0xFF
	case compiler.EOFZero:
		m.tape[m.ptr] = 0
	}
	return nil
}

// Pointer returns the current tape pointer.
func (m *Machine) Pointer() int {
	return m.ptr
}

// PC returns the index of the next token to execute.
func (m *Machine) PC() int {
	return m.pc
}

// Cell returns the value of cell i.
func (m *Machine) Cell(i int) byte {
	return m.tape[i]
}

// Tape returns a copy of the first n cells.
func (m *Machine) Tape(n int) []byte {
	if n > TapeSize {
		n = TapeSize
	}
	out := make([]byte, n)
	copy(out, m.tape[:n])
	return out
}

// Steps returns the number of tokens executed so far.
func (m *Machine) Steps() int {
	return m.steps
}

// Run executes prog on a fresh tape with the given input, output and EOF
// policy.
func Run(prog compiler.Program, in io.Reader, out io.Writer, eof compiler.EOFPolicy) error {
	return New(prog, WithInput(in), WithOutput(out), WithEOF(eof)).Run()
}
