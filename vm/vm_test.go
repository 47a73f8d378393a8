package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/brainfck/compiler"
)

// helloWorld is the canonical hello-world program.
const helloWorld = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

func mustTokenize(t *testing.T, src string) compiler.Program {
	t.Helper()
	prog, err := compiler.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	return prog
}

func runSource(t *testing.T, src, input string) (*Machine, string, error) {
	t.Helper()
	var out bytes.Buffer
	m := New(mustTokenize(t, src), WithInput(strings.NewReader(input)), WithOutput(&out))
	err := m.Run()
	return m, out.String(), err
}

func TestRunIncrementAndShift(t *testing.T) {
	m, out, err := runSource(t, "++>+", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "" {
		t.Errorf("output = %q, want empty", out)
	}
	if m.Pointer() != 1 {
		t.Errorf("pointer = %d, want 1", m.Pointer())
	}
	if m.Cell(0) != 2 || m.Cell(1) != 1 {
		t.Errorf("tape = %v, want [2 1]", m.Tape(2))
	}
}

func TestRunClearLoop(t *testing.T) {
	m, out, err := runSource(t, "+[-]", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "" {
		t.Errorf("output = %q, want empty", out)
	}
	if m.Cell(0) != 0 {
		t.Errorf("cell0 = %d, want 0", m.Cell(0))
	}
	// The body runs once and END falls through: each token executes once.
	if m.Steps() != 4 {
		t.Errorf("steps = %d, want 4", m.Steps())
	}
}

func TestRunSkipsLoopOnZero(t *testing.T) {
	m, out, err := runSource(t, "[.+]+", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "" {
		t.Errorf("output = %q, want empty", out)
	}
	if m.Cell(0) != 1 {
		t.Errorf("cell0 = %d, want 1", m.Cell(0))
	}
	if m.PC() != 5 {
		t.Errorf("pc = %d, want 5", m.PC())
	}
}

func TestRunWrapping(t *testing.T) {
	tests := []struct {
		src  string
		want byte
	}{
		{strings.Repeat("+", 256), 0},
		{strings.Repeat("+", 255) + "+", 0},
		{"-", 255},
		{strings.Repeat("+", 300), 44},
		{strings.Repeat("-", 257), 255},
	}
	for _, tc := range tests {
		m, _, err := runSource(t, tc.src, "")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if m.Cell(0) != tc.want {
			t.Errorf("%d ops: cell0 = %d, want %d", len(tc.src), m.Cell(0), tc.want)
		}
	}
}

func TestRunOutOfBounds(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		output  string
		pointer int
	}{
		{"left of zero", "+.<.", "\x01", 0},
		{"right past end", strings.Repeat(">", TapeSize-1) + "+." + ">" + ".", "\x01", TapeSize - 1},
		{"single big jump", strings.Repeat(">", TapeSize), "", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, out, err := runSource(t, tc.src, "")
			if !errors.Is(err, ErrOutOfBounds) {
				t.Fatalf("Run error = %v, want ErrOutOfBounds", err)
			}
			var rtErr *RuntimeError
			if !errors.As(err, &rtErr) {
				t.Fatalf("error %T, want *RuntimeError", err)
			}
			if rtErr.Pointer != tc.pointer {
				t.Errorf("fault pointer = %d, want %d", rtErr.Pointer, tc.pointer)
			}
			if m.Pointer() != tc.pointer {
				t.Errorf("pointer moved to %d after fault", m.Pointer())
			}
			if out != tc.output {
				t.Errorf("output = %q, want %q", out, tc.output)
			}
		})
	}
}

func TestRunLastCellReachable(t *testing.T) {
	m, _, err := runSource(t, strings.Repeat(">", TapeSize-1)+"+", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.Pointer() != TapeSize-1 || m.Cell(TapeSize-1) != 1 {
		t.Errorf("pointer = %d, last cell = %d", m.Pointer(), m.Cell(TapeSize-1))
	}
}

func TestRunHelloWorld(t *testing.T) {
	_, out, err := runSource(t, helloWorld, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "Hello World!\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRunRepeatedWrite(t *testing.T) {
	_, out, err := runSource(t, strings.Repeat("+", 65)+"...", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "AAA" {
		t.Errorf("output = %q, want AAA", out)
	}
}

func TestRunEcho(t *testing.T) {
	// Copy input to output until a zero byte.
	_, out, err := runSource(t, ",[.,]", "abc\x00ignored")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "abc" {
		t.Errorf("output = %q, want abc", out)
	}
}

func TestRunRepeatedRead(t *testing.T) {
	// ",,," keeps only the last byte read.
	_, out, err := runSource(t, ",,,.", "xyz")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "z" {
		t.Errorf("output = %q, want z", out)
	}
}

func TestRunEOFPolicies(t *testing.T) {
	tests := []struct {
		policy compiler.EOFPolicy
		want   byte
	}{
		{compiler.EOFMinusOne, 0xFF},
		{compiler.EOFZero, 0},
		{compiler.EOFUnchanged, 7},
	}
	prog := mustTokenize(t, "+++++++,")
	for _, tc := range tests {
		t.Run(tc.policy.String(), func(t *testing.T) {
			var out bytes.Buffer
			m := New(prog, WithInput(strings.NewReader("")), WithOutput(&out), WithEOF(tc.policy))
			if err := m.Run(); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if m.Cell(0) != tc.want {
				t.Errorf("cell0 = %d, want %d", m.Cell(0), tc.want)
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRunWriteError(t *testing.T) {
	err := Run(mustTokenize(t, "+."), strings.NewReader(""), failingWriter{}, compiler.EOFMinusOne)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Run error = %v, want disk full", err)
	}
}

func TestRuntimeErrorMessage(t *testing.T) {
	_, _, err := runSource(t, "<", "")
	want := "out of bounds memory tape access (token 0, pointer 0, shift -1)"
	if err == nil || err.Error() != want {
		t.Errorf("error = %v, want %q", err, want)
	}
}
