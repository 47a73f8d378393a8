package compiler

import (
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// FuzzTokenize: the tokenizer never panics, and either returns a program
// whose loops pair up, or an unmatched-loop error.
// ---------------------------------------------------------------------------

func FuzzTokenize(f *testing.F) {
	seeds := []string{
		``, `+`, `[]`, `]`, `[`, `][`, `[[]`,
		`++>+`, `+[-]`, `,[.,]`,
		"++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.",
		"comment with + and - and [ brackets ]",
		"\x00\xff[\n]\t",
		`+-+-<><>.,.,`,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, src string) {
		prog, err := Tokenize(src)
		if err != nil {
			var lexErr *LexError
			if !errors.As(err, &lexErr) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			if lexErr.Offset < 0 || lexErr.Offset > len(src) {
				t.Fatalf("error offset %d outside source of length %d", lexErr.Offset, len(src))
			}
			if !lexErr.Unclosed && src[lexErr.Offset] != ']' {
				t.Fatalf("stray-end error points at %q", src[lexErr.Offset])
			}
			return
		}
		if err := prog.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}

		var ops strings.Builder
		for i := 0; i < len(src); i++ {
			if _, ok := kindOf(src[i]); ok {
				ops.WriteByte(src[i])
			}
		}
		if got := prog.Source(); got != ops.String() {
			t.Fatalf("Source() = %q, want %q", got, ops.String())
		}

		for i := 1; i < len(prog); i++ {
			a, b := prog[i-1], prog[i]
			if !a.Kind.IsJump() && a.Kind == b.Kind {
				t.Fatalf("tokens %d and %d were not merged: %v %v", i-1, i, a, b)
			}
			if a.Offset >= b.Offset {
				t.Fatalf("offsets not increasing at %d", i)
			}
		}
	})
}
