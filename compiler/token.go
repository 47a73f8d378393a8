package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token kinds
// ---------------------------------------------------------------------------

// Kind identifies the operation a token performs.
type Kind uint8

const (
	Increment  Kind = iota // +
	Decrement              // -
	ShiftLeft              // <
	ShiftRight             // >
	Write                  // .
	Read                   // ,
	LoopStart              // [
	LoopEnd                // ]
)

var kindOps = [...]byte{
	Increment:  '+',
	Decrement:  '-',
	ShiftLeft:  '<',
	ShiftRight: '>',
	Write:      '.',
	Read:       ',',
	LoopStart:  '[',
	LoopEnd:    ']',
}

var kindNames = [...]string{
	Increment:  "INC",
	Decrement:  "DEC",
	ShiftLeft:  "LEFT",
	ShiftRight: "RIGHT",
	Write:      "WRITE",
	Read:       "READ",
	LoopStart:  "LOOP",
	LoopEnd:    "END",
}

// String returns the operator character for the kind.
func (k Kind) String() string {
	if int(k) < len(kindOps) {
		return string(kindOps[k])
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Name returns the mnemonic used in program listings.
func (k Kind) Name() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Op returns the source character for the kind.
func (k Kind) Op() byte {
	if int(k) < len(kindOps) {
		return kindOps[k]
	}
	return 0
}

// IsJump reports whether the operand of k is a token index rather than a count.
func (k Kind) IsJump() bool {
	return k == LoopStart || k == LoopEnd
}

// kindOf maps an operator character to its kind.
func kindOf(ch byte) (Kind, bool) {
	switch ch {
	case '+':
		return Increment, true
	case '-':
		return Decrement, true
	case '<':
		return ShiftLeft, true
	case '>':
		return ShiftRight, true
	case '.':
		return Write, true
	case ',':
		return Read, true
	case '[':
		return LoopStart, true
	case ']':
		return LoopEnd, true
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Token and Program
// ---------------------------------------------------------------------------

// Token is one compacted instruction.
//
// For the six simple kinds Operand is the repeat count. For LoopStart it is
// the index of the matching LoopEnd, and for LoopEnd the index of the
// matching LoopStart.
type Token struct {
	Kind    Kind
	Operand int
	Offset  int // byte offset of the first source character
}

func (t Token) String() string {
	if t.Kind.IsJump() {
		return fmt.Sprintf("%s(->%d)", t.Kind, t.Operand)
	}
	return fmt.Sprintf("%s(x%d)", t.Kind, t.Operand)
}

// Program is a tokenized source. Positions in the slice are the jump
// targets stored in loop operands; a Program is never modified after
// Tokenize returns it.
type Program []Token

// Validate checks that every loop token references a partner of the
// opposite kind that references it back, and that counts are positive.
func (p Program) Validate() error {
	for i, tok := range p {
		switch tok.Kind {
		case LoopStart, LoopEnd:
			want := LoopEnd
			if tok.Kind == LoopEnd {
				want = LoopStart
			}
			j := tok.Operand
			if j < 0 || j >= len(p) {
				return fmt.Errorf("token %d: jump target %d out of range", i, j)
			}
			if p[j].Kind != want || p[j].Operand != i {
				return fmt.Errorf("token %d: %s does not pair with token %d", i, tok.Kind, j)
			}
			if (tok.Kind == LoopStart) != (i < j) {
				return fmt.Errorf("token %d: %s jumps the wrong way to %d", i, tok.Kind, j)
			}
		default:
			if tok.Kind > LoopEnd {
				return fmt.Errorf("token %d: unknown kind %d", i, tok.Kind)
			}
			if tok.Operand < 1 {
				return fmt.Errorf("token %d: %s has repeat count %d", i, tok.Kind, tok.Operand)
			}
		}
	}
	return nil
}

// Depth returns the deepest loop nesting in the program.
func (p Program) Depth() int {
	depth, max := 0, 0
	for _, tok := range p {
		switch tok.Kind {
		case LoopStart:
			depth++
			if depth > max {
				max = depth
			}
		case LoopEnd:
			depth--
		}
	}
	return max
}

// Source re-expands the program into operator characters.
func (p Program) Source() string {
	n := 0
	for _, tok := range p {
		if tok.Kind.IsJump() {
			n++
		} else {
			n += tok.Operand
		}
	}
	buf := make([]byte, 0, n)
	for _, tok := range p {
		count := tok.Operand
		if tok.Kind.IsJump() {
			count = 1
		}
		for i := 0; i < count; i++ {
			buf = append(buf, tok.Kind.Op())
		}
	}
	return string(buf)
}
