package compiler

import "fmt"

// TapeSize is the number of cells every backend allocates.
const TapeSize = 30000

// EOFPolicy selects what a read stores once input is exhausted.
type EOFPolicy int

const (
	EOFMinusOne  EOFPolicy = iota // store 255
	EOFZero                       // store 0
	EOFUnchanged                  // leave the cell as it was
)

var eofNames = map[EOFPolicy]string{
	EOFMinusOne:  "minus-one",
	EOFZero:      "zero",
	EOFUnchanged: "unchanged",
}

func (p EOFPolicy) String() string {
	if name, ok := eofNames[p]; ok {
		return name
	}
	return fmt.Sprintf("EOFPolicy(%d)", int(p))
}

// ParseEOFPolicy maps a policy name back to its value.
func ParseEOFPolicy(name string) (EOFPolicy, error) {
	for p, n := range eofNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown eof policy %q (want minus-one, zero or unchanged)", name)
}
