package manifest

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

var (
	schemaOnce sync.Once
	schema     cue.Value
	schemaErr  error
)

func loadSchema() (cue.Value, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile manifest schema: %w", err)
			return
		}
		schema = v.LookupPath(cue.ParsePath("#Manifest"))
		schemaErr = schema.Err()
	})
	return schema, schemaErr
}

// Validate checks m against the embedded CUE schema: enumerated values such
// as the EOF policy and backend name, and the verbosity range.
func Validate(m *Manifest) error {
	s, err := loadSchema()
	if err != nil {
		return err
	}
	v := s.Context().Encode(m)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return s.Unify(v).Validate(cue.Concrete(true))
}
