// Package store persists tokenized programs: CBOR-encoded program images
// and a sqlite-backed cache keyed by source hash.
package store

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/brainfck/compiler"
)

const (
	imageMagic   = "bfc-image"
	imageVersion = 1
)

// ErrBadImage is returned for data that is not a valid program image.
var ErrBadImage = errors.New("store: not a valid program image")

// cborEncMode uses canonical mode so equal programs encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type image struct {
	_          struct{} `cbor:",toarray"`
	Magic      string
	Version    uint
	SourceHash [32]byte
	Tokens     []wireToken
}

type wireToken struct {
	_       struct{} `cbor:",toarray"`
	Kind    uint8
	Operand int
	Offset  int
}

// HashSource returns the content hash used to key images and cache entries.
func HashSource(src string) [32]byte {
	return sha256.Sum256([]byte(src))
}

// MarshalProgram serializes a program and the hash of its source.
func MarshalProgram(prog compiler.Program, sourceHash [32]byte) ([]byte, error) {
	img := image{
		Magic:      imageMagic,
		Version:    imageVersion,
		SourceHash: sourceHash,
		Tokens:     make([]wireToken, len(prog)),
	}
	for i, tok := range prog {
		img.Tokens[i] = wireToken{Kind: uint8(tok.Kind), Operand: tok.Operand, Offset: tok.Offset}
	}
	return cborEncMode.Marshal(&img)
}

// UnmarshalProgram deserializes an image. The program is checked with
// Program.Validate, since it did not come straight from the tokenizer.
func UnmarshalProgram(data []byte) (compiler.Program, [32]byte, error) {
	var img image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, [32]byte{}, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if img.Magic != imageMagic {
		return nil, [32]byte{}, fmt.Errorf("%w: bad magic %q", ErrBadImage, img.Magic)
	}
	if img.Version != imageVersion {
		return nil, [32]byte{}, fmt.Errorf("%w: unsupported version %d", ErrBadImage, img.Version)
	}

	prog := make(compiler.Program, len(img.Tokens))
	for i, wt := range img.Tokens {
		prog[i] = compiler.Token{Kind: compiler.Kind(wt.Kind), Operand: wt.Operand, Offset: wt.Offset}
	}
	if err := prog.Validate(); err != nil {
		return nil, [32]byte{}, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	return prog, img.SourceHash, nil
}

// IsImage reports whether data starts like a program image.
func IsImage(data []byte) bool {
	var items []cbor.RawMessage
	if err := cbor.Unmarshal(data, &items); err != nil || len(items) == 0 {
		return false
	}
	var magic string
	if err := cbor.Unmarshal(items[0], &magic); err != nil {
		return false
	}
	return magic == imageMagic
}
