// Package identifier mints and validates item scan codes.
//
// A scan code is the prefix "LF-" followed by ten characters from the
// URL-safe alphabet. Codes are printed into QR labels, so they must stay short
// and must not be guessable.
package identifier

import (
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	Prefix       = "LF-"
	SuffixLength = 10
	Alphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
)

var wellFormed = regexp.MustCompile(`^LF-[A-Za-z0-9_-]{10}$`)

// Generator produces candidate scan codes.
type Generator interface {
	Generate() string
}

// NanoIDGenerator draws suffixes from crypto/rand through nanoid.
type NanoIDGenerator struct{}

func NewGenerator() NanoIDGenerator {
	return NanoIDGenerator{}
}

// Generate returns a fresh candidate. It never fails: the alphabet and length
// are constants, so nanoid can only error on a broken system RNG, which
// MustGenerate turns into a panic.
func (NanoIDGenerator) Generate() string {
	return Prefix + gonanoid.MustGenerate(Alphabet, SuffixLength)
}

// IsWellFormed reports whether candidate has the scan code shape.
func IsWellFormed(candidate string) bool {
	return wellFormed.MatchString(candidate)
}
