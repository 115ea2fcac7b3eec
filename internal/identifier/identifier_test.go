package identifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateIsWellFormed(t *testing.T) {
	gen := NewGenerator()
	seen := make(map[string]struct{}, 5000)
	for i := 0; i < 5000; i++ {
		code := gen.Generate()
		if !IsWellFormed(code) {
			t.Fatalf("generated code %q is not well formed", code)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code %q after %d draws", code, i)
		}
		seen[code] = struct{}{}
	}
}

func TestGenerateUsesWholeAlphabet(t *testing.T) {
	gen := NewGenerator()
	used := make(map[rune]bool)
	for i := 0; i < 2000; i++ {
		for _, r := range strings.TrimPrefix(gen.Generate(), Prefix) {
			used[r] = true
		}
	}
	assert.Len(t, used, len(Alphabet))
}

func TestIsWellFormed(t *testing.T) {
	cases := map[string]bool{
		"LF-8fQ3kD0z2a":   true,
		"LF-__________":   true,
		"LF-abc-DEF_12":   true,
		"":                false,
		"LF-":             false,
		"LF-8fQ3kD0z2":    false,
		"LF-8fQ3kD0z2ab":  false,
		"lf-8fQ3kD0z2a":   false,
		"XX-8fQ3kD0z2a":   false,
		"LF-8fQ3kD0z2!":   false,
		"LF-8fQ3kD 0z2":   false,
		" LF-8fQ3kD0z2a":  false,
		"LF-8fQ3kD0z2a\n": false,
		"LF-8fQ3kD0z2é":   false,
	}
	for candidate, want := range cases {
		assert.Equal(t, want, IsWellFormed(candidate), "%q", candidate)
	}
}
