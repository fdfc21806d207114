// Package roomcode generates and validates the short codes that identify rooms.
//
// A code is Length characters drawn from Alphabet: uppercase letters and
// digits without I, O, 0 and 1. Input is case-insensitive, output is always
// uppercase.
package roomcode

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	// Alphabet lists every character a code may contain.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// Length is the exact number of characters in a code.
	Length = 4
)

// Generator produces candidate room codes. Uniqueness is the caller's concern.
type Generator interface {
	Generate() string
}

// Random draws codes from crypto/rand.
type Random struct{}

// Generate returns a fresh code.
func (Random) Generate() string {
	return Generate()
}

// Generate returns a random code of Length characters from Alphabet.
func Generate() string {
	var b strings.Builder
	b.Grow(Length)
	max := big.NewInt(int64(len(Alphabet)))
	for range Length {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand never fails on supported platforms.
			panic("roomcode: read random: " + err.Error())
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String()
}

// Validate reports whether raw is a canonical code: exactly Length uppercase characters from Alphabet.
func Validate(raw string) bool {
	if len(raw) != Length {
		return false
	}
	for i := 0; i < len(raw); i++ {
		if strings.IndexByte(Alphabet, raw[i]) < 0 {
			return false
		}
	}
	return true
}

// Normalize trims and uppercases raw and returns the canonical code, or false if it is malformed.
// Only ASCII letters are folded, so non-ASCII runes whose uppercase form is ASCII are rejected.
func Normalize(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) != Length {
		return "", false
	}
	buf := make([]byte, Length)
	for i := 0; i < Length; i++ {
		c := trimmed[i]
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		buf[i] = c
	}
	code := string(buf)
	if !Validate(code) {
		return "", false
	}
	return code, true
}
