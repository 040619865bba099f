// Package keys generates and validates the short public lookup tokens under
// which artifacts are stored.
package keys

import "math/rand"

const (
	// Length is the fixed size of every lookup key.
	Length = 8

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Generate returns a fresh random key. Uniqueness is not guaranteed here; the
// store's unique index is authoritative and callers retry on collision.
func Generate() string {
	buf := make([]byte, Length)
	for i := range buf {
		buf[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(buf)
}

// Valid reports whether s is a well-formed key: exactly Length characters,
// all from [A-Za-z0-9]. Malformed keys are rejected before any store lookup.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
