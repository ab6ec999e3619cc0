// Package code generates one-time verification codes.
package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Length is the number of digits in a verification code.
const Length = 4

// New returns a verification code of exactly Length ASCII digits drawn
// uniformly at random. Codes for distinct contacts may collide; uniqueness is
// only per contact.
func New() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// Valid reports whether s is syntactically a verification code: exactly
// Length ASCII digits. The degraded-mode policy accepts any such code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
