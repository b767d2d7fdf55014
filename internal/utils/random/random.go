// Package random generates cryptographically secure random strings.
package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CharsetUpperAlphaNum excludes lowercase so the output survives
// case-insensitive channels like payment provider dashboards.
const CharsetUpperAlphaNum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// String generates a random string from the given charset.
func String(length int, charset string) (string, error) {
	if length <= 0 || charset == "" {
		return "", nil
	}

	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("generate random index: %w", err)
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

// UpperAlphaNum generates a random uppercase alphanumeric string.
// Useful for order numbers.
func UpperAlphaNum(length int) string {
	s, _ := String(length, CharsetUpperAlphaNum)
	return s
}
