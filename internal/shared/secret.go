package shared

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomSecret returns n random bytes hex encoded, suitable as a token
// signing secret.
func RandomSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Wipe zeroes b. Used for passwords read from the terminal.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
