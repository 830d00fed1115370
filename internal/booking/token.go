package booking

import (
	"crypto/rand"
	"encoding/hex"
)

// newToken generates a cryptographically random hex string of n bytes
// (2n characters).  Session tokens and redemption codes are both minted
// here but never from each other: holding one must not reveal the
// other.
func newToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
