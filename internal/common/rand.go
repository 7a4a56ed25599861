package common

import (
	"crypto/rand"
	"encoding/hex"
)

// RandBytes returns n cryptographically random bytes.
// It panics if the system entropy source fails.
func RandBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// RandHex returns a random hex string of 2*n characters,
// suitable for opaque tokens such as refresh tokens.
func RandHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
