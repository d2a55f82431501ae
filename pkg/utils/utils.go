package utils

import (
	"crypto/rand"
	"math/big"
	"os"
)

const letters = "1234567890abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandString returns a random alphanumeric string of length n,
// suitable for OAuth state parameters.
func RandString(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(letters)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			b[i] = letters[0]
			continue
		}
		b[i] = letters[idx.Int64()]
	}
	return string(b)
}

// GetEnvWithDefault gets an environment variable with a fallback value.
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Contains reports whether b is present in ar.
func Contains(ar []string, b string) bool {
	for _, a := range ar {
		if a == b {
			return true
		}
	}
	return false
}
