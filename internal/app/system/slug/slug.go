// Package slug generates the short, URL-safe handles that identify document
// records publicly. A slug never encodes anything; it is an opaque key whose
// only requirement is that it cannot be guessed.
package slug

import (
	"crypto/rand"
	"math/big"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLength gives a 62^10 keyspace. Uniqueness is still enforced by the
// store's unique index, with retry on collision.
const DefaultLength = 10

// New returns a slug of DefaultLength.
func New() string {
	return NewN(DefaultLength)
}

// NewN returns a slug of n alphanumeric characters drawn uniformly at
// random.
func NewN(n int) string {
	if n <= 0 {
		n = DefaultLength
	}
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure means the process has no entropy
			// source at all; nothing sensible can continue.
			panic("slug: crypto/rand unavailable: " + err.Error())
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}
