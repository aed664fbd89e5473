package shared

import (
	"crypto/rand"
	"math/big"
)

const (
	digits       = "0123456789"
	alphanumeric = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
)

// RandomDigits returns n cryptographically random decimal digits.
func RandomDigits(n int) (string, error) {
	return randomFrom(digits, n)
}

// RandomAlphanumeric returns n random characters without look-alike glyphs.
func RandomAlphanumeric(n int) (string, error) {
	return randomFrom(alphanumeric, n)
}

func randomFrom(alphabet string, n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
