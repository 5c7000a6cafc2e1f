package staff

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// CodeLength is the number of characters in a staff code.
	CodeLength = 6
	// maxCodeAttempts bounds the uniqueness retry loop in Create.
	maxCodeAttempts = 10
)

// GenerateCode returns a random staff code drawn from A-Z and 0-9.
func GenerateCode() (string, error) {
	out := make([]byte, CodeLength)
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate staff code: %w", err)
		}
		out[i] = codeAlphabet[n.Int64()]
	}
	return string(out), nil
}
