package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	pinMin   = 1000
	pinSpace = 9000 // 1000..9999
)

// generatePIN returns a uniformly drawn 4-digit PIN.
func generatePIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(pinSpace))
	if err != nil {
		return "", fmt.Errorf("failed to generate random PIN: %w", err)
	}
	return fmt.Sprintf("%04d", pinMin+n.Int64()), nil
}
