package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateChallengeCode returns a 6-digit shareable code. Codes are not
// collision-free at scale; callers retry insertion on a conflict.
func GenerateChallengeCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate challenge code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
