package evaluation

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const tokenPrefix = "sk-semla-"

func generateToken() (string, error) {
	randomBytes := make([]byte, 24)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return tokenPrefix + hex.EncodeToString(randomBytes), nil
}
