package utils

import (
	"crypto/sha256"
	"fmt"
)

// HashString returns the hex-encoded SHA-256 digest of input. Used to key the
// revoked-token blacklist without storing raw tokens.
func HashString(input string) string {
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash)
}
