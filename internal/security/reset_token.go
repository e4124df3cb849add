package security

import (
	"crypto/rand"
	"encoding/hex"
)

const resetTokenBytes = 32

// NewResetToken returns a hex-encoded random token for the password reset
// flow. 32 bytes of entropy makes guessing infeasible within the 15 minute
// window the token lives for.
func NewResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)

	_, err := rand.Read(buf)

	if err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
