package security

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strconv"

	"github.com/google/uuid"
)

const (
	minConfirmationCode = 100000
	maxConfirmationCode = 999999
)

// NewConfirmationCode draws a six digit code uniformly from [100000, 999999].
func NewConfirmationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxConfirmationCode-minConfirmationCode+1))
	if err != nil {
		return "", fmt.Errorf("generate confirmation code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+minConfirmationCode, 10), nil
}

// NewConfirmationToken returns a random UUID for emailed confirmation links.
func NewConfirmationToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate confirmation token: %w", err)
	}
	return id.String(), nil
}

// PasswordMatches compares in constant time.
func PasswordMatches(input, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(input), []byte(want)) == 1
}
