package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// TokenBytes is the number of random bytes behind every token from GenerateToken.
const TokenBytes = 32

var errInvalidCodeDigits = errors.New("cryptox: code digits must be between 6 and 10")

// GenerateToken returns TokenBytes of crypto/rand output encoded as unpadded
// base64url. Session and anti-forgery tokens both come from here.
func GenerateToken() (string, error) {
	var raw [TokenBytes]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// GenerateCode returns a uniformly distributed decimal code of the given length.
func GenerateCode(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errInvalidCodeDigits
	}

	var b strings.Builder
	b.Grow(digits)

	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("cryptox: read random: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// HashSecret is the at-rest form of short-lived secrets such as one-time codes
// and session tokens.
func HashSecret(secret string) [32]byte {
	return sha256.Sum256([]byte(secret))
}
