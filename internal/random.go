package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

const (
	// RefreshTokenBytes is the entropy of an opaque refresh credential: 512
	// bits, base64url-encoded without padding, never parsed by clients.
	RefreshTokenBytes = 64
	// ChallengeIDBytes is the entropy of captcha and reset challenge ids.
	ChallengeIDBytes = 32
)

// NewOpaqueToken returns size random bytes as unpadded base64url.
func NewOpaqueToken(size int) (string, error) {
	if size < 16 {
		return "", errors.New("opaque token below minimum entropy")
	}

	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashSHA256Hex returns the lowercase hex SHA-256 digest of v.
func HashSHA256Hex(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

// NewChallengeText draws length characters from alphabet using crypto/rand.
func NewChallengeText(alphabet string, length int) (string, error) {
	if length <= 0 || alphabet == "" {
		return "", errors.New("invalid challenge parameters")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}

	return b.String(), nil
}
