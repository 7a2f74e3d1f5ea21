package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// Bcrypt silently truncates beyond 72 bytes; reject instead.
	maxBcryptPasswordBytes = 72
	minPasswordBytes       = 8
)

// Bcrypt hashes passwords with the bcrypt KDF.
type Bcrypt struct {
	cost int
}

// NewBcrypt builds a hasher at the given cost. Zero selects
// bcrypt.DefaultCost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("password: bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Bcrypt{cost: cost}, nil
}

func (b *Bcrypt) Hash(plaintext string) (string, error) {
	if len(plaintext) < minPasswordBytes {
		return "", ErrPasswordTooShort
	}
	if len(plaintext) > maxBcryptPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", fmt.Errorf("password: bcrypt: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the stored bcrypt hash. A
// mismatch is (false, nil); only structural problems surface as errors.
func (b *Bcrypt) Verify(plaintext, stored string) (bool, error) {
	if !strings.HasPrefix(stored, "$2") {
		return false, ErrHashMalformed
	}

	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrHashMalformed, err)
	}
}

// NeedsRehash reports whether the stored hash was produced at a lower cost
// than the hasher is configured for.
func (b *Bcrypt) NeedsRehash(stored string) bool {
	cost, err := bcrypt.Cost([]byte(stored))
	if err != nil {
		return true
	}
	return cost < b.cost
}
