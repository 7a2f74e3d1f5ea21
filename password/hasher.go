package password

import "errors"

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrHashMalformed    = errors.New("stored hash malformed")
)

// Hasher hashes plaintext passwords and verifies candidates against stored
// hashes. Implementations are safe for concurrent use.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, stored string) (bool, error)
}

var (
	_ Hasher = (*Bcrypt)(nil)
	_ Hasher = (*Argon2)(nil)
)
