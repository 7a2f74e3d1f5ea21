package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Config carries Argon2id cost parameters.
type Argon2Config struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Config follows the RFC 9106 low-memory recommendation.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		MemoryKB:    64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes passwords with Argon2id, emitting PHC-format strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
type Argon2 struct {
	config Argon2Config
}

func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	if cfg.MemoryKB < 8*1024 {
		return nil, fmt.Errorf("password: argon2 memory %d below 8192 KB", cfg.MemoryKB)
	}
	if cfg.Time < 1 || cfg.Parallelism < 1 {
		return nil, fmt.Errorf("password: argon2 time and parallelism must be at least 1")
	}
	if cfg.SaltLength < 16 || cfg.KeyLength < 16 {
		return nil, fmt.Errorf("password: argon2 salt and key length must be at least 16")
	}
	return &Argon2{config: cfg}, nil
}

func (a *Argon2) Hash(plaintext string) (string, error) {
	if len(plaintext) < minPasswordBytes {
		return "", ErrPasswordTooShort
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, a.config.Time, a.config.MemoryKB, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.config.MemoryKB, a.config.Time, a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters embedded in the stored
// hash, so parameter upgrades never break old hashes.
func (a *Argon2) Verify(plaintext, stored string) (bool, error) {
	var version int
	var memory, timeCost uint32
	var parallelism uint8

	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrHashMalformed
	}
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrHashMalformed
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &parallelism); err != nil {
		return false, ErrHashMalformed
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrHashMalformed
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrHashMalformed
	}

	key := argon2.IDKey([]byte(plaintext), salt, timeCost, memory, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

// NeedsRehash reports whether the stored hash uses weaker parameters than
// the hasher is configured for.
func (a *Argon2) NeedsRehash(stored string) bool {
	var version int
	var memory, timeCost uint32
	var parallelism uint8

	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return true
	}
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return true
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &parallelism); err != nil {
		return true
	}
	return memory < a.config.MemoryKB || timeCost < a.config.Time || parallelism < a.config.Parallelism
}
