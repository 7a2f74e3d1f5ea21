package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

const defaultKeySize = 2048

// KeyConfig defines where key material comes from. Inline PEM bytes win over
// paths; a missing private key is tolerated only for verify-only managers,
// and missing files are generated only when GenerateIfMissing is set.
type KeyConfig struct {
	PrivateKeyPEM []byte
	PublicKeyPEM  []byte

	PrivateKeyPath string
	PublicKeyPath  string

	GenerateIfMissing bool
	KeySize           int
}

// KeyManager wraps one RSA keypair. Signing requires the private key; every
// verification path needs only the public half, so verify-only instances can
// run on nodes that never see the private key.
type KeyManager struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

// NewKeyManager loads (or, when configured, generates and persists) the RSA
// keypair. Missing key material is a construction error, never a runtime panic.
func NewKeyManager(cfg KeyConfig) (*KeyManager, error) {
	if cfg.KeySize == 0 {
		cfg.KeySize = defaultKeySize
	}
	if cfg.KeySize < 2048 {
		return nil, errors.New("rsa key size below 2048 bits")
	}

	km := &KeyManager{}

	if err := km.loadPrivate(cfg); err != nil {
		return nil, err
	}
	if err := km.loadPublic(cfg); err != nil {
		return nil, err
	}

	if km.public == nil && km.private != nil {
		km.public = &km.private.PublicKey
	}
	if km.public == nil {
		return nil, errors.New("no key material: configure a private key, a public key, or GenerateIfMissing")
	}

	return km, nil
}

// NewGeneratedKeyManager creates an ephemeral keypair. Intended for tests and
// single-node deployments that do not persist key material.
func NewGeneratedKeyManager(bits int) (*KeyManager, error) {
	if bits == 0 {
		bits = defaultKeySize
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa keypair: %w", err)
	}
	return &KeyManager{private: key, public: &key.PublicKey}, nil
}

// CanSign reports whether issuance is possible with this manager.
func (km *KeyManager) CanSign() bool {
	return km.private != nil
}

// PublicKeyPEM returns the PKIX-encoded public key, for distribution to
// verify-only nodes.
func (km *KeyManager) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(km.public)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func (km *KeyManager) loadPrivate(cfg KeyConfig) error {
	pemData := cfg.PrivateKeyPEM
	if len(pemData) == 0 && cfg.PrivateKeyPath != "" {
		data, err := os.ReadFile(cfg.PrivateKeyPath)
		switch {
		case err == nil:
			pemData = data
		case os.IsNotExist(err) && cfg.GenerateIfMissing:
			return km.generateAndPersist(cfg)
		default:
			return fmt.Errorf("read private key %s: %w", cfg.PrivateKeyPath, err)
		}
	}
	if len(pemData) == 0 {
		return nil
	}

	key, err := parsePrivateKeyPEM(pemData)
	if err != nil {
		return err
	}
	km.private = key
	return nil
}

func (km *KeyManager) loadPublic(cfg KeyConfig) error {
	pemData := cfg.PublicKeyPEM
	if len(pemData) == 0 && cfg.PublicKeyPath != "" {
		data, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			if os.IsNotExist(err) && km.private != nil {
				return nil
			}
			return fmt.Errorf("read public key %s: %w", cfg.PublicKeyPath, err)
		}
		pemData = data
	}
	if len(pemData) == 0 {
		return nil
	}

	key, err := parsePublicKeyPEM(pemData)
	if err != nil {
		return err
	}
	km.public = key
	return nil
}

func (km *KeyManager) generateAndPersist(cfg KeyConfig) error {
	key, err := rsa.GenerateKey(rand.Reader, cfg.KeySize)
	if err != nil {
		return fmt.Errorf("generate rsa keypair: %w", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	if err := os.WriteFile(cfg.PrivateKeyPath, privPEM, 0o600); err != nil {
		return fmt.Errorf("write private key %s: %w", cfg.PrivateKeyPath, err)
	}

	if cfg.PublicKeyPath != "" {
		der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			return err
		}
		pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
		if err := os.WriteFile(cfg.PublicKeyPath, pubPEM, 0o644); err != nil {
			return fmt.Errorf("write public key %s: %w", cfg.PublicKeyPath, err)
		}
	}

	km.private = key
	km.public = &key.PublicKey
	return nil
}

func parsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("invalid private key PEM")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.New("unable to parse RSA private key")
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}

func parsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("invalid public key PEM")
	}

	if parsed, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("public key is not RSA")
		}
		return key, nil
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, errors.New("unable to parse RSA public key")
}
