package token

import "errors"

var (
	// ErrMalformed reports input that is not a parseable three-segment token.
	ErrMalformed = errors.New("malformed token")
	// ErrSignatureInvalid reports a token whose signature does not verify
	// against the configured public key.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrExpired reports a token past its expiry claim.
	ErrExpired = errors.New("token expired")
	// ErrUnsupportedKind reports a token whose typ claim is missing or not a
	// known [Kind].
	ErrUnsupportedKind = errors.New("unsupported token kind")
	// ErrSigningKeyMissing reports an issuance attempt on a verify-only manager.
	ErrSigningKeyMissing = errors.New("signing key not configured")
)
