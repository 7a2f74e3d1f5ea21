// Package token manages access-token issuance and verification over an RSA keypair,
// with typed claims and strict validation semantics suitable for low-latency
// authentication paths.
//
// # Architecture boundaries
//
// This package owns the [KeyManager] (key material) and the [Manager] (issue/parse).
// It does NOT decide whether a token is revoked, rate-limited, or bound to a live
// principal — those responsibilities belong to the Engine and its stores.
//
// # What this package must NOT do
//
//   - Touch Redis or any database (pure computation over caller inputs).
//   - Import authcore or any sibling store package (no upward imports).
//   - Fall back to symmetric signing; verification must work with only the public key.
package token
