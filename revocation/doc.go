// Package revocation maintains the deny side of token validation: a TTL
// blacklist for individual tokens and a per-principal cutoff that retires
// every token issued before a moment in time.
//
// Blacklist entries live exactly as long as the token they shadow. Once
// the token has expired on its own the entry is gone and Redis never
// accumulates dead weight.
//
// Reads fail open. An unreachable Redis reports "not revoked" together
// with the wrapped error; signature and expiry checks still stand between
// an attacker and a valid session, and refusing every request because the
// blacklist is down would turn a cache outage into a full login outage.
package revocation
