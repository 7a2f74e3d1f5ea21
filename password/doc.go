// Package password implements password hashing and verification.
//
// Bcrypt is the default algorithm; Argon2id is available for deployments
// that want memory-hard hashing. Both implement [Hasher], and Verify on
// either accepts only its own output format, so mixed hash populations can
// be migrated by trying hashers in order on login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length,
// reuse history) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other authcore package.
//   - Log plaintext passwords at runtime.
package password
