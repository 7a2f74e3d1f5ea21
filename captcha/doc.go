// Package captcha issues and verifies short-lived, single-use text
// challenges used to gate authentication flows after repeated failures.
//
// Only a SHA-256 digest of the expected answer is stored, keyed by an
// opaque challenge ID with a bounded TTL. Validation is case-insensitive
// and consumes the challenge on the first correct answer; wrong answers
// leave it in place so the user can retry until expiry.
//
// Rendering the challenge text to an image or audio clip is a presentation
// concern and lives behind the Renderer interface. This package never
// deals in pixels.
package captcha
