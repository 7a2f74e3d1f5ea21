// Package middleware exposes HTTP adapters over authcore.Engine
// validation.
//
// [Guard] reads the Authorization bearer token, calls Engine.Validate, and
// injects the resulting introspection into the request context, where
// handlers recover it with [IntrospectionFromContext]. [RequireRole]
// layers a coarse role check on top.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// Engine.Validate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis or the database (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.Validate
//     and the declared role requirement.
package middleware
