// Package refresh persists long-lived refresh credentials in a relational
// database. Unlike access tokens these survive process restarts and must be
// individually revocable, so Redis TTL keys are the wrong shape for them.
//
// A credential is a 512-bit random opaque string bound to the device
// context that created it. Each principal holds at most a configured number
// of live credentials; creating one past the cap evicts the oldest. Looking
// up a valid credential stamps its last-used time, which powers session
// listings and staleness cleanup.
//
// # Architecture boundaries
//
// This package owns credential storage and lifecycle. Rotation policy and
// the decision of when to revoke belong to the Engine; JWT concerns belong
// to the token package.
//
// # Failure policy
//
// The opposite of the Redis read paths: every store error here fails
// closed. Handing out a session because the database was unreachable is
// not an acceptable outcome.
package refresh
