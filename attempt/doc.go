// Package attempt tracks failed authentication attempts per identifier and
// decides when a captcha challenge must gate further tries.
//
// Counters live in Redis under a sliding window: every recorded failure
// resets the window expiry, so an attacker probing just under the threshold
// never sees the counter drain mid-burst. Crossing the threshold raises a
// captcha flag with its own expiry; a successful authentication clears both.
//
// Read paths fail open. When Redis is unreachable the tracker reports that
// no captcha is required and returns the wrapped error so callers can log
// the degradation. Locking out every legitimate user because the counter
// store is down is the worse failure mode.
package attempt
