// Package authcore is an embeddable session security engine: asymmetric
// JWT issuance and validation, failed-attempt tracking with captcha
// gating, durable device-bound refresh credentials with rotation, and a
// revocation layer covering both single tokens and whole principals.
//
// # Architecture
//
// The Engine is thin glue over focused subpackages:
//
//   - token: RS256 JWT signing, parsing, and claim extraction.
//   - attempt: sliding-window failure counters and the captcha gate.
//   - captcha: single-use short-lived text challenges.
//   - refresh: relational storage for rotating refresh credentials.
//   - revocation: token blacklist and per-principal cutoffs.
//   - password: bcrypt and Argon2id hashing.
//
// Callers supply their user database through the [UserDirectory]
// interface and outbound mail through [Notifier]. The Engine owns no user
// table and sends no email itself.
//
// # Quick start
//
//	engine, err := authcore.New().
//		WithRedis(redisClient).
//		WithDB(gormDB).
//		WithUserDirectory(myDirectory).
//		Build()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	result, err := engine.Login(ctx, authcore.LoginRequest{
//		Email:    "user@example.com",
//		Password: "secret",
//	})
package authcore
