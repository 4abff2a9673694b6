// Package identity provides the authentication core for HTTP services:
// JWT issuance and validation with dual lifetimes, a brute-force attempt
// guard, request-scoped identity propagation, and a declarative route
// authorization policy.
//
// Token lifecycle:
//   - TokenService issues HS256 signed tokens carrying subject, username,
//     and a remember flag. Validation is strictly three way: valid tokens
//     return claims, expired tokens return ErrTokenExpired, and anything
//     with a bad signature returns ErrTokenMalformed. Refresh re-issues a
//     token from any claims whose signature verifies, so lapsed sessions
//     can recover without forcing a full login.
//
// Attempt guard:
//   - Every login attempt is tracked under two keys, the submitted
//     identifier and the client address. Once either counter reaches the
//     configured threshold the attempt fails fast with
//     ErrTooManyLoginAttempts before the credential store is touched.
//     Guards are explicit components: an in-memory expiring counter store
//     for single instances, or a Redis-backed store for fleets.
//
// Request flow:
//   - middleware/authware resolves the token once per request (bearer
//     header first, auth_token cookie second), annotates the context with
//     the derived identity, and leaves the accept/reject decision to the
//     route Policy. Missing or unusable tokens simply leave the request
//     unauthenticated.
package identity
