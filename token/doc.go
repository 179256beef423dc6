// Package token performs the local structural check applied to every bearer
// credential before it is persisted or sent for remote validation.
//
// # What this package must NOT do
//
//   - Verify signatures, decode claims, or check expiry. The remote authority
//     is the only source of truth for credential validity.
//   - Perform I/O.
package token
