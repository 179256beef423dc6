// Package flows contains pure-function orchestrators for the Manager's
// credential-bearing operations.
//
// Each flow (RunCredentialExchange, RunStartupValidate, RunLogout) accepts a
// typed dependency struct and returns a classified result. Flows never touch
// the in-memory session; the Manager applies results under its own lock.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import portalAuth (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency funcs.
package flows
