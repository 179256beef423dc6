// Package session provides the persisted half of the client session: the
// [Profile] and [Record] model and the [Store] implementations that keep the
// current credential and cached user profile across restarts.
//
// # Atomicity
//
// Every Store writes and clears the credential and the profile together. A
// reader never observes a credential without its profile or the reverse.
//
// # Architecture boundaries
//
// This package owns persistence only. It does NOT validate credentials,
// talk to the remote authority, or decide authentication state; those
// responsibilities belong to the Manager.
//
// # What this package must NOT do
//
//   - Import portalAuth, gateway, or route (no upward imports).
//   - Expire records. Staleness is detected only by remote validation.
package session
