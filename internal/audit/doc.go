// Package audit relays session audit events to pluggable sinks.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON writer, logrus, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: one session transition: login, logout, startup outcome.
//
// # What this package must NOT do
//
//   - Decide which events to emit; that belongs to the Manager.
//   - Import portalAuth or any sibling internal package.
package audit
