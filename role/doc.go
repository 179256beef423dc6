// Package role defines the closed set of portal roles and a compact bitmask
// set type used by route guards.
//
// # Architecture boundaries
//
// This package owns role parsing and set membership. It does NOT decide where
// a role is routed or whether a route is allowed; that belongs to package
// route.
//
// # What this package must NOT do
//
//   - Import any other portalAuth package.
//   - Treat an unrecognised role string as anything other than [Unknown].
package role
