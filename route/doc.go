// Package route holds the pure routing decisions of the portal: where a user
// lands after authenticating ([Resolver]) and whether a protected area may
// render ([Guard]).
//
// Nothing here navigates. Adapters (package middleware for HTTP, package
// action for UI flows) turn a [Decision] or a resolved path into an actual
// redirect.
//
// # What this package must NOT do
//
//   - Import portalAuth or perform I/O.
//   - Read persisted session state; decisions are made from a [Subject].
package route
