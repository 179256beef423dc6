// Package middleware adapts route guard decisions to net/http.
//
// # Adapters
//
//   - [Protect] enforces one route.Guard on a handler.
//   - [Guest] keeps signed-in users away from login and registration pages.
//   - [Apply] performs the navigation for any decision: 503 with Retry-After
//     while the session loads, 303 to the login page with a "from" parameter,
//     or 303 to the guard's fallback.
//
// # Architecture boundaries
//
// This package translates decisions into HTTP responses. It does NOT decide
// anything itself; all policy lives in route and all state in
// portalAuth.Manager.
//
// # What this package must NOT do
//
//   - Call the remote authority.
//   - Read or write the session store.
//   - Make authorization decisions beyond what route.Guard returns.
package middleware
