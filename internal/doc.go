// Package internal holds helpers that are private to portalAuth.
//
// # Sub-packages
//
//   - audit: async session event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for startup validation and the
//     credential-issuing operations
//
// # What this package must NOT do
//
//   - Export types that appear in the public portalAuth API other than through
//     aliases declared in the root package.
//   - Be imported by any package outside the portalAuth module.
package internal
