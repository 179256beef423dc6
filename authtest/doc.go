// Package authtest runs an in-process fake of the remote authentication
// authority for tests and local demos.
//
// The fake implements the six endpoints the gateway consumes, issues real
// HS256 bearer tokens, and lets a test script failures, override issued
// tokens, and hold requests in flight.
package authtest
