// Package gateway is the HTTP client for the remote authentication
// authority: the four credential-issuing endpoints plus token validation and
// registration status.
//
// # Error classification
//
// Every failure is returned as a [*Error]. Responses with status 401 or 403
// match [ErrAuthentication]; everything else (network failures, 5xx, other
// 4xx, undecodable bodies) matches [ErrTransport]. The server-provided
// message, when present, is kept in Error.Message for display.
//
// # What this package must NOT do
//
//   - Interpret credentials or touch persisted state.
//   - Retry requests. Retrying is the caller's decision.
package gateway
