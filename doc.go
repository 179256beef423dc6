// Package portalAuth is the client-side session and authorization core of
// the staff portal: it holds who is signed in, keeps that state in a
// persisted store, revalidates it with the remote authority at startup, and
// feeds route guards and post-login redirects.
//
// The public surface is [Manager], built with [Builder] from a [Config].
// Route policy lives in the route package, the wire client in gateway, and
// persistence in session. Flow orchestration and audit dispatch live under
// internal/ and are never exported.
//
// # Lifecycle
//
// A new Manager is loading. [Manager.StartupValidate] settles it exactly
// once. Login-family operations (Login, StaffLogin, Register, GoogleSignIn)
// either fully succeed, persisting and then installing the new session, or
// fail without changing anything. [Manager.Logout] never fails.
//
// # What this package must NOT do
//
//   - Keep session state in package-level variables.
//   - Log credentials.
//   - Import any sub-package that re-imports portalAuth (no import cycles).
package portalAuth
