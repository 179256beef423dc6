// Package action is the UI-facing layer over portalAuth.Manager: it turns
// form submissions into Manager calls, collapses duplicate submissions,
// keeps the message to show after a failure, and navigates to the resolved
// destination on success.
package action
