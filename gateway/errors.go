package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthentication matches failures where the authority explicitly
	// rejected the request or credential (401/403).
	ErrAuthentication = errors.New("authentication rejected")
	// ErrTransport matches network and server failures unrelated to
	// credential validity.
	ErrTransport = errors.New("transport failure")
	// ErrMalformedResponse is wrapped when a success body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response body")
)

// Error describes a failed gateway call.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	RequestID  string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Authentication reports whether the authority rejected the credential.
func (e *Error) Authentication() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuthentication:
		return e.Authentication()
	case ErrTransport:
		return !e.Authentication()
	}
	return false
}

// ServerMessage returns the message the authority attached to err, if any.
func ServerMessage(err error) (string, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) && gwErr.Message != "" {
		return gwErr.Message, true
	}
	return "", false
}
