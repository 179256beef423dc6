package portalAuth

import (
	"errors"

	"github.com/MrEthical07/portalAuth/gateway"
)

var (
	// ErrMalformedCredential is matched by every [*MalformedCredentialError].
	ErrMalformedCredential = errors.New("malformed credential")
	// ErrAuthentication marks a 401/403 answer from the authority.
	ErrAuthentication = gateway.ErrAuthentication
	// ErrTransport marks a network failure or a non-authentication error
	// status from the authority.
	ErrTransport = gateway.ErrTransport
	// ErrMissingProfile is returned when the authority issued a credential
	// without a user.
	ErrMissingProfile = errors.New("authority response carried no user")
	// ErrPersist is returned when the session store rejected a new record.
	// Nothing in memory changes in that case.
	ErrPersist = errors.New("session persist failed")
	// ErrGatewayRequired is returned by Build without a gateway or base URL.
	ErrGatewayRequired = errors.New("gateway or API base URL required")
	// ErrBuilderReused is returned when Build is called twice.
	ErrBuilderReused = errors.New("builder already used")
)

// MalformedCredentialError reports a credential that failed the structural
// format check. Reason is one of the token package reasons.
type MalformedCredentialError struct {
	Reason string
}

func (e *MalformedCredentialError) Error() string {
	if e.Reason == "" {
		return ErrMalformedCredential.Error()
	}
	return ErrMalformedCredential.Error() + ": " + e.Reason
}

func (e *MalformedCredentialError) Is(target error) bool {
	return target == ErrMalformedCredential
}
