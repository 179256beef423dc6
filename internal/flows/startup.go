package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/session"
	"github.com/MrEthical07/portalAuth/token"
)

// StartupOutcome is the branch a validation pass settled on.
type StartupOutcome int

const (
	// StartupNoCredential: nothing persisted.
	StartupNoCredential StartupOutcome = iota
	// StartupCorrupt: persisted state unreadable or credential malformed.
	StartupCorrupt
	// StartupAuthenticated: the authority accepted the credential.
	StartupAuthenticated
	// StartupRejected: the authority answered invalid or 401-class.
	StartupRejected
	// StartupUnreachable: the authority or the store could not be reached.
	StartupUnreachable
)

func (o StartupOutcome) String() string {
	switch o {
	case StartupNoCredential:
		return "no_credential"
	case StartupCorrupt:
		return "corrupt"
	case StartupAuthenticated:
		return "authenticated"
	case StartupRejected:
		return "rejected"
	case StartupUnreachable:
		return "unreachable"
	}
	return "unknown"
}

// StartupDeps captures validation-pass dependencies.
type StartupDeps struct {
	Load           func(context.Context) (session.Record, bool, error)
	ValidateFormat func(string) token.Result
	ValidateRemote func(context.Context, string) (gateway.ValidateResponse, error)
}

// StartupResult carries the settled branch and, when authenticated, the
// credential and the profile to install.
type StartupResult struct {
	Outcome    StartupOutcome
	Credential string
	User       session.Profile
	Reason     string
	Err        error
}

// RunStartupValidate reads the persisted credential and asks the authority
// whether it is still valid.
func RunStartupValidate(ctx context.Context, deps StartupDeps) StartupResult {
	rec, ok, err := deps.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrCorruptRecord) {
			return StartupResult{Outcome: StartupCorrupt, Reason: "corrupt record", Err: err}
		}
		return StartupResult{Outcome: StartupUnreachable, Err: err}
	}
	if !ok {
		return StartupResult{Outcome: StartupNoCredential}
	}

	if res := deps.ValidateFormat(rec.Credential); !res.Valid {
		return StartupResult{Outcome: StartupCorrupt, Reason: res.Reason}
	}

	resp, err := deps.ValidateRemote(ctx, rec.Credential)
	if err != nil {
		if errors.Is(err, gateway.ErrAuthentication) {
			return StartupResult{Outcome: StartupRejected, Err: err}
		}
		return StartupResult{Outcome: StartupUnreachable, Credential: rec.Credential, Err: err}
	}
	if !resp.Valid {
		return StartupResult{Outcome: StartupRejected, Reason: resp.Message}
	}

	// The authority's view of the profile wins; the cached one covers a
	// response without a user body.
	user := rec.User
	if resp.User != nil {
		user = *resp.User
	}
	return StartupResult{
		Outcome:    StartupAuthenticated,
		Credential: rec.Credential,
		User:       user,
	}
}
