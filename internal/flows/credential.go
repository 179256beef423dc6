package flows

import (
	"context"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/session"
	"github.com/MrEthical07/portalAuth/token"
)

// CredentialFailureKind classifies credential exchange failures for
// root-level error mapping.
type CredentialFailureKind int

const (
	CredentialFailureNone CredentialFailureKind = iota
	// CredentialFailureRemote: the gateway call failed; Err is the gateway error.
	CredentialFailureRemote
	// CredentialFailureMalformed: the issued credential failed the format check.
	CredentialFailureMalformed
	// CredentialFailureMissingProfile: the response carried no user.
	CredentialFailureMissingProfile
	// CredentialFailurePersist: the store rejected the record.
	CredentialFailurePersist
)

// CredentialCall performs one credential-issuing gateway request.
type CredentialCall func(ctx context.Context) (gateway.AuthResponse, error)

// CredentialDeps captures credential exchange dependencies.
type CredentialDeps struct {
	ValidateFormat func(string) token.Result
	Persist        func(context.Context, session.Record) error
}

// CredentialResult is either a persisted record or a classified failure.
type CredentialResult struct {
	Failure CredentialFailureKind
	Reason  string
	Err     error
	Record  session.Record
}

// RunCredentialExchange calls the authority, checks the issued credential
// and persists it. Nothing is persisted unless every check passes.
func RunCredentialExchange(ctx context.Context, call CredentialCall, deps CredentialDeps) CredentialResult {
	resp, err := call(ctx)
	if err != nil {
		return CredentialResult{Failure: CredentialFailureRemote, Err: err}
	}

	if res := deps.ValidateFormat(resp.Token); !res.Valid {
		return CredentialResult{Failure: CredentialFailureMalformed, Reason: res.Reason}
	}
	if resp.User == nil {
		return CredentialResult{Failure: CredentialFailureMissingProfile}
	}

	rec := session.Record{Credential: resp.Token, User: *resp.User}
	if err := deps.Persist(ctx, rec); err != nil {
		return CredentialResult{Failure: CredentialFailurePersist, Err: err}
	}
	return CredentialResult{Record: rec}
}
