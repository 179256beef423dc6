package flows

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/session"
	"github.com/MrEthical07/portalAuth/token"
)

func profile() *session.Profile {
	return &session.Profile{ID: "u1", Name: "Asha", Role: "manager"}
}

func credentialDeps(persisted *[]session.Record, persistErr error) CredentialDeps {
	return CredentialDeps{
		ValidateFormat: token.ValidateFormat,
		Persist: func(_ context.Context, rec session.Record) error {
			if persistErr != nil {
				return persistErr
			}
			*persisted = append(*persisted, rec)
			return nil
		},
	}
}

func TestRunCredentialExchangeSuccess(t *testing.T) {
	var persisted []session.Record
	res := RunCredentialExchange(context.Background(), func(context.Context) (gateway.AuthResponse, error) {
		return gateway.AuthResponse{Token: "h.p.s", User: profile()}, nil
	}, credentialDeps(&persisted, nil))

	if res.Failure != CredentialFailureNone {
		t.Fatalf("unexpected failure %v err=%v", res.Failure, res.Err)
	}
	if len(persisted) != 1 || persisted[0].Credential != "h.p.s" || persisted[0].User.ID != "u1" {
		t.Fatalf("unexpected persisted records %+v", persisted)
	}
}

func TestRunCredentialExchangeFailures(t *testing.T) {
	remoteErr := errors.New("boom")
	cases := []struct {
		name       string
		resp       gateway.AuthResponse
		callErr    error
		persistErr error
		want       CredentialFailureKind
		reason     string
	}{
		{name: "remote", callErr: remoteErr, want: CredentialFailureRemote},
		{name: "empty token", resp: gateway.AuthResponse{User: profile()}, want: CredentialFailureMalformed, reason: token.ReasonEmpty},
		{name: "two segments", resp: gateway.AuthResponse{Token: "a.b", User: profile()}, want: CredentialFailureMalformed, reason: token.ReasonSegmentCount},
		{name: "no user", resp: gateway.AuthResponse{Token: "a.b.c"}, want: CredentialFailureMissingProfile},
		{name: "persist", resp: gateway.AuthResponse{Token: "a.b.c", User: profile()}, persistErr: session.ErrStoreUnavailable, want: CredentialFailurePersist},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var persisted []session.Record
			res := RunCredentialExchange(context.Background(), func(context.Context) (gateway.AuthResponse, error) {
				return tc.resp, tc.callErr
			}, credentialDeps(&persisted, tc.persistErr))

			if res.Failure != tc.want {
				t.Fatalf("expected failure %v, got %v", tc.want, res.Failure)
			}
			if res.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, res.Reason)
			}
			if len(persisted) != 0 {
				t.Fatalf("nothing should be persisted on failure")
			}
		})
	}
}

func startupDeps(rec session.Record, ok bool, loadErr error, resp gateway.ValidateResponse, remoteErr error, remoteCalls *int) StartupDeps {
	return StartupDeps{
		Load: func(context.Context) (session.Record, bool, error) {
			return rec, ok, loadErr
		},
		ValidateFormat: token.ValidateFormat,
		ValidateRemote: func(context.Context, string) (gateway.ValidateResponse, error) {
			*remoteCalls++
			return resp, remoteErr
		},
	}
}

func TestRunStartupValidateBranches(t *testing.T) {
	stored := session.Record{Credential: "h.p.s", User: session.Profile{ID: "u1", Role: "user"}}
	fresh := &session.Profile{ID: "u1", Role: "admin"}

	cases := []struct {
		name        string
		rec         session.Record
		ok          bool
		loadErr     error
		resp        gateway.ValidateResponse
		remoteErr   error
		want        StartupOutcome
		wantRemote  int
		wantRole    string
		keepsCredit bool
	}{
		{name: "nothing stored", want: StartupNoCredential},
		{name: "corrupt store", loadErr: session.ErrCorruptRecord, want: StartupCorrupt},
		{name: "store down", loadErr: session.ErrStoreUnavailable, want: StartupUnreachable},
		{name: "malformed", rec: session.Record{Credential: "garbage"}, ok: true, want: StartupCorrupt},
		{name: "valid with user", rec: stored, ok: true, resp: gateway.ValidateResponse{Valid: true, User: fresh}, want: StartupAuthenticated, wantRemote: 1, wantRole: "admin", keepsCredit: true},
		{name: "valid without user", rec: stored, ok: true, resp: gateway.ValidateResponse{Valid: true}, want: StartupAuthenticated, wantRemote: 1, wantRole: "user", keepsCredit: true},
		{name: "invalid", rec: stored, ok: true, resp: gateway.ValidateResponse{Valid: false}, want: StartupRejected, wantRemote: 1},
		{name: "401", rec: stored, ok: true, remoteErr: &gateway.Error{Op: "validate-token", StatusCode: http.StatusUnauthorized}, want: StartupRejected, wantRemote: 1},
		{name: "503", rec: stored, ok: true, remoteErr: &gateway.Error{Op: "validate-token", StatusCode: http.StatusServiceUnavailable}, want: StartupUnreachable, wantRemote: 1, keepsCredit: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			res := RunStartupValidate(context.Background(), startupDeps(tc.rec, tc.ok, tc.loadErr, tc.resp, tc.remoteErr, &calls))
			if res.Outcome != tc.want {
				t.Fatalf("expected %v, got %v (err=%v)", tc.want, res.Outcome, res.Err)
			}
			if calls != tc.wantRemote {
				t.Fatalf("expected %d remote calls, got %d", tc.wantRemote, calls)
			}
			if tc.wantRole != "" && res.User.Role != tc.wantRole {
				t.Fatalf("expected role %q, got %q", tc.wantRole, res.User.Role)
			}
			if tc.keepsCredit && res.Credential != stored.Credential {
				t.Fatalf("expected credential to be carried, got %q", res.Credential)
			}
		})
	}
}

func TestRunLogout(t *testing.T) {
	if err := RunLogout(context.Background(), LogoutDeps{}); err != nil {
		t.Fatalf("nil clear should be a no-op, got %v", err)
	}
	cleared := false
	err := RunLogout(context.Background(), LogoutDeps{Clear: func(context.Context) error {
		cleared = true
		return nil
	}})
	if err != nil || !cleared {
		t.Fatalf("expected clear to run, err=%v", err)
	}
}

func TestStartupOutcomeString(t *testing.T) {
	if StartupUnreachable.String() != "unreachable" || StartupOutcome(99).String() != "unknown" {
		t.Fatalf("unexpected outcome names")
	}
}
