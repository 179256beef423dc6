package portalAuth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/portalAuth/authtest"
	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/role"
	"github.com/MrEthical07/portalAuth/route"
	"github.com/MrEthical07/portalAuth/session"
	"github.com/MrEthical07/portalAuth/token"
)

var (
	managerUser = authtest.User{
		Profile:     session.Profile{ID: "m1", Name: "Meera", Email: "meera@example.com", Role: "manager"},
		Password:    "correct-password-123",
		PhoneNumber: "9000000001",
	}
	staffUser = authtest.User{
		Profile: session.Profile{ID: "s1", Name: "Ravi", Role: "field_staff", StaffID: "STF-0001"},
	}
	googleUser = authtest.User{
		Profile:          session.Profile{ID: "g1", Name: "Gita", Email: "gita@example.com", Role: "user"},
		Password:         "unused-password",
		PhoneNumber:      "9000000003",
		GoogleCredential: "google-oauth-credential",
	}
)

type testEnv struct {
	manager *Manager
	server  *authtest.Server
	store   session.Store
}

func newTestEnv(t *testing.T, build func(*Builder)) *testEnv {
	t.Helper()

	srv := authtest.NewServer(t, managerUser, staffUser, googleUser)
	store := session.NewMemoryStore()

	cfg := DefaultConfig()
	cfg.API.BaseURL = srv.URL()
	b := New().WithConfig(cfg).WithStore(store)
	if build != nil {
		build(b)
	}
	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Close)

	return &testEnv{manager: m, server: srv, store: store}
}

func (e *testEnv) seed(t *testing.T, userID string) string {
	t.Helper()
	cred, err := e.server.IssueToken(userID)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	rec := session.Record{Credential: cred, User: session.Profile{ID: userID, Name: "cached", Role: "user"}}
	if err := e.store.Save(context.Background(), rec); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return cred
}

func (e *testEnv) persisted(t *testing.T) (session.Record, bool) {
	t.Helper()
	rec, ok, err := e.store.Load(context.Background())
	if err != nil {
		t.Fatalf("store load: %v", err)
	}
	return rec, ok
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func assertSignedOut(t *testing.T, s Session) {
	t.Helper()
	if s.Credential != "" || s.User != nil || s.IsAuthenticated {
		t.Fatalf("expected empty session, got %+v", s)
	}
}

func TestNewManagerIsLoading(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.manager.Snapshot()
	if !s.IsLoading || s.IsAuthenticated || !s.RegistrationComplete {
		t.Fatalf("unexpected initial session %+v", s)
	}
	select {
	case <-env.manager.Ready():
		t.Fatalf("expected Ready to be open before startup")
	default:
	}
}

func TestStartupWithoutCredential(t *testing.T) {
	env := newTestEnv(t, nil)
	env.manager.StartupValidate(context.Background())

	s := env.manager.Snapshot()
	assertSignedOut(t, s)
	if s.IsLoading {
		t.Fatalf("expected loading to settle")
	}
	if got := env.server.Calls(gateway.PathValidateToken); got != 0 {
		t.Fatalf("expected no validate call, got %d", got)
	}
	<-env.manager.Ready()
}

func TestStartupRestoresValidSession(t *testing.T) {
	env := newTestEnv(t, nil)
	cred := env.seed(t, "m1")

	env.manager.StartupValidate(context.Background())

	s := env.manager.Snapshot()
	if !s.IsAuthenticated || s.IsLoading {
		t.Fatalf("expected authenticated settled session, got %+v", s)
	}
	if s.Credential != cred {
		t.Fatalf("expected persisted credential to be installed")
	}
	if s.User == nil || *s.User != managerUser.Profile {
		t.Fatalf("expected user from validate response, got %+v", s.User)
	}
	if s.Role() != role.Manager {
		t.Fatalf("expected manager role, got %s", s.Role())
	}
	if got := env.manager.MetricsSnapshot().Counters[MetricStartupAuthenticated]; got != 1 {
		t.Fatalf("expected startup authenticated metric 1, got %d", got)
	}
}

func TestStartupTransportFailureKeepsCredential(t *testing.T) {
	env := newTestEnv(t, nil)
	cred := env.seed(t, "m1")
	env.server.Fail(gateway.PathValidateToken, http.StatusBadGateway, "upstream down")

	env.manager.StartupValidate(context.Background())

	s := env.manager.Snapshot()
	assertSignedOut(t, s)
	if s.IsLoading {
		t.Fatalf("expected loading to settle")
	}
	rec, ok := env.persisted(t)
	if !ok || rec.Credential != cred {
		t.Fatalf("expected persisted credential to survive a transport failure")
	}

	err := env.manager.Revalidate(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport error from Revalidate, got %v", err)
	}

	env.server.Recover(gateway.PathValidateToken)
	if err := env.manager.Revalidate(context.Background()); err != nil {
		t.Fatalf("Revalidate failed: %v", err)
	}
	if !env.manager.Snapshot().IsAuthenticated {
		t.Fatalf("expected Revalidate to restore the session")
	}
}

func TestStartupRejectedCredentialLogsOut(t *testing.T) {
	cases := []struct {
		name  string
		setup func(env *testEnv, cred string)
	}{
		{name: "revoked", setup: func(env *testEnv, cred string) { env.server.Revoke(cred) }},
		{name: "forbidden", setup: func(env *testEnv, _ string) {
			env.server.Fail(gateway.PathValidateToken, http.StatusForbidden, "Forbidden")
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			cred := env.seed(t, "m1")
			tc.setup(env, cred)

			env.manager.StartupValidate(context.Background())

			assertSignedOut(t, env.manager.Snapshot())
			if _, ok := env.persisted(t); ok {
				t.Fatalf("expected store to be cleared")
			}
		})
	}
}

func TestStartupMalformedCredentialClears(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.store.Save(context.Background(), session.Record{Credential: "not-a-token", User: managerUser.Profile}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	env.manager.StartupValidate(context.Background())

	assertSignedOut(t, env.manager.Snapshot())
	if _, ok := env.persisted(t); ok {
		t.Fatalf("expected malformed credential to be cleared")
	}
	if got := env.server.Calls(gateway.PathValidateToken); got != 0 {
		t.Fatalf("expected malformed credential not to reach the authority, got %d calls", got)
	}
	if got := env.manager.MetricsSnapshot().Counters[MetricMalformedCredential]; got != 1 {
		t.Fatalf("expected malformed metric 1, got %d", got)
	}
}

func TestStartupRunsOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, "m1")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.manager.StartupValidate(context.Background())
		}()
	}
	wg.Wait()

	if got := env.server.Calls(gateway.PathValidateToken); got != 1 {
		t.Fatalf("expected exactly one validate call, got %d", got)
	}
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t, nil)
	env.manager.StartupValidate(context.Background())

	res, err := env.manager.Login(context.Background(), "meera@example.com", "correct-password-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !res.Success || res.User != managerUser.Profile {
		t.Fatalf("unexpected result %+v", res)
	}

	s := env.manager.Snapshot()
	if !s.IsAuthenticated || s.User == nil || s.User.ID != "m1" {
		t.Fatalf("expected authenticated manager session, got %+v", s)
	}
	if !token.WellFormed(s.Credential) {
		t.Fatalf("expected well-formed credential")
	}
	if !s.RegistrationComplete {
		t.Fatalf("expected complete registration for a profile with name, email and phone")
	}

	rec, ok := env.persisted(t)
	if !ok || rec.Credential != s.Credential || rec.User != *s.User {
		t.Fatalf("expected persisted record to match session")
	}
	if got := env.manager.MetricsSnapshot().Counters[MetricLoginSuccess]; got != 1 {
		t.Fatalf("expected login success metric 1, got %d", got)
	}
}

func TestStaffLoginResolvesStaffHome(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := env.manager.StaffLogin(context.Background(), "STF-0001")
	if err != nil {
		t.Fatalf("StaffLogin failed: %v", err)
	}
	if res.User.RoleKind() != role.FieldStaff {
		t.Fatalf("expected field staff, got %q", res.User.Role)
	}
	if got := env.manager.Resolver().Resolve(res.User.RoleKind(), ""); got != "/staff/operations" {
		t.Fatalf("expected staff home, got %q", got)
	}
	waitFor(t, "incomplete registration for a profile without email or phone", func() bool {
		return !env.manager.Snapshot().RegistrationComplete
	})
}

func TestRegisterSignsIn(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := env.manager.Register(context.Background(), RegisterInput{
		Name:        "Nila",
		Email:       "nila@example.com",
		PhoneNumber: "9000000009",
		Password:    "new-password-123",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.User.RoleKind() != role.User || res.User.Email != "nila@example.com" {
		t.Fatalf("unexpected registered user %+v", res.User)
	}
	if !env.manager.Snapshot().IsAuthenticated {
		t.Fatalf("expected registration to sign in")
	}
}

func TestGoogleSignIn(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := env.manager.GoogleSignIn(context.Background(), "google-oauth-credential")
	if err != nil {
		t.Fatalf("GoogleSignIn failed: %v", err)
	}
	if res.User.ID != "g1" {
		t.Fatalf("unexpected user %+v", res.User)
	}

	_, err = env.manager.GoogleSignIn(context.Background(), "other-credential")
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if s := env.manager.Snapshot(); s.User == nil || s.User.ID != "g1" {
		t.Fatalf("expected failed sign-in to leave the session untouched")
	}
}

func TestLoginRejectedPropagatesServerMessage(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.manager.Login(context.Background(), "meera@example.com", "wrong")
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if msg, ok := gateway.ServerMessage(err); !ok || msg != "Invalid email or password" {
		t.Fatalf("expected server message, got %q", msg)
	}
	assertSignedOut(t, env.manager.Snapshot())
	if got := env.manager.MetricsSnapshot().Counters[MetricLoginFailure]; got != 1 {
		t.Fatalf("expected login failure metric 1, got %d", got)
	}
}

func TestLoginMalformedCredentialChangesNothing(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.manager.StaffLogin(context.Background(), "STF-0001"); err != nil {
		t.Fatalf("StaffLogin failed: %v", err)
	}
	before := env.manager.Snapshot()
	recBefore, _ := env.persisted(t)

	env.server.OverrideToken(gateway.PathLogin, "header.payload")
	_, err := env.manager.Login(context.Background(), "meera@example.com", "correct-password-123")
	if !errors.Is(err, ErrMalformedCredential) {
		t.Fatalf("expected malformed credential error, got %v", err)
	}
	var mce *MalformedCredentialError
	if !errors.As(err, &mce) || mce.Reason != token.ReasonSegmentCount {
		t.Fatalf("expected segment count reason, got %v", err)
	}

	after := env.manager.Snapshot()
	if after.Credential != before.Credential || after.User.ID != before.User.ID {
		t.Fatalf("expected session unchanged after malformed credential")
	}
	recAfter, _ := env.persisted(t)
	if recAfter != recBefore {
		t.Fatalf("expected store unchanged after malformed credential")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	env.manager.StartupValidate(context.Background())
	if _, err := env.manager.Login(context.Background(), "meera@example.com", "correct-password-123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	env.manager.Logout(context.Background())
	first := env.manager.Snapshot()
	env.manager.Logout(context.Background())
	second := env.manager.Snapshot()

	assertSignedOut(t, first)
	assertSignedOut(t, second)
	if first != second {
		t.Fatalf("expected identical sessions after repeated logout: %+v vs %+v", first, second)
	}
	if _, ok := env.persisted(t); ok {
		t.Fatalf("expected store to be empty after logout")
	}
}

func TestLogoutDuringStartupWins(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, "m1")
	release := env.server.Hold(gateway.PathValidateToken)

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.manager.StartupValidate(context.Background())
	}()
	waitFor(t, "validate request", func() bool { return env.server.Calls(gateway.PathValidateToken) == 1 })

	env.manager.Logout(context.Background())
	release()
	<-done

	s := env.manager.Snapshot()
	assertSignedOut(t, s)
	if s.IsLoading {
		t.Fatalf("expected loading to settle")
	}
	if _, ok := env.persisted(t); ok {
		t.Fatalf("expected store to stay empty")
	}
	if got := env.manager.MetricsSnapshot().Counters[MetricStaleResultDiscarded]; got != 1 {
		t.Fatalf("expected one discarded startup result, got %d", got)
	}
}

func TestLoginDuringStartupWins(t *testing.T) {
	env := newTestEnv(t, nil)
	cred := env.seed(t, "m1")
	env.server.Revoke(cred)
	release := env.server.Hold(gateway.PathValidateToken)

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.manager.StartupValidate(context.Background())
	}()
	waitFor(t, "validate request", func() bool { return env.server.Calls(gateway.PathValidateToken) == 1 })

	if _, err := env.manager.StaffLogin(context.Background(), "STF-0001"); err != nil {
		t.Fatalf("StaffLogin failed: %v", err)
	}
	if !env.manager.Snapshot().IsLoading {
		t.Fatalf("expected login not to settle the loading state")
	}
	release()
	<-done

	s := env.manager.Snapshot()
	if !s.IsAuthenticated || s.User.ID != "s1" {
		t.Fatalf("expected staff session to survive the rejected startup credential, got %+v", s)
	}
	rec, ok := env.persisted(t)
	if !ok || rec.User.ID != "s1" {
		t.Fatalf("expected staff record to stay persisted")
	}
}

func TestRegistrationStatusIsBestEffort(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.Fail(gateway.PathRegistrationStatus, http.StatusInternalServerError, "boom")

	if _, err := env.manager.StaffLogin(context.Background(), "STF-0001"); err != nil {
		t.Fatalf("expected login to succeed despite registration status failure: %v", err)
	}
	waitFor(t, "registration status failure", func() bool {
		return env.manager.MetricsSnapshot().Counters[MetricRegistrationStatusFailure] == 1
	})
	s := env.manager.Snapshot()
	if !s.IsAuthenticated || !s.RegistrationComplete {
		t.Fatalf("expected RegistrationComplete to keep its default, got %+v", s)
	}
	if got := env.manager.MetricsSnapshot().Counters[MetricRegistrationStatusFailure]; got != 1 {
		t.Fatalf("expected registration status failure metric 1, got %d", got)
	}
}

func TestLoginDoesNotWaitForRegistrationStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	release := env.server.Hold(gateway.PathRegistrationStatus)
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := env.manager.StaffLogin(context.Background(), "STF-0001")
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("StaffLogin failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("StaffLogin blocked on a pending registration status check")
	}
	s := env.manager.Snapshot()
	if !s.IsAuthenticated || !s.RegistrationComplete {
		t.Fatalf("expected authenticated session with default registration, got %+v", s)
	}
	waitFor(t, "registration status request", func() bool {
		return env.server.Calls(gateway.PathRegistrationStatus) == 1
	})

	release()
	waitFor(t, "incomplete registration", func() bool {
		return !env.manager.Snapshot().RegistrationComplete
	})
}

func TestStartupSettlesBeforeRegistrationStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, "s1")
	release := env.server.Hold(gateway.PathRegistrationStatus)
	defer release()

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.manager.StartupValidate(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("StartupValidate blocked on a pending registration status check")
	}
	s := env.manager.Snapshot()
	if s.IsLoading || !s.IsAuthenticated {
		t.Fatalf("expected settled authenticated session, got %+v", s)
	}
	if d := env.manager.Decide(env.manager.Guards().StaffOrAdmin, "/staff/operations"); d.Kind != route.Allow {
		t.Fatalf("expected staff guard to allow once settled, got %+v", d)
	}

	release()
	waitFor(t, "incomplete registration", func() bool {
		return !env.manager.Snapshot().RegistrationComplete
	})
}

func TestRevalidateTransportFailureSuspendsSession(t *testing.T) {
	env := newTestEnv(t, nil)
	env.manager.StartupValidate(context.Background())
	if _, err := env.manager.StaffLogin(context.Background(), "STF-0001"); err != nil {
		t.Fatalf("StaffLogin failed: %v", err)
	}
	cred := env.manager.Snapshot().Credential
	waitFor(t, "incomplete registration", func() bool {
		return !env.manager.Snapshot().RegistrationComplete
	})

	var notified int
	var mu sync.Mutex
	unsubscribe := env.manager.Subscribe(func(s Session) {
		mu.Lock()
		if !s.IsAuthenticated {
			notified++
		}
		mu.Unlock()
	})
	defer unsubscribe()

	env.server.Fail(gateway.PathValidateToken, http.StatusBadGateway, "down")
	err := env.manager.Revalidate(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport error from Revalidate, got %v", err)
	}

	s := env.manager.Snapshot()
	if s.IsAuthenticated {
		t.Fatalf("expected unreachable authority to end the authenticated state")
	}
	if s.Credential != cred {
		t.Fatalf("expected in-memory credential to be kept for a retry")
	}
	rec, ok := env.persisted(t)
	if !ok || rec.Credential != cred {
		t.Fatalf("expected persisted record to survive a transport failure")
	}
	if d := env.manager.Decide(env.manager.Guards().StaffOrAdmin, "/staff/operations"); d.Kind != route.RedirectToLogin {
		t.Fatalf("expected staff guard to redirect, got %+v", d)
	}
	mu.Lock()
	if notified != 1 {
		t.Fatalf("expected one unauthenticated notification, got %d", notified)
	}
	mu.Unlock()

	env.server.Recover(gateway.PathValidateToken)
	if err := env.manager.Revalidate(context.Background()); err != nil {
		t.Fatalf("Revalidate failed: %v", err)
	}
	if s := env.manager.Snapshot(); !s.IsAuthenticated || s.Credential != cred {
		t.Fatalf("expected Revalidate to restore the session, got %+v", s)
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	env := newTestEnv(t, nil)

	var mu sync.Mutex
	var seen []Session
	unsubscribe := env.manager.Subscribe(func(s Session) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	env.manager.StartupValidate(context.Background())
	if _, err := env.manager.Login(context.Background(), "meera@example.com", "correct-password-123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	unsubscribe()
	env.manager.Logout(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 2 {
		t.Fatalf("expected at least two notifications, got %d", len(seen))
	}
	if seen[0].IsLoading {
		t.Fatalf("expected first notification to report settled loading")
	}
	last := seen[len(seen)-1]
	if !last.IsAuthenticated {
		t.Fatalf("expected no notification after unsubscribe, last was %+v", last)
	}
}

func TestDecideUsesCurrentSession(t *testing.T) {
	env := newTestEnv(t, nil)
	guards := env.manager.Guards()

	if d := env.manager.Decide(guards.ManagerOrAdmin, "/manager/home"); d.Kind != route.Loading {
		t.Fatalf("expected loading before startup, got %s", d.Kind)
	}
	env.manager.StartupValidate(context.Background())
	if d := env.manager.Decide(guards.ManagerOrAdmin, "/manager/home"); d.Kind != route.RedirectToLogin || d.ReturnTo != "/manager/home" {
		t.Fatalf("expected login redirect, got %+v", d)
	}
	if _, err := env.manager.Login(context.Background(), "meera@example.com", "correct-password-123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if d := env.manager.Decide(guards.ManagerOrAdmin, "/manager/home"); d.Kind != route.Allow {
		t.Fatalf("expected allow, got %+v", d)
	}
}

func TestAuditEventsEmitted(t *testing.T) {
	sink := NewChannelSink(16)
	env := newTestEnv(t, func(b *Builder) {
		b.config.Audit = AuditConfig{Enabled: true, BufferSize: 16}
		b.WithAuditSink(sink)
	})

	if _, err := env.manager.Login(context.Background(), "meera@example.com", "correct-password-123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	select {
	case ev := <-sink.Events():
		if ev.EventType != AuditEventLoginSuccess || ev.UserID != "m1" || ev.Role != "manager" || !ev.Success {
			t.Fatalf("unexpected audit event %+v", ev)
		}
		if ev.ID == "" || ev.Timestamp.IsZero() {
			t.Fatalf("expected dispatcher to stamp id and timestamp")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for audit event")
	}
}
