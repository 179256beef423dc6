package portalAuth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/internal/audit"
	"github.com/MrEthical07/portalAuth/internal/flows"
	"github.com/MrEthical07/portalAuth/route"
	"github.com/MrEthical07/portalAuth/session"
)

// Manager owns one Session and is its only writer. It is safe for
// concurrent use.
//
// Every login-family operation and Logout bumps a generation counter. Remote
// results that were requested under an older generation (startup validation,
// registration status) are discarded instead of overwriting newer state.
type Manager struct {
	config   Config
	gateway  Gateway
	store    session.Store
	flows    flows.Deps
	resolver route.Resolver
	guards   route.Table
	logger   logrus.FieldLogger
	metrics  *Metrics
	audit    *audit.Dispatcher
	closers  []func() error

	// opMu orders store writes with the in-memory swap that follows them.
	opMu sync.Mutex

	mu         sync.RWMutex
	state      Session
	generation uint64

	startOnce sync.Once
	ready     chan struct{}

	// bgCtx bounds registration-status checks; Close cancels it.
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup

	subMu   sync.Mutex
	subs    map[uint64]func(Session)
	nextSub uint64
}

type loginOp struct {
	name    string
	success MetricID
	failure MetricID
}

var (
	opLogin        = loginOp{"login", MetricLoginSuccess, MetricLoginFailure}
	opStaffLogin   = loginOp{"staff_login", MetricStaffLoginSuccess, MetricStaffLoginFailure}
	opRegister     = loginOp{"register", MetricRegisterSuccess, MetricRegisterFailure}
	opGoogleSignIn = loginOp{"google_signin", MetricGoogleSignInSuccess, MetricGoogleSignInFailure}
)

// registrationStatusTimeout bounds a registration-status check when
// APIConfig.Timeout is zero.
const registrationStatusTimeout = 10 * time.Second

// Close cancels pending registration-status checks, flushes audit events
// and releases store connections the Builder opened.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	if m.bgCancel != nil {
		m.bgCancel()
	}
	m.bg.Wait()
	if m.audit != nil {
		m.audit.Close()
	}
	for _, c := range m.closers {
		if err := c(); err != nil {
			m.logger.WithError(err).Warn("close store backend")
		}
	}
}

// Snapshot returns a copy of the current Session.
func (m *Manager) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Subscribe registers fn to receive a snapshot after every Session change.
// fn runs on the goroutine that made the change and must not block. The
// returned func unsubscribes.
func (m *Manager) Subscribe(fn func(Session)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

// Ready is closed once startup validation has settled.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Resolver returns the role redirect resolver built from the route config.
func (m *Manager) Resolver() route.Resolver {
	return m.resolver
}

// Guards returns the guard table built from the route config.
func (m *Manager) Guards() route.Table {
	return m.guards
}

// Decide runs g against the current Session.
func (m *Manager) Decide(g route.Guard, currentPath string) route.Decision {
	return g.Decide(m.Snapshot().Subject(), currentPath)
}

// Metrics returns the live counters, for exporters.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// MetricsSnapshot returns a point-in-time copy of the counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

// AuditDropped reports audit events dropped because the buffer was full.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

/*
====================================
STARTUP
====================================
*/

// StartupValidate checks the persisted credential with the authority and
// settles the loading state. Only the first call does any work; later calls
// wait for it to finish. It never fails:
//
//   - nothing persisted: unauthenticated
//   - unreadable or malformed: cleared, unauthenticated
//   - rejected by the authority: cleared, unauthenticated
//   - authority unreachable: persisted credential kept, unauthenticated
//   - accepted: authenticated with the authority's profile
//
// The registration-status check that follows acceptance runs in the
// background, so loading settles without waiting for it.
func (m *Manager) StartupValidate(ctx context.Context) {
	m.startOnce.Do(func() {
		defer m.settle()
		_ = m.validate(ctx)
	})
}

// Revalidate runs the startup checks again against the persisted
// credential. It leaves IsLoading alone. When the authority cannot be
// reached the Session stops being authenticated, the credential and the
// stored record are kept, and the transport error is returned so callers can
// retry.
func (m *Manager) Revalidate(ctx context.Context) error {
	return m.validate(ctx)
}

func (m *Manager) validate(ctx context.Context) error {
	gen := m.currentGeneration()
	res := flows.RunStartupValidate(ctx, m.flows.Startup)
	log := m.logger.WithField("op", "startup_validate").WithField("outcome", res.Outcome.String())

	switch res.Outcome {
	case flows.StartupNoCredential:
		m.metricInc(MetricStartupNoCredential)
		log.Debug("no persisted session")
		return nil

	case flows.StartupCorrupt:
		m.metricInc(MetricStartupCorrupt)
		if res.Err == nil {
			m.metricInc(MetricMalformedCredential)
			m.emitAudit(ctx, AuditEventMalformedCredential, false, nil, &MalformedCredentialError{Reason: res.Reason}, func() map[string]string {
				return map[string]string{"source": "store", "reason": res.Reason}
			})
		}
		log.WithField("reason", res.Reason).Warn("persisted session unusable, clearing")
		m.clearIfCurrent(ctx, gen, res.Outcome)
		return nil

	case flows.StartupRejected:
		m.metricInc(MetricStartupRejected)
		log.Info("persisted credential rejected by authority")
		m.clearIfCurrent(ctx, gen, res.Outcome)
		return nil

	case flows.StartupUnreachable:
		m.metricInc(MetricStartupUnreachable)
		withRequestID(log, res.Err).WithError(res.Err).Warn("authority unreachable, keeping persisted credential")
		m.emitAudit(ctx, AuditEventStartup, false, nil, res.Err, outcomeMeta(res.Outcome))
		m.suspendIfCurrent(gen)
		return res.Err
	}

	user := res.User
	if !m.install(gen, res.Credential, user) {
		m.metricInc(MetricStaleResultDiscarded)
		log.Debug("session replaced during validation, result discarded")
		return nil
	}
	m.metricInc(MetricStartupAuthenticated)
	log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("session restored")
	m.emitAudit(ctx, AuditEventStartup, true, &user, nil, outcomeMeta(res.Outcome))
	m.notify()

	m.checkRegistration(res.Credential)
	return nil
}

func (m *Manager) validateRemote(ctx context.Context, credential string) (gateway.ValidateResponse, error) {
	start := time.Now()
	resp, err := m.gateway.ValidateToken(ctx, credential)
	m.metrics.Observe(MetricRemoteLatency, time.Since(start))
	return resp, err
}

// install swaps in an authenticated session unless the generation moved.
func (m *Manager) install(gen uint64, credential string, user session.Profile) bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return false
	}
	m.state.Credential = credential
	m.state.User = &user
	m.state.IsAuthenticated = true
	m.state.RegistrationComplete = true
	m.generation++
	return true
}

// clearIfCurrent logs out unless a newer operation already replaced the
// session, in which case the store holds that operation's record.
func (m *Manager) clearIfCurrent(ctx context.Context, gen uint64, outcome flows.StartupOutcome) {
	m.opMu.Lock()
	m.mu.RLock()
	stale := m.generation != gen
	m.mu.RUnlock()
	if stale {
		m.opMu.Unlock()
		m.metricInc(MetricStaleResultDiscarded)
		return
	}
	prev := m.reset(ctx)
	m.opMu.Unlock()

	m.emitAudit(ctx, AuditEventStartup, false, prev, nil, outcomeMeta(outcome))
	m.notify()
}

// suspendIfCurrent drops the authenticated flag after the authority could
// not be reached. Credential, user and store stay for the next retry.
func (m *Manager) suspendIfCurrent(gen uint64) {
	m.opMu.Lock()
	m.mu.Lock()
	changed := m.generation == gen && m.state.IsAuthenticated
	if changed {
		m.state.IsAuthenticated = false
	}
	m.mu.Unlock()
	m.opMu.Unlock()

	if changed {
		m.notify()
	}
}

func (m *Manager) settle() {
	m.mu.Lock()
	m.state.IsLoading = false
	m.mu.Unlock()
	close(m.ready)
	m.notify()
}

/*
====================================
LOGIN FAMILY
====================================
*/

// Login exchanges email (or phone number) and password for a credential.
func (m *Manager) Login(ctx context.Context, email, password string) (LoginResult, error) {
	return m.exchange(ctx, opLogin, func(ctx context.Context) (gateway.AuthResponse, error) {
		return m.gateway.Login(ctx, email, password)
	})
}

// StaffLogin exchanges a staff ID for a credential.
func (m *Manager) StaffLogin(ctx context.Context, staffID string) (LoginResult, error) {
	return m.exchange(ctx, opStaffLogin, func(ctx context.Context) (gateway.AuthResponse, error) {
		return m.gateway.StaffLogin(ctx, staffID)
	})
}

// Register creates an account and signs it in.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (LoginResult, error) {
	req := gateway.RegisterRequest{
		Name:        in.Name,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		Password:    in.Password,
	}
	return m.exchange(ctx, opRegister, func(ctx context.Context) (gateway.AuthResponse, error) {
		return m.gateway.Register(ctx, req)
	})
}

// GoogleSignIn exchanges a Google OAuth credential for a portal credential.
func (m *Manager) GoogleSignIn(ctx context.Context, oauthCredential string) (LoginResult, error) {
	return m.exchange(ctx, opGoogleSignIn, func(ctx context.Context) (gateway.AuthResponse, error) {
		return m.gateway.GoogleSignIn(ctx, oauthCredential)
	})
}

// exchange runs one login-family operation. On any failure neither the store
// nor the Session changes. Gateway errors are returned unchanged.
func (m *Manager) exchange(ctx context.Context, op loginOp, call flows.CredentialCall) (LoginResult, error) {
	log := m.logger.WithField("op", op.name)

	res := flows.RunCredentialExchange(ctx, m.timed(call), m.flows.Credential)
	if err := credentialError(res); err != nil {
		m.metricInc(op.failure)
		if res.Failure == flows.CredentialFailureMalformed {
			m.metricInc(MetricMalformedCredential)
			m.emitAudit(ctx, AuditEventMalformedCredential, false, nil, err, func() map[string]string {
				return map[string]string{"source": op.name, "reason": res.Reason}
			})
		} else {
			m.emitAudit(ctx, AuditEventLoginFailure, false, nil, err, opMeta(op))
		}
		withRequestID(log, err).WithError(err).Warn("sign-in failed")
		return LoginResult{}, err
	}

	user := res.Record.User
	m.metricInc(op.success)
	m.emitAudit(ctx, AuditEventLoginSuccess, true, &user, nil, opMeta(op))
	log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("signed in")

	m.checkRegistration(res.Record.Credential)
	return LoginResult{Success: true, User: user}, nil
}

func credentialError(res flows.CredentialResult) error {
	switch res.Failure {
	case flows.CredentialFailureNone:
		return nil
	case flows.CredentialFailureRemote:
		return res.Err
	case flows.CredentialFailureMalformed:
		return &MalformedCredentialError{Reason: res.Reason}
	case flows.CredentialFailureMissingProfile:
		return ErrMissingProfile
	case flows.CredentialFailurePersist:
		return fmt.Errorf("%w: %w", ErrPersist, res.Err)
	}
	return errors.New("unknown credential failure")
}

func (m *Manager) timed(call flows.CredentialCall) flows.CredentialCall {
	return func(ctx context.Context) (gateway.AuthResponse, error) {
		start := time.Now()
		resp, err := call(ctx)
		m.metrics.Observe(MetricRemoteLatency, time.Since(start))
		return resp, err
	}
}

// commit persists rec and, only once that succeeded, installs it.
func (m *Manager) commit(ctx context.Context, rec session.Record) error {
	if err := m.persistAndSwap(ctx, rec); err != nil {
		return err
	}
	m.notify()
	return nil
}

func (m *Manager) persistAndSwap(ctx context.Context, rec session.Record) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.store.Save(ctx, rec); err != nil {
		return err
	}

	user := rec.User
	m.mu.Lock()
	m.state.Credential = rec.Credential
	m.state.User = &user
	m.state.IsAuthenticated = true
	m.state.RegistrationComplete = true
	m.generation++
	m.mu.Unlock()
	return nil
}

/*
====================================
REGISTRATION STATUS
====================================
*/

// checkRegistration starts a registration-status check for credential and
// returns without waiting for it.
func (m *Manager) checkRegistration(credential string) {
	if m.bgCtx.Err() != nil {
		return
	}
	gen := m.currentGeneration()
	timeout := m.config.API.Timeout
	if timeout <= 0 {
		timeout = registrationStatusTimeout
	}

	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		ctx, cancel := context.WithTimeout(m.bgCtx, timeout)
		defer cancel()
		m.refreshRegistration(ctx, gen, credential)
	}()
}

// refreshRegistration asks whether the profile is complete. Failures are
// logged and leave RegistrationComplete unchanged; the answer is dropped if
// the session changed since gen.
func (m *Manager) refreshRegistration(ctx context.Context, gen uint64, credential string) {
	start := time.Now()
	status, err := m.gateway.RegistrationStatus(ctx, credential)
	m.metrics.Observe(MetricRemoteLatency, time.Since(start))
	if err != nil {
		m.metricInc(MetricRegistrationStatusFailure)
		withRequestID(m.logger.WithField("op", "registration_status"), err).WithError(err).Debug("registration status unavailable")
		return
	}

	m.mu.Lock()
	current := m.generation == gen && m.state.Credential == credential
	changed := current && m.state.RegistrationComplete != status.IsComplete
	if current {
		m.state.RegistrationComplete = status.IsComplete
	}
	m.mu.Unlock()

	if !current {
		m.metricInc(MetricStaleResultDiscarded)
		return
	}
	if !status.IsComplete {
		m.metricInc(MetricRegistrationIncomplete)
		m.emitAudit(ctx, AuditEventRegistrationStatus, true, nil, nil, func() map[string]string {
			return map[string]string{"complete": "false"}
		})
	}
	if changed {
		m.notify()
	}
}

/*
====================================
LOGOUT
====================================
*/

// Logout clears the store and the Session. It never fails and is safe to
// call repeatedly; a store that cannot be cleared is logged.
func (m *Manager) Logout(ctx context.Context) {
	m.opMu.Lock()
	prev := m.reset(ctx)
	m.opMu.Unlock()

	m.metricInc(MetricLogout)
	if prev != nil {
		m.emitAudit(ctx, AuditEventLogout, true, prev, nil, nil)
		m.logger.WithFields(logrus.Fields{"op": "logout", "user_id": prev.ID, "role": prev.Role}).Info("signed out")
	}
	m.notify()
}

// reset clears persisted and in-memory state. Callers hold opMu.
func (m *Manager) reset(ctx context.Context) *session.Profile {
	if err := flows.RunLogout(ctx, m.flows.Logout); err != nil {
		m.logger.WithField("op", "logout").WithError(err).Warn("session store clear failed")
	}

	m.mu.Lock()
	prev := m.state.User
	m.state = Session{
		IsLoading:            m.state.IsLoading,
		RegistrationComplete: true,
	}
	m.generation++
	m.mu.Unlock()
	return prev
}

/*
====================================
HELPERS
====================================
*/

func (m *Manager) currentGeneration() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

func (m *Manager) notify() {
	m.subMu.Lock()
	if len(m.subs) == 0 {
		m.subMu.Unlock()
		return
	}
	fns := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	snap := m.Snapshot()
	for _, fn := range fns {
		fn(snap.clone())
	}
}

func (m *Manager) metricInc(id MetricID) {
	m.metrics.Inc(id)
}

func withRequestID(log logrus.FieldLogger, err error) logrus.FieldLogger {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.RequestID != "" {
		return log.WithField("request_id", gwErr.RequestID)
	}
	return log
}

func opMeta(op loginOp) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"op": op.name}
	}
}

func outcomeMeta(o flows.StartupOutcome) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"outcome": o.String()}
	}
}
