package authtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/session"
)

const defaultTokenTTL = time.Hour

// User is an account known to the fake authority.
type User struct {
	session.Profile
	Password    string
	PhoneNumber string
	// GoogleCredential, when set, is the OAuth credential accepted for this
	// user by the Google sign-in endpoint.
	GoogleCredential string
}

type account struct {
	profile      session.Profile
	passwordHash []byte
	phone        string
	google       string
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type failure struct {
	status  int
	message string
}

// Server is the fake authority. Create one with [NewServer]; it is closed
// automatically when the test ends.
type Server struct {
	srv    *httptest.Server
	secret []byte
	ttl    time.Duration

	mu        sync.Mutex
	accounts  map[string]*account
	revoked   map[string]bool
	failures  map[string]failure
	overrides map[string]string
	gates     map[string]chan struct{}
	nextID    int

	calls sync.Map
}

// TB is the subset of testing.TB the server needs.
type TB interface {
	Helper()
	Cleanup(func())
}

// NewServer starts a fake authority seeded with users.
func NewServer(t TB, users ...User) *Server {
	t.Helper()
	s := Start(users...)
	t.Cleanup(s.Close)
	return s
}

// Start runs a fake authority outside of a test. The caller must Close it.
func Start(users ...User) *Server {
	s := &Server{
		secret:    []byte("authtest-signing-secret"),
		ttl:       defaultTokenTTL,
		accounts:  make(map[string]*account),
		revoked:   make(map[string]bool),
		failures:  make(map[string]failure),
		overrides: make(map[string]string),
		gates:     make(map[string]chan struct{}),
	}
	for _, u := range users {
		s.AddUser(u)
	}
	s.srv = httptest.NewServer(s.router())
	return s
}

func (s *Server) URL() string {
	return s.srv.URL
}

func (s *Server) Close() {
	s.mu.Lock()
	for path, gate := range s.gates {
		close(gate)
		delete(s.gates, path)
	}
	s.mu.Unlock()
	s.srv.Close()
}

// AddUser registers or replaces an account.
func (s *Server) AddUser(u User) {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		s.nextID++
		u.ID = "u" + strconv.Itoa(s.nextID)
	}
	s.accounts[u.ID] = &account{
		profile:      u.Profile,
		passwordHash: hash,
		phone:        u.PhoneNumber,
		google:       u.GoogleCredential,
	}
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int64 {
	v, ok := s.calls.Load(path)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// Fail makes every request to path answer status with message until
// [Server.Recover] is called.
func (s *Server) Fail(path string, status int, message string) {
	s.mu.Lock()
	s.failures[path] = failure{status: status, message: message}
	s.mu.Unlock()
}

func (s *Server) Recover(path string) {
	s.mu.Lock()
	delete(s.failures, path)
	s.mu.Unlock()
}

// OverrideToken makes credential-issuing endpoint path return raw instead of
// a signed token.
func (s *Server) OverrideToken(path, raw string) {
	s.mu.Lock()
	s.overrides[path] = raw
	s.mu.Unlock()
}

// Hold blocks requests to path after they are counted until the returned
// release func is called.
func (s *Server) Hold(path string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[path] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gates[path] == gate {
				delete(s.gates, path)
				close(gate)
			}
			s.mu.Unlock()
		})
	}
}

// Revoke makes the authority reject credential on validation.
func (s *Server) Revoke(credential string) {
	s.mu.Lock()
	s.revoked[credential] = true
	s.mu.Unlock()
}

// SetPhone updates the phone number that decides registration completeness.
func (s *Server) SetPhone(userID, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[userID]; ok {
		acc.phone = phone
	}
}

// IssueToken signs a credential for userID as the login endpoints would.
func (s *Server) IssueToken(userID string) (string, error) {
	s.mu.Lock()
	acc, ok := s.accounts[userID]
	s.mu.Unlock()
	if !ok {
		return "", errors.New("unknown user")
	}
	return s.sign(acc.profile)
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count, s.gate, s.inject)
	r.Post(gateway.PathLogin, s.handleLogin)
	r.Post(gateway.PathStaffLogin, s.handleStaffLogin)
	r.Post(gateway.PathRegister, s.handleRegister)
	r.Post(gateway.PathGoogleSignIn, s.handleGoogleSignIn)
	r.With(s.requireAuth).Get(gateway.PathValidateToken, s.handleValidate)
	r.With(s.requireAuth).Get(gateway.PathRegistrationStatus, s.handleRegistrationStatus)
	return r
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, _ := s.calls.LoadOrStore(r.URL.Path, new(atomic.Int64))
		v.(*atomic.Int64).Add(1)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		gate := s.gates[r.URL.Path]
		s.mu.Unlock()
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.failures[r.URL.Path]
		s.mu.Unlock()
		if ok {
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type subjectKey struct{}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeJSON(w, http.StatusUnauthorized, gateway.ValidateResponse{Message: "Not authorized, no token"})
			return
		}
		acc, err := s.authenticate(raw)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, gateway.ValidateResponse{Message: "Invalid token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), acc)))
	})
}

func (s *Server) authenticate(raw string) (*account, error) {
	s.mu.Lock()
	revoked := s.revoked[raw]
	s.mu.Unlock()
	if revoked {
		return nil, errors.New("revoked")
	}

	parsed := &claims{}
	_, err := jwt.ParseWithClaims(raw, parsed, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[parsed.Subject]
	if !ok {
		return nil, errors.New("user not found")
	}
	return acc, nil
}

func (s *Server) sign(p session.Profile) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return tok.SignedString(s.secret)
}

func (s *Server) respondWithToken(w http.ResponseWriter, path string, acc *account) {
	s.mu.Lock()
	override, hasOverride := s.overrides[path]
	s.mu.Unlock()

	raw := override
	if !hasOverride {
		var err error
		raw, err = s.sign(acc.profile)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to issue token")
			return
		}
	}
	profile := acc.profile
	writeJSON(w, http.StatusOK, gateway.AuthResponse{Token: raw, User: &profile})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, map[string]string{"message": message})
}
