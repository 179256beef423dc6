package action

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	portalAuth "github.com/MrEthical07/portalAuth"
	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/route"
)

// Kind names a submittable action. Submissions are deduplicated per Kind.
type Kind string

const (
	KindLogin        Kind = "login"
	KindStaffLogin   Kind = "staff_login"
	KindRegister     Kind = "register"
	KindGoogleSignIn Kind = "google_signin"
)

var defaultMessages = map[Kind]string{
	KindLogin:        "An error occurred during login.",
	KindStaffLogin:   "An error occurred during login.",
	KindRegister:     "Registration failed. Please try again.",
	KindGoogleSignIn: "Google Sign-In failed. Please try again.",
}

// Authenticator is the part of portalAuth.Manager the controller drives.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (portalAuth.LoginResult, error)
	StaffLogin(ctx context.Context, staffID string) (portalAuth.LoginResult, error)
	Register(ctx context.Context, in portalAuth.RegisterInput) (portalAuth.LoginResult, error)
	GoogleSignIn(ctx context.Context, oauthCredential string) (portalAuth.LoginResult, error)
	Logout(ctx context.Context)
}

// Navigator performs the actual navigation.
type Navigator interface {
	Navigate(path string)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) {
	f(path)
}

// Outcome is a successful submission. Shared is true when the result came
// from a submission that was already in flight.
type Outcome struct {
	Result   portalAuth.LoginResult
	Redirect string
	Shared   bool
}

// Option configures a [Controller].
type Option func(*Controller)

func WithNavigator(n Navigator) Option {
	return func(c *Controller) {
		c.nav = n
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFallbackMessage replaces the message shown for kind when the
// authority did not send one.
func WithFallbackMessage(kind Kind, msg string) Option {
	return func(c *Controller) {
		c.fallback[kind] = msg
	}
}

// Controller runs login-family submissions. While a submission of one kind
// is in flight, further submissions of that kind wait for it and share its
// result; the authority sees one request.
type Controller struct {
	auth     Authenticator
	resolver route.Resolver
	nav      Navigator
	logger   logrus.FieldLogger
	fallback map[Kind]string

	group singleflight.Group

	mu   sync.Mutex
	errs map[Kind]string
}

func New(auth Authenticator, resolver route.Resolver, opts ...Option) *Controller {
	l := logrus.New()
	l.SetOutput(io.Discard)

	c := &Controller{
		auth:     auth,
		resolver: resolver,
		logger:   l,
		fallback: make(map[Kind]string, len(defaultMessages)),
		errs:     make(map[Kind]string),
	}
	for k, v := range defaultMessages {
		c.fallback[k] = v
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Login(ctx context.Context, email, password, returnTo string) (Outcome, error) {
	return c.submit(ctx, KindLogin, returnTo, func(ctx context.Context) (portalAuth.LoginResult, error) {
		return c.auth.Login(ctx, strings.TrimSpace(email), password)
	})
}

// StaffLogin normalises the staff ID (whitespace removed, upper case) before
// submitting it.
func (c *Controller) StaffLogin(ctx context.Context, staffID, returnTo string) (Outcome, error) {
	id := NormalizeStaffID(staffID)
	return c.submit(ctx, KindStaffLogin, returnTo, func(ctx context.Context) (portalAuth.LoginResult, error) {
		return c.auth.StaffLogin(ctx, id)
	})
}

func (c *Controller) Register(ctx context.Context, in portalAuth.RegisterInput, returnTo string) (Outcome, error) {
	return c.submit(ctx, KindRegister, returnTo, func(ctx context.Context) (portalAuth.LoginResult, error) {
		return c.auth.Register(ctx, in)
	})
}

func (c *Controller) GoogleSignIn(ctx context.Context, oauthCredential, returnTo string) (Outcome, error) {
	return c.submit(ctx, KindGoogleSignIn, returnTo, func(ctx context.Context) (portalAuth.LoginResult, error) {
		return c.auth.GoogleSignIn(ctx, oauthCredential)
	})
}

// Logout signs out, clears every pending message and navigates to the
// login page.
func (c *Controller) Logout(ctx context.Context) string {
	c.auth.Logout(ctx)

	c.mu.Lock()
	clear(c.errs)
	c.mu.Unlock()

	dest := c.resolver.Homes.Login
	if c.nav != nil {
		c.nav.Navigate(dest)
	}
	return dest
}

// ErrorMessage is the message to show for kind after its last failed
// submission, or "" when the last submission succeeded or is pending.
func (c *Controller) ErrorMessage(kind Kind) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs[kind]
}

func (c *Controller) submit(
	ctx context.Context,
	kind Kind,
	returnTo string,
	call func(context.Context) (portalAuth.LoginResult, error),
) (Outcome, error) {
	c.setError(kind, "")

	leader := false
	v, err, shared := c.group.Do(string(kind), func() (any, error) {
		leader = true
		return call(ctx)
	})
	log := c.logger.WithFields(logrus.Fields{"action": string(kind), "shared": shared})
	if err != nil {
		msg := Message(err, c.fallback[kind])
		c.setError(kind, msg)
		log.WithError(err).Debug("submission failed")
		return Outcome{}, err
	}

	res := v.(portalAuth.LoginResult)
	dest := c.resolver.Resolve(res.User.RoleKind(), returnTo)
	if leader && c.nav != nil {
		c.nav.Navigate(dest)
	}
	log.WithField("redirect", dest).Debug("submission succeeded")
	return Outcome{Result: res, Redirect: dest, Shared: shared}, nil
}

func (c *Controller) setError(kind Kind, msg string) {
	c.mu.Lock()
	if msg == "" {
		delete(c.errs, kind)
	} else {
		c.errs[kind] = msg
	}
	c.mu.Unlock()
}

// Message returns the authority's message for err, or fallback.
func Message(err error, fallback string) string {
	if msg, ok := gateway.ServerMessage(err); ok {
		return msg
	}
	return fallback
}

// NormalizeStaffID strips all whitespace and upper-cases id.
func NormalizeStaffID(id string) string {
	return strings.ToUpper(strings.Join(strings.Fields(id), ""))
}
