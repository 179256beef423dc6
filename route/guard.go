package route

import (
	"github.com/MrEthical07/portalAuth/role"
)

// Subject is the part of the session a guard decides on.
type Subject struct {
	Loading       bool
	Authenticated bool
	HasUser       bool
	Role          role.Role
}

// DecisionKind enumerates guard outcomes.
type DecisionKind uint8

const (
	// Loading: startup validation has not settled; render a placeholder.
	Loading DecisionKind = iota
	Allow
	RedirectToLogin
	RedirectToFallback
)

func (k DecisionKind) String() string {
	switch k {
	case Loading:
		return "loading"
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToFallback:
		return "redirect_to_fallback"
	}
	return "unknown"
}

// Decision is a guard outcome. Path is the redirect target for the two
// redirect kinds; ReturnTo is the location to resume after login.
type Decision struct {
	Kind     DecisionKind
	Path     string
	ReturnTo string
}

// Predicate is an extra, route-specific check run after the role-set check.
// It returns the redirect target and true to turn the subject away.
type Predicate func(Subject) (redirect string, deny bool)

// DenyRoles turns away the listed roles to target. It expresses exceptions
// that belong to one area rather than to a role in general.
func DenyRoles(target string, roles ...role.Role) Predicate {
	denied := role.NewSet(roles...)
	return func(s Subject) (string, bool) {
		if denied.Has(s.Role.Effective()) {
			return target, true
		}
		return "", false
	}
}

// Guard is the access policy for one protected area.
type Guard struct {
	name       string
	allowed    role.Set
	homes      Homes
	fallback   string
	roleHome   bool
	predicates []Predicate
}

// GuardOption configures a [Guard].
type GuardOption func(*Guard)

// WithFallback sets a fixed fallback path for disallowed roles.
func WithFallback(path string) GuardOption {
	return func(g *Guard) {
		g.fallback = path
		g.roleHome = false
	}
}

// WithRoleHomeFallback sends disallowed roles to their own home instead of
// a fixed path.
func WithRoleHomeFallback() GuardOption {
	return func(g *Guard) {
		g.roleHome = true
	}
}

// WithPredicate adds an extra route-specific check.
func WithPredicate(p Predicate) GuardOption {
	return func(g *Guard) {
		if p != nil {
			g.predicates = append(g.predicates, p)
		}
	}
}

// NewGuard builds a guard admitting allowed. Without a fallback option,
// disallowed roles go to the user home of homes.
func NewGuard(name string, allowed role.Set, homes Homes, opts ...GuardOption) Guard {
	g := Guard{
		name:     name,
		allowed:  allowed,
		homes:    homes,
		fallback: homes.User,
	}
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

func (g Guard) Name() string {
	return g.name
}

func (g Guard) Allowed() role.Set {
	return g.allowed
}

// Decide returns the outcome for a subject requesting currentPath.
func (g Guard) Decide(s Subject, currentPath string) Decision {
	if s.Loading {
		return Decision{Kind: Loading}
	}
	if !s.Authenticated || !s.HasUser {
		return Decision{Kind: RedirectToLogin, Path: g.homes.Login, ReturnTo: currentPath}
	}

	r := s.Role.Effective()
	if !g.allowed.Has(r) {
		return Decision{Kind: RedirectToFallback, Path: g.fallbackFor(r)}
	}
	for _, p := range g.predicates {
		if target, deny := p(s); deny {
			return Decision{Kind: RedirectToFallback, Path: target}
		}
	}
	return Decision{Kind: Allow}
}

func (g Guard) fallbackFor(r role.Role) string {
	if g.roleHome {
		return g.homes.For(r)
	}
	return g.fallback
}

// Guest decides for pages that only make sense signed out (login,
// registration): a signed-in subject is sent to its resolved destination.
func (r Resolver) Guest(s Subject, returnTo string) Decision {
	if s.Loading {
		return Decision{Kind: Loading}
	}
	if s.Authenticated && s.HasUser {
		return Decision{Kind: RedirectToFallback, Path: r.Resolve(s.Role, returnTo)}
	}
	return Decision{Kind: Allow}
}
