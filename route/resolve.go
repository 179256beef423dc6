package route

import (
	"strings"

	"github.com/MrEthical07/portalAuth/role"
)

const labPrefix = "/lab"

// Resolver maps a role and an optional return-to location to the
// post-authentication destination.
type Resolver struct {
	Homes Homes
}

// NewResolver returns a Resolver over h.
func NewResolver(h Homes) Resolver {
	return Resolver{Homes: h}
}

// Resolve applies the redirect table, first match wins:
//
//  1. lab, lab_manager: returnTo under /lab, else the lab home
//  2. accountant: the accountant home, returnTo ignored
//  3. returnTo when present
//  4. the role's home (admin, manager, delivery, staff, else user)
//
// A returnTo that is not a local absolute path, or that points back at the
// login page, counts as absent.
func (r Resolver) Resolve(rl role.Role, returnTo string) string {
	rt := r.returnTo(returnTo)

	switch {
	case rl.IsLab():
		if strings.HasPrefix(rt, labPrefix) {
			return rt
		}
		return r.Homes.Lab
	case rl == role.Accountant:
		return r.Homes.Accountant
	case rt != "":
		return rt
	}
	return r.Homes.For(rl)
}

func (r Resolver) returnTo(raw string) string {
	rt := strings.TrimSpace(raw)
	if rt == "" || !isLocalPath(rt) {
		return ""
	}
	if r.Homes.Login != "" && pathOnly(rt) == r.Homes.Login {
		return ""
	}
	return rt
}

func pathOnly(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}

var defaultResolver = NewResolver(DefaultHomes())

// Resolve resolves against [DefaultHomes].
func Resolve(rl role.Role, returnTo string) string {
	return defaultResolver.Resolve(rl, returnTo)
}
