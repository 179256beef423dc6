package middleware

import (
	"context"
	"net/http"
	"net/url"

	portalAuth "github.com/MrEthical07/portalAuth"
	"github.com/MrEthical07/portalAuth/route"
)

// ReturnToParam is the query parameter carrying the location to resume
// after login.
const ReturnToParam = "from"

// loadingRetryAfter is the Retry-After hint, in seconds, sent while the
// session is still being validated.
const loadingRetryAfter = "1"

// Snapshotter supplies the session a request is decided against.
// [*portalAuth.Manager] implements it.
type Snapshotter interface {
	Snapshot() portalAuth.Session
}

type sessionContextKey struct{}

// SessionFromContext returns the session an allowed request was decided on.
func SessionFromContext(ctx context.Context) (portalAuth.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(portalAuth.Session)
	return s, ok
}

// Protect enforces g on every request. Allowed requests carry the session
// in their context; the rest get a loading placeholder or a 303 redirect.
func Protect(src Snapshotter, g route.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if src == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			s := src.Snapshot()
			d := g.Decide(s.Subject(), r.URL.RequestURI())
			if d.Kind == route.Allow {
				ctx := context.WithValue(r.Context(), sessionContextKey{}, s)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			Apply(w, r, d)
		})
	}
}

// Guest serves login and registration pages only to signed-out visitors.
// A signed-in visitor is sent to the destination resolved for their role
// and the request's return-to parameter.
func Guest(src Snapshotter, resolver route.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if src == nil {
				next.ServeHTTP(w, r)
				return
			}

			d := resolver.Guest(src.Snapshot().Subject(), ReturnTo(r))
			if d.Kind == route.Allow {
				next.ServeHTTP(w, r)
				return
			}
			Apply(w, r, d)
		})
	}
}

// Apply performs the navigation a non-allow decision asks for.
func Apply(w http.ResponseWriter, r *http.Request, d route.Decision) {
	switch d.Kind {
	case route.Loading:
		w.Header().Set("Retry-After", loadingRetryAfter)
		w.Header().Set("Cache-Control", "no-store")
		http.Error(w, "session loading", http.StatusServiceUnavailable)
	case route.RedirectToLogin:
		http.Redirect(w, r, LoginURL(d.Path, d.ReturnTo), http.StatusSeeOther)
	case route.RedirectToFallback:
		http.Redirect(w, r, d.Path, http.StatusSeeOther)
	default:
		http.Error(w, "forbidden", http.StatusForbidden)
	}
}

// LoginURL builds the login location preserving returnTo.
func LoginURL(loginPath, returnTo string) string {
	if returnTo == "" {
		return loginPath
	}
	return loginPath + "?" + url.Values{ReturnToParam: {returnTo}}.Encode()
}

// ReturnTo extracts the return-to location from a request.
func ReturnTo(r *http.Request) string {
	return r.URL.Query().Get(ReturnToParam)
}
