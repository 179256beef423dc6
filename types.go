package portalAuth

import (
	"context"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/role"
	"github.com/MrEthical07/portalAuth/route"
	"github.com/MrEthical07/portalAuth/session"
)

// Session is a snapshot of the authentication state. Values returned by the
// Manager are copies; mutating them has no effect on the Manager.
type Session struct {
	Credential           string
	User                 *session.Profile
	IsAuthenticated      bool
	IsLoading            bool
	RegistrationComplete bool
}

// Role is the signed-in role, or [role.Unknown] without a user.
func (s Session) Role() role.Role {
	if s.User == nil {
		return role.Unknown
	}
	return s.User.RoleKind()
}

// Subject is the view of s a route guard decides on.
func (s Session) Subject() route.Subject {
	return route.Subject{
		Loading:       s.IsLoading,
		Authenticated: s.IsAuthenticated,
		HasUser:       s.User != nil,
		Role:          s.Role(),
	}
}

func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// RegisterInput carries the self-registration form.
type RegisterInput struct {
	Name        string
	Email       string
	PhoneNumber string
	Password    string
}

// LoginResult is returned by every successful login-family operation.
type LoginResult struct {
	Success bool
	User    session.Profile
}

// Gateway is the remote authority. [*gateway.Client] implements it.
type Gateway interface {
	Login(ctx context.Context, email, password string) (gateway.AuthResponse, error)
	StaffLogin(ctx context.Context, staffID string) (gateway.AuthResponse, error)
	Register(ctx context.Context, req gateway.RegisterRequest) (gateway.AuthResponse, error)
	GoogleSignIn(ctx context.Context, oauthCredential string) (gateway.AuthResponse, error)
	ValidateToken(ctx context.Context, credential string) (gateway.ValidateResponse, error)
	RegistrationStatus(ctx context.Context, credential string) (gateway.RegistrationStatus, error)
}

var _ Gateway = (*gateway.Client)(nil)
