package gateway

import "github.com/MrEthical07/portalAuth/session"

const (
	PathLogin              = "/api/auth/login"
	PathStaffLogin         = "/api/auth/staff-login"
	PathRegister           = "/api/auth/register"
	PathGoogleSignIn       = "/api/auth/google-signin"
	PathValidateToken      = "/api/auth/validate-token"
	PathRegistrationStatus = "/api/auth/registration-status"
)

// AuthResponse is the body returned by every credential-issuing endpoint.
type AuthResponse struct {
	Token string           `json:"token"`
	User  *session.Profile `json:"user"`
}

type ValidateResponse struct {
	Valid   bool             `json:"valid"`
	User    *session.Profile `json:"user"`
	Message string           `json:"message,omitempty"`
}

type RegistrationStatus struct {
	IsComplete bool `json:"isComplete"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type staffLoginRequest struct {
	StaffID string `json:"staffId"`
}

// RegisterRequest carries the self-registration form fields.
type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

type googleSignInRequest struct {
	Token string `json:"token"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
