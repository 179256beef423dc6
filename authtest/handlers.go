package authtest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/session"
)

type accountKey struct{}

func withAccount(ctx context.Context, acc *account) context.Context {
	return context.WithValue(ctx, accountKey{}, acc)
}

func accountFrom(ctx context.Context) *account {
	acc, _ := ctx.Value(accountKey{}).(*account)
	return acc
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	acc := s.find(func(a *account) bool {
		return strings.EqualFold(a.profile.Email, strings.TrimSpace(req.Email)) || a.phone == strings.TrimSpace(req.Email)
	})
	if acc == nil || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.respondWithToken(w, gateway.PathLogin, acc)
}

func (s *Server) handleStaffLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StaffID string `json:"staffId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.StaffID) == "" {
		writeError(w, http.StatusBadRequest, "Staff ID is required")
		return
	}

	acc := s.find(func(a *account) bool {
		return a.profile.StaffID != "" && strings.EqualFold(a.profile.StaffID, strings.TrimSpace(req.StaffID))
	})
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "Invalid Staff ID")
		return
	}
	s.respondWithToken(w, gateway.PathStaffLogin, acc)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req gateway.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Please provide all required fields")
		return
	}
	if s.find(func(a *account) bool { return strings.EqualFold(a.profile.Email, req.Email) }) != nil {
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	s.mu.Lock()
	s.nextID++
	acc := &account{
		profile: session.Profile{
			ID:    "u" + strconv.Itoa(s.nextID),
			Name:  strings.TrimSpace(req.Name),
			Email: strings.TrimSpace(req.Email),
			Role:  "user",
		},
		passwordHash: hash,
		phone:        strings.TrimSpace(req.PhoneNumber),
	}
	s.accounts[acc.profile.ID] = acc
	s.mu.Unlock()

	s.respondWithToken(w, gateway.PathRegister, acc)
}

func (s *Server) handleGoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "Google token is required")
		return
	}

	acc := s.find(func(a *account) bool { return a.google != "" && a.google == req.Token })
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "Google authentication failed")
		return
	}
	s.respondWithToken(w, gateway.PathGoogleSignIn, acc)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())
	s.mu.Lock()
	profile := acc.profile
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, gateway.ValidateResponse{Valid: true, User: &profile})
}

func (s *Server) handleRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())
	s.mu.Lock()
	complete := acc.profile.Name != "" && acc.profile.Email != "" && acc.phone != ""
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, gateway.RegistrationStatus{IsComplete: complete})
}

func (s *Server) find(match func(*account) bool) *account {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if match(acc) {
			return acc
		}
	}
	return nil
}
