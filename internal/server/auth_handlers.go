package server

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/gookit/validate"

	"mempool-backend/internal/auth"
)

type registerRequest struct {
	Username        string `json:"username" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type messageResponse struct {
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const maxAuthBodySize = 1 << 16

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAuthBodySize)
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if v := validate.Struct(&req); !v.Validate() {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: v.Errors.One()})
		return
	}

	err := s.creds.Register(req.Username, req.Password, req.ConfirmPassword)
	switch {
	case errors.Is(err, auth.ErrValidation):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username and matching passwords are required"})
	case errors.Is(err, auth.ErrConflict):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username already exists"})
	case err != nil:
		s.log.Error().Err(err).Msg("registration failed")
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "registration failed"})
	default:
		s.log.Info().Str("username", req.Username).Msg("user registered")
		s.writeJSON(w, http.StatusCreated, messageResponse{Message: "registration successful"})
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAuthBodySize)
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}
	if v := validate.Struct(&req); !v.Validate() {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}

	if err := s.creds.Verify(req.Username, req.Password); err != nil {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}

	if err := s.sessions.Establish(w, r, req.Username); err != nil {
		s.log.Error().Err(err).Msg("failed to establish session")
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "login failed"})
		return
	}

	s.log.Info().Str("username", req.Username).Msg("user logged in")
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "login successful", Username: req.Username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	// Clearing is unconditional; logging out without a session is fine.
	if err := s.sessions.Clear(w, r); err != nil {
		s.log.Error().Err(err).Msg("failed to clear session")
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	username, ok := s.sessions.Username(r)
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not logged in"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"username": username})
}
