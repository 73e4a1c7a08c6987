package auth

import (
	"net/http"

	"github.com/gorilla/sessions"

	"mempool-backend/config"
)

const usernameKey = "username"

// Sessions binds request contexts to usernames through a signed cookie.
type Sessions struct {
	store *sessions.CookieStore
	name  string
}

// NewSessions creates a cookie-backed session manager keyed from config.
func NewSessions(cfg config.AuthConfig) *Sessions {
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
	}
	return &Sessions{store: store, name: cfg.SessionName}
}

// Establish binds the session to username.
func (s *Sessions) Establish(w http.ResponseWriter, r *http.Request, username string) error {
	session, _ := s.store.Get(r, s.name)
	session.Values[usernameKey] = username
	return session.Save(r, w)
}

// Clear drops the session unconditionally.
func (s *Sessions) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, s.name)
	delete(session.Values, usernameKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// Username returns the logged-in username, or false when there is no session.
func (s *Sessions) Username(r *http.Request) (string, bool) {
	session, err := s.store.Get(r, s.name)
	if err != nil {
		return "", false
	}
	username, ok := session.Values[usernameKey].(string)
	if !ok || username == "" {
		return "", false
	}
	return username, true
}
