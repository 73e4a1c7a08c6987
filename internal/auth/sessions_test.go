package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mempool-backend/config"
)

func testSessions() *Sessions {
	return NewSessions(config.AuthConfig{
		SessionKey:    "test-session-key",
		SessionName:   "test_session",
		SessionMaxAge: 3600,
	})
}

// carryCookies copies Set-Cookie headers from a response into a new request,
// the way a browser would.
func carryCookies(t *testing.T, from *httptest.ResponseRecorder, to *http.Request) {
	t.Helper()
	for _, cookie := range from.Result().Cookies() {
		to.AddCookie(cookie)
	}
}

func TestEstablish_ThenUsername(t *testing.T) {
	s := testSessions()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	require.NoError(t, s.Establish(w, r, "alice"))

	next := httptest.NewRequest(http.MethodGet, "/session", nil)
	carryCookies(t, w, next)

	username, ok := s.Username(next)
	assert.True(t, ok)
	assert.Equal(t, "alice", username)
}

func TestUsername_NoSession(t *testing.T) {
	s := testSessions()
	r := httptest.NewRequest(http.MethodGet, "/session", nil)

	_, ok := s.Username(r)
	assert.False(t, ok)
}

func TestClear_DropsSession(t *testing.T) {
	s := testSessions()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	require.NoError(t, s.Establish(w, r, "alice"))

	logout := httptest.NewRequest(http.MethodPost, "/logout", nil)
	carryCookies(t, w, logout)
	w2 := httptest.NewRecorder()
	require.NoError(t, s.Clear(w2, logout))

	after := httptest.NewRequest(http.MethodGet, "/session", nil)
	carryCookies(t, w2, after)

	_, ok := s.Username(after)
	assert.False(t, ok)
}
