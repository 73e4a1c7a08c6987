package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Success(t *testing.T) {
	c := NewCredentials()
	require.NoError(t, c.Register("alice", "pw1", "pw1"))
	assert.Equal(t, 1, c.Count())
}

func TestRegister_MissingFields(t *testing.T) {
	c := NewCredentials()
	assert.ErrorIs(t, c.Register("", "pw", "pw"), ErrValidation)
	assert.ErrorIs(t, c.Register("alice", "", ""), ErrValidation)
}

func TestRegister_PasswordMismatch(t *testing.T) {
	c := NewCredentials()
	assert.ErrorIs(t, c.Register("alice", "pw1", "pw2"), ErrValidation)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	c := NewCredentials()
	require.NoError(t, c.Register("alice", "pw1", "pw1"))
	assert.ErrorIs(t, c.Register("alice", "other", "other"), ErrConflict)
}

func TestVerify_CorrectPassword(t *testing.T) {
	c := NewCredentials()
	require.NoError(t, c.Register("alice", "pw1", "pw1"))
	assert.NoError(t, c.Verify("alice", "pw1"))
}

func TestVerify_WrongPassword(t *testing.T) {
	c := NewCredentials()
	require.NoError(t, c.Register("alice", "pw1", "pw1"))
	assert.ErrorIs(t, c.Verify("alice", "wrong"), ErrUnauthorized)
}

func TestVerify_UnknownUser(t *testing.T) {
	c := NewCredentials()
	assert.ErrorIs(t, c.Verify("bob", "pw"), ErrUnauthorized)
}
