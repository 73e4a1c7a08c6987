// Package auth implements the minimal username/password layer gating the
// secondary dashboard view. Credentials live in process memory only.
package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrValidation marks missing or mismatched registration fields.
	ErrValidation = errors.New("invalid registration fields")
	// ErrConflict marks a duplicate username.
	ErrConflict = errors.New("username already exists")
	// ErrUnauthorized marks bad credentials or a missing session.
	ErrUnauthorized = errors.New("unauthorized")
)

// Credentials maps usernames to bcrypt hashes. Single writer per username,
// last write wins; registration races are out of scope.
type Credentials struct {
	mu    sync.RWMutex
	users map[string][]byte
}

// NewCredentials creates an empty credential store.
func NewCredentials() *Credentials {
	return &Credentials{users: make(map[string][]byte)}
}

// Register validates the fields, rejects duplicates and stores a salted hash.
// The plaintext password is never retained.
func (c *Credentials) Register(username, password, confirm string) error {
	if username == "" || password == "" || password != confirm {
		return ErrValidation
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.users[username]; exists {
		return ErrConflict
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.users[username] = hash
	return nil
}

// Verify checks a username/password pair against the stored hash using
// bcrypt's constant-time compare.
func (c *Credentials) Verify(username, password string) error {
	c.mu.RLock()
	hash, exists := c.users[username]
	c.mu.RUnlock()

	if !exists {
		return ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrUnauthorized
	}
	return nil
}

// Count returns the number of registered users.
func (c *Credentials) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.users)
}
