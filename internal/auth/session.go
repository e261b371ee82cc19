// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// DefaultIdleTimeout is the default inactivity window before a session
// token stops being accepted.
const DefaultIdleTimeout = 30 * time.Minute

// ErrSessionExpired is returned when a token is unknown or its idle
// window has lapsed. The two cases are indistinguishable on purpose.
var ErrSessionExpired = errors.New("session expired - re-authentication required")

type session struct {
	username string
	lastSeen time.Time
}

// SessionManager mints and validates opaque session tokens with idle
// expiry. Safe for concurrent use.
type SessionManager struct {
	mu          sync.Mutex
	sessions    map[string]*session
	idleTimeout time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewSessionManager creates a manager with the given idle timeout.
// A non-positive timeout falls back to DefaultIdleTimeout.
func NewSessionManager(idleTimeout time.Duration) *SessionManager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &SessionManager{
		sessions:    make(map[string]*session),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Create mints a fresh opaque token for the given user.
func (m *SessionManager) Create(username string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = &session{
		username: username,
		lastSeen: m.now(),
	}
	return token, nil
}

// Validate checks a token and, on success, refreshes its idle clock.
// Returns the session's username.
func (m *SessionManager) Validate(token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[token]
	if !ok {
		return "", ErrSessionExpired
	}

	if m.now().Sub(sess.lastSeen) > m.idleTimeout {
		delete(m.sessions, token)
		return "", ErrSessionExpired
	}

	sess.lastSeen = m.now()
	return sess.username, nil
}

// Revoke drops a token. Revoking an unknown token is a no-op.
func (m *SessionManager) Revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// ActiveCount returns the number of tokens that have not idled out.
func (m *SessionManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, sess := range m.sessions {
		if m.now().Sub(sess.lastSeen) <= m.idleTimeout {
			count++
		}
	}
	return count
}
