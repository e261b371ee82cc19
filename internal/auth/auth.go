// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/subtle"
	"errors"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidCredentials is returned for a wrong username or password.
	// The message is deliberately identical for both cases.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrNotConfigured is returned when no credentials are configured.
	ErrNotConfigured = errors.New("login credentials are not configured")
)

// =============================================================================
// CREDENTIAL GATE
// =============================================================================

// Credentials is the single expected username/password pair.
type Credentials struct {
	Username string
	Password string
}

// Gate validates login attempts against configured credentials.
type Gate struct {
	expected Credentials
}

// NewGate creates a gate for the given credentials.
func NewGate(expected Credentials) *Gate {
	return &Gate{expected: expected}
}

// Configured reports whether a credential pair is present. A gate with
// no credentials rejects every attempt with ErrNotConfigured rather
// than silently allowing access.
func (g *Gate) Configured() bool {
	return g.expected.Username != "" && g.expected.Password != ""
}

// Check validates one login attempt. Both fields are compared in
// constant time to avoid leaking which one was wrong.
func (g *Gate) Check(username, password string) error {
	if !g.Configured() {
		return ErrNotConfigured
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.expected.Username))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.expected.Password))
	if userOK&passOK != 1 {
		return ErrInvalidCredentials
	}
	return nil
}
