// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGate_CheckValidCredentials(t *testing.T) {
	gate := NewGate(Credentials{Username: "hr", Password: "secret"})

	if err := gate.Check("hr", "secret"); err != nil {
		t.Errorf("Valid credentials rejected: %v", err)
	}
}

func TestGate_CheckInvalidCredentials(t *testing.T) {
	gate := NewGate(Credentials{Username: "hr", Password: "secret"})

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "hr", "wrong"},
		{"wrong username", "admin", "secret"},
		{"both wrong", "admin", "wrong"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := gate.Check(tc.username, tc.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestGate_RetryAfterFailure(t *testing.T) {
	// No lockout: a failed attempt must not block a following valid one.
	gate := NewGate(Credentials{Username: "hr", Password: "secret"})

	for i := 0; i < 5; i++ {
		gate.Check("hr", "wrong")
	}
	if err := gate.Check("hr", "secret"); err != nil {
		t.Errorf("Valid login rejected after failures: %v", err)
	}
}

func TestGate_Unconfigured(t *testing.T) {
	gate := NewGate(Credentials{})

	if gate.Configured() {
		t.Error("Empty credentials reported as configured")
	}
	if err := gate.Check("anyone", "anything"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestSessionManager_CreateAndValidate(t *testing.T) {
	mgr := NewSessionManager(time.Minute)

	token, err := mgr.Create("hr")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("Token length = %d, want 64 hex chars", len(token))
	}

	username, err := mgr.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if username != "hr" {
		t.Errorf("Username = %q, want %q", username, "hr")
	}
}

func TestSessionManager_TokensAreUnique(t *testing.T) {
	mgr := NewSessionManager(time.Minute)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		token, err := mgr.Create("hr")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if seen[token] {
			t.Fatal("Duplicate token minted")
		}
		seen[token] = true
	}
}

func TestSessionManager_UnknownToken(t *testing.T) {
	mgr := NewSessionManager(time.Minute)

	if _, err := mgr.Validate("deadbeef"); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired, got %v", err)
	}
}

func TestSessionManager_IdleExpiry(t *testing.T) {
	mgr := NewSessionManager(10 * time.Minute)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return current }

	token, _ := mgr.Create("hr")

	// Activity within the window refreshes the clock.
	current = current.Add(9 * time.Minute)
	if _, err := mgr.Validate(token); err != nil {
		t.Fatalf("Token expired early: %v", err)
	}

	// Another 9 minutes is still within the refreshed window.
	current = current.Add(9 * time.Minute)
	if _, err := mgr.Validate(token); err != nil {
		t.Fatalf("Refreshed token expired: %v", err)
	}

	// Idle past the window.
	current = current.Add(11 * time.Minute)
	if _, err := mgr.Validate(token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired, got %v", err)
	}

	// Expired tokens are dropped for good.
	current = current.Add(-11 * time.Minute)
	if _, err := mgr.Validate(token); !errors.Is(err, ErrSessionExpired) {
		t.Error("Expired token resurrected")
	}
}

func TestSessionManager_Revoke(t *testing.T) {
	mgr := NewSessionManager(time.Minute)

	token, _ := mgr.Create("hr")
	mgr.Revoke(token)

	if _, err := mgr.Validate(token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Revoked token still valid: %v", err)
	}

	// Revoking twice is fine.
	mgr.Revoke(token)
}

func TestSessionManager_ActiveCount(t *testing.T) {
	mgr := NewSessionManager(time.Minute)

	mgr.Create("a")
	token, _ := mgr.Create("b")
	if got := mgr.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}

	mgr.Revoke(token)
	if got := mgr.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount = %d, want 1", got)
	}
}
