// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth implements the login gate in front of the chat surfaces.
//
// Credentials are a single username/password pair supplied through the
// environment; validation is plain equality with constant-time
// comparison. There is no lockout and no retry limit: a failed attempt
// is reported inline and the caller may try again immediately.
//
// For the HTTP shell, a successful login mints an opaque random session
// token. Tokens expire after a configurable idle period; any
// authenticated request refreshes the idle clock.
package auth
