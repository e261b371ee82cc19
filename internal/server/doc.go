// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the HTTP API shell over the conversation manager.
//
// This package implements a REST API exposing the chat operations:
// login, conversation and folder management, the assistant round trip,
// search, and export. Handlers stay thin; all semantics live in the
// chat manager.
//
// # Endpoints
//
//   - POST   /login                        - Start a session
//   - POST   /logout                       - Revoke the session
//   - GET    /conversations                - List conversation summaries
//   - POST   /conversations                - Create a conversation
//   - GET    /conversations/{id}           - Fetch a full transcript
//   - PATCH  /conversations/{id}           - Rename and/or move
//   - DELETE /conversations/{id}           - Delete a conversation
//   - POST   /conversations/{id}/messages  - Send a message (blocks for reply)
//   - POST   /conversations/{id}/export    - Export one conversation
//   - GET    /folders                      - List folders
//   - DELETE /folders/{name}               - Delete an empty folder
//   - POST   /folders/{name}/export        - Export a folder
//   - GET    /search?q=                    - Search titles and content
//   - GET    /health                       - Health check (no session required)
//
// # Security Features
//
//   - Session token authentication with idle expiry (/login, /health exempt)
//   - Constant-time credential comparison at login
//   - Per-IP rate limiting
//   - Security headers (X-Content-Type-Options, X-Frame-Options, etc.)
//   - Request body size caps
//   - Panic recovery with stack trace logging
//
// # Key Types
//
//   - Server: HTTP server with router and middleware chain
//   - RateLimiter: per-IP token bucket on golang.org/x/time/rate
package server
