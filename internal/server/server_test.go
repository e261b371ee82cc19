// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/shortlister/internal/auth"
	"github.com/jeranaias/shortlister/internal/chat"
	"github.com/jeranaias/shortlister/internal/storage"
	"github.com/jeranaias/shortlister/internal/thread"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type stubCreator struct {
	calls int
}

func (c *stubCreator) CreateThread(ctx context.Context) (string, error) {
	c.calls++
	return fmt.Sprintf("thread_%d", c.calls), nil
}

type stubResponder struct {
	reply string
	err   error
}

func (r *stubResponder) SendAndAwait(ctx context.Context, threadID, userText string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.reply, nil
}

func newTestServer(t *testing.T, responder chat.Responder) *Server {
	t.Helper()

	store, err := storage.NewFileStoreWithPath(filepath.Join(t.TempDir(), "conversations.json"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	manager, err := chat.NewManager(store, thread.NewRegistry(&stubCreator{}), responder)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	gate := auth.NewGate(auth.Credentials{Username: "hr", Password: "secret"})
	sessions := auth.NewSessionManager(time.Minute)

	return NewServer(0, manager, gate, sessions).WithExportDir(t.TempDir())
}

// doRequest runs one request through the full middleware chain.
func doRequest(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server) string {
	t.Helper()

	rec := doRequest(t, s, http.MethodPost, "/login", "", loginRequest{Username: "hr", Password: "secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Login failed: %d %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Parse login response: %v", err)
	}
	return resp.Token
}

func createConversation(t *testing.T, s *Server, token, folder string) string {
	t.Helper()

	rec := doRequest(t, s, http.MethodPost, "/conversations", token, createConversationRequest{Folder: folder})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create conversation failed: %d %s", rec.Code, rec.Body.String())
	}

	var conv storage.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("Parse conversation: %v", err)
	}
	return conv.ID
}

// =============================================================================
// AUTH TESTS
// =============================================================================

func TestHealth_NoSessionRequired(t *testing.T) {
	s := newTestServer(t, &stubResponder{})

	rec := doRequest(t, s, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Health status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("Unexpected health body: %s", rec.Body.String())
	}
}

func TestLogin_WrongCredentials(t *testing.T) {
	s := newTestServer(t, &stubResponder{})

	rec := doRequest(t, s, http.MethodPost, "/login", "", loginRequest{Username: "hr", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", rec.Code)
	}
}

func TestRoutes_RequireSession(t *testing.T) {
	s := newTestServer(t, &stubResponder{})

	for _, path := range []string{"/conversations", "/folders", "/search"} {
		rec := doRequest(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without session: status = %d, want 401", path, rec.Code)
		}
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	s := newTestServer(t, &stubResponder{})
	token := login(t, s)

	if rec := doRequest(t, s, http.MethodGet, "/conversations", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("Authenticated request failed: %d", rec.Code)
	}

	if rec := doRequest(t, s, http.MethodPost, "/logout", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("Logout failed: %d", rec.Code)
	}

	if rec := doRequest(t, s, http.MethodGet, "/conversations", token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Revoked token still accepted: %d", rec.Code)
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversationLifecycle(t *testing.T) {
	s := newTestServer(t, &stubResponder{})
	token := login(t, s)

	id := createConversation(t, s, token, "Hiring")

	// List shows it.
	rec := doRequest(t, s, http.MethodGet, "/conversations", token, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), id) {
		t.Errorf("List missing new conversation: %d %s", rec.Code, rec.Body.String())
	}

	// Rename and move in one PATCH.
	rec = doRequest(t, s, http.MethodPatch, "/conversations/"+id, token,
		updateConversationRequest{Title: "Screening notes", Folder: "Archive"})
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, "/conversations/"+id, token, nil)
	var conv storage.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("Parse conversation: %v", err)
	}
	if conv.Title != "Screening notes" || conv.Folder != "Archive" {
		t.Errorf("Conversation = %q in %q, want renamed and moved", conv.Title, conv.Folder)
	}

	// Delete and verify it is gone.
	if rec := doRequest(t, s, http.MethodDelete, "/conversations/"+id, token, nil); rec.Code != http.StatusOK {
		t.Fatalf("DELETE failed: %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/conversations/"+id, token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("Deleted conversation still served: %d", rec.Code)
	}
}

func TestGetConversation_Unknown(t *testing.T) {
	s := newTestServer(t, &stubResponder{})
	token := login(t, s)

	rec := doRequest(t, s, http.MethodGet, "/conversations/missing", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rec.Code)
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestSendMessage_FullRoundTrip(t *testing.T) {
	s := newTestServer(t, &stubResponder{reply: "Hi there"})
	token := login(t, s)
	id := createConversation(t, s, token, "")

	rec := doRequest(t, s, http.MethodPost, "/conversations/"+id+"/messages", token,
		sendMessageRequest{Content: "Hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Send failed: %d %s", rec.Code, rec.Body.String())
	}

	var resp sendMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Parse response: %v", err)
	}
	if resp.Reply != "Hi there" {
		t.Errorf("Reply = %q, want %q", resp.Reply, "Hi there")
	}

	// Transcript holds both messages and the title auto-filled.
	rec = doRequest(t, s, http.MethodGet, "/conversations/"+id, token, nil)
	var conv storage.Conversation
	json.Unmarshal(rec.Body.Bytes(), &conv)
	if len(conv.Messages) != 2 {
		t.Fatalf("Messages = %d, want 2", len(conv.Messages))
	}
	if conv.Title != "Hello" {
		t.Errorf("Title = %q, want %q", conv.Title, "Hello")
	}
}

func TestSendMessage_EmptyContent(t *testing.T) {
	s := newTestServer(t, &stubResponder{reply: "hi"})
	token := login(t, s)
	id := createConversation(t, s, token, "")

	rec := doRequest(t, s, http.MethodPost, "/conversations/"+id+"/messages", token,
		sendMessageRequest{Content: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestSendMessage_RemoteFailureInline(t *testing.T) {
	s := newTestServer(t, &stubResponder{err: errors.New("upstream down")})
	token := login(t, s)
	id := createConversation(t, s, token, "")

	rec := doRequest(t, s, http.MethodPost, "/conversations/"+id+"/messages", token,
		sendMessageRequest{Content: "Hello"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Status = %d, want 502", rec.Code)
	}

	// The user message survives the failed round trip.
	rec = doRequest(t, s, http.MethodGet, "/conversations/"+id, token, nil)
	var conv storage.Conversation
	json.Unmarshal(rec.Body.Bytes(), &conv)
	if len(conv.Messages) != 1 || conv.Messages[0].Role != storage.RoleUser {
		t.Errorf("Transcript after failure = %+v, want single user message", conv.Messages)
	}
}

func TestSendMessage_UnknownConversation(t *testing.T) {
	s := newTestServer(t, &stubResponder{reply: "hi"})
	token := login(t, s)

	rec := doRequest(t, s, http.MethodPost, "/conversations/missing/messages", token,
		sendMessageRequest{Content: "Hello"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rec.Code)
	}
}

// =============================================================================
// FOLDER TESTS
// =============================================================================

func TestFolders_ListAndDelete(t *testing.T) {
	s := newTestServer(t, &stubResponder{})
	token := login(t, s)

	id := createConversation(t, s, token, "Hiring")

	rec := doRequest(t, s, http.MethodGet, "/folders", token, nil)
	if !strings.Contains(rec.Body.String(), "Hiring") {
		t.Errorf("Folders missing Hiring: %s", rec.Body.String())
	}

	// Occupied folder cannot be deleted.
	rec = doRequest(t, s, http.MethodDelete, "/folders/Hiring", token, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Status = %d, want 409", rec.Code)
	}

	// Move the member away, then deletion succeeds.
	doRequest(t, s, http.MethodPatch, "/conversations/"+id, token, updateConversationRequest{Folder: "Archive"})
	rec = doRequest(t, s, http.MethodDelete, "/folders/Hiring", token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", rec.Code)
	}
}

// =============================================================================
// SEARCH TESTS
// =============================================================================

func TestSearch(t *testing.T) {
	s := newTestServer(t, &stubResponder{reply: "Candidate A looks stronger"})
	token := login(t, s)

	id := createConversation(t, s, token, "")
	doRequest(t, s, http.MethodPost, "/conversations/"+id+"/messages", token,
		sendMessageRequest{Content: "Compare golang candidates"})
	createConversation(t, s, token, "")

	rec := doRequest(t, s, http.MethodGet, "/search?q=golang", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Search failed: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), id) {
		t.Errorf("Search missing matching conversation: %s", rec.Body.String())
	}
}

// =============================================================================
// EXPORT TESTS
// =============================================================================

func TestExportConversation_Markdown(t *testing.T) {
	s := newTestServer(t, &stubResponder{reply: "Hi there"})
	token := login(t, s)
	id := createConversation(t, s, token, "")
	doRequest(t, s, http.MethodPost, "/conversations/"+id+"/messages", token,
		sendMessageRequest{Content: "Hello"})

	rec := doRequest(t, s, http.MethodPost, "/conversations/"+id+"/export", token,
		exportRequest{Format: "markdown"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Export failed: %d %s", rec.Code, rec.Body.String())
	}

	var resp exportResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	data, err := os.ReadFile(resp.Path)
	if err != nil {
		t.Fatalf("Artifact unreadable: %v", err)
	}
	if !strings.Contains(string(data), "Hello") {
		t.Error("Artifact missing transcript content")
	}
}

func TestExportConversation_UnknownFormat(t *testing.T) {
	s := newTestServer(t, &stubResponder{reply: "hi"})
	token := login(t, s)
	id := createConversation(t, s, token, "")

	rec := doRequest(t, s, http.MethodPost, "/conversations/"+id+"/export", token,
		exportRequest{Format: "docx"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestExportFolder_PDF(t *testing.T) {
	s := newTestServer(t, &stubResponder{reply: "Hi there"})
	token := login(t, s)
	id := createConversation(t, s, token, "Hiring")
	doRequest(t, s, http.MethodPost, "/conversations/"+id+"/messages", token,
		sendMessageRequest{Content: "Hello"})

	rec := doRequest(t, s, http.MethodPost, "/folders/Hiring/export", token,
		exportRequest{Format: "pdf"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Folder export failed: %d %s", rec.Code, rec.Body.String())
	}

	var resp exportResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	data, err := os.ReadFile(resp.Path)
	if err != nil {
		t.Fatalf("Artifact unreadable: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("Folder export artifact is not a PDF")
	}
}

func TestExportFolder_Empty(t *testing.T) {
	s := newTestServer(t, &stubResponder{})
	token := login(t, s)

	rec := doRequest(t, s, http.MethodPost, "/folders/Nothing/export", token,
		exportRequest{Format: "markdown"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rec.Code)
	}
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestRateLimiter_Blocks(t *testing.T) {
	limiter := NewRateLimiter(1, 2)

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatal("Burst requests rejected")
	}
	if limiter.Allow("10.0.0.1") {
		t.Error("Request over burst allowed")
	}

	// Other IPs are unaffected.
	if !limiter.Allow("10.0.0.2") {
		t.Error("Separate IP throttled")
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, &stubResponder{})

	rec := doRequest(t, s, http.MethodGet, "/health", "", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := RecoveryMiddleware()(panicking)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", rec.Code)
	}
}
