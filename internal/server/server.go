// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/shortlister/internal/assistant"
	"github.com/jeranaias/shortlister/internal/auth"
	"github.com/jeranaias/shortlister/internal/chat"
	"github.com/jeranaias/shortlister/internal/export"
	"github.com/jeranaias/shortlister/internal/storage"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default port for the HTTP server.
	DefaultPort = 8790

	// MaxRequestBodySize is the maximum size for a request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxMessageLength is the maximum length for one user message.
	MaxMessageLength = 100000

	// Version is the server version.
	Version = "0.2.0"
)

// ============================================================================
// SERVER
// ============================================================================

// Server is the HTTP API shell over the conversation manager. It is
// deliberately thin: every route delegates to the manager, the export
// package, or the auth gate.
type Server struct {
	port   int
	router *http.ServeMux
	server *http.Server

	manager  *chat.Manager
	gate     *auth.Gate
	sessions *auth.SessionManager

	exportDir string
}

// NewServer creates a new Server. If port is 0, DefaultPort is used.
func NewServer(port int, manager *chat.Manager, gate *auth.Gate, sessions *auth.SessionManager) *Server {
	if port == 0 {
		port = DefaultPort
	}

	s := &Server{
		port:      port,
		router:    http.NewServeMux(),
		manager:   manager,
		gate:      gate,
		sessions:  sessions,
		exportDir: ".",
	}

	s.setupRoutes()
	return s
}

// WithExportDir sets the directory export artifacts are written to.
func (s *Server) WithExportDir(dir string) *Server {
	if dir != "" {
		s.exportDir = dir
	}
	return s
}

// Port returns the server port.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the fully wired handler including the middleware
// chain, for mounting in tests.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
		RateLimitMiddleware(DefaultRateLimiter()),
		SessionAuthMiddleware(s.sessions),
	)(s.router)
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Auth
	s.router.HandleFunc("POST /login", s.handleLogin)
	s.router.HandleFunc("POST /logout", s.handleLogout)

	// Conversations
	s.router.HandleFunc("GET /conversations", s.handleListConversations)
	s.router.HandleFunc("POST /conversations", s.handleCreateConversation)
	s.router.HandleFunc("GET /conversations/{id}", s.handleGetConversation)
	s.router.HandleFunc("PATCH /conversations/{id}", s.handleUpdateConversation)
	s.router.HandleFunc("DELETE /conversations/{id}", s.handleDeleteConversation)
	s.router.HandleFunc("POST /conversations/{id}/messages", s.handleSendMessage)
	s.router.HandleFunc("POST /conversations/{id}/export", s.handleExportConversation)

	// Folders
	s.router.HandleFunc("GET /folders", s.handleListFolders)
	s.router.HandleFunc("DELETE /folders/{name}", s.handleDeleteFolder)
	s.router.HandleFunc("POST /folders/{name}/export", s.handleExportFolder)

	// Search and health
	s.router.HandleFunc("GET /search", s.handleSearch)
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// ============================================================================
// AUTH HANDLERS
// ============================================================================

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// handleLogin handles POST /login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if err := s.gate.Check(req.Username, req.Password); err != nil {
		log.Printf("LOGIN_DENIED | ip=%s user=%s", GetClientIP(r), req.Username)
		s.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	token, err := s.sessions.Create(req.Username)
	if err != nil {
		log.Printf("LOGIN_ERROR | error=%v", err)
		s.writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	log.Printf("LOGIN_OK | ip=%s user=%s", GetClientIP(r), req.Username)
	s.writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

// handleLogout handles POST /logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := extractSessionToken(r); token != "" {
		s.sessions.Revoke(token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ============================================================================
// CONVERSATION HANDLERS
// ============================================================================

type createConversationRequest struct {
	Folder string `json:"folder"`
}

type updateConversationRequest struct {
	Title  string `json:"title"`
	Folder string `json:"folder"`
}

// handleListConversations handles GET /conversations.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"conversations": s.manager.List(),
	})
}

// handleCreateConversation handles POST /conversations.
func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	conv, err := s.manager.CreateConversation(r.Context(), nil, req.Folder)
	if err != nil {
		log.Printf("CREATE_FAILED | error=%v", err)
		s.writeError(w, http.StatusBadGateway, "could not create conversation")
		return
	}

	s.writeJSON(w, http.StatusCreated, conv)
}

// handleGetConversation handles GET /conversations/{id}.
func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.manager.Get(r.PathValue("id"))
	if err != nil {
		s.writeNotFound(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conv)
}

// handleUpdateConversation handles PATCH /conversations/{id}. Blank
// fields are skipped, matching the manager's no-op semantics.
func (s *Server) handleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	var req updateConversationRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	id := r.PathValue("id")
	if err := s.manager.Rename(id, req.Title); err != nil {
		s.writeNotFound(w, err)
		return
	}
	if err := s.manager.Move(id, req.Folder); err != nil {
		s.writeNotFound(w, err)
		return
	}

	conv, err := s.manager.Get(id)
	if err != nil {
		s.writeNotFound(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conv)
}

// handleDeleteConversation handles DELETE /conversations/{id}.
func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Delete(nil, r.PathValue("id")); err != nil {
		s.writeNotFound(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ============================================================================
// MESSAGE HANDLER
// ============================================================================

type sendMessageRequest struct {
	Content string `json:"content"`
}

type sendMessageResponse struct {
	Reply string `json:"reply"`
}

// handleSendMessage handles POST /conversations/{id}/messages. This is
// the full assistant round trip: the handler blocks until the reply is
// fetched or the run fails.
//
// On a remote failure the user message stays persisted; the error is
// returned inline so the client can display it next to the transcript.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		s.writeError(w, http.StatusBadRequest, "message content must not be empty")
		return
	}
	if len(content) > MaxMessageLength {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("message exceeds maximum length of %d", MaxMessageLength))
		return
	}

	reply, err := s.manager.Send(r.Context(), r.PathValue("id"), content)
	if err != nil {
		if errors.Is(err, storage.ErrConversationNotFound) {
			s.writeNotFound(w, err)
			return
		}

		log.Printf("SEND_FAILED | conversation=%s error=%v", r.PathValue("id"), err)
		switch {
		case errors.Is(err, assistant.ErrRunTimeout):
			s.writeError(w, http.StatusGatewayTimeout, "assistant did not respond in time")
		case errors.Is(err, assistant.ErrRunFailed), errors.Is(err, assistant.ErrNoReply):
			s.writeError(w, http.StatusBadGateway, "assistant could not process the message")
		default:
			s.writeError(w, http.StatusBadGateway, "sending the message failed; it remains in the transcript")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, sendMessageResponse{Reply: reply})
}

// ============================================================================
// FOLDER HANDLERS
// ============================================================================

// handleListFolders handles GET /folders.
func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"folders": s.manager.ListFolders(),
	})
}

// handleDeleteFolder handles DELETE /folders/{name}. A folder with
// members is rejected with 409.
func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.manager.DeleteFolder(name); err != nil {
		if errors.Is(err, chat.ErrFolderNotEmpty) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, "could not delete folder")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ============================================================================
// SEARCH HANDLER
// ============================================================================

// handleSearch handles GET /search?q=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	s.writeJSON(w, http.StatusOK, map[string]any{
		"query":         query,
		"conversations": s.manager.Search(query),
	})
}

// ============================================================================
// EXPORT HANDLERS
// ============================================================================

type exportRequest struct {
	Format string `json:"format"`
}

type exportResponse struct {
	Path string `json:"path"`
}

// handleExportConversation handles POST /conversations/{id}/export.
// The artifact is written server-side; the response carries its path.
func (s *Server) handleExportConversation(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	opts := &export.Options{
		OutputDir:         s.exportDir,
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
	exporter, err := export.ForFormat(req.Format, opts)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := s.manager.Get(r.PathValue("id"))
	if err != nil {
		s.writeNotFound(w, err)
		return
	}

	path, err := export.ExportToFile(conv, exporter, opts)
	if err != nil {
		log.Printf("EXPORT_FAILED | conversation=%s error=%v", conv.ID, err)
		s.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	log.Printf("EXPORT_OK | conversation=%s path=%s", conv.ID, path)
	s.writeJSON(w, http.StatusOK, exportResponse{Path: path})
}

// handleExportFolder handles POST /folders/{name}/export.
func (s *Server) handleExportFolder(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	opts := &export.Options{
		OutputDir:         s.exportDir,
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
	exporter, err := export.ForFormat(req.Format, opts)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := r.PathValue("name")
	members := s.manager.InFolder(name)
	if len(members) == 0 {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("folder %q has no conversations", name))
		return
	}

	path, err := export.ExportFolderToFile(name, members, exporter, opts)
	if err != nil {
		log.Printf("EXPORT_FAILED | folder=%s error=%v", name, err)
		s.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	log.Printf("EXPORT_OK | folder=%s path=%s", name, path)
	s.writeJSON(w, http.StatusOK, exportResponse{Path: path})
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Conversations int    `json:"conversations"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       Version,
		Conversations: len(s.manager.List()),
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server. Blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s", addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// decodeBody parses a JSON request body with the size cap applied.
// Writes the error response itself and returns false on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize))
			return false
		}
		log.Printf("Invalid request body: %v", err)
		s.writeError(w, http.StatusBadRequest, "invalid request format")
		return false
	}
	return true
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    status,
		},
	})
}

// writeNotFound maps manager lookup failures onto 404.
func (s *Server) writeNotFound(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrConversationNotFound) {
		s.writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	s.writeError(w, http.StatusInternalServerError, "internal error")
}
