// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - HTTP API server command for the shortlister CLI.
//
// Command: serve
// Short:   Start the HTTP API server
//
// Examples:
//   shortlister serve                 Start on the configured port
//   shortlister serve --port 9000     Override the listen port
//
// The server reads login credentials and the listen port from the
// configuration. A config watcher logs file changes while the server
// runs; changed settings take effect on the next restart.

package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/shortlister/internal/auth"
	"github.com/jeranaias/shortlister/internal/config"
	"github.com/jeranaias/shortlister/internal/server"
)

// shutdownGrace bounds how long in-flight requests may run after a
// termination signal. Assistant round trips can be slow, so this is
// generous.
const shutdownGrace = 30 * time.Second

// runServe starts the HTTP API server and blocks until SIGINT/SIGTERM.
func runServe(parser *ArgParser) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "load configuration")
	}

	port := parser.FlagIntOrDefault("port", cfg.Server.Port)
	if port < 1 || port > 65535 {
		return ErrInvalidFormat("port", fmt.Sprintf("%d", port), "--port 8790")
	}

	app, err := buildAppWithConfig(cfg, true)
	if err != nil {
		return err
	}
	defer app.Close()

	gate := auth.NewGate(auth.Credentials{
		Username: cfg.Auth.Username,
		Password: cfg.Auth.Password,
	})
	if !gate.Configured() {
		// SECURITY: Refuse to expose the API without a login gate.
		return NewCommandError("serve", "start",
			"login credentials are not configured (SHORTLISTER_USERNAME / SHORTLISTER_PASSWORD)", nil)
	}
	sessions := auth.NewSessionManager(cfg.Auth.SessionTimeout())

	srv := server.NewServer(port, app.manager, gate, sessions)
	if dir := exportOptions(cfg, "").OutputDir; dir != "" {
		srv = srv.WithExportDir(dir)
	}

	// Log config file edits while running. Settings are applied at
	// startup, so a change only takes effect on restart.
	if tomlPath, err := config.ConfigPathTOML(); err == nil {
		if watcher, err := config.NewWatcher(tomlPath, func(*config.Config) {
			log.Printf("CONFIG_CHANGED | path=%s note=restart_required", tomlPath)
		}); err == nil {
			if err := watcher.Watch(); err == nil {
				defer watcher.Close()
			}
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	fmt.Printf("%s listening on http://127.0.0.1:%d\n",
		SuccessStyle.Render("[OK]"), port)
	fmt.Println(DimStyle.Render("Press Ctrl+C to stop."))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return WrapError(err, "server stopped")
	case sig := <-sigCh:
		log.Printf("SERVER_SIGNAL | signal=%v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return WrapError(err, "shutdown")
	}
	return nil
}
