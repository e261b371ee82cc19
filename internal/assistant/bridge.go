// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant wraps the hosted assistant service behind a small
// synchronous request/poll interface.
//
// One exchange is: post the user message to the remote thread, start a
// run, poll the run status on a fixed interval until it completes, then
// fetch the newest assistant message. The bridge performs exactly one
// attempt; any transport or API failure surfaces to the caller and is
// never retried here.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrRunTimeout means the run did not complete within the bridge's
	// maximum wait.
	ErrRunTimeout = errors.New("assistant run timed out")

	// ErrRunFailed means the remote service reported the run as failed,
	// cancelled, or expired.
	ErrRunFailed = errors.New("assistant run failed")

	// ErrNoReply means the run completed but no assistant message could
	// be fetched.
	ErrNoReply = errors.New("assistant returned no reply")
)

// =============================================================================
// REMOTE API SURFACE
// =============================================================================

// RunState is the coarse status of a remote run.
type RunState int

const (
	// RunPending covers queued and in-progress runs.
	RunPending RunState = iota
	// RunCompleted means the reply is ready to fetch.
	RunCompleted
	// RunFailed covers failed, cancelled, and expired runs.
	RunFailed
)

// API is the remote assistant surface the bridge consumes. The
// production implementation lives in openai.go; tests substitute fakes.
type API interface {
	// CreateThread allocates a remote conversation session.
	CreateThread(ctx context.Context) (string, error)

	// PostMessage appends a message to the remote thread.
	PostMessage(ctx context.Context, threadID, role, text string) error

	// StartRun begins one processing cycle on the thread.
	StartRun(ctx context.Context, threadID string) (string, error)

	// RunStatus reports the current state of a run.
	RunStatus(ctx context.Context, threadID, runID string) (RunState, error)

	// LatestAssistantMessage returns the text of the newest assistant
	// message on the thread.
	LatestAssistantMessage(ctx context.Context, threadID string) (string, error)
}

// =============================================================================
// BRIDGE
// =============================================================================

// Config holds bridge polling configuration.
type Config struct {
	// PollInterval is the fixed delay between run status checks.
	// Default: 1 second.
	PollInterval time.Duration

	// MaxWait bounds the total time spent waiting for one run.
	// Default: 2 minutes.
	MaxWait time.Duration
}

// DefaultConfig returns the default bridge configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Second,
		MaxWait:      2 * time.Minute,
	}
}

// Bridge drives one blocking exchange with the assistant service.
type Bridge struct {
	api          API
	pollInterval time.Duration
	maxWait      time.Duration
}

// NewBridge creates a bridge over the given remote API.
func NewBridge(api API, cfg Config) *Bridge {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultConfig().MaxWait
	}
	return &Bridge{
		api:          api,
		pollInterval: cfg.PollInterval,
		maxWait:      cfg.MaxWait,
	}
}

// CreateThread allocates a remote thread. Satisfies thread.Creator.
func (b *Bridge) CreateThread(ctx context.Context) (string, error) {
	return b.api.CreateThread(ctx)
}

// SendAndAwait posts userText to the thread, runs the assistant, and
// blocks until the reply is available or the wait budget is exhausted.
//
// The caller has typically already persisted the user message; on error
// that state is deliberately not rolled back, leaving a recoverable
// "message sent, no reply" transcript.
func (b *Bridge) SendAndAwait(ctx context.Context, threadID, userText string) (string, error) {
	if err := b.api.PostMessage(ctx, threadID, "user", userText); err != nil {
		return "", fmt.Errorf("post message: %w", err)
	}

	runID, err := b.api.StartRun(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}

	if err := b.awaitRun(ctx, threadID, runID); err != nil {
		return "", err
	}

	reply, err := b.api.LatestAssistantMessage(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("fetch reply: %w", err)
	}
	if reply == "" {
		return "", ErrNoReply
	}

	return reply, nil
}

// awaitRun polls on a fixed interval until the run completes, fails, or
// the deadline passes. Cancellation is checked every iteration.
func (b *Bridge) awaitRun(ctx context.Context, threadID, runID string) error {
	deadline := time.Now().Add(b.maxWait)
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		state, err := b.api.RunStatus(ctx, threadID, runID)
		if err != nil {
			return fmt.Errorf("poll run status: %w", err)
		}

		switch state {
		case RunCompleted:
			return nil
		case RunFailed:
			return fmt.Errorf("%w: run %s", ErrRunFailed, runID)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: run %s after %s", ErrRunTimeout, runID, b.maxWait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
