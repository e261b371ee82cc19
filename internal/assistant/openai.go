// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// =============================================================================
// OPENAI ASSISTANTS CLIENT
// =============================================================================

// OpenAIClient implements API against the OpenAI Assistants endpoints
// using the go-openai library. The assistant itself (instructions,
// model, tools) is configured remotely and addressed by ID.
type OpenAIClient struct {
	client      *openai.Client
	assistantID string
}

// NewOpenAIClient creates a client for the given API key and assistant.
func NewOpenAIClient(apiKey, assistantID string) *OpenAIClient {
	return &OpenAIClient{
		client:      openai.NewClient(apiKey),
		assistantID: assistantID,
	}
}

// CreateThread allocates a new remote thread.
func (c *OpenAIClient) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

// PostMessage appends a message to the thread.
func (c *OpenAIClient) PostMessage(ctx context.Context, threadID, role, text string) error {
	_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    role,
		Content: text,
	})
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// StartRun begins one processing cycle for the configured assistant.
func (c *OpenAIClient) StartRun(ctx context.Context, threadID string) (string, error) {
	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: c.assistantID,
	})
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return run.ID, nil
}

// RunStatus maps the remote run status onto the bridge's coarse states.
func (c *OpenAIClient) RunStatus(ctx context.Context, threadID, runID string) (RunState, error) {
	run, err := c.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return RunPending, fmt.Errorf("retrieve run: %w", err)
	}

	switch run.Status {
	case openai.RunStatusCompleted:
		return RunCompleted, nil
	case openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired, openai.RunStatusIncomplete:
		if run.LastError != nil {
			return RunFailed, fmt.Errorf("%w: %s: %s", ErrRunFailed, run.LastError.Code, run.LastError.Message)
		}
		return RunFailed, nil
	default:
		// queued, in_progress, cancelling, requires_action all keep polling
		return RunPending, nil
	}
}

// LatestAssistantMessage fetches the newest message on the thread and
// returns its first text block. The list endpoint orders newest first,
// matching the "messages.data[0]" access pattern of the original client.
func (c *OpenAIClient) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	limit := 1
	order := "desc"
	messages, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	if len(messages.Messages) == 0 {
		return "", nil
	}

	for _, content := range messages.Messages[0].Content {
		if content.Text != nil {
			return content.Text.Value, nil
		}
	}
	return "", nil
}

// Verify OpenAIClient implements API
var _ API = (*OpenAIClient)(nil)
