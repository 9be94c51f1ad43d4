// Package tasks submits completions to the async task service and polls
// them to completion.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aviary-sim/aviary/internal/client"
	"github.com/aviary-sim/aviary/internal/llm"
	"github.com/aviary-sim/aviary/internal/models"
	"github.com/aviary-sim/aviary/internal/retry"
)

const tasksPath = "/ai/tasks"

// Sentinel errors for task operations. The underlying transport error is
// wrapped alongside these so errors.Is works for both.
var (
	ErrCreate = errors.New("failed to create task")
	ErrFetch  = errors.New("failed to fetch task status")
)

// Client runs completions through the task queue.
type Client struct {
	api          *client.Client
	model        string
	pollInterval time.Duration
	submit       retry.Policy
	log          *slog.Logger
}

// Compile-time check that Client implements llm.Completer.
var _ llm.Completer = (*Client)(nil)

// New creates a task client. pollInterval defaults to 2s when zero.
func New(api *client.Client, model string, pollInterval time.Duration, log *slog.Logger) *Client {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Client{
		api:          api,
		model:        model,
		pollInterval: pollInterval,
		submit:       retry.Fixed(3, time.Second),
		log:          log,
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type taskRequest struct {
	Action       string        `json:"action"`
	Model        string        `json:"model"`
	SystemPrompt string        `json:"system_prompt"`
	Messages     []wireMessage `json:"messages"`
}

type createResponse struct {
	TaskID string `json:"taskId"`
}

// Create submits a new completion task and returns its ID.
func (c *Client) Create(ctx context.Context, systemPrompt string, turns []models.Turn) (string, error) {
	msgs := make([]wireMessage, len(turns))
	for i, turn := range turns {
		msgs[i] = wireMessage{Role: turn.Role, Content: turn.Content}
	}
	req := taskRequest{
		Action:       "ai",
		Model:        c.model,
		SystemPrompt: systemPrompt,
		Messages:     msgs,
	}

	var resp createResponse
	err := c.submit.Do(ctx, func(ctx context.Context) error {
		return c.api.Post(ctx, tasksPath, req, &resp)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCreate, err)
	}
	return resp.TaskID, nil
}

// Status fetches the current state of a task.
func (c *Client) Status(ctx context.Context, taskID string) (models.TaskStatus, error) {
	var status models.TaskStatus
	if err := c.api.Get(ctx, tasksPath+"/"+taskID, nil, &status); err != nil {
		return status, fmt.Errorf("%w: task %s: %w", ErrFetch, taskID, err)
	}
	return status, nil
}

// Wait polls until the task completes or fails. It never times out on its
// own; the caller's context bounds the wait. A completed task with no
// response resolves to the empty string.
func (c *Client) Wait(ctx context.Context, taskID string) (string, error) {
	for {
		status, err := c.Status(ctx, taskID)
		if err != nil {
			return "", err
		}
		switch status.Status {
		case models.TaskCompleted:
			return status.Response, nil
		case models.TaskFailed:
			return "", fmt.Errorf("task %s failed: %s", taskID, status.Error)
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}

// Complete submits the conversation in the given persona and blocks for the
// result, implementing llm.Completer.
func (c *Client) Complete(ctx context.Context, persona llm.Persona, turns []models.Turn) (string, error) {
	taskID, err := c.Create(ctx, persona.Personality, turns)
	if err != nil {
		return "", err
	}
	c.log.Debug("task created", "task_id", taskID, "persona", persona.Name)
	return c.Wait(ctx, taskID)
}
