// SPDX-License-Identifier: Apache-2.0

// Package server implements the serving side of the task protocol: a
// handler that executes routed requests synchronously and the task
// stores that record their outcomes.
package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mbrtn/switchyard/pkg/a2a/types"
	"github.com/mbrtn/switchyard/pkg/errors"
	"github.com/mbrtn/switchyard/pkg/router"
)

// Executor runs one line of input (a routing request or a management
// command) and returns a JSON-serializable result.
type Executor interface {
	Execute(ctx context.Context, input string) any
}

// Handler serves message/send and tasks/get over a task store.
type Handler interface {
	SendMessage(ctx context.Context, params *types.SendParams) (*types.Task, error)
	GetTask(ctx context.Context, params *types.GetTaskParams) (*types.Task, error)
}

// RouterHandler executes requests synchronously: the task a
// message/send returns is already terminal, and tasks/get serves later
// polls from the store.
type RouterHandler struct {
	executor Executor
	store    TaskStore
	logger   *slog.Logger
}

// NewRouterHandler creates a handler over the given executor and store.
func NewRouterHandler(executor Executor, store TaskStore, logger *slog.Logger) *RouterHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RouterHandler{executor: executor, store: store, logger: logger}
}

// SendMessage creates a task for the message, executes it, records the
// outcome and returns the terminal task.
func (h *RouterHandler) SendMessage(ctx context.Context, params *types.SendParams) (*types.Task, error) {
	if params == nil || params.Message == nil {
		return nil, errors.New(errors.CodeInvalidInput, "missing message", nil)
	}
	text, ok := params.Message.Text()
	if !ok || text == "" {
		return nil, errors.New(errors.CodeInvalidInput, "message has no text part", nil)
	}

	task, err := h.store.CreateTask(ctx, params.Message)
	if err != nil {
		return nil, err
	}
	if err := h.store.UpdateStatus(ctx, task.ID, types.TaskStatus{State: types.TaskStateWorking}); err != nil {
		return nil, err
	}

	output := h.executor.Execute(ctx, text)
	state, artifactText := renderOutcome(output)

	artifact := types.Artifact{
		ArtifactID: uuid.NewString(),
		Name:       "response",
		Parts:      []types.Part{{Kind: "text", Text: artifactText}},
	}
	if err := h.store.AddArtifacts(ctx, task.ID, []types.Artifact{artifact}); err != nil {
		return nil, err
	}
	if err := h.store.UpdateStatus(ctx, task.ID, types.TaskStatus{State: state}); err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "server.task.finished",
		slog.String("task_id", task.ID),
		slog.String("state", string(state)))
	return h.store.GetTask(ctx, task.ID)
}

// GetTask returns the stored task.
func (h *RouterHandler) GetTask(ctx context.Context, params *types.GetTaskParams) (*types.Task, error) {
	if params == nil || params.ID == "" {
		return nil, errors.New(errors.CodeInvalidInput, "missing task id", nil)
	}
	return h.store.GetTask(ctx, params.ID)
}

// renderOutcome maps an executor result onto a task state and artifact
// text. Routing results carry their human-readable response; command
// results are serialized as JSON so callers can parse them.
func renderOutcome(output any) (types.TaskState, string) {
	switch v := output.(type) {
	case *router.Result:
		if v.Success {
			return types.TaskStateCompleted, v.Response
		}
		text := v.Response
		if text == "" {
			text = v.Error
		}
		return types.TaskStateFailed, text
	default:
		payload, err := json.Marshal(output)
		if err != nil {
			return types.TaskStateFailed, "failed to encode command result"
		}
		return types.TaskStateCompleted, string(payload)
	}
}
