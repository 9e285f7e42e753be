// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mbrtn/switchyard/pkg/a2a/types"
	"github.com/mbrtn/switchyard/pkg/errors"
)

// TaskStore provides access to task records created by the JSON-RPC
// surface.
type TaskStore interface {
	CreateTask(ctx context.Context, message *types.Message) (*types.Task, error)
	UpdateStatus(ctx context.Context, taskID string, status types.TaskStatus) error
	AddArtifacts(ctx context.Context, taskID string, artifacts []types.Artifact) error
	GetTask(ctx context.Context, taskID string) (*types.Task, error)
}

// MemoryTaskStore keeps tasks in memory.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*taskRecord
}

type taskRecord struct {
	task      *types.Task
	updatedAt time.Time
}

// NewMemoryTaskStore creates a new in-memory task store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks: make(map[string]*taskRecord),
	}
}

// CreateTask stores a new submitted task seeded from the incoming
// message and returns it.
func (s *MemoryTaskStore) CreateTask(ctx context.Context, message *types.Message) (*types.Task, error) {
	task, err := newTask(message)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.tasks[task.ID] = &taskRecord{task: task, updatedAt: time.Now().UTC()}
	s.mu.Unlock()
	return cloneTask(task), nil
}

// UpdateStatus updates the task status.
func (s *MemoryTaskStore) UpdateStatus(ctx context.Context, taskID string, status types.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.tasks[taskID]
	if !ok {
		return errors.Newf(errors.CodeNotFound, "task %q not found", taskID)
	}
	record.task.Status = status
	record.updatedAt = time.Now().UTC()
	return nil
}

// AddArtifacts appends artifacts to the task.
func (s *MemoryTaskStore) AddArtifacts(ctx context.Context, taskID string, artifacts []types.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.tasks[taskID]
	if !ok {
		return errors.Newf(errors.CodeNotFound, "task %q not found", taskID)
	}
	record.task.Artifacts = append(record.task.Artifacts, artifacts...)
	record.updatedAt = time.Now().UTC()
	return nil
}

// GetTask returns a copy of the stored task.
func (s *MemoryTaskStore) GetTask(ctx context.Context, taskID string) (*types.Task, error) {
	s.mu.RLock()
	record, ok := s.tasks[taskID]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.CodeNotFound, "task %q not found", taskID)
	}
	return cloneTask(record.task), nil
}

func newTask(message *types.Message) (*types.Task, error) {
	if message == nil {
		return nil, errors.New(errors.CodeInvalidInput, "message is nil", nil)
	}
	taskID := uuid.NewString()
	contextID := message.ContextID
	if contextID == "" {
		contextID = uuid.NewString()
	}
	msg := cloneMessage(message)
	msg.TaskID = taskID
	msg.ContextID = contextID
	return &types.Task{
		ID:        taskID,
		ContextID: contextID,
		Status:    types.TaskStatus{State: types.TaskStateSubmitted, Message: msg},
	}, nil
}

func cloneTask(task *types.Task) *types.Task {
	if task == nil {
		return nil
	}
	cloned := *task
	cloned.Status.Message = cloneMessage(task.Status.Message)
	if len(task.Artifacts) > 0 {
		cloned.Artifacts = make([]types.Artifact, len(task.Artifacts))
		for i, artifact := range task.Artifacts {
			cloned.Artifacts[i] = artifact
			cloned.Artifacts[i].Parts = append([]types.Part(nil), artifact.Parts...)
		}
	}
	return &cloned
}

func cloneMessage(message *types.Message) *types.Message {
	if message == nil {
		return nil
	}
	cloned := *message
	cloned.Parts = append([]types.Part(nil), message.Parts...)
	return &cloned
}
