// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mbrtn/switchyard/pkg/a2a/types"
	"github.com/mbrtn/switchyard/pkg/errors"

	_ "modernc.org/sqlite"
)

const taskTable = "router_tasks"

// SQLiteTaskStore persists tasks in a SQLite database.
type SQLiteTaskStore struct {
	db *sql.DB
}

// NewSQLiteTaskStore creates a SQLite-backed task store and ensures
// schema.
func NewSQLiteTaskStore(db *sql.DB) (*SQLiteTaskStore, error) {
	if db == nil {
		return nil, errors.New(errors.CodeInvalidInput, "db is nil", nil)
	}
	if err := ensureSQLiteSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteTaskStore{db: db}, nil
}

// OpenSQLiteTaskStore opens (or creates) the database file at path and
// returns a store over it.
func OpenSQLiteTaskStore(path string) (*SQLiteTaskStore, *sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, errors.Newf(errors.CodeInternal, "open sqlite database %q: %v", path, err)
	}
	store, err := NewSQLiteTaskStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

func ensureSQLiteSchema(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			context_id TEXT NOT NULL,
			status_state TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			task_json BLOB NOT NULL
		);`, taskTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_context ON %s(context_id);`, taskTable, taskTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(status_state);`, taskTable, taskTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_updated ON %s(updated_at);`, taskTable, taskTable),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateTask persists a new task seeded from the incoming message.
func (s *SQLiteTaskStore) CreateTask(ctx context.Context, message *types.Message) (*types.Task, error) {
	task, err := newTask(message)
	if err != nil {
		return nil, err
	}
	if err := s.insertTask(ctx, task); err != nil {
		return nil, err
	}
	return cloneTask(task), nil
}

// UpdateStatus updates the persisted task status.
func (s *SQLiteTaskStore) UpdateStatus(ctx context.Context, taskID string, status types.TaskStatus) error {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	task.Status = status
	return s.updateTask(ctx, task)
}

// AddArtifacts appends artifacts to a persisted task.
func (s *SQLiteTaskStore) AddArtifacts(ctx context.Context, taskID string, artifacts []types.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	task.Artifacts = append(task.Artifacts, artifacts...)
	return s.updateTask(ctx, task)
}

// GetTask loads a task by id.
func (s *SQLiteTaskStore) GetTask(ctx context.Context, taskID string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT task_json FROM %s WHERE id = ?", taskTable), taskID)
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Newf(errors.CodeNotFound, "task %q not found", taskID)
		}
		return nil, err
	}
	var task types.Task
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, errors.Newf(errors.CodeInternal, "decode task %q: %v", taskID, err)
	}
	return &task, nil
}

func (s *SQLiteTaskStore) insertTask(ctx context.Context, task *types.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, context_id, status_state, updated_at, task_json) VALUES (?, ?, ?, ?, ?)", taskTable),
		task.ID, task.ContextID, string(task.Status.State), time.Now().UTC().UnixMilli(), payload)
	return err
}

func (s *SQLiteTaskStore) updateTask(ctx context.Context, task *types.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET status_state = ?, updated_at = ?, task_json = ? WHERE id = ?", taskTable),
		string(task.Status.State), time.Now().UTC().UnixMilli(), payload, task.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.Newf(errors.CodeNotFound, "task %q not found", task.ID)
	}
	return nil
}
