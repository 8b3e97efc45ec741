package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agentrunner/pkg/transcript"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// SaveRun stores a completed task run and its full transcript in one
// transaction. Re-saving the same task ID replaces the previous run.
func (s *Store) SaveRun(taskID, query, status, answer string, startedAt time.Time, tr *transcript.Transcript) error {
	steps := tr.Steps()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO tasks (id, query, status, answer, step_count, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			query = excluded.query,
			status = excluded.status,
			answer = excluded.answer,
			step_count = excluded.step_count,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`, taskID, query, status, answer, len(steps), startedAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert task %s: %w", taskID, err)
	}

	if _, err := tx.Exec("DELETE FROM steps WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("failed to clear steps for task %s: %w", taskID, err)
	}

	for i := range steps {
		step := &steps[i]
		kind, content := "", ""
		if step.Observation != nil {
			kind = string(step.Observation.Kind)
			content = step.Observation.Content
		}
		_, err := tx.Exec(`
			INSERT INTO steps (task_id, sequence, raw_output, observation_kind, observation, duration_ms, started_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, taskID, step.Sequence, step.RawOutput, kind, content, step.Duration.Milliseconds(), step.StartedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert step %d for task %s: %w", step.Sequence, taskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run for task %s: %w", taskID, err)
	}
	return nil
}

// GetTask returns the stored run for taskID.
func (s *Store) GetTask(taskID string) (*TaskRecord, error) {
	var record TaskRecord
	err := s.db.QueryRow(`
		SELECT id, query, status, answer, step_count, started_at, completed_at
		FROM tasks WHERE id = ?
	`, taskID).Scan(
		&record.ID, &record.Query, &record.Status, &record.Answer,
		&record.StepCount, &record.StartedAt, &record.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", taskID, err)
	}
	return &record, nil
}

// GetSteps returns the stored steps for taskID in sequence order.
func (s *Store) GetSteps(taskID string) ([]StepRecord, error) {
	rows, err := s.db.Query(`
		SELECT task_id, sequence, raw_output, observation_kind, observation, duration_ms, started_at
		FROM steps WHERE task_id = ? ORDER BY sequence
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps for task %s: %w", taskID, err)
	}
	defer func() { _ = rows.Close() }()

	var steps []StepRecord
	for rows.Next() {
		var step StepRecord
		if err := rows.Scan(
			&step.TaskID, &step.Sequence, &step.RawOutput,
			&step.ObservationKind, &step.Observation, &step.DurationMS, &step.StartedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan step for task %s: %w", taskID, err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate steps for task %s: %w", taskID, err)
	}

	return steps, nil
}

// ListTasks returns recent runs ordered by start time, newest first.
func (s *Store) ListTasks(limit int) ([]TaskRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, query, status, answer, step_count, started_at, completed_at
		FROM tasks ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []TaskRecord
	for rows.Next() {
		var record TaskRecord
		if err := rows.Scan(
			&record.ID, &record.Query, &record.Status, &record.Answer,
			&record.StepCount, &record.StartedAt, &record.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return records, nil
}
